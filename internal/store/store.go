// Package store is the adapter between the ledger core and the
// document store. It turns every mutation into one atomic batch so a
// partial failure can never break the zero-sum invariant, and runs the
// best-effort status recompute pass that follows a transaction write.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/identity"
	"github.com/setil-app/backend/internal/ledger"
	"github.com/setil-app/backend/internal/models"
)

// ErrInviteInvalid is returned when joining with an unknown or expired
// invite code.
var ErrInviteInvalid = errors.New("invite code invalid or expired")

// Store exposes the ledger operations over a docstore.Store.
type Store struct {
	docs docstore.Store
	ids  identity.Provider
	now  func() time.Time
}

// New creates a Store over the given document store and identity
// provider.
func New(docs docstore.Store, ids identity.Provider) *Store {
	return &Store{docs: docs, ids: ids, now: time.Now}
}

// Docs returns the underlying document store, for wiring live views.
func (s *Store) Docs() docstore.Store { return s.docs }

func groupPath(groupID string) string        { return "groups/" + groupID }
func membersPath(groupID string) string      { return "groups/" + groupID + "/users" }
func memberPath(groupID, uid string) string  { return "groups/" + groupID + "/users/" + uid }
func txnsPath(groupID string) string         { return "groups/" + groupID + "/transactions" }
func txnPath(groupID, txnID string) string   { return "groups/" + groupID + "/transactions/" + txnID }
func invitesPath(groupID string) string      { return "groups/" + groupID + "/invites" }
func invitePath(groupID, code string) string { return "groups/" + groupID + "/invites/" + code }
func userPath(uid string) string             { return "users/" + uid }

func (s *Store) getGroup(ctx context.Context, groupID string) (models.Group, error) {
	var group models.Group
	data, err := s.docs.Get(ctx, groupPath(groupID))
	if err != nil {
		return group, err
	}
	if err := docstore.Decode(data, &group); err != nil {
		return group, err
	}
	return group, nil
}

func (s *Store) getMember(ctx context.Context, groupID, userID string) (models.GroupMember, error) {
	var member models.GroupMember
	data, err := s.docs.Get(ctx, memberPath(groupID, userID))
	if err != nil {
		return member, err
	}
	if err := docstore.Decode(data, &member); err != nil {
		return member, err
	}
	member.UserID = userID
	return member, nil
}

func (s *Store) getTransaction(ctx context.Context, groupID, txnID string) (models.Transaction, error) {
	var txn models.Transaction
	data, err := s.docs.Get(ctx, txnPath(groupID, txnID))
	if err != nil {
		return txn, err
	}
	if err := docstore.Decode(data, &txn); err != nil {
		return txn, err
	}
	return txn, nil
}

// Members returns the member documents of a group keyed by user id.
func (s *Store) Members(ctx context.Context, groupID string) (map[string]models.GroupMember, error) {
	docs, err := s.docs.List(ctx, membersPath(groupID))
	if err != nil {
		return nil, err
	}

	members := make(map[string]models.GroupMember, len(docs))
	for userID, data := range docs {
		var member models.GroupMember
		if err := docstore.Decode(data, &member); err != nil {
			return nil, fmt.Errorf("member %s: %w", userID, err)
		}
		member.UserID = userID
		members[userID] = member
	}
	return members, nil
}

// balanceOps translates a transaction's ledger effect into relative
// balance increments, one per touched member. Ops are emitted in
// sorted user order so batches are reproducible.
func balanceOps(groupID, from string, to map[string]int64) []docstore.Op {
	deltas := ledger.Effect(from, to)

	userIDs := make([]string, 0, len(deltas))
	for userID := range deltas {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	ops := make([]docstore.Op, 0, len(userIDs))
	for _, userID := range userIDs {
		ops = append(ops, docstore.Increment(memberPath(groupID, userID), "balance", deltas[userID]))
	}
	return ops
}

// touchOps bumps the lastUpdate timestamps of the acting member and
// the group.
func (s *Store) touchOps(groupID, actorID string) []docstore.Op {
	now := s.now().UTC()
	return []docstore.Op{
		docstore.Update(memberPath(groupID, actorID), docstore.Data{"lastUpdate": now.Format(time.RFC3339Nano)}),
		docstore.Update(groupPath(groupID), docstore.Data{"lastUpdate": now.Format(time.RFC3339Nano)}),
	}
}
