// Package live maintains subscription-backed views of a group: its
// document, its members and its transactions, kept current by the
// document store's change stream.
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/models"
)

// GroupView is a live snapshot of one group. It becomes observable
// only after every listener has delivered its first synchronized
// snapshot, so a caller can never see a partially loaded group.
type GroupView struct {
	groupID string

	mu           sync.RWMutex
	group        models.Group
	members      map[string]models.GroupMember
	transactions map[string]models.Transaction

	unsubscribe []docstore.UnsubscribeFunc
}

// Open subscribes to a group's document, member and transaction
// collections and returns a view once all three have synchronized.
// Callers must Close the view when the group page is torn down.
func Open(ctx context.Context, docs docstore.Store, groupID string) (*GroupView, error) {
	// Fail fast before wiring listeners.
	if _, err := docs.Get(ctx, "groups/"+groupID); err != nil {
		return nil, err
	}

	v := &GroupView{
		groupID:      groupID,
		members:      make(map[string]models.GroupMember),
		transactions: make(map[string]models.Transaction),
	}

	subscriptions := []struct {
		target string
		fn     func(docstore.Change)
	}{
		{"groups/" + groupID, v.onGroup},
		{"groups/" + groupID + "/users", v.onMember},
		{"groups/" + groupID + "/transactions", v.onTransaction},
	}

	for _, sub := range subscriptions {
		unsub, err := docs.Subscribe(ctx, sub.target, sub.fn)
		if err != nil {
			v.Close()
			return nil, err
		}
		v.unsubscribe = append(v.unsubscribe, unsub)
	}

	return v, nil
}

// Close releases every listener held by the view.
func (v *GroupView) Close() {
	for _, unsub := range v.unsubscribe {
		unsub()
	}
	v.unsubscribe = nil
}

// GroupID returns the id of the viewed group.
func (v *GroupView) GroupID() string { return v.groupID }

// Group returns the current group document.
func (v *GroupView) Group() models.Group {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.group
}

// Members returns a copy of the current member documents.
func (v *GroupView) Members() map[string]models.GroupMember {
	v.mu.RLock()
	defer v.mu.RUnlock()

	members := make(map[string]models.GroupMember, len(v.members))
	for id, member := range v.members {
		members[id] = member
	}
	return members
}

// Transactions returns a copy of the current transaction documents.
func (v *GroupView) Transactions() map[string]models.Transaction {
	v.mu.RLock()
	defer v.mu.RUnlock()

	txns := make(map[string]models.Transaction, len(v.transactions))
	for id, txn := range v.transactions {
		txns[id] = txn
	}
	return txns
}

// Balances returns every member's current net balance.
func (v *GroupView) Balances() map[string]int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	balances := make(map[string]int64, len(v.members))
	for id, member := range v.members {
		balances[id] = member.Balance
	}
	return balances
}

func (v *GroupView) onGroup(change docstore.Change) {
	if change.Type == docstore.Removed {
		return
	}

	var group models.Group
	if err := docstore.Decode(change.Data, &group); err != nil {
		slog.Warn("live group decode failed", "group_id", v.groupID, "error", err)
		return
	}

	v.mu.Lock()
	v.group = group
	v.mu.Unlock()
}

func (v *GroupView) onMember(change docstore.Change) {
	userID := docstore.ID(change.Path)

	if change.Type == docstore.Removed {
		v.mu.Lock()
		delete(v.members, userID)
		v.mu.Unlock()
		return
	}

	var member models.GroupMember
	if err := docstore.Decode(change.Data, &member); err != nil {
		slog.Warn("live member decode failed", "group_id", v.groupID, "user_id", userID, "error", err)
		return
	}
	member.UserID = userID

	v.mu.Lock()
	v.members[userID] = member
	v.mu.Unlock()
}

func (v *GroupView) onTransaction(change docstore.Change) {
	txnID := docstore.ID(change.Path)

	if change.Type == docstore.Removed {
		v.mu.Lock()
		delete(v.transactions, txnID)
		v.mu.Unlock()
		return
	}

	var txn models.Transaction
	if err := docstore.Decode(change.Data, &txn); err != nil {
		slog.Warn("live transaction decode failed", "group_id", v.groupID, "transaction_id", txnID, "error", err)
		return
	}

	v.mu.Lock()
	v.transactions[txnID] = txn
	v.mu.Unlock()
}
