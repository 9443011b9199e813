package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/identity"
	"github.com/setil-app/backend/internal/models"
	"github.com/setil-app/backend/internal/money"
)

// GroupSummary is a group as shown on the current user's group list.
type GroupSummary struct {
	Group       models.Group       `json:"group"`
	Myself      models.GroupMember `json:"myself"`
	MemberCount int                `json:"memberCount"`
}

func newMember(user identity.User, now time.Time) models.GroupMember {
	name := user.DisplayName
	if name == "" {
		name = "Unknown User"
	}
	return models.GroupMember{
		UserID:      user.ID,
		DisplayName: name,
		PhotoURL:    user.PhotoURL,
		Status:      models.StatusActive,
		Balance:     0,
		LastUpdate:  now,
	}
}

// CreateGroup creates a group owned by the current user, who joins it
// as its first active member. Returns the id of the new group.
func (s *Store) CreateGroup(ctx context.Context, name, description string, currency money.Currency) (string, error) {
	user, err := s.ids.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if !currency.Valid() {
		return "", fmt.Errorf("unsupported currency %q", currency)
	}

	groupID := uuid.New().String()
	now := s.now().UTC()

	group := models.Group{
		Name:        name,
		Description: description,
		Currency:    currency,
		OwnerID:     user.ID,
		LastUpdate:  now,
	}

	groupData, err := docstore.Encode(group)
	if err != nil {
		return "", err
	}
	memberData, err := docstore.Encode(newMember(user, now))
	if err != nil {
		return "", err
	}

	batch := docstore.Batch{
		docstore.Set(groupPath(groupID), groupData),
		docstore.Set(memberPath(groupID, user.ID), memberData),
	}
	if err := s.docs.Apply(ctx, batch); err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}

	if err := s.addUserGroup(ctx, user.ID, groupID); err != nil {
		return "", err
	}
	return groupID, nil
}

// GroupUpdate is the set of group fields a caller may change. Currency
// is fixed at creation and ownership moves only via PromoteUser.
type GroupUpdate struct {
	Name        *string
	Description *string
}

// UpdateGroup applies a partial update to the group document.
func (s *Store) UpdateGroup(ctx context.Context, groupID string, update GroupUpdate) error {
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return err
	}

	partial := docstore.Data{}
	if update.Name != nil {
		partial["name"] = *update.Name
	}
	if update.Description != nil {
		partial["description"] = *update.Description
	}
	if len(partial) == 0 {
		return nil
	}

	if err := s.docs.Apply(ctx, docstore.Batch{docstore.Update(groupPath(groupID), partial)}); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// GetGroup returns the group document.
func (s *Store) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	return s.getGroup(ctx, groupID)
}

// DeleteGroup removes the group and everything under it. Other
// members' user documents still reference the group; the dangling ids
// are pruned the next time they list their groups.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return err
	}

	batch := docstore.Batch{}
	for _, collection := range []string{membersPath(groupID), txnsPath(groupID), invitesPath(groupID)} {
		docs, err := s.docs.List(ctx, collection)
		if err != nil {
			return err
		}
		for id := range docs {
			batch = append(batch, docstore.Delete(collection+"/"+id))
		}
	}
	batch = append(batch, docstore.Delete(groupPath(groupID)))

	if err := s.docs.Apply(ctx, batch); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// UserGroups lists the groups the current user actively belongs to,
// pruning ids of deleted groups and of groups the user is no longer
// active in.
func (s *Store) UserGroups(ctx context.Context) (map[string]GroupSummary, error) {
	user, err := s.ids.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	var userData models.UserData
	data, err := s.docs.Get(ctx, userPath(user.ID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return map[string]GroupSummary{}, nil
		}
		return nil, err
	}
	if err := docstore.Decode(data, &userData); err != nil {
		return nil, err
	}

	summaries := make(map[string]GroupSummary)
	var known []string
	for _, groupID := range userData.Groups {
		group, err := s.getGroup(ctx, groupID)
		if errors.Is(err, docstore.ErrNotFound) {
			continue // group deleted, prune
		}
		if err != nil {
			return nil, err
		}

		myself, err := s.getMember(ctx, groupID, user.ID)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if myself.Status != models.StatusActive {
			continue // left or removed, prune
		}

		members, err := s.Members(ctx, groupID)
		if err != nil {
			return nil, err
		}

		known = append(known, groupID)
		summaries[groupID] = GroupSummary{Group: group, Myself: myself, MemberCount: len(members)}
	}

	if len(known) != len(userData.Groups) {
		if err := s.setUserGroups(ctx, user.ID, known); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

// PromoteUser transfers group ownership to another active member.
func (s *Store) PromoteUser(ctx context.Context, groupID, userID string) error {
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return err
	}

	member, err := s.getMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if member.Status != models.StatusActive {
		return fmt.Errorf("cannot promote %s: member is not active", userID)
	}

	batch := docstore.Batch{docstore.Update(groupPath(groupID), docstore.Data{"ownerId": userID})}
	if err := s.docs.Apply(ctx, batch); err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	return nil
}

// addUserGroup records a group id on the user's own document.
func (s *Store) addUserGroup(ctx context.Context, userID, groupID string) error {
	var userData models.UserData
	data, err := s.docs.Get(ctx, userPath(userID))
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		// first group for this user
	case err != nil:
		return err
	default:
		if err := docstore.Decode(data, &userData); err != nil {
			return err
		}
	}

	if slices.Contains(userData.Groups, groupID) {
		return nil
	}
	return s.setUserGroups(ctx, userID, append(userData.Groups, groupID))
}

func (s *Store) setUserGroups(ctx context.Context, userID string, groupIDs []string) error {
	data, err := docstore.Encode(models.UserData{Groups: groupIDs})
	if err != nil {
		return err
	}
	return s.docs.Apply(ctx, docstore.Batch{docstore.Set(userPath(userID), data)})
}
