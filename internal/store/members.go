package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/ledger"
	"github.com/setil-app/backend/internal/models"
)

// JoinGroup adds the current user to a group using an invite code. A
// user who had previously left is simply reactivated; their old
// balance history stays intact.
func (s *Store) JoinGroup(ctx context.Context, groupID, inviteCode string) error {
	user, err := s.ids.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if _, err := s.getGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.consumeInvite(ctx, groupID, inviteCode); err != nil {
		return err
	}

	if err := s.addUserGroup(ctx, user.ID, groupID); err != nil {
		return err
	}

	existing, err := s.getMember(ctx, groupID, user.ID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		memberData, err := docstore.Encode(newMember(user, s.now().UTC()))
		if err != nil {
			return err
		}
		if err := s.docs.Apply(ctx, docstore.Batch{docstore.Set(memberPath(groupID, user.ID), memberData)}); err != nil {
			return fmt.Errorf("join group: %w", err)
		}
	case err != nil:
		return err
	default:
		if existing.Status != models.StatusActive {
			update := docstore.Update(memberPath(groupID, user.ID), docstore.Data{"status": string(models.StatusActive)})
			if err := s.docs.Apply(ctx, docstore.Batch{update}); err != nil {
				return fmt.Errorf("rejoin group: %w", err)
			}
		}
	}
	return nil
}

// RemoveUser forces a member out of the group. Their record stays as
// left while they hold a balance, history once settled.
func (s *Store) RemoveUser(ctx context.Context, groupID, userID string) error {
	member, err := s.getMember(ctx, groupID, userID)
	if err != nil {
		return err
	}

	status, changed := ledger.LeftStatus(member.Status, member.Balance, true)
	if !changed {
		return nil
	}

	update := docstore.Update(memberPath(groupID, userID), docstore.Data{"status": string(status)})
	if err := s.docs.Apply(ctx, docstore.Batch{update}); err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	return nil
}

// LeaveGroup departs the current user from a group. If they own it,
// ownership passes to another active member; with no active members
// remaining the group is deleted instead.
func (s *Store) LeaveGroup(ctx context.Context, groupID string) error {
	user, err := s.ids.CurrentUser(ctx)
	if err != nil {
		return err
	}

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}

	if group.OwnerID == user.ID {
		members, err := s.Members(ctx, groupID)
		if err != nil {
			return err
		}

		var candidates []string
		for userID, member := range members {
			if userID != user.ID && member.Status == models.StatusActive {
				candidates = append(candidates, userID)
			}
		}
		sort.Strings(candidates)

		if len(candidates) == 0 {
			return s.DeleteGroup(ctx, groupID)
		}

		promote := docstore.Update(groupPath(groupID), docstore.Data{"ownerId": candidates[0]})
		if err := s.docs.Apply(ctx, docstore.Batch{promote}); err != nil {
			return fmt.Errorf("leave group: %w", err)
		}
	}

	return s.RemoveUser(ctx, groupID, user.ID)
}

// ChangeUserName renames a member within one group.
func (s *Store) ChangeUserName(ctx context.Context, groupID, userID, name string) error {
	if _, err := s.getMember(ctx, groupID, userID); err != nil {
		return err
	}

	update := docstore.Update(memberPath(groupID, userID), docstore.Data{"displayName": name})
	if err := s.docs.Apply(ctx, docstore.Batch{update}); err != nil {
		return fmt.Errorf("change user name: %w", err)
	}
	return nil
}
