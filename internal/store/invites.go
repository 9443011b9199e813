package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/models"
)

// Invite creates an invite code for a group that expires after ttl.
// Expired invites in the group are garbage-collected opportunistically
// on the way.
func (s *Store) Invite(ctx context.Context, groupID string, ttl time.Duration) (string, error) {
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return "", err
	}

	if err := s.CleanupInvites(ctx, groupID); err != nil {
		slog.Warn("invite cleanup failed", "group_id", groupID, "error", err)
	}

	code := uuid.New().String()
	data, err := docstore.Encode(models.Invite{Expiry: s.now().UTC().Add(ttl)})
	if err != nil {
		return "", err
	}

	if err := s.docs.Apply(ctx, docstore.Batch{docstore.Set(invitePath(groupID, code), data)}); err != nil {
		return "", fmt.Errorf("create invite: %w", err)
	}
	return code, nil
}

// CleanupInvites deletes every expired invite of a group in one batch.
func (s *Store) CleanupInvites(ctx context.Context, groupID string) error {
	docs, err := s.docs.List(ctx, invitesPath(groupID))
	if err != nil {
		return err
	}

	now := s.now().UTC()
	var batch docstore.Batch
	for code, data := range docs {
		var invite models.Invite
		if err := docstore.Decode(data, &invite); err != nil {
			return fmt.Errorf("invite %s: %w", code, err)
		}
		if invite.Expiry.Before(now) {
			batch = append(batch, docstore.Delete(invitePath(groupID, code)))
		}
	}

	if len(batch) == 0 {
		return nil
	}
	return s.docs.Apply(ctx, batch)
}

// consumeInvite validates an invite code, lazily deleting it when it
// turns out to be expired.
func (s *Store) consumeInvite(ctx context.Context, groupID, code string) error {
	data, err := s.docs.Get(ctx, invitePath(groupID, code))
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInviteInvalid
	}
	if err != nil {
		return err
	}

	var invite models.Invite
	if err := docstore.Decode(data, &invite); err != nil {
		return err
	}

	if invite.Expiry.Before(s.now().UTC()) {
		if err := s.docs.Apply(ctx, docstore.Batch{docstore.Delete(invitePath(groupID, code))}); err != nil {
			slog.Warn("expired invite delete failed", "group_id", groupID, "error", err)
		}
		return ErrInviteInvalid
	}
	return nil
}
