package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/setil-app/backend/internal/calculator"
	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/ledger"
	"github.com/setil-app/backend/internal/models"
)

// CreateTransaction persists a transaction and applies its balance
// effect in one atomic batch, then recomputes the status of any
// affected departed members as a separate best-effort pass. Returns
// the id of the new transaction.
func (s *Store) CreateTransaction(ctx context.Context, groupID string, txn models.Transaction, affectedLeftUsers []string) (string, error) {
	user, err := s.ids.CurrentUser(ctx)
	if err != nil {
		return "", err
	}

	if err := s.normalize(&txn); err != nil {
		return "", err
	}

	txnID := uuid.New().String()
	data, err := docstore.Encode(txn)
	if err != nil {
		return "", err
	}

	batch := docstore.Batch{docstore.Set(txnPath(groupID, txnID), data)}
	batch = append(batch, balanceOps(groupID, txn.From, txn.To)...)
	batch = append(batch, s.touchOps(groupID, user.ID)...)

	if err := s.docs.Apply(ctx, batch); err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	s.recomputeLeftUsers(ctx, groupID, affectedLeftUsers)
	return txnID, nil
}

// UpdateTransaction overwrites a transaction, reversing the old
// balance effect and applying the new one in the same atomic batch as
// the document write.
func (s *Store) UpdateTransaction(ctx context.Context, groupID, txnID string, txn models.Transaction, affectedLeftUsers []string) error {
	user, err := s.ids.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if err := s.normalize(&txn); err != nil {
		return err
	}

	old, err := s.getTransaction(ctx, groupID, txnID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	data, err := docstore.Encode(txn)
	if err != nil {
		return err
	}

	batch := docstore.Batch{docstore.Set(txnPath(groupID, txnID), data)}
	batch = append(batch, balanceOps(groupID, old.From, ledger.Invert(old.To))...)
	batch = append(batch, balanceOps(groupID, txn.From, txn.To)...)
	batch = append(batch, s.touchOps(groupID, user.ID)...)

	if err := s.docs.Apply(ctx, batch); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.recomputeLeftUsers(ctx, groupID, affectedLeftUsers)
	return nil
}

// DeleteTransaction removes a transaction, reversing its balance
// effect atomically with the document deletion.
func (s *Store) DeleteTransaction(ctx context.Context, groupID, txnID string, affectedLeftUsers []string) error {
	user, err := s.ids.CurrentUser(ctx)
	if err != nil {
		return err
	}

	old, err := s.getTransaction(ctx, groupID, txnID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	batch := docstore.Batch{docstore.Delete(txnPath(groupID, txnID))}
	batch = append(batch, balanceOps(groupID, old.From, ledger.Invert(old.To))...)
	batch = append(batch, s.touchOps(groupID, user.ID)...)

	if err := s.docs.Apply(ctx, batch); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.recomputeLeftUsers(ctx, groupID, affectedLeftUsers)
	return nil
}

// Transactions returns a group's transactions keyed by id.
func (s *Store) Transactions(ctx context.Context, groupID string) (map[string]models.Transaction, error) {
	docs, err := s.docs.List(ctx, txnsPath(groupID))
	if err != nil {
		return nil, err
	}

	txns := make(map[string]models.Transaction, len(docs))
	for txnID, data := range docs {
		var txn models.Transaction
		if err := docstore.Decode(data, &txn); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txnID, err)
		}
		txns[txnID] = txn
	}
	return txns, nil
}

// Balances returns every member's net balance in minor units.
func (s *Store) Balances(ctx context.Context, groupID string) (map[string]int64, error) {
	members, err := s.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]int64, len(members))
	for userID, member := range members {
		balances[userID] = member.Balance
	}
	return balances, nil
}

// SettleUp nets the group's balances into a list of settling payments.
func (s *Store) SettleUp(ctx context.Context, groupID string) ([]calculator.Settlement, error) {
	balances, err := s.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.ResolveDebts(balances), nil
}

// RecomputeLeftStatus re-derives the stored status of the given
// departed members from their balances and persists any corrections in
// one batch.
func (s *Store) RecomputeLeftStatus(ctx context.Context, groupID string, userIDs []string) error {
	var batch docstore.Batch
	for _, userID := range userIDs {
		member, err := s.getMember(ctx, groupID, userID)
		if err != nil {
			return err
		}

		status, changed := ledger.LeftStatus(member.Status, member.Balance, false)
		if changed {
			batch = append(batch, docstore.Update(memberPath(groupID, userID), docstore.Data{"status": string(status)}))
		}
	}

	if len(batch) == 0 {
		return nil
	}
	return s.docs.Apply(ctx, batch)
}

// recomputeLeftUsers is the best-effort pass after a transaction
// write. A failure here leaves a member's status briefly stale; it
// self-heals on the next write touching them, so it is logged and
// swallowed rather than rolling back the committed transaction.
func (s *Store) recomputeLeftUsers(ctx context.Context, groupID string, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}
	if err := s.RecomputeLeftStatus(ctx, groupID, userIDs); err != nil {
		slog.Warn("left-user status recompute failed",
			"group_id", groupID,
			"users", userIDs,
			"error", err,
		)
	}
}

// normalize fills transaction defaults and validates the category.
func (s *Store) normalize(txn *models.Transaction) error {
	if txn.Category == "" {
		txn.Category = models.CategoryExpense
	}
	if !txn.Category.Valid() {
		return fmt.Errorf("unknown category %q", txn.Category)
	}
	if txn.From == "" {
		return fmt.Errorf("transaction payer required")
	}
	if txn.Date.IsZero() {
		txn.Date = s.now().UTC()
	}
	return nil
}
