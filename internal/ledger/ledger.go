// Package ledger holds the zero-sum balance arithmetic and the member
// lifecycle rules.
//
// A transaction's effect on balances is a set of relative deltas, one
// per touched member. Applying the effect of a transaction with every
// amount negated exactly reverses a prior application; updates and
// deletes are built from this inverse property.
package ledger

import "github.com/setil-app/backend/internal/models"

// Effect computes the balance deltas of a transaction: the payer gains
// the total owed by the other beneficiaries, each beneficiary loses
// the amount they owe. Entries where the beneficiary is the payer are
// ignored. The returned deltas always sum to zero.
func Effect(from string, to map[string]int64) map[string]int64 {
	deltas := make(map[string]int64, len(to)+1)

	var total int64
	for userID, amount := range to {
		if userID == from {
			continue
		}
		deltas[userID] -= amount
		total += amount
	}

	if len(deltas) == 0 {
		return deltas
	}

	deltas[from] += total
	return deltas
}

// Invert negates every amount of a transaction's beneficiary map.
// Applying Effect(from, Invert(to)) reverses Effect(from, to).
func Invert(to map[string]int64) map[string]int64 {
	inverted := make(map[string]int64, len(to))
	for userID, amount := range to {
		inverted[userID] = -amount
	}
	return inverted
}

// LeftStatus decides the stored status of a member who has departed or
// might have: history once their balance is zero, left otherwise.
//
// An active member is untouched unless force is set (the member is
// explicitly departing). The second return is false when the stored
// status is already correct and no write is needed.
func LeftStatus(current models.MemberStatus, balance int64, force bool) (models.MemberStatus, bool) {
	if !force && current == models.StatusActive {
		return "", false
	}

	status := models.StatusLeft
	if balance == 0 {
		status = models.StatusHistory
	}

	if current == status {
		return "", false
	}
	return status, true
}
