// Package calculator implements the pure arithmetic of the ledger:
// splitting an amount across participants and netting a set of
// balances into settling payments. Everything operates on integer
// minor units; no floating point is involved.
package calculator

import "errors"

// ErrInvalidSplit is returned when a split has a negative amount, no
// participants or a zero total weight. It is rejected before any write
// is attempted.
var ErrInvalidSplit = errors.New("invalid split")

// SplitEven divides amount across participants with no rounding loss.
// The amount%n leftover minor units go one each to the first
// participants in list order, so the result always sums to amount
// exactly. Amounts are non-negative; a refund is expressed by swapping
// payer and beneficiaries, not by a negative split.
func SplitEven(amount int64, participants []string) (map[string]int64, error) {
	n := int64(len(participants))
	if n == 0 || amount < 0 {
		return nil, ErrInvalidSplit
	}

	perPerson := amount / n
	extra := amount % n

	shares := make(map[string]int64, n)
	for i, person := range participants {
		share := perPerson
		if int64(i) < extra {
			share++
		}
		shares[person] = share
	}
	return shares, nil
}

// Weight is one participant's share weight in a ratio split. Weights
// are ordered: the rounding remainder goes to the first entry.
type Weight struct {
	UserID string
	Weight int64
}

// SplitByRatio divides amount in proportion to the given weights.
// Each participant gets floor(amount*weight/totalWeight); whatever
// remains after the floors is added to the first participant, so the
// result always sums to amount exactly.
func SplitByRatio(amount int64, weights []Weight) (map[string]int64, error) {
	if len(weights) == 0 || amount < 0 {
		return nil, ErrInvalidSplit
	}

	reduced := reduceWeights(weights)

	var totalWeight int64
	for _, w := range reduced {
		totalWeight += w.Weight
	}
	if totalWeight == 0 {
		return nil, ErrInvalidSplit
	}

	shares := make(map[string]int64, len(reduced))
	var assigned int64
	for _, w := range reduced {
		share := amount * w.Weight / totalWeight
		shares[w.UserID] = share
		assigned += share
	}

	// Remainder to the first participant.
	shares[reduced[0].UserID] += amount - assigned

	return shares, nil
}

// reduceWeights divides all weights by their gcd. The ratio is
// unchanged but amount*weight is kept well away from overflow.
func reduceWeights(weights []Weight) []Weight {
	values := make([]int64, len(weights))
	for i, w := range weights {
		values[i] = w.Weight
	}

	divisor := gcdAll(values)
	if divisor <= 1 {
		return weights
	}

	reduced := make([]Weight, len(weights))
	for i, w := range weights {
		reduced[i] = Weight{UserID: w.UserID, Weight: w.Weight / divisor}
	}
	return reduced
}

func gcd(a, b int64) int64 {
	if b == 0 {
		return a
	}
	return gcd(b, a%b)
}

func gcdAll(values []int64) int64 {
	var acc int64
	for _, v := range values {
		if v < 0 {
			v = -v
		}
		acc = gcd(acc, v)
	}
	return acc
}
