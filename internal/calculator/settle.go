package calculator

import "sort"

// Settlement is one settling payment: From pays To the given amount of
// minor units.
type Settlement struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// ResolveDebts reduces a zero-sum map of net balances to an ordered
// list of settling payments that drives every balance to exactly zero.
//
// Greedy two-pointer merge: users are partitioned into creditors
// (balance > 0) and debtors (balance < 0), each settlement transfers
// min(|creditor|, |debtor|) and advances whichever side reached zero.
// True minimum-transaction netting is NP-hard; this heuristic is a
// deterministic approximation yielding at most n-1 payments for n
// non-zero balances.
//
// The worklists are built in sorted user-id order so the same input
// always produces the same output. Users with a zero balance are
// excluded entirely.
func ResolveDebts(balances map[string]int64) []Settlement {
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var creditors, debtors []string
	remaining := make(map[string]int64, len(balances))
	for _, id := range ids {
		bal := balances[id]
		switch {
		case bal > 0:
			creditors = append(creditors, id)
		case bal < 0:
			debtors = append(debtors, id)
		default:
			continue
		}
		remaining[id] = bal
	}

	settlements := []Settlement{}

	// By the zero-sum invariant both lists exhaust simultaneously.
	currentCreditor, currentDebtor := 0, 0
	for currentCreditor < len(creditors) && currentDebtor < len(debtors) {
		creditor := creditors[currentCreditor]
		debtor := debtors[currentDebtor]

		amount := min(remaining[creditor], -remaining[debtor])

		settlements = append(settlements, Settlement{
			From:   debtor,
			To:     creditor,
			Amount: amount,
		})

		remaining[creditor] -= amount
		remaining[debtor] += amount

		if remaining[creditor] == 0 {
			currentCreditor++
		}
		if remaining[debtor] == 0 {
			currentDebtor++
		}
	}

	return settlements
}
