package calculator

import (
	"reflect"
	"testing"
)

// applySettlements plays a settlement plan back against the balances
// and returns the result.
func applySettlements(balances map[string]int64, settlements []Settlement) map[string]int64 {
	result := make(map[string]int64, len(balances))
	for id, bal := range balances {
		result[id] = bal
	}
	for _, s := range settlements {
		result[s.From] += s.Amount
		result[s.To] -= s.Amount
	}
	return result
}

func TestResolveDebts(t *testing.T) {
	tests := []struct {
		name     string
		balances map[string]int64
		want     []Settlement
	}{
		{
			name:     "one creditor two debtors",
			balances: map[string]int64{"alice": 500, "bob": -200, "carol": -300},
			want: []Settlement{
				{From: "bob", To: "alice", Amount: 200},
				{From: "carol", To: "alice", Amount: 300},
			},
		},
		{
			name:     "single pair",
			balances: map[string]int64{"alice": 1000, "bob": -1000},
			want: []Settlement{
				{From: "bob", To: "alice", Amount: 1000},
			},
		},
		{
			name:     "zero balances are excluded",
			balances: map[string]int64{"alice": 100, "bob": 0, "carol": -100},
			want: []Settlement{
				{From: "carol", To: "alice", Amount: 100},
			},
		},
		{
			name:     "debtor larger than first creditor",
			balances: map[string]int64{"alice": 100, "bob": 200, "carol": -300},
			want: []Settlement{
				{From: "carol", To: "alice", Amount: 100},
				{From: "carol", To: "bob", Amount: 200},
			},
		},
		{
			name:     "all settled",
			balances: map[string]int64{"alice": 0, "bob": 0},
			want:     []Settlement{},
		},
		{
			name:     "empty",
			balances: map[string]int64{},
			want:     []Settlement{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDebts(tt.balances)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveDebts() = %v, want %v", got, tt.want)
			}

			after := applySettlements(tt.balances, got)
			for id, bal := range after {
				if bal != 0 {
					t.Errorf("balance[%s] = %d after settling, want 0", id, bal)
				}
			}
		})
	}
}

func TestResolveDebtsDeterministic(t *testing.T) {
	balances := map[string]int64{
		"dave": -150, "alice": 400, "carol": -250, "bob": 0,
	}

	first := ResolveDebts(balances)
	for i := 0; i < 20; i++ {
		if got := ResolveDebts(balances); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, first run produced %v", i, got, first)
		}
	}
}

func TestResolveDebtsPaymentBound(t *testing.T) {
	// At most n-1 payments for n non-zero balances.
	balances := map[string]int64{
		"a": 700, "b": -100, "c": -200, "d": -400,
		"e": 300, "f": -300, "g": 0,
	}

	settlements := ResolveDebts(balances)
	nonZero := 0
	for _, bal := range balances {
		if bal != 0 {
			nonZero++
		}
	}
	if len(settlements) > nonZero-1 {
		t.Errorf("%d settlements for %d non-zero balances, want at most %d",
			len(settlements), nonZero, nonZero-1)
	}

	after := applySettlements(balances, settlements)
	for id, bal := range after {
		if bal != 0 {
			t.Errorf("balance[%s] = %d after settling, want 0", id, bal)
		}
	}
}
