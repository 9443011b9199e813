package models

import "time"

// Category classifies a transaction for display and filtering.
type Category string

const (
	CategoryExpense   Category = "expense"
	CategoryFood      Category = "food"
	CategoryTransport Category = "transport"
	CategoryFuel      Category = "fuel"
	CategoryEvent     Category = "event"
	CategoryBill      Category = "bill"
	CategoryPayment   Category = "payment"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryExpense, CategoryFood, CategoryTransport, CategoryFuel,
		CategoryEvent, CategoryBill, CategoryPayment:
		return true
	}
	return false
}

// Transaction is the stored shape of a transaction document. It is the
// ground truth of who owes what to whom for one event.
type Transaction struct {
	Title    string   `json:"title"`
	Category Category `json:"category"`

	// From is the single payer.
	From string `json:"from"`

	// To maps each beneficiary to the minor-unit amount they owe the
	// payer for this transaction. An entry keyed by the payer itself
	// contributes nothing.
	To map[string]int64 `json:"to"`

	Date time.Time `json:"date"`
}
