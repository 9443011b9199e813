package models

import "time"

// MemberStatus is the lifecycle state of a group member.
//
// Transitions: active -> left when departing with a non-zero balance,
// active -> history when departing settled, left -> history once later
// transactions bring the balance back to zero, history -> left again
// when a later correction puts the member back in debt. Only joining
// makes a member active again.
type MemberStatus string

const (
	// StatusActive means the user currently participates in the group.
	StatusActive MemberStatus = "active"

	// StatusLeft means the user departed still owing or being owed
	// money. They must settle before becoming history.
	StatusLeft MemberStatus = "left"

	// StatusHistory means the user departed with a zero balance and is
	// kept only for record display.
	StatusHistory MemberStatus = "history"
)

// GroupMember is the stored shape of a per-group user document.
//
// Balance and Status are owned by the ledger; every other field is
// owned by membership operations.
type GroupMember struct {
	UserID      string       `json:"userId"`
	DisplayName string       `json:"displayName"`
	PhotoURL    string       `json:"photoUrl,omitempty"`
	Status      MemberStatus `json:"status"`

	// Balance is the member's net position in minor units. Positive
	// means the rest of the group owes them. The balances of all
	// members in a group always sum to exactly zero.
	Balance int64 `json:"balance"`

	// LastUpdate is when this member last recorded a transaction.
	LastUpdate time.Time `json:"lastUpdate"`
}

// UserData is the stored per-user document holding the ids of the
// groups the user belongs to.
type UserData struct {
	Groups []string `json:"groups"`
}
