package models

import (
	"time"

	"github.com/setil-app/backend/internal/money"
)

// Group is the stored shape of a group document.
//
// OwnerID must always reference a currently active member; ownership
// transfers automatically when the owner leaves and another active
// member exists, otherwise the group is deleted.
type Group struct {
	// Name is the display name of the group (e.g. "Flat 4b", "Ski Trip").
	Name string `json:"name"`

	// Description is an optional free-text description.
	Description string `json:"description,omitempty"`

	// Currency is fixed at group creation. Every amount stored under
	// this group is in this currency's minor units.
	Currency money.Currency `json:"currency"`

	// OwnerID is the user id of the group owner.
	OwnerID string `json:"ownerId"`

	// LastUpdate is bumped whenever a transaction touches the group.
	LastUpdate time.Time `json:"lastUpdate"`
}

// Invite is an ephemeral invite document under a group. Expired
// invites are garbage-collected lazily.
type Invite struct {
	Expiry time.Time `json:"expiry"`
}
