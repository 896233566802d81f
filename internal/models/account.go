package models

import (
	"time"

	"github.com/google/uuid"
)

// Account owner kinds.
const (
	OwnerParent = "parent"
	OwnerChild  = "child"
)

// Account is a ledger account. One per parent, one per child; the balance is
// mutated only by the transfer engine and never goes negative.
type Account struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	OwnerKind    string    `json:"owner_kind"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
