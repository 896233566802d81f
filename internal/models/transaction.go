package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds.
const (
	TxTransfer       = "transfer"
	TxPenalty        = "penalty"
	TxExternalPayout = "external_payout"
	TxReceipt        = "receipt"
)

// Transaction origin tags identify which subsystem produced the movement.
const (
	OriginTask          = "task"
	OriginAllowance     = "allowance"
	OriginQuiz          = "quiz"
	OriginMathChallenge = "math_challenge"
	OriginCreative      = "creative_challenge"
	OriginAchievement   = "achievement"
	OriginDailyMission  = "daily_mission"
	OriginDeposit       = "deposit"
	OriginManual        = "manual"
	OriginExternal      = "external"
)

// Transaction is one immutable balance movement. Rows are append-only: the
// audit trail is never updated or deleted.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	Origin      string    `json:"origin"`
	CreatedAt   time.Time `json:"created_at"`
}
