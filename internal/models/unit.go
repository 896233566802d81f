package models

import (
	"time"

	"github.com/google/uuid"
)

// RewardableUnit kinds.
const (
	UnitManualTask   = "manual_task"
	UnitAutoTask     = "auto_task"
	UnitQuizSet      = "quiz_set"
	UnitMathSet      = "math_set"
	UnitCreative     = "creative_challenge"
	UnitDailyMission = "daily_mission"
)

// RewardableUnit statuses. approved/rejected/completed/failed/expired are
// terminal and never re-entered.
const (
	UnitPending   = "pending"
	UnitSubmitted = "submitted"
	UnitApproved  = "approved"
	UnitRejected  = "rejected"
	UnitCompleted = "completed"
	UnitFailed    = "failed"
	UnitExpired   = "expired"
)

// Item is one question or problem inside a batched unit. For multiple-choice
// items Correct is the index into Options; for math items Options is empty
// and Correct is the numeric answer.
type Item struct {
	ID          int      `json:"id"`
	Category    string   `json:"category"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// RewardableUnit is one rewardable piece of work owned by a child. Items are
// frozen at creation time so a set cannot be re-randomized mid-attempt.
type RewardableUnit struct {
	ID            uuid.UUID  `json:"id"`
	Kind          string     `json:"kind"`
	ChildID       uuid.UUID  `json:"child_id"`
	ParentID      uuid.UUID  `json:"parent_id"`
	Status        string     `json:"status"`
	RewardCents   int64      `json:"reward_cents"`
	Description   string     `json:"description"`
	Auto          bool       `json:"auto"`
	Items         []Item     `json:"items,omitempty"`
	Submission    string     `json:"submission,omitempty"`
	AnsweredCount int        `json:"answered_count"`
	CorrectCount  int        `json:"correct_count"`
	Progress      int        `json:"progress"`
	Target        int        `json:"target"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Terminal reports whether the unit has reached a final status.
func (u *RewardableUnit) Terminal() bool {
	switch u.Status {
	case UnitApproved, UnitRejected, UnitCompleted, UnitFailed, UnitExpired:
		return true
	}
	return false
}

// Item returns the stored item with the given id, or nil.
func (u *RewardableUnit) Item(itemID int) *Item {
	for i := range u.Items {
		if u.Items[i].ID == itemID {
			return &u.Items[i]
		}
	}
	return nil
}

// ItemResult records one scored answer inside a batched unit.
type ItemResult struct {
	UnitID    uuid.UUID `json:"unit_id"`
	ItemID    int       `json:"item_id"`
	Response  int       `json:"response"`
	Correct   bool      `json:"correct"`
	CreatedAt time.Time `json:"created_at"`
}
