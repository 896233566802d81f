package models

import (
	"time"

	"github.com/google/uuid"
)

// RecurringRule kinds.
const (
	RuleAllowance = "allowance"
	RuleAutoTask  = "auto_task"
)

// RecurringRule is a weekday-scheduled definition acted on by the daily tick.
// Allowance rules transfer directly; auto-task rules instantiate a pending
// task. At most one grant per rule per calendar day (enforced by a uniqueness
// constraint on recurring_grants).
type RecurringRule struct {
	ID          uuid.UUID      `json:"id"`
	Kind        string         `json:"kind"`
	ParentID    uuid.UUID      `json:"parent_id"`
	ChildID     uuid.UUID      `json:"child_id"`
	AmountCents int64          `json:"amount_cents"`
	Description string         `json:"description,omitempty"` // auto-task rules only
	Days        []time.Weekday `json:"days"`
	ValidFrom   *time.Time     `json:"valid_from,omitempty"`
	ValidTo     *time.Time     `json:"valid_to,omitempty"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DueOn reports whether the rule applies on the given day.
func (r *RecurringRule) DueOn(day time.Time) bool {
	if !r.Active {
		return false
	}
	match := false
	for _, d := range r.Days {
		if d == day.Weekday() {
			match = true
			break
		}
	}
	if !match {
		return false
	}
	if r.ValidFrom != nil && day.Before(truncateDay(*r.ValidFrom)) {
		return false
	}
	if r.ValidTo != nil && truncateDay(day).After(truncateDay(*r.ValidTo)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
