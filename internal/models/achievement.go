package models

import (
	"time"

	"github.com/google/uuid"
)

// Achievement names. Each is granted at most once per child, enforced by a
// unique (child_id, name) constraint.
const (
	AchievementFirstTask    = "first_task_approved"
	AchievementFirstQuizWin = "first_quiz_win"
)

type Achievement struct {
	ID          uuid.UUID `json:"id"`
	ChildID     uuid.UUID `json:"child_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	BonusCents  int64     `json:"bonus_cents"`
	CreatedAt   time.Time `json:"created_at"`
}
