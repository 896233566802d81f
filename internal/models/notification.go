package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a fire-and-forget message for a child. Write-only from the
// core's perspective; delivery failures are logged, never surfaced.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	ChildID   uuid.UUID `json:"child_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
