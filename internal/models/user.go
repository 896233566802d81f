package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Role         string     `json:"role"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"` // set for children
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}
