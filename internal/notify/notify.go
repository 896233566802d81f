// Package notify is the notification sink: fire-and-forget messages for
// children. Insert failures are logged and never propagate, so a broken sink
// cannot block settlement.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kidbank/backend/internal/models"
)

// Inserter persists notifications. Satisfied by *repository.NotificationRepo.
type Inserter interface {
	Insert(ctx context.Context, n *models.Notification) error
}

type Sink struct {
	repo Inserter
	log  *slog.Logger
}

func NewSink(repo Inserter, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{repo: repo, log: log}
}

// Notify records a message for the child. Errors are logged, not returned.
func (s *Sink) Notify(ctx context.Context, childID uuid.UUID, message string) {
	n := &models.Notification{ID: uuid.New(), ChildID: childID, Message: message}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.log.Error("notification insert failed", "child_id", childID, "error", err)
	}
}
