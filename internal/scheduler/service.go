// Package scheduler runs the recurring-rule engine: daily allowance grants,
// auto-task materialization, daily quiz generation, and cleanup of stale
// units and expired rules.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/ledger"
	"github.com/kidbank/backend/internal/models"
	"github.com/kidbank/backend/internal/pgtx"
)

// RuleStore is the recurring-rule persistence slice the tick needs.
type RuleStore interface {
	ListActive(ctx context.Context, kind string) ([]*models.RecurringRule, error)
	ClaimDailyGrant(ctx context.Context, tx pgx.Tx, ruleID uuid.UUID, day time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) ([]*models.RecurringRule, error)
}

// UnitStore covers the cleanup sweep over rewardable units.
type UnitStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.RewardableUnit, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	ListStale(ctx context.Context, cutoff, now time.Time) ([]*models.RewardableUnit, error)
}

// UnitCreator materializes scheduled units. Satisfied by *units.Service.
type UnitCreator interface {
	CreateAutoTaskInstance(ctx context.Context, rule *models.RecurringRule, day time.Time) (*models.RewardableUnit, bool, error)
	CreateAutoQuizSet(ctx context.Context, childID uuid.UUID, day time.Time) (*models.RewardableUnit, error)
}

// Transferer is the slice of the transfer engine used for allowance grants.
type Transferer interface {
	TransferTx(ctx context.Context, tx pgx.Tx, fromOwner, toOwner uuid.UUID, amountCents int64, description, origin string) (*models.Transaction, error)
}

// Directory lists the children the daily quiz run covers.
type Directory interface {
	ListAllChildren(ctx context.Context) ([]*models.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, childID uuid.UUID, message string)
}

type Service struct {
	db       pgtx.Beginner
	rules    RuleStore
	units    UnitStore
	creator  UnitCreator
	transfer Transferer
	users    Directory
	notify   Notifier
	staleTTL time.Duration
	log      *slog.Logger
}

func NewService(db pgtx.Beginner, rules RuleStore, units UnitStore, creator UnitCreator,
	transfer Transferer, users Directory, notify Notifier, staleTTL time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db: db, rules: rules, units: units, creator: creator,
		transfer: transfer, users: users, notify: notify, staleTTL: staleTTL, log: log,
	}
}

// RunDailyTick executes one day's worth of scheduled work. Each grant is
// claimed through a per-day uniqueness row before any money moves, so the
// tick can be re-run (or run by overlapping instances) without duplicating a
// single payment or unit. Failures on one rule never stop the rest.
func (s *Service) RunDailyTick(ctx context.Context, today time.Time) error {
	s.log.Info("daily tick started", "day", today.Format("2006-01-02"))
	if err := s.payAllowances(ctx, today); err != nil {
		return err
	}
	if err := s.materializeAutoTasks(ctx, today); err != nil {
		return err
	}
	if err := s.generateDailyQuizzes(ctx, today); err != nil {
		return err
	}
	s.log.Info("daily tick finished", "day", today.Format("2006-01-02"))
	return nil
}

func (s *Service) payAllowances(ctx context.Context, today time.Time) error {
	rules, err := s.rules.ListActive(ctx, models.RuleAllowance)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if !rule.DueOn(today) {
			continue
		}
		paid := false
		err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
			claimed, err := s.rules.ClaimDailyGrant(ctx, tx, rule.ID, today)
			if err != nil {
				return err
			}
			if !claimed {
				return nil
			}
			_, err = s.transfer.TransferTx(ctx, tx, rule.ParentID, rule.ChildID,
				rule.AmountCents, rule.Description, models.OriginAllowance)
			if errors.Is(err, core.ErrInsufficientFunds) {
				// Keep the claim so the grant is skipped for the day
				// rather than retried against an empty account.
				s.log.Warn("allowance skipped, parent balance too low",
					"rule_id", rule.ID, "child_id", rule.ChildID, "amount_cents", rule.AmountCents)
				return nil
			}
			if err != nil {
				return err
			}
			paid = true
			return nil
		})
		if err != nil {
			s.log.Error("allowance grant failed", "rule_id", rule.ID, "error", err)
			continue
		}
		if paid {
			s.notify.Notify(ctx, rule.ChildID,
				"You received your allowance: "+ledger.FormatCents(rule.AmountCents))
		}
	}
	return nil
}

func (s *Service) materializeAutoTasks(ctx context.Context, today time.Time) error {
	rules, err := s.rules.ListActive(ctx, models.RuleAutoTask)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if !rule.DueOn(today) {
			continue
		}
		if _, _, err := s.creator.CreateAutoTaskInstance(ctx, rule, today); err != nil {
			s.log.Error("auto task materialization failed", "rule_id", rule.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) generateDailyQuizzes(ctx context.Context, today time.Time) error {
	children, err := s.users.ListAllChildren(ctx)
	if err != nil {
		return err
	}
	for _, child := range children {
		_, err := s.creator.CreateAutoQuizSet(ctx, child.ID, today)
		switch {
		case err == nil:
		case errors.Is(err, core.ErrInvalidState):
			// Already generated today.
		case errors.Is(err, core.ErrInsufficientFunds):
			s.log.Warn("daily quiz skipped, parent balance too low", "child_id", child.ID)
		default:
			s.log.Error("daily quiz generation failed", "child_id", child.ID, "error", err)
		}
	}
	return nil
}

// Cleanup expires units stuck in a non-terminal state past their TTL or
// their own deadline, and removes recurring rules whose validity window has
// closed. Expired units never settle.
func (s *Service) Cleanup(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.staleTTL)
	stale, err := s.units.ListStale(ctx, cutoff, now)
	if err != nil {
		return err
	}
	expired := 0
	for _, u := range stale {
		changed := false
		err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
			locked, err := s.units.GetForUpdate(ctx, tx, u.ID)
			if err != nil {
				return err
			}
			if locked.Terminal() {
				return nil
			}
			changed = true
			return s.units.UpdateStatus(ctx, tx, u.ID, models.UnitExpired)
		})
		if err != nil {
			s.log.Error("unit expiry failed", "unit_id", u.ID, "error", err)
			continue
		}
		if changed {
			expired++
			s.notify.Notify(ctx, u.ChildID, "The "+u.Kind+" \""+u.Description+"\" expired before it was finished.")
		}
	}

	removed, err := s.rules.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	for _, rule := range removed {
		s.notify.Notify(ctx, rule.ChildID, "The recurring task \""+rule.Description+"\" has ended.")
	}
	if expired > 0 || len(removed) > 0 {
		s.log.Info("cleanup finished", "expired_units", expired, "removed_rules", len(removed))
	}
	return nil
}
