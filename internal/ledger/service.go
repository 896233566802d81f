package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
	"github.com/kidbank/backend/internal/pgtx"
)

// Store is the minimal account/transaction interface the transfer engine
// needs. Satisfied by *Repository; tests use in-memory mocks.
type Store interface {
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Account, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (int64, error)
	Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (int64, error)
	Append(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Notifier delivers fire-and-forget child notifications.
type Notifier interface {
	Notify(ctx context.Context, childID uuid.UUID, message string)
}

// Service is the balance transfer engine. Every movement is a single
// all-or-nothing unit: debit, credit, and the appended transaction record
// commit together or not at all.
type Service struct {
	db     pgtx.Beginner
	store  Store
	notify Notifier
}

func NewService(db pgtx.Beginner, store Store, notify Notifier) *Service {
	return &Service{db: db, store: store, notify: notify}
}

// GetBalance returns the balance of the owner's account in cents.
func (s *Service) GetBalance(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	acc, err := s.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return acc.BalanceCents, nil
}

// Account returns the owner's account.
func (s *Service) Account(ctx context.Context, ownerID uuid.UUID) (*models.Account, error) {
	return s.store.GetByOwner(ctx, ownerID)
}

// Transfer moves amountCents from one owner's account to another's in its own
// transaction.
func (s *Service) Transfer(ctx context.Context, fromOwner, toOwner uuid.UUID, amountCents int64, description, origin string) (*models.Transaction, error) {
	var t *models.Transaction
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		t, err = s.TransferTx(ctx, tx, fromOwner, toOwner, amountCents, description, origin)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TransferTx performs the debit-check-credit-append sequence inside the
// caller's transaction, so settlement can commit atomically with a state
// transition. Both account rows are locked in deterministic order before the
// balance check; InsufficientFunds leaves the transaction usable so callers
// may continue or roll back.
func (s *Service) TransferTx(ctx context.Context, tx pgx.Tx, fromOwner, toOwner uuid.UUID, amountCents int64, description, origin string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, core.Validationf("transfer amount must be positive, got %d", amountCents)
	}
	if fromOwner == toOwner {
		return nil, core.Validationf("cannot transfer to the same account")
	}
	from, err := s.store.GetByOwner(ctx, fromOwner)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetByOwner(ctx, toOwner)
	if err != nil {
		return nil, err
	}

	// Lock both rows in deterministic order to avoid deadlock between
	// concurrent transfers touching the same pair.
	ids := []uuid.UUID{from.ID, to.ID}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if _, err := s.store.GetForUpdate(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if _, err := s.store.Debit(ctx, tx, from.ID, amountCents); err != nil {
		return nil, err
	}
	if _, err := s.store.Credit(ctx, tx, to.ID, amountCents); err != nil {
		return nil, err
	}
	t := &models.Transaction{
		ID:          uuid.New(),
		AccountID:   from.ID,
		Kind:        models.TxTransfer,
		AmountCents: amountCents,
		Description: description,
		Origin:      origin,
	}
	if err := s.store.Append(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Deposit credits a parent's own account (external money entering the
// system) and records a receipt.
func (s *Service) Deposit(ctx context.Context, ownerID uuid.UUID, amountCents int64, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, core.Validationf("deposit amount must be positive, got %d", amountCents)
	}
	acc, err := s.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	t := &models.Transaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		Kind:        models.TxReceipt,
		AmountCents: amountCents,
		Description: description,
		Origin:      models.OriginDeposit,
	}
	err = pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := s.store.GetForUpdate(ctx, tx, acc.ID); err != nil {
			return err
		}
		if _, err := s.store.Credit(ctx, tx, acc.ID, amountCents); err != nil {
			return err
		}
		return s.store.Append(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Penalize debits the child and credits the parent, succeeding only when the
// child balance covers the amount, then notifies the child.
func (s *Service) Penalize(ctx context.Context, parentID, childID uuid.UUID, amountCents int64, reason string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, core.Validationf("penalty amount must be positive, got %d", amountCents)
	}
	var t *models.Transaction
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		child, err := s.store.GetByOwner(ctx, childID)
		if err != nil {
			return err
		}
		parent, err := s.store.GetByOwner(ctx, parentID)
		if err != nil {
			return err
		}
		ids := []uuid.UUID{child.ID, parent.ID}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		for _, id := range ids {
			if _, err := s.store.GetForUpdate(ctx, tx, id); err != nil {
				return err
			}
		}
		if _, err := s.store.Debit(ctx, tx, child.ID, amountCents); err != nil {
			return err
		}
		if _, err := s.store.Credit(ctx, tx, parent.ID, amountCents); err != nil {
			return err
		}
		t = &models.Transaction{
			ID:          uuid.New(),
			AccountID:   child.ID,
			Kind:        models.TxPenalty,
			AmountCents: amountCents,
			Description: fmt.Sprintf("penalty: %s", reason),
			Origin:      models.OriginManual,
		}
		return s.store.Append(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.Notify(ctx, childID, fmt.Sprintf("You lost %s to a penalty. Reason: %s", FormatCents(amountCents), reason))
	}
	return t, nil
}

// ExternalPayout debits without a matching credit; the money leaves the
// system toward destinationTag.
func (s *Service) ExternalPayout(ctx context.Context, ownerID uuid.UUID, amountCents int64, destinationTag, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, core.Validationf("payout amount must be positive, got %d", amountCents)
	}
	if destinationTag == "" {
		return nil, core.Validationf("payout destination is required")
	}
	var t *models.Transaction
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		acc, err := s.store.GetByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if _, err := s.store.GetForUpdate(ctx, tx, acc.ID); err != nil {
			return err
		}
		if _, err := s.store.Debit(ctx, tx, acc.ID, amountCents); err != nil {
			return err
		}
		if description == "" {
			description = fmt.Sprintf("payout to %s", destinationTag)
		}
		t = &models.Transaction{
			ID:          uuid.New(),
			AccountID:   acc.ID,
			Kind:        models.TxExternalPayout,
			AmountCents: amountCents,
			Description: description,
			Origin:      models.OriginExternal,
		}
		return s.store.Append(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FormatCents renders a cent amount as a currency string for notifications.
func FormatCents(cents int64) string {
	return fmt.Sprintf("R$ %d.%02d", cents/100, cents%100)
}
