package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateAccount inserts a zero-history account inside the caller's
// transaction (registration creates the owner row and the account together).
func (r *Repository) CreateAccount(ctx context.Context, tx pgx.Tx, a *models.Account) error {
	return tx.QueryRow(ctx, `
		INSERT INTO accounts (id, owner_id, owner_kind, balance_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, a.ID, a.OwnerID, a.OwnerKind, a.BalanceCents).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *Repository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, owner_kind, balance_cents, created_at, updated_at
		FROM accounts WHERE owner_id = $1
	`, ownerID).Scan(&a.ID, &a.OwnerID, &a.OwnerKind, &a.BalanceCents, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NotFoundf("account for owner %s not found", ownerID)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetForUpdate locks the account row. Call within a transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := tx.QueryRow(ctx, `
		SELECT id, owner_id, owner_kind, balance_cents, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`, id).Scan(&a.ID, &a.OwnerID, &a.OwnerKind, &a.BalanceCents, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NotFoundf("account %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Debit atomically deducts amount if the balance covers it. A zero-row update
// is not a SQL error, so an insufficient balance never aborts the enclosing
// transaction.
func (r *Repository) Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance_cents = balance_cents - $1, updated_at = now()
		WHERE id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amountCents, id).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, core.ErrInsufficientFunds
	}
	return newBalance, err
}

func (r *Repository) Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance_cents
	`, amountCents, id).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, core.NotFoundf("account %s not found", id)
	}
	return newBalance, err
}

// Append inserts an immutable transaction record.
func (r *Repository) Append(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, kind, amount_cents, description, origin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.AccountID, t.Kind, t.AmountCents, t.Description, t.Origin).Scan(&t.CreatedAt)
}

// ListByAccount returns the newest transactions for an account. origin may be
// empty to list all origins.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID, origin string, limit int) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, kind, amount_cents, description, origin, created_at
		FROM transactions
		WHERE account_id = $1 AND ($2 = '' OR origin = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, accountID, origin, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.AmountCents, &t.Description, &t.Origin, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
