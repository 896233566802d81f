package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a user inside the caller's transaction so registration can
// create the user and their ledger account together.
func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, u *models.User) error {
	return tx.QueryRow(ctx, `
		INSERT INTO users (id, role, parent_id, name, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.Role, u.ParentID, u.Name, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT id, role, parent_id, name, email, password_hash, created_at
		FROM users WHERE id = $1
	`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT id, role, parent_id, name, email, password_hash, created_at
		FROM users WHERE email = $1
	`, email))
}

// ListChildren returns the children of a parent, oldest first.
func (r *UserRepo) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, role, parent_id, name, email, password_hash, created_at
		FROM users WHERE parent_id = $1 AND role = $2
		ORDER BY created_at
	`, parentID, models.RoleChild)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// ListAllChildren returns every child in the system (used by the daily tick
// to generate auto quiz sets).
func (r *UserRepo) ListAllChildren(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, role, parent_id, name, email, password_hash, created_at
		FROM users WHERE role = $1 ORDER BY created_at
	`, models.RoleChild)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Role, &u.ParentID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NotFoundf("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
