package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
)

const unitColumns = `id, kind, child_id, parent_id, status, reward_cents, description, auto,
	items, submission, answered_count, correct_count, progress, target, dedup_key, expires_at, created_at, updated_at`

type UnitRepo struct {
	pool *pgxpool.Pool
}

func NewUnitRepo(pool *pgxpool.Pool) *UnitRepo {
	return &UnitRepo{pool: pool}
}

func (r *UnitRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a unit. dedupKey may be empty; when set, a duplicate key
// means an equivalent unit already exists today and Create reports
// inserted=false instead of failing (the storage-level idempotency guard).
func (r *UnitRepo) Create(ctx context.Context, tx pgx.Tx, u *models.RewardableUnit, dedupKey string) (inserted bool, err error) {
	items, err := json.Marshal(u.Items)
	if err != nil {
		return false, err
	}
	var key *string
	if dedupKey != "" {
		key = &dedupKey
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO rewardable_units
			(id, kind, child_id, parent_id, status, reward_cents, description, auto, items, target, dedup_key, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING created_at, updated_at
	`, u.ID, u.Kind, u.ChildID, u.ParentID, u.Status, u.RewardCents, u.Description, u.Auto, items, u.Target, key, u.ExpiresAt).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UnitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RewardableUnit, error) {
	return r.scanUnit(r.pool.QueryRow(ctx, `SELECT `+unitColumns+` FROM rewardable_units WHERE id = $1`, id))
}

// GetForUpdate locks the unit row for the duration of a state transition.
func (r *UnitRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.RewardableUnit, error) {
	return r.scanUnit(tx.QueryRow(ctx, `SELECT `+unitColumns+` FROM rewardable_units WHERE id = $1 FOR UPDATE`, id))
}

func (r *UnitRepo) scanUnit(row pgx.Row) (*models.RewardableUnit, error) {
	var u models.RewardableUnit
	var items []byte
	var dedup *string
	err := row.Scan(&u.ID, &u.Kind, &u.ChildID, &u.ParentID, &u.Status, &u.RewardCents, &u.Description, &u.Auto,
		&items, &u.Submission, &u.AnsweredCount, &u.CorrectCount, &u.Progress, &u.Target, &dedup, &u.ExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NotFoundf("unit not found")
	}
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &u.Items); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func (r *UnitRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE rewardable_units SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// SetSubmission records the child's payload and moves the unit to submitted.
func (r *UnitRepo) SetSubmission(ctx context.Context, tx pgx.Tx, id uuid.UUID, payload string) error {
	_, err := tx.Exec(ctx, `
		UPDATE rewardable_units SET submission = $2, status = $3, updated_at = now() WHERE id = $1
	`, id, payload, models.UnitSubmitted)
	return err
}

// InsertAnswer records one scored item result. A duplicate (unit, item) pair
// means the item was already answered.
func (r *UnitRepo) InsertAnswer(ctx context.Context, tx pgx.Tx, res *models.ItemResult) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO unit_answers (unit_id, item_id, response, correct)
		VALUES ($1, $2, $3, $4)
	`, res.UnitID, res.ItemID, res.Response, res.Correct)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return core.InvalidStatef("item %d already answered", res.ItemID)
	}
	return err
}

// UpdateCounts persists the recomputed aggregate progress.
func (r *UnitRepo) UpdateCounts(ctx context.Context, tx pgx.Tx, id uuid.UUID, answered, correct int) error {
	_, err := tx.Exec(ctx, `
		UPDATE rewardable_units SET answered_count = $2, correct_count = $3, updated_at = now() WHERE id = $1
	`, id, answered, correct)
	return err
}

// UpdateProgress persists mission progress and status together.
func (r *UnitRepo) UpdateProgress(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress int, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE rewardable_units SET progress = $2, status = $3, updated_at = now() WHERE id = $1
	`, id, progress, status)
	return err
}

// HasOpenSet reports whether the child already has a pending set of the given
// kind (manual sets are limited to one open at a time).
func (r *UnitRepo) HasOpenSet(ctx context.Context, childID uuid.UUID, kind string, auto bool) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rewardable_units
			WHERE child_id = $1 AND kind = $2 AND auto = $3 AND status = $4
		)
	`, childID, kind, auto, models.UnitPending).Scan(&exists)
	return exists, err
}

// ExistsOn reports whether a unit with the same description was already
// created for the child on the given day (the auto-task duplicate check).
// The day comes from the caller so it agrees with the tick being run.
func (r *UnitRepo) ExistsOn(ctx context.Context, tx pgx.Tx, childID uuid.UUID, kind, description string, day time.Time) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rewardable_units
			WHERE child_id = $1 AND kind = $2 AND description = $3 AND created_at::date = $4::date
		)
	`, childID, kind, description, day).Scan(&exists)
	return exists, err
}

func (r *UnitRepo) ListByChild(ctx context.Context, childID uuid.UUID, kind, status string) ([]*models.RewardableUnit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+unitColumns+` FROM rewardable_units
		WHERE child_id = $1 AND ($2 = '' OR kind = $2) AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
	`, childID, kind, status)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *UnitRepo) ListByParent(ctx context.Context, parentID uuid.UUID, kind, status string) ([]*models.RewardableUnit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+unitColumns+` FROM rewardable_units
		WHERE parent_id = $1 AND ($2 = '' OR kind = $2) AND ($3 = '' OR status = $3)
		ORDER BY status, created_at DESC
	`, parentID, kind, status)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// ListStale returns non-terminal units created before the cutoff or already
// past their expiry timestamp. Used by the cleanup pass.
func (r *UnitRepo) ListStale(ctx context.Context, cutoff, now time.Time) ([]*models.RewardableUnit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+unitColumns+` FROM rewardable_units
		WHERE status IN ($1, $2)
		AND (created_at < $3 OR (expires_at IS NOT NULL AND expires_at < $4))
	`, models.UnitPending, models.UnitSubmitted, cutoff, now)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *UnitRepo) collect(rows pgx.Rows) ([]*models.RewardableUnit, error) {
	defer rows.Close()
	var list []*models.RewardableUnit
	for rows.Next() {
		u, err := r.scanUnit(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
