package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidbank/backend/internal/models"
)

type AchievementRepo struct {
	pool *pgxpool.Pool
}

func NewAchievementRepo(pool *pgxpool.Pool) *AchievementRepo {
	return &AchievementRepo{pool: pool}
}

// InsertIfAbsent grants the achievement unless the child already holds one of
// that name. The unique (child_id, name) constraint is the once-per-child
// guarantee; inserted=false means it was already granted.
func (r *AchievementRepo) InsertIfAbsent(ctx context.Context, tx pgx.Tx, a *models.Achievement) (inserted bool, err error) {
	err = tx.QueryRow(ctx, `
		INSERT INTO achievements (id, child_id, name, description, bonus_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (child_id, name) DO NOTHING
		RETURNING created_at
	`, a.ID, a.ChildID, a.Name, a.Description, a.BonusCents).Scan(&a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *AchievementRepo) ListByChild(ctx context.Context, childID uuid.UUID) ([]*models.Achievement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, child_id, name, description, bonus_cents, created_at
		FROM achievements WHERE child_id = $1
		ORDER BY created_at DESC
	`, childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.ChildID, &a.Name, &a.Description, &a.BonusCents, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
