package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
)

const ruleColumns = `id, kind, parent_id, child_id, amount_cents, description, days, valid_from, valid_to, active, created_at`

type RecurringRepo struct {
	pool *pgxpool.Pool
}

func NewRecurringRepo(pool *pgxpool.Pool) *RecurringRepo {
	return &RecurringRepo{pool: pool}
}

func (r *RecurringRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *RecurringRepo) Create(ctx context.Context, rule *models.RecurringRule) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO recurring_rules (id, kind, parent_id, child_id, amount_cents, description, days, valid_from, valid_to, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, rule.ID, rule.Kind, rule.ParentID, rule.ChildID, rule.AmountCents, rule.Description,
		daysToInts(rule.Days), rule.ValidFrom, rule.ValidTo, rule.Active).Scan(&rule.CreatedAt)
}

func (r *RecurringRepo) Update(ctx context.Context, rule *models.RecurringRule) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_rules
		SET amount_cents = $2, description = $3, days = $4, valid_from = $5, valid_to = $6, active = $7
		WHERE id = $1
	`, rule.ID, rule.AmountCents, rule.Description, daysToInts(rule.Days), rule.ValidFrom, rule.ValidTo, rule.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundf("recurring rule %s not found", rule.ID)
	}
	return nil
}

func (r *RecurringRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE recurring_rules SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundf("recurring rule %s not found", id)
	}
	return nil
}

func (r *RecurringRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recurring_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundf("recurring rule %s not found", id)
	}
	return nil
}

func (r *RecurringRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RecurringRule, error) {
	return scanRule(r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM recurring_rules WHERE id = $1`, id))
}

func (r *RecurringRepo) ListByParent(ctx context.Context, parentID uuid.UUID, kind string) ([]*models.RecurringRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+` FROM recurring_rules
		WHERE parent_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
	`, parentID, kind)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// ListActive returns every active rule of the kind. Day-of-week and validity
// filtering is the scheduler's business rule, not a query concern.
func (r *RecurringRepo) ListActive(ctx context.Context, kind string) ([]*models.RecurringRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+` FROM recurring_rules WHERE kind = $1 AND active ORDER BY created_at
	`, kind)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// ClaimDailyGrant records that the rule has been acted on for the given day.
// The unique (rule_id, grant_date) constraint makes the claim the idempotency
// guard: claimed=false means another tick already processed this rule today.
func (r *RecurringRepo) ClaimDailyGrant(ctx context.Context, tx pgx.Tx, ruleID uuid.UUID, day time.Time) (claimed bool, err error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO recurring_grants (rule_id, grant_date)
		VALUES ($1, $2)
		ON CONFLICT (rule_id, grant_date) DO NOTHING
	`, ruleID, day.Format("2006-01-02"))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpired removes auto-task rules whose validity window has passed and
// returns what was removed so the caller can notify.
func (r *RecurringRepo) DeleteExpired(ctx context.Context, now time.Time) ([]*models.RecurringRule, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM recurring_rules
		WHERE kind = $1 AND valid_to IS NOT NULL AND valid_to < $2
		RETURNING `+ruleColumns+`
	`, models.RuleAutoTask, now)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func scanRule(row pgx.Row) (*models.RecurringRule, error) {
	var rule models.RecurringRule
	var days []int32
	err := row.Scan(&rule.ID, &rule.Kind, &rule.ParentID, &rule.ChildID, &rule.AmountCents, &rule.Description,
		&days, &rule.ValidFrom, &rule.ValidTo, &rule.Active, &rule.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NotFoundf("recurring rule not found")
	}
	if err != nil {
		return nil, err
	}
	rule.Days = make([]time.Weekday, len(days))
	for i, d := range days {
		rule.Days[i] = time.Weekday(d)
	}
	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]*models.RecurringRule, error) {
	defer rows.Close()
	var list []*models.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rule)
	}
	return list, rows.Err()
}

func daysToInts(days []time.Weekday) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}
