// Package units is the lifecycle state machine for every rewardable unit of
// work: manual and auto tasks, quiz and math challenge sets, creative
// challenges, and daily missions. Qualifying transitions settle through the
// transfer engine inside the same transaction, so a failed payout never
// leaves a unit half-settled.
package units

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/ledger"
	"github.com/kidbank/backend/internal/models"
	"github.com/kidbank/backend/internal/pgtx"
	"github.com/kidbank/backend/internal/questions"
	"github.com/kidbank/backend/internal/reward"
)

// Store is the unit persistence interface the state machine needs. Satisfied
// by *repository.UnitRepo.
type Store interface {
	Create(ctx context.Context, tx pgx.Tx, u *models.RewardableUnit, dedupKey string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.RewardableUnit, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.RewardableUnit, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	SetSubmission(ctx context.Context, tx pgx.Tx, id uuid.UUID, payload string) error
	InsertAnswer(ctx context.Context, tx pgx.Tx, res *models.ItemResult) error
	UpdateCounts(ctx context.Context, tx pgx.Tx, id uuid.UUID, answered, correct int) error
	UpdateProgress(ctx context.Context, tx pgx.Tx, id uuid.UUID, progress int, status string) error
	HasOpenSet(ctx context.Context, childID uuid.UUID, kind string, auto bool) (bool, error)
	ExistsOn(ctx context.Context, tx pgx.Tx, childID uuid.UUID, kind, description string, day time.Time) (bool, error)
}

// Transferer is the slice of the transfer engine used for settlement.
type Transferer interface {
	TransferTx(ctx context.Context, tx pgx.Tx, fromOwner, toOwner uuid.UUID, amountCents int64, description, origin string) (*models.Transaction, error)
	GetBalance(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// AchievementStore grants one-shot achievements.
type AchievementStore interface {
	InsertIfAbsent(ctx context.Context, tx pgx.Tx, a *models.Achievement) (bool, error)
}

// Directory resolves users for ownership checks.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier delivers fire-and-forget child notifications.
type Notifier interface {
	Notify(ctx context.Context, childID uuid.UUID, message string)
}

type Service struct {
	db           pgtx.Beginner
	units        Store
	ledger       Transferer
	achievements AchievementStore
	users        Directory
	bank         questions.Provider
	math         *questions.MathGenerator
	notify       Notifier
	policy       reward.Policy
	log          *slog.Logger
}

func NewService(db pgtx.Beginner, units Store, transfer Transferer, achievements AchievementStore, users Directory,
	bank questions.Provider, math *questions.MathGenerator, notify Notifier, policy reward.Policy, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db: db, units: units, ledger: transfer, achievements: achievements, users: users,
		bank: bank, math: math, notify: notify, policy: policy, log: log,
	}
}

// AnswerResult is returned to the child after scoring one item.
type AnswerResult struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
	Status      string `json:"status"`
	RewardCents int64  `json:"reward_cents"`
}

// childOf verifies the child exists and belongs to the parent.
func (s *Service) childOf(ctx context.Context, parentID, childID uuid.UUID) (*models.User, error) {
	child, err := s.users.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.Role != models.RoleChild || child.ParentID == nil || *child.ParentID != parentID {
		return nil, core.Forbiddenf("child %s does not belong to this parent", childID)
	}
	return child, nil
}

// CreateManualTask persists a parent-assigned chore in pending.
func (s *Service) CreateManualTask(ctx context.Context, parentID, childID uuid.UUID, description string, rewardCents int64) (*models.RewardableUnit, error) {
	if description == "" {
		return nil, core.Validationf("task description is required")
	}
	if rewardCents <= 0 {
		return nil, core.Validationf("task reward must be positive")
	}
	if _, err := s.childOf(ctx, parentID, childID); err != nil {
		return nil, err
	}
	u := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitManualTask, ChildID: childID, ParentID: parentID,
		Status: models.UnitPending, RewardCents: rewardCents, Description: description,
	}
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		_, err := s.units.Create(ctx, tx, u, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateAutoTaskInstance materializes one pending task from an auto-task
// rule, deduplicated per child, description, and day.
func (s *Service) CreateAutoTaskInstance(ctx context.Context, rule *models.RecurringRule, day time.Time) (*models.RewardableUnit, bool, error) {
	u := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitAutoTask, ChildID: rule.ChildID, ParentID: rule.ParentID,
		Status: models.UnitPending, RewardCents: rule.AmountCents, Description: rule.Description, Auto: true,
	}
	var inserted bool
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		exists, err := s.units.ExistsOn(ctx, tx, rule.ChildID, models.UnitAutoTask, rule.Description, day)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		key := fmt.Sprintf("auto_task:%s:%s:%s", rule.ID, rule.Description, day.Format("2006-01-02"))
		inserted, err = s.units.Create(ctx, tx, u, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if inserted {
		s.notify.Notify(ctx, rule.ChildID, fmt.Sprintf("New task for today: %s (%s)", rule.Description, ledger.FormatCents(rule.AmountCents)))
	}
	return u, inserted, nil
}

// CreateQuizSet builds a manual multiple-choice set. The question list is
// generated and frozen at creation so it cannot be re-randomized
// mid-attempt; only one manual set may be open per child.
func (s *Service) CreateQuizSet(ctx context.Context, parentID, childID uuid.UUID, counts map[string]int, rewardCents int64) (*models.RewardableUnit, error) {
	total := 0
	for category, n := range counts {
		switch category {
		case questions.CategoryFinancial, questions.CategorySpelling, questions.CategoryScience:
		default:
			return nil, core.Validationf("unknown question category %q", category)
		}
		if n < 0 {
			return nil, core.Validationf("question counts must not be negative")
		}
		total += n
	}
	if total < 1 {
		return nil, core.Validationf("a quiz set needs at least one question")
	}
	if rewardCents <= 0 {
		return nil, core.Validationf("quiz reward must be positive")
	}
	if _, err := s.childOf(ctx, parentID, childID); err != nil {
		return nil, err
	}
	balance, err := s.ledger.GetBalance(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if balance < rewardCents {
		return nil, core.InsufficientFundsf("parent balance does not cover the quiz reward")
	}
	open, err := s.units.HasOpenSet(ctx, childID, models.UnitQuizSet, false)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, core.InvalidStatef("child already has a pending quiz set")
	}

	var items []models.Item
	for _, category := range []string{questions.CategoryFinancial, questions.CategorySpelling, questions.CategoryScience} {
		n := counts[category]
		if n == 0 {
			continue
		}
		qs, err := s.bank.Questions(ctx, category, n)
		if err != nil {
			return nil, err
		}
		items = append(items, qs...)
	}
	numberItems(items)

	u := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitQuizSet, ChildID: childID, ParentID: parentID,
		Status: models.UnitPending, RewardCents: rewardCents, Description: "quiz set", Items: items,
	}
	err = pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		_, err := s.units.Create(ctx, tx, u, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, childID, fmt.Sprintf("A new quiz with %d questions is waiting for you!", len(items)))
	return u, nil
}

// CreateAutoQuizSet builds the daily auto-generated set: five questions from
// each bank category plus five math problems, rewarded by the partial-credit
// formula. At most one per child per day.
func (s *Service) CreateAutoQuizSet(ctx context.Context, childID uuid.UUID, day time.Time) (*models.RewardableUnit, error) {
	child, err := s.users.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.Role != models.RoleChild || child.ParentID == nil {
		return nil, core.Validationf("auto quiz sets are created for children only")
	}
	parentID := *child.ParentID
	balance, err := s.ledger.GetBalance(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if balance < s.policy.AutoQuizCapCents {
		return nil, core.InsufficientFundsf("parent balance does not cover the daily quiz cap")
	}

	var items []models.Item
	for _, category := range []string{questions.CategoryFinancial, questions.CategorySpelling, questions.CategoryScience} {
		qs, err := s.bank.Questions(ctx, category, 5)
		if err != nil {
			return nil, err
		}
		items = append(items, qs...)
	}
	for i := 0; i < 5; i++ {
		item, err := s.math.Problem([]string{"add", "sub", "mul", "div"}[i%4])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	numberItems(items)

	u := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitQuizSet, ChildID: childID, ParentID: parentID,
		Status: models.UnitPending, RewardCents: s.policy.AutoQuizCapCents, Description: "daily quiz", Auto: true, Items: items,
	}
	var inserted bool
	err = pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		inserted, err = s.units.Create(ctx, tx, u, fmt.Sprintf("auto_quiz:%s:%s", childID, day.Format("2006-01-02")))
		return err
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, core.InvalidStatef("auto quiz set already exists for today")
	}
	s.notify.Notify(ctx, childID, "Your daily quiz is ready!")
	return u, nil
}

// CreateMathSet builds a math challenge set from a preset model, one per
// child per day, paid only when every problem is solved correctly.
func (s *Service) CreateMathSet(ctx context.Context, parentID, childID uuid.UUID, modelID string, rewardCents int64) (*models.RewardableUnit, error) {
	model, ok := questions.MathModels[modelID]
	if !ok {
		return nil, core.Validationf("unknown math set model %q", modelID)
	}
	if rewardCents <= 0 {
		return nil, core.Validationf("math set reward must be positive")
	}
	if _, err := s.childOf(ctx, parentID, childID); err != nil {
		return nil, err
	}
	balance, err := s.ledger.GetBalance(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if balance < rewardCents {
		return nil, core.InsufficientFundsf("parent balance does not cover the math set reward")
	}

	items, err := s.math.Set(model)
	if err != nil {
		return nil, err
	}
	numberItems(items)

	u := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitMathSet, ChildID: childID, ParentID: parentID,
		Status: models.UnitPending, RewardCents: rewardCents, Description: model.Name, Items: items,
	}
	var inserted bool
	err = pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		inserted, err = s.units.Create(ctx, tx, u, fmt.Sprintf("math_set:%s:%s", childID, time.Now().Format("2006-01-02")))
		return err
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, core.InvalidStatef("child already has a math set for today")
	}
	return u, nil
}

// CreateCreative persists a free-form challenge requiring manual approval.
func (s *Service) CreateCreative(ctx context.Context, parentID, childID uuid.UUID, description string, rewardCents int64) (*models.RewardableUnit, error) {
	if description == "" {
		return nil, core.Validationf("challenge description is required")
	}
	if rewardCents <= 0 {
		return nil, core.Validationf("challenge reward must be positive")
	}
	if _, err := s.childOf(ctx, parentID, childID); err != nil {
		return nil, err
	}
	u := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitCreative, ChildID: childID, ParentID: parentID,
		Status: models.UnitPending, RewardCents: rewardCents, Description: description,
	}
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		_, err := s.units.Create(ctx, tx, u, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, childID, fmt.Sprintf("New creative challenge: %s", description))
	return u, nil
}

// Mission types.
var missionTypes = map[string]bool{
	"tasks":             true,
	"good_deed":         true,
	"consecutive_tasks": true,
	"challenges":        true,
}

// CreateDailyMissions creates one goal-counter mission per selected day,
// expiring at the end of each day. Duplicate (child, type, day) triples are
// skipped by the storage constraint.
func (s *Service) CreateDailyMissions(ctx context.Context, parentID, childID uuid.UUID, missionType string, target int, rewardCents int64, days []time.Time) (int, error) {
	if !missionTypes[missionType] {
		return 0, core.Validationf("unknown mission type %q", missionType)
	}
	if target < 1 {
		return 0, core.Validationf("mission target must be at least 1")
	}
	if rewardCents <= 0 {
		return 0, core.Validationf("mission reward must be positive")
	}
	if len(days) == 0 || len(days) > 15 {
		return 0, core.Validationf("select between 1 and 15 days")
	}
	if _, err := s.childOf(ctx, parentID, childID); err != nil {
		return 0, err
	}
	created := 0
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, day := range days {
			expires := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
			u := &models.RewardableUnit{
				ID: uuid.New(), Kind: models.UnitDailyMission, ChildID: childID, ParentID: parentID,
				Status: models.UnitPending, RewardCents: rewardCents, Description: missionType,
				Target: target, ExpiresAt: &expires,
			}
			key := fmt.Sprintf("mission:%s:%s:%s", childID, missionType, day.Format("2006-01-02"))
			inserted, err := s.units.Create(ctx, tx, u, key)
			if err != nil {
				return err
			}
			if inserted {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// Submit records a child's completion claim for a manual/auto task or the
// submission payload for a creative challenge, moving pending to submitted.
func (s *Service) Submit(ctx context.Context, unitID, childID uuid.UUID, payload string) error {
	var u *models.RewardableUnit
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		u, err = s.units.GetForUpdate(ctx, tx, unitID)
		if err != nil {
			return err
		}
		switch u.Kind {
		case models.UnitManualTask, models.UnitAutoTask, models.UnitCreative:
		default:
			return core.InvalidStatef("%s units are not submitted, they are answered", u.Kind)
		}
		if u.ChildID != childID {
			return core.Forbiddenf("unit does not belong to this child")
		}
		if u.Status != models.UnitPending {
			return core.InvalidStatef("unit is %s, only pending units can be submitted", u.Status)
		}
		if u.Kind == models.UnitCreative && payload == "" {
			return core.Validationf("a creative challenge submission needs text or an attachment reference")
		}
		return s.units.SetSubmission(ctx, tx, unitID, payload)
	})
	if err != nil {
		return err
	}
	if u.Kind == models.UnitCreative {
		s.notify.Notify(ctx, childID, fmt.Sprintf("You sent in your work for %q. Waiting for approval.", u.Description))
	}
	return nil
}

// Answer scores one item of a quiz or math set and recomputes aggregate
// progress. When the last item lands, the gating rules decide the payout and
// the unit transitions to completed or failed in the same transaction as the
// transfer. An unpayable reward rolls everything back — including this
// answer — so the attempt can be retried once funds are available.
func (s *Service) Answer(ctx context.Context, unitID, childID uuid.UUID, itemID, response int) (*AnswerResult, error) {
	var res AnswerResult
	var finishedUnit *models.RewardableUnit
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		u, err := s.units.GetForUpdate(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if u.ChildID != childID {
			return core.Forbiddenf("unit does not belong to this child")
		}
		switch u.Kind {
		case models.UnitQuizSet, models.UnitMathSet:
		default:
			return core.InvalidStatef("%s units are not answerable", u.Kind)
		}
		if u.Terminal() {
			return core.InvalidStatef("unit is already %s", u.Status)
		}
		item := u.Item(itemID)
		if item == nil {
			return core.NotFoundf("item %d not found in unit", itemID)
		}

		correct := response == item.Correct
		if err := s.units.InsertAnswer(ctx, tx, &models.ItemResult{
			UnitID: unitID, ItemID: itemID, Response: response, Correct: correct,
		}); err != nil {
			return err
		}
		answered := u.AnsweredCount + 1
		correctCount := u.CorrectCount
		if correct {
			correctCount++
		}
		if err := s.units.UpdateCounts(ctx, tx, unitID, answered, correctCount); err != nil {
			return err
		}
		res = AnswerResult{Correct: correct, Explanation: item.Explanation, Status: u.Status}
		if answered < len(u.Items) {
			return nil
		}

		// Last answer: settle.
		outcome := s.policy.Evaluate(u.Kind, u.Auto, correctCount, len(u.Items), u.RewardCents)
		origin := models.OriginQuiz
		if u.Kind == models.UnitMathSet {
			origin = models.OriginMathChallenge
		}
		status := models.UnitFailed
		if correctCount == len(u.Items) || (u.Auto && outcome.Pay) {
			status = models.UnitCompleted
		}
		if outcome.Pay {
			if _, err := s.ledger.TransferTx(ctx, tx, u.ParentID, u.ChildID, outcome.AmountCents,
				fmt.Sprintf("reward for %s", u.Description), origin); err != nil {
				return err
			}
			res.RewardCents = outcome.AmountCents
		}
		if err := s.units.UpdateStatus(ctx, tx, unitID, status); err != nil {
			return err
		}
		res.Status = status
		if status == models.UnitCompleted && !u.Auto {
			if err := s.grantAchievement(ctx, tx, u.ParentID, u.ChildID,
				models.AchievementFirstQuizWin, "You won your first challenge set!"); err != nil {
				return err
			}
		}
		u.Status = status
		finishedUnit = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if finishedUnit != nil {
		switch finishedUnit.Status {
		case models.UnitCompleted:
			if res.RewardCents > 0 {
				s.notify.Notify(ctx, childID, fmt.Sprintf("You finished %q and earned %s!", finishedUnit.Description, ledger.FormatCents(res.RewardCents)))
			} else {
				s.notify.Notify(ctx, childID, fmt.Sprintf("You finished %q!", finishedUnit.Description))
			}
		case models.UnitFailed:
			s.notify.Notify(ctx, childID, fmt.Sprintf("You missed some answers in %q. Better luck next time!", finishedUnit.Description))
		}
	}
	return &res, nil
}

// Approve settles or rejects a submitted unit. Only the owning parent may
// decide; re-approving a terminal unit fails with InvalidState, so the reward
// can never be applied twice.
func (s *Service) Approve(ctx context.Context, unitID, parentID uuid.UUID, approve bool) error {
	var u *models.RewardableUnit
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		u, err = s.units.GetForUpdate(ctx, tx, unitID)
		if err != nil {
			return err
		}
		switch u.Kind {
		case models.UnitManualTask, models.UnitAutoTask, models.UnitCreative:
		default:
			return core.InvalidStatef("%s units are settled automatically, not approved", u.Kind)
		}
		if u.ParentID != parentID {
			return core.Forbiddenf("unit does not belong to this parent")
		}
		if u.Status != models.UnitSubmitted {
			return core.InvalidStatef("unit is %s, only submitted units can be decided", u.Status)
		}
		if !approve {
			return s.units.UpdateStatus(ctx, tx, unitID, models.UnitRejected)
		}

		outcome := s.policy.Approval(u.RewardCents)
		origin := models.OriginTask
		if u.Kind == models.UnitCreative {
			origin = models.OriginCreative
		}
		if outcome.Pay {
			if _, err := s.ledger.TransferTx(ctx, tx, u.ParentID, u.ChildID, outcome.AmountCents,
				fmt.Sprintf("reward for %s", u.Description), origin); err != nil {
				return err
			}
		}
		if err := s.units.UpdateStatus(ctx, tx, unitID, models.UnitApproved); err != nil {
			return err
		}
		if u.Kind != models.UnitCreative {
			if err := s.grantAchievement(ctx, tx, u.ParentID, u.ChildID,
				models.AchievementFirstTask, "You completed your first task!"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if approve {
		s.notify.Notify(ctx, u.ChildID, fmt.Sprintf("Your %q was approved! You earned %s.", u.Description, ledger.FormatCents(u.RewardCents)))
	} else {
		s.notify.Notify(ctx, u.ChildID, fmt.Sprintf("Your %q was rejected.", u.Description))
	}
	return nil
}

// IncrementMission bumps a daily mission's progress counter; reaching the
// target settles the reward and completes the mission.
func (s *Service) IncrementMission(ctx context.Context, unitID, childID uuid.UUID) (*models.RewardableUnit, error) {
	var u *models.RewardableUnit
	var completed bool
	err := pgtx.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		u, err = s.units.GetForUpdate(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if u.Kind != models.UnitDailyMission {
			return core.InvalidStatef("%s units have no mission progress", u.Kind)
		}
		if u.ChildID != childID {
			return core.Forbiddenf("mission does not belong to this child")
		}
		if u.Status != models.UnitPending {
			return core.InvalidStatef("mission is %s", u.Status)
		}
		if u.ExpiresAt != nil && u.ExpiresAt.Before(time.Now()) {
			return core.InvalidStatef("mission expired")
		}
		u.Progress++
		status := models.UnitPending
		if u.Progress >= u.Target {
			if _, err := s.ledger.TransferTx(ctx, tx, u.ParentID, u.ChildID, u.RewardCents,
				fmt.Sprintf("reward for mission %s", u.Description), models.OriginDailyMission); err != nil {
				return err
			}
			status = models.UnitCompleted
			completed = true
		}
		u.Status = status
		return s.units.UpdateProgress(ctx, tx, unitID, u.Progress, status)
	})
	if err != nil {
		return nil, err
	}
	if completed {
		s.notify.Notify(ctx, childID, fmt.Sprintf("Mission %q complete! You earned %s.", u.Description, ledger.FormatCents(u.RewardCents)))
	}
	return u, nil
}

// grantAchievement awards a once-per-child bonus. The insert-if-absent row is
// the guard; a parent balance too low for the bonus skips the transfer but
// does not fail the surrounding settlement.
func (s *Service) grantAchievement(ctx context.Context, tx pgx.Tx, parentID, childID uuid.UUID, name, description string) error {
	a := &models.Achievement{
		ID: uuid.New(), ChildID: childID, Name: name,
		Description: description, BonusCents: s.policy.AchievementCents,
	}
	inserted, err := s.achievements.InsertIfAbsent(ctx, tx, a)
	if err != nil {
		return err
	}
	if !inserted || a.BonusCents <= 0 {
		return nil
	}
	if _, err := s.ledger.TransferTx(ctx, tx, parentID, childID, a.BonusCents,
		fmt.Sprintf("achievement bonus: %s", name), models.OriginAchievement); err != nil {
		if errors.Is(err, core.ErrInsufficientFunds) {
			s.log.Warn("achievement bonus skipped, parent balance too low", "child_id", childID, "achievement", name)
			return nil
		}
		return err
	}
	s.notify.Notify(ctx, childID, fmt.Sprintf("Achievement unlocked: %s (+%s)", description, ledger.FormatCents(a.BonusCents)))
	return nil
}

func numberItems(items []models.Item) {
	for i := range items {
		items[i].ID = i + 1
	}
}
