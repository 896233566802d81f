package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/models"
)

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- rule store mock with per-day claim tracking ---

type grantKey struct {
	rule uuid.UUID
	day  string
}

type mockRuleStore struct {
	mu      sync.Mutex
	rules   []*models.RecurringRule
	claims  map[grantKey]bool
	expired []*models.RecurringRule
}

func newMockRuleStore() *mockRuleStore {
	return &mockRuleStore{claims: make(map[grantKey]bool)}
}

func (m *mockRuleStore) ListActive(_ context.Context, kind string) ([]*models.RecurringRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RecurringRule
	for _, r := range m.rules {
		if r.Kind == kind && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRuleStore) ClaimDailyGrant(_ context.Context, _ pgx.Tx, ruleID uuid.UUID, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := grantKey{ruleID, day.Format("2006-01-02")}
	if m.claims[key] {
		return false, nil
	}
	m.claims[key] = true
	return true, nil
}

func (m *mockRuleStore) DeleteExpired(_ context.Context, _ time.Time) ([]*models.RecurringRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.expired
	m.expired = nil
	return out, nil
}

// --- unit store mock (cleanup slice) ---

type mockUnitStore struct {
	mu    sync.Mutex
	units map[uuid.UUID]*models.RewardableUnit
	stale []*models.RewardableUnit
}

func newMockUnitStore() *mockUnitStore {
	return &mockUnitStore{units: make(map[uuid.UUID]*models.RewardableUnit)}
}

func (m *mockUnitStore) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.RewardableUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, core.NotFoundf("unit %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUnitStore) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[id].Status = status
	return nil
}

func (m *mockUnitStore) ListStale(_ context.Context, _, _ time.Time) ([]*models.RewardableUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale, nil
}

// --- creator mock ---

type mockCreator struct {
	mu        sync.Mutex
	autoTasks int
	quizzes   map[uuid.UUID]int
	quizErr   error
}

func newMockCreator() *mockCreator { return &mockCreator{quizzes: make(map[uuid.UUID]int)} }

func (m *mockCreator) CreateAutoTaskInstance(_ context.Context, _ *models.RecurringRule, _ time.Time) (*models.RewardableUnit, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoTasks++
	return &models.RewardableUnit{}, true, nil
}

func (m *mockCreator) CreateAutoQuizSet(_ context.Context, childID uuid.UUID, _ time.Time) (*models.RewardableUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quizErr != nil {
		return nil, m.quizErr
	}
	m.quizzes[childID]++
	return &models.RewardableUnit{}, nil
}

// --- transferer, directory, notifier mocks ---

type transferRecord struct {
	from, to uuid.UUID
	amount   int64
}

type mockTransferer struct {
	mu        sync.Mutex
	balances  map[uuid.UUID]int64
	transfers []transferRecord
}

func (m *mockTransferer) TransferTx(_ context.Context, _ pgx.Tx, from, to uuid.UUID, amount int64, _, _ string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return nil, core.ErrInsufficientFunds
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	m.transfers = append(m.transfers, transferRecord{from, to, amount})
	return &models.Transaction{ID: uuid.New(), AmountCents: amount}, nil
}

type mockDirectory struct {
	children []*models.User
}

func (m *mockDirectory) ListAllChildren(context.Context) ([]*models.User, error) {
	return m.children, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, _ uuid.UUID, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

// --- fixture ---

type fixture struct {
	svc      *Service
	rules    *mockRuleStore
	units    *mockUnitStore
	creator  *mockCreator
	transfer *mockTransferer
	dir      *mockDirectory
	notifier *recordingNotifier
	parentID uuid.UUID
	childID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	parentID, childID := uuid.New(), uuid.New()
	rules := newMockRuleStore()
	units := newMockUnitStore()
	creator := newMockCreator()
	transfer := &mockTransferer{balances: map[uuid.UUID]int64{parentID: 10000}}
	dir := &mockDirectory{}
	notifier := &recordingNotifier{}
	svc := NewService(mockPool{}, rules, units, creator, transfer, dir, notifier, 72*time.Hour, nil)
	return &fixture{
		svc: svc, rules: rules, units: units, creator: creator,
		transfer: transfer, dir: dir, notifier: notifier,
		parentID: parentID, childID: childID,
	}
}

func (f *fixture) addAllowance(amount int64, days ...time.Weekday) *models.RecurringRule {
	rule := &models.RecurringRule{
		ID: uuid.New(), Kind: models.RuleAllowance, ParentID: f.parentID, ChildID: f.childID,
		AmountCents: amount, Description: "weekly allowance", Days: days, Active: true,
	}
	f.rules.rules = append(f.rules.rules, rule)
	return rule
}

var monday = time.Date(2026, time.March, 2, 0, 1, 0, 0, time.UTC)

// --- tests ---

func TestDailyTickPaysAllowanceExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.addAllowance(500, time.Monday)

	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatalf("RunDailyTick: %v", err)
	}
	if len(f.transfer.transfers) != 1 || f.transfer.transfers[0].amount != 500 {
		t.Fatalf("transfers = %+v", f.transfer.transfers)
	}

	// Re-running the same day is a no-op: the claim row already exists.
	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if len(f.transfer.transfers) != 1 {
		t.Fatalf("tick re-run duplicated the grant: %d transfers", len(f.transfer.transfers))
	}

	// The next due day pays again.
	nextMonday := monday.AddDate(0, 0, 7)
	if err := f.svc.RunDailyTick(context.Background(), nextMonday); err != nil {
		t.Fatal(err)
	}
	if len(f.transfer.transfers) != 2 {
		t.Fatalf("next week not paid: %d transfers", len(f.transfer.transfers))
	}
}

func TestDailyTickSkipsRuleNotDue(t *testing.T) {
	f := newFixture(t)
	f.addAllowance(500, time.Friday)

	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if len(f.transfer.transfers) != 0 {
		t.Fatalf("off-day rule paid: %+v", f.transfer.transfers)
	}
	if len(f.rules.claims) != 0 {
		t.Fatalf("off-day rule claimed a grant")
	}
}

func TestDailyTickInsufficientFundsConsumesTheDay(t *testing.T) {
	f := newFixture(t)
	f.addAllowance(500, time.Monday)
	f.transfer.balances[f.parentID] = 100

	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if len(f.transfer.transfers) != 0 {
		t.Fatalf("underfunded allowance paid: %+v", f.transfer.transfers)
	}

	// Funding the account later the same day must not trigger a late grant:
	// the day's claim was consumed by the skip.
	f.transfer.balances[f.parentID] = 10000
	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if len(f.transfer.transfers) != 0 {
		t.Fatalf("skipped grant was retried same day: %+v", f.transfer.transfers)
	}
}

func TestDailyTickMaterializesAutoTasks(t *testing.T) {
	f := newFixture(t)
	from := monday.AddDate(0, 0, -1)
	to := monday.AddDate(0, 0, 5)
	f.rules.rules = append(f.rules.rules, &models.RecurringRule{
		ID: uuid.New(), Kind: models.RuleAutoTask, ParentID: f.parentID, ChildID: f.childID,
		AmountCents: 100, Description: "make the bed", Days: []time.Weekday{time.Monday},
		ValidFrom: &from, ValidTo: &to, Active: true,
	})

	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if f.creator.autoTasks != 1 {
		t.Fatalf("autoTasks = %d, want 1", f.creator.autoTasks)
	}
}

func TestDailyTickGeneratesQuizPerChild(t *testing.T) {
	f := newFixture(t)
	other := uuid.New()
	f.dir.children = []*models.User{
		{ID: f.childID, Role: models.RoleChild},
		{ID: other, Role: models.RoleChild},
	}

	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if f.creator.quizzes[f.childID] != 1 || f.creator.quizzes[other] != 1 {
		t.Fatalf("quizzes = %+v", f.creator.quizzes)
	}
}

func TestDailyTickToleratesQuizDuplicates(t *testing.T) {
	f := newFixture(t)
	f.dir.children = []*models.User{{ID: f.childID, Role: models.RoleChild}}
	f.creator.quizErr = core.InvalidStatef("auto quiz set already exists for today")

	if err := f.svc.RunDailyTick(context.Background(), monday); err != nil {
		t.Fatalf("duplicate quiz should not fail the tick: %v", err)
	}
}

func TestCleanupExpiresStaleUnits(t *testing.T) {
	f := newFixture(t)
	stale := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitManualTask, ChildID: f.childID, ParentID: f.parentID,
		Status: models.UnitPending, Description: "forgotten chore",
	}
	f.units.units[stale.ID] = stale
	f.units.stale = []*models.RewardableUnit{stale}

	if err := f.svc.Cleanup(context.Background(), monday); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if got := f.units.units[stale.ID].Status; got != models.UnitExpired {
		t.Fatalf("status = %s, want expired", got)
	}
	if len(f.notifier.messages) != 1 {
		t.Fatalf("expected one expiry notification, got %d", len(f.notifier.messages))
	}
}

func TestCleanupSkipsAlreadyTerminalUnits(t *testing.T) {
	f := newFixture(t)
	done := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitManualTask, ChildID: f.childID, ParentID: f.parentID,
		Status: models.UnitApproved,
	}
	f.units.units[done.ID] = done
	f.units.stale = []*models.RewardableUnit{done}

	if err := f.svc.Cleanup(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if got := f.units.units[done.ID].Status; got != models.UnitApproved {
		t.Fatalf("terminal unit was overwritten to %s", got)
	}
}

func TestCleanupRemovesExpiredRulesWithNotice(t *testing.T) {
	f := newFixture(t)
	f.rules.expired = []*models.RecurringRule{{
		ID: uuid.New(), Kind: models.RuleAutoTask, ParentID: f.parentID, ChildID: f.childID,
		Description: "make the bed",
	}}

	if err := f.svc.Cleanup(context.Background(), monday); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.messages) != 1 {
		t.Fatalf("expected one rule-removal notification, got %d", len(f.notifier.messages))
	}
}
