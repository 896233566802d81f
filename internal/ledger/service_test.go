package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

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

// --- in-memory Store ---

type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account // by account id
	byOwner  map[uuid.UUID]uuid.UUID       // owner id -> account id
	log      []*models.Transaction
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uuid.UUID]*models.Account),
		byOwner:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *memStore) addAccount(ownerID uuid.UUID, balance int64) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.accounts[id] = &models.Account{ID: id, OwnerID: ownerID, BalanceCents: balance}
	m.byOwner[ownerID] = id
	return id
}

func (m *memStore) balance(accountID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[accountID].BalanceCents
}

func (m *memStore) GetByOwner(_ context.Context, ownerID uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOwner[ownerID]
	if !ok {
		return nil, core.NotFoundf("account for owner %s not found", ownerID)
	}
	cp := *m.accounts[id]
	return &cp, nil
}

func (m *memStore) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, core.NotFoundf("account %s not found", id)
	}
	cp := *acc
	return &cp, nil
}

func (m *memStore) Debit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts[id]
	if acc.BalanceCents < amount {
		return 0, core.ErrInsufficientFunds
	}
	acc.BalanceCents -= amount
	return acc.BalanceCents, nil
}

func (m *memStore) Credit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts[id]
	acc.BalanceCents += amount
	return acc.BalanceCents, nil
}

func (m *memStore) Append(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, t)
	return nil
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

// --- tests ---

func TestTransferMovesMoneyAndConserves(t *testing.T) {
	store := newMemStore()
	parentOwner, childOwner := uuid.New(), uuid.New()
	parentAcc := store.addAccount(parentOwner, 1000)
	childAcc := store.addAccount(childOwner, 200)
	svc := NewService(mockPool{}, store, &recordingNotifier{})

	tr, err := svc.Transfer(context.Background(), parentOwner, childOwner, 300, "weekly gift", models.OriginManual)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := store.balance(parentAcc); got != 700 {
		t.Errorf("parent balance = %d, want 700", got)
	}
	if got := store.balance(childAcc); got != 500 {
		t.Errorf("child balance = %d, want 500", got)
	}
	if sum := store.balance(parentAcc) + store.balance(childAcc); sum != 1200 {
		t.Errorf("total balance changed: %d, want 1200", sum)
	}
	if tr.Kind != models.TxTransfer || tr.AccountID != parentAcc || tr.AmountCents != 300 {
		t.Errorf("transaction = %+v", tr)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	store := newMemStore()
	parentOwner, childOwner := uuid.New(), uuid.New()
	parentAcc := store.addAccount(parentOwner, 100)
	childAcc := store.addAccount(childOwner, 0)
	svc := NewService(mockPool{}, store, &recordingNotifier{})

	_, err := svc.Transfer(context.Background(), parentOwner, childOwner, 300, "too much", models.OriginManual)
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v, want insufficient funds", err)
	}
	if got := store.balance(parentAcc); got != 100 {
		t.Errorf("parent balance changed on failed transfer: %d", got)
	}
	if got := store.balance(childAcc); got != 0 {
		t.Errorf("child balance changed on failed transfer: %d", got)
	}
	if len(store.log) != 0 {
		t.Errorf("failed transfer appended %d transactions", len(store.log))
	}
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	store := newMemStore()
	a, b := uuid.New(), uuid.New()
	store.addAccount(a, 100)
	store.addAccount(b, 100)
	svc := NewService(mockPool{}, store, &recordingNotifier{})

	for _, amount := range []int64{0, -50} {
		if _, err := svc.Transfer(context.Background(), a, b, amount, "bad", models.OriginManual); !errors.Is(err, core.ErrValidation) {
			t.Errorf("amount %d: got %v, want validation error", amount, err)
		}
	}
}

func TestTransferRejectsSameAccount(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	acc := store.addAccount(owner, 500)
	svc := NewService(mockPool{}, store, &recordingNotifier{})

	if _, err := svc.Transfer(context.Background(), owner, owner, 100, "self", models.OriginManual); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("self transfer: got %v, want validation error", err)
	}
	if got := store.balance(acc); got != 500 {
		t.Errorf("balance changed on rejected self transfer: %d", got)
	}
	if n := len(store.log); n != 0 {
		t.Errorf("transaction log has %d entries, want 0", n)
	}
}

func TestDeposit(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	acc := store.addAccount(owner, 0)
	svc := NewService(mockPool{}, store, &recordingNotifier{})

	tr, err := svc.Deposit(context.Background(), owner, 5000, "monthly top-up")
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if got := store.balance(acc); got != 5000 {
		t.Errorf("balance = %d, want 5000", got)
	}
	if tr.Kind != models.TxReceipt || tr.Origin != models.OriginDeposit {
		t.Errorf("transaction = %+v", tr)
	}
}

func TestPenalizeDebitsChildOnly(t *testing.T) {
	store := newMemStore()
	parentOwner, childOwner := uuid.New(), uuid.New()
	parentAcc := store.addAccount(parentOwner, 0)
	childAcc := store.addAccount(childOwner, 400)
	notifier := &recordingNotifier{}
	svc := NewService(mockPool{}, store, notifier)

	tr, err := svc.Penalize(context.Background(), parentOwner, childOwner, 150, "skipped homework")
	if err != nil {
		t.Fatalf("Penalize: %v", err)
	}
	if got := store.balance(childAcc); got != 250 {
		t.Errorf("child balance = %d, want 250", got)
	}
	if got := store.balance(parentAcc); got != 150 {
		t.Errorf("parent balance = %d, want 150", got)
	}
	if tr.Kind != models.TxPenalty || tr.AccountID != childAcc {
		t.Errorf("penalty recorded as %+v", tr)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("expected one notification, got %d", len(notifier.messages))
	}
}

func TestPenalizeInsufficientChildBalance(t *testing.T) {
	store := newMemStore()
	parentOwner, childOwner := uuid.New(), uuid.New()
	store.addAccount(parentOwner, 0)
	childAcc := store.addAccount(childOwner, 100)
	svc := NewService(mockPool{}, store, &recordingNotifier{})

	_, err := svc.Penalize(context.Background(), parentOwner, childOwner, 500, "broken window")
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v, want insufficient funds", err)
	}
	if got := store.balance(childAcc); got != 100 {
		t.Errorf("child balance changed on failed penalty: %d", got)
	}
}

func TestExternalPayoutIsDebitOnly(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	acc := store.addAccount(owner, 1000)
	svc := NewService(mockPool{}, store, &recordingNotifier{})

	tr, err := svc.ExternalPayout(context.Background(), owner, 600, "pix:maria", "")
	if err != nil {
		t.Fatalf("ExternalPayout: %v", err)
	}
	if got := store.balance(acc); got != 400 {
		t.Errorf("balance = %d, want 400", got)
	}
	if tr.Kind != models.TxExternalPayout || tr.Origin != models.OriginExternal {
		t.Errorf("transaction = %+v", tr)
	}

	if _, err := svc.ExternalPayout(context.Background(), owner, 100, "", ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing destination: got %v, want validation error", err)
	}
}

func TestFormatCents(t *testing.T) {
	if got := FormatCents(1250); got != "R$ 12.50" {
		t.Errorf("FormatCents(1250) = %q", got)
	}
	if got := FormatCents(5); got != "R$ 0.05" {
		t.Errorf("FormatCents(5) = %q", got)
	}
}
