package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/middleware"
	"github.com/kidbank/backend/internal/models"
	"github.com/kidbank/backend/internal/units"
)

// --- UnitService mock ---

type mockUnitService struct {
	created   *models.RewardableUnit
	answer    *units.AnswerResult
	err       error
	decisions []bool
}

func (m *mockUnitService) CreateManualTask(_ context.Context, parentID, childID uuid.UUID, description string, rewardCents int64) (*models.RewardableUnit, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitManualTask, ChildID: childID, ParentID: parentID,
		Status: models.UnitPending, RewardCents: rewardCents, Description: description,
	}
	return m.created, nil
}

func (m *mockUnitService) CreateQuizSet(_ context.Context, parentID, childID uuid.UUID, _ map[string]int, rewardCents int64) (*models.RewardableUnit, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &models.RewardableUnit{ID: uuid.New(), Kind: models.UnitQuizSet, ChildID: childID, ParentID: parentID, Status: models.UnitPending, RewardCents: rewardCents}
	return m.created, nil
}

func (m *mockUnitService) CreateMathSet(_ context.Context, parentID, childID uuid.UUID, _ string, rewardCents int64) (*models.RewardableUnit, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &models.RewardableUnit{ID: uuid.New(), Kind: models.UnitMathSet, ChildID: childID, ParentID: parentID, Status: models.UnitPending, RewardCents: rewardCents}
	return m.created, nil
}

func (m *mockUnitService) CreateCreative(_ context.Context, parentID, childID uuid.UUID, description string, rewardCents int64) (*models.RewardableUnit, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &models.RewardableUnit{ID: uuid.New(), Kind: models.UnitCreative, ChildID: childID, ParentID: parentID, Status: models.UnitPending, RewardCents: rewardCents, Description: description}
	return m.created, nil
}

func (m *mockUnitService) CreateDailyMissions(context.Context, uuid.UUID, uuid.UUID, string, int, int64, []time.Time) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return 2, nil
}

func (m *mockUnitService) Submit(context.Context, uuid.UUID, uuid.UUID, string) error { return m.err }

func (m *mockUnitService) Answer(context.Context, uuid.UUID, uuid.UUID, int, int) (*units.AnswerResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockUnitService) Approve(_ context.Context, _, _ uuid.UUID, approve bool) error {
	if m.err != nil {
		return m.err
	}
	m.decisions = append(m.decisions, approve)
	return nil
}

func (m *mockUnitService) IncrementMission(context.Context, uuid.UUID, uuid.UUID) (*models.RewardableUnit, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.RewardableUnit{ID: uuid.New(), Kind: models.UnitDailyMission, Status: models.UnitPending, Progress: 1, Target: 3}, nil
}

// --- UnitLister mock ---

type mockUnitLister struct {
	units map[uuid.UUID]*models.RewardableUnit
}

func (m *mockUnitLister) GetByID(_ context.Context, id uuid.UUID) (*models.RewardableUnit, error) {
	u, ok := m.units[id]
	if !ok {
		return nil, core.NotFoundf("unit %s not found", id)
	}
	return u, nil
}

func (m *mockUnitLister) ListByChild(_ context.Context, childID uuid.UUID, _, _ string) ([]*models.RewardableUnit, error) {
	var out []*models.RewardableUnit
	for _, u := range m.units {
		if u.ChildID == childID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUnitLister) ListByParent(_ context.Context, parentID uuid.UUID, _, _ string) ([]*models.RewardableUnit, error) {
	var out []*models.RewardableUnit
	for _, u := range m.units {
		if u.ParentID == parentID {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- helpers ---

func newUnitsHandler() (*UnitsHandler, *mockUnitService, *mockUnitLister) {
	svc := &mockUnitService{}
	lister := &mockUnitLister{units: make(map[uuid.UUID]*models.RewardableUnit)}
	return &UnitsHandler{Units: svc, Lister: lister, Logger: slog.Default()}, svc, lister
}

func asUser(r *http.Request, userID uuid.UUID, role string) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), userID, role))
}

// --- tests ---

func TestCreateUnitManualTask(t *testing.T) {
	h, _, _ := newUnitsHandler()
	parentID, childID := uuid.New(), uuid.New()
	body := `{"child_id":"` + childID.String() + `","kind":"manual_task","description":"sweep","reward_cents":200}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/units", strings.NewReader(body)), parentID, models.RoleParent)
	rec := httptest.NewRecorder()

	h.CreateUnit(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp unitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != models.UnitManualTask || resp.Status != models.UnitPending || resp.RewardCents != 200 {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateUnitRequiresAuth(t *testing.T) {
	h, _, _ := newUnitsHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/units", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.CreateUnit(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateUnitUnknownKind(t *testing.T) {
	h, _, _ := newUnitsHandler()
	body := `{"child_id":"` + uuid.NewString() + `","kind":"homework_set"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/units", strings.NewReader(body)), uuid.New(), models.RoleParent)
	rec := httptest.NewRecorder()
	h.CreateUnit(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateUnitErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient funds", core.InsufficientFundsf("low balance"), http.StatusPaymentRequired},
		{"open set conflict", core.InvalidStatef("already open"), http.StatusConflict},
		{"not my child", core.Forbiddenf("nope"), http.StatusForbidden},
		{"bad input", core.Validationf("bad"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, svc, _ := newUnitsHandler()
			svc.err = tc.err
			body := `{"child_id":"` + uuid.NewString() + `","kind":"quiz_set","reward_cents":100}`
			req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/units", strings.NewReader(body)), uuid.New(), models.RoleParent)
			rec := httptest.NewRecorder()
			h.CreateUnit(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestGetUnitHidesAnswers(t *testing.T) {
	h, _, lister := newUnitsHandler()
	childID := uuid.New()
	u := &models.RewardableUnit{
		ID: uuid.New(), Kind: models.UnitQuizSet, ChildID: childID, ParentID: uuid.New(),
		Status: models.UnitPending,
		Items: []models.Item{{
			ID: 1, Category: "science", Prompt: "Which planet is red?",
			Options: []string{"Mars", "Venus"}, Correct: 0, Explanation: "Mars looks red.",
		}},
	}
	lister.units[u.ID] = u

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/units/"+u.ID.String(), nil), childID, models.RoleChild)
	rec := httptest.NewRecorder()
	h.GetUnit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "correct") || strings.Contains(body, "explanation") || strings.Contains(body, "Mars looks red") {
		t.Fatalf("answer material leaked to the client: %s", body)
	}
	if !strings.Contains(body, "Which planet is red?") {
		t.Fatalf("prompt missing from response: %s", body)
	}
}

func TestGetUnitForbiddenForOutsiders(t *testing.T) {
	h, _, lister := newUnitsHandler()
	u := &models.RewardableUnit{ID: uuid.New(), ChildID: uuid.New(), ParentID: uuid.New(), Status: models.UnitPending}
	lister.units[u.ID] = u

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/units/"+u.ID.String(), nil), uuid.New(), models.RoleChild)
	rec := httptest.NewRecorder()
	h.GetUnit(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAnswerEndpoint(t *testing.T) {
	h, svc, _ := newUnitsHandler()
	svc.answer = &units.AnswerResult{Correct: true, Explanation: "because", Status: models.UnitCompleted, RewardCents: 400}
	unitID := uuid.New()

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/units/"+unitID.String()+"/answer",
		strings.NewReader(`{"item_id":3,"response":1}`)), uuid.New(), models.RoleChild)
	rec := httptest.NewRecorder()
	h.Answer(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res units.AnswerResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Correct || res.RewardCents != 400 || res.Status != models.UnitCompleted {
		t.Errorf("result = %+v", res)
	}
}

func TestAnswerInvalidUnitID(t *testing.T) {
	h, _, _ := newUnitsHandler()
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/units/not-a-uuid/answer",
		strings.NewReader(`{"item_id":1,"response":0}`)), uuid.New(), models.RoleChild)
	rec := httptest.NewRecorder()
	h.Answer(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDecideEndpoint(t *testing.T) {
	h, svc, _ := newUnitsHandler()
	unitID := uuid.New()
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/units/"+unitID.String()+"/decision",
		strings.NewReader(`{"approve":false}`)), uuid.New(), models.RoleParent)
	rec := httptest.NewRecorder()
	h.Decide(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.decisions) != 1 || svc.decisions[0] != false {
		t.Errorf("decisions = %v", svc.decisions)
	}
	if !strings.Contains(rec.Body.String(), models.UnitRejected) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDecideDoublePayGuardSurfacesConflict(t *testing.T) {
	h, svc, _ := newUnitsHandler()
	svc.err = core.InvalidStatef("unit is approved")
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/units/"+uuid.NewString()+"/decision",
		strings.NewReader(`{"approve":true}`)), uuid.New(), models.RoleParent)
	rec := httptest.NewRecorder()
	h.Decide(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestListUnitsByRole(t *testing.T) {
	h, _, lister := newUnitsHandler()
	parentID, childID := uuid.New(), uuid.New()
	u := &models.RewardableUnit{ID: uuid.New(), Kind: models.UnitManualTask, ChildID: childID, ParentID: parentID, Status: models.UnitPending}
	lister.units[u.ID] = u

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/units", nil), parentID, models.RoleParent)
	rec := httptest.NewRecorder()
	h.ListUnits(rec, req)
	var out []unitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("parent sees %d units, want 1", len(out))
	}

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/v1/units", nil), uuid.New(), models.RoleChild)
	rec = httptest.NewRecorder()
	h.ListUnits(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("stranger child sees %d units, want 0", len(out))
	}
}
