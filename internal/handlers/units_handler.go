package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kidbank/backend/internal/httpx"
	"github.com/kidbank/backend/internal/middleware"
	"github.com/kidbank/backend/internal/models"
	"github.com/kidbank/backend/internal/units"
)

// UnitService is the lifecycle state machine the handler drives.
type UnitService interface {
	CreateManualTask(ctx context.Context, parentID, childID uuid.UUID, description string, rewardCents int64) (*models.RewardableUnit, error)
	CreateQuizSet(ctx context.Context, parentID, childID uuid.UUID, counts map[string]int, rewardCents int64) (*models.RewardableUnit, error)
	CreateMathSet(ctx context.Context, parentID, childID uuid.UUID, modelID string, rewardCents int64) (*models.RewardableUnit, error)
	CreateCreative(ctx context.Context, parentID, childID uuid.UUID, description string, rewardCents int64) (*models.RewardableUnit, error)
	CreateDailyMissions(ctx context.Context, parentID, childID uuid.UUID, missionType string, target int, rewardCents int64, days []time.Time) (int, error)
	Submit(ctx context.Context, unitID, childID uuid.UUID, payload string) error
	Answer(ctx context.Context, unitID, childID uuid.UUID, itemID, response int) (*units.AnswerResult, error)
	Approve(ctx context.Context, unitID, parentID uuid.UUID, approve bool) error
	IncrementMission(ctx context.Context, unitID, childID uuid.UUID) (*models.RewardableUnit, error)
}

// UnitLister reads units for list/detail endpoints.
type UnitLister interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.RewardableUnit, error)
	ListByChild(ctx context.Context, childID uuid.UUID, kind, status string) ([]*models.RewardableUnit, error)
	ListByParent(ctx context.Context, parentID uuid.UUID, kind, status string) ([]*models.RewardableUnit, error)
}

// UnitsHandler serves tasks, challenge sets, creative challenges, and daily
// missions.
type UnitsHandler struct {
	Units  UnitService
	Lister UnitLister
	Logger *slog.Logger
}

// itemView is an item as shown to the child: the correct answer and the
// explanation never leave the server before the item is answered.
type itemView struct {
	ID       int      `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options,omitempty"`
}

type unitResponse struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	ChildID       string     `json:"child_id"`
	Status        string     `json:"status"`
	RewardCents   int64      `json:"reward_cents"`
	Description   string     `json:"description"`
	Auto          bool       `json:"auto,omitempty"`
	Items         []itemView `json:"items,omitempty"`
	Submission    string     `json:"submission,omitempty"`
	AnsweredCount int        `json:"answered_count,omitempty"`
	CorrectCount  int        `json:"correct_count,omitempty"`
	Progress      int        `json:"progress,omitempty"`
	Target        int        `json:"target,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type createUnitRequest struct {
	ChildID     string         `json:"child_id"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	RewardCents int64          `json:"reward_cents"`
	Counts      map[string]int `json:"counts,omitempty"`
	Model       string         `json:"model,omitempty"`
	MissionType string         `json:"mission_type,omitempty"`
	Target      int            `json:"target,omitempty"`
	Days        []string       `json:"days,omitempty"`
}

// CreateUnit handles POST /api/v1/units. The kind field selects which
// creation flow runs.
func (h *UnitsHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req createUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		http.Error(w, `{"error":"invalid child_id"}`, http.StatusBadRequest)
		return
	}

	var u *models.RewardableUnit
	switch req.Kind {
	case models.UnitManualTask:
		u, err = h.Units.CreateManualTask(r.Context(), parentID, childID, req.Description, req.RewardCents)
	case models.UnitQuizSet:
		u, err = h.Units.CreateQuizSet(r.Context(), parentID, childID, req.Counts, req.RewardCents)
	case models.UnitMathSet:
		u, err = h.Units.CreateMathSet(r.Context(), parentID, childID, req.Model, req.RewardCents)
	case models.UnitCreative:
		u, err = h.Units.CreateCreative(r.Context(), parentID, childID, req.Description, req.RewardCents)
	case models.UnitDailyMission:
		h.createMissions(w, r, parentID, childID, req)
		return
	default:
		http.Error(w, `{"error":"unknown unit kind"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.Logger.Error("create unit", "kind", req.Kind, "child_id", childID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, unitToResponse(u))
}

func (h *UnitsHandler) createMissions(w http.ResponseWriter, r *http.Request, parentID, childID uuid.UUID, req createUnitRequest) {
	days := make([]time.Time, 0, len(req.Days))
	for _, raw := range req.Days {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, `{"error":"days must be YYYY-MM-DD dates"}`, http.StatusBadRequest)
			return
		}
		days = append(days, day)
	}
	created, err := h.Units.CreateDailyMissions(r.Context(), parentID, childID, req.MissionType, req.Target, req.RewardCents, days)
	if err != nil {
		h.Logger.Error("create missions", "child_id", childID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]int{"created": created})
}

// ListUnits handles GET /api/v1/units. Parents see the units they assigned,
// children the units assigned to them.
func (h *UnitsHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	kind := r.URL.Query().Get("kind")
	status := r.URL.Query().Get("status")

	var (
		list []*models.RewardableUnit
		err  error
	)
	if middleware.Role(r.Context()) == models.RoleParent {
		list, err = h.Lister.ListByParent(r.Context(), userID, kind, status)
	} else {
		list, err = h.Lister.ListByChild(r.Context(), userID, kind, status)
	}
	if err != nil {
		h.Logger.Error("list units", "user_id", userID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	out := make([]unitResponse, 0, len(list))
	for _, u := range list {
		out = append(out, unitToResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// GetUnit handles GET /api/v1/units/{id}.
func (h *UnitsHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	unitID, ok := extractUnitID(r)
	if !ok {
		http.Error(w, `{"error":"invalid unit id"}`, http.StatusBadRequest)
		return
	}
	u, err := h.Lister.GetByID(r.Context(), unitID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if u.ChildID != userID && u.ParentID != userID {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, unitToResponse(u))
}

type submitRequest struct {
	Payload string `json:"payload"`
}

// Submit handles POST /api/v1/units/{id}/submit.
func (h *UnitsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	childID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	unitID, ok := extractUnitID(r)
	if !ok {
		http.Error(w, `{"error":"invalid unit id"}`, http.StatusBadRequest)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.Units.Submit(r.Context(), unitID, childID, req.Payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": models.UnitSubmitted})
}

type answerRequest struct {
	ItemID   int `json:"item_id"`
	Response int `json:"response"`
}

// Answer handles POST /api/v1/units/{id}/answer.
func (h *UnitsHandler) Answer(w http.ResponseWriter, r *http.Request) {
	childID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	unitID, ok := extractUnitID(r)
	if !ok {
		http.Error(w, `{"error":"invalid unit id"}`, http.StatusBadRequest)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	res, err := h.Units.Answer(r.Context(), unitID, childID, req.ItemID, req.Response)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type decisionRequest struct {
	Approve bool `json:"approve"`
}

// Decide handles POST /api/v1/units/{id}/decision.
func (h *UnitsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	unitID, ok := extractUnitID(r)
	if !ok {
		http.Error(w, `{"error":"invalid unit id"}`, http.StatusBadRequest)
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.Units.Approve(r.Context(), unitID, parentID, req.Approve); err != nil {
		h.Logger.Error("decide unit", "unit_id", unitID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	status := models.UnitApproved
	if !req.Approve {
		status = models.UnitRejected
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}

// Progress handles POST /api/v1/units/{id}/progress.
func (h *UnitsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	childID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	unitID, ok := extractUnitID(r)
	if !ok {
		http.Error(w, `{"error":"invalid unit id"}`, http.StatusBadRequest)
		return
	}
	u, err := h.Units.IncrementMission(r.Context(), unitID, childID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, unitToResponse(u))
}

func unitToResponse(u *models.RewardableUnit) unitResponse {
	resp := unitResponse{
		ID:            u.ID.String(),
		Kind:          u.Kind,
		ChildID:       u.ChildID.String(),
		Status:        u.Status,
		RewardCents:   u.RewardCents,
		Description:   u.Description,
		Auto:          u.Auto,
		Submission:    u.Submission,
		AnsweredCount: u.AnsweredCount,
		CorrectCount:  u.CorrectCount,
		Progress:      u.Progress,
		Target:        u.Target,
		ExpiresAt:     u.ExpiresAt,
		CreatedAt:     u.CreatedAt,
	}
	for _, item := range u.Items {
		resp.Items = append(resp.Items, itemView{
			ID: item.ID, Category: item.Category, Prompt: item.Prompt, Options: item.Options,
		})
	}
	return resp
}

// extractUnitID parses the unit UUID from paths like /api/v1/units/{id} and
// /api/v1/units/{id}/answer.
func extractUnitID(r *http.Request) (uuid.UUID, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/units/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
