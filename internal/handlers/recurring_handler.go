package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/httpx"
	"github.com/kidbank/backend/internal/middleware"
	"github.com/kidbank/backend/internal/models"
)

// RuleStore is the recurring-rule persistence the handler needs.
type RuleStore interface {
	Create(ctx context.Context, rule *models.RecurringRule) error
	Update(ctx context.Context, rule *models.RecurringRule) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RecurringRule, error)
	ListByParent(ctx context.Context, parentID uuid.UUID, kind string) ([]*models.RecurringRule, error)
}

// RecurringHandler serves allowance and auto-task rule management.
type RecurringHandler struct {
	Rules  RuleStore
	Users  UserDirectory
	Logger *slog.Logger
}

type ruleRequest struct {
	ChildID     string `json:"child_id"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Days        []int  `json:"days"`
	ValidFrom   string `json:"valid_from,omitempty"`
	ValidTo     string `json:"valid_to,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

type ruleResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	ChildID     string     `json:"child_id"`
	AmountCents int64      `json:"amount_cents"`
	Description string     `json:"description"`
	Days        []int      `json:"days"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidTo     *time.Time `json:"valid_to,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Create handles POST /api/v1/recurring.
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	rule, err := h.buildRule(r.Context(), parentID, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.Rules.Create(r.Context(), rule); err != nil {
		h.Logger.Error("create rule", "parent_id", parentID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ruleToResponse(rule))
}

// List handles GET /api/v1/recurring.
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	rules, err := h.Rules.ListByParent(r.Context(), parentID, r.URL.Query().Get("kind"))
	if err != nil {
		h.Logger.Error("list rules", "parent_id", parentID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleToResponse(rule))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Update handles PATCH /api/v1/recurring/{id}. A body with only "active" set
// toggles the rule; a full body rewrites it.
func (h *RecurringHandler) Update(w http.ResponseWriter, r *http.Request) {
	parentID, rule, ok := h.ownRule(w, r)
	if !ok {
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Active != nil && req.ChildID == "" && req.AmountCents == 0 && len(req.Days) == 0 {
		if err := h.Rules.SetActive(r.Context(), rule.ID, *req.Active); err != nil {
			httpx.WriteError(w, err)
			return
		}
		rule.Active = *req.Active
		httpx.WriteJSON(w, http.StatusOK, ruleToResponse(rule))
		return
	}

	req.Kind = rule.Kind
	if req.ChildID == "" {
		req.ChildID = rule.ChildID.String()
	}
	updated, err := h.buildRule(r.Context(), parentID, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	updated.ID = rule.ID
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if err := h.Rules.Update(r.Context(), updated); err != nil {
		h.Logger.Error("update rule", "rule_id", rule.ID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ruleToResponse(updated))
}

// Delete handles DELETE /api/v1/recurring/{id}.
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, rule, ok := h.ownRule(w, r)
	if !ok {
		return
	}
	if err := h.Rules.Delete(r.Context(), rule.ID); err != nil {
		h.Logger.Error("delete rule", "rule_id", rule.ID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecurringHandler) ownRule(w http.ResponseWriter, r *http.Request) (uuid.UUID, *models.RecurringRule, bool) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return uuid.Nil, nil, false
	}
	id, ok := extractRuleID(r)
	if !ok {
		http.Error(w, `{"error":"invalid rule id"}`, http.StatusBadRequest)
		return uuid.Nil, nil, false
	}
	rule, err := h.Rules.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return uuid.Nil, nil, false
	}
	if rule.ParentID != parentID {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return uuid.Nil, nil, false
	}
	return parentID, rule, true
}

// buildRule validates and assembles a rule. Auto-task rules are capped to a
// seven-day validity window.
func (h *RecurringHandler) buildRule(ctx context.Context, parentID uuid.UUID, req ruleRequest) (*models.RecurringRule, error) {
	if req.Kind != models.RuleAllowance && req.Kind != models.RuleAutoTask {
		return nil, core.Validationf("kind must be %q or %q", models.RuleAllowance, models.RuleAutoTask)
	}
	if req.AmountCents <= 0 {
		return nil, core.Validationf("amount must be positive")
	}
	if len(req.Days) == 0 {
		return nil, core.Validationf("at least one weekday is required")
	}
	days := make([]time.Weekday, 0, len(req.Days))
	for _, d := range req.Days {
		if d < 0 || d > 6 {
			return nil, core.Validationf("weekdays are 0 (Sunday) through 6 (Saturday)")
		}
		days = append(days, time.Weekday(d))
	}
	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		return nil, core.Validationf("invalid child_id")
	}
	child, err := h.Users.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.Role != models.RoleChild || child.ParentID == nil || *child.ParentID != parentID {
		return nil, core.Forbiddenf("child does not belong to this parent")
	}

	rule := &models.RecurringRule{
		ID: uuid.New(), Kind: req.Kind, ParentID: parentID, ChildID: childID,
		AmountCents: req.AmountCents, Description: req.Description, Days: days, Active: true,
	}
	if req.ValidFrom != "" {
		from, err := time.Parse("2006-01-02", req.ValidFrom)
		if err != nil {
			return nil, core.Validationf("valid_from must be a YYYY-MM-DD date")
		}
		rule.ValidFrom = &from
	}
	if req.ValidTo != "" {
		to, err := time.Parse("2006-01-02", req.ValidTo)
		if err != nil {
			return nil, core.Validationf("valid_to must be a YYYY-MM-DD date")
		}
		rule.ValidTo = &to
	}
	if req.Kind == models.RuleAutoTask {
		if rule.Description == "" {
			return nil, core.Validationf("auto task rules need a description")
		}
		if rule.ValidFrom == nil || rule.ValidTo == nil {
			return nil, core.Validationf("auto task rules need a validity window")
		}
		if rule.ValidTo.Sub(*rule.ValidFrom) > 7*24*time.Hour {
			return nil, core.Validationf("auto task rules run for at most seven days")
		}
	}
	return rule, nil
}

func ruleToResponse(rule *models.RecurringRule) ruleResponse {
	days := make([]int, 0, len(rule.Days))
	for _, d := range rule.Days {
		days = append(days, int(d))
	}
	return ruleResponse{
		ID:          rule.ID.String(),
		Kind:        rule.Kind,
		ChildID:     rule.ChildID.String(),
		AmountCents: rule.AmountCents,
		Description: rule.Description,
		Days:        days,
		ValidFrom:   rule.ValidFrom,
		ValidTo:     rule.ValidTo,
		Active:      rule.Active,
		CreatedAt:   rule.CreatedAt,
	}
}

// extractRuleID parses the rule UUID from /api/v1/recurring/{id}.
func extractRuleID(r *http.Request) (uuid.UUID, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/recurring/")
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
