// Package handlers serves the HTTP API on top of the domain services.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/httpx"
	"github.com/kidbank/backend/internal/middleware"
	"github.com/kidbank/backend/internal/models"
)

// LedgerService is the subset of the transfer engine the handler needs.
type LedgerService interface {
	Account(ctx context.Context, ownerID uuid.UUID) (*models.Account, error)
	Transfer(ctx context.Context, fromOwner, toOwner uuid.UUID, amountCents int64, description, origin string) (*models.Transaction, error)
	Deposit(ctx context.Context, ownerID uuid.UUID, amountCents int64, description string) (*models.Transaction, error)
	Penalize(ctx context.Context, parentID, childID uuid.UUID, amountCents int64, reason string) (*models.Transaction, error)
	ExternalPayout(ctx context.Context, ownerID uuid.UUID, amountCents int64, destinationTag, description string) (*models.Transaction, error)
}

// TransactionLister reads the transaction log for an account.
type TransactionLister interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID, origin string, limit int) ([]*models.Transaction, error)
}

// NotificationLister reads a child's notification feed.
type NotificationLister interface {
	ListByChild(ctx context.Context, childID uuid.UUID, limit int) ([]*models.Notification, error)
}

// AchievementLister reads a child's earned achievements.
type AchievementLister interface {
	ListByChild(ctx context.Context, childID uuid.UUID) ([]*models.Achievement, error)
}

// UserDirectory resolves users for parent-child ownership checks.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LedgerHandler serves balances, money movement, history, notifications, and
// achievements.
type LedgerHandler struct {
	Ledger        LedgerService
	Transactions  TransactionLister
	Notifications NotificationLister
	Achievements  AchievementLister
	Users         UserDirectory
	Logger        *slog.Logger
}

type transactionResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Origin      string `json:"origin"`
	CreatedAt   string `json:"created_at"`
}

type balanceResponse struct {
	OwnerID      string `json:"owner_id"`
	BalanceCents int64  `json:"balance_cents"`
}

// subjectID resolves which user the request targets: the caller, or — for a
// parent — one of their own children via ?child_id.
func (h *LedgerHandler) subjectID(r *http.Request) (uuid.UUID, error) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		return uuid.Nil, core.Forbiddenf("unauthorized")
	}
	raw := r.URL.Query().Get("child_id")
	if raw == "" {
		return callerID, nil
	}
	if middleware.Role(r.Context()) != models.RoleParent {
		return uuid.Nil, core.Forbiddenf("only parents can query a child's data")
	}
	childID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, core.Validationf("invalid child_id")
	}
	child, err := h.Users.GetByID(r.Context(), childID)
	if err != nil {
		return uuid.Nil, err
	}
	if child.ParentID == nil || *child.ParentID != callerID {
		return uuid.Nil, core.Forbiddenf("child does not belong to this parent")
	}
	return childID, nil
}

// GetBalance handles GET /api/v1/balance.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.subjectID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	acc, err := h.Ledger.Account(r.Context(), ownerID)
	if err != nil {
		h.Logger.Error("get balance", "owner_id", ownerID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balanceResponse{OwnerID: ownerID.String(), BalanceCents: acc.BalanceCents})
}

type depositRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

// Deposit handles POST /api/v1/deposits — a parent funding their own account.
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	t, err := h.Ledger.Deposit(r.Context(), parentID, req.AmountCents, req.Description)
	if err != nil {
		h.Logger.Error("deposit", "parent_id", parentID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, transactionToResponse(t))
}

type transferRequest struct {
	ChildID     string `json:"child_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

// Transfer handles POST /api/v1/transfers — a discretionary parent-to-child gift.
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	childID, err := h.ownChild(r.Context(), parentID, req.ChildID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	t, err := h.Ledger.Transfer(r.Context(), parentID, childID, req.AmountCents, req.Description, models.OriginManual)
	if err != nil {
		h.Logger.Error("transfer", "parent_id", parentID, "child_id", childID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, transactionToResponse(t))
}

type penaltyRequest struct {
	ChildID     string `json:"child_id"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// Penalize handles POST /api/v1/penalties — moving money back from child to parent.
func (h *LedgerHandler) Penalize(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req penaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	childID, err := h.ownChild(r.Context(), parentID, req.ChildID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	t, err := h.Ledger.Penalize(r.Context(), parentID, childID, req.AmountCents, req.Reason)
	if err != nil {
		h.Logger.Error("penalize", "parent_id", parentID, "child_id", childID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, transactionToResponse(t))
}

type payoutRequest struct {
	ChildID        string `json:"child_id"`
	AmountCents    int64  `json:"amount_cents"`
	DestinationTag string `json:"destination_tag"`
	Description    string `json:"description"`
}

// Payout handles POST /api/v1/payouts — cashing out a child's virtual balance
// to real-world money. The parent triggers it; the debit lands on the child.
func (h *LedgerHandler) Payout(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req payoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	childID, err := h.ownChild(r.Context(), parentID, req.ChildID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	t, err := h.Ledger.ExternalPayout(r.Context(), childID, req.AmountCents, req.DestinationTag, req.Description)
	if err != nil {
		h.Logger.Error("payout", "child_id", childID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, transactionToResponse(t))
}

// ListTransactions handles GET /api/v1/transactions.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.subjectID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	acc, err := h.Ledger.Account(r.Context(), ownerID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	limit := parseLimit(r, 50)
	txs, err := h.Transactions.ListByAccount(r.Context(), acc.ID, r.URL.Query().Get("origin"), limit)
	if err != nil {
		h.Logger.Error("list transactions", "account_id", acc.ID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionToResponse(t))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// ListNotifications handles GET /api/v1/notifications.
func (h *LedgerHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	childID, err := h.subjectID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	items, err := h.Notifications.ListByChild(r.Context(), childID, parseLimit(r, 50))
	if err != nil {
		h.Logger.Error("list notifications", "child_id", childID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// ListAchievements handles GET /api/v1/achievements.
func (h *LedgerHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	childID, err := h.subjectID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	items, err := h.Achievements.ListByChild(r.Context(), childID)
	if err != nil {
		h.Logger.Error("list achievements", "child_id", childID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *LedgerHandler) ownChild(ctx context.Context, parentID uuid.UUID, rawChildID string) (uuid.UUID, error) {
	childID, err := uuid.Parse(rawChildID)
	if err != nil {
		return uuid.Nil, core.Validationf("invalid child_id")
	}
	child, err := h.Users.GetByID(ctx, childID)
	if err != nil {
		return uuid.Nil, err
	}
	if child.Role != models.RoleChild || child.ParentID == nil || *child.ParentID != parentID {
		return uuid.Nil, core.Forbiddenf("child does not belong to this parent")
	}
	return childID, nil
}

func transactionToResponse(t *models.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID.String(),
		AccountID:   t.AccountID.String(),
		Kind:        t.Kind,
		AmountCents: t.AmountCents,
		Description: t.Description,
		Origin:      t.Origin,
		CreatedAt:   t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 500 {
		return def
	}
	return n
}
