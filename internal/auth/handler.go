package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kidbank/backend/internal/core"
	"github.com/kidbank/backend/internal/httpx"
	"github.com/kidbank/backend/internal/middleware"
	"github.com/kidbank/backend/internal/models"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	u, err := h.svc.RegisterParent(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err, "register failed")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, userToResponse(u))
}

func (h *Handler) AddChild(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	u, err := h.svc.AddChild(r.Context(), parentID, req.Name, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err, "add child failed")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, userToResponse(u))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, User: userToResponse(u)})
}

func (h *Handler) Children(w http.ResponseWriter, r *http.Request) {
	parentID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	children, err := h.svc.Children(r.Context(), parentID)
	if err != nil {
		h.log.Error("list children failed", "error", err)
		httpx.WriteError(w, err)
		return
	}
	out := make([]UserResponse, 0, len(children))
	for _, c := range children {
		out = append(out, userToResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		http.Error(w, "email already registered", http.StatusConflict)
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrNotFound):
		httpx.WriteError(w, err)
	default:
		h.log.Error(msg, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func userToResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:    u.ID.String(),
		Role:  u.Role,
		Name:  u.Name,
		Email: u.Email,
	}
	if u.ParentID != nil {
		resp.ParentID = u.ParentID.String()
	}
	return resp
}
