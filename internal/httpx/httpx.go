// Package httpx holds the JSON response helpers shared by all handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kidbank/backend/internal/core"
)

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps domain error codes onto HTTP statuses. Unrecognized errors
// become an opaque 500 so internals never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *core.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	status := http.StatusInternalServerError
	switch domainErr.Code {
	case core.CodeNotFound:
		status = http.StatusNotFound
	case core.CodeForbidden:
		status = http.StatusForbidden
	case core.CodeInvalidState:
		status = http.StatusConflict
	case core.CodeInsufficientFunds:
		status = http.StatusPaymentRequired
	case core.CodeValidation:
		status = http.StatusBadRequest
	case core.CodeCollaboratorUnavailable:
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, map[string]string{"error": domainErr.Message})
}
