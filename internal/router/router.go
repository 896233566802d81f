package router

import (
	"net/http"
	"strings"

	"github.com/kidbank/backend/internal/auth"
	"github.com/kidbank/backend/internal/handlers"
)

// Middleware wraps a handler, e.g. JWT auth or a role gate.
type Middleware func(http.Handler) http.Handler

// New returns an http.Handler serving the API under /api/v1. Every route
// except register and login goes through authn; money movement and unit
// management are parent-gated, play endpoints child-gated.
func New(
	authHandler *auth.Handler,
	ledgerHandler *handlers.LedgerHandler,
	unitsHandler *handlers.UnitsHandler,
	recurringHandler *handlers.RecurringHandler,
	authn, parentOnly, childOnly Middleware,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	user := func(h http.HandlerFunc) http.Handler { return authn(h) }
	parent := func(h http.HandlerFunc) http.Handler { return authn(parentOnly(h)) }

	mux.HandleFunc(base+"/auth/register", methodPOST(authHandler.Register))
	mux.HandleFunc(base+"/auth/login", methodPOST(authHandler.Login))
	mux.Handle(base+"/children", parent(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			authHandler.AddChild(w, r)
		case http.MethodGet:
			authHandler.Children(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.Handle(base+"/balance", user(methodGET(ledgerHandler.GetBalance)))
	mux.Handle(base+"/transactions", user(methodGET(ledgerHandler.ListTransactions)))
	mux.Handle(base+"/notifications", user(methodGET(ledgerHandler.ListNotifications)))
	mux.Handle(base+"/achievements", user(methodGET(ledgerHandler.ListAchievements)))
	mux.Handle(base+"/deposits", parent(methodPOST(ledgerHandler.Deposit)))
	mux.Handle(base+"/transfers", parent(methodPOST(ledgerHandler.Transfer)))
	mux.Handle(base+"/penalties", parent(methodPOST(ledgerHandler.Penalize)))
	mux.Handle(base+"/payouts", parent(methodPOST(ledgerHandler.Payout)))

	mux.Handle(base+"/units", user(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			parentOnly(http.HandlerFunc(unitsHandler.CreateUnit)).ServeHTTP(w, r)
		case http.MethodGet:
			unitsHandler.ListUnits(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.Handle(base+"/units/", user(func(w http.ResponseWriter, r *http.Request) {
		action := unitAction(r.URL.Path)
		switch {
		case r.Method == http.MethodGet && action == "":
			unitsHandler.GetUnit(w, r)
		case r.Method == http.MethodPost && action == "submit":
			childOnly(http.HandlerFunc(unitsHandler.Submit)).ServeHTTP(w, r)
		case r.Method == http.MethodPost && action == "answer":
			childOnly(http.HandlerFunc(unitsHandler.Answer)).ServeHTTP(w, r)
		case r.Method == http.MethodPost && action == "progress":
			childOnly(http.HandlerFunc(unitsHandler.Progress)).ServeHTTP(w, r)
		case r.Method == http.MethodPost && action == "decision":
			parentOnly(http.HandlerFunc(unitsHandler.Decide)).ServeHTTP(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.Handle(base+"/recurring", parent(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			recurringHandler.Create(w, r)
		case http.MethodGet:
			recurringHandler.List(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.Handle(base+"/recurring/", parent(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			recurringHandler.Update(w, r)
		case http.MethodDelete:
			recurringHandler.Delete(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	return mux
}

// unitAction returns the segment after the unit id, if any.
func unitAction(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/units/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
