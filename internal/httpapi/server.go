package httpapi

import (
	"net/http"

	"budget-ledger-go/internal/api"
	"budget-ledger-go/internal/auth"
	"budget-ledger-go/internal/receipt"

	"github.com/gorilla/mux"
)

// Weights charged against the caller's rate limit bucket
const (
	defaultWeight = 1
	scanWeight    = auth.MaxWeight
)

type ServerConfig struct {
	Ledger   *api.LedgerService
	Receipts *receipt.Adapter // nil disables receipt scanning
	Verifier auth.Verifier
	Limiter  *auth.RateLimiter
}

// Server exposes the ledger operations over HTTP
type Server struct {
	ledger   *api.LedgerService
	receipts *receipt.Adapter
	verifier auth.Verifier
	limiter  *auth.RateLimiter
	router   *mux.Router
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		ledger:   cfg.Ledger,
		receipts: cfg.Receipts,
		verifier: cfg.Verifier,
		limiter:  cfg.Limiter,
		router:   mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	authed := s.router.NewRoute().Subrouter()
	authed.Use(s.authenticate)

	authed.HandleFunc("/accounts", s.limited(defaultWeight, s.listAccounts)).Methods(http.MethodGet)
	authed.HandleFunc("/accounts", s.limited(defaultWeight, s.createAccount)).Methods(http.MethodPost)
	authed.HandleFunc("/accounts/{id}/default", s.limited(defaultWeight, s.setDefaultAccount)).Methods(http.MethodPut)
	authed.HandleFunc("/accounts/{id}/transactions", s.limited(defaultWeight, s.listTransactions)).Methods(http.MethodGet)

	authed.HandleFunc("/transactions", s.limited(defaultWeight, s.createTransaction)).Methods(http.MethodPost)
	authed.HandleFunc("/transactions/{id}", s.limited(defaultWeight, s.getTransaction)).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/{id}", s.limited(defaultWeight, s.updateTransaction)).Methods(http.MethodPut)
	authed.HandleFunc("/transactions/{id}", s.limited(defaultWeight, s.deleteTransaction)).Methods(http.MethodDelete)

	authed.HandleFunc("/budget", s.limited(defaultWeight, s.getBudget)).Methods(http.MethodGet)
	authed.HandleFunc("/budget", s.limited(defaultWeight, s.updateBudget)).Methods(http.MethodPut)

	authed.HandleFunc("/receipts/scan", s.limited(scanWeight, s.scanReceipt)).Methods(http.MethodPost)
}

// Handler returns the HTTP handler for the API server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
