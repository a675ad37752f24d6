// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/adapters/repository"
)

const defaultMaxLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// Read operations expose retained evaluations.
	Recent(ctx context.Context, n int) ([]*repository.Evaluation, error)
	Evaluation(ctx context.Context, id uuid.UUID) (*repository.Evaluation, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLimit caps the number of evaluations one listing may return.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// Server wires the monitoring routes.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	evaluationsHandler *EvaluationsHandler
	maxLimit           int
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.evaluationsHandler = NewEvaluationsHandler(deps, s.maxLimit)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evaluations", MetricsMiddleware(s.evaluationsHandler.HandleList, "evaluations"))
	mux.HandleFunc("/evaluations/", MetricsMiddleware(s.evaluationsHandler.HandleGet, "evaluation"))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
