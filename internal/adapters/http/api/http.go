// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/internal/domain/query"
	"github.com/okian/statboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RecordStat validates and stores one stat.
	RecordStat(ctx context.Context, in model.StatInput) (model.Stat, error)

	// QueryStats runs a parsed high-score query.
	QueryStats(ctx context.Context, q query.Query) ([]model.Stat, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statusHandler *StatusHandler
	statsHandler  *StatsHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	parser  *query.Parser
	log     logger.Logger
	maxBody int64
}

// WithParser sets the query parser used by GET /stats.
func WithParser(p *query.Parser) Option {
	return func(o *serverOptions) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxBodyBytes bounds POST bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

const defaultMaxBody = 1 << 20

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, status StatusProvider, opts ...Option) *Server {
	o := serverOptions{parser: query.NewParser(), maxBody: defaultMaxBody}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("api")
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statusHandler: NewStatusHandler(status),
		statsHandler:  NewStatsHandler(deps, o.parser, o.log, o.maxBody),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

type errorResponse struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, detail string) {
	if reason == "" {
		reason = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Reason: reason, Detail: detail})
}
