// Package httpapi is the service's HTTP surface: webhook intake from both
// instances, the scheduled and manual sync triggers, record inspection for
// operators, and health. Handlers translate requests into engine calls and
// engine outcomes into the JSON responses the callers expect.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/erauner12/jirasync/internal/auth"
	"github.com/erauner12/jirasync/internal/config"
	"github.com/erauner12/jirasync/internal/model"
	"github.com/erauner12/jirasync/internal/sync"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Engine is the slice of the sync engine the handlers drive.
type Engine interface {
	SyncIssue(ctx context.Context, issueKey string, source model.Side) (sync.Result, error)
	SyncComment(ctx context.Context, issueKey, commentID string, source model.Side, event sync.CommentEvent) (sync.Result, error)
	ResolveConflict(ctx context.Context, syncID string, direction model.Direction) (sync.Result, error)
	Sweep(ctx context.Context, syncType string) (sync.SweepSummary, error)
}

// Records is the slice of the mapping store the operator endpoints read.
type Records interface {
	GetIssueRecord(ctx context.Context, syncID string) (*model.IssueSyncRecord, error)
	ScanIssueRecords(ctx context.Context, status model.Status, cursor string, limit int) ([]model.IssueSyncRecord, string, error)
	CountIssueRecordsByStatus(ctx context.Context) (map[model.Status]int, error)
	ListCommentRecordsForIssue(ctx context.Context, issueSyncID string) ([]model.CommentSyncRecord, error)
	Ping(ctx context.Context) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	Engine  Engine
	Records Records
	Cfg     config.Config
}

// errorResponse is the non-2xx body shape.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes an error response and logs it with request context.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	log.Ctx(r.Context()).Warn().
		Int("status", code).
		Str("path", r.URL.Path).
		Msg(msg)
	writeJSON(w, code, errorResponse{Error: msg})
}

// parseLimit parses a limit query param with default and max.
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Routes creates the HTTP router with all endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Recoverer)

	// Health check (unauthenticated)
	r.Get("/healthz", s.Health)

	// Webhook intake. The pinned-side routes are what the two instances
	// are registered against; the bare route detects the side from
	// headers.
	r.Post("/webhooks", s.handleWebhook(sideUnpinned))
	r.Post("/webhooks/left", s.handleWebhook(model.Left))
	r.Post("/webhooks/right", s.handleWebhook(model.Right))

	// Operator endpoints require authentication when a secret is set.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(auth.JWTCfg{HS256Secret: s.Cfg.AdminJWTSecret}))

		r.Post("/v1/sync/scheduled", s.ScheduledSync)
		r.Post("/v1/sync/manual", s.ManualSync)

		r.Get("/v1/admin/records", s.ListRecords)
		r.Get("/v1/admin/records/{syncID}", s.GetRecord)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
