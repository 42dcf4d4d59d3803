package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/erauner12/jirasync/internal/auth"
	"github.com/erauner12/jirasync/internal/sync"
	"github.com/rs/zerolog/log"
)

type scheduledSyncRequest struct {
	SyncType string `json:"sync_type"`
}

type scheduledSyncResponse struct {
	Message string            `json:"message"`
	Summary sync.SweepSummary `json:"summary"`
}

// ScheduledSync runs one sweep on demand. The scheduler calls the engine
// directly on its own ticks; this endpoint exists for operators and
// external cron. An empty body runs the retry sweep.
func (s *Server) ScheduledSync(w http.ResponseWriter, r *http.Request) {
	var req scheduledSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SyncType == "" {
		req.SyncType = sync.SweepRetryFailed
	}
	if req.SyncType != sync.SweepFullSync && req.SyncType != sync.SweepRetryFailed {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown sync type: %s", req.SyncType))
		return
	}

	log.Ctx(r.Context()).Info().
		Str("syncType", req.SyncType).
		Str("operator", auth.Subject(r.Context())).
		Msg("sweep requested over http")

	summary, err := s.Engine.Sweep(r.Context(), req.SyncType)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("syncType", req.SyncType).Msg("scheduled sync failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Scheduled sync failed"})
		return
	}

	writeJSON(w, http.StatusOK, scheduledSyncResponse{
		Message: fmt.Sprintf("Scheduled sync completed: %s", req.SyncType),
		Summary: summary,
	})
}
