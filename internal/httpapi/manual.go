package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/erauner12/jirasync/internal/auth"
	"github.com/erauner12/jirasync/internal/model"
	"github.com/erauner12/jirasync/internal/sync"
	"github.com/rs/zerolog/log"
)

type manualSyncRequest struct {
	// Sync mode: re-run one issue from the given side.
	IssueKey       string `json:"issue_key"`
	SourceInstance string `json:"source_instance"`

	// Resolve mode: rerun a conflicted pair with a chosen winner.
	SyncID              string `json:"sync_id"`
	ResolutionDirection string `json:"resolution_direction"`
}

type manualSyncResponse struct {
	Message string `json:"message"`
	SyncID  string `json:"sync_id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ManualSync serves both operator interventions: a targeted re-sync of one
// issue, and manual conflict resolution. The request shape picks the mode.
func (s *Server) ManualSync(w http.ResponseWriter, r *http.Request) {
	var req manualSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.SyncID != "" && req.ResolutionDirection != "":
		log.Ctx(r.Context()).Info().
			Str("syncId", req.SyncID).
			Str("operator", auth.Subject(r.Context())).
			Msg("manual conflict resolution requested")
		s.resolveConflict(w, r, req)
	case req.IssueKey != "" && req.SourceInstance != "":
		log.Ctx(r.Context()).Info().
			Str("issue", req.IssueKey).
			Str("operator", auth.Subject(r.Context())).
			Msg("manual sync requested")
		s.syncIssue(w, r, req)
	default:
		writeError(w, r, http.StatusBadRequest,
			"Invalid parameters. Provide either (issue_key, source_instance) or (sync_id, resolution_direction)")
	}
}

func (s *Server) syncIssue(w http.ResponseWriter, r *http.Request, req manualSyncRequest) {
	source, err := model.ParseSide(req.SourceInstance)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown source_instance, want left|right")
		return
	}

	res, err := s.Engine.SyncIssue(r.Context(), req.IssueKey, source)
	resp := manualSyncResponse{
		Message: "Manual sync completed",
		SyncID:  res.SyncID,
		Success: res.Success,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resolveConflict(w http.ResponseWriter, r *http.Request, req manualSyncRequest) {
	direction := model.Direction(req.ResolutionDirection)
	if direction != model.LeftToRight && direction != model.RightToLeft {
		writeError(w, r, http.StatusBadRequest, "unknown resolution_direction, want left_to_right|right_to_left")
		return
	}

	res, err := s.Engine.ResolveConflict(r.Context(), req.SyncID, direction)
	switch {
	case errors.Is(err, sync.ErrUnknownRecord):
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, sync.ErrNotInConflict):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Ctx(r.Context()).Error().Err(err).Str("syncId", req.SyncID).Msg("conflict resolution failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Conflict resolution failed",
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, manualSyncResponse{
		Message: "Conflict resolved",
		SyncID:  res.SyncID,
		Success: res.Success,
	})
}
