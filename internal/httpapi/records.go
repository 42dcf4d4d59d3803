package httpapi

import (
	"net/http"
	"net/url"

	"github.com/erauner12/jirasync/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type recordListResponse struct {
	Counts     map[model.Status]int    `json:"counts"`
	Records    []model.IssueSyncRecord `json:"records"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

type recordDetailResponse struct {
	Record   *model.IssueSyncRecord    `json:"record"`
	Comments []model.CommentSyncRecord `json:"comments"`
}

// ListRecords pages through issue sync records, optionally filtered by
// status, with per-status counts for the summary line operators want first.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidStatus(status) {
		writeError(w, r, http.StatusBadRequest, "unknown status filter")
		return
	}
	cursor := r.URL.Query().Get("cursor")
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 500)

	counts, err := s.Records.CountIssueRecordsByStatus(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to count records")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list records"})
		return
	}

	records, next, err := s.Records.ScanIssueRecords(r.Context(), model.Status(status), cursor, limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to scan records")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list records"})
		return
	}
	if records == nil {
		records = []model.IssueSyncRecord{}
	}

	writeJSON(w, http.StatusOK, recordListResponse{
		Counts:     counts,
		Records:    records,
		NextCursor: next,
	})
}

// GetRecord returns one record plus the comment records riding on the pair.
// Sync IDs contain '#', so callers send them percent-encoded.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	syncID := chi.URLParam(r, "syncID")
	if unescaped, err := url.PathUnescape(syncID); err == nil {
		syncID = unescaped
	}

	rec, err := s.Records.GetIssueRecord(r.Context(), syncID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("syncId", syncID).Msg("failed to load record")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load record"})
		return
	}
	if rec == nil {
		writeError(w, r, http.StatusNotFound, "record not found")
		return
	}

	comments, err := s.Records.ListCommentRecordsForIssue(r.Context(), rec.SyncID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("syncId", syncID).Msg("failed to load comment records")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load record"})
		return
	}
	if comments == nil {
		comments = []model.CommentSyncRecord{}
	}

	writeJSON(w, http.StatusOK, recordDetailResponse{
		Record:   rec,
		Comments: comments,
	})
}
