package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/erauner12/jirasync/internal/model"
	"github.com/erauner12/jirasync/internal/sync"
	"github.com/rs/zerolog/log"
)

// sideUnpinned marks a webhook route that does not fix the source side;
// the handler falls back to header-based detection.
const sideUnpinned model.Side = 0

// Webhook bodies are small; anything past this is not a Jira event.
const maxWebhookBody = 1 << 20

// webhookPayload is the inbound event envelope. Only the fields the
// dispatcher routes on are decoded; the reconcilers re-fetch the issue
// from the source instance rather than trusting webhook field snapshots.
type webhookPayload struct {
	WebhookEvent       string          `json:"webhookEvent"`
	IssueEventTypeName string          `json:"issue_event_type_name"`
	Issue              webhookIssue    `json:"issue"`
	Comment            *webhookComment `json:"comment"`
}

type webhookIssue struct {
	Key string `json:"key"`
}

type webhookComment struct {
	ID string `json:"id"`
}

// relevantEvents is the dispatch filter. Everything else is acknowledged
// and dropped.
var relevantEvents = map[string]bool{
	"jira:issue_created": true,
	"jira:issue_updated": true,
	"jira:issue_deleted": true,
	"comment_created":    true,
	"comment_updated":    true,
	"comment_deleted":    true,
}

type webhookResponse struct {
	Message string `json:"message"`
	SyncID  string `json:"sync_id,omitempty"`
}

// verifySignature checks X-Hub-Signature-256 ("sha256=<hex>") against
// HMAC-SHA256(secret, body) in constant time.
func verifySignature(body []byte, header, secret string) bool {
	if header == "" {
		return false
	}
	sig := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(sig), []byte(expected))
}

// detectSide works out which instance sent an unpinned webhook: the Origin
// header matched against the configured base URLs, then the explicit
// X-Jira-Instance header, then Left with a warning.
func (s *Server) detectSide(r *http.Request) model.Side {
	if origin := r.Header.Get("Origin"); origin != "" {
		if s.Cfg.Left.BaseURL != "" && strings.Contains(origin, s.Cfg.Left.BaseURL) {
			return model.Left
		}
		if s.Cfg.Right.BaseURL != "" && strings.Contains(origin, s.Cfg.Right.BaseURL) {
			return model.Right
		}
	}
	if h := r.Header.Get("X-Jira-Instance"); h != "" {
		if side, err := model.ParseSide(h); err == nil {
			return side
		}
	}
	log.Ctx(r.Context()).Warn().Msg("could not determine source instance, defaulting to left")
	return model.Left
}

// handleWebhook builds the intake handler for one route. fixed pins the
// source side for the per-instance routes; sideUnpinned means detect it
// from the request.
func (s *Server) handleWebhook(fixed model.Side) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "failed to read request body")
			return
		}

		if !verifySignature(body, r.Header.Get("X-Hub-Signature-256"), s.Cfg.WebhookSecret) {
			log.Ctx(ctx).Warn().Msg("invalid webhook signature")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid signature"})
			return
		}

		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid payload format")
			return
		}

		source := fixed
		if !source.Valid() {
			source = s.detectSide(r)
		}

		if !relevantEvents[payload.WebhookEvent] {
			log.Ctx(ctx).Info().
				Str("event", payload.WebhookEvent).
				Str("issue", payload.Issue.Key).
				Msg("skipping event")
			writeJSON(w, http.StatusOK, webhookResponse{Message: "Event skipped"})
			return
		}

		issueKey := payload.Issue.Key
		if issueKey == "" {
			writeError(w, r, http.StatusBadRequest, "No issue key found")
			return
		}

		logger := log.Ctx(ctx).With().
			Str("event", payload.WebhookEvent).
			Str("issue", issueKey).
			Str("source", source.String()).
			Logger()
		ctx = logger.WithContext(ctx)

		var res sync.Result
		if strings.HasPrefix(payload.WebhookEvent, "comment_") {
			if payload.Comment == nil || payload.Comment.ID == "" {
				writeError(w, r, http.StatusBadRequest, "No comment id found")
				return
			}
			res, err = s.Engine.SyncComment(ctx, issueKey, payload.Comment.ID, source,
				sync.CommentEvent(payload.WebhookEvent))
		} else {
			res, err = s.Engine.SyncIssue(ctx, issueKey, source)
		}

		switch {
		case err != nil:
			logger.Error().Err(err).Msg("webhook sync failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Sync failed",
				Message: err.Error(),
			})
		case res.ConflictDetected:
			// A conflict is an accepted outcome, not a processing failure;
			// the record holds it for manual resolution.
			logger.Warn().Str("syncId", res.SyncID).Msg("webhook sync hit a conflict")
			writeJSON(w, http.StatusOK, webhookResponse{
				Message: res.Message,
				SyncID:  res.SyncID,
			})
		default:
			logger.Info().Str("syncId", res.SyncID).Msg("webhook sync completed")
			writeJSON(w, http.StatusOK, webhookResponse{
				Message: "Sync completed successfully",
				SyncID:  res.SyncID,
			})
		}
	}
}
