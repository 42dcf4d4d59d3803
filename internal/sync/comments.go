package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/erauner12/jirasync/internal/jira"
	"github.com/erauner12/jirasync/internal/model"
	"github.com/rs/zerolog/log"
)

// CommentEvent names what happened to the source comment.
type CommentEvent string

const (
	CommentCreated CommentEvent = "comment_created"
	CommentUpdated CommentEvent = "comment_updated"
	CommentDeleted CommentEvent = "comment_deleted"
)

// SyncComment mirrors one comment event onto the peer issue. Events on
// unmapped issues, internal comments, and bodies carrying the sync marker
// are all skipped, reported as success with a message saying why.
func (e *Engine) SyncComment(ctx context.Context, issueKey, commentID string, source model.Side, event CommentEvent) (Result, error) {
	logger := log.Ctx(ctx).With().
		Str("issue", issueKey).
		Str("comment", commentID).
		Str("source", source.String()).
		Str("event", string(event)).
		Logger()
	ctx = logger.WithContext(ctx)

	if !e.opts.SyncComments {
		return Result{Success: true, Message: "comment sync disabled"}, nil
	}

	issueRec, err := e.store.FindIssueRecordByKey(ctx, issueKey, source)
	if err != nil {
		return Result{}, err
	}
	if issueRec == nil || issueRec.LeftKey == "" || issueRec.RightKey == "" {
		logger.Debug().Msg("issue not paired, comment skipped")
		return Result{Success: true, Message: "issue not paired, comment skipped"}, nil
	}

	target := source.Other()
	targetKey := issueRec.Key(target)

	rec, err := e.store.FindCommentBySource(ctx, issueKey, commentID, target)
	if err != nil {
		return Result{}, err
	}

	if event == CommentDeleted {
		return e.deleteMirroredComment(ctx, rec, targetKey, target)
	}

	comment, err := e.client(source).GetComment(ctx, issueKey, commentID)
	if err != nil {
		if jira.IsNotFound(err) {
			logger.Debug().Msg("source comment already gone")
			return Result{Success: true, Message: "source comment gone, skipped"}, nil
		}
		return Result{}, fmt.Errorf("fetch source comment: %w", err)
	}
	if comment == nil {
		logger.Debug().Msg("internal comment skipped")
		return Result{Success: true, Message: "internal comment skipped"}, nil
	}
	if jira.IsSyncBody(comment.Body) {
		logger.Debug().Msg("sync-marked comment suppressed")
		return Result{Success: true, Message: "sync comment, suppressed"}, nil
	}

	if rec == nil {
		rec = &model.CommentSyncRecord{
			SyncID:          model.CommentSyncID(issueKey, commentID, target),
			IssueSyncID:     issueRec.SyncID,
			IssueKey:        issueKey,
			SourceCommentID: commentID,
			SourceSide:      source,
			TargetSide:      target,
			Direction:       model.DirectionFrom(source),
		}
	}

	switch event {
	case CommentUpdated:
		if rec.TargetCommentID != "" {
			return e.updateMirroredComment(ctx, rec, targetKey, *comment, source)
		}
		// Never mirrored (or the mirror was deleted); treat the edit as a
		// fresh create.
		return e.createMirroredComment(ctx, rec, targetKey, *comment, source)
	default: // CommentCreated and anything comment-shaped a webhook sends
		if rec.TargetCommentID != "" {
			logger.Debug().Str("mirrored", rec.TargetCommentID).Msg("comment already mirrored")
			return Result{Success: true, SyncID: rec.SyncID, Message: "comment already mirrored"}, nil
		}
		return e.createMirroredComment(ctx, rec, targetKey, *comment, source)
	}
}

func (e *Engine) createMirroredComment(ctx context.Context, rec *model.CommentSyncRecord, targetKey string, comment jira.Comment, source model.Side) (Result, error) {
	mirrored, err := e.client(rec.TargetSide).CreateSyncComment(ctx, targetKey, comment, e.client(source).Label())
	if err != nil {
		return e.failComment(ctx, rec, fmt.Errorf("create mirrored comment: %w", err))
	}
	rec.TargetCommentID = mirrored.ID
	return e.completeComment(ctx, rec, "comment mirrored")
}

func (e *Engine) updateMirroredComment(ctx context.Context, rec *model.CommentSyncRecord, targetKey string, comment jira.Comment, source model.Side) (Result, error) {
	body := jira.RenderSyncBodyUpdated(comment, e.client(source).Label())
	if _, err := e.client(rec.TargetSide).UpdateComment(ctx, targetKey, rec.TargetCommentID, body); err != nil {
		if jira.IsNotFound(err) {
			// Mirror vanished out from under the record; recreate it.
			log.Ctx(ctx).Warn().Str("mirrored", rec.TargetCommentID).Msg("mirrored comment missing, recreating")
			rec.TargetCommentID = ""
			return e.createMirroredComment(ctx, rec, targetKey, comment, source)
		}
		return e.failComment(ctx, rec, fmt.Errorf("update mirrored comment: %w", err))
	}
	return e.completeComment(ctx, rec, "mirrored comment updated")
}

func (e *Engine) deleteMirroredComment(ctx context.Context, rec *model.CommentSyncRecord, targetKey string, target model.Side) (Result, error) {
	if rec == nil || rec.TargetCommentID == "" {
		log.Ctx(ctx).Debug().Msg("no mirrored comment to delete")
		return Result{Success: true, Message: "no mirrored comment, skipped"}, nil
	}

	if err := e.client(target).DeleteComment(ctx, targetKey, rec.TargetCommentID); err != nil && !jira.IsNotFound(err) {
		return e.failComment(ctx, rec, fmt.Errorf("delete mirrored comment: %w", err))
	}
	rec.TargetCommentID = ""
	return e.completeComment(ctx, rec, "mirrored comment deleted")
}

func (e *Engine) completeComment(ctx context.Context, rec *model.CommentSyncRecord, message string) (Result, error) {
	rec.Status = model.StatusSuccess
	rec.ErrorMessage = ""
	rec.LastSyncTimestamp = time.Now().UTC()
	if err := e.store.SaveCommentRecord(ctx, rec); err != nil {
		return Result{}, err
	}
	log.Ctx(ctx).Info().Str("syncId", rec.SyncID).Msg(message)
	return Result{Success: true, SyncID: rec.SyncID, Message: message}, nil
}

func (e *Engine) failComment(ctx context.Context, rec *model.CommentSyncRecord, cause error) (Result, error) {
	rec.Status = model.StatusFailed
	rec.ErrorMessage = cause.Error()
	rec.LastSyncTimestamp = time.Now().UTC()
	if err := e.store.SaveCommentRecord(ctx, rec); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("syncId", rec.SyncID).Msg("failed to record comment sync failure")
	}
	log.Ctx(ctx).Error().Err(cause).Str("syncId", rec.SyncID).Msg("comment sync failed")
	return Result{SyncID: rec.SyncID, Message: cause.Error()}, cause
}
