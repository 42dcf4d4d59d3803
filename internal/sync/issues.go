package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erauner12/jirasync/internal/jira"
	"github.com/erauner12/jirasync/internal/model"
	"github.com/rs/zerolog/log"
)

// SyncIssue reconciles one issue toward its peer. source says which side
// the event came from; that side is read, the other side is written. A
// returned error means the sync failed and the record now says so. A
// conflict is not an error: the Result carries it and the record blocks
// further automatic syncs until resolved.
func (e *Engine) SyncIssue(ctx context.Context, issueKey string, source model.Side) (Result, error) {
	logger := log.Ctx(ctx).With().
		Str("issue", issueKey).
		Str("source", source.String()).
		Logger()
	ctx = logger.WithContext(ctx)

	srcIssue, err := e.client(source).GetIssue(ctx, issueKey)
	if err != nil {
		return e.failSourceFetch(ctx, issueKey, source, err)
	}

	rec, err := e.store.FindIssueRecordByKey(ctx, issueKey, source)
	if err != nil {
		return Result{}, err
	}

	if rec != nil && rec.LeftKey != "" && rec.RightKey != "" {
		return e.syncExistingIssue(ctx, rec, srcIssue, source, false)
	}
	// Either no record at all or a half-formed one from an earlier failed
	// attempt; both mean the peer still has to be created.
	return e.syncNewIssue(ctx, rec, srcIssue, source)
}

// failSourceFetch records a sync attempt whose source issue could not even
// be read (deleted issue, dead instance). The failure lands on the existing
// record when one exists, otherwise on a fresh provisional one, so the
// retry sweep sees it either way.
func (e *Engine) failSourceFetch(ctx context.Context, issueKey string, source model.Side, cause error) (Result, error) {
	rec, err := e.store.FindIssueRecordByKey(ctx, issueKey, source)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("record lookup failed while recording fetch failure")
	}
	if rec == nil {
		rec = &model.IssueSyncRecord{SyncID: model.ProvisionalSyncID(issueKey)}
		rec.SetKey(source, issueKey)
		rec.LastSyncDirection = model.DirectionFrom(source)
	}
	return e.failIssue(ctx, rec, fmt.Errorf("fetch source issue %s: %w", issueKey, cause))
}

// syncNewIssue mirrors a source issue whose peer does not exist yet. The
// record is saved under a provisional ID first so a crash mid-create leaves
// a visible trace, then moved to the canonical pair ID on success.
func (e *Engine) syncNewIssue(ctx context.Context, rec *model.IssueSyncRecord, srcIssue jira.Issue, source model.Side) (Result, error) {
	target := source.Other()

	if rec == nil {
		rec = &model.IssueSyncRecord{SyncID: model.ProvisionalSyncID(srcIssue.Key)}
		rec.SetKey(source, srcIssue.Key)
	}
	rec.SetWatermark(source, srcIssue.Updated)
	rec.Status = model.StatusInProgress
	rec.LastSyncDirection = model.DirectionFrom(source)
	if err := e.store.SaveIssueRecord(ctx, rec); err != nil {
		return Result{}, err
	}

	// Status is never part of the create payload; the peer starts in its
	// workflow's initial state and converges on later updates.
	fields := jira.CreatePayload(srcIssue, e.payloadOptions(target))
	created, err := e.client(target).CreateIssue(ctx, fields)
	if err != nil {
		return e.failIssue(ctx, rec, fmt.Errorf("create peer issue: %w", err))
	}

	rec.SetKey(target, created.Key)
	rec.SetWatermark(source, srcIssue.Updated)
	rec.SetWatermark(target, created.Updated)
	e.markSuccess(rec, source)

	oldID := rec.SyncID
	rec.SyncID = rec.CanonicalSyncID()
	if err := e.store.ReplaceIssueRecord(ctx, oldID, rec); err != nil {
		return Result{}, err
	}

	log.Ctx(ctx).Info().
		Str("syncId", rec.SyncID).
		Str("peer", created.Key).
		Msg("issue pair created")

	return Result{
		Success: true,
		SyncID:  rec.SyncID,
		Message: fmt.Sprintf("created %s as %s", srcIssue.Key, created.Key),
		Record:  rec,
	}, nil
}

// syncExistingIssue propagates source-side changes into an established
// pair. force skips conflict detection and is only set by manual
// resolution.
func (e *Engine) syncExistingIssue(ctx context.Context, rec *model.IssueSyncRecord, srcIssue jira.Issue, source model.Side, force bool) (Result, error) {
	target := source.Other()
	targetClient := e.client(target)
	sourceKey, targetKey := rec.Key(source), rec.Key(target)

	targetIssue, err := targetClient.GetIssue(ctx, targetKey)
	if err != nil {
		return e.failIssue(ctx, rec, fmt.Errorf("fetch target issue: %w", err))
	}

	if !force {
		if conflict, details := detectConflict(rec, source, srcIssue, targetIssue); conflict {
			rec.Status = model.StatusConflict
			rec.RequiresManualResolution = true
			rec.ConflictDetails = details
			rec.LastSyncTimestamp = time.Now().UTC()
			if err := e.store.SaveIssueRecord(ctx, rec); err != nil {
				return Result{}, err
			}
			log.Ctx(ctx).Warn().
				Str("syncId", rec.SyncID).
				Str("details", details).
				Msg("conflict detected, manual resolution required")
			return Result{
				SyncID:           rec.SyncID,
				Message:          details,
				ConflictDetected: true,
				Record:           rec,
			}, nil
		}
	}

	fields := jira.UpdatePayload(targetIssue, srcIssue, e.payloadOptions(target))
	targetStatus := ""
	if e.opts.SyncStatusTransitions && !strings.EqualFold(srcIssue.Status, targetIssue.Status) {
		targetStatus = srcIssue.Status
	}

	if len(fields) == 0 && targetStatus == "" {
		// Nothing to write. The source watermark still advances so this
		// event is not re-examined by every later sweep; the target
		// watermark keeps its value because nothing was written there.
		rec.SetWatermark(source, srcIssue.Updated)
		e.markSuccess(rec, source)
		if err := e.store.SaveIssueRecord(ctx, rec); err != nil {
			return Result{}, err
		}
		log.Ctx(ctx).Debug().Str("syncId", rec.SyncID).Msg("issues already in sync")
		return Result{
			Success: true,
			SyncID:  rec.SyncID,
			Message: fmt.Sprintf("%s and %s already in sync", sourceKey, targetKey),
			Record:  rec,
		}, nil
	}

	rec.Status = model.StatusInProgress
	rec.LastSyncDirection = model.DirectionFrom(source)
	if err := e.store.SaveIssueRecord(ctx, rec); err != nil {
		return Result{}, err
	}

	if err := targetClient.ApplyIssueUpdates(ctx, targetKey, fields, targetStatus); err != nil {
		return e.failIssue(ctx, rec, fmt.Errorf("update peer issue: %w", err))
	}
	// The write bumped the peer's updated time; the watermark has to
	// reflect what is actually stored or the next event looks like a
	// peer-side edit.
	targetIssue, err = targetClient.GetIssue(ctx, targetKey)
	if err != nil {
		return e.failIssue(ctx, rec, fmt.Errorf("refetch peer issue: %w", err))
	}
	log.Ctx(ctx).Info().
		Str("syncId", rec.SyncID).
		Int("fields", len(fields)).
		Str("targetStatus", targetStatus).
		Msg("peer issue updated")

	rec.SetWatermark(source, srcIssue.Updated)
	rec.SetWatermark(target, targetIssue.Updated)
	e.markSuccess(rec, source)
	if err := e.store.SaveIssueRecord(ctx, rec); err != nil {
		return Result{}, err
	}

	return Result{
		Success: true,
		SyncID:  rec.SyncID,
		Message: fmt.Sprintf("synced %s to %s", sourceKey, targetKey),
		Record:  rec,
	}, nil
}

// detectConflict applies the watermark rule: a conflict exists only when
// BOTH sides moved past their last-synced timestamps. One side ahead is the
// normal propagation case.
func detectConflict(rec *model.IssueSyncRecord, source model.Side, srcIssue, targetIssue jira.Issue) (bool, string) {
	target := source.Other()
	sourceChanged := changedSince(srcIssue.Updated, rec.Watermark(source))
	targetChanged := changedSince(targetIssue.Updated, rec.Watermark(target))
	if !sourceChanged || !targetChanged {
		return false, ""
	}

	leftUpdated, rightUpdated := srcIssue.Updated, targetIssue.Updated
	if source == model.Right {
		leftUpdated, rightUpdated = targetIssue.Updated, srcIssue.Updated
	}
	details := fmt.Sprintf(
		"both sides modified since last sync: left updated %s, right updated %s, last synced %s",
		leftUpdated.UTC().Format(time.RFC3339),
		rightUpdated.UTC().Format(time.RFC3339),
		rec.LastSyncTimestamp.UTC().Format(time.RFC3339),
	)
	return true, details
}

// markSuccess stamps the success outcome on a record: lifecycle, direction,
// and a clean slate for the failure and conflict bookkeeping. Watermarks
// are set by the caller, which knows what was actually written.
func (e *Engine) markSuccess(rec *model.IssueSyncRecord, source model.Side) {
	rec.Status = model.StatusSuccess
	rec.LastSyncDirection = model.DirectionFrom(source)
	rec.LastSyncTimestamp = time.Now().UTC()
	rec.ErrorCount = 0
	rec.ErrorMessage = ""
	rec.ConflictDetails = ""
	rec.RequiresManualResolution = false
}

// failIssue records a failure and hands the cause back to the caller. The
// record keeps its error count so the retry sweep can eventually give up.
func (e *Engine) failIssue(ctx context.Context, rec *model.IssueSyncRecord, cause error) (Result, error) {
	rec.Status = model.StatusFailed
	rec.ErrorCount++
	rec.ErrorMessage = cause.Error()
	rec.LastSyncTimestamp = time.Now().UTC()
	if err := e.store.SaveIssueRecord(ctx, rec); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("syncId", rec.SyncID).Msg("failed to record sync failure")
	}
	log.Ctx(ctx).Error().Err(cause).
		Str("syncId", rec.SyncID).
		Int("errorCount", rec.ErrorCount).
		Msg("issue sync failed")
	return Result{SyncID: rec.SyncID, Message: cause.Error(), Record: rec}, cause
}

// ResolveConflict reruns a conflicted pair with a chosen winner. The
// direction names the side whose state is pushed to the other; the losing
// side's watermark is not rewound, its unsynced edits are overwritten, not
// merged.
func (e *Engine) ResolveConflict(ctx context.Context, syncID string, direction model.Direction) (Result, error) {
	rec, err := e.store.GetIssueRecord(ctx, syncID)
	if err != nil {
		return Result{}, err
	}
	if rec == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownRecord, syncID)
	}
	if rec.Status != model.StatusConflict {
		return Result{}, fmt.Errorf("%w: %s is %s", ErrNotInConflict, syncID, rec.Status)
	}

	source := direction.Source()
	if rec.Key(source) == "" || rec.Key(source.Other()) == "" {
		return Result{}, fmt.Errorf("record %q is missing a side, cannot resolve", syncID)
	}

	log.Ctx(ctx).Info().
		Str("syncId", syncID).
		Str("direction", string(direction)).
		Msg("resolving conflict manually")

	rec.Status = model.StatusPending
	rec.ConflictDetails = ""
	rec.ErrorMessage = ""
	rec.RequiresManualResolution = false
	if err := e.store.SaveIssueRecord(ctx, rec); err != nil {
		return Result{}, err
	}

	srcIssue, err := e.client(source).GetIssue(ctx, rec.Key(source))
	if err != nil {
		return e.failIssue(ctx, rec, fmt.Errorf("fetch source issue: %w", err))
	}
	return e.syncExistingIssue(ctx, rec, srcIssue, source, true)
}
