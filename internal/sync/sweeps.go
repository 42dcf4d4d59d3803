package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/erauner12/jirasync/internal/model"
	"github.com/rs/zerolog/log"
)

// Sweep types accepted by Sweep and the scheduled-sync endpoint.
const (
	SweepFullSync    = "full_sync"
	SweepRetryFailed = "retry_failed"
)

// SweepSummary counts what one sweep did. Failed counts issues whose sync
// errored; those records carry the detail.
type SweepSummary struct {
	Type      string `json:"sync_type"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Conflicts int    `json:"conflicts"`
	Skipped   int    `json:"skipped"`
}

// Sweep runs the named sweep. Unknown names are a caller error.
func (e *Engine) Sweep(ctx context.Context, syncType string) (SweepSummary, error) {
	switch syncType {
	case SweepFullSync:
		return e.FullSync(ctx)
	case SweepRetryFailed:
		return e.RetryFailed(ctx)
	default:
		return SweepSummary{}, fmt.Errorf("unknown sync type %q", syncType)
	}
}

// FullSync reconciles every issue in both projects. The left pass drives
// each pair from the left side; the right pass only picks up issues that
// never paired, so established pairs are not synced twice per sweep.
// Per-issue failures are counted, not fatal; only cancellation stops the
// sweep early.
func (e *Engine) FullSync(ctx context.Context) (SweepSummary, error) {
	s := SweepSummary{Type: SweepFullSync}
	started := time.Now()
	log.Ctx(ctx).Info().Msg("full sync sweep started")

	for _, source := range []model.Side{model.Left, model.Right} {
		issues, err := e.client(source).ProjectIssues(ctx)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("source", source.String()).
				Msg("project listing failed, side skipped")
			s.Failed++
			continue
		}
		for _, issue := range issues {
			if source == model.Right {
				skip, err := e.alreadyPaired(ctx, issue.Key)
				if err != nil {
					return s, err
				}
				if skip {
					s.Skipped++
					continue
				}
			}
			if err := e.limiter.Wait(ctx); err != nil {
				return s, err
			}
			s.Total++
			res, err := e.SyncIssue(ctx, issue.Key, source)
			switch {
			case err != nil:
				s.Failed++
			case res.ConflictDetected:
				s.Conflicts++
			default:
				s.Succeeded++
			}
		}
	}

	log.Ctx(ctx).Info().
		Int("total", s.Total).
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Int("conflicts", s.Conflicts).
		Int("skipped", s.Skipped).
		Dur("elapsed", time.Since(started)).
		Msg("full sync sweep finished")
	return s, nil
}

// alreadyPaired reports whether a right-side issue already belongs to an
// established pair. Half-formed records do not count; those issues still
// need their left peer created.
func (e *Engine) alreadyPaired(ctx context.Context, rightKey string) (bool, error) {
	rec, err := e.store.FindIssueRecordByKey(ctx, rightKey, model.Right)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.LeftKey != "", nil
}

// RetryFailed re-runs every failed record that has retry budget left. The
// source side is the one the failed attempt was reading from; records
// whose direction was never established fall back to whichever key is
// populated.
func (e *Engine) RetryFailed(ctx context.Context) (SweepSummary, error) {
	s := SweepSummary{Type: SweepRetryFailed}

	records, err := e.store.ListIssueRecordsByStatus(ctx, model.StatusFailed)
	if err != nil {
		return s, err
	}
	log.Ctx(ctx).Info().Int("failed", len(records)).Msg("retry sweep started")

	for i := range records {
		rec := &records[i]
		if rec.ErrorCount >= e.opts.MaxRetries {
			log.Ctx(ctx).Warn().
				Str("syncId", rec.SyncID).
				Int("errorCount", rec.ErrorCount).
				Msg("retry budget exhausted, record left failed")
			s.Skipped++
			continue
		}

		issueKey, source, ok := retrySource(rec)
		if !ok {
			log.Ctx(ctx).Warn().Str("syncId", rec.SyncID).Msg("record has no issue key, cannot retry")
			s.Skipped++
			continue
		}

		if s.Total > 0 && e.opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return s, ctx.Err()
			case <-time.After(e.opts.RetryDelay):
			}
		}

		s.Total++
		res, err := e.SyncIssue(ctx, issueKey, source)
		switch {
		case err != nil:
			s.Failed++
		case res.ConflictDetected:
			s.Conflicts++
		default:
			s.Succeeded++
		}
	}

	log.Ctx(ctx).Info().
		Int("total", s.Total).
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Int("skipped", s.Skipped).
		Msg("retry sweep finished")
	return s, nil
}

// retrySource picks the side a retry should read from: the failed
// attempt's own source when the record remembers it, otherwise whichever
// side of the pair exists.
func retrySource(rec *model.IssueSyncRecord) (string, model.Side, bool) {
	if rec.LastSyncDirection != "" {
		source := rec.LastSyncDirection.Source()
		if key := rec.Key(source); key != "" {
			return key, source, true
		}
	}
	if rec.LeftKey != "" {
		return rec.LeftKey, model.Left, true
	}
	if rec.RightKey != "" {
		return rec.RightKey, model.Right, true
	}
	return "", 0, false
}
