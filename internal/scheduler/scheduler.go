// Package scheduler drives the periodic sweeps: the retry pass on a short
// cadence and the full reconciliation pass on a long one.
package scheduler

import (
	"context"
	"time"

	"github.com/erauner12/jirasync/internal/sync"
	"github.com/rs/zerolog/log"
)

// Engine is the slice of the sync engine the scheduler drives.
type Engine interface {
	Sweep(ctx context.Context, syncType string) (sync.SweepSummary, error)
}

// Scheduler runs sweeps on fixed intervals until its context is canceled.
// An interval of zero or less disables that sweep.
type Scheduler struct {
	Engine        Engine
	RetryInterval time.Duration
	FullInterval  time.Duration
}

// Run blocks until ctx is canceled. Sweeps run inline, one at a time; a
// tick that lands while a sweep is still running is dropped rather than
// queued, so a slow pass never causes a burst of catch-up passes.
func (s *Scheduler) Run(ctx context.Context) {
	retryC, stopRetry := ticker(s.RetryInterval)
	defer stopRetry()
	fullC, stopFull := ticker(s.FullInterval)
	defer stopFull()

	log.Ctx(ctx).Info().
		Dur("retryInterval", s.RetryInterval).
		Dur("fullInterval", s.FullInterval).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).Info().Msg("scheduler stopped")
			return
		case <-retryC:
			s.sweep(ctx, sync.SweepRetryFailed)
			drain(retryC)
		case <-fullC:
			s.sweep(ctx, sync.SweepFullSync)
			drain(fullC)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context, syncType string) {
	started := time.Now()
	summary, err := s.Engine.Sweep(ctx, syncType)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Ctx(ctx).Error().Err(err).Str("syncType", syncType).Msg("scheduled sweep failed")
		return
	}

	log.Ctx(ctx).Info().
		Str("syncType", summary.Type).
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("conflicts", summary.Conflicts).
		Int("skipped", summary.Skipped).
		Dur("elapsed", time.Since(started)).
		Msg("sweep finished")
}

// ticker returns a nil channel for a disabled interval; a nil channel never
// fires in the select above.
func ticker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// drain discards the at-most-one tick that buffered while a sweep ran.
func drain(c <-chan time.Time) {
	select {
	case <-c:
	default:
	}
}
