// Package store is the durable mapping store: one row per synced issue
// pair, one per mirrored comment, kept in Postgres. All writes are
// whole-record upserts keyed by sync_id; secondary indexes serve the
// by-key, by-status, and by-issue lookups the reconcilers need.
package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// StorageError wraps any store failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Store provides the mapping-record operations on a Postgres pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates the connection pool and verifies connectivity.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("postgres connection pool created")

	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS issue_sync (
		sync_id                    TEXT PRIMARY KEY,
		left_key                   TEXT NOT NULL DEFAULT '',
		right_key                  TEXT NOT NULL DEFAULT '',
		left_last_updated          TIMESTAMPTZ,
		right_last_updated         TIMESTAMPTZ,
		sync_status                TEXT NOT NULL,
		last_sync_direction        TEXT NOT NULL DEFAULT '',
		last_sync_timestamp        TIMESTAMPTZ NOT NULL,
		error_count                INT NOT NULL DEFAULT 0,
		error_message              TEXT NOT NULL DEFAULT '',
		requires_manual_resolution BOOLEAN NOT NULL DEFAULT FALSE,
		conflict_details           TEXT NOT NULL DEFAULT '',
		created_at                 TIMESTAMPTZ NOT NULL,
		updated_at                 TIMESTAMPTZ NOT NULL
	)`,
	// One record per issue on either side. Partial so half-formed records
	// (peer not created yet) only claim the key they actually hold.
	`CREATE UNIQUE INDEX IF NOT EXISTS issue_sync_left_key
		ON issue_sync (left_key) WHERE left_key <> ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS issue_sync_right_key
		ON issue_sync (right_key) WHERE right_key <> ''`,
	`CREATE INDEX IF NOT EXISTS issue_sync_status ON issue_sync (sync_status)`,

	`CREATE TABLE IF NOT EXISTS comment_sync (
		sync_id             TEXT PRIMARY KEY,
		issue_sync_id       TEXT NOT NULL,
		issue_key           TEXT NOT NULL,
		source_comment_id   TEXT NOT NULL,
		target_comment_id   TEXT NOT NULL DEFAULT '',
		source_side         SMALLINT NOT NULL,
		target_side         SMALLINT NOT NULL,
		sync_direction      TEXT NOT NULL DEFAULT '',
		sync_status         TEXT NOT NULL,
		last_sync_timestamp TIMESTAMPTZ NOT NULL,
		error_message       TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS comment_sync_issue ON comment_sync (issue_sync_id)`,
}

// EnsureSchema creates the tables and indexes when they do not exist yet.
// Safe to run on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &StorageError{Op: "ensure schema", Err: err}
		}
	}
	log.Info().Msg("mapping store schema ensured")
	return nil
}

// withRetry runs fn, retrying transient failures with exponential backoff.
// Permanent errors (constraint violations, bad SQL) surface immediately.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second

	err := backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Str("op", op).Msg("transient store error, retrying")
		return err
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

// isRetryable classifies errors worth retrying: lost connections, deadlocks,
// serialization failures.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization failure, deadlock
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08") // connection exceptions
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
