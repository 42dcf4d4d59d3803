package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erauner12/jirasync/internal/model"
	"github.com/jackc/pgx/v5"
)

const issueColumns = `sync_id, left_key, right_key, left_last_updated, right_last_updated,
	sync_status, last_sync_direction, last_sync_timestamp, error_count, error_message,
	requires_manual_resolution, conflict_details, created_at, updated_at`

const upsertIssueSQL = `
	INSERT INTO issue_sync (` + issueColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (sync_id) DO UPDATE SET
		left_key                   = EXCLUDED.left_key,
		right_key                  = EXCLUDED.right_key,
		left_last_updated          = EXCLUDED.left_last_updated,
		right_last_updated         = EXCLUDED.right_last_updated,
		sync_status                = EXCLUDED.sync_status,
		last_sync_direction        = EXCLUDED.last_sync_direction,
		last_sync_timestamp        = EXCLUDED.last_sync_timestamp,
		error_count                = EXCLUDED.error_count,
		error_message              = EXCLUDED.error_message,
		requires_manual_resolution = EXCLUDED.requires_manual_resolution,
		conflict_details           = EXCLUDED.conflict_details,
		created_at                 = issue_sync.created_at,
		updated_at                 = EXCLUDED.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssueRecord(row rowScanner) (*model.IssueSyncRecord, error) {
	var rec model.IssueSyncRecord
	var status, direction string
	err := row.Scan(
		&rec.SyncID, &rec.LeftKey, &rec.RightKey,
		&rec.LeftLastUpdated, &rec.RightLastUpdated,
		&status, &direction, &rec.LastSyncTimestamp,
		&rec.ErrorCount, &rec.ErrorMessage,
		&rec.RequiresManualResolution, &rec.ConflictDetails,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = model.Status(status)
	rec.LastSyncDirection = model.Direction(direction)
	return &rec, nil
}

func issueRecordArgs(rec *model.IssueSyncRecord) []any {
	return []any{
		rec.SyncID, rec.LeftKey, rec.RightKey,
		rec.LeftLastUpdated, rec.RightLastUpdated,
		string(rec.Status), string(rec.LastSyncDirection), rec.LastSyncTimestamp,
		rec.ErrorCount, rec.ErrorMessage,
		rec.RequiresManualResolution, rec.ConflictDetails,
		rec.CreatedAt, rec.UpdatedAt,
	}
}

// SaveIssueRecord upserts the whole record (last write wins) and stamps its
// timestamps. created_at is kept from the first write.
func (s *Store) SaveIssueRecord(ctx context.Context, rec *model.IssueSyncRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	return s.withRetry(ctx, "save issue record", func() error {
		_, err := s.pool.Exec(ctx, upsertIssueSQL, issueRecordArgs(rec)...)
		return err
	})
}

// ReplaceIssueRecord atomically retires a record under its old ID and saves
// it under the new one. Used when a half-formed pair learns its peer key
// and the sync ID becomes canonical.
func (s *Store) ReplaceIssueRecord(ctx context.Context, oldSyncID string, rec *model.IssueSyncRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	return s.withRetry(ctx, "replace issue record", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, `DELETE FROM issue_sync WHERE sync_id = $1`, oldSyncID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertIssueSQL, issueRecordArgs(rec)...); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// DeleteIssueRecord removes a record. Missing records are not an error.
func (s *Store) DeleteIssueRecord(ctx context.Context, syncID string) error {
	return s.withRetry(ctx, "delete issue record", func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM issue_sync WHERE sync_id = $1`, syncID)
		return err
	})
}

// GetIssueRecord fetches one record by sync ID, nil when absent.
func (s *Store) GetIssueRecord(ctx context.Context, syncID string) (*model.IssueSyncRecord, error) {
	var rec *model.IssueSyncRecord
	err := s.withRetry(ctx, "get issue record", func() error {
		got, err := scanIssueRecord(s.pool.QueryRow(ctx,
			`SELECT `+issueColumns+` FROM issue_sync WHERE sync_id = $1`, syncID))
		if errors.Is(err, pgx.ErrNoRows) {
			rec = nil
			return nil
		}
		if err != nil {
			return err
		}
		rec = got
		return nil
	})
	return rec, err
}

// FindIssueRecordByKey looks a record up by the issue key on one side, nil
// when that key has no mapping yet.
func (s *Store) FindIssueRecordByKey(ctx context.Context, key string, side model.Side) (*model.IssueSyncRecord, error) {
	col := "left_key"
	if side == model.Right {
		col = "right_key"
	}
	query := fmt.Sprintf(`SELECT %s FROM issue_sync WHERE %s = $1`, issueColumns, col)

	var rec *model.IssueSyncRecord
	err := s.withRetry(ctx, "find issue record by key", func() error {
		got, err := scanIssueRecord(s.pool.QueryRow(ctx, query, key))
		if errors.Is(err, pgx.ErrNoRows) {
			rec = nil
			return nil
		}
		if err != nil {
			return err
		}
		rec = got
		return nil
	})
	return rec, err
}

// ListIssueRecordsByStatus returns every record in one status, oldest
// update first so sweeps work through the backlog in order.
func (s *Store) ListIssueRecordsByStatus(ctx context.Context, status model.Status) ([]model.IssueSyncRecord, error) {
	var out []model.IssueSyncRecord
	err := s.withRetry(ctx, "list issue records by status", func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT `+issueColumns+` FROM issue_sync WHERE sync_status = $1 ORDER BY updated_at`,
			string(status))
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			rec, err := scanIssueRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, *rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScanIssueRecords pages through records in sync_id order, optionally
// filtered by status. Returns the page and the cursor for the next one
// ("" when the scan is done).
func (s *Store) ScanIssueRecords(ctx context.Context, status model.Status, cursor string, limit int) ([]model.IssueSyncRecord, string, error) {
	after, _ := DecodeCursor(cursor)

	var out []model.IssueSyncRecord
	err := s.withRetry(ctx, "scan issue records", func() error {
		rows, err := s.pool.Query(ctx, `
			SELECT `+issueColumns+`
			FROM issue_sync
			WHERE sync_id > $1
			  AND ($2 = '' OR sync_status = $2)
			ORDER BY sync_id
			LIMIT $3`,
			after, string(status), limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			rec, err := scanIssueRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, *rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(out) == limit && limit > 0 {
		next = EncodeCursor(out[len(out)-1].SyncID)
	}
	return out, next, nil
}

// CountIssueRecordsByStatus returns how many records sit in each status.
func (s *Store) CountIssueRecordsByStatus(ctx context.Context) (map[model.Status]int, error) {
	counts := make(map[model.Status]int)
	err := s.withRetry(ctx, "count issue records", func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT sync_status, COUNT(*) FROM issue_sync GROUP BY sync_status`)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(counts)
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			counts[model.Status(status)] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

const commentColumns = `sync_id, issue_sync_id, issue_key, source_comment_id,
	target_comment_id, source_side, target_side, sync_direction, sync_status,
	last_sync_timestamp, error_message, created_at, updated_at`

func scanCommentRecord(row rowScanner) (*model.CommentSyncRecord, error) {
	var rec model.CommentSyncRecord
	var status, direction string
	var sourceSide, targetSide int16
	err := row.Scan(
		&rec.SyncID, &rec.IssueSyncID, &rec.IssueKey, &rec.SourceCommentID,
		&rec.TargetCommentID, &sourceSide, &targetSide, &direction, &status,
		&rec.LastSyncTimestamp, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = model.Status(status)
	rec.Direction = model.Direction(direction)
	rec.SourceSide = model.Side(sourceSide)
	rec.TargetSide = model.Side(targetSide)
	return &rec, nil
}

// SaveCommentRecord upserts the whole record (last write wins) and stamps
// its timestamps.
func (s *Store) SaveCommentRecord(ctx context.Context, rec *model.CommentSyncRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	return s.withRetry(ctx, "save comment record", func() error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO comment_sync (`+commentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (sync_id) DO UPDATE SET
				issue_sync_id       = EXCLUDED.issue_sync_id,
				issue_key           = EXCLUDED.issue_key,
				source_comment_id   = EXCLUDED.source_comment_id,
				target_comment_id   = EXCLUDED.target_comment_id,
				source_side         = EXCLUDED.source_side,
				target_side         = EXCLUDED.target_side,
				sync_direction      = EXCLUDED.sync_direction,
				sync_status         = EXCLUDED.sync_status,
				last_sync_timestamp = EXCLUDED.last_sync_timestamp,
				error_message       = EXCLUDED.error_message,
				created_at          = comment_sync.created_at,
				updated_at          = EXCLUDED.updated_at`,
			rec.SyncID, rec.IssueSyncID, rec.IssueKey, rec.SourceCommentID,
			rec.TargetCommentID, int16(rec.SourceSide), int16(rec.TargetSide),
			string(rec.Direction), string(rec.Status), rec.LastSyncTimestamp,
			rec.ErrorMessage, rec.CreatedAt, rec.UpdatedAt)
		return err
	})
}

// GetCommentRecord fetches one comment record by sync ID, nil when absent.
func (s *Store) GetCommentRecord(ctx context.Context, syncID string) (*model.CommentSyncRecord, error) {
	var rec *model.CommentSyncRecord
	err := s.withRetry(ctx, "get comment record", func() error {
		got, err := scanCommentRecord(s.pool.QueryRow(ctx,
			`SELECT `+commentColumns+` FROM comment_sync WHERE sync_id = $1`, syncID))
		if errors.Is(err, pgx.ErrNoRows) {
			rec = nil
			return nil
		}
		if err != nil {
			return err
		}
		rec = got
		return nil
	})
	return rec, err
}

// FindCommentBySource resolves the record for a source comment mirrored
// toward the given target side. The sync ID is fully derived from those
// three values, so this is a primary-key read.
func (s *Store) FindCommentBySource(ctx context.Context, issueKey, sourceCommentID string, target model.Side) (*model.CommentSyncRecord, error) {
	return s.GetCommentRecord(ctx, model.CommentSyncID(issueKey, sourceCommentID, target))
}

// ListCommentRecordsForIssue returns the comment records attached to one
// issue pair, oldest first.
func (s *Store) ListCommentRecordsForIssue(ctx context.Context, issueSyncID string) ([]model.CommentSyncRecord, error) {
	var out []model.CommentSyncRecord
	err := s.withRetry(ctx, "list comment records", func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT `+commentColumns+` FROM comment_sync WHERE issue_sync_id = $1 ORDER BY created_at`,
			issueSyncID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			rec, err := scanCommentRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, *rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
