// Package model holds the domain types shared by the sync engine, the
// mapping store, and the HTTP surface: which side an event came from, the
// lifecycle status of a sync record, and the records themselves.
package model

import (
	"fmt"
	"time"
)

// Side identifies one of the two Jira instances being kept in sync.
type Side int

const (
	// Left is the first configured instance.
	Left Side = 1
	// Right is the second configured instance.
	Right Side = 2
)

// String returns the lowercase side name used in sync IDs and logs.
func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Valid reports whether s is Left or Right.
func (s Side) Valid() bool {
	return s == Left || s == Right
}

// ParseSide accepts "left"/"right" and the numeric instance labels "1"/"2".
func ParseSide(v string) (Side, error) {
	switch v {
	case "left", "1":
		return Left, nil
	case "right", "2":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown side %q", v)
	}
}

// MarshalText renders the side name, so records serialize as "left"/"right"
// rather than internal numbers.
func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown side %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts anything ParseSide does.
func (s *Side) UnmarshalText(b []byte) error {
	parsed, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Direction records which way the last write flowed.
type Direction string

const (
	LeftToRight Direction = "left_to_right"
	RightToLeft Direction = "right_to_left"
)

// DirectionFrom returns the direction whose source is the given side.
func DirectionFrom(source Side) Direction {
	if source == Left {
		return LeftToRight
	}
	return RightToLeft
}

// Source returns the side a sync in this direction reads from.
func (d Direction) Source() Side {
	if d == LeftToRight {
		return Left
	}
	return Right
}

// Target returns the side a sync in this direction writes to.
func (d Direction) Target() Side {
	return d.Source().Other()
}

// Status is the lifecycle state of a sync record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusConflict   Status = "conflict"
)

// ValidStatus reports whether v names a known status.
func ValidStatus(v string) bool {
	switch Status(v) {
	case StatusPending, StatusInProgress, StatusSuccess, StatusFailed, StatusConflict:
		return true
	}
	return false
}

// UnknownKey is the placeholder used in a sync ID while the peer issue does
// not exist yet.
const UnknownKey = "unknown"

// IssueSyncID builds the canonical pair identifier "{left}#{right}".
func IssueSyncID(leftKey, rightKey string) string {
	if leftKey == "" {
		leftKey = UnknownKey
	}
	if rightKey == "" {
		rightKey = UnknownKey
	}
	return leftKey + "#" + rightKey
}

// ProvisionalSyncID builds the half-formed identifier "{key}#unknown" used
// while the peer issue is being created.
func ProvisionalSyncID(sourceKey string) string {
	return sourceKey + "#" + UnknownKey
}

// CommentSyncID builds the comment record identifier
// "{issue_key}#{comment_id}#{target_side}".
func CommentSyncID(issueKey, commentID string, target Side) string {
	return fmt.Sprintf("%s#%s#%s", issueKey, commentID, target)
}

// IssueSyncRecord is the durable mapping between one issue pair plus the
// bookkeeping the reconciler needs: per-side watermarks, lifecycle status,
// retry counters, and conflict details.
type IssueSyncRecord struct {
	SyncID                   string     `json:"sync_id"`
	LeftKey                  string     `json:"left_key,omitempty"`
	RightKey                 string     `json:"right_key,omitempty"`
	LeftLastUpdated          *time.Time `json:"left_last_updated,omitempty"`
	RightLastUpdated         *time.Time `json:"right_last_updated,omitempty"`
	Status                   Status     `json:"sync_status"`
	LastSyncDirection        Direction  `json:"last_sync_direction,omitempty"`
	LastSyncTimestamp        time.Time  `json:"last_sync_timestamp"`
	ErrorCount               int        `json:"error_count"`
	ErrorMessage             string     `json:"error_message,omitempty"`
	RequiresManualResolution bool       `json:"requires_manual_resolution"`
	ConflictDetails          string     `json:"conflict_details,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// Key returns the issue key on the given side, "" when that half of the
// pair is not established yet.
func (r *IssueSyncRecord) Key(s Side) string {
	if s == Left {
		return r.LeftKey
	}
	return r.RightKey
}

// SetKey stores the issue key for the given side.
func (r *IssueSyncRecord) SetKey(s Side, key string) {
	if s == Left {
		r.LeftKey = key
	} else {
		r.RightKey = key
	}
}

// Watermark returns the last-synced timestamp observed on the given side,
// nil when that side has never been synced.
func (r *IssueSyncRecord) Watermark(s Side) *time.Time {
	if s == Left {
		return r.LeftLastUpdated
	}
	return r.RightLastUpdated
}

// SetWatermark stores the last-synced timestamp for the given side.
func (r *IssueSyncRecord) SetWatermark(s Side, t time.Time) {
	u := t.UTC()
	if s == Left {
		r.LeftLastUpdated = &u
	} else {
		r.RightLastUpdated = &u
	}
}

// CanonicalSyncID recomputes the pair identifier from the stored keys.
func (r *IssueSyncRecord) CanonicalSyncID() string {
	return IssueSyncID(r.LeftKey, r.RightKey)
}

// CommentSyncRecord maps one source comment to its mirrored copy on the
// target side.
type CommentSyncRecord struct {
	SyncID            string    `json:"sync_id"`
	IssueSyncID       string    `json:"issue_sync_id"`
	IssueKey          string    `json:"issue_key"`
	SourceCommentID   string    `json:"source_comment_id"`
	TargetCommentID   string    `json:"target_comment_id,omitempty"`
	SourceSide        Side      `json:"source_side"`
	TargetSide        Side      `json:"target_side"`
	Direction         Direction `json:"sync_direction"`
	Status            Status    `json:"sync_status"`
	LastSyncTimestamp time.Time `json:"last_sync_timestamp"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
