// Package sync holds the reconciliation engine: given an issue event and
// the side it came from, decide whether to create, update, or refuse to
// touch the peer issue, and keep the mapping records truthful while doing
// it. Comments ride the same records with their own loop suppression.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/erauner12/jirasync/internal/jira"
	"github.com/erauner12/jirasync/internal/model"
	"golang.org/x/time/rate"
)

// Caller errors. The HTTP surface maps these to 4xx responses; everything
// else a sync returns is a 5xx-grade failure.
var (
	ErrUnknownRecord = errors.New("unknown sync record")
	ErrNotInConflict = errors.New("sync record not in conflict")
)

// Client is the slice of the instance client the engine needs. Both sides
// get one; *jira.Client satisfies it.
type Client interface {
	Label() string
	ProjectKey() string
	GetIssue(ctx context.Context, key string) (jira.Issue, error)
	CreateIssue(ctx context.Context, fields map[string]any) (jira.Issue, error)
	ApplyIssueUpdates(ctx context.Context, key string, fields map[string]any, targetStatus string) error
	ProjectIssues(ctx context.Context) ([]jira.Issue, error)
	GetComment(ctx context.Context, issueKey, commentID string) (*jira.Comment, error)
	UpdateComment(ctx context.Context, issueKey, commentID, body string) (jira.Comment, error)
	DeleteComment(ctx context.Context, issueKey, commentID string) error
	CreateSyncComment(ctx context.Context, issueKey string, src jira.Comment, sourceLabel string) (jira.Comment, error)
}

// Store is the slice of the mapping store the engine needs; *store.Store
// satisfies it.
type Store interface {
	SaveIssueRecord(ctx context.Context, rec *model.IssueSyncRecord) error
	ReplaceIssueRecord(ctx context.Context, oldSyncID string, rec *model.IssueSyncRecord) error
	GetIssueRecord(ctx context.Context, syncID string) (*model.IssueSyncRecord, error)
	FindIssueRecordByKey(ctx context.Context, key string, side model.Side) (*model.IssueSyncRecord, error)
	ListIssueRecordsByStatus(ctx context.Context, status model.Status) ([]model.IssueSyncRecord, error)
	SaveCommentRecord(ctx context.Context, rec *model.CommentSyncRecord) error
	GetCommentRecord(ctx context.Context, syncID string) (*model.CommentSyncRecord, error)
	FindCommentBySource(ctx context.Context, issueKey, sourceCommentID string, target model.Side) (*model.CommentSyncRecord, error)
}

// Options are the engine tunables.
type Options struct {
	// MaxRetries bounds consecutive failures before the retry sweep gives
	// up on a record.
	MaxRetries int
	// RetryDelay is the pause before each retry in a retry sweep.
	RetryDelay time.Duration
	// SyncStatusTransitions propagates workflow status via transitions.
	SyncStatusTransitions bool
	// SyncAssignee propagates the assignee (account IDs must match).
	SyncAssignee bool
	// SyncComments mirrors comments between paired issues.
	SyncComments bool
	// SweepRate paces full-sync sweeps, in issues per second.
	SweepRate rate.Limit
}

const defaultSweepRate rate.Limit = 10

// Engine reconciles the two instances through the mapping store.
type Engine struct {
	left    Client
	right   Client
	store   Store
	opts    Options
	limiter *rate.Limiter
}

// New builds an engine. Zero option values fall back to the service
// defaults.
func New(left, right Client, st Store, opts Options) *Engine {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.SweepRate <= 0 {
		opts.SweepRate = defaultSweepRate
	}
	return &Engine{
		left:    left,
		right:   right,
		store:   st,
		opts:    opts,
		limiter: rate.NewLimiter(opts.SweepRate, 1),
	}
}

func (e *Engine) client(s model.Side) Client {
	if s == model.Left {
		return e.left
	}
	return e.right
}

func (e *Engine) payloadOptions(target model.Side) jira.PayloadOptions {
	return jira.PayloadOptions{
		ProjectKey:   e.client(target).ProjectKey(),
		SyncAssignee: e.opts.SyncAssignee,
	}
}

// Result reports what one sync operation did.
type Result struct {
	Success          bool                   `json:"success"`
	SyncID           string                 `json:"sync_id,omitempty"`
	Message          string                 `json:"message,omitempty"`
	ConflictDetected bool                   `json:"conflict_detected,omitempty"`
	Record           *model.IssueSyncRecord `json:"record,omitempty"`
}

// changedSince reports whether an issue moved past its watermark. A nil
// watermark means the side has never been synced, which counts as changed.
func changedSince(updated time.Time, watermark *time.Time) bool {
	return watermark == nil || updated.After(*watermark)
}
