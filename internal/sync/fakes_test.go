package sync

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/erauner12/jirasync/internal/jira"
	"github.com/erauner12/jirasync/internal/model"
	"golang.org/x/time/rate"
)

// fakeClock hands out strictly increasing timestamps so watermark behavior
// is deterministic under test.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) tick() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

// appliedUpdate records one ApplyIssueUpdates call for assertions.
type appliedUpdate struct {
	key    string
	fields map[string]any
	status string
}

// fakeClient is a scripted in-memory stand-in for one instance.
type fakeClient struct {
	label   string
	project string
	clock   *fakeClock

	issues   map[string]jira.Issue
	comments map[string]map[string]jira.Comment

	issueSeq   int
	commentSeq int

	failGetIssue map[string]error
	failCreate   error
	failUpdate   error
	failList     error

	createCalls        int
	updateCalls        []appliedUpdate
	syncCommentCount   int
	updateCommentCount int
	deleteCommentCount int
}

func newFakeClient(label, project string, clock *fakeClock) *fakeClient {
	return &fakeClient{
		label:        label,
		project:      project,
		clock:        clock,
		issues:       map[string]jira.Issue{},
		comments:     map[string]map[string]jira.Comment{},
		failGetIssue: map[string]error{},
	}
}

func notFoundErr() error { return &jira.APIError{StatusCode: http.StatusNotFound} }

func (f *fakeClient) Label() string      { return f.label }
func (f *fakeClient) ProjectKey() string { return f.project }

// putIssue seeds an issue, stamping created/updated from the shared clock
// when the test did not pin them.
func (f *fakeClient) putIssue(is jira.Issue) jira.Issue {
	if is.Created.IsZero() {
		is.Created = f.clock.tick()
	}
	if is.Updated.IsZero() {
		is.Updated = is.Created
	}
	f.issues[is.Key] = is
	return is
}

// touch applies an edit to a stored issue and bumps its updated timestamp,
// the way a user edit on the real instance would.
func (f *fakeClient) touch(key string, edit func(*jira.Issue)) jira.Issue {
	is := f.issues[key]
	if edit != nil {
		edit(&is)
	}
	is.Updated = f.clock.tick()
	f.issues[key] = is
	return is
}

func (f *fakeClient) GetIssue(_ context.Context, key string) (jira.Issue, error) {
	if err := f.failGetIssue[key]; err != nil {
		return jira.Issue{}, err
	}
	is, ok := f.issues[key]
	if !ok {
		return jira.Issue{}, notFoundErr()
	}
	return is, nil
}

func (f *fakeClient) CreateIssue(_ context.Context, fields map[string]any) (jira.Issue, error) {
	if f.failCreate != nil {
		return jira.Issue{}, f.failCreate
	}
	f.createCalls++
	var key string
	for {
		f.issueSeq++
		key = fmt.Sprintf("%s-%d", f.project, f.issueSeq)
		if _, taken := f.issues[key]; !taken {
			break
		}
	}
	now := f.clock.tick()
	is := jira.Issue{
		Key:     key,
		Status:  "To Do",
		Created: now,
		Updated: now,
	}
	applyFields(&is, fields)
	f.issues[is.Key] = is
	return is, nil
}

func (f *fakeClient) ApplyIssueUpdates(_ context.Context, key string, fields map[string]any, targetStatus string) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	is, ok := f.issues[key]
	if !ok {
		return notFoundErr()
	}
	f.updateCalls = append(f.updateCalls, appliedUpdate{key: key, fields: fields, status: targetStatus})
	applyFields(&is, fields)
	if targetStatus != "" {
		is.Status = targetStatus
	}
	if len(fields) > 0 || targetStatus != "" {
		is.Updated = f.clock.tick()
	}
	f.issues[key] = is
	return nil
}

func (f *fakeClient) ProjectIssues(_ context.Context) ([]jira.Issue, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	keys := make([]string, 0, len(f.issues))
	for k := range f.issues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]jira.Issue, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.issues[k])
	}
	return out, nil
}

func (f *fakeClient) putComment(issueKey string, c jira.Comment) jira.Comment {
	if c.ID == "" {
		f.commentSeq++
		c.ID = fmt.Sprintf("%d", 9000+f.commentSeq)
	}
	if c.Created.IsZero() {
		c.Created = f.clock.tick()
	}
	if c.Updated.IsZero() {
		c.Updated = c.Created
	}
	if f.comments[issueKey] == nil {
		f.comments[issueKey] = map[string]jira.Comment{}
	}
	f.comments[issueKey][c.ID] = c
	return c
}

func (f *fakeClient) GetComment(_ context.Context, issueKey, commentID string) (*jira.Comment, error) {
	c, ok := f.comments[issueKey][commentID]
	if !ok {
		return nil, notFoundErr()
	}
	if !c.Public {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

func (f *fakeClient) UpdateComment(_ context.Context, issueKey, commentID, body string) (jira.Comment, error) {
	c, ok := f.comments[issueKey][commentID]
	if !ok {
		return jira.Comment{}, notFoundErr()
	}
	f.updateCommentCount++
	c.Body = body
	c.Updated = f.clock.tick()
	f.comments[issueKey][commentID] = c
	return c, nil
}

func (f *fakeClient) DeleteComment(_ context.Context, issueKey, commentID string) error {
	if _, ok := f.comments[issueKey][commentID]; !ok {
		return notFoundErr()
	}
	f.deleteCommentCount++
	delete(f.comments[issueKey], commentID)
	return nil
}

func (f *fakeClient) CreateSyncComment(_ context.Context, issueKey string, src jira.Comment, sourceLabel string) (jira.Comment, error) {
	f.syncCommentCount++
	return f.putComment(issueKey, jira.Comment{
		Body:   jira.RenderSyncBody(src, sourceLabel),
		Public: true,
	}), nil
}

// applyFields mirrors how the remote applies a payload to stored fields.
func applyFields(is *jira.Issue, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "project":
		case "summary":
			is.Summary, _ = v.(string)
		case "description":
			is.Description = docText(v)
		case "issuetype":
			is.IssueType = fieldName(v)
		case "priority":
			is.Priority = fieldName(v)
		case "labels":
			labels, _ := v.([]string)
			is.Labels = labels
		case "components":
			is.Components = fieldNames(v)
		case "fixVersions":
			is.FixVersions = fieldNames(v)
		case "assignee":
			if v == nil {
				is.Assignee = ""
			} else if m, ok := v.(map[string]any); ok {
				is.Assignee, _ = m["emailAddress"].(string)
			}
		default:
			if is.CustomFields == nil {
				is.CustomFields = map[string]any{}
			}
			is.CustomFields[k] = v
		}
	}
}

func fieldName(v any) string {
	m, _ := v.(map[string]any)
	name, _ := m["name"].(string)
	return name
}

func fieldNames(v any) []string {
	items, _ := v.([]map[string]any)
	out := make([]string, 0, len(items))
	for _, m := range items {
		if name, ok := m["name"].(string); ok {
			out = append(out, name)
		}
	}
	return out
}

// docText flattens the doc -> paragraph -> text payload shape back to the
// plain string a test asserts on.
func docText(v any) string {
	doc, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	var out string
	paragraphs, _ := doc["content"].([]any)
	for _, p := range paragraphs {
		pm, _ := p.(map[string]any)
		runs, _ := pm["content"].([]any)
		for _, r := range runs {
			rm, _ := r.(map[string]any)
			if text, ok := rm["text"].(string); ok {
				if out != "" {
					out += " "
				}
				out += text
			}
		}
	}
	return out
}

// fakeStore is an in-memory mapping store with the same copy-on-save
// semantics as the real one. statusLog records the status of every issue
// record save, in order, so tests can assert lifecycle transitions.
type fakeStore struct {
	issues    map[string]model.IssueSyncRecord
	comments  map[string]model.CommentSyncRecord
	statusLog []model.Status
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		issues:   map[string]model.IssueSyncRecord{},
		comments: map[string]model.CommentSyncRecord{},
	}
}

func (s *fakeStore) SaveIssueRecord(_ context.Context, rec *model.IssueSyncRecord) error {
	s.issues[rec.SyncID] = *rec
	s.statusLog = append(s.statusLog, rec.Status)
	return nil
}

func (s *fakeStore) ReplaceIssueRecord(_ context.Context, oldSyncID string, rec *model.IssueSyncRecord) error {
	delete(s.issues, oldSyncID)
	s.issues[rec.SyncID] = *rec
	s.statusLog = append(s.statusLog, rec.Status)
	return nil
}

func (s *fakeStore) GetIssueRecord(_ context.Context, syncID string) (*model.IssueSyncRecord, error) {
	rec, ok := s.issues[syncID]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (s *fakeStore) FindIssueRecordByKey(_ context.Context, key string, side model.Side) (*model.IssueSyncRecord, error) {
	for _, rec := range s.issues {
		if rec.Key(side) == key {
			cp := rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListIssueRecordsByStatus(_ context.Context, status model.Status) ([]model.IssueSyncRecord, error) {
	var out []model.IssueSyncRecord
	for _, rec := range s.issues {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SyncID < out[j].SyncID })
	return out, nil
}

func (s *fakeStore) SaveCommentRecord(_ context.Context, rec *model.CommentSyncRecord) error {
	s.comments[rec.SyncID] = *rec
	return nil
}

func (s *fakeStore) GetCommentRecord(_ context.Context, syncID string) (*model.CommentSyncRecord, error) {
	rec, ok := s.comments[syncID]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (s *fakeStore) FindCommentBySource(ctx context.Context, issueKey, sourceCommentID string, target model.Side) (*model.CommentSyncRecord, error) {
	return s.GetCommentRecord(ctx, model.CommentSyncID(issueKey, sourceCommentID, target))
}

// fixture wires an engine to fresh fakes sharing one clock.
type fixture struct {
	clock *fakeClock
	left  *fakeClient
	right *fakeClient
	store *fakeStore
	eng   *Engine
}

func newFixture(opts Options) *fixture {
	clock := newFakeClock()
	if opts.SweepRate == 0 {
		opts.SweepRate = rate.Inf
	}
	f := &fixture{
		clock: clock,
		left:  newFakeClient("left (https://left.example.com)", "PROJ", clock),
		right: newFakeClient("right (https://right.example.com)", "RPROJ", clock),
		store: newFakeStore(),
	}
	f.eng = New(f.left, f.right, f.store, opts)
	return f
}

func defaultOptions() Options {
	return Options{
		MaxRetries:            3,
		SyncStatusTransitions: true,
		SyncComments:          true,
		SweepRate:             rate.Inf,
	}
}

func (f *fixture) side(s model.Side) *fakeClient {
	if s == model.Left {
		return f.left
	}
	return f.right
}

// record fetches the issue record for key on side, nil when absent.
func (f *fixture) record(key string, side model.Side) *model.IssueSyncRecord {
	rec, _ := f.store.FindIssueRecordByKey(context.Background(), key, side)
	return rec
}
