package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const searchPageSize = 50

// GetIssue fetches one issue with all fields and its comments in a single
// round trip.
func (c *Client) GetIssue(ctx context.Context, key string) (Issue, error) {
	q := url.Values{
		"expand": {"changelog"},
		"fields": {"*all"},
	}
	var w issueWire
	if err := c.doJSON(ctx, http.MethodGet, "/issue/"+key, q, nil, &w); err != nil {
		return Issue{}, fmt.Errorf("get issue %s: %w", key, err)
	}
	return decodeIssue(w), nil
}

// CreateIssue creates an issue from a CreatePayload fields map and returns
// the created issue re-fetched in full, so callers get server-assigned
// values (key, timestamps, workflow status).
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (Issue, error) {
	var created createdIssueWire
	body := map[string]any{"fields": fields}
	if err := c.doJSON(ctx, http.MethodPost, "/issue", nil, body, &created); err != nil {
		return Issue{}, fmt.Errorf("create issue: %w", err)
	}
	log.Ctx(ctx).Info().
		Str("instance", c.cfg.Label).
		Str("key", created.Key).
		Msg("issue created")
	return c.GetIssue(ctx, created.Key)
}

// UpdateIssue applies an UpdatePayload fields map. Status is not a field;
// use TransitionToStatus. An empty map is a no-op.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	body := map[string]any{"fields": fields}
	if err := c.doJSON(ctx, http.MethodPut, "/issue/"+key, nil, body, nil); err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}
	return nil
}

// SearchIssues runs a JQL query returning one page of issues plus the total
// match count.
func (c *Client) SearchIssues(ctx context.Context, jql string, startAt, maxResults int) ([]Issue, int, error) {
	req := searchRequest{
		JQL:        jql,
		StartAt:    startAt,
		MaxResults: maxResults,
		Fields:     []string{"*all"},
	}
	var resp searchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/search", nil, req, &resp); err != nil {
		return nil, 0, fmt.Errorf("search issues: %w", err)
	}
	issues := make([]Issue, 0, len(resp.Issues))
	for _, w := range resp.Issues {
		issues = append(issues, decodeIssue(w))
	}
	return issues, resp.Total, nil
}

// ProjectIssues pages through every issue in the configured project.
func (c *Client) ProjectIssues(ctx context.Context) ([]Issue, error) {
	jql := fmt.Sprintf("project = %q ORDER BY created ASC", c.cfg.ProjectKey)
	var all []Issue
	for startAt := 0; ; {
		page, total, err := c.SearchIssues(ctx, jql, startAt, searchPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		startAt += len(page)
		if len(page) == 0 || startAt >= total {
			return all, nil
		}
	}
}

// Transitions lists the workflow transitions currently available on an
// issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	var w transitionListWire
	if err := c.doJSON(ctx, http.MethodGet, "/issue/"+key+"/transitions", nil, nil, &w); err != nil {
		return nil, fmt.Errorf("get transitions for %s: %w", key, err)
	}
	out := make([]Transition, 0, len(w.Transitions))
	for _, t := range w.Transitions {
		out = append(out, decodeTransition(t))
	}
	return out, nil
}

// TransitionIssue executes one transition by ID.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	body := map[string]any{"transition": map[string]any{"id": transitionID}}
	if err := c.doJSON(ctx, http.MethodPost, "/issue/"+key+"/transitions", nil, body, nil); err != nil {
		return fmt.Errorf("transition issue %s: %w", key, err)
	}
	return nil
}

// TransitionToStatus moves an issue to the status named targetStatus,
// matching available transitions by target status name case-insensitively.
// Returns false when no available transition reaches the status and the
// issue is not already there; workflows differ between instances, so an
// unreachable status is expected and left to the caller to log.
func (c *Client) TransitionToStatus(ctx context.Context, key, targetStatus string) (bool, error) {
	transitions, err := c.Transitions(ctx, key)
	if err != nil {
		return false, err
	}
	for _, t := range transitions {
		if strings.EqualFold(t.ToStatus, targetStatus) {
			if err := c.TransitionIssue(ctx, key, t.ID); err != nil {
				return false, err
			}
			log.Ctx(ctx).Info().
				Str("instance", c.cfg.Label).
				Str("key", key).
				Str("transition", t.Name).
				Str("status", targetStatus).
				Msg("issue transitioned")
			return true, nil
		}
	}

	// No direct path; the issue may already be in the target status.
	issue, err := c.GetIssue(ctx, key)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(issue.Status, targetStatus) {
		return true, nil
	}

	names := make([]string, 0, len(transitions))
	for _, t := range transitions {
		names = append(names, t.ToStatus)
	}
	log.Ctx(ctx).Warn().
		Str("instance", c.cfg.Label).
		Str("key", key).
		Str("targetStatus", targetStatus).
		Strs("reachable", names).
		Msg("no transition reaches target status")
	return false, nil
}

// ApplyIssueUpdates pushes changed fields, then attempts to match the
// source's workflow status. An unreachable status downgrades to a warning;
// the field update is already in place and the peer workflows may simply
// not line up.
func (c *Client) ApplyIssueUpdates(ctx context.Context, key string, fields map[string]any, targetStatus string) error {
	if err := c.UpdateIssue(ctx, key, fields); err != nil {
		return err
	}
	if targetStatus == "" {
		return nil
	}
	ok, err := c.TransitionToStatus(ctx, key, targetStatus)
	if err != nil {
		return fmt.Errorf("transition %s to %q: %w", key, targetStatus, err)
	}
	if !ok {
		log.Ctx(ctx).Warn().
			Str("instance", c.cfg.Label).
			Str("key", key).
			Str("targetStatus", targetStatus).
			Msg("status left unchanged")
	}
	return nil
}
