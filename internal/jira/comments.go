package jira

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Comments lists the public comments on an issue.
func (c *Client) Comments(ctx context.Context, issueKey string) ([]Comment, error) {
	var w commentListWire
	if err := c.doJSON(ctx, http.MethodGet, "/issue/"+issueKey+"/comment", nil, nil, &w); err != nil {
		return nil, fmt.Errorf("list comments on %s: %w", issueKey, err)
	}
	out := make([]Comment, 0, len(w.Comments))
	for _, cw := range w.Comments {
		if comment, public := decodeComment(cw); public {
			out = append(out, comment)
		}
	}
	return out, nil
}

// GetComment fetches one comment. Returns (nil, nil) for internal
// service-desk comments, which are invisible to the sync.
func (c *Client) GetComment(ctx context.Context, issueKey, commentID string) (*Comment, error) {
	var w commentWire
	if err := c.doJSON(ctx, http.MethodGet, "/issue/"+issueKey+"/comment/"+commentID, nil, nil, &w); err != nil {
		return nil, fmt.Errorf("get comment %s on %s: %w", commentID, issueKey, err)
	}
	comment, public := decodeComment(w)
	if !public {
		return nil, nil
	}
	return &comment, nil
}

// AddComment posts a plain-text comment and returns it as created.
func (c *Client) AddComment(ctx context.Context, issueKey, body string) (Comment, error) {
	var w commentWire
	payload := map[string]any{"body": adfDoc(body)}
	if err := c.doJSON(ctx, http.MethodPost, "/issue/"+issueKey+"/comment", nil, payload, &w); err != nil {
		return Comment{}, fmt.Errorf("add comment on %s: %w", issueKey, err)
	}
	comment, _ := decodeComment(w)
	return comment, nil
}

// UpdateComment replaces a comment's body and returns the updated comment.
func (c *Client) UpdateComment(ctx context.Context, issueKey, commentID, body string) (Comment, error) {
	var w commentWire
	payload := map[string]any{"body": adfDoc(body)}
	if err := c.doJSON(ctx, http.MethodPut, "/issue/"+issueKey+"/comment/"+commentID, nil, payload, &w); err != nil {
		return Comment{}, fmt.Errorf("update comment %s on %s: %w", commentID, issueKey, err)
	}
	comment, _ := decodeComment(w)
	return comment, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, issueKey, commentID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/issue/"+issueKey+"/comment/"+commentID, nil, nil, nil); err != nil {
		return fmt.Errorf("delete comment %s on %s: %w", commentID, issueKey, err)
	}
	return nil
}

// CreateSyncComment mirrors a source comment onto issueKey with the
// provenance header prepended, so the copy is attributable and never syncs
// back.
func (c *Client) CreateSyncComment(ctx context.Context, issueKey string, src Comment, sourceLabel string) (Comment, error) {
	created, err := c.AddComment(ctx, issueKey, RenderSyncBody(src, sourceLabel))
	if err != nil {
		return Comment{}, err
	}
	log.Ctx(ctx).Info().
		Str("instance", c.cfg.Label).
		Str("issue", issueKey).
		Str("sourceComment", src.ID).
		Str("mirroredComment", created.ID).
		Msg("sync comment created")
	return created, nil
}
