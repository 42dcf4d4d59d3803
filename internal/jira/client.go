// Package jira is the REST client for one Jira instance: request plumbing
// with retry and rate-limit handling, the wire-to-domain decoding, ADF text
// conversion, sync-marker rendering, and the create/update payload builders.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MaxRetries is the maximum number of retry attempts for transport errors.
	MaxRetries = 3

	// DefaultBackoff is the initial backoff for transport-error retries; the
	// wait doubles on each attempt.
	DefaultBackoff = 1 * time.Second

	// DefaultRetryAfter is assumed when a 429 carries no usable Retry-After.
	DefaultRetryAfter = 60 * time.Second

	// MaxRateLimitWait bounds the total time one request may spend honoring
	// 429 responses before giving up with a RateLimitError.
	MaxRateLimitWait = 2 * time.Minute

	requestTimeout = 30 * time.Second
	apiPrefix      = "/rest/api/3"
)

// Config holds the connection settings for one instance.
type Config struct {
	BaseURL    string
	Username   string
	APIToken   string
	ProjectKey string
	// Label names the instance in logs and sync-comment headers ("left",
	// "right").
	Label string
}

// Client talks to a single Jira instance over its REST v3 API with basic
// auth. Transport errors retry with exponential backoff; 429 responses are
// honored via Retry-After without consuming a retry attempt, up to
// MaxRateLimitWait of total waiting per request.
type Client struct {
	cfg   Config
	httpc *http.Client

	// Overridable in tests to keep backoff waits short.
	backoff       time.Duration
	rateLimitWait time.Duration
}

// NewClient builds a client for one instance.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:           cfg,
		httpc:         &http.Client{Timeout: requestTimeout},
		backoff:       DefaultBackoff,
		rateLimitWait: MaxRateLimitWait,
	}
}

// ProjectKey returns the project this instance syncs.
func (c *Client) ProjectKey() string { return c.cfg.ProjectKey }

// Label returns the instance label used in logs and sync-comment headers.
func (c *Client) Label() string { return c.cfg.Label }

// doJSON performs one API call and decodes the response into out (skipped
// when out is nil). path is relative to the REST v3 prefix.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.cfg.BaseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	logger := log.Ctx(ctx).With().
		Str("instance", c.cfg.Label).
		Str("method", method).
		Str("path", path).
		Logger()

	resp, err := c.send(ctx, method, u, payload, &logger, 0, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send executes the request, retrying transport errors with exponential
// backoff and sleeping through 429s. attempt counts transport retries;
// rateWaited accumulates time already spent honoring Retry-After.
func (c *Client) send(ctx context.Context, method, u string, payload []byte, logger *zerolog.Logger, attempt int, rateWaited time.Duration) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := correlationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= MaxRetries {
			logger.Error().Err(err).Int("attempt", attempt).Msg("request failed, retries exhausted")
			return nil, fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
		}
		wait := c.backoff * time.Duration(1<<attempt)
		logger.Warn().Err(err).Dur("wait", wait).Int("attempt", attempt).Msg("transport error, retrying")
		select {
		case <-time.After(wait):
			return c.send(ctx, method, u, payload, logger, attempt+1, rateWaited)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Int("attempt", attempt).
		Msg("request completed")

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.handleRateLimit(ctx, method, u, payload, resp, logger, attempt, rateWaited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

// handleRateLimit sleeps for the server-requested interval and resends. The
// retry attempt counter is left alone; the cumulative wait budget is the
// only bound on 429 handling.
func (c *Client) handleRateLimit(ctx context.Context, method, u string, payload []byte, resp *http.Response, logger *zerolog.Logger, attempt int, rateWaited time.Duration) (*http.Response, error) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	wait := parseRetryAfter(resp.Header.Get("Retry-After"))
	if wait == 0 {
		wait = DefaultRetryAfter
	}

	if rateWaited+wait > c.rateLimitWait {
		logger.Warn().
			Dur("retryAfter", wait).
			Dur("alreadyWaited", rateWaited).
			Msg("rate limited past the wait budget")
		return nil, &RateLimitError{RetryAfter: wait}
	}

	logger.Warn().
		Dur("retryAfter", wait).
		Str("rateLimitRemaining", resp.Header.Get("X-RateLimit-Remaining")).
		Msg("rate limited, backing off")

	select {
	case <-time.After(wait):
		return c.send(ctx, method, u, payload, logger, attempt, rateWaited+wait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// newAPIError drains the response into a typed error. The body is truncated
// so a misbehaving instance cannot flood logs.
func newAPIError(resp *http.Response) error {
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	io.Copy(io.Discard, resp.Body)
	return &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
}

// parseRetryAfter parses the Retry-After header.
// Supports both integer seconds and HTTP-date format.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(value); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}
