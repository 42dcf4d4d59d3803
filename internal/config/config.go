// Package config reads the service configuration from the environment.
// Every tunable has a default; only the instance credentials, the store
// locator, and the webhook secret are required.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/erauner12/jirasync/internal/model"
)

// Defaults for the sync tunables.
const (
	DefaultSyncInterval     = 300 * time.Second
	DefaultFullSyncInterval = 3600 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 5 * time.Second
	DefaultHTTPAddr         = ":8080"
)

// SideConfig holds the connection settings for one Jira instance.
type SideConfig struct {
	BaseURL    string
	Username   string
	APIToken   string
	ProjectKey string
}

func (s SideConfig) complete() bool {
	return s.BaseURL != "" && s.Username != "" && s.APIToken != "" && s.ProjectKey != ""
}

// Config is the full service configuration.
type Config struct {
	Left  SideConfig
	Right SideConfig

	DatabaseURL   string
	WebhookSecret string

	SyncInterval     time.Duration
	FullSyncInterval time.Duration
	MaxRetries       int
	RetryDelay       time.Duration

	SyncStatusTransitions bool
	SyncAssignee          bool
	SyncComments          bool

	HTTPAddr       string
	AdminJWTSecret string
	Env            string
}

// FromEnv builds a Config from environment variables, applying defaults for
// everything optional. Call Validate before using it.
func FromEnv() Config {
	return Config{
		Left: SideConfig{
			BaseURL:    strings.TrimRight(os.Getenv("LEFT_BASE_URL"), "/"),
			Username:   os.Getenv("LEFT_USERNAME"),
			APIToken:   os.Getenv("LEFT_API_TOKEN"),
			ProjectKey: os.Getenv("LEFT_PROJECT_KEY"),
		},
		Right: SideConfig{
			BaseURL:    strings.TrimRight(os.Getenv("RIGHT_BASE_URL"), "/"),
			Username:   os.Getenv("RIGHT_USERNAME"),
			APIToken:   os.Getenv("RIGHT_API_TOKEN"),
			ProjectKey: os.Getenv("RIGHT_PROJECT_KEY"),
		},
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		SyncInterval:     envSeconds("SYNC_INTERVAL_SECONDS", DefaultSyncInterval),
		FullSyncInterval: envSeconds("FULL_SYNC_INTERVAL_SECONDS", DefaultFullSyncInterval),
		MaxRetries:       envInt("MAX_RETRIES", DefaultMaxRetries),
		RetryDelay:       envSeconds("RETRY_DELAY_SECONDS", DefaultRetryDelay),

		SyncStatusTransitions: envBool("SYNC_STATUS_TRANSITIONS", true),
		SyncAssignee:          envBool("SYNC_ASSIGNEE", false),
		SyncComments:          envBool("SYNC_COMMENTS", true),

		HTTPAddr:       env("HTTP_ADDR", DefaultHTTPAddr),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		Env:            env("ENV", "dev"),
	}
}

// Validate returns an error naming every missing required variable.
func (c Config) Validate() error {
	var missing []string
	add := func(name, v string) {
		if v == "" {
			missing = append(missing, name)
		}
	}
	add("LEFT_BASE_URL", c.Left.BaseURL)
	add("LEFT_USERNAME", c.Left.Username)
	add("LEFT_API_TOKEN", c.Left.APIToken)
	add("LEFT_PROJECT_KEY", c.Left.ProjectKey)
	add("RIGHT_BASE_URL", c.Right.BaseURL)
	add("RIGHT_USERNAME", c.Right.Username)
	add("RIGHT_API_TOKEN", c.Right.APIToken)
	add("RIGHT_PROJECT_KEY", c.Right.ProjectKey)
	add("DATABASE_URL", c.DatabaseURL)
	add("WEBHOOK_SECRET", c.WebhookSecret)
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Side returns the settings for the given instance.
func (c Config) Side(s model.Side) SideConfig {
	if s == model.Left {
		return c.Left
	}
	return c.Right
}

// Summary returns a redacted view of the configuration for surfaces like
// the health endpoint. Secrets are reported as present/absent only.
func (c Config) Summary() map[string]any {
	return map[string]any{
		"left_base_url":           c.Left.BaseURL,
		"left_project_key":        c.Left.ProjectKey,
		"left_configured":         c.Left.complete(),
		"right_base_url":          c.Right.BaseURL,
		"right_project_key":       c.Right.ProjectKey,
		"right_configured":        c.Right.complete(),
		"store_configured":        c.DatabaseURL != "",
		"webhook_secret_set":      c.WebhookSecret != "",
		"sync_interval_seconds":   int(c.SyncInterval / time.Second),
		"max_retries":             c.MaxRetries,
		"sync_status_transitions": c.SyncStatusTransitions,
		"sync_assignee":           c.SyncAssignee,
		"sync_comments":           c.SyncComments,
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envSeconds(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func envBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}
