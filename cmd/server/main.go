package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erauner12/jirasync/internal/config"
	"github.com/erauner12/jirasync/internal/httpapi"
	"github.com/erauner12/jirasync/internal/jira"
	"github.com/erauner12/jirasync/internal/scheduler"
	"github.com/erauner12/jirasync/internal/store"
	"github.com/erauner12/jirasync/internal/sync"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "jirasync").Logger()

	cfg := config.FromEnv()

	// Pretty logging for local dev
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mapping store
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	// One client per instance. The label shows up in logs and in the
	// sync-comment headers on mirrored comments.
	left := jira.NewClient(jira.Config{
		BaseURL:    cfg.Left.BaseURL,
		Username:   cfg.Left.Username,
		APIToken:   cfg.Left.APIToken,
		ProjectKey: cfg.Left.ProjectKey,
		Label:      fmt.Sprintf("left (%s)", cfg.Left.BaseURL),
	})
	right := jira.NewClient(jira.Config{
		BaseURL:    cfg.Right.BaseURL,
		Username:   cfg.Right.Username,
		APIToken:   cfg.Right.APIToken,
		ProjectKey: cfg.Right.ProjectKey,
		Label:      fmt.Sprintf("right (%s)", cfg.Right.BaseURL),
	})

	engine := sync.New(left, right, st, sync.Options{
		MaxRetries:            cfg.MaxRetries,
		RetryDelay:            cfg.RetryDelay,
		SyncStatusTransitions: cfg.SyncStatusTransitions,
		SyncAssignee:          cfg.SyncAssignee,
		SyncComments:          cfg.SyncComments,
	})

	// Background sweeps
	sched := &scheduler.Scheduler{
		Engine:        engine,
		RetryInterval: cfg.SyncInterval,
		FullInterval:  cfg.FullSyncInterval,
	}
	go sched.Run(ctx)

	// HTTP server setup
	srv := &httpapi.Server{Engine: engine, Records: st, Cfg: cfg}

	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv.Routes(),
		ReadTimeout: 15 * time.Second,
		// Sweeps triggered over HTTP can run long.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	cancel() // stop the scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}
