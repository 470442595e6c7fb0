// Package main provides a CLI tool that sweeps stale search cache entries.
//
// The cache expires lazily: reads ignore stale rows but nothing removes
// them. This tool is the removal half, meant to run from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/litscout/scholar-search-service/internal/config"
	"github.com/litscout/scholar-search-service/internal/database"
	"github.com/litscout/scholar-search-service/internal/observability"
	"github.com/litscout/scholar-search-service/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Define CLI flags.
	olderThan := flag.Duration("older-than", 0, "Delete cache entries older than this (default: cache.cleanup_age from config)")
	dryRun := flag.Bool("dry-run", false, "Report how many entries would be deleted without deleting anything")
	flag.Parse()

	// Load configuration (database settings from env/config file).
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging with console output for the CLI tool.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "janitor").Logger()

	// Allow CLI flag to override the configured deletion age.
	age := *olderThan
	if age <= 0 {
		age = cfg.Cache.CleanupAge
	}
	if age <= 0 {
		return fmt.Errorf("no deletion age: set -older-than or cache.cleanup_age")
	}

	// Connect to the database.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	repo := repository.NewPgSearchCacheRepository(db)

	if *dryRun {
		count, err := repo.CountOlderThan(ctx, age)
		if err != nil {
			return fmt.Errorf("count stale entries: %w", err)
		}
		logger.Info().
			Dur("older_than", age).
			Int64("would_delete", count).
			Msg("dry run: no entries deleted")
		return nil
	}

	deleted, err := repo.DeleteOlderThan(ctx, age)
	if err != nil {
		return fmt.Errorf("delete stale entries: %w", err)
	}

	logger.Info().
		Dur("older_than", age).
		Int64("deleted", deleted).
		Msg("stale cache entries removed")
	return nil
}
