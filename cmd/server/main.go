// Package main provides the entry point for the scholar search service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litscout/scholar-search-service/internal/config"
	"github.com/litscout/scholar-search-service/internal/database"
	"github.com/litscout/scholar-search-service/internal/events"
	"github.com/litscout/scholar-search-service/internal/observability"
	"github.com/litscout/scholar-search-service/internal/pdf"
	"github.com/litscout/scholar-search-service/internal/repository"
	"github.com/litscout/scholar-search-service/internal/scholar"
	"github.com/litscout/scholar-search-service/internal/search"
	httpserver "github.com/litscout/scholar-search-service/internal/server/http"
	"github.com/litscout/scholar-search-service/internal/topics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("scholar-search-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	metrics := observability.NewMetrics("scholar_search")

	// Create repositories.
	searchStore := repository.NewPgSearchStore(db, db)
	topicRepo := repository.NewPgTopicRepository(db)
	pdfRepo := repository.NewPgPDFRepository(db)
	statsRepo := repository.NewPgStatsRepository(db)

	// Assemble the scrape pipeline: fingerprint rotation, browser sessions,
	// pacing, detection, extraction.
	rotator := scholar.NewRotator(cfg.Scraper.UserAgents, cfg.Scraper.AcceptLanguage)
	sessions := scholar.NewChromeSessionFactory(scholar.SessionConfig{
		Headless:          cfg.Scraper.Headless,
		WindowWidth:       cfg.Scraper.WindowWidth,
		WindowHeight:      cfg.Scraper.WindowHeight,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
	}, rotator, logger)
	governor := scholar.NewGovernor(scholar.GovernorConfig{
		MinDelay: cfg.Scraper.MinDelay,
		MaxDelay: cfg.Scraper.MaxDelay,
		Backoff:  cfg.Scraper.ChallengeBackoff,
	})
	driver := scholar.NewDriver(scholar.DriverConfig{
		BaseURL:        cfg.Scraper.BaseURL,
		PageSize:       cfg.Scraper.PageSize,
		ResultsTimeout: cfg.Scraper.ResultsTimeout,
		RetryBudget:    cfg.Scraper.RetryBudget,
	}, sessions, governor, scholar.NewMonitor(logger), scholar.NewExtractor(logger), metrics, logger)
	resolver := scholar.NewAbstractResolver(sessions, governor, cfg.Scraper.AbstractLimit, logger)

	// Scrape lifecycle events.
	var emitter events.Emitter = events.NoopEmitter{}
	if cfg.Events.Enabled {
		kafkaEmitter := events.NewKafkaEmitter(events.Config{
			Brokers:      cfg.Events.Brokers,
			Topic:        cfg.Events.Topic,
			BatchTimeout: cfg.Events.BatchTimeout,
		}, logger)
		defer func() {
			if closeErr := kafkaEmitter.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close event emitter")
			}
		}()
		emitter = kafkaEmitter
		logger.Info().
			Strs("brokers", cfg.Events.Brokers).
			Str("topic", cfg.Events.Topic).
			Msg("scrape event publishing enabled")
	}

	searchService := search.NewService(
		search.Config{CacheTTL: cfg.Cache.TTL},
		searchStore,
		driver,
		resolver,
		emitter,
		metrics,
		logger,
	)

	topicGenerator := topics.NewGenerator(topics.Config{
		MaxKeywords:       cfg.Topics.MaxKeywords,
		Stopwords:         cfg.Topics.Stopwords,
		QuestionTemplates: cfg.Topics.QuestionTemplates,
	}, nil, topicRepo, metrics, logger)

	// PDF artifact handling.
	fetcher := pdf.NewFetcher(pdf.FetcherConfig{
		Dir:           cfg.Fetcher.Dir,
		Timeout:       cfg.Fetcher.Timeout,
		MaxSize:       cfg.Fetcher.MaxSizeBytes,
		RatePerSecond: cfg.Fetcher.RatePerSecond,
	}, metrics, logger)
	uploads := pdf.NewStore(cfg.Fetcher.Dir, logger)
	extractor := pdf.NewHeuristicExtractor(logger)

	// Create the HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
	}
	httpSrv := httpserver.NewServer(
		httpCfg,
		searchService,
		topicGenerator,
		fetcher,
		uploads,
		extractor,
		pdfRepo,
		statsRepo,
		db,
		metrics,
		logger,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("scholar-search-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down scholar-search-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("scholar-search-service shutdown complete")
	return nil
}
