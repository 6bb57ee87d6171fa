package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scrapebot/internal/config"
	"scrapebot/internal/constants"
	"scrapebot/internal/database"
	"scrapebot/internal/models"
	"scrapebot/internal/retry"
	"scrapebot/internal/service"
	"scrapebot/internal/tracing"
	"scrapebot/internal/worker"
	"scrapebot/pkg/sheets"
	sheetstypes "scrapebot/pkg/sheets/types"
	slackapi "scrapebot/pkg/slack"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes unmasked Slack identifiers)")
	configPath = flag.String("config", ".env", "Path to configuration file (.env, YAML or JSON)")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ScrapeBot %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting ScrapeBot")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogger(logger, cfg, *verbose)

	tracingManager := tracing.NewTracingManager(cfg.Tracing, Version, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	queue, closeQueue, err := openQueue(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	// A missing header is not fatal; appends still land in the sheet.
	_ = service.NewHeaderInitializer(queue, cfg.HeaderRange(), logger).Initialize(ctx)

	slackClient := slackapi.NewClient(cfg.Slack, logger)
	if auth, err := slackClient.AuthTest(ctx); err != nil {
		logger.Warnf("Slack auth test failed: %v. Replies may not be delivered.", err)
	} else {
		logger.WithFields(logrus.Fields{
			"team":     auth.Team,
			"bot_user": auth.UserID,
		}).Info("Connected to Slack")
	}

	handlers := service.NewHandlers(
		service.NewDuplicateChecker(queue, cfg.QueueRange(), logger),
		service.NewQueueAppender(queue, slackClient, cfg.QueueRange(), logger),
		slackClient,
		cfg.Slack.SlashCommand,
		logger,
	)

	pool := worker.New(cfg.Worker.PoolSize, logger)

	g, gctx := errgroup.WithContext(ctx)
	dispatchCtx := service.WithVerbose(gctx, *verbose)

	server := NewServer(cfg, logger)
	if cfg.Slack.Mode == constants.SlackModeHTTP {
		webhook := slackapi.NewWebhookHandler(context.WithoutCancel(dispatchCtx), cfg.Slack.SigningSecret, handlers, pool, cfg.Slack.SlashCommand, logger)
		server.RegisterSlackRoutes(webhook)
	}

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if cfg.Slack.Mode == constants.SlackModeSocket {
		listener := slackapi.NewSocketListener(slackClient.API(), handlers, pool, cfg.Slack.SlashCommand, cfg.Slack.Debug, logger)
		g.Go(func() error {
			if err := listener.Run(dispatchCtx); err != nil {
				return fmt.Errorf("socket mode error: %w", err)
			}
			return nil
		})
	}

	logger.WithFields(logrus.Fields{
		"mode":    cfg.Slack.Mode,
		"backend": cfg.Queue.Backend,
		"command": cfg.Slack.SlashCommand,
		"workers": pool.Size(),
	}).Info("ScrapeBot is running")

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
		if err := pool.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Worker pool did not drain: %v", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}

func configureLogger(logger *logrus.Logger, cfg *models.Config, verbose bool) {
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - Slack identifiers will be logged unmasked")
		return
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// openQueue returns the configured queue backend and a func releasing it
func openQueue(ctx context.Context, cfg *models.Config, logger *logrus.Logger) (sheetstypes.SpreadsheetQueue, func(), error) {
	if cfg.Queue.Backend == constants.QueueBackendSQLite {
		var db *database.Database
		policy := retry.StartupPolicy()
		policy.OnRetry = func(attempt int, err error, wait time.Duration) {
			logger.Warnf("Failed to open queue database (attempt %d), retrying in %s: %v", attempt, wait, err)
		}
		err := retry.Do(ctx, policy, func(context.Context) error {
			var openErr error
			db, openErr = database.New(cfg.Queue.DBPath, cfg.Queue.EncryptionSecret)
			return openErr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open queue database after retries: %w", err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warnf("Failed to close queue database: %v", err)
			}
		}, nil
	}

	client, err := sheets.NewClient(ctx, cfg.Sheets, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Google Sheets client: %w", err)
	}
	return client, func() {}, nil
}
