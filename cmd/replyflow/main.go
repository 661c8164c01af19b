package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"replyflow/internal/config"
	"replyflow/internal/constants"
	"replyflow/internal/database"
	"replyflow/internal/retry"
	"replyflow/internal/service"
	"replyflow/pkg/wagateway"
	"replyflow/pkg/wagateway/types"

	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ReplyFlow %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	// A local .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting ReplyFlow")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogLevel(logger, cfg.LogLevel)

	// Initialize database with exponential backoff retry; transient
	// filesystem or lock errors at boot should not kill the process
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: constants.DefaultDatabaseBackoffInitial,
		MaxDelay:     constants.DefaultDatabaseBackoffMax,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
	})
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	engine := service.NewRuleEngine(db, logger)
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	gateway := wagateway.NewGateway(types.ClientConfig{
		BaseURL:     cfg.Gateway.BaseURL,
		APIKey:      cfg.Gateway.APIKey,
		SessionName: cfg.Gateway.SessionName,
		Timeout:     cfg.Gateway.Timeout(),
	}, logger)

	policy := retry.NewSchedulePolicy(cfg.Reconnect.ScheduleSec, cfg.Reconnect.MaxAttempts)
	lifecycle := service.NewLifecycleManager(gateway, policy, logger)

	// Subscribe before Initialize so no early event is missed
	qrEvents, qrUnsubscribe := lifecycle.Subscribe()
	defer qrUnsubscribe()
	go renderQREvents(qrEvents, logger)

	pipelineEvents, pipelineUnsubscribe := lifecycle.Subscribe()
	defer pipelineUnsubscribe()

	if err := lifecycle.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize connection: %w", err)
	}

	processedBus := service.NewPublisher()
	defer processedBus.Close()

	pipeline := service.NewPipeline(engine, lifecycle, db, processedBus, logger)
	if err := pipeline.Start(pipelineEvents); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	server := NewServer(cfg.Server, engine, lifecycle, pipeline, db, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.GracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown was not clean")
	}
	pipeline.Stop()
	if err := lifecycle.Disconnect(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Transport disconnect was not clean")
	}

	logger.Info("Shutdown completed")
	return nil
}

func configureLogLevel(logger *logrus.Logger, configured string) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
		return
	}
	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}

// renderQREvents prints each credential challenge to the terminal so
// the operator can pair without opening the dashboard.
func renderQREvents(events <-chan service.Event, logger *logrus.Logger) {
	for event := range events {
		switch event.Type {
		case service.EventQR:
			fmt.Fprintln(os.Stdout, "Scan the QR code below to authenticate:")
			qrterminal.GenerateHalfBlock(event.QR, qrterminal.L, os.Stdout)
		case service.EventReady:
			logger.Info("Authenticated, session is ready")
		}
	}
}
