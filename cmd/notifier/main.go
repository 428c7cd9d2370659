package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/nahidhasan98/commit-notifier/internal/config"
	"github.com/nahidhasan98/commit-notifier/internal/cycle"
	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/feed"
	"github.com/nahidhasan98/commit-notifier/internal/format"
	"github.com/nahidhasan98/commit-notifier/internal/handlers"
	"github.com/nahidhasan98/commit-notifier/internal/ledger"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/metrics"
	"github.com/nahidhasan98/commit-notifier/internal/notifier"
	"github.com/nahidhasan98/commit-notifier/internal/reporter"
	"github.com/nahidhasan98/commit-notifier/internal/server"
	"github.com/nahidhasan98/commit-notifier/internal/sink"
	"github.com/nahidhasan98/commit-notifier/internal/validation"
)

const whatsAppConnectTimeout = 2 * time.Minute

// Global variables for configuration and services
var (
	cfg          *config.Config
	log          *logger.Logger
	appMetrics   *metrics.Metrics
	waSink       *sink.WhatsApp
	orchestrator *cycle.Orchestrator
	errChan      = make(chan error, 2)
)

func main() {
	resendID := flag.String("resend-commit", "", "resend the notification for a commit already in the ledger, then exit")
	envFile := flag.String("env-file", ".env", "optional file with environment variables")
	flag.Parse()

	// Create a context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize configuration and services
	if err := initialize(ctx, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Initialization error: %v\n", err)
		os.Exit(1)
	}

	if flag.CommandLine.Changed("resend-commit") {
		os.Exit(resend(ctx, *resendID))
	}

	// Create a wait group for graceful shutdown
	var wg sync.WaitGroup

	startPolling(ctx, &wg)
	startWebServer(ctx, &wg)

	// Handle shutdown signals
	waitForShutdown(cancel, &wg)
}

func initialize(ctx context.Context, envFile string) error {
	var err error

	// Load configuration
	cfg, err = config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Infof("Starting Commit Notifier for %s", cfg.Feed.Repository)

	appMetrics = metrics.New()
	httpClient := &http.Client{Timeout: cfg.Feed.HTTPTimeout}

	// The sink reports through the reporter, so alerts are attached afterwards
	errorReporter := reporter.New(cfg.Ledger.DiagnosticLogPath, cfg.Notify.OwnerID, nil, appMetrics, log)

	out, err := newSink(ctx, httpClient)
	if err != nil {
		return err
	}
	errorReporter.SetAlertSender(out)

	store := ledger.NewStore(cfg.Ledger.Path, cfg.Ledger.QuarantineCorrupt, errorReporter, log)
	fetcher := feed.NewFetcher(httpClient, cfg.Feed.BaseURL, cfg.Feed.Repository, errorReporter, log)
	formatter := format.New(format.Options{
		FeedBaseURL:      cfg.Feed.BaseURL,
		FilesBaseURL:     cfg.Feed.FilesBaseURL,
		Repository:       cfg.Feed.Repository,
		RoleID:           cfg.Notify.RoleID,
		BrandingIconURL:  cfg.Notify.BrandingIconURL,
		DefaultAvatarURL: cfg.Notify.DefaultAvatarURL,
	})
	delivery := notifier.New(out, appMetrics, log)

	orchestrator = cycle.New(store, fetcher, formatter, delivery, errorReporter, appMetrics, log)
	return nil
}

func newSink(ctx context.Context, httpClient *http.Client) (sink.Sink, error) {
	if cfg.Sink.Type != config.SinkWhatsApp {
		log.Info("Delivering notifications to the Discord webhook")
		return sink.NewDiscord(httpClient, cfg.Sink.DiscordWebhookURL, log), nil
	}

	var err error
	waSink, err = sink.NewWhatsApp(ctx, sink.WhatsAppOptions{
		DBDriver:   cfg.Database.Driver,
		DBDSN:      cfg.Database.DSN,
		LogLevel:   cfg.WhatsApp.LogLevel,
		DeviceName: cfg.WhatsApp.DeviceName,
		Recipient:  cfg.WhatsApp.Recipient,
		Owner:      cfg.WhatsApp.Owner,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
	}

	log.Info("Starting WhatsApp client...")
	if err := waSink.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to WhatsApp: %w", err)
	}
	if err := waitForWhatsApp(ctx); err != nil {
		waSink.Disconnect()
		return nil, err
	}

	log.Infof("Delivering notifications to WhatsApp %s", cfg.WhatsApp.Recipient)
	return waSink, nil
}

// waitForWhatsApp blocks until the session is usable, covering QR pairing
func waitForWhatsApp(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, whatsAppConnectTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for !waSink.IsConnected() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("WhatsApp client did not connect within %s", whatsAppConnectTimeout)
		case <-ticker.C:
		}
	}
	return nil
}

// resend runs the one-shot mode and returns the process exit code
func resend(ctx context.Context, id string) int {
	defer shutdownSink()

	id = validation.NormalizeCommitID(id)
	if id == "" {
		log.Error("Commit ID is required", nil)
		return 1
	}

	log.Infof("Resending commit %s", id)
	if err := orchestrator.Resend(ctx, id); err != nil {
		if errors.Is(err, errors.ErrCodeCommitNotFound) {
			log.Info(err.Error())
			return 0
		}
		log.Error("Resend failed", err)
		return 1
	}
	return 0
}

func startPolling(ctx context.Context, wg *sync.WaitGroup) {
	wg.Go(func() {
		defer shutdownSink()

		orchestrator.Run(ctx, cfg.Feed.PollInterval)
	})
}

func startWebServer(ctx context.Context, wg *sync.WaitGroup) {
	if !cfg.Server.Enabled {
		return
	}

	wg.Go(func() {
		log.Info("Starting HTTP server...")

		httpHandler := handlers.New(orchestrator, appMetrics.Handler(), log)
		httpServer := server.New(cfg, httpHandler, log)
		if err := httpServer.Start(errChan); err != nil {
			errChan <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}

		// Keep the server running until shutdown
		<-ctx.Done()
		log.Info("HTTP server shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during HTTP server shutdown", err)
		}
	})
}

func shutdownSink() {
	if waSink != nil {
		waSink.Disconnect()
		log.Info("WhatsApp client shutdown complete")
	}
}

func waitForShutdown(cancel context.CancelFunc, wg *sync.WaitGroup) {
	// Wait for either service to fail or for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("Service failed", err)
	case <-sigChan:
		log.Info("Received shutdown signal")
	}

	// Cancel context to signal goroutines to shutdown
	cancel()

	// Wait for all goroutines to finish
	wg.Wait()

	log.Info("Application stopped")
}
