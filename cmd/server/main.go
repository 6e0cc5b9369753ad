/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the float ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and environment configuration, then apply flags
  2. Build the zap logger
  3. Open the SQLite store and load the ledger
  4. Seed the configured payment methods (existing ones are kept)
  5. Optionally load the demo book into an empty ledger
  6. Start the reminder scheduler and the HTTP server

COMMAND-LINE FLAGS (override the environment):
  -addr      HTTP listen address (HTTP_ADDR)
  -db        SQLite database path (DATABASE_PATH)
             Use ":memory:" for an in-memory database
  -settings  Settings YAML (SETTINGS_FILE)
  -demo      Load the demo book when the ledger has no clients

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reminder scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Try it out with demo data
  ./server -db=":memory:" -demo

SEE ALSO:
  - config/config.go: Environment variables and settings file
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/float-ledger/api"
	"github.com/warp/float-ledger/config"
	"github.com/warp/float-ledger/ledger"
	"github.com/warp/float-ledger/logging"
	"github.com/warp/float-ledger/notify"
	"github.com/warp/float-ledger/store/sqlite"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags
	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	settingsFile := flag.String("settings", cfg.SettingsFile, "Settings YAML path")
	demo := flag.Bool("demo", cfg.SeedDemo, "Load the demo book into an empty ledger")
	flag.Parse()

	if *settingsFile != cfg.SettingsFile {
		if cfg.Settings, err = config.LoadSettings(*settingsFile); err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
	}

	logger, cleanup, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(logger, cfg, *addr, *dbPath, *demo); err != nil {
		logger.Error("server exited", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg *config.Config, addr, dbPath string, demo bool) error {
	ctx := context.Background()

	// Initialize store
	store, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier := notify.NewService(cfg.Settings.Templates, cfg.Settings.Currency,
		notify.LogSender{Log: logger.Named("sms")}, logger.Named("notify"))

	led, err := ledger.Open(ctx, store,
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithConfirmationHook(notifier.Hook()),
		ledger.WithMaxAmount(cfg.MaxAmount),
		ledger.WithPhoneCountryCode(cfg.Settings.CountryCode),
	)
	if err != nil {
		return err
	}
	if err := led.SeedMethods(ctx, cfg.Settings.PaymentMethods()); err != nil {
		return err
	}

	handler := api.NewHandler(led, notifier, cfg.Settings.Currency)

	if demo && len(led.Clients()) == 0 {
		if err := handler.ApplyScenario(ctx, "busy-week"); err != nil {
			logger.Warn("demo data not loaded", zap.Error(err))
		} else {
			logger.Info("demo data loaded", zap.String("scenario", "busy-week"))
		}
	}

	reminders := api.NewReminderScheduler(led, notifier, logger.Named("reminders"))
	reminders.CheckInterval = cfg.ReminderInterval
	reminders.MinAge = cfg.ReminderMinAge
	reminders.Start()
	defer reminders.Stop()

	// Create server
	server := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(handler, api.RouterOptions{
			Logger:         logger.Named("http"),
			AllowedOrigins: cfg.CORSOrigins,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("db", dbPath),
			zap.String("currency", cfg.Settings.Currency))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	reminders.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
