package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mkarres/tagkit/pkg/tagstore"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(baseLogger); err != nil {
		baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
		os.Exit(1)
	}

	baseLogger.Info("tagkit site has shut down.")
}

// run hosts the site server until an OS signal asks for shutdown.
func run(baseLogger *slog.Logger) error {
	config, err := LoadConfig("./config.json")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var logLevel slog.Level
	switch strings.ToLower(config.Server.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	logger.Info("Starting up...", "version", Version, "commit", Commit, "build_date", BuildDate)

	if err = os.MkdirAll(config.Server.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err = os.MkdirAll(config.Server.TemplateDir, 0755); err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}

	db, dialect, err := openDatabase(config.Server)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err = tagstore.SetupSchema(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to set up template schema: %w", err)
	}

	store, err := tagstore.NewStore(db, dialect)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create template store: %w", err)
	}
	store.SetLogger(logger)

	if err = seedTemplates(context.Background(), store, logger); err != nil {
		store.Close()
		_ = db.Close()
		return err
	}

	server, err := NewServer(config, logger, store)
	if err != nil {
		store.Close()
		_ = db.Close()
		return fmt.Errorf("failed to create server object: %w", err)
	}

	httpServer := &http.Server{Addr: config.Server.ServerAddr, Handler: server.mux}

	go func() {
		logger.Info("Starting site server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Site server failed", "error", err)
		}
	}()

	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
	<-osSignalChan
	logger.Info("OS signal received, initiating shutdown.")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")

	store.Close()
	logger.Info("Closing database connection.")
	if err = db.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	return nil
}
