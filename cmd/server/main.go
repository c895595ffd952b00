/*
main.go - Application entry point

PURPOSE:
  Starts the timesheet API server. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load the config
  2. Initialize logging
  3. Open the backend (local SQLite sheet, remote sheet client if configured)
  4. Create sessions, auth and the API handler
  5. Start the idle session sweeper
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file (default: first of config.DefaultPaths)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper and close the database
  4. Exit

EXAMPLES:
  # Local sheet in a file
  ./server -db="./data/timesheet.db"

  # Remote sheet
  TIMESHEET_REMOTE_URL=https://script.example.com/exec ./server

ENVIRONMENT:
  See config/config.go for the variables that override the file.

SEE ALSO:
  - api/server.go: Router configuration
  - config/backend.go: Store selection
*/
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/timesheet/api"
	"github.com/warp/timesheet/config"
	"github.com/warp/timesheet/logging"
)

func main() {
	configPath := flag.String("config", "", "Config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := logging.Init(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	backend, err := cfg.OpenBackend(ctx, logger)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer backend.Close()
	if backend.IsLocal() {
		logger.Info("using local sheet", "db", cfg.Database.Path)
	} else {
		logger.Info("using remote sheet", "url", cfg.Remote.URL)
	}

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("auth.jwt_secret not set, using a random secret; logins end on restart")
	}

	sessions := backend.Sessions(cfg, logger)
	handler := api.NewHandler(sessions, api.NewAuth(secret, cfg.Auth.TokenTTL), cfg.Projects, logger)
	if backend.IsLocal() {
		handler.Scenarios = backend.Local
	}
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
	})

	sweeper := api.NewSessionSweeper(sessions, cfg.Server.SessionIdleTimeout, logger)
	sweeper.CheckInterval = cfg.Server.SweepInterval
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func randomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	return []byte(hex.EncodeToString(b)), nil
}
