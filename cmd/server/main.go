package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vinacert/regadmin/internal/backend"
	"github.com/vinacert/regadmin/internal/config"
	"github.com/vinacert/regadmin/internal/identity"
	"github.com/vinacert/regadmin/internal/importer"
	"github.com/vinacert/regadmin/internal/logging"
	"github.com/vinacert/regadmin/internal/registry"
	"github.com/vinacert/regadmin/internal/web"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	// Load and validate configuration; a missing backend URL or credential
	// ends the process here.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"backend", cfg.Backend.URL,
		"static_key_configured", cfg.Auth.AdminKey != "",
		"allowlist_size", len(cfg.Auth.AdminEmails),
		"import_batch_size", cfg.Import.BatchSize,
	)

	client := backend.New(cfg.Backend.URL, cfg.Backend.ServiceKey)
	idp := identity.New(cfg.Backend.URL, cfg.Backend.ServiceKey)
	store := registry.NewStore(client)
	pipeline := importer.NewPipeline(store, cfg.Import.BatchSize)

	server := web.NewServer(cfg, store, pipeline, idp)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
