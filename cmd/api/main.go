package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/NickArm/Invoice-System-sub001/internal/app"
	"github.com/NickArm/Invoice-System-sub001/internal/config"
	"github.com/NickArm/Invoice-System-sub001/internal/database"
	apiHttp "github.com/NickArm/Invoice-System-sub001/internal/http"
	authHandler "github.com/NickArm/Invoice-System-sub001/internal/http/auth"
	businessHandler "github.com/NickArm/Invoice-System-sub001/internal/http/business"
	categoryHandler "github.com/NickArm/Invoice-System-sub001/internal/http/category"
	ingestHandler "github.com/NickArm/Invoice-System-sub001/internal/http/ingest"
	invoiceHandler "github.com/NickArm/Invoice-System-sub001/internal/http/invoice"
	matchingHandler "github.com/NickArm/Invoice-System-sub001/internal/http/matching"
	reportHandler "github.com/NickArm/Invoice-System-sub001/internal/http/report"
	userHandler "github.com/NickArm/Invoice-System-sub001/internal/http/user"
	"github.com/NickArm/Invoice-System-sub001/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	a, err := app.New(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer a.Close()

	router := apiHttp.New(
		apiHttp.Options{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Timeout:        cfg.Server.Timeout,
			Tokens:         a.Tokens,
			Users:          a.Users,
		},
		apiHttp.Handlers{
			Auth:     authHandler.NewHandler(a.Users, a.Tokens),
			Users:    userHandler.NewHandler(a.Users),
			Business: businessHandler.NewHandler(a.Business),
			Category: categoryHandler.NewHandler(a.Categories),
			Invoices: invoiceHandler.NewHandler(a.Invoices, a.Files),
			Matching: matchingHandler.NewHandler(a.Matching),
			Reports:  reportHandler.NewHandler(a.Reports),
			Ingest:   ingestHandler.NewHandler(a.Ingest, a.Users),
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "name", cfg.App.Name, "port", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
