// Command jobs runs the scheduled mailbox ingestion and reporting tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/NickArm/Invoice-System-sub001/internal/app"
	"github.com/NickArm/Invoice-System-sub001/internal/config"
	"github.com/NickArm/Invoice-System-sub001/internal/database"
	"github.com/NickArm/Invoice-System-sub001/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "jobs",
	Short:         "Invoice background jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	return cfg, nil
}

// withApp runs fn with fully wired services. Failures here are
// misconfiguration and make the command exit non-zero.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	a, err := app.New(ctx, cfg, db)
	if err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing clients", "error", err)
		}
	}()

	return fn(ctx, a)
}
