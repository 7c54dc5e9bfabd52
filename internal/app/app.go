// Package app wires configuration into the services shared by the API
// server and the job runner.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"

	"github.com/NickArm/Invoice-System-sub001/internal/auth"
	"github.com/NickArm/Invoice-System-sub001/internal/business"
	businessStore "github.com/NickArm/Invoice-System-sub001/internal/business/store"
	"github.com/NickArm/Invoice-System-sub001/internal/category"
	categoryStore "github.com/NickArm/Invoice-System-sub001/internal/category/store"
	"github.com/NickArm/Invoice-System-sub001/internal/config"
	"github.com/NickArm/Invoice-System-sub001/internal/extract"
	"github.com/NickArm/Invoice-System-sub001/internal/filestore"
	"github.com/NickArm/Invoice-System-sub001/internal/ingest"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	invoiceStore "github.com/NickArm/Invoice-System-sub001/internal/invoice/store"
	"github.com/NickArm/Invoice-System-sub001/internal/mailbox"
	"github.com/NickArm/Invoice-System-sub001/internal/mailer"
	"github.com/NickArm/Invoice-System-sub001/internal/matching"
	matchingStore "github.com/NickArm/Invoice-System-sub001/internal/matching/store"
	"github.com/NickArm/Invoice-System-sub001/internal/report"
	"github.com/NickArm/Invoice-System-sub001/internal/retry"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
	userStore "github.com/NickArm/Invoice-System-sub001/internal/user/store"
)

type App struct {
	Files      *filestore.Store
	Tokens     *auth.TokenService
	Users      *user.Service
	Business   *business.Service
	Categories *category.Service
	Invoices   *invoice.Service
	Matching   *matching.Service
	Reports    *report.Service
	Ingest     *ingest.Job

	closers []func() error
}

// New builds every service on top of db. Close releases the external
// clients it opened.
func New(ctx context.Context, cfg *config.Config, db *sql.DB) (*App, error) {
	files, err := filestore.NewOS(cfg.Files.Root)
	if err != nil {
		return nil, fmt.Errorf("opening file store: %w", err)
	}

	smtp, err := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		TLS:      cfg.SMTP.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring mailer: %w", err)
	}

	a := &App{
		Files:  files,
		Tokens: auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	}

	extractor, err := a.extractor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Users = user.NewService(userStore.New(db))
	a.Business = business.NewService(businessStore.New(db))
	a.Categories = category.NewService(categoryStore.New(db))
	a.Invoices = invoice.NewService(invoiceStore.New(db), files)
	a.Matching = matching.NewService(matchingStore.New(db), cfg.Matching.ToleranceCents)
	a.Reports = report.NewService(a.Invoices, files, smtp, afero.NewOsFs())

	a.Ingest = ingest.NewJob(
		a.Users,
		mailbox.NewIMAPDialer(invoice.IsInvoiceDocument),
		extractor,
		a.Business,
		a.Matching,
		a.Invoices,
		ingest.Config{
			Lookback:       time.Duration(cfg.Ingest.LookbackDays) * 24 * time.Hour,
			Concurrency:    cfg.Ingest.Concurrency,
			ConnectTimeout: cfg.Ingest.ConnectTimeout,
			ConnectRetry: retry.Options{
				MaxAttempts:  cfg.Ingest.ConnectAttempts,
				InitialDelay: time.Second,
				MaxDelay:     10 * time.Second,
				Multiplier:   2,
			},
		},
	)

	return a, nil
}

func (a *App) extractor(ctx context.Context, cfg *config.Config) (*extract.Service, error) {
	var ocr extract.OCR

	if cfg.Vision.Enabled {
		vision, err := extract.NewVisionOCR(ctx, cfg.Vision.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("creating vision client: %w", err)
		}

		a.closers = append(a.closers, vision.Close)
		ocr = vision
	}

	if cfg.OpenAI.APIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, mailbox ingestion will fail to extract invoices")
	}

	return extract.NewService(openai.NewClient(cfg.OpenAI.APIKey), ocr, extract.Config{
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxRetries:  cfg.OpenAI.MaxRetries,
	}), nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}

	return errors.Join(errs...)
}
