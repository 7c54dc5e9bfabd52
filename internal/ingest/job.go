// Package ingest imports invoices from users' mailboxes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NickArm/Invoice-System-sub001/internal/business"
	"github.com/NickArm/Invoice-System-sub001/internal/extract"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/mailbox"
	"github.com/NickArm/Invoice-System-sub001/internal/matching"
	"github.com/NickArm/Invoice-System-sub001/internal/retry"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

const (
	msgMailboxDisabled = "mailbox access disabled"
	msgAccountDisabled = "account is disabled"
)

//go:generate mockgen -source=job.go -destination=job_mock.go -package=ingest
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	ListIngestable(ctx context.Context) ([]*user.User, error)
}

type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (*extract.Fields, error)
}

type Entities interface {
	Resolve(ctx context.Context, ownerID uuid.UUID, params business.ResolveParams) (*business.Entity, bool, error)
}

type Matcher interface {
	Match(ctx context.Context, q matching.Query) (*matching.Result, error)
}

type Invoices interface {
	IsImported(ctx context.Context, userID uuid.UUID, messageID string) (bool, error)
	MarkImported(ctx context.Context, userID uuid.UUID, messageID string, invoiceID *uuid.UUID) error
	Import(ctx context.Context, params invoice.ImportParams) (*invoice.Invoice, error)
}

type Config struct {
	// Lookback limits listing to messages from the last N days.
	Lookback       time.Duration
	Concurrency    int
	ConnectTimeout time.Duration
	ConnectRetry   retry.Options
}

type Job struct {
	users     Users
	dialer    mailbox.Dialer
	extractor Extractor
	entities  Entities
	matcher   Matcher
	invoices  Invoices
	cfg       Config
	now       func() time.Time
	log       *slog.Logger
}

func NewJob(
	users Users,
	dialer mailbox.Dialer,
	extractor Extractor,
	entities Entities,
	matcher Matcher,
	invoices Invoices,
	cfg Config,
) *Job {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &Job{
		users:     users,
		dialer:    dialer,
		extractor: extractor,
		entities:  entities,
		matcher:   matcher,
		invoices:  invoices,
		cfg:       cfg,
		now:       time.Now,
		log:       slog.With("component", "ingest"),
	}
}

// Filter narrows a run to a single user.
type Filter struct {
	UserID *uuid.UUID
}

// Run ingests every selected user's mailbox. Per-user and per-message
// failures are reported in the results; the returned error is reserved for
// being unable to start at all.
func (j *Job) Run(ctx context.Context, filter Filter) ([]Result, error) {
	users, early, err := j.selectUsers(ctx, filter)
	if err != nil {
		return nil, err
	}

	if early != nil {
		return []Result{early}, nil
	}

	results := make([]Result, len(users))

	var g errgroup.Group
	g.SetLimit(j.cfg.Concurrency)

	for i, u := range users {
		g.Go(func() error {
			results[i] = j.runUser(ctx, u)
			return nil
		})
	}

	_ = g.Wait()

	return results, nil
}

// selectUsers never returns a user whose mailbox is disabled. A filtered
// user that cannot be ingested yields a Failed result instead.
func (j *Job) selectUsers(ctx context.Context, filter Filter) ([]*user.User, Result, error) {
	if filter.UserID == nil {
		users, err := j.users.ListIngestable(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("listing users: %w", err)
		}

		return users, nil, nil
	}

	u, err := j.users.Get(ctx, *filter.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading user %s: %w", *filter.UserID, err)
	}

	switch {
	case !u.Mailbox.Enabled:
		return nil, &Failed{UserID: u.ID, Email: u.Email, Message: msgMailboxDisabled}, nil
	case !u.IsActive:
		return nil, &Failed{UserID: u.ID, Email: u.Email, Message: msgAccountDisabled}, nil
	}

	return []*user.User{u}, nil, nil
}

func (j *Job) credentials(u *user.User) mailbox.Credentials {
	var since time.Time
	if j.cfg.Lookback > 0 {
		y, m, d := j.now().Add(-j.cfg.Lookback).Date()
		since = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	return mailbox.Credentials{
		Host:     u.Mailbox.Host,
		Port:     u.Mailbox.Port,
		Username: u.Mailbox.Username,
		Password: u.Mailbox.Password,
		Folder:   u.Mailbox.Folder,
		Since:    since,
		Timeout:  j.cfg.ConnectTimeout,
	}
}

func (j *Job) connect(ctx context.Context, creds mailbox.Credentials) (mailbox.Session, error) {
	var session mailbox.Session

	err := retry.Do(ctx, func(ctx context.Context) error {
		s, err := j.dialer.Connect(ctx, creds)
		if err != nil {
			if errors.Is(err, mailbox.ErrAuthFailed) {
				return retry.Permanent(err)
			}

			return err
		}

		session = s

		return nil
	}, j.cfg.ConnectRetry)

	return session, err
}

func (j *Job) runUser(ctx context.Context, u *user.User) Result {
	log := j.log.With("user_id", u.ID, "email", u.Email)

	session, err := j.connect(ctx, j.credentials(u))
	if err != nil {
		log.Error("mailbox connection failed", "error", err)
		return &Failed{UserID: u.ID, Email: u.Email, Message: err.Error()}
	}

	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("closing mailbox", "error", err)
		}
	}()

	refs, err := session.ListMessages(ctx)
	if err != nil {
		log.Error("listing messages failed", "error", err)
		return &Failed{UserID: u.ID, Email: u.Email, Message: fmt.Sprintf("listing messages: %v", err)}
	}

	res := &Completed{UserID: u.ID, Email: u.Email, TotalMessages: len(refs), Errors: []string{}}

	for _, ref := range refs {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("run interrupted: %v", context.Cause(ctx)))
			break
		}

		imported, err := j.processMessage(ctx, u, session, ref, res)

		switch {
		case err != nil && errors.Is(err, invoice.ErrAlreadyImported):
			log.Info("already imported", "message_id", ref.MessageID, "reason", err)
			res.Skipped++
		case err != nil:
			log.Warn("message failed", "message_id", ref.MessageID, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("message %s (%q): %v", ref.MessageID, ref.Subject, err))
		case imported:
			res.Processed++
		default:
			res.Skipped++
		}
	}

	log.Info("mailbox ingested",
		"total", res.TotalMessages,
		"processed", res.Processed,
		"skipped", res.Skipped,
		"errors", len(res.Errors),
	)

	return res
}

// processMessage reports whether a new invoice was stored. A nil error with
// false means the message was skipped. Fallback matches are noted on res.
func (j *Job) processMessage(ctx context.Context, u *user.User, session mailbox.Session, ref mailbox.MessageRef, res *Completed) (bool, error) {
	done, err := j.invoices.IsImported(ctx, u.ID, ref.MessageID)
	if err != nil {
		return false, fmt.Errorf("checking import: %w", err)
	}

	if done {
		return false, nil
	}

	att, err := session.FetchAttachment(ctx, ref)
	if errors.Is(err, mailbox.ErrNoAttachment) {
		// Remember the message so later runs do not fetch it again.
		if err := j.invoices.MarkImported(ctx, u.ID, ref.MessageID, nil); err != nil {
			return false, fmt.Errorf("marking message: %w", err)
		}

		return false, nil
	}

	if err != nil {
		return false, err
	}

	fields, err := j.extractor.Extract(ctx, extract.Document{
		Filename:    att.Filename,
		ContentType: att.ContentType,
		Data:        att.Data,
	})
	if err != nil {
		return false, err
	}

	var ownerTaxID string
	if u.TaxID != nil {
		ownerTaxID = *u.TaxID
	}

	party, issued := fields.Counterparty(ownerTaxID, business.NormalizeTaxID)
	if business.NormalizeTaxID(party.TaxID) == "" {
		return false, errors.New("counterparty tax id not found on document")
	}

	typ, kind := invoice.TypeExpense, business.KindSupplier
	if issued {
		typ, kind = invoice.TypeIncome, business.KindCustomer
	}

	entity, _, err := j.entities.Resolve(ctx, u.ID, business.ResolveParams{TaxID: party.TaxID, Name: party.Name, Kind: kind})
	if err != nil {
		return false, fmt.Errorf("resolving business entity: %w", err)
	}

	match, err := j.matcher.Match(ctx, matching.Query{
		OwnerID:   u.ID,
		TaxID:     party.TaxID,
		IssueDate: fields.IssueDate,
		Gross:     fields.GrossAmount,
	})
	if err != nil {
		return false, fmt.Errorf("matching: %w", err)
	}

	if match.Exact() {
		dup := &DuplicateInvoiceError{MessageID: ref.MessageID, InvoiceID: match.Invoices[0].ID}
		if err := j.invoices.MarkImported(ctx, u.ID, ref.MessageID, &dup.InvoiceID); err != nil {
			return false, fmt.Errorf("marking duplicate: %w", err)
		}

		return false, dup
	}

	inv, err := j.invoices.Import(ctx, invoice.ImportParams{
		MessageID: ref.MessageID,
		File:      invoice.Upload{Filename: att.Filename, ContentType: att.ContentType, Data: att.Data},
		Invoice: invoice.CreateParams{
			UserID:           u.ID,
			BusinessEntityID: entity.ID,
			Number:           fields.Number,
			IssueDate:        fields.IssueDate,
			DueDate:          fields.DueDate,
			NetAmount:        fields.NetAmount,
			VATAmount:        fields.VATAmount,
			GrossAmount:      fields.GrossAmount,
			Currency:         fields.Currency,
			Type:             typ,
			Description:      fields.Description,
		},
	})
	if err != nil {
		return false, err
	}

	if match.Kind == matching.KindFallback {
		review := Review{MessageID: ref.MessageID, InvoiceID: inv.ID}
		for _, c := range match.Invoices {
			review.Candidates = append(review.Candidates, c.ID)
		}

		j.log.Info("imported invoice needs review",
			"user_id", u.ID,
			"message_id", ref.MessageID,
			"invoice_id", inv.ID,
			"candidates", review.Candidates,
		)

		res.Review = append(res.Review, review)
	}

	return true, nil
}
