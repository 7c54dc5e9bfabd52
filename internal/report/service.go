// Package report emails invoice summaries with an optional attachment bundle.
package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/mailer"
)

const dateLayout = "2006-01-02"

//go:embed templates/email.html
var templateFS embed.FS

var emailTemplate = template.Must(template.ParseFS(templateFS, "templates/email.html"))

//go:generate mockgen -source=service.go -destination=service_mock.go -package=report
type Invoices interface {
	List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error)
	ListAttachments(ctx context.Context, filter invoice.AttachmentFilter) ([]*invoice.Attachment, error)
}

type Files interface {
	CopyTo(w io.Writer, path string) error
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type Service struct {
	invoices Invoices
	files    Files
	mailer   Mailer
	// staging holds archives until they are sent, under its temp dir.
	staging afero.Fs
	log     *slog.Logger
}

func NewService(invoices Invoices, files Files, m Mailer, staging afero.Fs) *Service {
	return &Service{
		invoices: invoices,
		files:    files,
		mailer:   m,
		staging:  staging,
		log:      slog.With("component", "report"),
	}
}

type Request struct {
	UserID    uuid.UUID `json:"-" validate:"required"`
	From      time.Time `json:"from" validate:"required"`
	To        time.Time `json:"to" validate:"required"`
	Type      Type      `json:"type" validate:"omitempty,oneof=all income expense"`
	Recipient string    `json:"recipient" validate:"required,email"`
	Message   string    `json:"message" validate:"max=5000"`
	// AttachmentIDs selects documents to bundle; they must belong to UserID.
	AttachmentIDs []uuid.UUID `json:"attachment_ids"`
	// IncludeAttachments bundles every document of the period when
	// AttachmentIDs is empty.
	IncludeAttachments bool `json:"include_attachments"`
}

type Outcome struct {
	Summary  Summary
	Attached int
	Subject  string
}

func (s *Service) Send(ctx context.Context, req Request) (*Outcome, error) {
	if err := apperror.Validate(req); err != nil {
		return nil, err
	}

	if req.To.Before(req.From) {
		return nil, apperror.NewValidationError("to", "must not be before from")
	}

	if req.Type == "" {
		req.Type = TypeAll
	}

	filter := invoice.ListFilter{UserID: req.UserID, From: &req.From, To: &req.To}
	if req.Type != TypeAll {
		filter.Type = new(invoice.Type(req.Type))
	}

	invoices, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	summary := Summarize(invoices, req.Type)

	attachments, err := s.selectAttachments(ctx, req, invoices)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Summary:  summary,
		Attached: len(attachments),
		Subject:  fmt.Sprintf("Invoice report %s – %s", req.From.Format(dateLayout), req.To.Format(dateLayout)),
	}

	msg := mailer.Message{To: req.Recipient, Subject: out.Subject}

	if len(attachments) > 0 {
		dir, err := afero.TempDir(s.staging, "", "report-")
		if err != nil {
			return nil, fmt.Errorf("creating temp dir: %w", err)
		}

		defer func() {
			if err := s.staging.RemoveAll(dir); err != nil {
				s.log.Warn("removing report temp dir", "dir", dir, "error", err)
			}
		}()

		name := archiveName(req)
		dst := filepath.Join(dir, name)

		if err := writeArchive(s.staging, dst, attachments, s.files); err != nil {
			return nil, err
		}

		archive, err := s.staging.Open(dst)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		defer archive.Close()

		msg.Attachment = &mailer.Attachment{Name: name, Content: archive}
	}

	body, err := renderBody(req, summary, out.Attached)
	if err != nil {
		return nil, err
	}

	msg.HTMLBody = body

	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("sending report: %w", err)
	}

	s.log.Info("report sent",
		"user_id", req.UserID,
		"recipient", req.Recipient,
		"invoices", summary.TotalCount,
		"attachments", out.Attached,
	)

	return out, nil
}

func (s *Service) selectAttachments(ctx context.Context, req Request, invoices []*invoice.Invoice) ([]*invoice.Attachment, error) {
	if len(req.AttachmentIDs) > 0 {
		found, err := s.invoices.ListAttachments(ctx, invoice.AttachmentFilter{UserID: req.UserID, IDs: req.AttachmentIDs})
		if err != nil {
			return nil, fmt.Errorf("listing attachments: %w", err)
		}

		// Unknown or foreign ids are simply absent from the result.
		if len(found) != len(uniq(req.AttachmentIDs)) {
			return nil, invoice.ErrAttachmentNotFound
		}

		return found, nil
	}

	if !req.IncludeAttachments || len(invoices) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}

	found, err := s.invoices.ListAttachments(ctx, invoice.AttachmentFilter{UserID: req.UserID, InvoiceIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}

	return found, nil
}

func uniq(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}

func archiveName(req Request) string {
	return fmt.Sprintf("invoices_%s_%s.zip", req.From.Format(dateLayout), req.To.Format(dateLayout))
}

type emailData struct {
	From        string
	To          string
	Message     string
	Summary     Formatted
	Attached    int
	ArchiveName string
}

func renderBody(req Request, summary Summary, attached int) (string, error) {
	var buf bytes.Buffer

	err := emailTemplate.Execute(&buf, emailData{
		From:        req.From.Format(dateLayout),
		To:          req.To.Format(dateLayout),
		Message:     req.Message,
		Summary:     summary.Format(),
		Attached:    attached,
		ArchiveName: archiveName(req),
	})
	if err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}

	return buf.String(), nil
}
