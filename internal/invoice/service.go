package invoice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/filestore"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	DeleteInvoice(ctx context.Context, ownerID, id uuid.UUID) error

	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, ownerID, id uuid.UUID) (*Attachment, error)
	ListAttachments(ctx context.Context, filter AttachmentFilter) ([]*Attachment, error)

	IsImported(ctx context.Context, userID uuid.UUID, messageID string) (bool, error)
	MarkImported(ctx context.Context, userID uuid.UUID, messageID string, invoiceID *uuid.UUID) error
	BeginImport(ctx context.Context, userID uuid.UUID, messageID string) (ImportTx, error)
}

// ImportTx persists one ingested message atomically. Implementations hold a
// lock on (user, message) until Commit or Rollback.
type ImportTx interface {
	IsImported(ctx context.Context) (bool, error)
	CreateInvoice(ctx context.Context, inv *Invoice) error
	CreateAttachment(ctx context.Context, a *Attachment) error
	MarkImported(ctx context.Context, invoiceID uuid.UUID) error
	Commit() error
	Rollback() error
}

// Files stores attachment bytes.
type Files interface {
	Save(userID uuid.UUID, at time.Time, filename, contentType string, data []byte) (*filestore.Stored, error)
	Remove(path string) error
}

type Service struct {
	repo  Repository
	files Files
	now   func() time.Time
}

func NewService(repo Repository, files Files) *Service {
	return &Service{repo: repo, files: files, now: time.Now}
}

type CreateParams struct {
	UserID           uuid.UUID  `json:"user_id" validate:"required"`
	BusinessEntityID uuid.UUID  `json:"business_entity_id" validate:"required"`
	CategoryID       *uuid.UUID `json:"category_id"`
	Number           string     `json:"number" validate:"max=64"`
	IssueDate        time.Time  `json:"issue_date" validate:"required"`
	DueDate          *time.Time `json:"due_date"`
	NetAmount        int64      `json:"net_amount"`
	VATAmount        int64      `json:"vat_amount"`
	GrossAmount      int64      `json:"gross_amount" validate:"ne=0"`
	Currency         string     `json:"currency" validate:"omitempty,len=3,alpha"`
	Status           Status     `json:"status" validate:"omitempty,oneof=draft pending paid cancelled"`
	Type             Type       `json:"type" validate:"required,oneof=income expense"`
	Source           Source     `json:"source" validate:"omitempty,oneof=manual email"`
	SourceMessageID  *string    `json:"source_message_id"`
	Description      string     `json:"description" validate:"max=2000"`
}

type ListFilter struct {
	UserID     uuid.UUID
	Status     *Status
	Type       *Type
	EntityID   *uuid.UUID
	CategoryID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

type AttachmentFilter struct {
	UserID     uuid.UUID
	InvoiceID  *uuid.UUID
	InvoiceIDs []uuid.UUID
	IDs        []uuid.UUID
}

// Upload is a document received from a client or a mailbox.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Invoice, error) {
	inv, err := buildInvoice(params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

type UpdateParams struct {
	BusinessEntityID *uuid.UUID `json:"business_entity_id"`
	CategoryID       *uuid.UUID `json:"category_id"`
	ClearCategory    bool       `json:"clear_category"`
	Number           *string    `json:"number" validate:"omitempty,max=64"`
	IssueDate        *time.Time `json:"issue_date"`
	DueDate          *time.Time `json:"due_date"`
	NetAmount        *int64     `json:"net_amount"`
	VATAmount        *int64     `json:"vat_amount"`
	GrossAmount      *int64     `json:"gross_amount" validate:"omitempty,ne=0"`
	Currency         *string    `json:"currency" validate:"omitempty,len=3,alpha"`
	Status           *Status    `json:"status" validate:"omitempty,oneof=draft pending paid cancelled"`
	Type             *Type      `json:"type" validate:"omitempty,oneof=income expense"`
	Description      *string    `json:"description" validate:"omitempty,max=2000"`
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, params UpdateParams) (*Invoice, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	inv, err := s.repo.GetInvoice(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if params.BusinessEntityID != nil {
		inv.BusinessEntityID = *params.BusinessEntityID
	}

	if params.ClearCategory {
		inv.CategoryID = nil
	} else if params.CategoryID != nil {
		inv.CategoryID = params.CategoryID
	}

	if params.Number != nil {
		inv.Number = strings.TrimSpace(*params.Number)
	}

	if params.IssueDate != nil {
		inv.IssueDate = *params.IssueDate
	}

	if params.DueDate != nil {
		inv.DueDate = params.DueDate
	}

	if params.NetAmount != nil {
		inv.NetAmount = *params.NetAmount
	}

	if params.VATAmount != nil {
		inv.VATAmount = *params.VATAmount
	}

	if params.GrossAmount != nil {
		inv.GrossAmount = *params.GrossAmount
	}

	if params.Currency != nil {
		inv.Currency = strings.ToUpper(*params.Currency)
	}

	if params.Status != nil {
		inv.Status = *params.Status
	}

	if params.Type != nil {
		inv.Type = *params.Type
	}

	if params.Description != nil {
		inv.Description = *params.Description
	}

	if err := checkTotals(inv); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// Delete removes the invoice with its attachments and their stored files.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	attachments, err := s.repo.ListAttachments(ctx, AttachmentFilter{UserID: ownerID, InvoiceID: &id})
	if err != nil {
		return fmt.Errorf("listing attachments: %w", err)
	}

	if err := s.repo.DeleteInvoice(ctx, ownerID, id); err != nil {
		return err
	}

	for _, a := range attachments {
		if err := s.files.Remove(a.Path); err != nil {
			slog.Warn("failed to remove attachment file", "attachment_id", a.ID, "error", err)
		}
	}

	return nil
}

// Attach stores an uploaded document, optionally linked to one of the owner's invoices.
func (s *Service) Attach(ctx context.Context, ownerID uuid.UUID, invoiceID *uuid.UUID, up Upload) (*Attachment, error) {
	if err := checkUpload(up); err != nil {
		return nil, err
	}

	if invoiceID != nil {
		if _, err := s.repo.GetInvoice(ctx, ownerID, *invoiceID); err != nil {
			return nil, err
		}
	}

	stored, err := s.files.Save(ownerID, s.now(), up.Filename, up.ContentType, up.Data)
	if err != nil {
		return nil, fmt.Errorf("storing file: %w", err)
	}

	a := newAttachment(ownerID, invoiceID, up, stored)
	if err := s.repo.CreateAttachment(ctx, a); err != nil {
		s.removeFile(stored.Path)
		return nil, err
	}

	return a, nil
}

// GetAttachment returns the attachment only when ownerID owns it.
func (s *Service) GetAttachment(ctx context.Context, ownerID, id uuid.UUID) (*Attachment, error) {
	return s.repo.GetAttachment(ctx, ownerID, id)
}

func (s *Service) ListAttachments(ctx context.Context, filter AttachmentFilter) ([]*Attachment, error) {
	return s.repo.ListAttachments(ctx, filter)
}

// IsImported reports whether the message was already processed for the user.
func (s *Service) IsImported(ctx context.Context, userID uuid.UUID, messageID string) (bool, error) {
	return s.repo.IsImported(ctx, userID, messageID)
}

// MarkImported records a processed message that produced no new invoice.
func (s *Service) MarkImported(ctx context.Context, userID uuid.UUID, messageID string, invoiceID *uuid.UUID) error {
	return s.repo.MarkImported(ctx, userID, messageID, invoiceID)
}

type ImportParams struct {
	Invoice   CreateParams
	MessageID string
	File      Upload
}

// Import stores the file and persists invoice, attachment and the imported
// message marker in one transaction. A message that was already imported
// yields ErrAlreadyImported and leaves no file behind.
func (s *Service) Import(ctx context.Context, params ImportParams) (*Invoice, error) {
	if params.MessageID == "" {
		return nil, apperror.NewValidationError("message_id", "is required")
	}

	params.Invoice.Source = SourceEmail
	params.Invoice.SourceMessageID = &params.MessageID

	inv, err := buildInvoice(params.Invoice)
	if err != nil {
		return nil, err
	}

	if err := checkUpload(params.File); err != nil {
		return nil, err
	}

	stored, err := s.files.Save(inv.UserID, s.now(), params.File.Filename, params.File.ContentType, params.File.Data)
	if err != nil {
		return nil, fmt.Errorf("storing file: %w", err)
	}

	if err := s.persistImport(ctx, inv, params, stored); err != nil {
		s.removeFile(stored.Path)
		return nil, err
	}

	return inv, nil
}

func (s *Service) persistImport(ctx context.Context, inv *Invoice, params ImportParams, stored *filestore.Stored) error {
	itx, err := s.repo.BeginImport(ctx, inv.UserID, params.MessageID)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	imported, err := itx.IsImported(ctx)
	if err != nil {
		return fmt.Errorf("check imported: %w", err)
	}

	if imported {
		return ErrAlreadyImported
	}

	if err := itx.CreateInvoice(ctx, inv); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}

	a := newAttachment(inv.UserID, &inv.ID, params.File, stored)
	if err := itx.CreateAttachment(ctx, a); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}

	if err := itx.MarkImported(ctx, inv.ID); err != nil {
		if errors.Is(err, ErrAlreadyImported) {
			return ErrAlreadyImported
		}

		return fmt.Errorf("mark imported: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	return nil
}

func (s *Service) removeFile(path string) {
	if err := s.files.Remove(path); err != nil {
		slog.Warn("failed to remove stored file", "path", path, "error", err)
	}
}

func buildInvoice(p CreateParams) (*Invoice, error) {
	if err := apperror.Validate(p); err != nil {
		return nil, err
	}

	inv := &Invoice{
		UserID:           p.UserID,
		BusinessEntityID: p.BusinessEntityID,
		CategoryID:       p.CategoryID,
		Number:           strings.TrimSpace(p.Number),
		IssueDate:        p.IssueDate,
		DueDate:          p.DueDate,
		NetAmount:        p.NetAmount,
		VATAmount:        p.VATAmount,
		GrossAmount:      p.GrossAmount,
		Currency:         strings.ToUpper(cmp.Or(p.Currency, "EUR")),
		Status:           cmp.Or(p.Status, StatusPending),
		Type:             p.Type,
		Source:           cmp.Or(p.Source, SourceManual),
		SourceMessageID:  p.SourceMessageID,
		Description:      p.Description,
	}

	// Only the gross total is known.
	if inv.NetAmount == 0 && inv.VATAmount == 0 {
		inv.NetAmount = inv.GrossAmount
	}

	if err := checkTotals(inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func checkTotals(inv *Invoice) error {
	if inv.NetAmount+inv.VATAmount != inv.GrossAmount {
		return apperror.NewValidationError("gross_amount", "must equal net_amount + vat_amount")
	}

	if inv.DueDate != nil && inv.DueDate.Before(inv.IssueDate) {
		return apperror.NewValidationError("due_date", "must not be before issue_date")
	}

	return nil
}

// IsInvoiceDocument reports whether a content type can hold an invoice.
func IsInvoiceDocument(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	switch {
	case mediaType == "application/pdf",
		mediaType == "application/xml",
		mediaType == "text/xml",
		strings.HasPrefix(mediaType, "image/"):
		return true
	default:
		return false
	}
}

func checkUpload(up Upload) error {
	if len(up.Data) == 0 {
		return apperror.NewValidationError("file", "is empty")
	}

	if !IsInvoiceDocument(up.ContentType) {
		return apperror.NewValidationError("file", "must be a PDF, image or XML document")
	}

	return nil
}

func newAttachment(ownerID uuid.UUID, invoiceID *uuid.UUID, up Upload, stored *filestore.Stored) *Attachment {
	return &Attachment{
		UserID:      ownerID,
		InvoiceID:   invoiceID,
		Path:        stored.Path,
		Filename:    cmp.Or(up.Filename, "document"),
		ContentType: up.ContentType,
		Size:        stored.Size,
		SHA256:      stored.SHA256,
	}
}
