package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
)

// Type tells whether the invoice was issued by the user (income) or to the user (expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Status represents the lifecycle state of an invoice.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Source records how the invoice entered the system.
type Source string

const (
	SourceManual Source = "manual"
	SourceEmail  Source = "email"
)

var (
	ErrNotFound           = fmt.Errorf("invoice %w", apperror.ErrNotFound)
	ErrAttachmentNotFound = fmt.Errorf("attachment %w", apperror.ErrNotFound)
	ErrInvalidReference   = fmt.Errorf("business entity or category %w", apperror.ErrNotFound)
	ErrAlreadyImported    = fmt.Errorf("message already imported: %w", apperror.ErrConflict)
)

// Invoice amounts are in cents.
type Invoice struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	BusinessEntityID uuid.UUID
	BusinessName     string // Loaded via JOIN
	CategoryID       *uuid.UUID
	Number           string
	IssueDate        time.Time
	DueDate          *time.Time
	NetAmount        int64
	VATAmount        int64
	GrossAmount      int64
	Currency         string
	Status           Status
	Type             Type
	Source           Source
	SourceMessageID  *string
	Description      string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

// Attachment is a stored document. A nil InvoiceID means it still awaits extraction.
type Attachment struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	InvoiceID   *uuid.UUID
	Path        string
	Filename    string
	ContentType string
	Size        int64
	SHA256      string
	CreatedAt   time.Time
}
