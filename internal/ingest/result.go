package ingest

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
)

// Result is the outcome of one user's run: either Completed or Failed.
type Result interface {
	Success() bool
	Owner() uuid.UUID
}

// Completed means the mailbox was read. Per-message failures are in Errors.
type Completed struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	Processed     int       `json:"processed"`
	Skipped       int       `json:"skipped"`
	TotalMessages int       `json:"total_messages"`
	Errors        []string  `json:"errors"`
	// Review lists imports that share entity and day with existing invoices
	// at a different amount.
	Review []Review `json:"review,omitempty"`
}

func (c *Completed) Success() bool    { return true }
func (c *Completed) Owner() uuid.UUID { return c.UserID }

// Review pairs an imported invoice with its possible near-duplicates.
type Review struct {
	MessageID  string      `json:"message_id"`
	InvoiceID  uuid.UUID   `json:"invoice_id"`
	Candidates []uuid.UUID `json:"candidates"`
}

// Failed means the mailbox could not be read at all.
type Failed struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	Message string    `json:"message"`
}

func (f *Failed) Success() bool    { return false }
func (f *Failed) Owner() uuid.UUID { return f.UserID }

// DuplicateInvoiceError means the message holds an invoice that already exists.
type DuplicateInvoiceError struct {
	MessageID string
	InvoiceID uuid.UUID
}

func (e *DuplicateInvoiceError) Error() string {
	return fmt.Sprintf("message %s duplicates invoice %s", e.MessageID, e.InvoiceID)
}

func (e *DuplicateInvoiceError) Unwrap() error { return invoice.ErrAlreadyImported }
