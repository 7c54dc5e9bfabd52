// Package extract turns invoice documents into structured fields.
package extract

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnsupported  = errors.New("unsupported document type")
	ErrNoText       = errors.New("no text found in document")
	ErrMissingField = errors.New("missing required invoice field")
	ErrBadResponse  = errors.New("malformed extraction response")
)

// ExtractionError reports a document that could not be turned into Fields.
type ExtractionError struct {
	Op       string
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("extract: %s %s: %v", e.Op, e.Filename, e.Err)
	}

	return fmt.Sprintf("extract: %s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Party is one side of an invoice.
type Party struct {
	Name  string
	TaxID string
}

// Fields are the values read off an invoice. Amounts are in cents.
type Fields struct {
	Issuer      Party
	Recipient   Party
	Number      string
	IssueDate   time.Time
	DueDate     *time.Time
	NetAmount   int64
	VATAmount   int64
	GrossAmount int64
	Currency    string
	Description string
}

// Counterparty is the party that is not the owner, judged by tax id.
// issued reports whether the owner issued the invoice.
func (f *Fields) Counterparty(ownerTaxID string, normalize func(string) string) (p Party, issued bool) {
	if ownerTaxID != "" && normalize(f.Issuer.TaxID) == normalize(ownerTaxID) {
		return f.Recipient, true
	}

	return f.Issuer, false
}
