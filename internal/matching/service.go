package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/business"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
)

// DefaultTolerance is the inclusive gross amount window, in cents.
const DefaultTolerance int64 = 1

var ErrEntityNotFound = fmt.Errorf("no business entity with this tax id: %w", apperror.ErrNotFound)

// Kind tells how the candidates in a Result were found.
type Kind string

const (
	// KindExact means same entity, same issue date and gross within tolerance.
	KindExact Kind = "exact"
	// KindFallback means same entity and issue date but a different amount.
	KindFallback Kind = "fallback"
	KindNone     Kind = "none"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	FindEntityByTaxID(ctx context.Context, ownerID uuid.UUID, taxID string) (*business.Entity, error)
	FindInvoices(ctx context.Context, filter InvoiceFilter) ([]*invoice.Invoice, error)
}

// InvoiceFilter selects an entity's invoices on one day; nil bounds ignore the amount.
type InvoiceFilter struct {
	EntityID  uuid.UUID
	IssueDate time.Time
	MinGross  *int64
	MaxGross  *int64
}

type Service struct {
	repo      Repository
	tolerance int64
}

func NewService(repo Repository, tolerance int64) *Service {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}

	return &Service{repo: repo, tolerance: tolerance}
}

type Query struct {
	OwnerID   uuid.UUID
	TaxID     string
	IssueDate time.Time
	Gross     int64 // cents
}

type Result struct {
	Kind     Kind
	Entity   *business.Entity
	Invoices []*invoice.Invoice
}

// Exact reports whether the result holds probable duplicates.
func (r *Result) Exact() bool { return r.Kind == KindExact }

// Match finds invoices of the entity with q.TaxID that look like q.
// Exact candidates win; otherwise same-day invoices are returned as fallback.
func (s *Service) Match(ctx context.Context, q Query) (*Result, error) {
	taxID := business.NormalizeTaxID(q.TaxID)
	if taxID == "" {
		return nil, apperror.NewValidationError("tax_id", "is required")
	}

	if q.IssueDate.IsZero() {
		return nil, apperror.NewValidationError("date", "is required")
	}

	entity, err := s.repo.FindEntityByTaxID(ctx, q.OwnerID, taxID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("tax id %s: %w", taxID, ErrEntityNotFound)
		}

		return nil, fmt.Errorf("resolving entity: %w", err)
	}

	day := truncateDay(q.IssueDate)

	exact, err := s.repo.FindInvoices(ctx, InvoiceFilter{
		EntityID:  entity.ID,
		IssueDate: day,
		MinGross:  new(q.Gross - s.tolerance),
		MaxGross:  new(q.Gross + s.tolerance),
	})
	if err != nil {
		return nil, fmt.Errorf("finding exact matches: %w", err)
	}

	if len(exact) > 0 {
		return &Result{Kind: KindExact, Entity: entity, Invoices: exact}, nil
	}

	sameDay, err := s.repo.FindInvoices(ctx, InvoiceFilter{EntityID: entity.ID, IssueDate: day})
	if err != nil {
		return nil, fmt.Errorf("finding same day invoices: %w", err)
	}

	if len(sameDay) > 0 {
		return &Result{Kind: KindFallback, Entity: entity, Invoices: sameDay}, nil
	}

	return &Result{Kind: KindNone, Entity: entity}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
