package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/business"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindEntityByTaxID(ctx context.Context, ownerID uuid.UUID, taxID string) (*business.Entity, error) {
	query := `
		SELECT id, user_id, kind, name, tax_id
		FROM business_entities
		WHERE user_id = $1 AND tax_id = $2
	`

	var e business.Entity

	var kind, tid string

	err := s.db.QueryRowContext(ctx, query, ownerID, taxID).Scan(&e.ID, &e.UserID, &kind, &e.Name, &tid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, business.ErrNotFound
		}

		return nil, fmt.Errorf("finding entity: %w", err)
	}

	e.Kind = business.Kind(kind)
	e.TaxID = &tid

	return &e, nil
}

func (s *Store) FindInvoices(ctx context.Context, filter matching.InvoiceFilter) ([]*invoice.Invoice, error) {
	query := `
		SELECT i.id, i.user_id, i.business_entity_id, b.name, i.number, i.issue_date,
			i.gross_amount, i.currency, i.status, i.type
		FROM invoices i
		JOIN business_entities b ON b.id = i.business_entity_id
		WHERE i.business_entity_id = $1 AND i.issue_date = $2
	`
	args := []any{filter.EntityID, filter.IssueDate}

	if filter.MinGross != nil && filter.MaxGross != nil {
		query += ` AND i.gross_amount BETWEEN $3 AND $4`

		args = append(args, *filter.MinGross, *filter.MaxGross)
	}

	query += ` ORDER BY i.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		var inv invoice.Invoice

		var status, typ string

		if err := rows.Scan(
			&inv.ID, &inv.UserID, &inv.BusinessEntityID, &inv.BusinessName, &inv.Number, &inv.IssueDate,
			&inv.GrossAmount, &inv.Currency, &status, &typ,
		); err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		inv.Status = invoice.Status(status)
		inv.Type = invoice.Type(typ)
		invoices = append(invoices, &inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}
