package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/business"
	"github.com/NickArm/Invoice-System-sub001/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectEntityColumns = `
	id, user_id, kind, name, tax_id, email, phone, address, city, country, notes, created_at, updated_at
`

func scanEntity(s scanner) (*business.Entity, error) {
	var e business.Entity

	var kind string

	var taxID sql.NullString

	if err := s.Scan(
		&e.ID, &e.UserID, &kind, &e.Name, &taxID,
		&e.Email, &e.Phone, &e.Address, &e.City, &e.Country, &e.Notes,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Kind = business.Kind(kind)

	if taxID.Valid {
		e.TaxID = &taxID.String
	}

	return &e, nil
}

func (s *Store) CreateEntity(ctx context.Context, e *business.Entity) error {
	query := `
		INSERT INTO business_entities (user_id, kind, name, tax_id, email, phone, address, city, country, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		e.UserID, e.Kind, e.Name, e.TaxID, e.Email, e.Phone, e.Address, e.City, e.Country, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "business_entities_user_tax_id") {
			return business.ErrTaxIDTaken
		}

		return fmt.Errorf("creating business entity: %w", err)
	}

	return nil
}

func (s *Store) GetEntity(ctx context.Context, ownerID, id uuid.UUID) (*business.Entity, error) {
	query := `SELECT ` + selectEntityColumns + ` FROM business_entities WHERE id = $1 AND user_id = $2`

	e, err := scanEntity(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, business.ErrNotFound
		}

		return nil, fmt.Errorf("getting business entity: %w", err)
	}

	return e, nil
}

func (s *Store) FindByTaxID(ctx context.Context, ownerID uuid.UUID, taxID string) (*business.Entity, error) {
	query := `SELECT ` + selectEntityColumns + ` FROM business_entities WHERE user_id = $1 AND tax_id = $2`

	e, err := scanEntity(s.db.QueryRowContext(ctx, query, ownerID, taxID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, business.ErrNotFound
		}

		return nil, fmt.Errorf("finding business entity by tax id: %w", err)
	}

	return e, nil
}

func (s *Store) ListEntities(ctx context.Context, filter business.ListFilter) ([]*business.Entity, error) {
	query := `SELECT ` + selectEntityColumns + ` FROM business_entities WHERE user_id = $1`
	args := []any{filter.OwnerID}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%[1]d OR tax_id ILIKE $%[1]d)", len(args))
	}

	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing business entities: %w", err)
	}
	defer rows.Close()

	var entities []*business.Entity

	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning business entity: %w", err)
		}

		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating business entities: %w", err)
	}

	return entities, nil
}

func (s *Store) UpdateEntity(ctx context.Context, e *business.Entity) error {
	query := `
		UPDATE business_entities
		SET kind = $1, name = $2, tax_id = $3, email = $4, phone = $5,
			address = $6, city = $7, country = $8, notes = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11
	`

	res, err := s.db.ExecContext(ctx, query,
		e.Kind, e.Name, e.TaxID, e.Email, e.Phone, e.Address, e.City, e.Country, e.Notes,
		e.ID, e.UserID,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "business_entities_user_tax_id") {
			return business.ErrTaxIDTaken
		}

		return fmt.Errorf("updating business entity: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return business.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM business_entities WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return business.ErrInUse
		}

		return fmt.Errorf("deleting business entity: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return business.ErrNotFound
	}

	return nil
}
