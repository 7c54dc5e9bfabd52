package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/category"
	"github.com/NickArm/Invoice-System-sub001/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateCategory(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (user_id, name, color)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.UserID, c.Name, c.Color).Scan(&c.ID, &c.CreatedAt); err != nil {
		if database.IsUniqueViolation(err, "categories_user_name") {
			return category.ErrNameTaken
		}

		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, ownerID, id uuid.UUID) (*category.Category, error) {
	query := `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM categories
		WHERE id = $1 AND user_id = $2
	`

	var c category.Category

	err := s.db.QueryRowContext(ctx, query, id, ownerID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, category.ErrNotFound
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]*category.Category, error) {
	query := `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM categories
		WHERE user_id = $1
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*category.Category

	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	return categories, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *category.Category) error {
	query := `
		UPDATE categories
		SET name = $1, color = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4
	`

	res, err := s.db.ExecContext(ctx, query, c.Name, c.Color, c.ID, c.UserID)
	if err != nil {
		if database.IsUniqueViolation(err, "categories_user_name") {
			return category.ErrNameTaken
		}

		return fmt.Errorf("updating category: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return category.ErrNotFound
	}

	return nil
}

// DeleteCategory detaches invoices through ON DELETE SET NULL.
func (s *Store) DeleteCategory(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return category.ErrNotFound
	}

	return nil
}
