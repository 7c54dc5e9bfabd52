package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/database"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
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

const selectUserColumns = `
	id, email, name, password_hash, role, is_active, tax_id,
	mailbox_enabled, mailbox_host, mailbox_port, mailbox_username, mailbox_password, mailbox_folder,
	created_at, updated_at
`

func scanUser(s scanner) (*user.User, error) {
	var u user.User

	var role string

	var taxID sql.NullString

	if err := s.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.IsActive, &taxID,
		&u.Mailbox.Enabled, &u.Mailbox.Host, &u.Mailbox.Port, &u.Mailbox.Username, &u.Mailbox.Password, &u.Mailbox.Folder,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.Role = user.Role(role)

	if taxID.Valid {
		u.TaxID = &taxID.String
	}

	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, role, is_active, tax_id,
			mailbox_enabled, mailbox_host, mailbox_port, mailbox_username, mailbox_password, mailbox_folder)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		u.Email, u.Name, u.PasswordHash, u.Role, u.IsActive, u.TaxID,
		u.Mailbox.Enabled, u.Mailbox.Host, u.Mailbox.Port, u.Mailbox.Username, u.Mailbox.Password, u.Mailbox.Folder,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return user.ErrEmailTaken
		}

		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user by email: %w", err)
	}

	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, filter user.ListFilter) ([]*user.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE TRUE`

	var args []any

	if filter.MailboxEnabled != nil {
		args = append(args, *filter.MailboxEnabled)
		query += fmt.Sprintf(" AND mailbox_enabled = $%d", len(args))
	}

	if filter.ActiveOnly {
		query += " AND is_active"
	}

	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*user.User

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET name = $1, tax_id = $2,
			mailbox_enabled = $3, mailbox_host = $4, mailbox_port = $5,
			mailbox_username = $6, mailbox_password = $7, mailbox_folder = $8,
			updated_at = NOW()
		WHERE id = $9
	`

	res, err := s.db.ExecContext(ctx, query,
		u.Name, u.TaxID,
		u.Mailbox.Enabled, u.Mailbox.Host, u.Mailbox.Port,
		u.Mailbox.Username, u.Mailbox.Password, u.Mailbox.Folder,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	return expectOne(res, user.ErrNotFound)
}

// SetActive never deactivates admins, mirroring the users_admin_active check.
func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE users
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2 AND role <> 'admin'
	`

	res, err := s.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("updating user status: %w", err)
	}

	return expectOne(res, user.ErrNotFound)
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	return expectOne(res, user.ErrNotFound)
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}
