package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration is a single forward-only schema change.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "users, business entities and categories",
		Statements: []string{
			`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
			`CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				email TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				tax_id TEXT,
				mailbox_enabled BOOLEAN NOT NULL DEFAULT FALSE,
				mailbox_host TEXT NOT NULL DEFAULT '',
				mailbox_port INTEGER NOT NULL DEFAULT 993,
				mailbox_username TEXT NOT NULL DEFAULT '',
				mailbox_password TEXT NOT NULL DEFAULT '',
				mailbox_folder TEXT NOT NULL DEFAULT 'INBOX',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ,
				CONSTRAINT users_admin_active CHECK (role <> 'admin' OR is_active)
			)`,
			`CREATE TABLE IF NOT EXISTS business_entities (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				kind TEXT NOT NULL DEFAULT 'supplier',
				name TEXT NOT NULL,
				tax_id TEXT,
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				city TEXT NOT NULL DEFAULT '',
				country TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS business_entities_user_tax_id
				ON business_entities (user_id, tax_id) WHERE tax_id IS NOT NULL`,
			`CREATE TABLE IF NOT EXISTS categories (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				color TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ,
				CONSTRAINT categories_user_name UNIQUE (user_id, name)
			)`,
		},
	},
	{
		Version:     2,
		Description: "invoices, attachments and imported messages",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS invoices (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				business_entity_id UUID NOT NULL REFERENCES business_entities(id) ON DELETE RESTRICT,
				category_id UUID REFERENCES categories(id) ON DELETE SET NULL,
				number TEXT NOT NULL DEFAULT '',
				issue_date DATE NOT NULL,
				due_date DATE,
				net_amount BIGINT NOT NULL DEFAULT 0,
				vat_amount BIGINT NOT NULL DEFAULT 0,
				gross_amount BIGINT NOT NULL,
				currency TEXT NOT NULL DEFAULT 'EUR',
				status TEXT NOT NULL,
				type TEXT NOT NULL,
				source TEXT NOT NULL DEFAULT 'manual',
				source_message_id TEXT,
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS invoices_match
				ON invoices (business_entity_id, issue_date, gross_amount)`,
			`CREATE INDEX IF NOT EXISTS invoices_user_date ON invoices (user_id, issue_date)`,
			`CREATE TABLE IF NOT EXISTS attachments (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				invoice_id UUID REFERENCES invoices(id) ON DELETE CASCADE,
				path TEXT NOT NULL UNIQUE,
				filename TEXT NOT NULL,
				content_type TEXT NOT NULL,
				size BIGINT NOT NULL,
				sha256 TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS attachments_invoice ON attachments (invoice_id)`,
			`CREATE TABLE IF NOT EXISTS imported_messages (
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				message_id TEXT NOT NULL,
				invoice_id UUID REFERENCES invoices(id) ON DELETE SET NULL,
				imported_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT imported_messages_pkey PRIMARY KEY (user_id, message_id)
			)`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}

	return tx.Commit()
}
