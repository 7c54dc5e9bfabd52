package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/database"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Expected column order: id, user_id, business_entity_id, business_name, category_id, number,
// issue_date, due_date, net_amount, vat_amount, gross_amount, currency, status, type, source,
// source_message_id, description, created_at, updated_at
const selectInvoiceColumns = `
	i.id, i.user_id, i.business_entity_id, b.name AS business_name, i.category_id, i.number,
	i.issue_date, i.due_date, i.net_amount, i.vat_amount, i.gross_amount, i.currency,
	i.status, i.type, i.source, i.source_message_id, i.description, i.created_at, i.updated_at
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice

	var status, typ, source string

	var messageID sql.NullString

	if err := s.Scan(
		&inv.ID, &inv.UserID, &inv.BusinessEntityID, &inv.BusinessName, &inv.CategoryID, &inv.Number,
		&inv.IssueDate, &inv.DueDate, &inv.NetAmount, &inv.VATAmount, &inv.GrossAmount, &inv.Currency,
		&status, &typ, &source, &messageID, &inv.Description, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.Status = invoice.Status(status)
	inv.Type = invoice.Type(typ)
	inv.Source = invoice.Source(source)

	if messageID.Valid {
		inv.SourceMessageID = &messageID.String
	}

	return &inv, nil
}

// insertInvoice only inserts when the referenced entity (and category, if any) belong to the owner.
func insertInvoice(ctx context.Context, q queryer, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (user_id, business_entity_id, category_id, number, issue_date, due_date,
			net_amount, vat_amount, gross_amount, currency, status, type, source, source_message_id, description)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::text, $5::date, $6::date,
			$7::bigint, $8::bigint, $9::bigint, $10::text, $11::text, $12::text, $13::text, $14::text, $15::text
		WHERE EXISTS (SELECT 1 FROM business_entities WHERE id = $2 AND user_id = $1)
			AND ($3::uuid IS NULL OR EXISTS (SELECT 1 FROM categories WHERE id = $3 AND user_id = $1))
		RETURNING id, created_at
	`

	err := q.QueryRowContext(ctx, query,
		inv.UserID, inv.BusinessEntityID, inv.CategoryID, inv.Number, inv.IssueDate, inv.DueDate,
		inv.NetAmount, inv.VATAmount, inv.GrossAmount, inv.Currency,
		inv.Status, inv.Type, inv.Source, inv.SourceMessageID, inv.Description,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invoice.ErrInvalidReference
		}

		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func insertAttachment(ctx context.Context, q queryer, a *invoice.Attachment) error {
	query := `
		INSERT INTO attachments (user_id, invoice_id, path, filename, content_type, size, sha256)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := q.QueryRowContext(ctx, query,
		a.UserID, a.InvoiceID, a.Path, a.Filename, a.ContentType, a.Size, a.SHA256,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating attachment: %w", err)
	}

	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	return insertInvoice(ctx, s.db, inv)
}

func (s *Store) GetInvoice(ctx context.Context, ownerID, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices i
		JOIN business_entities b ON b.id = i.business_entity_id
		WHERE i.id = $1 AND i.user_id = $2`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices i
		JOIN business_entities b ON b.id = i.business_entity_id
		WHERE i.user_id = $1`

	args := []any{filter.UserID}
	argIdx := 2

	if filter.Status != nil {
		query += fmt.Sprintf(" AND i.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND i.type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.EntityID != nil {
		query += fmt.Sprintf(" AND i.business_entity_id = $%d", argIdx)

		args = append(args, *filter.EntityID)
		argIdx++
	}

	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND i.category_id = $%d", argIdx)

		args = append(args, *filter.CategoryID)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND i.issue_date >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND i.issue_date <= $%d", argIdx)

		args = append(args, *filter.To)
		argIdx++
	}

	query += " ORDER BY i.issue_date ASC, i.created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices
		SET business_entity_id = $1, category_id = $2, number = $3, issue_date = $4, due_date = $5,
			net_amount = $6, vat_amount = $7, gross_amount = $8, currency = $9,
			status = $10, type = $11, description = $12, updated_at = NOW()
		WHERE id = $13 AND user_id = $14
			AND EXISTS (SELECT 1 FROM business_entities WHERE id = $1 AND user_id = $14)
			AND ($2::uuid IS NULL OR EXISTS (SELECT 1 FROM categories WHERE id = $2 AND user_id = $14))
	`

	res, err := s.db.ExecContext(ctx, query,
		inv.BusinessEntityID, inv.CategoryID, inv.Number, inv.IssueDate, inv.DueDate,
		inv.NetAmount, inv.VATAmount, inv.GrossAmount, inv.Currency,
		inv.Status, inv.Type, inv.Description,
		inv.ID, inv.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return invoice.ErrInvalidReference
	}

	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return invoice.ErrNotFound
	}

	return nil
}

func (s *Store) CreateAttachment(ctx context.Context, a *invoice.Attachment) error {
	return insertAttachment(ctx, s.db, a)
}

const selectAttachmentColumns = `id, user_id, invoice_id, path, filename, content_type, size, sha256, created_at`

func scanAttachment(s scanner) (*invoice.Attachment, error) {
	var a invoice.Attachment
	if err := s.Scan(&a.ID, &a.UserID, &a.InvoiceID, &a.Path, &a.Filename, &a.ContentType, &a.Size, &a.SHA256, &a.CreatedAt); err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *Store) GetAttachment(ctx context.Context, ownerID, id uuid.UUID) (*invoice.Attachment, error) {
	query := `SELECT ` + selectAttachmentColumns + ` FROM attachments WHERE id = $1 AND user_id = $2`

	a, err := scanAttachment(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrAttachmentNotFound
		}

		return nil, fmt.Errorf("getting attachment: %w", err)
	}

	return a, nil
}

func (s *Store) ListAttachments(ctx context.Context, filter invoice.AttachmentFilter) ([]*invoice.Attachment, error) {
	query := `SELECT ` + selectAttachmentColumns + ` FROM attachments WHERE user_id = $1`
	args := []any{filter.UserID}

	if filter.InvoiceID != nil {
		args = append(args, *filter.InvoiceID)
		query += fmt.Sprintf(" AND invoice_id = $%d", len(args))
	}

	if filter.InvoiceIDs != nil {
		args = append(args, uuidStrings(filter.InvoiceIDs))
		query += fmt.Sprintf(" AND invoice_id = ANY($%d::uuid[])", len(args))
	}

	if filter.IDs != nil {
		args = append(args, uuidStrings(filter.IDs))
		query += fmt.Sprintf(" AND id = ANY($%d::uuid[])", len(args))
	}

	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*invoice.Attachment

	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}

		attachments = append(attachments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachments: %w", err)
	}

	return attachments, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}

func isImported(ctx context.Context, q queryer, userID uuid.UUID, messageID string) (bool, error) {
	var exists bool

	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM imported_messages WHERE user_id = $1 AND message_id = $2)`,
		userID, messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking imported message: %w", err)
	}

	return exists, nil
}

func (s *Store) IsImported(ctx context.Context, userID uuid.UUID, messageID string) (bool, error) {
	return isImported(ctx, s.db, userID, messageID)
}

func (s *Store) MarkImported(ctx context.Context, userID uuid.UUID, messageID string, invoiceID *uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imported_messages (user_id, message_id, invoice_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, message_id) DO NOTHING
	`, userID, messageID, invoiceID)
	if err != nil {
		return fmt.Errorf("marking message imported: %w", err)
	}

	return nil
}

func importLockKey(userID uuid.UUID, messageID string) int64 {
	h := fnv.New64a()
	h.Write(userID[:])
	h.Write([]byte{0})
	h.Write([]byte(messageID))

	return int64(h.Sum64())
}

type importTx struct {
	tx        *sql.Tx
	userID    uuid.UUID
	messageID string
}

// BeginImport serializes concurrent imports of the same message with a
// transaction scoped advisory lock.
func (s *Store) BeginImport(ctx context.Context, userID uuid.UUID, messageID string) (invoice.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(userID, messageID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx, userID: userID, messageID: messageID}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) IsImported(ctx context.Context) (bool, error) {
	return isImported(ctx, itx.tx, itx.userID, itx.messageID)
}

func (itx *importTx) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	return insertInvoice(ctx, itx.tx, inv)
}

func (itx *importTx) CreateAttachment(ctx context.Context, a *invoice.Attachment) error {
	return insertAttachment(ctx, itx.tx, a)
}

func (itx *importTx) MarkImported(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := itx.tx.ExecContext(ctx,
		`INSERT INTO imported_messages (user_id, message_id, invoice_id) VALUES ($1, $2, $3)`,
		itx.userID, itx.messageID, invoiceID,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "imported_messages_pkey") {
			return invoice.ErrAlreadyImported
		}

		return fmt.Errorf("marking message imported: %w", err)
	}

	return nil
}
