package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// invoiceColumns is the column list shared by every SELECT over invoices
const invoiceColumns = `id, document_type, is_paid, invoice_number, invoice_date, due_date,
	payer, payer_nip, issuer, gross_amount, vat_amount, is_fuel_related,
	file_store_id, file_store_link, task_card_id, sheet_row_range,
	source_message_id, attachment_name, created_at, updated_at`

// PostgresInvoiceRepository implements InvoiceRepository using PostgreSQL
type PostgresInvoiceRepository struct {
	db *pgxpool.Pool
}

// NewPostgresInvoiceRepository creates a new PostgreSQL invoice repository
func NewPostgresInvoiceRepository(db *pgxpool.Pool) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{db: db}
}

// Create persists a new invoice record
func (r *PostgresInvoiceRepository) Create(ctx context.Context, record *domain.InvoiceRecord) (*domain.InvoiceRecord, error) {
	record.ID = uuid.NewString()

	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (
			id, document_type, is_paid, invoice_number, invoice_date, due_date,
			payer, payer_nip, issuer, gross_amount, vat_amount, is_fuel_related,
			file_store_id, file_store_link, task_card_id, sheet_row_range,
			source_message_id, attachment_name
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`,
		record.ID, record.DocumentType, record.IsPaid, record.InvoiceNumber,
		dateArg(record.InvoiceDate), dateArg(record.DueDate),
		record.Payer, record.PayerNIP, record.Issuer,
		record.GrossAmount, record.VatAmount, record.IsFuelRelated,
		record.FileStoreID, record.FileStoreLink, record.TaskCardID, record.SheetRowRange,
		record.SourceMessageID, record.AttachmentName,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice record: %w", err)
	}

	return record, nil
}

// GetByID retrieves an invoice record by its ID
func (r *PostgresInvoiceRepository) GetByID(ctx context.Context, id string) (*domain.InvoiceRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	record, err := scanInvoice(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice record: %w", err)
	}
	return record, nil
}

// FindByInvoiceNumber retrieves all versions sharing a business key,
// most-recent-first
func (r *PostgresInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) ([]*domain.InvoiceRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE invoice_number = $1
		ORDER BY created_at DESC
	`, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices by number: %w", err)
	}
	defer rows.Close()

	var records []*domain.InvoiceRecord
	for rows.Next() {
		record, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice records: %w", err)
	}

	return records, nil
}

// Delete removes an invoice record by its ID
func (r *PostgresInvoiceRepository) Delete(ctx context.Context, id string) error {
	commandTag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice record: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// dateArg converts an optional DateOnly into a nullable SQL date argument
func dateArg(d *domain.DateOnly) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.InvoiceRecord, error) {
	var record domain.InvoiceRecord
	var invoiceDate, dueDate *time.Time

	err := row.Scan(
		&record.ID, &record.DocumentType, &record.IsPaid, &record.InvoiceNumber,
		&invoiceDate, &dueDate,
		&record.Payer, &record.PayerNIP, &record.Issuer,
		&record.GrossAmount, &record.VatAmount, &record.IsFuelRelated,
		&record.FileStoreID, &record.FileStoreLink, &record.TaskCardID, &record.SheetRowRange,
		&record.SourceMessageID, &record.AttachmentName, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if invoiceDate != nil {
		d := domain.NewDateOnly(*invoiceDate)
		record.InvoiceDate = &d
	}
	if dueDate != nil {
		d := domain.NewDateOnly(*dueDate)
		record.DueDate = &d
	}

	return &record, nil
}
