package repository

import (
	"context"
	"errors"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// InvoiceRepository defines the interface for invoice record storage
type InvoiceRepository interface {
	// Create persists a new invoice record, assigning its ID and timestamps
	Create(ctx context.Context, record *domain.InvoiceRecord) (*domain.InvoiceRecord, error)

	// GetByID retrieves an invoice record by its ID
	GetByID(ctx context.Context, id string) (*domain.InvoiceRecord, error)

	// FindByInvoiceNumber retrieves every stored version sharing the given
	// business key, ordered most-recent-first by creation time
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) ([]*domain.InvoiceRecord, error)

	// Delete removes an invoice record by its ID
	Delete(ctx context.Context, id string) error

	// List retrieves invoice records with filters and pagination
	List(ctx context.Context, filter domain.InvoiceFilter) (*domain.PaginatedInvoices, error)

	// ListByInvoiceDateRange retrieves records whose invoice date falls in
	// [from, to), for reporting
	ListByInvoiceDateRange(ctx context.Context, from, to domain.DateOnly) ([]*domain.InvoiceRecord, error)
}

// ProcessedDocumentRepository tracks which source mail messages have been
// fully handled
type ProcessedDocumentRepository interface {
	// MarkProcessed records a source message as handled. Marking the same
	// message twice is a no-op
	MarkProcessed(ctx context.Context, sourceMessageID string) error

	// IsProcessed reports whether a source message has been handled
	IsProcessed(ctx context.Context, sourceMessageID string) (bool, error)

	// List retrieves recent markers, newest first
	List(ctx context.Context, limit, offset int) ([]domain.ProcessedDocument, error)
}
