package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// PostgresDocumentRepository implements ProcessedDocumentRepository using PostgreSQL
type PostgresDocumentRepository struct {
	db *pgxpool.Pool
}

// NewPostgresDocumentRepository creates a new PostgreSQL processed-document repository
func NewPostgresDocumentRepository(db *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

// MarkProcessed records a source message as handled. A marker that already
// exists is left untouched; the first processed_at wins.
func (r *PostgresDocumentRepository) MarkProcessed(ctx context.Context, sourceMessageID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO processed_documents (source_message_id)
		VALUES ($1)
		ON CONFLICT (source_message_id) DO NOTHING
	`, sourceMessageID)
	if err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}
	return nil
}

// IsProcessed reports whether a source message has been handled
func (r *PostgresDocumentRepository) IsProcessed(ctx context.Context, sourceMessageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM processed_documents WHERE source_message_id = $1)
	`, sourceMessageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed document: %w", err)
	}
	return exists, nil
}

// List retrieves recent markers, newest first
func (r *PostgresDocumentRepository) List(ctx context.Context, limit, offset int) ([]domain.ProcessedDocument, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT source_message_id, processed_at
		FROM processed_documents
		ORDER BY processed_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed documents: %w", err)
	}
	defer rows.Close()

	markers := []domain.ProcessedDocument{}
	for rows.Next() {
		var m domain.ProcessedDocument
		if err := rows.Scan(&m.SourceMessageID, &m.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan processed document: %w", err)
		}
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processed documents: %w", err)
	}

	return markers, nil
}
