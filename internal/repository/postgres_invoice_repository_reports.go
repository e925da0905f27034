package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/Masterminds/squirrel"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// psql builds queries with PostgreSQL placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// List retrieves invoice records with filters and pagination
func (r *PostgresInvoiceRepository) List(ctx context.Context, filter domain.InvoiceFilter) (*domain.PaginatedInvoices, error) {
	result := &domain.PaginatedInvoices{
		Data:       []domain.InvoiceRecord{},
		Pagination: domain.Pagination{},
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	where := filterConditions(filter)

	// Count total items
	countSQL, countArgs, err := psql.Select("COUNT(*)").From("invoices").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalItems int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&totalItems); err != nil {
		return nil, fmt.Errorf("failed to count invoice records: %w", err)
	}

	result.Pagination.TotalItems = totalItems
	result.Pagination.Limit = filter.Limit
	result.Pagination.CurrentPage = filter.Page
	result.Pagination.TotalPages = int(math.Ceil(float64(totalItems) / float64(filter.Limit)))

	if totalItems == 0 {
		return result, nil
	}

	offset := (filter.Page - 1) * filter.Limit
	listSQL, listArgs, err := psql.Select(invoiceColumns).
		From("invoices").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice record: %w", err)
		}
		result.Data = append(result.Data, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice records: %w", err)
	}

	return result, nil
}

// ListByInvoiceDateRange retrieves records whose invoice date falls in [from, to)
func (r *PostgresInvoiceRepository) ListByInvoiceDateRange(ctx context.Context, from, to domain.DateOnly) ([]*domain.InvoiceRecord, error) {
	listSQL, args, err := psql.Select(invoiceColumns).
		From("invoices").
		Where(squirrel.And{
			squirrel.GtOrEq{"invoice_date": from.Time},
			squirrel.Lt{"invoice_date": to.Time},
		}).
		OrderBy("invoice_date ASC, created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build date range query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice records by date range: %w", err)
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

func filterConditions(filter domain.InvoiceFilter) squirrel.And {
	conditions := squirrel.And{}
	if filter.InvoiceNumber != "" {
		conditions = append(conditions, squirrel.Eq{"invoice_number": filter.InvoiceNumber})
	}
	if filter.Payer != "" {
		conditions = append(conditions, squirrel.ILike{"payer": "%" + filter.Payer + "%"})
	}
	if filter.Issuer != "" {
		conditions = append(conditions, squirrel.ILike{"issuer": "%" + filter.Issuer + "%"})
	}
	if filter.FuelOnly {
		conditions = append(conditions, squirrel.Eq{"is_fuel_related": true})
	}
	if filter.StartDate != nil {
		conditions = append(conditions, squirrel.GtOrEq{"invoice_date": *filter.StartDate})
	}
	if filter.EndDate != nil {
		conditions = append(conditions, squirrel.LtOrEq{"invoice_date": *filter.EndDate})
	}
	return conditions
}
