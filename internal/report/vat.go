// Package report builds the monthly VAT summary from the record store and
// publishes it to the bookkeeping spreadsheet.
package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// RecordLister is the slice of the record store the report needs.
type RecordLister interface {
	ListByInvoiceDateRange(ctx context.Context, from, to domain.DateOnly) ([]*domain.InvoiceRecord, error)
}

// SummaryWriter persists one month's summary row.
type SummaryWriter interface {
	UpsertSummaryRow(ctx context.Context, monthLabel string, totalVAT, fuelVAT, payable float64) error
}

// Summary is the VAT result for one calendar month. Fuel-related VAT is only
// half deductible, so half of it is subtracted from the payable total.
type Summary struct {
	MonthLabel string
	// TotalVAT is the VAT sum over all unique invoices, before deductions
	TotalVAT float64
	// FuelVAT is the VAT sum over fuel and car related invoices, at 100%
	FuelVAT float64
	// Payable is TotalVAT minus half of FuelVAT
	Payable float64
	// InvoiceCount is the number of unique invoices included
	InvoiceCount int
	// SkippedCount is the number of records whose VAT amount could not be
	// parsed and were left out of the totals
	SkippedCount int
}

// VATReporter computes and publishes monthly VAT summaries.
type VATReporter struct {
	records RecordLister
	summary SummaryWriter
	logger  *zap.Logger
}

// NewVATReporter creates the reporter.
func NewVATReporter(records RecordLister, summary SummaryWriter, logger *zap.Logger) *VATReporter {
	return &VATReporter{records: records, summary: summary, logger: logger}
}

// RunForPreviousMonth computes the summary for the calendar month before now
// and writes it to the summary sheet.
func (r *VATReporter) RunForPreviousMonth(ctx context.Context, now time.Time) (*Summary, error) {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	firstOfPrevious := firstOfCurrent.AddDate(0, -1, 0)
	return r.Run(ctx, firstOfPrevious.Year(), firstOfPrevious.Month())
}

// Run computes and publishes the summary for one calendar month.
func (r *VATReporter) Run(ctx context.Context, year int, month time.Month) (*Summary, error) {
	from := domain.NewDateOnly(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	to := domain.NewDateOnly(from.AddDate(0, 1, 0))

	records, err := r.records.ListByInvoiceDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for report: %w", err)
	}

	summary := Compute(records, r.logger)
	summary.MonthLabel = from.Format("01.2006")

	if err := r.summary.UpsertSummaryRow(ctx, summary.MonthLabel, summary.TotalVAT, summary.FuelVAT, summary.Payable); err != nil {
		return nil, fmt.Errorf("failed to write summary row: %w", err)
	}

	r.logger.Info("VAT summary published",
		zap.String("month", summary.MonthLabel),
		zap.Int("invoices", summary.InvoiceCount),
		zap.Float64("total_vat", summary.TotalVAT),
		zap.Float64("fuel_vat", summary.FuelVAT),
		zap.Float64("payable", summary.Payable))
	return summary, nil
}

// Compute aggregates one month's records. Records that look like the same
// business invoice (same number, date and gross amount) are counted once even
// if several versions or deliveries slipped through; records without a
// parseable VAT amount are skipped.
func Compute(records []*domain.InvoiceRecord, logger *zap.Logger) *Summary {
	summary := &Summary{}
	seen := make(map[string]struct{})

	for _, rec := range records {
		key := dedupeKey(rec)
		if _, dup := seen[key]; dup {
			logger.Info("duplicate invoice excluded from report",
				zap.String("invoice_number", rec.InvoiceNumber))
			continue
		}
		seen[key] = struct{}{}

		vat, err := domain.ParseAmount(stringValue(rec.VatAmount))
		if err != nil {
			logger.Warn("record VAT amount not parseable, excluded from report",
				zap.String("record_id", rec.ID),
				zap.String("invoice_number", rec.InvoiceNumber))
			summary.SkippedCount++
			continue
		}

		summary.InvoiceCount++
		summary.TotalVAT += vat
		if rec.IsFuelRelated {
			summary.FuelVAT += vat
		}
	}

	summary.Payable = summary.TotalVAT - summary.FuelVAT/2
	return summary
}

func dedupeKey(rec *domain.InvoiceRecord) string {
	date := ""
	if rec.InvoiceDate != nil {
		date = rec.InvoiceDate.String()
	}
	return rec.InvoiceNumber + "|" + date + "|" + stringValue(rec.GrossAmount)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
