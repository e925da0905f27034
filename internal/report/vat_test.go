package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

func record(number, date, gross, vat string, fuel bool) *domain.InvoiceRecord {
	rec := &domain.InvoiceRecord{
		InvoiceNumber: number,
		IsFuelRelated: fuel,
	}
	if date != "" {
		d, err := domain.ParseDateOnly(date)
		if err != nil {
			panic(err)
		}
		rec.InvoiceDate = &d
	}
	if gross != "" {
		rec.GrossAmount = &gross
	}
	if vat != "" {
		rec.VatAmount = &vat
	}
	return rec
}

func TestComputeTotalsAndFuelDeduction(t *testing.T) {
	records := []*domain.InvoiceRecord{
		record("FV/1", "2026-01-05", "1230,00", "230,00", false),
		record("FV/2", "2026-01-12", "615,00", "115,00", true),
		record("FV/3", "2026-01-20", "246,00", "46,00", true),
	}

	summary := Compute(records, zap.NewNop())

	assert.Equal(t, 3, summary.InvoiceCount)
	assert.InDelta(t, 391.0, summary.TotalVAT, 0.001)
	assert.InDelta(t, 161.0, summary.FuelVAT, 0.001)
	// payable = total minus half the fuel VAT
	assert.InDelta(t, 310.5, summary.Payable, 0.001)
}

func TestComputeDeduplicatesByNumberDateGross(t *testing.T) {
	records := []*domain.InvoiceRecord{
		record("FV/1", "2026-01-05", "1230,00", "230,00", false),
		record("FV/1", "2026-01-05", "1230,00", "230,00", false),
		// same number but different gross is a distinct entry
		record("FV/1", "2026-01-05", "1500,00", "280,00", false),
	}

	summary := Compute(records, zap.NewNop())

	assert.Equal(t, 2, summary.InvoiceCount)
	assert.InDelta(t, 510.0, summary.TotalVAT, 0.001)
}

func TestComputeSkipsUnparseableVAT(t *testing.T) {
	records := []*domain.InvoiceRecord{
		record("FV/1", "2026-01-05", "1230,00", "230,00", false),
		record("FV/2", "2026-01-06", "100,00", "n/a", false),
		record("FV/3", "2026-01-07", "100,00", "", false),
	}

	summary := Compute(records, zap.NewNop())

	assert.Equal(t, 1, summary.InvoiceCount)
	assert.Equal(t, 2, summary.SkippedCount)
	assert.InDelta(t, 230.0, summary.TotalVAT, 0.001)
}

func TestComputeEmptyMonth(t *testing.T) {
	summary := Compute(nil, zap.NewNop())

	assert.Equal(t, 0, summary.InvoiceCount)
	assert.InDelta(t, 0.0, summary.TotalVAT, 0.001)
	assert.InDelta(t, 0.0, summary.Payable, 0.001)
}

type fakeLister struct {
	gotFrom domain.DateOnly
	gotTo   domain.DateOnly
	records []*domain.InvoiceRecord
	err     error
}

func (f *fakeLister) ListByInvoiceDateRange(_ context.Context, from, to domain.DateOnly) ([]*domain.InvoiceRecord, error) {
	f.gotFrom = from
	f.gotTo = to
	return f.records, f.err
}

type fakeSummaryWriter struct {
	gotLabel   string
	gotTotal   float64
	gotFuel    float64
	gotPayable float64
	err        error
	calls      int
}

func (f *fakeSummaryWriter) UpsertSummaryRow(_ context.Context, monthLabel string, totalVAT, fuelVAT, payable float64) error {
	f.calls++
	f.gotLabel = monthLabel
	f.gotTotal = totalVAT
	f.gotFuel = fuelVAT
	f.gotPayable = payable
	return f.err
}

func TestRunForPreviousMonthWindow(t *testing.T) {
	lister := &fakeLister{records: []*domain.InvoiceRecord{
		record("FV/1", "2026-01-05", "1230,00", "230,00", true),
	}}
	writer := &fakeSummaryWriter{}
	reporter := NewVATReporter(lister, writer, zap.NewNop())

	now := time.Date(2026, time.February, 15, 9, 0, 0, 0, time.UTC)
	summary, err := reporter.RunForPreviousMonth(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, "01.2026", summary.MonthLabel)
	assert.Equal(t, "2026-01-01", lister.gotFrom.String())
	assert.Equal(t, "2026-02-01", lister.gotTo.String())
	assert.Equal(t, 1, writer.calls)
	assert.Equal(t, "01.2026", writer.gotLabel)
	assert.InDelta(t, 230.0, writer.gotTotal, 0.001)
	assert.InDelta(t, 230.0, writer.gotFuel, 0.001)
	assert.InDelta(t, 115.0, writer.gotPayable, 0.001)
}

func TestRunYearBoundary(t *testing.T) {
	lister := &fakeLister{}
	writer := &fakeSummaryWriter{}
	reporter := NewVATReporter(lister, writer, zap.NewNop())

	now := time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)
	summary, err := reporter.RunForPreviousMonth(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, "12.2025", summary.MonthLabel)
	assert.Equal(t, "2025-12-01", lister.gotFrom.String())
	assert.Equal(t, "2026-01-01", lister.gotTo.String())
}

func TestRunSurfacesListError(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	reporter := NewVATReporter(lister, &fakeSummaryWriter{}, zap.NewNop())

	_, err := reporter.Run(context.Background(), 2026, time.January)
	require.Error(t, err)
}

func TestRunSurfacesWriteError(t *testing.T) {
	writer := &fakeSummaryWriter{err: errors.New("sheets down")}
	reporter := NewVATReporter(&fakeLister{}, writer, zap.NewNop())

	_, err := reporter.Run(context.Background(), 2026, time.January)
	require.Error(t, err)
}
