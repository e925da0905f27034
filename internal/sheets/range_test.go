package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

func baseInvoice() *domain.ExtractedInvoice {
	date, err := domain.ParseDateOnly("2026-01-10")
	if err != nil {
		panic(err)
	}
	return &domain.ExtractedInvoice{
		DocumentType:  domain.DocumentTypeStandardInvoice,
		InvoiceNumber: "FV/1/2026",
		InvoiceDate:   &date,
	}
}

func TestParseRowRange(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTitle string
		wantRow   int64
		wantErr   bool
	}{
		{
			name:      "unquoted tab with full range",
			input:     "05.2025!A10:J10",
			wantTitle: "05.2025",
			wantRow:   10,
		},
		{
			name:      "single cell",
			input:     "01.2026!B3",
			wantTitle: "01.2026",
			wantRow:   3,
		},
		{
			name:      "quoted tab with spaces",
			input:     "'VAT Звіт'!A7:D7",
			wantTitle: "VAT Звіт",
			wantRow:   7,
		},
		{
			name:    "missing tab",
			input:   "A10:J10",
			wantErr: true,
		},
		{
			name:    "no row number",
			input:   "05.2025!A:J",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, row, err := parseRowRange(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantRow, row)
		})
	}
}

func TestInvoiceRowUsesCommaDecimals(t *testing.T) {
	gross := "1230.00"
	vat := "230.00"
	issuer := "Stacja Paliw"
	invoice := baseInvoice()
	invoice.GrossAmount = &gross
	invoice.VatAmount = &vat
	invoice.Issuer = &issuer
	invoice.IsFuelRelated = true

	row := invoiceRow(invoice, "https://drive.example/file")

	require.Len(t, row, len(invoiceHeaders))
	assert.Equal(t, "1230,00", row[6])
	assert.Equal(t, "230,00", row[7])
	assert.Equal(t, "Так", row[8])
	assert.Equal(t, "https://drive.example/file", row[9])
}

func TestInvoiceRowHandlesMissingFields(t *testing.T) {
	row := invoiceRow(baseInvoice(), "")

	require.Len(t, row, len(invoiceHeaders))
	assert.Equal(t, "", row[2])
	assert.Equal(t, "", row[3])
	assert.Equal(t, "", row[6])
	assert.Equal(t, "Ні", row[8])
}
