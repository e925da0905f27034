package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/payers"
)

func newTestDirectory(t *testing.T) *payers.Directory {
	t.Helper()
	return payers.NewDirectory(map[string]string{
		"5213017228": "Acme Sp. z o.o.",
	})
}

const fullAnswer = `{
	"document_type": "standard_invoice",
	"is_paid": false,
	"invoice_number": "FV/12/2026",
	"invoice_date": "2026-01-05",
	"due_date": null,
	"payment_terms_days": 14,
	"payer": "Acme Sp. z o.o.",
	"payer_nip": "5213017228",
	"issuer": "Stacja Paliw Orlen",
	"gross_amount": 1230.00,
	"vat_amount": "230,00",
	"is_fuel_related": true
}`

func TestParseExtractionFullAnswer(t *testing.T) {
	extracted, err := parseExtraction(fullAnswer)
	require.NoError(t, err)
	require.NotNil(t, extracted)

	assert.Equal(t, domain.DocumentTypeStandardInvoice, extracted.DocumentType)
	assert.False(t, extracted.IsPaid)
	assert.Equal(t, "FV/12/2026", extracted.InvoiceNumber)
	require.NotNil(t, extracted.InvoiceDate)
	assert.Equal(t, "2026-01-05", extracted.InvoiceDate.String())
	assert.Nil(t, extracted.DueDate)
	require.NotNil(t, extracted.PaymentTermsDays)
	assert.Equal(t, 14, *extracted.PaymentTermsDays)
	require.NotNil(t, extracted.PayerNIP)
	assert.Equal(t, "5213017228", *extracted.PayerNIP)
	require.NotNil(t, extracted.GrossAmount)
	assert.Equal(t, "1230.00", *extracted.GrossAmount)
	require.NotNil(t, extracted.VatAmount)
	assert.Equal(t, "230,00", *extracted.VatAmount)
	assert.True(t, extracted.IsFuelRelated)
}

func TestParseExtractionStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + fullAnswer + "\n```"

	extracted, err := parseExtraction(fenced)
	require.NoError(t, err)
	require.NotNil(t, extracted)
	assert.Equal(t, "FV/12/2026", extracted.InvoiceNumber)
}

func TestParseExtractionRecoversObjectFromProse(t *testing.T) {
	wrapped := "Here is the extracted data:\n" + fullAnswer + "\nLet me know if you need anything else."

	extracted, err := parseExtraction(wrapped)
	require.NoError(t, err)
	require.NotNil(t, extracted)
	assert.Equal(t, "FV/12/2026", extracted.InvoiceNumber)
}

func TestParseExtractionDeclinesNonInvoiceTypes(t *testing.T) {
	for _, docType := range []string{"offer", "proforma", "other"} {
		answer := `{
			"document_type": "` + docType + `",
			"is_paid": null, "invoice_number": null, "invoice_date": null,
			"due_date": null, "payer": null, "payer_nip": null, "issuer": null,
			"gross_amount": null, "vat_amount": null, "is_fuel_related": null
		}`

		extracted, err := parseExtraction(answer)
		require.NoError(t, err, docType)
		assert.Nil(t, extracted, docType)
	}
}

func TestParseExtractionDeclinesOnMissingKeys(t *testing.T) {
	partial := `{"document_type": "standard_invoice", "invoice_number": "FV/1/2026"}`

	extracted, err := parseExtraction(partial)
	require.NoError(t, err)
	assert.Nil(t, extracted)
}

func TestParseExtractionRejectsNonJSON(t *testing.T) {
	_, err := parseExtraction("I could not read this document.")
	require.Error(t, err)

	var gerr *GeminiError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "parse_extraction_json", gerr.Op)
}

func TestParseExtractionToleratesInvalidDates(t *testing.T) {
	answer := `{
		"document_type": "receipt",
		"is_paid": true,
		"invoice_number": "PAR/3/2026",
		"invoice_date": "05.01.2026",
		"due_date": null,
		"payer": null, "payer_nip": null, "issuer": null,
		"gross_amount": "49,99", "vat_amount": null,
		"is_fuel_related": false
	}`

	extracted, err := parseExtraction(answer)
	require.NoError(t, err)
	require.NotNil(t, extracted)
	assert.Nil(t, extracted.InvoiceDate)
	assert.True(t, extracted.IsPaid)
}

func TestResolvePayerPrefersDirectoryNIP(t *testing.T) {
	client := NewClient(&Config{
		APIKey: "test",
		Payers: newTestDirectory(t),
	})

	nip := "521-301-72-28"
	misread := "ACME sp z o o"
	extracted := &domain.ExtractedInvoice{PayerNIP: &nip, Payer: &misread}
	client.resolvePayer(extracted)

	require.NotNil(t, extracted.Payer)
	assert.Equal(t, "Acme Sp. z o.o.", *extracted.Payer)
}

func TestResolvePayerBackfillsNIPFromName(t *testing.T) {
	client := NewClient(&Config{
		APIKey: "test",
		Payers: newTestDirectory(t),
	})

	name := "Acme Sp. z o.o."
	extracted := &domain.ExtractedInvoice{Payer: &name}
	client.resolvePayer(extracted)

	require.NotNil(t, extracted.PayerNIP)
	assert.Equal(t, "5213017228", *extracted.PayerNIP)
}
