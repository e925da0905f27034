package domain

import (
	"encoding/json"
	"time"
)

// DocumentType classifies a document as reported by the extractor
type DocumentType string

const (
	DocumentTypeStandardInvoice DocumentType = "standard_invoice"
	DocumentTypeProforma        DocumentType = "proforma"
	DocumentTypeOffer           DocumentType = "offer"
	DocumentTypeReceipt         DocumentType = "receipt"
	DocumentTypeOther           DocumentType = "other"
)

// IsProcessable reports whether documents of this type enter the ingestion
// pipeline. Offers, proformas and unclassified documents are filtered out by
// the extractor before they reach reconciliation.
func (t DocumentType) IsProcessable() bool {
	return t == DocumentTypeStandardInvoice || t == DocumentTypeReceipt
}

// DateOnly is a custom type for handling date-only strings from JSON
type DateOnly struct {
	time.Time
}

// NewDateOnly builds a DateOnly from a time value, truncated to the day
func NewDateOnly(t time.Time) DateOnly {
	return DateOnly{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDateOnly parses a YYYY-MM-DD string
func ParseDateOnly(s string) (DateOnly, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DateOnly{}, err
	}
	return DateOnly{Time: t}, nil
}

// UnmarshalJSON implements custom unmarshaling for date-only strings
func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	// Handle null/empty dates
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON implements custom marshaling for date-only strings
func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02"))
}

// String returns the YYYY-MM-DD representation, or "" for the zero value
func (d DateOnly) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// ExtractedInvoice is the structured result of running one attachment through
// the document extractor. It is ephemeral: the orchestrator either discards it
// (duplicate, skip) or turns it into an InvoiceRecord.
type ExtractedInvoice struct {
	DocumentType     DocumentType `json:"document_type"`
	IsPaid           bool         `json:"is_paid"`
	InvoiceNumber    string       `json:"invoice_number"`
	InvoiceDate      *DateOnly    `json:"invoice_date"`
	DueDate          *DateOnly    `json:"due_date"`
	PaymentTermsDays *int         `json:"payment_terms_days"`
	Payer            *string      `json:"payer"`
	PayerNIP         *string      `json:"payer_nip"`
	Issuer           *string      `json:"issuer"`
	GrossAmount      *string      `json:"gross_amount"`
	VatAmount        *string      `json:"vat_amount"`
	IsFuelRelated    bool         `json:"is_fuel_related"`
}

// ResolveDueDate fills in a missing due date from the invoice date and payment
// terms. Extractor output must pass through here before reconciliation so the
// comparator always sees a concrete due date when one is derivable.
func (e *ExtractedInvoice) ResolveDueDate() {
	if e.DueDate != nil && !e.DueDate.IsZero() {
		return
	}
	if e.InvoiceDate == nil || e.InvoiceDate.IsZero() || e.PaymentTermsDays == nil {
		return
	}
	due := NewDateOnly(e.InvoiceDate.AddDate(0, 0, *e.PaymentTermsDays))
	e.DueDate = &due
}

// InvoiceRecord is one accepted invoice version together with the references
// to every downstream artifact published for it. Multiple records may share
// an invoice number; each represents a historical version. Records are never
// mutated after creation except for UpdatedAt.
type InvoiceRecord struct {
	ID              string       `json:"id"`
	DocumentType    DocumentType `json:"document_type"`
	IsPaid          bool         `json:"is_paid"`
	InvoiceNumber   string       `json:"invoice_number"`
	InvoiceDate     *DateOnly    `json:"invoice_date"`
	DueDate         *DateOnly    `json:"due_date"`
	Payer           *string      `json:"payer"`
	PayerNIP        *string      `json:"payer_nip"`
	Issuer          *string      `json:"issuer"`
	GrossAmount     *string      `json:"gross_amount"`
	VatAmount       *string      `json:"vat_amount"`
	IsFuelRelated   bool         `json:"is_fuel_related"`
	FileStoreID     *string      `json:"file_store_id"`
	FileStoreLink   *string      `json:"file_store_link"`
	TaskCardID      *string      `json:"task_card_id"`
	SheetRowRange   *string      `json:"sheet_row_range"`
	SourceMessageID string       `json:"source_message_id"`
	AttachmentName  string       `json:"attachment_name"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewInvoiceRecord builds a record from an extraction. Artifact references are
// filled in by the orchestrator as publish steps complete.
func NewInvoiceRecord(extracted *ExtractedInvoice, sourceMessageID, attachmentName string) *InvoiceRecord {
	return &InvoiceRecord{
		DocumentType:    extracted.DocumentType,
		IsPaid:          extracted.IsPaid,
		InvoiceNumber:   extracted.InvoiceNumber,
		InvoiceDate:     extracted.InvoiceDate,
		DueDate:         extracted.DueDate,
		Payer:           extracted.Payer,
		PayerNIP:        extracted.PayerNIP,
		Issuer:          extracted.Issuer,
		GrossAmount:     extracted.GrossAmount,
		VatAmount:       extracted.VatAmount,
		IsFuelRelated:   extracted.IsFuelRelated,
		SourceMessageID: sourceMessageID,
		AttachmentName:  attachmentName,
	}
}

// ProcessedDocument marks one source mail message as fully handled so polling
// never picks it up again. Written exactly once per message, after all of its
// attachments have been attempted.
type ProcessedDocument struct {
	SourceMessageID string    `json:"source_message_id"`
	ProcessedAt     time.Time `json:"processed_at"`
}
