package model

import (
	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// InvoiceRecordDTO represents one stored invoice version for data transfer
type InvoiceRecordDTO struct {
	ID              string  `json:"id"`
	DocumentType    string  `json:"document_type"`
	IsPaid          bool    `json:"is_paid"`
	InvoiceNumber   string  `json:"invoice_number"`
	InvoiceDate     *string `json:"invoice_date"` // Format: YYYY-MM-DD
	DueDate         *string `json:"due_date"`     // Format: YYYY-MM-DD
	Payer           *string `json:"payer"`
	PayerNIP        *string `json:"payer_nip"`
	Issuer          *string `json:"issuer"`
	GrossAmount     *string `json:"gross_amount"`
	VatAmount       *string `json:"vat_amount"`
	IsFuelRelated   bool    `json:"is_fuel_related"`
	FileStoreLink   *string `json:"file_store_link"`
	TaskCardID      *string `json:"task_card_id,omitempty"`
	SheetRowRange   *string `json:"sheet_row_range,omitempty"`
	SourceMessageID string  `json:"source_message_id"`
	AttachmentName  string  `json:"attachment_name"`
	CreatedAt       string  `json:"created_at"`
}

// InvoiceListResponse is a page of invoice records with pagination metadata
type InvoiceListResponse struct {
	Data       []InvoiceRecordDTO `json:"data"`
	Pagination domain.Pagination  `json:"pagination"`
}

// ProcessedDocumentDTO represents one handled source message marker
type ProcessedDocumentDTO struct {
	SourceMessageID string `json:"source_message_id"`
	ProcessedAt     string `json:"processed_at"`
}

// ProcessedDocumentListResponse is a page of processed-document markers
type ProcessedDocumentListResponse struct {
	Data []ProcessedDocumentDTO `json:"data"`
}

// TokenRequest represents an API key exchange request
type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// TokenResponse represents an issued access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ReportRunRequest selects the month a VAT report run covers. Both fields
// zero means the previous calendar month.
type ReportRunRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// ReportSummaryDTO represents the outcome of a VAT report run
type ReportSummaryDTO struct {
	MonthLabel   string  `json:"month_label"`
	TotalVAT     float64 `json:"total_vat"`
	FuelVAT      float64 `json:"fuel_vat"`
	Payable      float64 `json:"payable"`
	InvoiceCount int     `json:"invoice_count"`
	SkippedCount int     `json:"skipped_count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FromDomain fills the DTO from a stored invoice record
func (dto *InvoiceRecordDTO) FromDomain(record *domain.InvoiceRecord) {
	dto.ID = record.ID
	dto.DocumentType = string(record.DocumentType)
	dto.IsPaid = record.IsPaid
	dto.InvoiceNumber = record.InvoiceNumber
	dto.InvoiceDate = formatDate(record.InvoiceDate)
	dto.DueDate = formatDate(record.DueDate)
	dto.Payer = record.Payer
	dto.PayerNIP = record.PayerNIP
	dto.Issuer = record.Issuer
	dto.GrossAmount = record.GrossAmount
	dto.VatAmount = record.VatAmount
	dto.IsFuelRelated = record.IsFuelRelated
	dto.FileStoreLink = record.FileStoreLink
	dto.TaskCardID = record.TaskCardID
	dto.SheetRowRange = record.SheetRowRange
	dto.SourceMessageID = record.SourceMessageID
	dto.AttachmentName = record.AttachmentName
	dto.CreatedAt = record.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
}

// InvoiceListFromDomain converts a repository page into the transfer shape
func InvoiceListFromDomain(page *domain.PaginatedInvoices) InvoiceListResponse {
	resp := InvoiceListResponse{
		Data:       make([]InvoiceRecordDTO, len(page.Data)),
		Pagination: page.Pagination,
	}
	for i := range page.Data {
		resp.Data[i].FromDomain(&page.Data[i])
	}
	return resp
}

// ProcessedDocumentsFromDomain converts marker rows into the transfer shape
func ProcessedDocumentsFromDomain(docs []domain.ProcessedDocument) ProcessedDocumentListResponse {
	resp := ProcessedDocumentListResponse{
		Data: make([]ProcessedDocumentDTO, len(docs)),
	}
	for i, doc := range docs {
		resp.Data[i] = ProcessedDocumentDTO{
			SourceMessageID: doc.SourceMessageID,
			ProcessedAt:     doc.ProcessedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return resp
}

func formatDate(d *domain.DateOnly) *string {
	if d == nil || d.IsZero() {
		return nil
	}
	s := d.Format("2006-01-02")
	return &s
}
