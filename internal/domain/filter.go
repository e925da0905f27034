package domain

import "time"

// InvoiceFilter holds optional criteria for listing invoice records
type InvoiceFilter struct {
	InvoiceNumber string
	Payer         string
	Issuer        string
	FuelOnly      bool
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	Limit         int
}

// Pagination holds pagination metadata for list responses
type Pagination struct {
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// PaginatedInvoices is a page of invoice records with pagination metadata
type PaginatedInvoices struct {
	Data       []InvoiceRecord `json:"data"`
	Pagination Pagination      `json:"pagination"`
}
