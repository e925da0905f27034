package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/model"
	"github.com/fakturnik/invoice-intake-service/internal/repository"
	"github.com/fakturnik/invoice-intake-service/internal/service"
)

// InvoiceHandler handles HTTP requests for stored invoice records
type InvoiceHandler struct {
	invoices repository.InvoiceRepository
	retirer  service.Retirer
	logger   *zap.Logger
}

// NewInvoiceHandler creates a new invoice record handler. The retirer tears
// down a record's published artifacts on administrative delete.
func NewInvoiceHandler(invoices repository.InvoiceRepository, retirer service.Retirer, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		retirer:  retirer,
		logger:   logger,
	}
}

// RegisterRoutes registers the handler's routes on the given router group
func (h *InvoiceHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/invoices", h.ListInvoices)
	group.GET("/invoices/:id", h.GetInvoice)
	group.DELETE("/invoices/:id", h.DeleteInvoice)
}

// ListInvoices handles a request to list stored invoice records
// @Summary List invoice records
// @Description List stored invoice records with optional filters and pagination
// @Tags invoices
// @Produce json
// @Param invoice_number query string false "Filter by invoice number"
// @Param payer query string false "Filter by payer name (substring match)"
// @Param issuer query string false "Filter by issuer name (substring match)"
// @Param fuel_only query bool false "Only fuel-related invoices"
// @Param start_date query string false "Invoice date lower bound (YYYY-MM-DD)"
// @Param end_date query string false "Invoice date upper bound (YYYY-MM-DD)"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} model.InvoiceListResponse "Page of invoice records"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /v1/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter, err := buildInvoiceFilter(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	page, err := h.invoices.List(c.Request.Context(), *filter)
	if err != nil {
		h.logger.Error("invoice list failed", zap.Error(err))
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, model.InvoiceListFromDomain(page))
}

// GetInvoice handles a request for a single invoice record
// @Summary Get an invoice record
// @Description Fetch one stored invoice record by id
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice record id"
// @Success 200 {object} model.InvoiceRecordDTO "Invoice record"
// @Failure 404 {object} model.ErrorResponse "Record not found"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /v1/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	record, err := h.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, ErrResourceNotFound)
			return
		}
		h.logger.Error("invoice lookup failed", zap.String("id", id), zap.Error(err))
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	var dto model.InvoiceRecordDTO
	dto.FromDomain(record)
	respondOK(c, dto)
}

// DeleteInvoice handles a request to remove an invoice record together with
// its published artifacts (stored file, payment card, sheet row).
// @Summary Delete an invoice record
// @Description Retire one stored invoice record: delete its stored file, payment card and sheet row best-effort, then the record itself
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice record id"
// @Success 204 "Record retired"
// @Failure 404 {object} model.ErrorResponse "Record not found"
// @Failure 500 {object} model.ErrorResponse "Record delete failed"
// @Security BearerAuth
// @Router /v1/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	record, err := h.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, ErrResourceNotFound)
			return
		}
		h.logger.Error("invoice lookup failed", zap.String("id", id), zap.Error(err))
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	report := h.retirer.Retire(c.Request.Context(), record)
	if report.RecordDeleteFailed() {
		h.logger.Error("invoice delete failed", zap.String("id", id), zap.Error(report.Record.Err))
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondNoContent(c)
}

// buildInvoiceFilter assembles the repository filter from query parameters
func buildInvoiceFilter(c *gin.Context) (*domain.InvoiceFilter, error) {
	page, err := getQueryInt(c, "page", 1)
	if err != nil {
		return nil, err
	}
	limit, err := getQueryInt(c, "limit", 20)
	if err != nil {
		return nil, err
	}
	if err := validatePagination(page, limit); err != nil {
		return nil, err
	}

	filter := &domain.InvoiceFilter{
		InvoiceNumber: getQueryString(c, "invoice_number"),
		Payer:         getQueryString(c, "payer"),
		Issuer:        getQueryString(c, "issuer"),
		FuelOnly:      c.Query("fuel_only") == "true",
		Page:          page,
		Limit:         limit,
	}

	if start := getQueryString(c, "start_date"); start != "" {
		t, err := parseDate(start)
		if err != nil {
			return nil, err
		}
		filter.StartDate = &t
	}
	if end := getQueryString(c, "end_date"); end != "" {
		t, err := parseDate(end)
		if err != nil {
			return nil, err
		}
		filter.EndDate = &t
	}

	return filter, nil
}
