package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/model"
	"github.com/fakturnik/invoice-intake-service/internal/report"
)

// ReportHandler handles HTTP requests that trigger VAT report runs
type ReportHandler struct {
	reporter *report.VATReporter
	logger   *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reporter *report.VATReporter, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reporter: reporter,
		logger:   logger,
	}
}

// RegisterRoutes registers the handler's routes on the given router group
func (h *ReportHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/reports/vat", h.RunVATReport)
}

// RunVATReport runs the monthly VAT report on demand
// @Summary Run the VAT report
// @Description Compute VAT totals for a month and upsert the summary row. An empty body targets the previous calendar month.
// @Tags reports
// @Accept json
// @Produce json
// @Param request body model.ReportRunRequest false "Target month"
// @Success 200 {object} model.ReportSummaryDTO "Report summary"
// @Failure 400 {object} model.ErrorResponse "Invalid month selection"
// @Failure 500 {object} model.ErrorResponse "Report run failed"
// @Security BearerAuth
// @Router /v1/reports/vat [post]
func (h *ReportHandler) RunVATReport(c *gin.Context) {
	var req model.ReportRunRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondBadRequest(c, ErrInvalidInput)
			return
		}
	}

	if (req.Year == 0) != (req.Month == 0) {
		respondBadRequest(c, "year and month must be provided together")
		return
	}
	if req.Month < 0 || req.Month > 12 {
		respondBadRequest(c, "month must be between 1 and 12")
		return
	}

	var (
		summary *report.Summary
		err     error
	)
	if req.Year == 0 {
		summary, err = h.reporter.RunForPreviousMonth(c.Request.Context(), time.Now())
	} else {
		summary, err = h.reporter.Run(c.Request.Context(), req.Year, time.Month(req.Month))
	}
	if err != nil {
		h.logger.Error("vat report run failed", zap.Error(err))
		respondInternalServerError(c, "Report run failed")
		return
	}

	respondOK(c, model.ReportSummaryDTO{
		MonthLabel:   summary.MonthLabel,
		TotalVAT:     summary.TotalVAT,
		FuelVAT:      summary.FuelVAT,
		Payable:      summary.Payable,
		InvoiceCount: summary.InvoiceCount,
		SkippedCount: summary.SkippedCount,
	})
}
