package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/model"
	"github.com/fakturnik/invoice-intake-service/internal/repository"
)

// DocumentHandler handles HTTP requests for processed-document markers
type DocumentHandler struct {
	processed repository.ProcessedDocumentRepository
	logger    *zap.Logger
}

// NewDocumentHandler creates a new processed-document handler
func NewDocumentHandler(processed repository.ProcessedDocumentRepository, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		processed: processed,
		logger:    logger,
	}
}

// RegisterRoutes registers the handler's routes on the given router group
func (h *DocumentHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/processed-documents", h.ListProcessedDocuments)
}

// ListProcessedDocuments lists source messages already marked as handled
// @Summary List processed documents
// @Description List source messages that the poller has fully handled, newest first
// @Tags documents
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 50, max 100)"
// @Success 200 {object} model.ProcessedDocumentListResponse "Processed-document markers"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /v1/processed-documents [get]
func (h *DocumentHandler) ListProcessedDocuments(c *gin.Context) {
	page, err := getQueryInt(c, "page", 1)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	limit, err := getQueryInt(c, "limit", 50)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := validatePagination(page, limit); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	docs, err := h.processed.List(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		h.logger.Error("processed document list failed", zap.Error(err))
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, model.ProcessedDocumentsFromDomain(docs))
}
