package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/model"
	"github.com/fakturnik/invoice-intake-service/internal/reconcile"
	"github.com/fakturnik/invoice-intake-service/internal/repository"
)

type stubInvoiceRepo struct {
	records map[string]*domain.InvoiceRecord
	listErr error
}

func newStubInvoiceRepo(records ...*domain.InvoiceRecord) *stubInvoiceRepo {
	repo := &stubInvoiceRepo{records: map[string]*domain.InvoiceRecord{}}
	for _, r := range records {
		repo.records[r.ID] = r
	}
	return repo
}

func (s *stubInvoiceRepo) Create(ctx context.Context, record *domain.InvoiceRecord) (*domain.InvoiceRecord, error) {
	s.records[record.ID] = record
	return record, nil
}

func (s *stubInvoiceRepo) GetByID(ctx context.Context, id string) (*domain.InvoiceRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return record, nil
}

func (s *stubInvoiceRepo) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) ([]*domain.InvoiceRecord, error) {
	var out []*domain.InvoiceRecord
	for _, r := range s.records {
		if r.InvoiceNumber == invoiceNumber {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubInvoiceRepo) Delete(ctx context.Context, id string) error {
	if _, ok := s.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *stubInvoiceRepo) List(ctx context.Context, filter domain.InvoiceFilter) (*domain.PaginatedInvoices, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var matched []domain.InvoiceRecord
	for _, r := range s.records {
		if filter.InvoiceNumber != "" && r.InvoiceNumber != filter.InvoiceNumber {
			continue
		}
		if filter.FuelOnly && !r.IsFuelRelated {
			continue
		}
		matched = append(matched, *r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return &domain.PaginatedInvoices{
		Data: matched,
		Pagination: domain.Pagination{
			TotalItems:  len(matched),
			TotalPages:  1,
			CurrentPage: filter.Page,
			Limit:       filter.Limit,
		},
	}, nil
}

func (s *stubInvoiceRepo) ListByInvoiceDateRange(ctx context.Context, from, to domain.DateOnly) ([]*domain.InvoiceRecord, error) {
	return nil, nil
}

func testRecord(id, number string) *domain.InvoiceRecord {
	payer := "Acme Sp. z o.o."
	gross := "1230.00"
	date := domain.NewDateOnly(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	return &domain.InvoiceRecord{
		ID:              id,
		DocumentType:    domain.DocumentTypeStandardInvoice,
		InvoiceNumber:   number,
		InvoiceDate:     &date,
		Payer:           &payer,
		GrossAmount:     &gross,
		SourceMessageID: "msg-1",
		AttachmentName:  "invoice.pdf",
		CreatedAt:       time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
	}
}

type stubRetirer struct {
	repo    *stubInvoiceRepo
	retired []string
	fail    bool
}

func (s *stubRetirer) Retire(ctx context.Context, record *domain.InvoiceRecord) reconcile.RetirementReport {
	report := reconcile.RetirementReport{RecordID: record.ID}
	if s.fail {
		report.Record = reconcile.StepOutcome{Status: reconcile.StepFailed, Err: assert.AnError}
		return report
	}
	_ = s.repo.Delete(ctx, record.ID)
	s.retired = append(s.retired, record.ID)
	report.Record = reconcile.StepOutcome{Status: reconcile.StepSucceeded}
	return report
}

func newInvoiceRouter(repo *stubInvoiceRepo) *gin.Engine {
	router, _ := newInvoiceRouterWithRetirer(repo)
	return router
}

func newInvoiceRouterWithRetirer(repo *stubInvoiceRepo) (*gin.Engine, *stubRetirer) {
	gin.SetMode(gin.TestMode)
	retirer := &stubRetirer{repo: repo}
	router := gin.New()
	h := NewInvoiceHandler(repo, retirer, zap.NewNop())
	h.RegisterRoutes(router.Group("/v1"))
	return router, retirer
}

func TestListInvoices(t *testing.T) {
	repo := newStubInvoiceRepo(testRecord("rec-1", "FV/1/2026"), testRecord("rec-2", "FV/2/2026"))
	router := newInvoiceRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp model.InvoiceListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Pagination.TotalItems)
}

func TestListInvoicesFilterByNumber(t *testing.T) {
	repo := newStubInvoiceRepo(testRecord("rec-1", "FV/1/2026"), testRecord("rec-2", "FV/2/2026"))
	router := newInvoiceRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices?invoice_number=FV/2/2026", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp model.InvoiceListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "rec-2", resp.Data[0].ID)
}

func TestListInvoicesRejectsBadPagination(t *testing.T) {
	router := newInvoiceRouter(newStubInvoiceRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices?limit=500", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListInvoicesRejectsBadDate(t *testing.T) {
	router := newInvoiceRouter(newStubInvoiceRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices?start_date=03-10-2026", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetInvoice(t *testing.T) {
	repo := newStubInvoiceRepo(testRecord("rec-1", "FV/1/2026"))
	router := newInvoiceRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/rec-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var dto model.InvoiceRecordDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
	assert.Equal(t, "FV/1/2026", dto.InvoiceNumber)
	require.NotNil(t, dto.InvoiceDate)
	assert.Equal(t, "2026-03-10", *dto.InvoiceDate)
}

func TestGetInvoiceNotFound(t *testing.T) {
	router := newInvoiceRouter(newStubInvoiceRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteInvoiceRetiresRecord(t *testing.T) {
	repo := newStubInvoiceRepo(testRecord("rec-1", "FV/1/2026"))
	router, retirer := newInvoiceRouterWithRetirer(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/invoices/rec-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"rec-1"}, retirer.retired)
	assert.Empty(t, repo.records)
}

func TestDeleteInvoiceSurfacesRecordDeleteFailure(t *testing.T) {
	repo := newStubInvoiceRepo(testRecord("rec-1", "FV/1/2026"))
	router, retirer := newInvoiceRouterWithRetirer(repo)
	retirer.fail = true

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/invoices/rec-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDeleteInvoiceNotFound(t *testing.T) {
	router := newInvoiceRouter(newStubInvoiceRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/invoices/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
