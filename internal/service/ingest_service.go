package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/reconcile"
	"github.com/fakturnik/invoice-intake-service/internal/repository"
)

// IngestError represents an error that occurred while ingesting a document
type IngestError struct {
	Op  string
	Err error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Op, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// OutcomeKind classifies how the ingestion of one attachment ended.
type OutcomeKind int

const (
	// OutcomeProcessed means the attachment was handled to completion,
	// including the duplicate short-circuit
	OutcomeProcessed OutcomeKind = iota
	// OutcomeSkipped means the attachment was intentionally not ingested
	OutcomeSkipped
	// OutcomeFailed means ingestion hit a hard failure and the attachment
	// should be retried on a later poll
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProcessed:
		return "processed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of ingesting one attachment. Reason is set for skips
// and failures.
type Outcome struct {
	Kind   OutcomeKind
	Reason string

	// Record is the persisted record for newly accepted invoices, or the
	// stored version a duplicate matched. Nil for skips and failures.
	Record *domain.InvoiceRecord
}

// Skip and failure reasons surfaced in Outcome.Reason.
const (
	ReasonArchiveAttachment    = "archive_attachment"
	ReasonNotAnInvoice         = "not_an_invoice"
	ReasonMissingInvoiceNumber = "missing_invoice_number"
	ReasonExtractionFailed     = "extraction_failed"
	ReasonRecordLookupFailed   = "record_lookup_failed"
	ReasonStoreUploadFailed    = "store_upload_failed"
	ReasonStoreWriteFailed     = "store_write_failed"
)

// archiveExtensions are attachment suffixes that are never sent to the
// extractor. Bundled archives are handled manually.
var archiveExtensions = map[string]struct{}{
	".zip": {},
	".rar": {},
	".7z":  {},
	".tar": {},
	".gz":  {},
}

// Extractor turns one downloaded attachment into structured invoice fields.
// A nil result with a nil error means the extractor declined the document
// (not an invoice, or a type outside the processable set).
type Extractor interface {
	Extract(ctx context.Context, filePath string) (*domain.ExtractedInvoice, error)
}

// FileStore archives the original attachment and hands back a stable id and
// a shareable link.
type FileStore interface {
	Upload(ctx context.Context, localPath string, invoice *domain.ExtractedInvoice) (fileID string, link string, err error)
	Delete(ctx context.Context, fileID string) error
}

// TaskBoard tracks unpaid invoices as payment-reminder cards. A nil TaskBoard
// disables card creation.
type TaskBoard interface {
	CreateCard(ctx context.Context, invoice *domain.ExtractedInvoice, fileLink string) (cardID string, err error)
	DeleteCard(ctx context.Context, cardID string) error
}

// Spreadsheet mirrors accepted invoices into the bookkeeping sheet. AppendRow
// returns the written row's range so it can be retired later.
type Spreadsheet interface {
	AppendRow(ctx context.Context, invoice *domain.ExtractedInvoice, fileLink string) (rowRange string, err error)
	DeleteRow(ctx context.Context, rowRange string) error
}

// Retirer tears down the artifacts of a stale invoice version.
type Retirer interface {
	Retire(ctx context.Context, record *domain.InvoiceRecord) reconcile.RetirementReport
}

// IngestRequest identifies one attachment to run through the pipeline.
type IngestRequest struct {
	FilePath        string
	SourceMessageID string
	AttachmentName  string
}

// IngestService is the ingestion orchestrator: it drives one attachment from
// extraction through reconciliation, retirement of stale versions, artifact
// publication and persistence. External side effects are best-effort except
// the file upload and the record write, which abort the pipeline.
type IngestService struct {
	extractor Extractor
	files     FileStore
	board     TaskBoard
	sheet     Spreadsheet
	invoices  repository.InvoiceRepository
	resolver  *reconcile.Resolver
	retirer   Retirer
	locks     *keyLocks
	workers   chan struct{}
	logger    *zap.Logger
}

// NewIngestService creates the orchestrator. maxWorkers bounds how many
// attachments are ingested concurrently.
func NewIngestService(
	extractor Extractor,
	files FileStore,
	board TaskBoard,
	sheet Spreadsheet,
	invoices repository.InvoiceRepository,
	resolver *reconcile.Resolver,
	retirer Retirer,
	maxWorkers int,
	logger *zap.Logger,
) *IngestService {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &IngestService{
		extractor: extractor,
		files:     files,
		board:     board,
		sheet:     sheet,
		invoices:  invoices,
		resolver:  resolver,
		retirer:   retirer,
		locks:     newKeyLocks(),
		workers:   make(chan struct{}, maxWorkers),
		logger:    logger,
	}
}

// Ingest runs one attachment through the full pipeline and reports how it
// ended. It never returns an error for business-level skips; the error is set
// alongside OutcomeFailed so callers can log the cause.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (Outcome, error) {
	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return Outcome{Kind: OutcomeFailed, Reason: "canceled"}, ctx.Err()
	}

	log := s.logger.With(
		zap.String("source_message_id", req.SourceMessageID),
		zap.String("attachment", req.AttachmentName),
	)

	if isArchive(req.AttachmentName) {
		log.Info("skipping archive attachment")
		return Outcome{Kind: OutcomeSkipped, Reason: ReasonArchiveAttachment}, nil
	}

	extracted, err := s.extractor.Extract(ctx, req.FilePath)
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		return Outcome{Kind: OutcomeFailed, Reason: ReasonExtractionFailed}, &IngestError{Op: "extract", Err: err}
	}
	if extracted == nil || !extracted.DocumentType.IsProcessable() {
		log.Info("extractor declined document")
		return Outcome{Kind: OutcomeSkipped, Reason: ReasonNotAnInvoice}, nil
	}

	if extracted.InvoiceNumber == "" {
		log.Warn("extraction has no invoice number")
		return Outcome{Kind: OutcomeFailed, Reason: ReasonMissingInvoiceNumber},
			&IngestError{Op: "validate", Err: fmt.Errorf("invoice number missing from extraction")}
	}

	extracted.ResolveDueDate()

	log = log.With(zap.String("invoice_number", extracted.InvoiceNumber))

	// Two attachments carrying the same invoice number must reconcile one
	// after the other, or both could miss the other's version.
	release := s.locks.acquire(extracted.InvoiceNumber)
	defer release()

	verdict, err := s.resolver.Resolve(ctx, extracted)
	if err != nil {
		log.Error("version lookup failed", zap.Error(err))
		return Outcome{Kind: OutcomeFailed, Reason: ReasonRecordLookupFailed}, &IngestError{Op: "resolve", Err: err}
	}

	switch verdict.Kind {
	case reconcile.VerdictDuplicate:
		log.Info("duplicate delivery, already on record",
			zap.String("record_id", verdict.DuplicateOf.ID))
		return Outcome{Kind: OutcomeProcessed, Record: verdict.DuplicateOf}, nil
	case reconcile.VerdictSupersedes:
		log.Info("corrected re-issue, retiring stale versions",
			zap.Int("stale_versions", len(verdict.Priors)))
		for _, prior := range verdict.Priors {
			report := s.retirer.Retire(ctx, prior)
			if report.RecordDeleteFailed() {
				log.Warn("stale record not removed, continuing with new version",
					zap.String("record_id", prior.ID))
			}
		}
	}

	record, err := s.publish(ctx, log, extracted, req)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Reason: failureReason(err)}, err
	}

	log.Info("invoice ingested", zap.String("record_id", record.ID))
	return Outcome{Kind: OutcomeProcessed, Record: record}, nil
}

// publish uploads the attachment, creates the optional payment card and sheet
// row, and persists the record carrying every artifact reference.
func (s *IngestService) publish(ctx context.Context, log *zap.Logger, extracted *domain.ExtractedInvoice, req IngestRequest) (*domain.InvoiceRecord, error) {
	record := domain.NewInvoiceRecord(extracted, req.SourceMessageID, req.AttachmentName)

	fileID, link, err := s.files.Upload(ctx, req.FilePath, extracted)
	if err != nil {
		log.Error("attachment upload failed", zap.Error(err))
		return nil, &IngestError{Op: "upload", Err: err}
	}
	record.FileStoreID = &fileID
	record.FileStoreLink = &link

	if s.board != nil && extracted.DocumentType == domain.DocumentTypeStandardInvoice && !extracted.IsPaid {
		cardID, err := s.board.CreateCard(ctx, extracted, link)
		if err != nil {
			log.Warn("payment card not created", zap.Error(err))
		} else {
			record.TaskCardID = &cardID
		}
	}

	rowRange, err := s.sheet.AppendRow(ctx, extracted, link)
	if err != nil {
		log.Warn("sheet row not written", zap.Error(err))
	} else {
		record.SheetRowRange = &rowRange
	}

	created, err := s.invoices.Create(ctx, record)
	if err != nil {
		log.Error("record write failed", zap.Error(err))
		return nil, &IngestError{Op: "persist", Err: err}
	}
	return created, nil
}

func failureReason(err error) string {
	var ierr *IngestError
	if errors.As(err, &ierr) {
		switch ierr.Op {
		case "upload":
			return ReasonStoreUploadFailed
		case "persist":
			return ReasonStoreWriteFailed
		}
	}
	return "pipeline_error"
}

func isArchive(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := archiveExtensions[ext]
	return ok
}
