package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// StepStatus is the outcome of one teardown step
type StepStatus int

const (
	// StepSkipped means the record carried no reference for this artifact
	StepSkipped StepStatus = iota
	// StepSucceeded means the artifact was deleted (or was already gone)
	StepSucceeded
	// StepFailed means the delete call returned an error
	StepFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepSkipped:
		return "skipped"
	case StepSucceeded:
		return "succeeded"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepOutcome is the status of one teardown step plus its error, if any
type StepOutcome struct {
	Status StepStatus
	Err    error
}

// RetirementReport records, independently, the outcome of each teardown step
// for one stored invoice version.
type RetirementReport struct {
	RecordID  string
	FileStore StepOutcome
	TaskCard  StepOutcome
	SheetRow  StepOutcome
	Record    StepOutcome
}

// RecordDeleteFailed reports whether the record-store delete failed. This is
// the one outcome callers must surface: a surviving stale record risks a
// duplicate version row on the next delivery.
func (r RetirementReport) RecordDeleteFailed() bool {
	return r.Record.Status == StepFailed
}

// FileRemover deletes a stored file by its reference. Implementations treat
// an already-deleted file as success.
type FileRemover interface {
	Delete(ctx context.Context, fileID string) error
}

// CardRemover deletes a task-board card by its reference. Implementations
// treat an already-deleted card as success.
type CardRemover interface {
	DeleteCard(ctx context.Context, cardID string) error
}

// RowRemover deletes a spreadsheet row by its range reference.
// Implementations treat a missing sheet or row as success.
type RowRemover interface {
	DeleteRow(ctx context.Context, rowRange string) error
}

// RecordRemover deletes a stored invoice record by ID
type RecordRemover interface {
	Delete(ctx context.Context, id string) error
}

// Coordinator tears down every downstream artifact of a stale invoice
// version. Teardown is best-effort and non-transactional: one external
// system's failure never blocks the others, because a stray remote artifact
// is cheaper than a stale local record that blocks re-ingestion.
type Coordinator struct {
	files   FileRemover
	cards   CardRemover
	rows    RowRemover
	records RecordRemover
	logger  *zap.Logger
}

// NewCoordinator creates a retirement coordinator. cards may be nil when no
// task board is configured; the card step is then reported as skipped.
func NewCoordinator(files FileRemover, cards CardRemover, rows RowRemover, records RecordRemover, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		files:   files,
		cards:   cards,
		rows:    rows,
		records: records,
		logger:  logger,
	}
}

// Retire deletes the remote file, task card and spreadsheet row referenced by
// the record, each skipped when the record carries no reference, then deletes
// the record itself. The record delete always runs last, after the other
// three have been attempted regardless of their outcomes. Retire never
// returns an error; callers read the report.
func (c *Coordinator) Retire(ctx context.Context, record *domain.InvoiceRecord) RetirementReport {
	report := RetirementReport{RecordID: record.ID}
	log := c.logger.With(
		zap.String("record_id", record.ID),
		zap.String("invoice_number", record.InvoiceNumber))

	log.Info("retiring stale invoice version")

	report.FileStore = c.retireStep(ctx, log, "file_store", record.FileStoreID, func(ctx context.Context, ref string) error {
		return c.files.Delete(ctx, ref)
	})
	if c.cards != nil {
		report.TaskCard = c.retireStep(ctx, log, "task_card", record.TaskCardID, func(ctx context.Context, ref string) error {
			return c.cards.DeleteCard(ctx, ref)
		})
	}
	report.SheetRow = c.retireStep(ctx, log, "sheet_row", record.SheetRowRange, func(ctx context.Context, ref string) error {
		return c.rows.DeleteRow(ctx, ref)
	})

	if err := c.records.Delete(ctx, record.ID); err != nil {
		report.Record = StepOutcome{Status: StepFailed, Err: err}
		log.Warn("record-store delete failed; a stale version row survives", zap.Error(err))
	} else {
		report.Record = StepOutcome{Status: StepSucceeded}
		log.Info("stale record deleted")
	}

	return report
}

func (c *Coordinator) retireStep(ctx context.Context, log *zap.Logger, step string, ref *string, del func(context.Context, string) error) StepOutcome {
	if ref == nil || *ref == "" {
		log.Info("retirement step skipped, no reference", zap.String("step", step))
		return StepOutcome{Status: StepSkipped}
	}

	if err := del(ctx, *ref); err != nil {
		log.Warn("retirement step failed",
			zap.String("step", step),
			zap.String("ref", *ref),
			zap.Error(err))
		return StepOutcome{Status: StepFailed, Err: err}
	}

	log.Info("retirement step succeeded", zap.String("step", step), zap.String("ref", *ref))
	return StepOutcome{Status: StepSucceeded}
}
