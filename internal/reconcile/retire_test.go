package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

type fakeRemovers struct {
	fileErr   error
	cardErr   error
	rowErr    error
	recordErr error

	deletedFiles   []string
	deletedCards   []string
	deletedRows    []string
	deletedRecords []string
}

func (f *fakeRemovers) Delete(_ context.Context, id string) error {
	f.deletedFiles = append(f.deletedFiles, id)
	return f.fileErr
}

func (f *fakeRemovers) DeleteCard(_ context.Context, id string) error {
	f.deletedCards = append(f.deletedCards, id)
	return f.cardErr
}

func (f *fakeRemovers) DeleteRow(_ context.Context, rowRange string) error {
	f.deletedRows = append(f.deletedRows, rowRange)
	return f.rowErr
}

type fakeRecordRemover struct {
	parent *fakeRemovers
}

func (f *fakeRecordRemover) Delete(_ context.Context, id string) error {
	f.parent.deletedRecords = append(f.parent.deletedRecords, id)
	return f.parent.recordErr
}

func newTestCoordinator(f *fakeRemovers) *Coordinator {
	return NewCoordinator(f, f, f, &fakeRecordRemover{parent: f}, zap.NewNop())
}

func fullyPublishedRecord() *domain.InvoiceRecord {
	return &domain.InvoiceRecord{
		ID:            "rec-1",
		InvoiceNumber: "FV/2024/07/001",
		FileStoreID:   strPtr("file-1"),
		TaskCardID:    strPtr("card-1"),
		SheetRowRange: strPtr("07.2024!A5:J5"),
	}
}

func TestRetireAllArtifacts(t *testing.T) {
	f := &fakeRemovers{}
	report := newTestCoordinator(f).Retire(context.Background(), fullyPublishedRecord())

	assert.Equal(t, StepSucceeded, report.FileStore.Status)
	assert.Equal(t, StepSucceeded, report.TaskCard.Status)
	assert.Equal(t, StepSucceeded, report.SheetRow.Status)
	assert.Equal(t, StepSucceeded, report.Record.Status)
	assert.False(t, report.RecordDeleteFailed())

	assert.Equal(t, []string{"file-1"}, f.deletedFiles)
	assert.Equal(t, []string{"card-1"}, f.deletedCards)
	assert.Equal(t, []string{"07.2024!A5:J5"}, f.deletedRows)
	assert.Equal(t, []string{"rec-1"}, f.deletedRecords)
}

func TestRetireFileFailureDoesNotBlockOtherSteps(t *testing.T) {
	f := &fakeRemovers{fileErr: errors.New("drive unavailable")}
	report := newTestCoordinator(f).Retire(context.Background(), fullyPublishedRecord())

	assert.Equal(t, StepFailed, report.FileStore.Status)
	assert.Error(t, report.FileStore.Err)
	assert.Equal(t, StepSucceeded, report.TaskCard.Status)
	assert.Equal(t, StepSucceeded, report.SheetRow.Status)
	assert.Equal(t, StepSucceeded, report.Record.Status)

	assert.Equal(t, []string{"card-1"}, f.deletedCards, "card delete still ran")
	assert.Equal(t, []string{"rec-1"}, f.deletedRecords, "record delete still ran")
}

func TestRetireSkipsAbsentReferences(t *testing.T) {
	f := &fakeRemovers{}
	record := &domain.InvoiceRecord{ID: "rec-2", InvoiceNumber: "FV/2024/07/002"}

	report := newTestCoordinator(f).Retire(context.Background(), record)

	assert.Equal(t, StepSkipped, report.FileStore.Status)
	assert.Equal(t, StepSkipped, report.TaskCard.Status)
	assert.Equal(t, StepSkipped, report.SheetRow.Status)
	assert.Equal(t, StepSucceeded, report.Record.Status)

	assert.Empty(t, f.deletedFiles)
	assert.Empty(t, f.deletedCards)
	assert.Empty(t, f.deletedRows)
	assert.Equal(t, []string{"rec-2"}, f.deletedRecords, "record delete always runs")
}

func TestRetireRecordDeleteFailureIsSurfaced(t *testing.T) {
	f := &fakeRemovers{recordErr: errors.New("deadlock detected")}
	report := newTestCoordinator(f).Retire(context.Background(), fullyPublishedRecord())

	assert.True(t, report.RecordDeleteFailed())
	assert.Equal(t, StepFailed, report.Record.Status)
	assert.Error(t, report.Record.Err)
	// External teardown still completed before the record delete
	assert.Equal(t, []string{"file-1"}, f.deletedFiles)
	assert.Equal(t, []string{"card-1"}, f.deletedCards)
	assert.Equal(t, []string{"07.2024!A5:J5"}, f.deletedRows)
}
