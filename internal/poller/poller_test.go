package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/mailbox"
	"github.com/fakturnik/invoice-intake-service/internal/report"
	"github.com/fakturnik/invoice-intake-service/internal/service"
)

type fakeInbox struct {
	messages    map[string][]mailbox.Attachment
	order       []string
	downloadErr error
	cleaned     [][]mailbox.Attachment
}

func (f *fakeInbox) FindNewMessages(_ context.Context) ([]string, error) {
	return f.order, nil
}

func (f *fakeInbox) DownloadAttachments(_ context.Context, messageID string) ([]mailbox.Attachment, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.messages[messageID], nil
}

func (f *fakeInbox) Cleanup(attachments []mailbox.Attachment) {
	f.cleaned = append(f.cleaned, attachments)
}

type fakeIngestor struct {
	outcomes map[string]service.Outcome
	requests []service.IngestRequest
}

func (f *fakeIngestor) Ingest(_ context.Context, req service.IngestRequest) (service.Outcome, error) {
	f.requests = append(f.requests, req)
	outcome, ok := f.outcomes[req.AttachmentName]
	if !ok {
		outcome = service.Outcome{Kind: service.OutcomeProcessed}
	}
	if outcome.Kind == service.OutcomeFailed {
		return outcome, errors.New(outcome.Reason)
	}
	return outcome, nil
}

type fakeProcessed struct {
	mu     sync.Mutex
	marked []string
}

func (f *fakeProcessed) MarkProcessed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeProcessed) IsProcessed(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.marked {
		if m == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProcessed) List(_ context.Context, _, _ int) ([]domain.ProcessedDocument, error) {
	return nil, nil
}

type fakeReporter struct {
	runs []time.Time
	err  error
}

func (f *fakeReporter) RunForPreviousMonth(_ context.Context, now time.Time) (*report.Summary, error) {
	f.runs = append(f.runs, now)
	return &report.Summary{}, f.err
}

func newTestPoller(inbox *fakeInbox, ingestor *fakeIngestor, processed *fakeProcessed, reporter Reporter, cfg Config) *Poller {
	return New(inbox, ingestor, processed, reporter, cfg, zap.NewNop())
}

func TestPollOnceMarksFullyHandledMessages(t *testing.T) {
	inbox := &fakeInbox{
		order: []string{"msg-1"},
		messages: map[string][]mailbox.Attachment{
			"msg-1": {
				{Filename: "a.pdf", LocalPath: "/tmp/a.pdf"},
				{Filename: "offer.pdf", LocalPath: "/tmp/offer.pdf"},
			},
		},
	}
	ingestor := &fakeIngestor{outcomes: map[string]service.Outcome{
		"offer.pdf": {Kind: service.OutcomeSkipped, Reason: service.ReasonNotAnInvoice},
	}}
	processed := &fakeProcessed{}
	p := newTestPoller(inbox, ingestor, processed, nil, Config{})

	p.pollOnce(context.Background())

	require.Len(t, ingestor.requests, 2)
	assert.Equal(t, []string{"msg-1"}, processed.marked)
	require.Len(t, inbox.cleaned, 1)
}

func TestPollOnceLeavesFailedMessagesUnmarked(t *testing.T) {
	inbox := &fakeInbox{
		order: []string{"msg-1"},
		messages: map[string][]mailbox.Attachment{
			"msg-1": {
				{Filename: "good.pdf", LocalPath: "/tmp/good.pdf"},
				{Filename: "bad.pdf", LocalPath: "/tmp/bad.pdf"},
			},
		},
	}
	ingestor := &fakeIngestor{outcomes: map[string]service.Outcome{
		"bad.pdf": {Kind: service.OutcomeFailed, Reason: service.ReasonStoreUploadFailed},
	}}
	processed := &fakeProcessed{}
	p := newTestPoller(inbox, ingestor, processed, nil, Config{})

	p.pollOnce(context.Background())

	// both attachments were attempted, but the marker is withheld
	require.Len(t, ingestor.requests, 2)
	assert.Empty(t, processed.marked)
}

func TestPollOnceMarksAttachmentlessMessages(t *testing.T) {
	inbox := &fakeInbox{order: []string{"msg-1"}, messages: map[string][]mailbox.Attachment{}}
	ingestor := &fakeIngestor{}
	processed := &fakeProcessed{}
	p := newTestPoller(inbox, ingestor, processed, nil, Config{})

	p.pollOnce(context.Background())

	assert.Empty(t, ingestor.requests)
	assert.Equal(t, []string{"msg-1"}, processed.marked)
}

func TestPollOnceRetriesOnDownloadError(t *testing.T) {
	inbox := &fakeInbox{order: []string{"msg-1"}, downloadErr: errors.New("gmail 500")}
	processed := &fakeProcessed{}
	p := newTestPoller(inbox, &fakeIngestor{}, processed, nil, Config{})

	p.pollOnce(context.Background())

	assert.Empty(t, processed.marked)
}

func TestReportFiresOnceOnScheduledDay(t *testing.T) {
	reporter := &fakeReporter{}
	p := newTestPoller(&fakeInbox{}, &fakeIngestor{}, &fakeProcessed{}, reporter, Config{
		ReportDayOfMonth: 15,
		ReportHour:       9,
	})

	day := time.Date(2026, time.February, 15, 9, 5, 0, 0, time.UTC)
	p.maybeRunReport(context.Background(), day)
	p.maybeRunReport(context.Background(), day.Add(time.Hour))

	require.Len(t, reporter.runs, 1)
}

func TestReportSkipsOtherDaysAndEarlyHours(t *testing.T) {
	reporter := &fakeReporter{}
	p := newTestPoller(&fakeInbox{}, &fakeIngestor{}, &fakeProcessed{}, reporter, Config{
		ReportDayOfMonth: 15,
		ReportHour:       9,
	})

	p.maybeRunReport(context.Background(), time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC))
	p.maybeRunReport(context.Background(), time.Date(2026, time.February, 15, 8, 59, 0, 0, time.UTC))

	assert.Empty(t, reporter.runs)
}

func TestReportRetriesAfterFailure(t *testing.T) {
	reporter := &fakeReporter{err: errors.New("sheets down")}
	p := newTestPoller(&fakeInbox{}, &fakeIngestor{}, &fakeProcessed{}, reporter, Config{
		ReportDayOfMonth: 15,
		ReportHour:       9,
	})

	day := time.Date(2026, time.February, 15, 9, 5, 0, 0, time.UTC)
	p.maybeRunReport(context.Background(), day)
	reporter.err = nil
	p.maybeRunReport(context.Background(), day.Add(time.Minute))

	require.Len(t, reporter.runs, 2)
}
