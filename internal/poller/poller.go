// Package poller drives the intake loop: on a fixed interval it discovers
// unprocessed inbox messages, runs every attachment through the ingestion
// pipeline, and fires the monthly VAT report on its scheduled day.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/mailbox"
	"github.com/fakturnik/invoice-intake-service/internal/repository"
	"github.com/fakturnik/invoice-intake-service/internal/report"
	"github.com/fakturnik/invoice-intake-service/internal/service"
)

// Inbox is the mailbox surface the poller needs.
type Inbox interface {
	FindNewMessages(ctx context.Context) ([]string, error)
	DownloadAttachments(ctx context.Context, messageID string) ([]mailbox.Attachment, error)
	Cleanup(attachments []mailbox.Attachment)
}

// Ingestor runs one attachment through the pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, req service.IngestRequest) (service.Outcome, error)
}

// Reporter publishes the previous month's VAT summary.
type Reporter interface {
	RunForPreviousMonth(ctx context.Context, now time.Time) (*report.Summary, error)
}

// Config holds the poller's schedule.
type Config struct {
	Interval time.Duration
	// ReportDayOfMonth and ReportHour schedule the monthly VAT report
	ReportDayOfMonth int
	ReportHour       int
}

// Poller owns the intake loop.
type Poller struct {
	inbox     Inbox
	ingestor  Ingestor
	processed repository.ProcessedDocumentRepository
	reporter  Reporter
	cfg       Config
	logger    *zap.Logger

	// lastReportMonth guards against firing the report twice in one month
	lastReportMonth string
}

// New creates a poller.
func New(inbox Inbox, ingestor Ingestor, processed repository.ProcessedDocumentRepository, reporter Reporter, cfg Config, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 20 * time.Second
	}
	return &Poller{
		inbox:     inbox,
		ingestor:  ingestor,
		processed: processed,
		reporter:  reporter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run polls until the context is canceled. An in-flight document is always
// allowed to finish; cancellation takes effect between documents so
// retirement is never cut off halfway.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", zap.Duration("interval", p.cfg.Interval))
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case now := <-ticker.C:
			p.tick(ctx, now)
		}
	}
}

func (p *Poller) tick(ctx context.Context, now time.Time) {
	p.maybeRunReport(ctx, now)
	p.pollOnce(ctx)
}

// pollOnce handles one round of discovery and processing.
func (p *Poller) pollOnce(ctx context.Context) {
	ids, err := p.inbox.FindNewMessages(ctx)
	if err != nil {
		p.logger.Error("inbox poll failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
		}
		// finish the document even if shutdown starts mid-way
		p.processMessage(context.WithoutCancel(ctx), id)
	}
}

// processMessage downloads a message's attachments, ingests each one, and
// writes the processed marker once all of them have been attempted. A hard
// failure on any attachment leaves the message unmarked so the next poll
// retries it; duplicate detection makes the retry idempotent.
func (p *Poller) processMessage(ctx context.Context, messageID string) {
	log := p.logger.With(zap.String("message_id", messageID))

	attachments, err := p.inbox.DownloadAttachments(ctx, messageID)
	if err != nil {
		log.Error("failed to download attachments, will retry next poll", zap.Error(err))
		return
	}
	defer p.inbox.Cleanup(attachments)

	if len(attachments) == 0 {
		log.Info("message has no downloadable attachments, marking processed")
		p.markProcessed(ctx, log, messageID)
		return
	}

	anyFailed := false
	for _, att := range attachments {
		outcome, err := p.ingestor.Ingest(ctx, service.IngestRequest{
			FilePath:        att.LocalPath,
			SourceMessageID: messageID,
			AttachmentName:  att.Filename,
		})
		switch outcome.Kind {
		case service.OutcomeFailed:
			anyFailed = true
			log.Error("attachment ingestion failed",
				zap.String("attachment", att.Filename),
				zap.String("reason", outcome.Reason),
				zap.Error(err))
		case service.OutcomeSkipped:
			log.Info("attachment skipped",
				zap.String("attachment", att.Filename),
				zap.String("reason", outcome.Reason))
		default:
			log.Info("attachment processed", zap.String("attachment", att.Filename))
		}
	}

	if anyFailed {
		log.Warn("leaving message unmarked for retry")
		return
	}
	p.markProcessed(ctx, log, messageID)
}

func (p *Poller) markProcessed(ctx context.Context, log *zap.Logger, messageID string) {
	if err := p.processed.MarkProcessed(ctx, messageID); err != nil {
		log.Error("failed to write processed marker", zap.Error(err))
	}
}

// maybeRunReport fires the monthly VAT report once per month on the
// configured day and hour. The summary write is an upsert, so an extra run
// after a restart is harmless.
func (p *Poller) maybeRunReport(ctx context.Context, now time.Time) {
	if p.reporter == nil || p.cfg.ReportDayOfMonth <= 0 {
		return
	}
	if now.Day() != p.cfg.ReportDayOfMonth || now.Hour() < p.cfg.ReportHour {
		return
	}
	month := now.Format("2006-01")
	if p.lastReportMonth == month {
		return
	}

	p.lastReportMonth = month
	if _, err := p.reporter.RunForPreviousMonth(ctx, now); err != nil {
		p.logger.Error("VAT report run failed", zap.Error(err))
		// retry on the next tick within the same day
		p.lastReportMonth = ""
	}
}
