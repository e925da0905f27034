// Package mailbox reads the intake inbox: it lists messages matching the
// configured query, filters out those already handled, and downloads their
// attachments for extraction.
package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"github.com/fakturnik/invoice-intake-service/internal/googleapi"
	"github.com/fakturnik/invoice-intake-service/internal/repository"
)

// Attachment is one downloaded attachment from an inbox message.
type Attachment struct {
	// Filename is the original attachment filename from the message.
	Filename string
	// LocalPath is where the attachment bytes were written.
	LocalPath string
}

// Gmail finds unprocessed inbox messages and pulls their attachments.
type Gmail struct {
	svc         *gmail.Service
	processed   repository.ProcessedDocumentRepository
	limiter     *googleapi.RateLimiter
	query       string
	afterDate   string
	downloadDir string
	logger      *zap.Logger
}

// NewGmail creates the inbox reader. afterDate (YYYY-MM-DD, optional)
// restricts the search to messages received after that day.
func NewGmail(svc *gmail.Service, processed repository.ProcessedDocumentRepository, query, afterDate, downloadDir string, logger *zap.Logger) *Gmail {
	return &Gmail{
		svc:         svc,
		processed:   processed,
		limiter:     googleapi.NewRateLimiter(googleapi.ServiceGmail),
		query:       query,
		afterDate:   strings.TrimSpace(afterDate),
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// FindNewMessages lists message ids matching the query that have not been
// marked processed yet, following pagination to the end.
func (g *Gmail) FindNewMessages(ctx context.Context) ([]string, error) {
	query := g.query
	if g.afterDate != "" {
		// Gmail date filters use YYYY/MM/DD
		query += " after:" + strings.ReplaceAll(g.afterDate, "-", "/")
	}

	var newIDs []string
	pageToken := ""
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := g.svc.Users.Messages.List("me").Q(query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, msg := range resp.Messages {
			done, err := g.processed.IsProcessed(ctx, msg.Id)
			if err != nil {
				return nil, fmt.Errorf("failed to check processed marker for %s: %w", msg.Id, err)
			}
			if !done {
				newIDs = append(newIDs, msg.Id)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if len(newIDs) > 0 {
		g.logger.Info("found unprocessed messages", zap.Int("count", len(newIDs)))
	}
	return newIDs, nil
}

// DownloadAttachments fetches a message and writes each of its attachments to
// the download directory. A single broken attachment is logged and skipped so
// the rest of the message still gets processed.
func (g *Gmail) DownloadAttachments(ctx context.Context, messageID string) ([]Attachment, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	msg, err := g.svc.Users.Messages.Get("me", messageID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	if msg.Payload == nil {
		return nil, nil
	}

	if err := os.MkdirAll(g.downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	var attachments []Attachment
	for _, part := range collectAttachmentParts(msg.Payload.Parts) {
		att, err := g.downloadPart(ctx, messageID, part)
		if err != nil {
			g.logger.Warn("attachment download failed",
				zap.String("message_id", messageID),
				zap.String("filename", part.Filename),
				zap.Error(err))
			continue
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

// Cleanup removes the downloaded files of one message.
func (g *Gmail) Cleanup(attachments []Attachment) {
	for _, att := range attachments {
		if err := os.Remove(att.LocalPath); err != nil && !os.IsNotExist(err) {
			g.logger.Warn("failed to remove downloaded file",
				zap.String("path", att.LocalPath), zap.Error(err))
		}
	}
}

func (g *Gmail) downloadPart(ctx context.Context, messageID string, part *gmail.MessagePart) (Attachment, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Attachment{}, err
	}
	body, err := g.svc.Users.Messages.Attachments.Get("me", messageID, part.Body.AttachmentId).Context(ctx).Do()
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to fetch attachment body: %w", err)
	}

	// attachment bodies are base64url, with or without padding
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(body.Data, "="))
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to decode attachment data: %w", err)
	}

	safeName := strings.ReplaceAll(part.Filename, " ", "_")
	localPath := filepath.Join(g.downloadDir, fmt.Sprintf("%s_%s", messageID, safeName))
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return Attachment{}, fmt.Errorf("failed to write attachment: %w", err)
	}

	g.logger.Info("attachment downloaded",
		zap.String("message_id", messageID),
		zap.String("filename", part.Filename))
	return Attachment{Filename: part.Filename, LocalPath: localPath}, nil
}

// collectAttachmentParts walks the MIME tree depth-first and returns every
// part carrying a real attachment. Nested multiparts (forwarded mails) are
// traversed too.
func collectAttachmentParts(parts []*gmail.MessagePart) []*gmail.MessagePart {
	var out []*gmail.MessagePart
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			out = append(out, part)
		}
		if len(part.Parts) > 0 {
			out = append(out, collectAttachmentParts(part.Parts)...)
		}
	}
	return out
}
