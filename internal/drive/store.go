// Package drive archives invoice attachments in Google Drive, laid out as
// <root>/<MM.YYYY>/<payer>/<leaf>/<filename> so the accountant can browse by
// month and paying entity.
package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	gapi "google.golang.org/api/googleapi"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/googleapi"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Store uploads and removes invoice files in Google Drive.
type Store struct {
	svc        *drive.Service
	limiter    *googleapi.RateLimiter
	rootFolder string
	leafFolder string
	logger     *zap.Logger
}

// NewStore creates a Drive-backed file store. rootFolder is the top-level
// folder name under My Drive; leafFolder is the final subfolder holding the
// files inside each payer folder.
func NewStore(svc *drive.Service, rootFolder, leafFolder string, logger *zap.Logger) *Store {
	return &Store{
		svc:        svc,
		limiter:    googleapi.NewRateLimiter(googleapi.ServiceDrive),
		rootFolder: rootFolder,
		leafFolder: leafFolder,
		logger:     logger,
	}
}

// Upload stores the attachment under the folder chain derived from the
// invoice date and payer, returning the Drive file id and a browser link.
func (s *Store) Upload(ctx context.Context, localPath string, invoice *domain.ExtractedInvoice) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer f.Close()

	folderID, err := s.ensureFolderChain(ctx, invoice)
	if err != nil {
		return "", "", err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", "", err
	}

	meta := &drive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}
	uploaded, err := s.svc.Files.Create(meta).Media(f).Fields("id", "webViewLink").Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to upload %s: %w", meta.Name, err)
	}

	s.logger.Info("attachment archived in Drive",
		zap.String("file", meta.Name),
		zap.String("file_id", uploaded.Id))
	return uploaded.Id, uploaded.WebViewLink, nil
}

// Delete removes a file by id. A file that is already gone counts as deleted.
func (s *Store) Delete(ctx context.Context, fileID string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	err := s.svc.Files.Delete(fileID).Context(ctx).Do()
	if err != nil {
		if gerr, ok := err.(*gapi.Error); ok && gerr.Code == 404 {
			s.logger.Info("Drive file already gone", zap.String("file_id", fileID))
			return nil
		}
		return fmt.Errorf("failed to delete Drive file %s: %w", fileID, err)
	}
	return nil
}

// ensureFolderChain walks root/MM.YYYY/payer/leaf, creating whatever is
// missing, and returns the id of the innermost folder.
func (s *Store) ensureFolderChain(ctx context.Context, invoice *domain.ExtractedInvoice) (string, error) {
	parentID := "root"
	for _, name := range []string{s.rootFolder, monthFolderName(invoice), payerFolderName(invoice), s.leafFolder} {
		id, err := s.getOrCreateFolder(ctx, name, parentID)
		if err != nil {
			return "", fmt.Errorf("failed to prepare folder %q: %w", name, err)
		}
		parentID = id
	}
	return parentID, nil
}

func (s *Store) getOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	query := fmt.Sprintf("name='%s' and mimeType='%s' and '%s' in parents and trashed=false",
		escapeQueryValue(name), folderMimeType, parentID)
	list, err := s.svc.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	created, err := s.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	s.logger.Info("created Drive folder", zap.String("name", name))
	return created.Id, nil
}

// monthFolderName renders the invoice date as MM.YYYY. Invoices without a
// readable date land in a catch-all folder instead of failing the upload.
func monthFolderName(invoice *domain.ExtractedInvoice) string {
	if invoice.InvoiceDate == nil || invoice.InvoiceDate.IsZero() {
		return "Unknown_MonthYear"
	}
	return invoice.InvoiceDate.Format("01.2006")
}

func payerFolderName(invoice *domain.ExtractedInvoice) string {
	name := "Unknown_Payer"
	if invoice.Payer != nil && strings.TrimSpace(*invoice.Payer) != "" {
		name = strings.TrimSpace(*invoice.Payer)
	}
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	if name == "" {
		name = "Unknown_Payer"
	}
	return name
}

func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, "'", "\\'")
}
