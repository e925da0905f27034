package googleapi

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// NewGmailService creates a Gmail API service using the provided TokenSource.
func NewGmailService(ctx context.Context, ts oauth2.TokenSource) (*gmail.Service, error) {
	return gmail.NewService(ctx, option.WithTokenSource(ts))
}

// NewDriveService creates a Google Drive API service using the provided TokenSource.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	return drive.NewService(ctx, option.WithTokenSource(ts))
}

// NewSheetsService creates a Google Sheets API service using the provided TokenSource.
func NewSheetsService(ctx context.Context, ts oauth2.TokenSource) (*sheets.Service, error) {
	return sheets.NewService(ctx, option.WithTokenSource(ts))
}
