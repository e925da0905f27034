// Package googleapi holds the shared plumbing for the Google Workspace
// clients: OAuth token handling, service construction and request rate
// limiting.
package googleapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes cover everything the intake pipeline touches: reading mail and
// attachments, archiving files to Drive, and writing the bookkeeping sheet.
// Changing these invalidates any previously issued token file.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/spreadsheets",
}

// NewFileTokenSource builds an oauth2.TokenSource from an OAuth client
// secrets file and a previously authorized token file. Refreshed tokens are
// written back to the token file so the next start does not need a new
// authorization.
func NewFileTokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(credBytes, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load token file %s (run the authorization flow first): %w", tokenFile, err)
	}

	return &persistingTokenSource{
		wrapped:   conf.TokenSource(ctx, token),
		tokenFile: tokenFile,
		last:      token.AccessToken,
	}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &token, nil
}

// persistingTokenSource writes refreshed tokens back to disk. A failed write
// is not fatal; the process keeps its in-memory token, the next start just
// re-refreshes.
type persistingTokenSource struct {
	mu        sync.Mutex
	wrapped   oauth2.TokenSource
	tokenFile string
	last      string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.wrapped.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if data, err := json.Marshal(token); err == nil {
			_ = os.WriteFile(s.tokenFile, data, 0600)
		}
	}
	return token, nil
}
