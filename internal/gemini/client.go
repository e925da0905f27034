package gemini

import (
	"net/http"
	"time"

	"github.com/fakturnik/invoice-intake-service/internal/payers"
)

// GeminiError represents an error that occurred during Gemini API interaction
type GeminiError struct {
	Op  string // Operation that caused the error
	Err error  // Original error
}

// Error implements the error interface
func (e *GeminiError) Error() string {
	if e.Err == nil {
		return "gemini error: " + e.Op
	}
	return "gemini error: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *GeminiError) Unwrap() error {
	return e.Err
}

// Client represents a client for the Gemini generateContent API
type Client struct {
	apiKey     string
	apiBaseURL string
	modelID    string
	httpClient *http.Client
	payers     *payers.Directory
}

// Config holds configuration for the Gemini client
type Config struct {
	APIKey  string
	ModelID string
	Timeout time.Duration

	// Payers resolves the canonical payer name and NIP after extraction.
	// Optional; extraction output is passed through unchanged without it.
	Payers *payers.Directory
}

// DefaultConfig returns a default configuration for the Gemini client
func DefaultConfig() *Config {
	return &Config{
		ModelID: "gemini-2.5-pro",
		Timeout: 120 * time.Second,
	}
}

// NewClient creates a new Gemini client
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.ModelID == "" {
		config.ModelID = "gemini-2.5-pro"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Client{
		apiKey:     config.APIKey,
		apiBaseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		modelID:    config.ModelID,
		payers:     config.Payers,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}
