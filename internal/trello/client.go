// Package trello creates payment-reminder cards for unpaid invoices on the
// accounting board.
package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

const trelloBaseURL = "https://api.trello.com/1"

// Client talks to the Trello REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiToken   string
	listID     string
	logger     *zap.Logger
}

// Config holds configuration for the Trello client
type Config struct {
	APIKey   string
	APIToken string
	// ListID is the list that receives payment-reminder cards
	ListID  string
	Timeout time.Duration
}

// NewClient creates a new Trello client
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" || config.APIToken == "" || config.ListID == "" {
		return nil, fmt.Errorf("Trello configuration is incomplete")
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    trelloBaseURL,
		apiKey:     config.APIKey,
		apiToken:   config.APIToken,
		listID:     config.ListID,
		logger:     logger,
	}, nil
}

// CreateCard adds a payment-reminder card for an unpaid invoice. The card
// name carries the due date; the description mirrors the bookkeeping sheet
// columns so the card is readable without opening the file.
func (c *Client) CreateCard(ctx context.Context, invoice *domain.ExtractedInvoice, fileLink string) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("token", c.apiToken)
	params.Set("idList", c.listID)
	params.Set("name", cardName(invoice))
	params.Set("desc", cardDescription(invoice, fileLink))
	if invoice.DueDate != nil && !invoice.DueDate.IsZero() {
		params.Set("due", invoice.DueDate.Format("2006-01-02"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cards", strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Trello API returned status %d", resp.StatusCode)
	}

	var card struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return "", fmt.Errorf("failed to decode card response: %w", err)
	}

	c.logger.Info("payment card created",
		zap.String("card_id", card.ID),
		zap.String("invoice_number", invoice.InvoiceNumber))
	return card.ID, nil
}

// DeleteCard removes a card by id. A card that is already gone counts as
// deleted.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("token", c.apiToken)

	endpoint := fmt.Sprintf("%s/cards/%s?%s", c.baseURL, url.PathEscape(cardID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Info("Trello card already gone", zap.String("card_id", cardID))
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Trello API returned status %d", resp.StatusCode)
	}
	return nil
}

func cardName(invoice *domain.ExtractedInvoice) string {
	due := "N/A"
	if invoice.DueDate != nil && !invoice.DueDate.IsZero() {
		due = invoice.DueDate.String()
	}
	return "Оплатити до: " + due
}

// cardDescription lists the same fields, in the same order, as a monthly
// sheet row.
func cardDescription(invoice *domain.ExtractedInvoice, fileLink string) string {
	fuel := "Ні"
	if invoice.IsFuelRelated {
		fuel = "Так"
	}
	lines := []string{
		"Номер фактури: " + orNA(invoice.InvoiceNumber),
		"Дата виставлення: " + dateOrNA(invoice.InvoiceDate),
		"Виставив: " + ptrOrNA(invoice.Issuer),
		"Дата оплати: " + dateOrNA(invoice.DueDate),
		"Платник: " + ptrOrNA(invoice.Payer),
		"NIP Платника: " + ptrOrNA(invoice.PayerNIP),
		"Сума (брутто): " + ptrOrNA(invoice.GrossAmount),
		"VAT: " + ptrOrNA(invoice.VatAmount),
		"Пов'язано з авто/паливом: " + fuel,
		"Посилання на Google Drive: " + orNA(fileLink),
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func ptrOrNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func dateOrNA(d *domain.DateOnly) string {
	if d == nil || d.IsZero() {
		return "N/A"
	}
	return d.String()
}
