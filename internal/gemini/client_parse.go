package gemini

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
)

// flexString unmarshals either a JSON string or a JSON number into a string.
// The model is asked for numbers but occasionally quotes the amounts.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// extractionDTO mirrors the JSON object the prompt asks for.
type extractionDTO struct {
	DocumentType     *string     `json:"document_type"`
	IsPaid           *bool       `json:"is_paid"`
	InvoiceNumber    *string     `json:"invoice_number"`
	InvoiceDate      *string     `json:"invoice_date"`
	DueDate          *string     `json:"due_date"`
	PaymentTermsDays *int        `json:"payment_terms_days"`
	Payer            *string     `json:"payer"`
	PayerNIP         *flexString `json:"payer_nip"`
	Issuer           *string     `json:"issuer"`
	GrossAmount      *flexString `json:"gross_amount"`
	VatAmount        *flexString `json:"vat_amount"`
	IsFuelRelated    *bool       `json:"is_fuel_related"`
}

// requiredKeys must all be present in the model's JSON answer. A response
// missing any of them is treated as a decline rather than trusted partially.
var requiredKeys = []string{
	"document_type", "is_paid", "invoice_number", "invoice_date", "due_date",
	"payer", "payer_nip", "issuer", "gross_amount", "vat_amount", "is_fuel_related",
}

var jsonObjectRegex = regexp.MustCompile(`\{[\s\S]*\}`)

// parseGenerateResponse parses the generateContent response body down to the
// extraction, or to nil when the model declined the document.
func (c *Client) parseGenerateResponse(respBody []byte) (*domain.ExtractedInvoice, error) {
	type Part struct {
		Text string `json:"text"`
	}
	type Content struct {
		Parts []Part `json:"parts"`
	}
	type Candidate struct {
		Content Content `json:"content"`
	}
	type Response struct {
		Candidates []Candidate `json:"candidates"`
	}

	var response Response
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, &GeminiError{
			Op:  "parse_response_json",
			Err: fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return nil, &GeminiError{
			Op:  "check_response_candidates",
			Err: fmt.Errorf("no candidates in response"),
		}
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return parseExtraction(text.String())
}

// parseExtraction parses the model's answer text into an ExtractedInvoice.
// Markdown fences around the JSON are tolerated. Answers that are not a JSON
// object, lack required keys, or classify the document outside the
// processable set all resolve to (nil, nil).
func parseExtraction(content string) (*domain.ExtractedInvoice, error) {
	content = stripJSONFences(content)

	var rawKeys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &rawKeys); err != nil {
		// Some models wrap the object in prose despite instructions
		match := jsonObjectRegex.FindString(content)
		if match == "" {
			return nil, &GeminiError{
				Op:  "parse_extraction_json",
				Err: fmt.Errorf("response is not a JSON object: %w", err),
			}
		}
		content = match
		if err := json.Unmarshal([]byte(content), &rawKeys); err != nil {
			return nil, &GeminiError{
				Op:  "parse_extraction_json",
				Err: fmt.Errorf("failed to unmarshal extraction: %w", err),
			}
		}
	}

	for _, key := range requiredKeys {
		if _, ok := rawKeys[key]; !ok {
			return nil, nil
		}
	}

	var dto extractionDTO
	if err := json.Unmarshal([]byte(content), &dto); err != nil {
		return nil, &GeminiError{
			Op:  "parse_extraction_json",
			Err: fmt.Errorf("failed to unmarshal extraction: %w", err),
		}
	}

	docType := domain.DocumentTypeOther
	if dto.DocumentType != nil {
		docType = domain.DocumentType(strings.ToLower(strings.TrimSpace(*dto.DocumentType)))
	}
	if !docType.IsProcessable() {
		return nil, nil
	}

	extracted := &domain.ExtractedInvoice{
		DocumentType:     docType,
		PaymentTermsDays: dto.PaymentTermsDays,
		Payer:            dto.Payer,
		Issuer:           dto.Issuer,
		PayerNIP:         stringFromFlex(dto.PayerNIP),
		GrossAmount:      stringFromFlex(dto.GrossAmount),
		VatAmount:        stringFromFlex(dto.VatAmount),
	}
	if dto.IsPaid != nil {
		extracted.IsPaid = *dto.IsPaid
	}
	if dto.IsFuelRelated != nil {
		extracted.IsFuelRelated = *dto.IsFuelRelated
	}
	if dto.InvoiceNumber != nil {
		extracted.InvoiceNumber = strings.TrimSpace(*dto.InvoiceNumber)
	}
	extracted.InvoiceDate = parseDate(dto.InvoiceDate)
	extracted.DueDate = parseDate(dto.DueDate)

	return extracted, nil
}

func stripJSONFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func parseDate(s *string) *domain.DateOnly {
	if s == nil || *s == "" {
		return nil
	}
	d, err := domain.ParseDateOnly(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &d
}

func stringFromFlex(f *flexString) *string {
	if f == nil {
		return nil
	}
	s := strings.TrimSpace(string(*f))
	if s == "" {
		return nil
	}
	return &s
}
