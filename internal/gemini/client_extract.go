package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/imageutil"
)

// extractionPrompt asks for every field of the intake record. The model must
// answer with a bare JSON object so the response can be parsed directly.
const extractionPrompt = `Analyze the provided accounting document. Classify it and extract the following information, returning it as a single JSON object:
1.  **document_type**: One of "standard_invoice", "proforma", "offer", "receipt" or "other". A proforma or an offer is not a standard invoice.
2.  **is_paid**: A boolean (true/false). Set to true if the document states it has already been paid (e.g. "zapłacono", "opłacona", paid by card).
3.  **invoice_number**: The unique identification number of the invoice.
4.  **invoice_date**: The date the invoice was issued (format YYYY-MM-DD).
5.  **due_date**: The payment due date (format YYYY-MM-DD).
6.  **payment_terms_days**: The payment term in days (e.g. from "termin płatności: 14 dni"), as an integer.
7.  **payer**: The name of the company or person who needs to pay this invoice.
8.  **payer_nip**: The NIP (tax identification number) of the payer. Look for fields like "NIP Nabywcy" or similar.
9.  **issuer**: The name of the company or person who issued this invoice.
10. **gross_amount**: The total amount including VAT (as a number, use '.' as decimal separator).
11. **vat_amount**: The total VAT amount (as a number, use '.' as decimal separator).
12. **is_fuel_related**: A boolean (true/false). Set to true if the invoice contains items related to fuel (e.g., gasoline, diesel, petrol, 'paliwo') or car maintenance/parts. Otherwise, set to false.
If any information cannot be found, use null for that field in the JSON object.
Ensure the output is ONLY the JSON object, without any introductory text or markdown formatting.`

// mimeByExtension covers the attachment types the extractor accepts.
var mimeByExtension = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// Extract runs one downloaded attachment through the model and returns the
// structured invoice fields. It returns (nil, nil) when the document is not a
// processable invoice or receipt: unsupported file types, documents the model
// classifies as offers, proformas or unrelated content, and responses missing
// required keys are all declines, not errors.
func (c *Client) Extract(ctx context.Context, filePath string) (*domain.ExtractedInvoice, error) {
	if c.apiKey == "" {
		return nil, &GeminiError{
			Op:  "validate_configuration",
			Err: fmt.Errorf("Gemini API key is not configured. Please set GEMINI_API_KEY environment variable"),
		}
	}

	mimeType, ok := mimeByExtension[strings.ToLower(filepath.Ext(filePath))]
	if !ok {
		return nil, nil
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &GeminiError{
			Op:  "read_attachment",
			Err: fmt.Errorf("failed to read attachment: %w", err),
		}
	}

	// Camera shots of receipts can be huge; cap image payloads before
	// shipping them to the API.
	if strings.HasPrefix(mimeType, "image/") {
		if resized, err := imageutil.Downscale(fileData, nil); err == nil {
			fileData = resized
		}
	}

	requestPayload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{
						"inline_data": map[string]string{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(fileData),
						},
					},
					{"text": extractionPrompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": 0,
		},
	}

	requestData, err := json.Marshal(requestPayload)
	if err != nil {
		return nil, &GeminiError{
			Op:  "marshal_request",
			Err: fmt.Errorf("failed to marshal request payload: %w", err),
		}
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.apiBaseURL, c.modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestData))
	if err != nil {
		return nil, &GeminiError{
			Op:  "create_extract_request",
			Err: fmt.Errorf("failed to create request: %w", err),
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GeminiError{
			Op:  "send_extract_request",
			Err: fmt.Errorf("failed to send request: %w", err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GeminiError{
			Op:  "read_response",
			Err: fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &GeminiError{
			Op:  "check_api_response",
			Err: fmt.Errorf("API error: %s - %s", resp.Status, string(respBody)),
		}
	}

	extracted, err := c.parseGenerateResponse(respBody)
	if err != nil || extracted == nil {
		return extracted, err
	}

	c.resolvePayer(extracted)
	return extracted, nil
}

// resolvePayer swaps the extracted payer for the canonical directory entry.
// A known NIP wins over whatever name the model read off the document; a
// known name backfills a missing NIP.
func (c *Client) resolvePayer(extracted *domain.ExtractedInvoice) {
	if c.payers == nil {
		return
	}
	if extracted.PayerNIP != nil && *extracted.PayerNIP != "" {
		if name := c.payers.NameByNIP(*extracted.PayerNIP); name != "" {
			extracted.Payer = &name
		}
		return
	}
	if extracted.Payer != nil && *extracted.Payer != "" {
		if nip := c.payers.NIPByName(*extracted.Payer); nip != "" {
			extracted.PayerNIP = &nip
		}
	}
}
