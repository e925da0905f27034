// Package sheets mirrors accepted invoices into the bookkeeping spreadsheet.
// Each invoice month gets its own tab named MM.YYYY; the VAT report lives in
// a fixed summary tab.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	gapi "google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/fakturnik/invoice-intake-service/internal/domain"
	"github.com/fakturnik/invoice-intake-service/internal/googleapi"
)

// invoiceHeaders is the column layout of every monthly tab.
var invoiceHeaders = []string{
	"Номер фактури", "Дата виставлення", "Виставив", "Дата оплати", "Платник",
	"NIP Платника", "Сума (брутто)", "VAT", "Пов'язано з авто/паливом", "Посилання на Google Drive",
}

// summaryHeaders is the column layout of the VAT summary tab.
var summaryHeaders = []string{
	"Звітний Місяць.Рік",
	"Загальна сума VAT (до вирахувань)",
	"VAT Авто (100%)",
	"VAT до сплати (після вирахувань)",
}

// Client reads and writes the bookkeeping spreadsheet.
type Client struct {
	svc           *sheets.Service
	limiter       *googleapi.RateLimiter
	spreadsheetID string
	summaryTitle  string
	logger        *zap.Logger
}

// NewClient creates a spreadsheet client. summaryTitle names the tab holding
// monthly VAT summaries.
func NewClient(svc *sheets.Service, spreadsheetID, summaryTitle string, logger *zap.Logger) *Client {
	return &Client{
		svc:           svc,
		limiter:       googleapi.NewRateLimiter(googleapi.ServiceSheets),
		spreadsheetID: spreadsheetID,
		summaryTitle:  summaryTitle,
		logger:        logger,
	}
}

// AppendRow writes one invoice into the monthly tab derived from its invoice
// date, creating the tab with headers when needed. It returns the A1 range of
// the written row so the row can be retired later.
func (c *Client) AppendRow(ctx context.Context, invoice *domain.ExtractedInvoice, fileLink string) (string, error) {
	if invoice.InvoiceDate == nil || invoice.InvoiceDate.IsZero() {
		return "", fmt.Errorf("invoice has no date, cannot determine sheet tab")
	}
	title := invoice.InvoiceDate.Format("01.2006")

	if _, err := c.ensureTab(ctx, title, invoiceHeaders); err != nil {
		return "", err
	}

	row := invoiceRow(invoice, fileLink)
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("'%s'!A1", title), &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to append to sheet %s: %w", title, err)
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return "", fmt.Errorf("append to sheet %s returned no updated range", title)
	}

	c.logger.Info("invoice row written",
		zap.String("tab", title),
		zap.String("range", resp.Updates.UpdatedRange))
	return resp.Updates.UpdatedRange, nil
}

// DeleteRow removes the row referenced by an A1 range previously returned by
// AppendRow. A tab or row that no longer exists counts as deleted; the sheet
// may have been reorganized by hand since.
func (c *Client) DeleteRow(ctx context.Context, rowRange string) error {
	title, rowNumber, err := parseRowRange(rowRange)
	if err != nil {
		return err
	}

	sheetID, found, err := c.sheetIDByTitle(ctx, title)
	if err != nil {
		return err
	}
	if !found {
		c.logger.Info("sheet tab gone, row considered deleted", zap.String("tab", title))
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: rowNumber - 1,
					EndIndex:   rowNumber,
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		if isRangeGone(err) {
			c.logger.Info("sheet row already gone", zap.String("range", rowRange))
			return nil
		}
		return fmt.Errorf("failed to delete row %s: %w", rowRange, err)
	}

	c.logger.Info("invoice row retired", zap.String("range", rowRange))
	return nil
}

// UpsertSummaryRow writes one month's VAT summary, replacing an existing row
// for the same month so reruns never duplicate it.
func (c *Client) UpsertSummaryRow(ctx context.Context, monthLabel string, totalVAT, fuelVAT, payable float64) error {
	if _, err := c.ensureTab(ctx, c.summaryTitle, summaryHeaders); err != nil {
		return err
	}

	row := []interface{}{
		monthLabel,
		formatAmount(totalVAT),
		formatAmount(fuelVAT),
		formatAmount(payable),
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	existing, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, fmt.Sprintf("'%s'!A:A", c.summaryTitle)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read summary sheet: %w", err)
	}

	for i, cells := range existing.Values {
		if i == 0 || len(cells) == 0 {
			continue
		}
		if label, ok := cells[0].(string); ok && label == monthLabel {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID,
				fmt.Sprintf("'%s'!A%d", c.summaryTitle, i+1),
				&sheets.ValueRange{Values: [][]interface{}{row}},
			).ValueInputOption("USER_ENTERED").Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("failed to update summary row for %s: %w", monthLabel, err)
			}
			c.logger.Info("VAT summary row updated", zap.String("month", monthLabel))
			return nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("'%s'!A1", c.summaryTitle), &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append summary row for %s: %w", monthLabel, err)
	}
	c.logger.Info("VAT summary row appended", zap.String("month", monthLabel))
	return nil
}

// ensureTab returns the sheet id of the named tab, creating it with a header
// row when it does not exist yet.
func (c *Client) ensureTab(ctx context.Context, title string, headers []string) (int64, error) {
	sheetID, found, err := c.sheetIDByTitle(ctx, title)
	if err != nil {
		return 0, err
	}
	if found {
		return sheetID, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet tab %s: %w", title, err)
	}

	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1", title), &sheets.ValueRange{
		Values: [][]interface{}{headerCells},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to write headers to %s: %w", title, err)
	}

	c.logger.Info("created sheet tab", zap.String("tab", title))
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

func (c *Client) sheetIDByTitle(ctx context.Context, title string) (int64, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return sheet.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

// invoiceRow lays out one invoice in the monthly tab's column order. Amounts
// keep the comma decimal separator the sheet's locale expects.
func invoiceRow(invoice *domain.ExtractedInvoice, fileLink string) []interface{} {
	fuel := "Ні"
	if invoice.IsFuelRelated {
		fuel = "Так"
	}
	return []interface{}{
		invoice.InvoiceNumber,
		dateCell(invoice.InvoiceDate),
		strCell(invoice.Issuer),
		dateCell(invoice.DueDate),
		strCell(invoice.Payer),
		strCell(invoice.PayerNIP),
		amountCell(invoice.GrossAmount),
		amountCell(invoice.VatAmount),
		fuel,
		fileLink,
	}
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateCell(d *domain.DateOnly) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func amountCell(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ReplaceAll(*s, ".", ",")
}

func formatAmount(v float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%.2f", v), ".", ",")
}

func isRangeGone(err error) bool {
	if gerr, ok := err.(*gapi.Error); ok {
		if gerr.Code == 400 && strings.Contains(gerr.Message, "range") {
			return true
		}
	}
	return false
}
