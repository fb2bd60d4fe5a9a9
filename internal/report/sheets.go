package report

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invoiceqc/internal/logger"
)

// DefaultSheetName is the worksheet used when none is given.
const DefaultSheetName = "Validation"

var sheetHeaders = []any{
	"Processed At", "Source File", "Invoice ID", "Invoice Number", "Invoice Date",
	"Due Date", "Seller", "Buyer", "Currency", "Net Total", "Tax Amount",
	"Gross Total", "Line Items", "Status", "Errors", "Extraction Error",
}

// headerRange returns the A1 range covering the header row.
func headerRange(sheetName string) string {
	return fmt.Sprintf("%s!A1:%s1", sheetName, columnLetter(len(sheetHeaders)))
}

func columnLetter(n int) string {
	var s string
	for n > 0 {
		n--
		s = string(rune('A'+n%26)) + s
		n /= 26
	}
	return s
}

// SheetsPublisher appends validation rows to a Google Sheet.
type SheetsPublisher struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
	now           func() time.Time
}

// NewSheetsPublisher creates a publisher for the spreadsheet at sheetURL.
// Credentials are read from GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
func NewSheetsPublisher(ctx context.Context, sheetURL string) (*SheetsPublisher, error) {
	const op = "NewSheetsPublisher"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := ExtractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &SheetsPublisher{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
		now:           time.Now,
	}, nil
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// Publish appends one row per invoice to sheetName, creating the sheet and
// its header row if needed.
func (s *SheetsPublisher) Publish(ctx context.Context, sheetName string, rows []Row) error {
	const op = "Publish"

	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(rows)).
		Msg("Writing validation results to Google Sheet")

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}
	if len(rows) == 0 {
		return nil
	}

	processedAt := s.now().Format("2006-01-02 15:04:05")
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, rowToValues(row, processedAt))
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", sheetName, columnLetter(len(sheetHeaders))),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Validation results written to Google Sheet")

	return nil
}

// rowToValues orders a row to match sheetHeaders.
func rowToValues(row Row, processedAt string) []any {
	return []any{
		processedAt,
		row.SourceFile,
		row.InvoiceID,
		row.InvoiceNumber,
		row.InvoiceDate,
		row.DueDate,
		row.SellerName,
		row.BuyerName,
		row.Currency,
		amountCell(row.NetTotal),
		amountCell(row.TaxAmount),
		amountCell(row.GrossTotal),
		row.LineItems,
		row.Status(),
		joinErrors(row.Errors),
		row.ExtractionError,
	}
}

func amountCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// ensureSheetWithHeaders ensures the sheet exists and has proper headers
func (s *SheetsPublisher) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange(sheetName)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange(sheetName),
		&sheets.ValueRange{Values: [][]any{sheetHeaders}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and resizes the columns.
func (s *SheetsPublisher) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	columns := int64(len(sheetHeaders))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}
