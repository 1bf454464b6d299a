// Package sheets defines the spreadsheet access contracts the pipeline is
// built against, with a Google Sheets REST implementation and an in-memory
// double for tests. Rows and columns are 1-indexed, matching how the sheets
// themselves are addressed.
package sheets

import "context"

// Service opens spreadsheets by id or URL.
type Service interface {
	Open(ctx context.Context, spreadsheetID string) (Spreadsheet, error)
	OpenByURL(ctx context.Context, url string) (Spreadsheet, error)
}

// Spreadsheet provides access to named worksheets.
type Spreadsheet interface {
	// Worksheet returns the worksheet with the given title, or an error
	// when it does not exist.
	Worksheet(ctx context.Context, title string) (Worksheet, error)
	// EnsureWorksheet returns the worksheet with the given title,
	// creating it when absent.
	EnsureWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error)
}

// Worksheet is one grid of string cells.
type Worksheet interface {
	// Rows returns all rows, trailing empty cells trimmed by the provider.
	Rows(ctx context.Context) ([][]string, error)
	// UpdateCell writes a single cell.
	UpdateCell(ctx context.Context, row, col int, value string) error
	// UpdateRows overwrites a contiguous block of rows starting at startRow.
	UpdateRows(ctx context.Context, startRow int, rows [][]string) error
	// InsertRow inserts a new row at index, pushing existing rows down.
	InsertRow(ctx context.Context, index int, row []string) error
	// Replace clears the worksheet and writes a header plus data rows.
	Replace(ctx context.Context, header []string, rows [][]string) error
	// EnsureCols grows the worksheet to hold at least n columns.
	EnsureCols(ctx context.Context, n int) error
	// ColCount returns the current column capacity.
	ColCount(ctx context.Context) (int, error)
}
