package sheets

import (
	"context"
	"fmt"
)

// MemoryService is an in-memory Service used as a test double across
// packages. Not safe for concurrent use; the batch runner is
// single-threaded by design and so are the tests.
type MemoryService struct {
	spreadsheets map[string]*MemorySpreadsheet
	// URLs maps share URLs to spreadsheet ids for OpenByURL.
	URLs map[string]string
}

// NewMemoryService creates an empty in-memory sheets service
func NewMemoryService() *MemoryService {
	return &MemoryService{
		spreadsheets: make(map[string]*MemorySpreadsheet),
		URLs:         make(map[string]string),
	}
}

// Add registers a spreadsheet under an id and returns it
func (s *MemoryService) Add(id string) *MemorySpreadsheet {
	ss := NewMemorySpreadsheet()
	s.spreadsheets[id] = ss
	return ss
}

// AddURL registers a share URL alias for a spreadsheet id
func (s *MemoryService) AddURL(url, id string) {
	s.URLs[url] = id
}

// Open opens a registered spreadsheet
func (s *MemoryService) Open(ctx context.Context, spreadsheetID string) (Spreadsheet, error) {
	ss, ok := s.spreadsheets[spreadsheetID]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: fmt.Sprintf("spreadsheet %s not found", spreadsheetID)}
	}
	return ss, nil
}

// OpenByURL opens a spreadsheet registered under a share URL
func (s *MemoryService) OpenByURL(ctx context.Context, url string) (Spreadsheet, error) {
	id, ok := s.URLs[url]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: fmt.Sprintf("spreadsheet URL %s not found", url)}
	}
	return s.Open(ctx, id)
}

// MemorySpreadsheet is an in-memory Spreadsheet
type MemorySpreadsheet struct {
	worksheets map[string]*MemoryWorksheet
}

// NewMemorySpreadsheet creates an empty in-memory spreadsheet
func NewMemorySpreadsheet() *MemorySpreadsheet {
	return &MemorySpreadsheet{worksheets: make(map[string]*MemoryWorksheet)}
}

// AddWorksheet registers a worksheet with initial cell values
func (s *MemorySpreadsheet) AddWorksheet(title string, values [][]string) *MemoryWorksheet {
	ws := &MemoryWorksheet{values: values, cols: 26}
	s.worksheets[title] = ws
	return ws
}

// Worksheet returns an existing worksheet by title
func (s *MemorySpreadsheet) Worksheet(ctx context.Context, title string) (Worksheet, error) {
	ws, ok := s.worksheets[title]
	if !ok {
		return nil, fmt.Errorf("worksheet %q not found", title)
	}
	return ws, nil
}

// EnsureWorksheet returns a worksheet by title, creating it when absent
func (s *MemorySpreadsheet) EnsureWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error) {
	if ws, ok := s.worksheets[title]; ok {
		return ws, nil
	}
	ws := &MemoryWorksheet{cols: cols}
	s.worksheets[title] = ws
	return ws, nil
}

// MemoryWorksheet is an in-memory Worksheet
type MemoryWorksheet struct {
	values [][]string
	cols   int
}

// Values returns the current cell grid for assertions
func (w *MemoryWorksheet) Values() [][]string {
	return w.values
}

// Rows returns all rows
func (w *MemoryWorksheet) Rows(ctx context.Context) ([][]string, error) {
	out := make([][]string, len(w.values))
	for i, row := range w.values {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// UpdateCell writes one cell, growing the grid as needed
func (w *MemoryWorksheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell position (%d, %d)", row, col)
	}
	for len(w.values) < row {
		w.values = append(w.values, nil)
	}
	for len(w.values[row-1]) < col {
		w.values[row-1] = append(w.values[row-1], "")
	}
	w.values[row-1][col-1] = value
	return nil
}

// UpdateRows overwrites rows starting at startRow
func (w *MemoryWorksheet) UpdateRows(ctx context.Context, startRow int, rows [][]string) error {
	for i, row := range rows {
		target := startRow + i
		for len(w.values) < target {
			w.values = append(w.values, nil)
		}
		w.values[target-1] = append([]string(nil), row...)
	}
	return nil
}

// InsertRow inserts a row at index, pushing existing rows down
func (w *MemoryWorksheet) InsertRow(ctx context.Context, index int, row []string) error {
	if index < 1 {
		return fmt.Errorf("invalid row index %d", index)
	}
	for len(w.values) < index-1 {
		w.values = append(w.values, nil)
	}
	copied := append([]string(nil), row...)
	w.values = append(w.values, nil)
	copy(w.values[index:], w.values[index-1:])
	w.values[index-1] = copied
	return nil
}

// Replace clears the worksheet and rewrites it wholesale
func (w *MemoryWorksheet) Replace(ctx context.Context, header []string, rows [][]string) error {
	values := make([][]string, 0, len(rows)+1)
	values = append(values, append([]string(nil), header...))
	for _, row := range rows {
		values = append(values, append([]string(nil), row...))
	}
	w.values = values
	return nil
}

// EnsureCols grows the worksheet to at least n columns
func (w *MemoryWorksheet) EnsureCols(ctx context.Context, n int) error {
	if n > w.cols {
		w.cols = n
	}
	return nil
}

// ColCount returns the column capacity
func (w *MemoryWorksheet) ColCount(ctx context.Context) (int, error) {
	return w.cols, nil
}
