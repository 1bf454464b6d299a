package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// APIError represents a Sheets API error
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("sheets API error %d: %s", e.StatusCode, e.Message)
}

// Client is a Google Sheets v4 REST client
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	logger     *zap.Logger
}

// NewClient creates a new Sheets client
func NewClient(cfg *config.SheetsConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("sheets_token is required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		logger:     logging.GetLogger().With(zap.String("component", "sheets-client")),
	}, nil
}

// Open opens a spreadsheet by id and loads its worksheet inventory
func (c *Client) Open(ctx context.Context, spreadsheetID string) (Spreadsheet, error) {
	ctx, span := telemetry.StartSpan(ctx, "sheets.open")
	defer span.End()

	var meta struct {
		Sheets []struct {
			Properties struct {
				SheetID        int64  `json:"sheetId"`
				Title          string `json:"title"`
				GridProperties struct {
					RowCount    int `json:"rowCount"`
					ColumnCount int `json:"columnCount"`
				} `json:"gridProperties"`
			} `json:"properties"`
		} `json:"sheets"`
	}

	path := fmt.Sprintf("/%s?fields=sheets.properties", spreadsheetID)
	if err := c.do(ctx, http.MethodGet, path, nil, &meta); err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", spreadsheetID, err)
	}

	ss := &googleSpreadsheet{
		client: c,
		id:     spreadsheetID,
		sheets: make(map[string]*sheetProps),
	}
	for _, s := range meta.Sheets {
		ss.sheets[s.Properties.Title] = &sheetProps{
			sheetID: s.Properties.SheetID,
			rows:    s.Properties.GridProperties.RowCount,
			cols:    s.Properties.GridProperties.ColumnCount,
		}
	}

	return ss, nil
}

// OpenByURL opens a spreadsheet by its share URL
func (c *Client) OpenByURL(ctx context.Context, rawURL string) (Spreadsheet, error) {
	m := spreadsheetURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("not a spreadsheet URL: %s", rawURL)
	}
	return c.Open(ctx, m[1])
}

// do performs an authenticated request and decodes the JSON response
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		message := string(data)
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

type sheetProps struct {
	sheetID int64
	rows    int
	cols    int
}

type googleSpreadsheet struct {
	client *Client
	id     string
	sheets map[string]*sheetProps
}

// Worksheet returns an existing worksheet by title
func (s *googleSpreadsheet) Worksheet(ctx context.Context, title string) (Worksheet, error) {
	props, ok := s.sheets[title]
	if !ok {
		return nil, fmt.Errorf("worksheet %q not found", title)
	}
	return &googleWorksheet{spreadsheet: s, title: title, props: props}, nil
}

// EnsureWorksheet returns a worksheet by title, creating it when absent
func (s *googleSpreadsheet) EnsureWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error) {
	if props, ok := s.sheets[title]; ok {
		return &googleWorksheet{spreadsheet: s, title: title, props: props}, nil
	}

	s.client.logger.Info("Creating worksheet", zap.String("title", title))

	var result struct {
		Replies []struct {
			AddSheet struct {
				Properties struct {
					SheetID int64 `json:"sheetId"`
				} `json:"properties"`
			} `json:"addSheet"`
		} `json:"replies"`
	}
	body := map[string]interface{}{
		"requests": []interface{}{
			map[string]interface{}{
				"addSheet": map[string]interface{}{
					"properties": map[string]interface{}{
						"title": title,
						"gridProperties": map[string]int{
							"rowCount":    rows,
							"columnCount": cols,
						},
					},
				},
			},
		},
	}
	if err := s.client.do(ctx, http.MethodPost, fmt.Sprintf("/%s:batchUpdate", s.id), body, &result); err != nil {
		return nil, fmt.Errorf("failed to create worksheet %q: %w", title, err)
	}
	if len(result.Replies) == 0 {
		return nil, fmt.Errorf("no reply for worksheet creation %q", title)
	}

	props := &sheetProps{
		sheetID: result.Replies[0].AddSheet.Properties.SheetID,
		rows:    rows,
		cols:    cols,
	}
	s.sheets[title] = props

	return &googleWorksheet{spreadsheet: s, title: title, props: props}, nil
}

type googleWorksheet struct {
	spreadsheet *googleSpreadsheet
	title       string
	props       *sheetProps
}

func (w *googleWorksheet) rangePath(a1 string) string {
	name := url.PathEscape(fmt.Sprintf("'%s'!%s", w.title, a1))
	return fmt.Sprintf("/%s/values/%s", w.spreadsheet.id, name)
}

// Rows returns all values of the worksheet
func (w *googleWorksheet) Rows(ctx context.Context) ([][]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "sheets.rows")
	defer span.End()

	name := url.PathEscape(w.title)
	var result struct {
		Values [][]string `json:"values"`
	}
	path := fmt.Sprintf("/%s/values/%s", w.spreadsheet.id, name)
	if err := w.spreadsheet.client.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", w.title, err)
	}
	return result.Values, nil
}

// UpdateCell writes one cell
func (w *googleWorksheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	ctx, span := telemetry.StartSpan(ctx, "sheets.update_cell")
	defer span.End()

	a1 := fmt.Sprintf("%s%d", colLetter(col), row)
	body := map[string]interface{}{"values": [][]string{{value}}}
	path := w.rangePath(a1) + "?valueInputOption=RAW"
	if err := w.spreadsheet.client.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to update cell %s of %q: %w", a1, w.title, err)
	}
	return nil
}

// UpdateRows overwrites a block of rows starting at startRow
func (w *googleWorksheet) UpdateRows(ctx context.Context, startRow int, rows [][]string) error {
	ctx, span := telemetry.StartSpan(ctx, "sheets.update_rows")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}
	a1 := fmt.Sprintf("A%d", startRow)
	body := map[string]interface{}{"values": rows}
	path := w.rangePath(a1) + "?valueInputOption=RAW"
	if err := w.spreadsheet.client.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to update rows of %q: %w", w.title, err)
	}
	return nil
}

// InsertRow inserts a row at index, pushing existing rows down
func (w *googleWorksheet) InsertRow(ctx context.Context, index int, row []string) error {
	ctx, span := telemetry.StartSpan(ctx, "sheets.insert_row")
	defer span.End()

	body := map[string]interface{}{
		"requests": []interface{}{
			map[string]interface{}{
				"insertDimension": map[string]interface{}{
					"range": map[string]interface{}{
						"sheetId":    w.props.sheetID,
						"dimension":  "ROWS",
						"startIndex": index - 1,
						"endIndex":   index,
					},
					"inheritFromBefore": false,
				},
			},
		},
	}
	path := fmt.Sprintf("/%s:batchUpdate", w.spreadsheet.id)
	if err := w.spreadsheet.client.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to insert row into %q: %w", w.title, err)
	}
	w.props.rows++

	return w.UpdateRows(ctx, index, [][]string{row})
}

// Replace clears the worksheet and rewrites it wholesale
func (w *googleWorksheet) Replace(ctx context.Context, header []string, rows [][]string) error {
	ctx, span := telemetry.StartSpan(ctx, "sheets.replace")
	defer span.End()

	name := url.PathEscape(w.title)
	path := fmt.Sprintf("/%s/values/%s:clear", w.spreadsheet.id, name)
	if err := w.spreadsheet.client.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to clear worksheet %q: %w", w.title, err)
	}

	values := make([][]string, 0, len(rows)+1)
	values = append(values, header)
	values = append(values, rows...)
	return w.UpdateRows(ctx, 1, values)
}

// EnsureCols grows the worksheet to at least n columns
func (w *googleWorksheet) EnsureCols(ctx context.Context, n int) error {
	if w.props.cols >= n {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "sheets.ensure_cols")
	defer span.End()

	body := map[string]interface{}{
		"requests": []interface{}{
			map[string]interface{}{
				"appendDimension": map[string]interface{}{
					"sheetId":   w.props.sheetID,
					"dimension": "COLUMNS",
					"length":    n - w.props.cols,
				},
			},
		},
	}
	path := fmt.Sprintf("/%s:batchUpdate", w.spreadsheet.id)
	if err := w.spreadsheet.client.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to grow worksheet %q: %w", w.title, err)
	}
	w.props.cols = n
	return nil
}

// ColCount returns the column capacity of the worksheet
func (w *googleWorksheet) ColCount(ctx context.Context) (int, error) {
	return w.props.cols, nil
}

// colLetter converts a 1-indexed column number to its A1 letter form
func colLetter(col int) string {
	letters := ""
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return letters
}
