// Package control reads and updates the tenant control table: the Main
// worksheet of the admin spreadsheet that drives scheduling.
package control

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
)

// Worksheet titles inside the control spreadsheet.
const (
	MainWorksheet = "Main"
	LogWorksheet  = "Log"
)

// Control table column names.
const (
	ColID         = "id"
	ColName       = "name"
	ColURL        = "url"
	ColStatus     = "status"
	ColProcessing = "processing"
)

// Row is one raw control-table row. Values are unvalidated strings;
// candidate validation belongs to the orchestrator.
type Row struct {
	// Index is the 1-indexed sheet row (header is row 1).
	Index      int
	ID         string
	Name       string
	URL        string
	Status     string
	Processing string
}

// Table wraps the control worksheet with a resolved header schema.
type Table struct {
	ws     sheets.Worksheet
	schema sheets.Schema
	logger *zap.Logger
}

// Open resolves the control table schema. Fails fast with a typed
// missing-column error when a required header is absent.
func Open(ctx context.Context, ws sheets.Worksheet) (*Table, error) {
	rows, err := ws.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read control table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("control table is empty")
	}

	schema, err := sheets.ResolveSchema(rows[0], ColID, ColName, ColURL, ColStatus, ColProcessing)
	if err != nil {
		return nil, fmt.Errorf("control table header: %w", err)
	}

	return &Table{
		ws:     ws,
		schema: schema,
		logger: logging.GetLogger().With(zap.String("component", "control-table")),
	}, nil
}

// Rows reads all tenant rows, freshly, skipping the header.
func (t *Table) Rows(ctx context.Context) ([]Row, error) {
	values, err := t.ws.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read control table: %w", err)
	}

	var rows []Row
	for i, raw := range values {
		if i == 0 {
			continue
		}
		rows = append(rows, Row{
			Index:      i + 1,
			ID:         t.schema.Cell(raw, ColID),
			Name:       t.schema.Cell(raw, ColName),
			URL:        t.schema.Cell(raw, ColURL),
			Status:     t.schema.Cell(raw, ColStatus),
			Processing: t.schema.Cell(raw, ColProcessing),
		})
	}

	return rows, nil
}

// SetStatus updates the scheduler status of one row.
func (t *Table) SetStatus(ctx context.Context, rowIndex int, status string) error {
	if err := t.ws.UpdateCell(ctx, rowIndex, t.schema.Col(ColStatus), status); err != nil {
		return fmt.Errorf("failed to set status of row %d: %w", rowIndex, err)
	}
	t.logger.Debug("Status updated", zap.Int("row", rowIndex), zap.String("status", status))
	return nil
}

// SetProcessing updates the run-local processing marker of one row.
func (t *Table) SetProcessing(ctx context.Context, rowIndex int, marker string) error {
	if err := t.ws.UpdateCell(ctx, rowIndex, t.schema.Col(ColProcessing), marker); err != nil {
		return fmt.Errorf("failed to set processing marker of row %d: %w", rowIndex, err)
	}
	t.logger.Debug("Processing marker updated", zap.Int("row", rowIndex), zap.String("marker", marker))
	return nil
}
