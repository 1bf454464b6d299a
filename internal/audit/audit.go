// Package audit appends run milestones and failures to the Log worksheet
// of the control spreadsheet. Entries are inserted at the top so the most
// recent record is always row 2.
package audit

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
)

var header = []string{"id", "name", "message", "timestamp"}

// Logger writes audit entries. Sheet failures are reported to the process
// log and swallowed: a broken audit trail must not take down a run.
type Logger struct {
	ws     sheets.Worksheet
	logger *zap.Logger
	now    func() time.Time
}

// New creates an audit logger over the Log worksheet
func New(ws sheets.Worksheet) *Logger {
	return &Logger{
		ws:     ws,
		logger: logging.GetLogger().With(zap.String("component", "audit")),
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.now = now
	return l
}

// EnsureHeader writes the header row when the sheet is blank
func (l *Logger) EnsureHeader(ctx context.Context) error {
	rows, err := l.ws.Rows(ctx)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	return l.ws.UpdateRows(ctx, 1, [][]string{header})
}

// Log records an audit entry for a tenant, newest first
func (l *Logger) Log(ctx context.Context, tenantID int, tenantName, message string) {
	entry := models.AuditEntry{
		TenantID:   tenantID,
		TenantName: tenantName,
		Message:    message,
		At:         l.now().UTC(),
	}

	l.logger.Info("Audit entry",
		zap.Int("tenant_id", entry.TenantID),
		zap.String("tenant_name", entry.TenantName),
		zap.String("message", entry.Message))

	row := []string{
		strconv.Itoa(entry.TenantID),
		entry.TenantName,
		entry.Message,
		entry.At.Format(time.RFC3339),
	}
	if err := l.ws.InsertRow(ctx, 2, row); err != nil {
		l.logger.Error("Failed to write audit entry", zap.Error(err))
	}
}
