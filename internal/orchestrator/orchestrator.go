// Package orchestrator runs the full scheduled cycle over the control
// table: candidate selection, per-tenant execution and marker cleanup.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/archive"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/audit"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/control"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/pipeline"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// TenantRunner executes the content pipeline for one tenant.
// Satisfied by *pipeline.Pipeline.
type TenantRunner interface {
	Run(ctx context.Context, tenant models.Tenant, ss sheets.Spreadsheet, lookbackDays int, run *models.RunRecord) error
}

// Outcome is the terminal state of one tenant within a cycle.
type Outcome struct {
	TenantID   int    `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	Marker     string `json:"marker"`
	Error      string `json:"error,omitempty"`
}

// Result summarizes one full cycle.
type Result struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Selected   int       `json:"selected"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Invalid    int       `json:"invalid"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Orchestrator drives cycles over the control table.
type Orchestrator struct {
	table    *control.Table
	sheets   sheets.Service
	pipeline TenantRunner
	audit    *audit.Logger
	archive  *archive.Store
	logger   *zap.Logger

	startLookbackDays  int
	repeatLookbackDays int
	now                func() time.Time
}

// New creates a cycle orchestrator
func New(table *control.Table, svc sheets.Service, runner TenantRunner, auditLog *audit.Logger, store *archive.Store, startLookbackDays, repeatLookbackDays int) *Orchestrator {
	return &Orchestrator{
		table:              table,
		sheets:             svc,
		pipeline:           runner,
		audit:              auditLog,
		archive:            store,
		logger:             logging.GetLogger().With(zap.String("component", "orchestrator")),
		startLookbackDays:  startLookbackDays,
		repeatLookbackDays: repeatLookbackDays,
		now:                time.Now,
	}
}

// WithClock overrides the time source, for tests
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// candidate is a validated control-table row selected for execution.
type candidate struct {
	row    control.Row
	tenant models.Tenant
}

// RunCycle executes one full cycle: select candidates, run each tenant,
// then clear the done markers. Per-tenant failures never abort the
// cycle; only control-table access errors do.
func (o *Orchestrator) RunCycle(ctx context.Context) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.run_cycle")
	defer span.End()

	result := &Result{StartedAt: o.now()}
	o.logger.Info("Cycle started")

	candidates, err := o.selectCandidates(ctx, result)
	if err != nil {
		return nil, err
	}
	result.Selected = len(candidates)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.runTenant(ctx, c, result)
	}

	if err := o.cleanup(ctx); err != nil {
		return nil, err
	}

	result.FinishedAt = o.now()
	o.logger.Info("Cycle finished",
		zap.Int("selected", result.Selected),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("invalid", result.Invalid))
	return result, nil
}

// selectCandidates scans the control table, marks invalid rows with the
// error marker and valid ones as waiting.
func (o *Orchestrator) selectCandidates(ctx context.Context, result *Result) ([]candidate, error) {
	rows, err := o.table.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}

	var candidates []candidate
	for _, row := range rows {
		if !models.Eligible(row.Status) {
			continue
		}

		tenant, err := validate(row)
		if err != nil {
			o.logger.Warn("Invalid control row", zap.Int("row", row.Index), zap.Error(err))
			o.audit.Log(ctx, tenant.ID, row.Name,
				fmt.Sprintf("Некорректная строка %d в таблице: %v", row.Index, err))
			if serr := o.table.SetProcessing(ctx, row.Index, models.ProcessingError); serr != nil {
				return nil, serr
			}
			result.Invalid++
			result.Outcomes = append(result.Outcomes, Outcome{
				TenantID: tenant.ID, TenantName: row.Name,
				Marker: models.ProcessingError, Error: err.Error(),
			})
			continue
		}

		if err := o.table.SetProcessing(ctx, row.Index, models.ProcessingWaiting); err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{row: row, tenant: tenant})
	}

	return candidates, nil
}

// runTenant executes the pipeline for one candidate and records the
// terminal marker.
func (o *Orchestrator) runTenant(ctx context.Context, c candidate, result *Result) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.run_tenant")
	defer span.End()

	log := logging.WithTenant(c.tenant.ID, c.tenant.Name)
	log.Info("Tenant run started", zap.String("status", c.tenant.Status))

	if err := o.table.SetProcessing(ctx, c.row.Index, models.ProcessingRunning); err != nil {
		o.fail(ctx, c, result, err)
		return
	}

	lookback := o.repeatLookbackDays
	if c.tenant.Status == models.StatusStart {
		lookback = o.startLookbackDays
	}

	run := o.archive.StartRun(ctx, c.tenant)

	ss, err := o.sheets.OpenByURL(ctx, c.tenant.URL)
	if err != nil {
		o.archive.FinishRun(ctx, run, models.ProcessingError)
		o.fail(ctx, c, result, err)
		return
	}

	if err := o.pipeline.Run(ctx, c.tenant, ss, lookback, run); err != nil {
		o.archive.FinishRun(ctx, run, models.ProcessingError)
		o.fail(ctx, c, result, err)
		return
	}

	o.archive.FinishRun(ctx, run, models.ProcessingDone)

	if c.tenant.Status == models.StatusStart {
		if err := o.table.SetStatus(ctx, c.row.Index, models.StatusInProgress); err != nil {
			o.fail(ctx, c, result, err)
			return
		}
	}
	if err := o.table.SetProcessing(ctx, c.row.Index, models.ProcessingDone); err != nil {
		o.fail(ctx, c, result, err)
		return
	}

	log.Info("Tenant run finished")
	result.Succeeded++
	result.Outcomes = append(result.Outcomes, Outcome{
		TenantID: c.tenant.ID, TenantName: c.tenant.Name, Marker: models.ProcessingDone,
	})
}

// fail records a tenant failure: audit entry, error marker, outcome.
// The cycle moves on to the next tenant.
func (o *Orchestrator) fail(ctx context.Context, c candidate, result *Result, err error) {
	logging.WithTenant(c.tenant.ID, c.tenant.Name).Error("Tenant run failed", zap.Error(err))

	o.audit.Log(ctx, c.tenant.ID, c.tenant.Name, failMessage(err))

	if serr := o.table.SetProcessing(ctx, c.row.Index, models.ProcessingError); serr != nil {
		o.logger.Error("Failed to set error marker",
			zap.Int("row", c.row.Index), zap.Error(serr))
	}

	result.Failed++
	result.Outcomes = append(result.Outcomes, Outcome{
		TenantID: c.tenant.ID, TenantName: c.tenant.Name,
		Marker: models.ProcessingError, Error: err.Error(),
	})
}

// cleanup rescans the table and blanks the done markers. Error markers
// stay visible until an operator intervenes.
func (o *Orchestrator) cleanup(ctx context.Context) error {
	rows, err := o.table.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean up markers: %w", err)
	}
	for _, row := range rows {
		if row.Processing != models.ProcessingDone {
			continue
		}
		if err := o.table.SetProcessing(ctx, row.Index, models.ProcessingBlank); err != nil {
			return err
		}
	}
	return nil
}

// validate turns a raw control row into a tenant, or explains why it
// cannot run.
func validate(row control.Row) (models.Tenant, error) {
	tenant := models.Tenant{Name: row.Name, URL: row.URL, Status: row.Status}

	id, err := strconv.Atoi(strings.TrimSpace(row.ID))
	if err != nil || id <= 0 {
		return tenant, fmt.Errorf("id %q is not a positive integer", row.ID)
	}
	tenant.ID = id

	if strings.TrimSpace(row.Name) == "" {
		return tenant, fmt.Errorf("name is empty")
	}
	if strings.TrimSpace(row.URL) == "" {
		return tenant, fmt.Errorf("url is empty")
	}
	return tenant, nil
}

// failMessage renders the operator-facing audit message for a tenant
// failure, specialized by error class.
func failMessage(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrNoChannels):
		return "Не найдено ни одного канала для обработки"
	case errors.Is(err, pipeline.ErrNoPosts):
		return "Не найдено постов за выбранный период"
	case errors.Is(err, pipeline.ErrEmptyContext):
		return "Не заполнен контекст компании в листе Профиль"
	}

	switch pipeline.Classify(err) {
	case pipeline.KindAuthFailed:
		return fmt.Sprintf("Ошибка авторизации во внешнем сервисе: %v", err)
	case pipeline.KindPermissionDenied:
		return fmt.Sprintf("Нет доступа к таблице или сервису: %v", err)
	case pipeline.KindRateLimited:
		return fmt.Sprintf("Превышен лимит запросов к сервису: %v", err)
	default:
		return fmt.Sprintf("Ошибка обработки: %v", err)
	}
}
