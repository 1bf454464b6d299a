package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/audit"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/control"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/pipeline"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
)

var controlHeader = []string{"id", "name", "url", "status", "processing"}

// fakeRunner records which tenants ran and fails the configured ones.
type fakeRunner struct {
	ran     []int
	failIDs map[int]error
}

func (f *fakeRunner) Run(ctx context.Context, tenant models.Tenant, ss sheets.Spreadsheet, lookbackDays int, run *models.RunRecord) error {
	f.ran = append(f.ran, tenant.ID)
	if err := f.failIDs[tenant.ID]; err != nil {
		return err
	}
	return nil
}

type fixture struct {
	svc    *sheets.MemoryService
	main   *sheets.MemoryWorksheet
	logWS  *sheets.MemoryWorksheet
	runner *fakeRunner
	orch   *Orchestrator
}

func newFixture(t *testing.T, rows [][]string) *fixture {
	t.Helper()

	svc := sheets.NewMemoryService()
	controlSS := svc.Add("control")
	main := controlSS.AddWorksheet(control.MainWorksheet, append([][]string{controlHeader}, rows...))
	logWS := controlSS.AddWorksheet(control.LogWorksheet, nil)

	table, err := control.Open(context.Background(), main)
	if err != nil {
		t.Fatalf("failed to open control table: %v", err)
	}

	runner := &fakeRunner{failIDs: map[int]error{}}
	orch := New(table, svc, runner, audit.New(logWS), nil, 60, 7)
	return &fixture{svc: svc, main: main, logWS: logWS, runner: runner, orch: orch}
}

// addTenantSheet registers a tenant spreadsheet behind a URL.
func (f *fixture) addTenantSheet(url, id string) {
	f.svc.Add(id)
	f.svc.AddURL(url, id)
}

func (f *fixture) cell(row, col int) string {
	values := f.main.Values()
	if row > len(values) || col > len(values[row-1]) {
		return ""
	}
	return values[row-1][col-1]
}

func TestCycleSuccess(t *testing.T) {
	f := newFixture(t, [][]string{
		{"1", "Альфа", "https://sheets.test/a", "Start", ""},
		{"2", "Бета", "https://sheets.test/b", "In progress", ""},
		{"3", "Гамма", "https://sheets.test/c", "Paused", ""},
	})
	f.addTenantSheet("https://sheets.test/a", "a")
	f.addTenantSheet("https://sheets.test/b", "b")

	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Selected != 2 || result.Succeeded != 2 || result.Failed != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(f.runner.ran) != 2 {
		t.Fatalf("expected 2 tenants run, got %v", f.runner.ran)
	}

	// first run promotes Start to In progress
	if got := f.cell(2, 4); got != models.StatusInProgress {
		t.Errorf("expected row 2 status %q, got %q", models.StatusInProgress, got)
	}
	// repeat runs keep their status
	if got := f.cell(3, 4); got != models.StatusInProgress {
		t.Errorf("expected row 3 status unchanged, got %q", got)
	}
	// done markers are cleared at the end of the cycle
	for _, row := range []int{2, 3} {
		if got := f.cell(row, 5); got != models.ProcessingBlank {
			t.Errorf("expected row %d marker cleared, got %q", row, got)
		}
	}
	// parked row untouched
	if got := f.cell(4, 4); got != "Paused" {
		t.Errorf("expected parked row untouched, got %q", got)
	}
}

func TestCycleTenantFailureContinues(t *testing.T) {
	f := newFixture(t, [][]string{
		{"1", "Альфа", "https://sheets.test/a", "In progress", ""},
		{"2", "Бета", "https://sheets.test/b", "In progress", ""},
	})
	f.addTenantSheet("https://sheets.test/a", "a")
	f.addTenantSheet("https://sheets.test/b", "b")
	f.runner.failIDs[1] = errors.New("provider down")

	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Succeeded != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(f.runner.ran) != 2 {
		t.Fatalf("expected the second tenant to still run, got %v", f.runner.ran)
	}

	// error marker survives cleanup, done marker does not
	if got := f.cell(2, 5); got != models.ProcessingError {
		t.Errorf("expected failed row to keep error marker, got %q", got)
	}
	if got := f.cell(3, 5); got != models.ProcessingBlank {
		t.Errorf("expected succeeded row marker cleared, got %q", got)
	}

	if len(f.logWS.Values()) == 0 {
		t.Error("expected an audit entry for the failed tenant")
	}
}

func TestCycleInvalidRows(t *testing.T) {
	f := newFixture(t, [][]string{
		{"abc", "Альфа", "https://sheets.test/a", "Start", ""},
		{"-5", "Бета", "https://sheets.test/b", "Start", ""},
		{"3", "", "https://sheets.test/c", "Start", ""},
		{"4", "Дельта", "", "Start", ""},
	})

	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Invalid != 4 || result.Selected != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	for row := 2; row <= 5; row++ {
		if got := f.cell(row, 5); got != models.ProcessingError {
			t.Errorf("expected row %d marked with error, got %q", row, got)
		}
	}
	if len(f.runner.ran) != 0 {
		t.Errorf("expected no tenant runs, got %v", f.runner.ran)
	}
}

func TestCycleResumesAfterCrash(t *testing.T) {
	// a previous process died mid-run: the marker still says running but
	// the status was never promoted, so the tenant is selected again
	f := newFixture(t, [][]string{
		{"1", "Альфа", "https://sheets.test/a", "Start", models.ProcessingRunning},
	})
	f.addTenantSheet("https://sheets.test/a", "a")

	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if got := f.cell(2, 4); got != models.StatusInProgress {
		t.Errorf("expected status promoted after resume, got %q", got)
	}
	if got := f.cell(2, 5); got != models.ProcessingBlank {
		t.Errorf("expected marker cleared after resume, got %q", got)
	}
}

func TestCycleEmptyTenantMessage(t *testing.T) {
	f := newFixture(t, [][]string{
		{"1", "Альфа", "https://sheets.test/a", "In progress", ""},
	})
	f.addTenantSheet("https://sheets.test/a", "a")
	f.runner.failIDs[1] = pipeline.ErrNoChannels

	if _, err := f.orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := f.logWS.Values()
	// row 1 is reserved for the header, the newest entry sits at row 2
	if len(entries) < 2 {
		t.Fatal("expected an audit entry")
	}
	if entries[1][2] != "Не найдено ни одного канала для обработки" {
		t.Errorf("unexpected audit message: %q", entries[1][2])
	}
}

func TestCycleUnknownSpreadsheetURL(t *testing.T) {
	f := newFixture(t, [][]string{
		{"1", "Альфа", "https://sheets.test/missing", "In progress", ""},
	})

	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("expected the tenant to fail, got %+v", result)
	}
	if len(f.runner.ran) != 0 {
		t.Errorf("expected pipeline never invoked, got %v", f.runner.ran)
	}
	if got := f.cell(2, 5); got != models.ProcessingError {
		t.Errorf("expected error marker, got %q", got)
	}
}
