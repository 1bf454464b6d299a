package models

// Scheduler status values stored in the control table. Any other value
// parks the row outside the scheduler.
const (
	StatusStart      = "Start"
	StatusInProgress = "In progress"
)

// Processing markers track run-local progress of a tenant row. The
// labels are the Russian strings operators see in the control table.
const (
	ProcessingBlank   = ""
	ProcessingWaiting = "ожидание"
	ProcessingRunning = "в работе"
	ProcessingDone    = "готово"
	ProcessingError   = "ошибка"
)

// Tenant is one client organization: a row in the control table plus an
// owned spreadsheet with its channels and suggestions.
type Tenant struct {
	ID     int
	Name   string
	URL    string
	Status string
}

// Eligible reports whether the scheduler status selects the tenant for a run.
func Eligible(status string) bool {
	return status == StatusStart || status == StatusInProgress
}
