package models

import "time"

// AuditEntry is one append-only record in the control spreadsheet log.
// Newest entry sits at the top of the sheet.
type AuditEntry struct {
	TenantID   int
	TenantName string
	Message    string
	At         time.Time
}
