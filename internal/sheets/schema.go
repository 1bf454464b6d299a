package sheets

import (
	"fmt"
	"strings"
)

// MissingColumnError reports a required header column absent from a sheet.
type MissingColumnError struct {
	Column string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found in header", e.Column)
}

// Schema maps lower-cased header names to 1-indexed column positions.
// Resolved once when a sheet is opened so row access never scans headers.
type Schema map[string]int

// ResolveSchema builds a schema from a header row and verifies every
// required column is present. Matching is case-insensitive and ignores
// surrounding whitespace.
func ResolveSchema(header []string, required ...string) (Schema, error) {
	schema := make(Schema, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := schema[key]; !ok {
			schema[key] = i + 1
		}
	}
	for _, name := range required {
		if _, ok := schema[strings.ToLower(name)]; !ok {
			return nil, &MissingColumnError{Column: name}
		}
	}
	return schema, nil
}

// Col returns the 1-indexed column for a header name, or 0 when absent.
func (s Schema) Col(name string) int {
	return s[strings.ToLower(name)]
}

// Cell returns the trimmed value of the named column in a row, or ""
// when the column is absent or the row is short.
func (s Schema) Cell(row []string, name string) string {
	col := s.Col(name)
	if col == 0 || col > len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}
