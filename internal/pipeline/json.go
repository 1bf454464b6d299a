package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ExtractJSON parses a JSON object out of a completion, either from a
// fenced ```json block or from the raw body.
func ExtractJSON(content string, v interface{}) error {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err != nil {
			return fmt.Errorf("failed to parse fenced JSON: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("failed to parse JSON body: %w", err)
	}
	return nil
}
