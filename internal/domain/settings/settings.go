// Package settings defines the domain types for schemaless JSON settings records.
package settings

import (
	"bytes"
	"encoding/json"

	"github.com/Strob0t/settingsadmin/internal/domain"
)

// Page size bounds enforced by the settings service.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Setting is a schemaless JSON record identified by a server-assigned ID.
type Setting struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Page is one page of the settings collection as reported by the server.
// Total is the full collection count at fetch time.
type Page struct {
	Items    []Setting `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// WriteRequest is the body of create and update calls: {"data": <json>}.
type WriteRequest struct {
	Data json.RawMessage `json:"data"`
}

// Validate checks that Data holds a JSON object.
func (r *WriteRequest) Validate() error {
	trimmed := bytes.TrimSpace(r.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.Validationf("data is required")
	}
	if !json.Valid(trimmed) {
		return domain.Validationf("data must be valid JSON")
	}
	if trimmed[0] != '{' {
		return domain.Validationf("data must be a JSON object")
	}
	return nil
}

// Offset returns the number of rows to skip for the given 1-indexed page.
func Offset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}

// ValidatePaging checks page >= 1 and 1 <= pageSize <= MaxPageSize.
func ValidatePaging(page, pageSize int) error {
	if page < 1 {
		return domain.Validationf("page must be >= 1")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return domain.Validationf("page_size must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// Pretty renders data as 2-space indented JSON. Invalid input is returned as-is.
func Pretty(data json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
