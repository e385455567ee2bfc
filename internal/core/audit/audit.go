package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one audited call to the tax authority: the full request and
// response pair, sanitized, kept for compliance and diagnostics.
type Entry struct {
	ID              int64
	CorrelationID   string
	Provider        string // "zatca"
	Operation       string // "Token", "Report", ...
	RequestMethod   string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     json.RawMessage
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    json.RawMessage
	DurationMs      int64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Repository persists audit entries. Implementations must tolerate
// being called from detached goroutines after the originating request
// has completed.
type Repository interface {
	Save(ctx context.Context, entry Entry) error
	FindByCorrelationID(ctx context.Context, correlationID string) ([]Entry, error)
}
