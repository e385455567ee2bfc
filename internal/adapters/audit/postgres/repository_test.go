package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"tabadul/ms_zatca_gateway/internal/core/audit"
)

// These tests validate the marshaling behavior the repository relies
// on. Save and FindByCorrelationID need a PostgreSQL instance and are
// covered by integration runs against a test database.

func TestRepositoryImplementsInterface(t *testing.T) {
	var _ audit.Repository = (*Repository)(nil)
}

func TestEntryHeaderSerialization(t *testing.T) {
	entry := audit.Entry{
		CorrelationID: "corr-123",
		Provider:      "zatca",
		Operation:     "Report",
		RequestMethod: "POST",
		RequestURL:    "https://gw-fatoora.zatca.gov.sa/compliance/invoices/report",
		RequestHeaders: map[string]string{
			"Content-Type": "application/xml",
		},
		RequestBody:    json.RawMessage(`{"_format":"text","_raw":"<Invoice/>"}`),
		ResponseStatus: func() *int { v := 200; return &v }(),
		ResponseHeaders: map[string]string{
			"Content-Type": "application/json",
		},
		ResponseBody: json.RawMessage(`{"reportingStatus":"REPORTED"}`),
		DurationMs:   150,
		CreatedAt:    time.Now(),
	}

	headersJSON, err := json.Marshal(entry.RequestHeaders)
	if err != nil {
		t.Fatalf("failed to marshal headers: %v", err)
	}

	var headers map[string]string
	if err := json.Unmarshal(headersJSON, &headers); err != nil {
		t.Fatalf("failed to unmarshal headers: %v", err)
	}
	if headers["Content-Type"] != "application/xml" {
		t.Error("headers not properly serialized")
	}

	var reqBody, respBody map[string]any
	if err := json.Unmarshal(entry.RequestBody, &reqBody); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if err := json.Unmarshal(entry.ResponseBody, &respBody); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
}

func TestEntryNilFields(t *testing.T) {
	entry := audit.Entry{
		CorrelationID: "corr-456",
		Provider:      "zatca",
		Operation:     "Token",
		RequestMethod: "POST",
		RequestURL:    "https://gw-fatoora.zatca.gov.sa/auth",
		DurationMs:    100,
		ErrorMessage:  "connection timeout",
		CreatedAt:     time.Now(),
	}

	// nil headers are stored as an empty JSON object, never NULL.
	headers := entry.RequestHeaders
	if headers == nil {
		headers = make(map[string]string)
	}

	headersJSON, err := json.Marshal(headers)
	if err != nil {
		t.Fatalf("failed to marshal nil headers: %v", err)
	}
	if string(headersJSON) != "{}" {
		t.Errorf("nil headers marshaled to %s, want {}", headersJSON)
	}

	if entry.ResponseStatus != nil {
		t.Error("ResponseStatus should be nil for transport failures")
	}
}
