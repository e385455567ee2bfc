package zatca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// reportPath is the compliance reporting endpoint, relative to the API base.
const reportPath = "/compliance/invoices/report"

// SubmissionError is a non-success response from the reporting
// endpoint. The raw response body is carried verbatim; the gateway
// never interprets or retries it.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("ZATCA API error: status %d: %s", e.StatusCode, e.Body)
}

// Client submits signed invoice XML to the ZATCA compliance API.
// It implements invoice.Reporter.
type Client struct {
	apiBase         string
	deviceUUID      string
	clearanceStatus string
	auth            *AuthManager
	httpClient      HTTPClient
	log             *slog.Logger
}

// NewClient creates a ZATCA submission client.
func NewClient(apiBase, deviceUUID, clearanceStatus string, auth *AuthManager, httpClient HTTPClient, log *slog.Logger) *Client {
	if clearanceStatus == "" {
		clearanceStatus = "1"
	}
	return &Client{
		apiBase:         strings.TrimRight(apiBase, "/"),
		deviceUUID:      deviceUUID,
		clearanceStatus: clearanceStatus,
		auth:            auth,
		httpClient:      httpClient,
		log:             log,
	}
}

// ReportInvoice POSTs the raw signed XML to the reporting endpoint with
// a cached bearer token and returns the authority's JSON response
// verbatim. A non-2xx status yields a SubmissionError carrying the raw
// body; nothing is retried and the already-persisted XML file is left
// in place.
func (c *Client) ReportInvoice(ctx context.Context, signedXML string) (map[string]any, error) {
	token, err := c.auth.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+reportPath, strings.NewReader(signedXML))
	if err != nil {
		return nil, fmt.Errorf("create report request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Clearance-Status", c.clearanceStatus)
	req.Header.Set("Device-UUID", c.deviceUUID)
	req.Header.Set("Content-Type", "application/xml")

	c.log.Debug("reporting invoice to ZATCA", "device_uuid", c.deviceUUID, "xml_bytes", len(signedXML))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute report request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read report response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal report response: %w", err)
	}

	return result, nil
}
