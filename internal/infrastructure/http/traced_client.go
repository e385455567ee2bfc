package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tabadul/ms_zatca_gateway/internal/core/audit"
	ctxutil "tabadul/ms_zatca_gateway/internal/infrastructure/context"
	"tabadul/ms_zatca_gateway/internal/infrastructure/security"
)

// TracedClient wraps an HTTP client with request/response logging,
// secret sanitization, and asynchronous audit-trail persistence for
// every call made to the tax authority.
type TracedClient struct {
	client       *http.Client
	log          *slog.Logger
	auditRepo    audit.Repository
	provider     string
	auditEnabled bool
	logReqBody   bool
	logRespBody  bool
	maxBodySize  int
}

// TracedClientConfig holds configuration for the traced HTTP client.
type TracedClientConfig struct {
	Timeout         time.Duration
	AuditEnabled    bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// NewTracedClient creates a traced HTTP client with pooled transport.
// auditRepo may be nil; auditing is then skipped.
func NewTracedClient(cfg *TracedClientConfig, log *slog.Logger, auditRepo audit.Repository, provider string) *TracedClient {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 102400
	}

	// ResponseHeaderTimeout must not undercut the client timeout or
	// slow authority responses get cut off mid-wait.
	responseHeaderTimeout := cfg.Timeout
	if responseHeaderTimeout < 60*time.Second {
		responseHeaderTimeout = 60 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &TracedClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log:          log,
		auditRepo:    auditRepo,
		provider:     provider,
		auditEnabled: cfg.AuditEnabled,
		logReqBody:   cfg.LogRequestBody,
		logRespBody:  cfg.LogResponseBody,
		maxBodySize:  cfg.MaxBodySize,
	}
}

// Do executes the request, logging both sides of the exchange and
// persisting an audit entry without blocking the caller.
func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	correlationID := ctxutil.GetCorrelationID(ctx)
	operation := c.extractOperation(req)
	start := time.Now()

	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	var requestBody []byte
	if req.Body != nil {
		var err error
		requestBody, err = io.ReadAll(req.Body)
		if err != nil {
			c.log.Error("failed to read request body for tracing",
				"error", err,
				"correlation_id", correlationID,
			)
		}
		req.Body = io.NopCloser(bytes.NewBuffer(requestBody))
	}

	c.logRequest(correlationID, operation, req, requestBody)

	resp, err := c.client.Do(req)
	duration := time.Since(start)

	var responseBody []byte
	if resp != nil && resp.Body != nil {
		responseBody, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(responseBody))
	}

	c.logResponse(correlationID, operation, req, resp, err, duration, responseBody)

	if c.auditEnabled && c.auditRepo != nil {
		if correlationID == "" {
			correlationID = fmt.Sprintf("audit-%d", time.Now().UnixNano())
		}

		// The request context is cancelled as soon as the caller is
		// done with the response; persist on a detached context so the
		// audit entry survives the request lifecycle.
		go func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("panic while persisting audit entry",
						"panic", r,
						"correlation_id", correlationID,
						"operation", operation,
					)
				}
			}()

			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			c.persistAuditEntry(saveCtx, correlationID, operation, req, resp, err, duration, requestBody, responseBody)
		}()
	}

	return resp, err
}

func (c *TracedClient) logRequest(correlationID, operation string, req *http.Request, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"provider", c.provider,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
	}

	if c.logReqBody && len(body) > 0 {
		attrs = append(attrs, "request_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}

	c.log.Info("provider_request", attrs...)
}

func (c *TracedClient) logResponse(correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"provider", c.provider,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		c.log.Error("provider_request_failed", attrs...)
		return
	}

	attrs = append(attrs, "status", resp.StatusCode, "response_size_bytes", len(body))
	if c.logRespBody && len(body) > 0 {
		attrs = append(attrs, "response_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}

	switch {
	case resp.StatusCode >= 500:
		c.log.Error("provider_response", attrs...)
	case resp.StatusCode >= 400:
		c.log.Warn("provider_response", attrs...)
	default:
		c.log.Info("provider_response", attrs...)
	}
}

func (c *TracedClient) persistAuditEntry(ctx context.Context, correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, requestBody, responseBody []byte) {
	entry := audit.Entry{
		CorrelationID:  correlationID,
		Provider:       c.provider,
		Operation:      operation,
		RequestMethod:  req.Method,
		RequestURL:     security.SanitizeURL(req.URL.String()),
		RequestHeaders: security.SanitizeHeaders(req.Header),
		DurationMs:     duration.Milliseconds(),
	}

	if len(requestBody) > 0 {
		entry.RequestBody = security.SanitizeBody(requestBody, c.maxBodySize)
	}

	if resp != nil {
		status := resp.StatusCode
		entry.ResponseStatus = &status
		entry.ResponseHeaders = security.SanitizeHeaders(resp.Header)
		if len(responseBody) > 0 {
			entry.ResponseBody = security.SanitizeBody(responseBody, c.maxBodySize)
		}
	}

	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	if saveErr := c.auditRepo.Save(ctx, entry); saveErr != nil {
		c.log.Error("failed to persist audit entry",
			"error", saveErr,
			"correlation_id", correlationID,
			"provider", c.provider,
			"operation", operation,
			"url", entry.RequestURL,
		)
	}
}

// extractOperation derives an operation name from the last URL path segment.
func (c *TracedClient) extractOperation(req *http.Request) string {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	if len(parts) > 0 && parts[len(parts)-1] != "" {
		operation := parts[len(parts)-1]
		return strings.ToUpper(operation[:1]) + operation[1:]
	}
	return fmt.Sprintf("%s_%s", req.Method, c.provider)
}

// Client returns the underlying HTTP client.
func (c *TracedClient) Client() *http.Client {
	return c.client
}
