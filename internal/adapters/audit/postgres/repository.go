package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tabadul/ms_zatca_gateway/internal/core/audit"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements audit.Repository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a PostgreSQL audit repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) audit.Repository {
	return &Repository{pool: pool, log: log}
}

// Save persists one audit entry.
func (r *Repository) Save(ctx context.Context, entry audit.Entry) error {
	query := `
		INSERT INTO provider_audit_log (
			correlation_id, provider, operation, request_method, request_url,
			request_headers, request_body, response_status, response_headers,
			response_body, duration_ms, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	requestHeadersJSON, err := json.Marshal(entry.RequestHeaders)
	if err != nil {
		return fmt.Errorf("marshal request headers: %w", err)
	}
	responseHeadersJSON, err := json.Marshal(entry.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("marshal response headers: %w", err)
	}

	var requestBody, responseBody any
	if len(entry.RequestBody) > 0 {
		requestBody = entry.RequestBody
	}
	if len(entry.ResponseBody) > 0 {
		responseBody = entry.ResponseBody
	}

	_, err = r.pool.Exec(ctx, query,
		entry.CorrelationID,
		entry.Provider,
		entry.Operation,
		entry.RequestMethod,
		entry.RequestURL,
		requestHeadersJSON,
		requestBody,
		entry.ResponseStatus,
		responseHeadersJSON,
		responseBody,
		entry.DurationMs,
		entry.ErrorMessage,
	)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to insert audit entry",
				"correlation_id", entry.CorrelationID,
				"operation", entry.Operation,
				"error", err,
			)
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// FindByCorrelationID retrieves all audit entries for a correlation ID,
// newest first.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.Entry, error) {
	query := `
		SELECT id, correlation_id, provider, operation, request_method, request_url,
		       request_headers, request_body, response_status, response_headers,
		       response_body, duration_ms, error_message, created_at
		FROM provider_audit_log
		WHERE correlation_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var requestHeadersJSON, responseHeadersJSON []byte
		var requestBodyJSON, responseBodyJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.CorrelationID,
			&entry.Provider,
			&entry.Operation,
			&entry.RequestMethod,
			&entry.RequestURL,
			&requestHeadersJSON,
			&requestBodyJSON,
			&entry.ResponseStatus,
			&responseHeadersJSON,
			&responseBodyJSON,
			&entry.DurationMs,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if err := json.Unmarshal(requestHeadersJSON, &entry.RequestHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal request headers: %w", err)
		}
		if err := json.Unmarshal(responseHeadersJSON, &entry.ResponseHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal response headers: %w", err)
		}
		entry.RequestBody = requestBodyJSON
		entry.ResponseBody = responseBodyJSON

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
