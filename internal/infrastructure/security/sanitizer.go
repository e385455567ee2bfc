package security

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Header names whose values must never reach logs or the audit trail.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"proxy-authorization": true,
}

// JSON field names (substring match, case-insensitive) that are
// redacted from logged bodies. Covers OAuth2 responses and the CSR
// endpoint's private key output.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"client_secret",
	"access_token",
	"refresh_token",
	"private_key",
	"api_key",
	"credential",
}

const redactedValue = "[REDACTED]"

// SanitizeHeaders returns a flat header map with sensitive values redacted.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = redactedValue
		} else {
			sanitized[key] = strings.Join(values, ", ")
		}
	}
	return sanitized
}

// SanitizeBody redacts sensitive fields from a body destined for logs
// or the audit trail. JSON bodies are sanitized recursively; XML and
// other text is wrapped as-is; binary data is base64-wrapped. Bodies
// above maxSize are truncated.
func SanitizeBody(body []byte, maxSize int) json.RawMessage {
	if len(body) == 0 {
		return nil
	}

	// gzip magic number
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		if decompressed, err := decompressGzip(body); err == nil {
			body = decompressed
		} else {
			return wrapBinary(body, "gzip (decompression failed)")
		}
	}

	if !utf8.Valid(body) {
		return wrapBinary(body, "binary")
	}

	if maxSize > 0 && len(body) > maxSize {
		truncated := map[string]any{
			"_truncated": true,
			"_size":      len(body),
			"_preview":   string(body[:maxSize]),
		}
		result, _ := json.Marshal(truncated)
		return result
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return wrapText(body)
	}

	result, err := json.Marshal(sanitizeValue(data))
	if err != nil {
		return wrapText(body)
	}
	return result
}

// SanitizeURL redacts the values of sensitive query parameters.
func SanitizeURL(url string) string {
	lowerURL := strings.ToLower(url)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerURL, field+"=") {
			url = redactQueryParam(url, field)
		}
	}
	return url
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func wrapBinary(data []byte, format string) json.RawMessage {
	wrapped := map[string]any{
		"_binary": true,
		"_format": format,
		"_size":   len(data),
		"_base64": base64.StdEncoding.EncodeToString(data),
	}
	result, _ := json.Marshal(wrapped)
	return result
}

func wrapText(body []byte) json.RawMessage {
	wrapped := map[string]any{
		"_raw":    string(body),
		"_format": "text",
	}
	result, _ := json.Marshal(wrapped)
	return result
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		sanitized := make(map[string]any, len(val))
		for key, value := range val {
			if isSensitiveField(key) {
				sanitized[key] = redactedValue
			} else {
				sanitized[key] = sanitizeValue(value)
			}
		}
		return sanitized
	case []any:
		sanitized := make([]any, len(val))
		for i, value := range val {
			sanitized[i] = sanitizeValue(value)
		}
		return sanitized
	default:
		return val
	}
}

func isSensitiveField(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerKey, field) {
			return true
		}
	}
	return false
}

func redactQueryParam(url, param string) string {
	lowerURL := strings.ToLower(url)
	idx := strings.Index(lowerURL, strings.ToLower(param)+"=")
	if idx == -1 {
		return url
	}

	startIdx := idx + len(param) + 1
	endIdx := strings.IndexAny(url[startIdx:], "&")
	if endIdx == -1 {
		return url[:startIdx] + redactedValue
	}
	return url[:startIdx] + redactedValue + url[startIdx+endIdx:]
}
