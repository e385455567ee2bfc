package zatca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tabadul/ms_zatca_gateway/internal/infrastructure/cache"
)

// tokenPath is the authority's OpenID Connect token endpoint, relative
// to the API base.
const tokenPath = "/auth/realms/zakaa/protocol/openid-connect/token"

// HTTPClient is satisfied by both *http.Client and the traced client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AuthError is an authentication failure from the token endpoint. The
// raw response body is carried verbatim for diagnosis; no retry is
// attempted.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to get ZATCA access token: status %d: %s", e.StatusCode, e.Body)
}

// AuthManager obtains OAuth2 client-credentials tokens from ZATCA and
// caches them. The refresh path is mutex-guarded with a double-check so
// concurrent cache misses trigger at most one token request.
type AuthManager struct {
	apiBase      string
	clientID     string
	clientSecret string
	tokenTTL     time.Duration
	cache        *cache.TokenCache
	client       HTTPClient
	log          *slog.Logger
	mu           sync.Mutex
}

// NewAuthManager creates a ZATCA authentication manager.
func NewAuthManager(apiBase, clientID, clientSecret string, tokenTTL time.Duration, client HTTPClient, log *slog.Logger) *AuthManager {
	return &AuthManager{
		apiBase:      strings.TrimRight(apiBase, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenTTL:     tokenTTL,
		cache:        cache.NewTokenCache(),
		client:       client,
		log:          log,
	}
}

// GetAccessToken returns a valid bearer token, fetching a fresh one
// when the cached token is missing or older than the configured TTL.
func (a *AuthManager) GetAccessToken(ctx context.Context) (string, error) {
	if token, ok := a.cache.Get(); ok {
		return token, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if token, ok := a.cache.Get(); ok {
		return token, nil
	}

	token, err := a.fetchToken(ctx)
	if err != nil {
		a.log.Error("ZATCA token request failed", "error", err)
		return "", err
	}

	a.cache.Set(token, a.tokenTTL)
	a.log.Debug("ZATCA access token refreshed and cached", "ttl", a.tokenTTL)

	return token, nil
}

// fetchToken performs the client-credentials grant against the
// authority's token endpoint.
func (a *AuthManager) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("unmarshal token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	return payload.AccessToken, nil
}

// ClearToken drops the cached token, forcing a refresh on next use.
func (a *AuthManager) ClearToken() {
	a.cache.Clear()
}
