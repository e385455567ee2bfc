package zatca

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tabadul/ms_zatca_gateway/internal/testutil"
)

func TestNewAuthManager(t *testing.T) {
	apiBase := "https://api.example.com/"
	client := &http.Client{}

	auth := NewAuthManager(apiBase, "client-id", "client-secret", 50*time.Minute, client, testutil.NewTestLogger())

	if auth == nil {
		t.Fatal("expected auth manager to be created, got nil")
	}

	if auth.apiBase != "https://api.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", auth.apiBase)
	}

	if auth.clientID != "client-id" {
		t.Errorf("expected clientID %q, got %q", "client-id", auth.clientID)
	}

	if auth.tokenTTL != 50*time.Minute {
		t.Errorf("expected tokenTTL %v, got %v", 50*time.Minute, auth.tokenTTL)
	}

	if auth.cache == nil {
		t.Error("expected cache to be initialized")
	}
}

func TestAuthManager_GetAccessToken_FormEncoded(t *testing.T) {
	var gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc123","expires_in":3600}`))
	}))
	defer server.Close()

	auth := NewAuthManager(server.URL, "my-client", "my-secret", 50*time.Minute, server.Client(), testutil.NewTestLogger())

	token, err := auth.GetAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token != "abc123" {
		t.Errorf("expected token %q, got %q", "abc123", token)
	}

	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("expected form-encoded content type, got %q", gotContentType)
	}

	for _, want := range []string{"grant_type=client_credentials", "client_id=my-client", "client_secret=my-secret"} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("expected request body to contain %q, got %q", want, gotBody)
		}
	}
}

func TestAuthManager_GetAccessToken_Cached(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Write([]byte(`{"access_token":"cached-token"}`))
	}))
	defer server.Close()

	auth := NewAuthManager(server.URL, "id", "secret", 50*time.Minute, server.Client(), testutil.NewTestLogger())

	token1, err := auth.GetAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token2, err := auth.GetAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token1 != token2 {
		t.Errorf("expected cached token, got different tokens: %q vs %q", token1, token2)
	}

	if callCount != 1 {
		t.Errorf("expected 1 token request, got %d", callCount)
	}
}

func TestAuthManager_GetAccessToken_Expired(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Write([]byte(`{"access_token":"token"}`))
	}))
	defer server.Close()

	auth := NewAuthManager(server.URL, "id", "secret", 50*time.Millisecond, server.Client(), testutil.NewTestLogger())

	_, err := auth.GetAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	_, err = auth.GetAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if callCount != 2 {
		t.Errorf("expected 2 token requests, got %d", callCount)
	}
}

func TestAuthManager_GetAccessToken_Concurrent(t *testing.T) {
	callCount := 0
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		callCount++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte(`{"access_token":"token"}`))
	}))
	defer server.Close()

	auth := NewAuthManager(server.URL, "id", "secret", 50*time.Minute, server.Client(), testutil.NewTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := auth.GetAccessToken(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if callCount != 1 {
		t.Errorf("expected 1 token request with concurrent callers, got %d", callCount)
	}
}

func TestAuthManager_GetAccessToken_ErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	auth := NewAuthManager(server.URL, "id", "wrong", 50*time.Minute, server.Client(), testutil.NewTestLogger())

	_, err := auth.GetAccessToken(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	authErr, ok := err.(*AuthError)
	if !ok {
		t.Fatalf("expected *AuthError, got %T", err)
	}

	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", authErr.StatusCode)
	}

	if !strings.Contains(authErr.Body, "invalid_client") {
		t.Errorf("expected raw body to be preserved, got %q", authErr.Body)
	}

	if !strings.Contains(err.Error(), `{"error":"invalid_client"}`) {
		t.Errorf("expected error message to contain the raw body, got %q", err.Error())
	}
}

func TestAuthManager_ClearToken(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Write([]byte(`{"access_token":"token"}`))
	}))
	defer server.Close()

	auth := NewAuthManager(server.URL, "id", "secret", 50*time.Minute, server.Client(), testutil.NewTestLogger())

	if _, err := auth.GetAccessToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	auth.ClearToken()

	if _, err := auth.GetAccessToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if callCount != 2 {
		t.Errorf("expected 2 token requests after clear, got %d", callCount)
	}
}
