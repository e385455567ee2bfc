package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "ms_zatca_gateway" {
		t.Errorf("expected default app name, got %q", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Zatca.TokenTTL != 50*time.Minute {
		t.Errorf("expected default token TTL 50m, got %v", cfg.Zatca.TokenTTL)
	}
	if cfg.Zatca.ClearanceStatus != "1" {
		t.Errorf("expected default clearance status 1, got %q", cfg.Zatca.ClearanceStatus)
	}
	if cfg.Zatca.InvoiceDir != "storage/invoices" {
		t.Errorf("expected default invoice dir, got %q", cfg.Zatca.InvoiceDir)
	}
	if cfg.Auth.Enabled {
		t.Error("expected auth disabled by default")
	}
}

func TestLoad_ZatcaSettings(t *testing.T) {
	t.Setenv("ZATCA_API_BASE", "https://gw-fatoora.zatca.gov.sa/")
	t.Setenv("ZATCA_CLIENT_ID", "client")
	t.Setenv("ZATCA_CLIENT_SECRET", "secret")
	t.Setenv("ZATCA_DEVICE_UUID", "3a9ef820-6b8b-4d7e-9b2e-0d6a8b1c2d3e")
	t.Setenv("ZATCA_TOKEN_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Zatca.APIBase != "https://gw-fatoora.zatca.gov.sa" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Zatca.APIBase)
	}
	if cfg.Zatca.TokenTTL != 30*time.Minute {
		t.Errorf("expected token TTL 30m, got %v", cfg.Zatca.TokenTTL)
	}
	if !cfg.Zatca.ReportingConfigured() {
		t.Error("expected reporting to be configured")
	}
}

func TestLoad_InvalidDeviceUUID(t *testing.T) {
	t.Setenv("ZATCA_DEVICE_UUID", "not-a-uuid")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid device UUID, got nil")
	}
}

func TestLoad_InvalidTokenTTL(t *testing.T) {
	t.Setenv("ZATCA_TOKEN_TTL", "-10m")

	if _, err := Load(); err == nil {
		t.Error("expected error for negative token TTL, got nil")
	}
}

func TestLoad_AuthRequiresURIs(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("JWT_ISSUER_URI", "")
	t.Setenv("JWT_JWK_SET_URI", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when auth enabled without issuer URIs, got nil")
	}
}

func TestReportingConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings ZatcaSettings
		want     bool
	}{
		{"all set", ZatcaSettings{APIBase: "https://x", ClientID: "a", ClientSecret: "b"}, true},
		{"missing base", ZatcaSettings{ClientID: "a", ClientSecret: "b"}, false},
		{"missing secret", ZatcaSettings{APIBase: "https://x", ClientID: "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.ReportingConfigured(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHTTPSettings_Address(t *testing.T) {
	h := HTTPSettings{Port: 9090}
	if got := h.Address(); got != ":9090" {
		t.Errorf("expected :9090, got %q", got)
	}
}
