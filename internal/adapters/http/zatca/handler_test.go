package zatca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tabadul/ms_zatca_gateway/internal/adapters/certificate/csr"
	"tabadul/ms_zatca_gateway/internal/adapters/invoice/ubl"
	zatcaclient "tabadul/ms_zatca_gateway/internal/adapters/invoice/zatca"
	appcert "tabadul/ms_zatca_gateway/internal/application/certificate"
	appinvoice "tabadul/ms_zatca_gateway/internal/application/invoice"
	"tabadul/ms_zatca_gateway/internal/core/invoice"
	"tabadul/ms_zatca_gateway/internal/testutil"
)

type stubReporter struct {
	response map[string]any
	err      error
	calls    int
}

func (s *stubReporter) ReportInvoice(ctx context.Context, signedXML string) (map[string]any, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func newHandler(t *testing.T, reporter invoice.Reporter) *Handler {
	t.Helper()
	log := testutil.NewNullLogger()
	invoiceSvc := appinvoice.NewService(
		ubl.NewGenerator(log),
		ubl.NewFileStore(t.TempDir()),
		reporter,
		log,
	)
	certSvc := appcert.NewService(csr.NewBuilder(), log)
	return NewHandler(invoiceSvc, certSvc, log)
}

func validInvoicePayload() map[string]any {
	party := map[string]any{
		"name":         "Acme",
		"vat_number":   "311111111101113",
		"address":      "123 Main St",
		"building_no":  "1",
		"postal_code":  "12345",
		"city":         "Riyadh",
		"country_code": "SA",
	}
	return map[string]any{
		"supplier": party,
		"customer": party,
		"invoice": map[string]any{
			"invoice_number":         "INV-001",
			"issue_date":             "2025-09-13",
			"type":                   "standard",
			"type_code":              "invoice",
			"currency":               "SAR",
			"taxable_amount":         100,
			"tax_amount":             15,
			"line_extension_amount":  100,
			"tax_exclusive_amount":   100,
			"tax_inclusive_amount":   115,
			"prepaid_amount":         0,
			"payable_amount":         115,
			"allowance_total_amount": 0,
		},
		"lines": []map[string]any{
			{
				"description": "Product A",
				"quantity":    2,
				"unit_price":  50,
				"vat_rate":    15,
				"tax_amount":  15,
				"total":       100,
			},
		},
	}
}

func TestHandler_GenerateInvoice_EndToEnd(t *testing.T) {
	handler := newHandler(t, nil)

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/generate-invoice", validInvoicePayload(), nil)
	w := httptest.NewRecorder()

	handler.GenerateInvoice(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("expected application/xml content type, got %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{"INV-001", "SAR", `unitCode="PCE">2<`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected XML to contain %q", want)
		}
	}
	if got := strings.Count(body, "<cac:InvoiceLine>"); got != 1 {
		t.Errorf("expected a single invoice line, got %d", got)
	}
}

func TestHandler_GenerateInvoice_ValidationError(t *testing.T) {
	handler := newHandler(t, nil)

	payload := validInvoicePayload()
	supplier := payload["supplier"].(map[string]any)
	cloned := map[string]any{}
	for k, v := range supplier {
		cloned[k] = v
	}
	delete(cloned, "vat_number")
	payload["supplier"] = cloned

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/generate-invoice", payload, nil)
	w := httptest.NewRecorder()

	handler.GenerateInvoice(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	response := testutil.ReadErrorResponse(t, w)
	errs, ok := response["errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected errors map, got %v", response)
	}
	if _, ok := errs["supplier.vat_number"]; !ok {
		t.Errorf("expected supplier.vat_number in errors, got %v", errs)
	}
}

func TestHandler_GenerateInvoice_BadJSON(t *testing.T) {
	handler := newHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/zatca/generate-invoice", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	handler.GenerateInvoice(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandler_GenerateCSR(t *testing.T) {
	handler := newHandler(t, nil)

	payload := map[string]any{
		"organization_identifier":  "311111111101113",
		"solution_name":            "Tabadul",
		"model":                    "POS-1",
		"serial_number":            "SN-0001",
		"common_name":              "TST-886431145-311111111101113",
		"country":                  "SA",
		"organization_name":        "Acme Trading",
		"organizational_unit_name": "Riyadh Branch",
		"address":                  "123 Main St, Riyadh",
		"invoice_type":             1100,
		"production":               false,
		"business_category":        "Retail",
	}

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/generate-csr", payload, nil)
	w := httptest.NewRecorder()

	handler.GenerateCSR(w, req)

	var response map[string]string
	testutil.ReadJSONResponse(t, w, &response)

	if !strings.Contains(response["csr"], "BEGIN CERTIFICATE REQUEST") {
		t.Errorf("expected PEM CSR, got %q", response["csr"])
	}
	if !strings.Contains(response["private_key"], "BEGIN EC PRIVATE KEY") {
		t.Errorf("expected PEM private key, got %q", response["private_key"])
	}
}

func TestHandler_GenerateCSR_MissingCountry(t *testing.T) {
	handler := newHandler(t, nil)

	payload := map[string]any{
		"organization_identifier":  "311111111101113",
		"solution_name":            "Tabadul",
		"model":                    "POS-1",
		"serial_number":            "SN-0001",
		"common_name":              "TST-886431145-311111111101113",
		"organization_name":        "Acme Trading",
		"organizational_unit_name": "Riyadh Branch",
		"address":                  "123 Main St, Riyadh",
		"invoice_type":             1100,
		"production":               false,
		"business_category":        "Retail",
	}

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/generate-csr", payload, nil)
	w := httptest.NewRecorder()

	handler.GenerateCSR(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	response := testutil.ReadErrorResponse(t, w)
	errs := response["errors"].(map[string]any)
	if _, ok := errs["country"]; !ok {
		t.Errorf("expected country in errors, got %v", errs)
	}
}

func TestHandler_SignInvoice_Echo(t *testing.T) {
	handler := newHandler(t, nil)

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/sign-invoice", map[string]any{"xml": "<Invoice/>"}, nil)
	w := httptest.NewRecorder()

	handler.SignInvoice(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("expected application/xml content type, got %q", ct)
	}
	if w.Body.String() != "<Invoice/>" {
		t.Errorf("expected document echoed back, got %q", w.Body.String())
	}
}

func TestHandler_ReportInvoice_Success(t *testing.T) {
	reporter := &stubReporter{response: map[string]any{"status": "REPORTED"}}
	handler := newHandler(t, reporter)

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/report-invoice", map[string]any{"xml": "<Invoice/>"}, nil)
	w := httptest.NewRecorder()

	handler.ReportInvoice(w, req)

	var response map[string]any
	testutil.ReadJSONResponse(t, w, &response)

	if response["status"] != "REPORTED" {
		t.Errorf("expected authority response verbatim, got %v", response)
	}
	if reporter.calls != 1 {
		t.Errorf("expected 1 reporter call, got %d", reporter.calls)
	}
}

func TestHandler_ReportInvoice_SubmissionError(t *testing.T) {
	reporter := &stubReporter{err: &zatcaclient.SubmissionError{
		StatusCode: http.StatusBadRequest,
		Body:       `{"validationResults":{"status":"ERROR"}}`,
	}}
	handler := newHandler(t, reporter)

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/report-invoice", map[string]any{"xml": "<Invoice/>"}, nil)
	w := httptest.NewRecorder()

	handler.ReportInvoice(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", w.Code)
	}

	if !strings.Contains(w.Body.String(), `validationResults`) {
		t.Errorf("expected raw authority body in response, got %q", w.Body.String())
	}
}

func TestHandler_ReportInvoice_AuthError(t *testing.T) {
	reporter := &stubReporter{err: &zatcaclient.AuthError{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":"invalid_client"}`,
	}}
	handler := newHandler(t, reporter)

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/report-invoice", map[string]any{"xml": "<Invoice/>"}, nil)
	w := httptest.NewRecorder()

	handler.ReportInvoice(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_client") {
		t.Errorf("expected raw authority body in response, got %q", w.Body.String())
	}
}

func TestHandler_ReportInvoice_NotConfigured(t *testing.T) {
	handler := newHandler(t, nil)

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/report-invoice", map[string]any{"xml": "<Invoice/>"}, nil)
	w := httptest.NewRecorder()

	handler.ReportInvoice(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestHandler_ReportInvoice_MissingXML(t *testing.T) {
	reporter := &stubReporter{}
	handler := newHandler(t, reporter)

	req := testutil.CreateRequest(http.MethodPost, "/api/zatca/report-invoice", map[string]any{}, nil)
	w := httptest.NewRecorder()

	handler.ReportInvoice(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", w.Code)
	}
	if reporter.calls != 0 {
		t.Errorf("expected no reporter call, got %d", reporter.calls)
	}
}
