package zatca

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	zatcaclient "tabadul/ms_zatca_gateway/internal/adapters/invoice/zatca"
	appcert "tabadul/ms_zatca_gateway/internal/application/certificate"
	appinvoice "tabadul/ms_zatca_gateway/internal/application/invoice"
	ctxutil "tabadul/ms_zatca_gateway/internal/infrastructure/context"
	httperrors "tabadul/ms_zatca_gateway/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the invoice and certificate
// application services.
type Handler struct {
	invoices     *appinvoice.Service
	certificates *appcert.Service
	log          *slog.Logger
}

// NewHandler creates a new ZATCA HTTP handler.
func NewHandler(invoices *appinvoice.Service, certificates *appcert.Service, log *slog.Logger) *Handler {
	return &Handler{
		invoices:     invoices,
		certificates: certificates,
		log:          log,
	}
}

// XMLRequest is the body shape shared by sign-invoice and
// report-invoice.
type XMLRequest struct {
	XML string `json:"xml"`
}

// GenerateInvoice handles POST /api/zatca/generate-invoice.
// Success returns the generated UBL document with Content-Type
// application/xml.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	correlationID := ctxutil.GetCorrelationID(r.Context())

	var reqBody appinvoice.GenerateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Invalid request body", []string{err.Error()}, h.log)
		return
	}

	result, err := h.invoices.GenerateInvoice(r.Context(), reqBody)
	if err != nil {
		var validationErr *appinvoice.ValidationError
		if errors.As(err, &validationErr) {
			httperrors.WriteValidationError(w, validationErr.Fields, h.log)
			return
		}
		h.log.Error("invoice generation failed",
			"correlation_id", correlationID,
			"error", err,
		)
		h.writeGenerationFailure(w)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(result.XML)); err != nil {
		h.log.Error("failed to write XML response", "correlation_id", correlationID, "error", err)
	}
}

// GenerateCSR handles POST /api/zatca/generate-csr.
func (h *Handler) GenerateCSR(w http.ResponseWriter, r *http.Request) {
	correlationID := ctxutil.GetCorrelationID(r.Context())

	var reqBody appcert.CSRRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Invalid request body", []string{err.Error()}, h.log)
		return
	}

	result, err := h.certificates.GenerateCSR(reqBody)
	if err != nil {
		var validationErr *appcert.ValidationError
		if errors.As(err, &validationErr) {
			httperrors.WriteValidationError(w, validationErr.Fields, h.log)
			return
		}
		h.log.Error("CSR generation failed",
			"correlation_id", correlationID,
			"error", err,
		)
		httperrors.WriteError(w, http.StatusInternalServerError, "Failed to generate CSR", nil, h.log)
		return
	}

	h.writeJSON(w, http.StatusOK, result, correlationID)
}

// SignInvoice handles POST /api/zatca/sign-invoice. The document comes
// back unchanged; see Service.SignInvoice.
func (h *Handler) SignInvoice(w http.ResponseWriter, r *http.Request) {
	correlationID := ctxutil.GetCorrelationID(r.Context())

	var reqBody XMLRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Invalid request body", []string{err.Error()}, h.log)
		return
	}

	signed, err := h.invoices.SignInvoice(r.Context(), reqBody.XML)
	if err != nil {
		var validationErr *appinvoice.ValidationError
		if errors.As(err, &validationErr) {
			httperrors.WriteValidationError(w, validationErr.Fields, h.log)
			return
		}
		httperrors.WriteError(w, http.StatusInternalServerError, "Failed to sign invoice", nil, h.log)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(signed)); err != nil {
		h.log.Error("failed to write XML response", "correlation_id", correlationID, "error", err)
	}
}

// ReportInvoice handles POST /api/zatca/report-invoice. The authority's
// JSON response is returned verbatim; its failures surface as 502 with
// the raw response body.
func (h *Handler) ReportInvoice(w http.ResponseWriter, r *http.Request) {
	correlationID := ctxutil.GetCorrelationID(r.Context())

	var reqBody XMLRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Invalid request body", []string{err.Error()}, h.log)
		return
	}

	response, err := h.invoices.ReportInvoice(r.Context(), reqBody.XML)
	if err != nil {
		var validationErr *appinvoice.ValidationError
		if errors.As(err, &validationErr) {
			httperrors.WriteValidationError(w, validationErr.Fields, h.log)
			return
		}

		if errors.Is(err, appinvoice.ErrReportingUnavailable) {
			httperrors.WriteError(w, http.StatusServiceUnavailable, "ZATCA reporting is not configured", nil, h.log)
			return
		}

		var authErr *zatcaclient.AuthError
		if errors.As(err, &authErr) {
			h.log.Error("authority authentication failed",
				"correlation_id", correlationID,
				"status", authErr.StatusCode,
				"body", authErr.Body,
			)
			httperrors.WriteError(w, http.StatusBadGateway, "ZATCA authentication failed", []string{authErr.Body}, h.log)
			return
		}

		var submissionErr *zatcaclient.SubmissionError
		if errors.As(err, &submissionErr) {
			h.log.Error("invoice submission rejected",
				"correlation_id", correlationID,
				"status", submissionErr.StatusCode,
				"body", submissionErr.Body,
			)
			httperrors.WriteError(w, http.StatusBadGateway, "ZATCA reporting failed", []string{submissionErr.Body}, h.log)
			return
		}

		h.log.Error("invoice submission failed",
			"correlation_id", correlationID,
			"error", err,
		)
		httperrors.WriteError(w, http.StatusBadGateway, "ZATCA reporting failed", []string{err.Error()}, h.log)
		return
	}

	h.writeJSON(w, http.StatusOK, response, correlationID)
}

// writeGenerationFailure preserves the legacy generation error contract.
func (h *Handler) writeGenerationFailure(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": "Failed to generate XML."}); err != nil {
		h.log.Error("failed to encode error response", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any, correlationID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", "correlation_id", correlationID, "error", err)
	}
}
