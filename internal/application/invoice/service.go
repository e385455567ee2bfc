package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tabadul/ms_zatca_gateway/internal/core/invoice"
)

// ErrReportingUnavailable is returned when no submission client is
// configured.
var ErrReportingUnavailable = errors.New("invoice reporting is not configured")

// ValidationError carries the per-field failures of a rejected request.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "The given data was invalid."
}

// GenerateResult is the outcome of a successful invoice generation.
type GenerateResult struct {
	XML  string
	Path string
}

// Service orchestrates invoice use cases: assembly, XML generation,
// local persistence and submission to the tax authority.
type Service struct {
	generator invoice.Generator
	storage   invoice.Storage // Optional: nil disables local persistence
	reporter  invoice.Reporter
	log       *slog.Logger
	now       func() time.Time
}

// NewService creates an invoice service.
// storage is optional - if nil, generated XML is not written to disk.
func NewService(generator invoice.Generator, storage invoice.Storage, reporter invoice.Reporter, log *slog.Logger) *Service {
	return &Service{
		generator: generator,
		storage:   storage,
		reporter:  reporter,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the assembly clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GenerateInvoice validates the request, assembles the canonical
// invoice, renders it to XML and persists the document. Validation
// failures are returned as *ValidationError before any generation work
// happens.
func (s *Service) GenerateInvoice(ctx context.Context, req GenerateInvoiceRequest) (GenerateResult, error) {
	if fields := req.Validate(); fields != nil {
		return GenerateResult{}, &ValidationError{Fields: fields}
	}

	inv := req.assemble(s.now())

	xml, err := s.generator.Generate(inv)
	if err != nil {
		s.log.Error("invoice XML generation failed",
			"invoice_number", inv.Number,
			"error", err,
		)
		return GenerateResult{}, fmt.Errorf("generate invoice XML: %w", err)
	}

	result := GenerateResult{XML: xml}
	if s.storage != nil {
		path, err := s.storage.Save(inv.Number, xml)
		if err != nil {
			s.log.Error("invoice XML persistence failed",
				"invoice_number", inv.Number,
				"error", err,
			)
			return GenerateResult{}, fmt.Errorf("persist invoice XML: %w", err)
		}
		result.Path = path
	}

	s.log.Info("invoice XML generated",
		"invoice_number", inv.Number,
		"path", result.Path,
	)
	return result, nil
}

// SignInvoice returns the document unchanged. Signing is delegated to
// an external device in the current deployment and this endpoint only
// preserves the API contract.
func (s *Service) SignInvoice(ctx context.Context, xml string) (string, error) {
	if xml == "" {
		return "", &ValidationError{Fields: map[string][]string{
			"xml": {"The xml field is required."},
		}}
	}
	return xml, nil
}

// ReportInvoice submits a signed XML document to the authority and
// returns its JSON response verbatim.
func (s *Service) ReportInvoice(ctx context.Context, xml string) (map[string]any, error) {
	if xml == "" {
		return nil, &ValidationError{Fields: map[string][]string{
			"xml": {"The xml field is required."},
		}}
	}
	if s.reporter == nil {
		return nil, ErrReportingUnavailable
	}
	return s.reporter.ReportInvoice(ctx, xml)
}
