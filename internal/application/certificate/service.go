package certificate

import (
	"fmt"
	"log/slog"

	"tabadul/ms_zatca_gateway/internal/core/certificate"

	"github.com/shopspring/decimal"
)

// CSRRequest is the payload accepted by the generate-csr endpoint.
// Pointers distinguish missing fields from zero values.
type CSRRequest struct {
	OrganizationIdentifier *string          `json:"organization_identifier"`
	SolutionName           *string          `json:"solution_name"`
	Model                  *string          `json:"model"`
	SerialNumber           *string          `json:"serial_number"`
	CommonName             *string          `json:"common_name"`
	Country                *string          `json:"country"`
	OrganizationName       *string          `json:"organization_name"`
	OrganizationalUnitName *string          `json:"organizational_unit_name"`
	Address                *string          `json:"address"`
	InvoiceType            *decimal.Decimal `json:"invoice_type"`
	Production             *bool            `json:"production"`
	BusinessCategory       *string          `json:"business_category"`
}

// ValidationError carries the per-field failures of a rejected request.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "The given data was invalid."
}

// Result is the generated CSR and its private key, both PEM encoded.
type Result struct {
	CSR        string `json:"csr"`
	PrivateKey string `json:"private_key"`
}

// Service wraps the certificate builder behind request validation.
type Service struct {
	builder certificate.Builder
	log     *slog.Logger
}

func NewService(builder certificate.Builder, log *slog.Logger) *Service {
	return &Service{builder: builder, log: log}
}

func requireString(fe map[string][]string, field string, value *string) {
	if value == nil || *value == "" {
		fe[field] = append(fe[field], "The "+field+" field is required.")
	}
}

// Validate checks every field independently and returns the full set of
// failures. A nil map means the request is valid.
func (r *CSRRequest) Validate() map[string][]string {
	fe := map[string][]string{}

	requireString(fe, "organization_identifier", r.OrganizationIdentifier)
	if r.OrganizationIdentifier != nil && *r.OrganizationIdentifier != "" && len(*r.OrganizationIdentifier) != 15 {
		fe["organization_identifier"] = append(fe["organization_identifier"],
			"The organization_identifier must be 15 characters.")
	}
	requireString(fe, "solution_name", r.SolutionName)
	requireString(fe, "model", r.Model)
	requireString(fe, "serial_number", r.SerialNumber)
	requireString(fe, "common_name", r.CommonName)
	requireString(fe, "country", r.Country)
	requireString(fe, "organization_name", r.OrganizationName)
	requireString(fe, "organizational_unit_name", r.OrganizationalUnitName)
	requireString(fe, "address", r.Address)
	if r.InvoiceType == nil {
		fe["invoice_type"] = append(fe["invoice_type"], "The invoice_type field is required.")
	} else if !r.InvoiceType.Equal(r.InvoiceType.Truncate(0)) {
		fe["invoice_type"] = append(fe["invoice_type"], "The invoice_type must be an integer.")
	}
	if r.Production == nil {
		fe["production"] = append(fe["production"], "The production field is required.")
	}
	requireString(fe, "business_category", r.BusinessCategory)

	if len(fe) == 0 {
		return nil
	}
	return fe
}

// GenerateCSR validates the request and delegates to the builder.
func (s *Service) GenerateCSR(req CSRRequest) (Result, error) {
	if fields := req.Validate(); fields != nil {
		return Result{}, &ValidationError{Fields: fields}
	}

	spec := certificate.RequestSpec{
		OrganizationIdentifier: *req.OrganizationIdentifier,
		SolutionName:           *req.SolutionName,
		Model:                  *req.Model,
		SerialNumber:           *req.SerialNumber,
		CommonName:             *req.CommonName,
		CountryCode:            *req.Country,
		OrganizationName:       *req.OrganizationName,
		OrganizationalUnit:     *req.OrganizationalUnitName,
		Address:                *req.Address,
		InvoiceType:            int(req.InvoiceType.IntPart()),
		Production:             *req.Production,
		BusinessCategory:       *req.BusinessCategory,
	}

	result, err := s.builder.Build(spec)
	if err != nil {
		s.log.Error("CSR generation failed",
			"organization_identifier", spec.OrganizationIdentifier,
			"error", err,
		)
		return Result{}, fmt.Errorf("build CSR: %w", err)
	}

	s.log.Info("CSR generated",
		"organization_identifier", spec.OrganizationIdentifier,
		"common_name", spec.CommonName,
		"production", spec.Production,
	)
	return Result{CSR: result.CSR, PrivateKey: result.PrivateKey}, nil
}
