package certificate

import (
	"errors"
	"fmt"
)

// RequestSpec describes a ZATCA device certificate signing request.
// The gateway only carries these fields to the builder; it never
// inspects the resulting cryptographic material beyond passing the PEM
// text through.
type RequestSpec struct {
	OrganizationIdentifier string // 15 digits, first and last digit must be 3
	SolutionName           string
	Model                  string
	SerialNumber           string
	CommonName             string
	CountryCode            string // ISO 3166-1 alpha-2
	OrganizationName       string
	OrganizationalUnit     string
	Address                string
	InvoiceType            int // 4-digit functionality flags, e.g. 1100
	Production             bool
	BusinessCategory       string
}

// DeviceSerialNumber combines solution name, model and serial into the
// ZATCA device serial format: 1-<solution>|2-<model>|3-<serial>.
func (s RequestSpec) DeviceSerialNumber() string {
	return fmt.Sprintf("1-%s|2-%s|3-%s", s.SolutionName, s.Model, s.SerialNumber)
}

// Validate enforces the structural rules ZATCA applies to the
// organization identifier before the builder is invoked.
func (s RequestSpec) Validate() error {
	if len(s.OrganizationIdentifier) != 15 {
		return errors.New("organization identifier must be exactly 15 digits")
	}
	for _, r := range s.OrganizationIdentifier {
		if r < '0' || r > '9' {
			return errors.New("organization identifier must contain only digits")
		}
	}
	if s.OrganizationIdentifier[0] != '3' || s.OrganizationIdentifier[14] != '3' {
		return errors.New("organization identifier must start and end with 3")
	}
	if len(s.CountryCode) != 2 {
		return errors.New("country code must be 2 characters")
	}
	return nil
}

// Result carries the generated CSR and its private key as PEM text.
type Result struct {
	CSR        string
	PrivateKey string
}

// Builder generates a CSR and private key for a request spec.
// Implementations own all cryptographic decisions.
type Builder interface {
	Build(spec RequestSpec) (Result, error)
}
