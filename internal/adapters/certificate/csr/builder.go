// Package csr builds ZATCA device certificate signing requests.
//
// The subject and extension layout follows the ZATCA CSR profile: the
// organization fields live in the subject, while the device serial,
// organization identifier, invoice-type flags, address and business
// category are carried in a directoryName subject alternative name.
package csr

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"strconv"

	"tabadul/ms_zatca_gateway/internal/core/certificate"
)

// Certificate template names distinguishing sandbox from production
// requests, carried in the Microsoft certificate-template extension as
// ZATCA requires.
const (
	templateProduction = "ZATCA-Code-Signing"
	templateTest       = "PREZATCA-Code-Signing"
)

var (
	oidCertificateTemplate = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 20, 2}
	oidSubjectAltName      = asn1.ObjectIdentifier{2, 5, 29, 17}

	oidSerialNumber      = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidUID               = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	oidTitle             = asn1.ObjectIdentifier{2, 5, 4, 12}
	oidRegisteredAddress = asn1.ObjectIdentifier{2, 5, 4, 26}
	oidBusinessCategory  = asn1.ObjectIdentifier{2, 5, 4, 15}
)

// Builder implements certificate.Builder using an ECDSA P-256 key pair
// generated per request.
type Builder struct{}

// NewBuilder creates a CSR builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build generates a private key and CSR for the spec and returns both
// as PEM text. The private key is never logged or persisted by this
// layer; it goes straight back to the caller.
func (b *Builder) Build(spec certificate.RequestSpec) (certificate.Result, error) {
	if err := spec.Validate(); err != nil {
		return certificate.Result{}, fmt.Errorf("invalid certificate request: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return certificate.Result{}, fmt.Errorf("generate private key: %w", err)
	}

	sanExt, err := buildSubjectAltName(spec)
	if err != nil {
		return certificate.Result{}, fmt.Errorf("build subject alternative name: %w", err)
	}

	templateExt, err := buildTemplateExtension(spec.Production)
	if err != nil {
		return certificate.Result{}, fmt.Errorf("build template extension: %w", err)
	}

	template := x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName:         spec.CommonName,
			Country:            []string{spec.CountryCode},
			Organization:       []string{spec.OrganizationName},
			OrganizationalUnit: []string{spec.OrganizationalUnit},
		},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
		ExtraExtensions:    []pkix.Extension{templateExt, sanExt},
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, &template, key)
	if err != nil {
		return certificate.Result{}, fmt.Errorf("create certificate request: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return certificate.Result{}, fmt.Errorf("marshal private key: %w", err)
	}

	return certificate.Result{
		CSR:        string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})),
	}, nil
}

// buildTemplateExtension encodes the certificate template name that
// tells ZATCA whether this is a production or compliance request.
func buildTemplateExtension(production bool) (pkix.Extension, error) {
	name := templateTest
	if production {
		name = templateProduction
	}

	value, err := asn1.MarshalWithParams(name, "printable")
	if err != nil {
		return pkix.Extension{}, err
	}

	return pkix.Extension{Id: oidCertificateTemplate, Value: value}, nil
}

// buildSubjectAltName encodes the ZATCA device attributes as a
// directoryName general name.
func buildSubjectAltName(spec certificate.RequestSpec) (pkix.Extension, error) {
	rdns := pkix.RDNSequence{
		rdn(oidSerialNumber, spec.DeviceSerialNumber()),
		rdn(oidUID, spec.OrganizationIdentifier),
		rdn(oidTitle, strconv.Itoa(spec.InvoiceType)),
		rdn(oidRegisteredAddress, spec.Address),
		rdn(oidBusinessCategory, spec.BusinessCategory),
	}

	dirName, err := asn1.Marshal(rdns)
	if err != nil {
		return pkix.Extension{}, err
	}

	// GeneralName CHOICE tag 4: directoryName, explicit per RFC 5280.
	value, err := asn1.Marshal([]asn1.RawValue{{
		Class:      asn1.ClassContextSpecific,
		Tag:        4,
		IsCompound: true,
		Bytes:      dirName,
	}})
	if err != nil {
		return pkix.Extension{}, err
	}

	return pkix.Extension{Id: oidSubjectAltName, Value: value}, nil
}

func rdn(oid asn1.ObjectIdentifier, value string) pkix.RelativeDistinguishedNameSET {
	return pkix.RelativeDistinguishedNameSET{{Type: oid, Value: value}}
}
