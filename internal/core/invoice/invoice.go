package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tax scheme and party identification schemes mandated by ZATCA for
// Saudi VAT invoices.
const (
	TaxSchemeVAT              = "VAT"
	PartyIdentificationScheme = "CRN"
)

// Document reference identifiers required on every invoice.
const (
	ReferenceICV = "ICV"
	ReferenceQR  = "QR"
)

// Party identifies one side of the invoice (supplier or customer).
// Immutable once assembled for a given invoice.
type Party struct {
	IdentificationNumber string // VAT registration or CRN number
	IdentificationScheme string // always "CRN" for this gateway
	RegistrationName     string
	Address              Address
	TaxSchemeID          string // always "VAT" for this gateway
}

// Address is the postal address of a party.
type Address struct {
	StreetName     string
	BuildingNumber string
	CityName       string
	PostalZone     string
	CountryCode    string
}

// Line is a single invoice line. Amounts are caller-supplied and only
// type-checked; this layer never verifies quantity*unit_price==total.
type Line struct {
	Position    int // 1-based sequence position
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal // percent
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal // line extension amount
}

// Totals carries the invoice monetary totals, copied verbatim from the
// request without cross-field arithmetic checks.
type Totals struct {
	TaxableAmount       decimal.Decimal
	TaxAmount           decimal.Decimal
	LineExtensionAmount decimal.Decimal
	TaxExclusiveAmount  decimal.Decimal
	TaxInclusiveAmount  decimal.Decimal
	PrepaidAmount       decimal.Decimal
	PayableAmount       decimal.Decimal
	AllowanceTotal      decimal.Decimal
}

// Type is the invoice type pair: a free-text name ("standard",
// "simplified") and a type code ("invoice", "credit", "debit").
type Type struct {
	Name string
	Code string
}

// DocumentReference is an additional document reference attached to the
// invoice, such as the ICV counter or the QR placeholder.
type DocumentReference struct {
	ID   string
	UUID string // empty for the QR placeholder
}

// Invoice is the canonical in-memory invoice handed to the document
// generator. The invoice-level TaxCategoryPercent is taken from the
// first line's VAT rate even when lines carry mixed rates; callers must
// ensure uniform rates or accept the approximation.
type Invoice struct {
	Number             string
	IssueDate          time.Time
	IssueTime          time.Time // stamped at assembly, not caller-supplied
	Currency           string
	Type               Type
	Supplier           Party
	Customer           Party
	Lines              []Line
	Totals             Totals
	TaxCategoryPercent decimal.Decimal
	References         []DocumentReference
}
