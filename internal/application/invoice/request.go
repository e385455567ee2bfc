package invoice

import (
	"strconv"
	"time"

	"tabadul/ms_zatca_gateway/internal/core/invoice"

	"github.com/shopspring/decimal"
)

const issueDateLayout = "2006-01-02"

// PartyRequest is one side of the invoice as submitted by the caller.
// Pointers distinguish missing fields from empty ones.
type PartyRequest struct {
	Name        *string `json:"name"`
	VATNumber   *string `json:"vat_number"`
	Address     *string `json:"address"`
	BuildingNo  *string `json:"building_no"`
	PostalCode  *string `json:"postal_code"`
	City        *string `json:"city"`
	CountryCode *string `json:"country_code"`
}

// InvoiceRequest carries the invoice header and totals as submitted.
type InvoiceRequest struct {
	InvoiceNumber        *string          `json:"invoice_number"`
	IssueDate            *string          `json:"issue_date"`
	Type                 *string          `json:"type"`
	TypeCode             *string          `json:"type_code"`
	Currency             *string          `json:"currency"`
	TaxableAmount        *decimal.Decimal `json:"taxable_amount"`
	TaxAmount            *decimal.Decimal `json:"tax_amount"`
	LineExtensionAmount  *decimal.Decimal `json:"line_extension_amount"`
	TaxExclusiveAmount   *decimal.Decimal `json:"tax_exclusive_amount"`
	TaxInclusiveAmount   *decimal.Decimal `json:"tax_inclusive_amount"`
	PrepaidAmount        *decimal.Decimal `json:"prepaid_amount"`
	PayableAmount        *decimal.Decimal `json:"payable_amount"`
	AllowanceTotalAmount *decimal.Decimal `json:"allowance_total_amount"`
}

// LineRequest is one invoice line as submitted.
type LineRequest struct {
	Description *string          `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
	TaxAmount   *decimal.Decimal `json:"tax_amount"`
	Total       *decimal.Decimal `json:"total"`
}

// GenerateInvoiceRequest is the full payload accepted by the
// generate-invoice endpoint.
type GenerateInvoiceRequest struct {
	Supplier PartyRequest   `json:"supplier"`
	Customer PartyRequest   `json:"customer"`
	Invoice  InvoiceRequest `json:"invoice"`
	Lines    []LineRequest  `json:"lines"`
}

// fieldErrors accumulates validation failures keyed by dotted field path.
type fieldErrors map[string][]string

func (fe fieldErrors) requireString(field string, value *string) {
	if value == nil || *value == "" {
		fe[field] = append(fe[field], "The "+field+" field is required.")
	}
}

func (fe fieldErrors) requireNumeric(field string, value *decimal.Decimal) {
	if value == nil {
		fe[field] = append(fe[field], "The "+field+" field is required.")
	}
}

// Validate checks every field independently and returns the full set of
// failures, never stopping at the first one. A nil map means the request
// is valid.
func (r *GenerateInvoiceRequest) Validate() map[string][]string {
	fe := fieldErrors{}

	validateParty := func(prefix string, p PartyRequest) {
		fe.requireString(prefix+".name", p.Name)
		fe.requireString(prefix+".vat_number", p.VATNumber)
		fe.requireString(prefix+".address", p.Address)
		fe.requireString(prefix+".building_no", p.BuildingNo)
		fe.requireString(prefix+".postal_code", p.PostalCode)
		fe.requireString(prefix+".city", p.City)
		fe.requireString(prefix+".country_code", p.CountryCode)
	}

	validateParty("supplier", r.Supplier)
	validateParty("customer", r.Customer)

	fe.requireString("invoice.invoice_number", r.Invoice.InvoiceNumber)
	fe.requireString("invoice.issue_date", r.Invoice.IssueDate)
	if r.Invoice.IssueDate != nil && *r.Invoice.IssueDate != "" {
		if _, err := time.Parse(issueDateLayout, *r.Invoice.IssueDate); err != nil {
			fe["invoice.issue_date"] = append(fe["invoice.issue_date"],
				"The invoice.issue_date is not a valid date.")
		}
	}
	fe.requireString("invoice.type", r.Invoice.Type)
	fe.requireString("invoice.type_code", r.Invoice.TypeCode)
	fe.requireString("invoice.currency", r.Invoice.Currency)
	fe.requireNumeric("invoice.taxable_amount", r.Invoice.TaxableAmount)
	fe.requireNumeric("invoice.tax_amount", r.Invoice.TaxAmount)
	fe.requireNumeric("invoice.line_extension_amount", r.Invoice.LineExtensionAmount)
	fe.requireNumeric("invoice.tax_exclusive_amount", r.Invoice.TaxExclusiveAmount)
	fe.requireNumeric("invoice.tax_inclusive_amount", r.Invoice.TaxInclusiveAmount)
	fe.requireNumeric("invoice.prepaid_amount", r.Invoice.PrepaidAmount)
	fe.requireNumeric("invoice.payable_amount", r.Invoice.PayableAmount)
	fe.requireNumeric("invoice.allowance_total_amount", r.Invoice.AllowanceTotalAmount)

	if len(r.Lines) == 0 {
		fe["lines"] = append(fe["lines"], "The lines field is required.")
	}
	for i, line := range r.Lines {
		prefix := "lines." + strconv.Itoa(i)
		fe.requireString(prefix+".description", line.Description)
		fe.requireNumeric(prefix+".quantity", line.Quantity)
		fe.requireNumeric(prefix+".unit_price", line.UnitPrice)
		fe.requireNumeric(prefix+".vat_rate", line.VATRate)
		fe.requireNumeric(prefix+".tax_amount", line.TaxAmount)
		fe.requireNumeric(prefix+".total", line.Total)
	}

	if len(fe) == 0 {
		return nil
	}
	return fe
}

// toParty maps a validated party request onto the canonical model.
func toParty(p PartyRequest) invoice.Party {
	return invoice.Party{
		IdentificationNumber: *p.VATNumber,
		IdentificationScheme: invoice.PartyIdentificationScheme,
		RegistrationName:     *p.Name,
		Address: invoice.Address{
			StreetName:     *p.Address,
			BuildingNumber: *p.BuildingNo,
			CityName:       *p.City,
			PostalZone:     *p.PostalCode,
			CountryCode:    *p.CountryCode,
		},
		TaxSchemeID: invoice.TaxSchemeVAT,
	}
}

// assemble builds the canonical invoice from a validated request. The
// issue time is stamped with the supplied clock, so identical requests
// assembled at different instants produce different documents.
func (r *GenerateInvoiceRequest) assemble(now time.Time) invoice.Invoice {
	issueDate, _ := time.Parse(issueDateLayout, *r.Invoice.IssueDate)

	lines := make([]invoice.Line, len(r.Lines))
	for i, line := range r.Lines {
		lines[i] = invoice.Line{
			Position:    i + 1,
			Description: *line.Description,
			Quantity:    *line.Quantity,
			UnitPrice:   *line.UnitPrice,
			VATRate:     *line.VATRate,
			TaxAmount:   *line.TaxAmount,
			Total:       *line.Total,
		}
	}

	return invoice.Invoice{
		Number:    *r.Invoice.InvoiceNumber,
		IssueDate: issueDate,
		IssueTime: now,
		Currency:  *r.Invoice.Currency,
		Type: invoice.Type{
			Name: *r.Invoice.Type,
			Code: *r.Invoice.TypeCode,
		},
		Supplier: toParty(r.Supplier),
		Customer: toParty(r.Customer),
		Lines:    lines,
		Totals: invoice.Totals{
			TaxableAmount:       *r.Invoice.TaxableAmount,
			TaxAmount:           *r.Invoice.TaxAmount,
			LineExtensionAmount: *r.Invoice.LineExtensionAmount,
			TaxExclusiveAmount:  *r.Invoice.TaxExclusiveAmount,
			TaxInclusiveAmount:  *r.Invoice.TaxInclusiveAmount,
			PrepaidAmount:       *r.Invoice.PrepaidAmount,
			PayableAmount:       *r.Invoice.PayableAmount,
			AllowanceTotal:      *r.Invoice.AllowanceTotalAmount,
		},
		// Only the first line's rate drives the invoice-level tax
		// category, even with mixed per-line rates.
		TaxCategoryPercent: *r.Lines[0].VATRate,
		References: []invoice.DocumentReference{
			{ID: invoice.ReferenceICV, UUID: *r.Invoice.InvoiceNumber},
			{ID: invoice.ReferenceQR},
		},
	}
}
