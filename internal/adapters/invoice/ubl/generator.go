// Package ubl serializes canonical invoices into ZATCA UBL 2.1 XML.
// Element ordering and namespaces follow the ZATCA e-invoicing XML
// implementation standard and must not be reordered.
package ubl

import (
	"encoding/xml"
	"fmt"
	"log/slog"

	"tabadul/ms_zatca_gateway/internal/core/invoice"
)

const (
	nsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
)

// amount is a UBL monetary amount with its currencyID attribute.
type amount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

type quantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type typeCode struct {
	Value string `xml:",chardata"`
	Name  string `xml:"name,attr"`
}

type schemedID struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr"`
}

type taxScheme struct {
	ID string `xml:"cbc:ID"`
}

type partyTaxScheme struct {
	CompanyID string    `xml:"cbc:CompanyID"`
	TaxScheme taxScheme `xml:"cac:TaxScheme"`
}

type country struct {
	IdentificationCode string `xml:"cbc:IdentificationCode"`
}

type postalAddress struct {
	StreetName     string  `xml:"cbc:StreetName"`
	BuildingNumber string  `xml:"cbc:BuildingNumber"`
	CityName       string  `xml:"cbc:CityName"`
	PostalZone     string  `xml:"cbc:PostalZone"`
	Country        country `xml:"cac:Country"`
}

type partyIdentification struct {
	ID schemedID `xml:"cbc:ID"`
}

type partyLegalEntity struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
}

type party struct {
	PartyIdentification partyIdentification `xml:"cac:PartyIdentification"`
	PostalAddress       postalAddress       `xml:"cac:PostalAddress"`
	PartyTaxScheme      partyTaxScheme      `xml:"cac:PartyTaxScheme"`
	PartyLegalEntity    partyLegalEntity    `xml:"cac:PartyLegalEntity"`
}

type accountingParty struct {
	Party party `xml:"cac:Party"`
}

type additionalDocumentReference struct {
	ID   string `xml:"cbc:ID"`
	UUID string `xml:"cbc:UUID,omitempty"`
}

type taxCategory struct {
	Percent   string    `xml:"cbc:Percent"`
	TaxScheme taxScheme `xml:"cac:TaxScheme"`
}

type taxSubtotal struct {
	TaxableAmount amount      `xml:"cbc:TaxableAmount"`
	TaxAmount     amount      `xml:"cbc:TaxAmount"`
	TaxCategory   taxCategory `xml:"cac:TaxCategory"`
}

type taxTotal struct {
	TaxAmount   amount       `xml:"cbc:TaxAmount"`
	TaxSubtotal *taxSubtotal `xml:"cac:TaxSubtotal,omitempty"`
}

type legalMonetaryTotal struct {
	LineExtensionAmount  amount `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount   amount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount   amount `xml:"cbc:TaxInclusiveAmount"`
	AllowanceTotalAmount amount `xml:"cbc:AllowanceTotalAmount"`
	PrepaidAmount        amount `xml:"cbc:PrepaidAmount"`
	PayableAmount        amount `xml:"cbc:PayableAmount"`
}

type classifiedTaxCategory struct {
	Percent   string    `xml:"cbc:Percent"`
	TaxScheme taxScheme `xml:"cac:TaxScheme"`
}

type item struct {
	Name                  string                `xml:"cbc:Name"`
	ClassifiedTaxCategory classifiedTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type price struct {
	PriceAmount amount `xml:"cbc:PriceAmount"`
}

type invoiceLine struct {
	ID                  string   `xml:"cbc:ID"`
	InvoicedQuantity    quantity `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount amount   `xml:"cbc:LineExtensionAmount"`
	TaxTotal            taxTotal `xml:"cac:TaxTotal"`
	Item                item     `xml:"cac:Item"`
	Price               price    `xml:"cac:Price"`
}

// ublInvoice is the UBL 2.1 invoice document root.
type ublInvoice struct {
	XMLName      xml.Name `xml:"Invoice"`
	Xmlns        string   `xml:"xmlns,attr"`
	XmlnsCAC     string   `xml:"xmlns:cac,attr"`
	XmlnsCBC     string   `xml:"xmlns:cbc,attr"`
	ProfileID    string   `xml:"cbc:ProfileID"`
	ID           string   `xml:"cbc:ID"`
	IssueDate    string   `xml:"cbc:IssueDate"`
	IssueTime    string   `xml:"cbc:IssueTime"`
	TypeCode     typeCode `xml:"cbc:InvoiceTypeCode"`
	CurrencyCode string   `xml:"cbc:DocumentCurrencyCode"`
	TaxCurrency  string   `xml:"cbc:TaxCurrencyCode"`

	AdditionalDocumentReferences []additionalDocumentReference `xml:"cac:AdditionalDocumentReference"`
	AccountingSupplierParty      accountingParty               `xml:"cac:AccountingSupplierParty"`
	AccountingCustomerParty      accountingParty               `xml:"cac:AccountingCustomerParty"`
	TaxTotal                     taxTotal                      `xml:"cac:TaxTotal"`
	LegalMonetaryTotal           legalMonetaryTotal            `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines                 []invoiceLine                 `xml:"cac:InvoiceLine"`
}

// Generator implements invoice.Generator for the ZATCA UBL schema.
type Generator struct {
	log *slog.Logger
}

// NewGenerator creates a UBL invoice generator.
func NewGenerator(log *slog.Logger) *Generator {
	return &Generator{log: log}
}

// Generate serializes the canonical invoice to UBL XML. A failure
// yields no output at all; partial documents are never returned.
func (g *Generator) Generate(inv invoice.Invoice) (string, error) {
	doc := g.buildDocument(inv)

	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal invoice document: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("empty invoice document for %s", inv.Number)
	}

	return xmlHeader + string(out), nil
}

func (g *Generator) buildDocument(inv invoice.Invoice) ublInvoice {
	currency := inv.Currency

	doc := ublInvoice{
		Xmlns:        nsInvoice,
		XmlnsCAC:     nsCAC,
		XmlnsCBC:     nsCBC,
		ProfileID:    "reporting:1.0",
		ID:           inv.Number,
		IssueDate:    inv.IssueDate.Format("2006-01-02"),
		IssueTime:    inv.IssueTime.Format("15:04:05"),
		TypeCode:     mapInvoiceType(inv.Type),
		CurrencyCode: currency,
		TaxCurrency:  currency,

		AccountingSupplierParty: accountingParty{Party: mapParty(inv.Supplier)},
		AccountingCustomerParty: accountingParty{Party: mapParty(inv.Customer)},

		TaxTotal: taxTotal{
			TaxAmount: amount{Value: inv.Totals.TaxAmount.String(), CurrencyID: currency},
			TaxSubtotal: &taxSubtotal{
				TaxableAmount: amount{Value: inv.Totals.TaxableAmount.String(), CurrencyID: currency},
				TaxAmount:     amount{Value: inv.Totals.TaxAmount.String(), CurrencyID: currency},
				TaxCategory: taxCategory{
					Percent:   inv.TaxCategoryPercent.String(),
					TaxScheme: taxScheme{ID: inv.Supplier.TaxSchemeID},
				},
			},
		},

		LegalMonetaryTotal: legalMonetaryTotal{
			LineExtensionAmount:  amount{Value: inv.Totals.LineExtensionAmount.String(), CurrencyID: currency},
			TaxExclusiveAmount:   amount{Value: inv.Totals.TaxExclusiveAmount.String(), CurrencyID: currency},
			TaxInclusiveAmount:   amount{Value: inv.Totals.TaxInclusiveAmount.String(), CurrencyID: currency},
			AllowanceTotalAmount: amount{Value: inv.Totals.AllowanceTotal.String(), CurrencyID: currency},
			PrepaidAmount:        amount{Value: inv.Totals.PrepaidAmount.String(), CurrencyID: currency},
			PayableAmount:        amount{Value: inv.Totals.PayableAmount.String(), CurrencyID: currency},
		},
	}

	for _, ref := range inv.References {
		doc.AdditionalDocumentReferences = append(doc.AdditionalDocumentReferences, additionalDocumentReference{
			ID:   ref.ID,
			UUID: ref.UUID,
		})
	}

	for _, line := range inv.Lines {
		doc.InvoiceLines = append(doc.InvoiceLines, invoiceLine{
			ID:                  fmt.Sprintf("%d", line.Position),
			InvoicedQuantity:    quantity{Value: line.Quantity.String(), UnitCode: "PCE"},
			LineExtensionAmount: amount{Value: line.Total.String(), CurrencyID: currency},
			TaxTotal: taxTotal{
				TaxAmount: amount{Value: line.TaxAmount.String(), CurrencyID: currency},
			},
			Item: item{
				Name: line.Description,
				ClassifiedTaxCategory: classifiedTaxCategory{
					Percent:   line.VATRate.String(),
					TaxScheme: taxScheme{ID: invoice.TaxSchemeVAT},
				},
			},
			Price: price{
				PriceAmount: amount{Value: line.UnitPrice.String(), CurrencyID: currency},
			},
		})
	}

	return doc
}

func mapParty(p invoice.Party) party {
	return party{
		PartyIdentification: partyIdentification{
			ID: schemedID{Value: p.IdentificationNumber, SchemeID: p.IdentificationScheme},
		},
		PostalAddress: postalAddress{
			StreetName:     p.Address.StreetName,
			BuildingNumber: p.Address.BuildingNumber,
			CityName:       p.Address.CityName,
			PostalZone:     p.Address.PostalZone,
			Country:        country{IdentificationCode: p.Address.CountryCode},
		},
		PartyTaxScheme: partyTaxScheme{
			CompanyID: p.IdentificationNumber,
			TaxScheme: taxScheme{ID: p.TaxSchemeID},
		},
		PartyLegalEntity: partyLegalEntity{RegistrationName: p.RegistrationName},
	}
}

// mapInvoiceType translates the free-text invoice type pair into the
// UBL InvoiceTypeCode value and its ZATCA subtype name attribute.
// Unknown values fall back to a standard tax invoice.
func mapInvoiceType(t invoice.Type) typeCode {
	code := "388"
	switch t.Code {
	case "credit":
		code = "381"
	case "debit":
		code = "383"
	}

	name := "0100000"
	if t.Name == "simplified" {
		name = "0200000"
	}

	return typeCode{Value: code, Name: name}
}
