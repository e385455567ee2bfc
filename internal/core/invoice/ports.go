package invoice

import "context"

// Generator turns a canonical Invoice into a serialized XML document.
// The gateway treats the generator as a black box: the UBL schema rules
// (element ordering, namespaces, conformance) are owned by the
// implementation and must be preserved byte-for-byte when swapping it.
type Generator interface {
	// Generate returns the XML document for the invoice. A failure means
	// no usable output exists; partial output is never returned.
	Generate(inv Invoice) (string, error)
}

// Storage persists generated invoice XML keyed by invoice number.
// Writes are last-writer-wins; regeneration overwrites.
type Storage interface {
	Save(invoiceNumber, xml string) (path string, err error)
}

// Reporter submits a signed invoice XML to the tax authority and
// returns the authority's JSON response verbatim.
type Reporter interface {
	ReportInvoice(ctx context.Context, signedXML string) (map[string]any, error)
}
