package extract

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

// structuredConfidence is assigned to documents delivered in the exchange
// service's native XML format; no heuristics run on them.
const structuredConfidence = 100

// leafTags are the schema tags carrying character data. Everything else is
// a container element.
var leafTags = map[string]bool{
	"P_1":             true,
	"P_2":             true,
	"P_2A":            true,
	"P_6":             true,
	"P_13_1":          true,
	"P_14_1":          true,
	"P_15":            true,
	"TerminPlatnosci": true,
	"KodWaluty":       true,
	"NIP":             true,
	"Nazwa":           true,
	"PelnaNazwa":      true,
	"NazwaHandlowa":   true,
}

// ParseStructured reads an exchange-native XML document tag by tag. Each
// field is independently optional: a missing tag never fails extraction of
// the others. Tag names follow the exchange schema (Podmiot1/Podmiot2 for
// seller/buyer, P_1 issue date, P_2 invoice number, P_13_1 net, P_14_1 vat,
// P_15 gross).
func ParseStructured(data []byte) (*entity.ExtractedFields, error) {
	fields := &entity.ExtractedFields{Confidence: structuredConfidence}

	decoder := xml.NewDecoder(bytes.NewReader(data))

	// Tracks which party block we are inside so NIP and Nazwa land on the
	// right side.
	var section string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break // io.EOF or malformed tail; keep what was parsed
		}

		if end, ok := tok.(xml.EndElement); ok {
			if end.Name.Local == section {
				section = ""
			}
			continue
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Podmiot1", "Podmiot2":
			section = start.Name.Local
			continue
		}

		// Only leaf tags are decoded; decoding a container would consume
		// its whole subtree. Unknown wrappers are descended into.
		if !leafTags[start.Name.Local] {
			continue
		}

		value, err := textOf(decoder, &start)
		if err != nil {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch start.Name.Local {
		case "P_1":
			if t, err := time.Parse("2006-01-02", value); err == nil {
				fields.IssueDate = &t
			}
		case "TerminPlatnosci", "P_6":
			if t, err := time.Parse("2006-01-02", value); err == nil {
				fields.DueDate = &t
			}
		case "P_2", "P_2A":
			fields.InvoiceNumber = value
		case "P_13_1":
			if cents, ok := ParseAmountCents(value); ok {
				fields.NetCents = cents
			}
		case "P_14_1":
			if cents, ok := ParseAmountCents(value); ok {
				fields.VATCents = cents
			}
		case "P_15":
			if cents, ok := ParseAmountCents(value); ok {
				fields.GrossCents = cents
			}
		case "KodWaluty":
			fields.Currency = value
		case "NIP":
			switch section {
			case "Podmiot2":
				fields.BuyerTaxID = value
			default:
				if fields.SellerTaxID == "" {
					fields.SellerTaxID = value
				}
			}
		case "Nazwa", "PelnaNazwa", "NazwaHandlowa":
			if section != "Podmiot2" && fields.SellerName == "" {
				fields.SellerName = value
			}
		}
	}

	// Gross can be reconstructed when the document carried net and vat only.
	if fields.GrossCents == 0 && fields.NetCents > 0 && fields.VATCents > 0 {
		fields.GrossCents = fields.NetCents + fields.VATCents
	}

	return fields, nil
}

// textOf consumes the element's character data up to its end tag.
func textOf(decoder *xml.Decoder, start *xml.StartElement) (string, error) {
	var value string
	if err := decoder.DecodeElement(&value, start); err != nil {
		return "", err
	}
	return value, nil
}
