package entity

// Source identifies where a document entered the pipeline.
type Source string

const (
	SourceScanner  Source = "scanner"
	SourceEmail    Source = "email"
	SourceStorage  Source = "storage"
	SourceExchange Source = "exchange"
)

var validSources = map[Source]bool{
	SourceScanner:  true,
	SourceEmail:    true,
	SourceStorage:  true,
	SourceExchange: true,
}

// IsValid returns true if the source is one of the known intake sources.
func (s Source) IsValid() bool {
	return validSources[s]
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// Media types accepted by the pipeline. Extraction dispatch keys off the
// declared type, never off content sniffing.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"

	// MediaTypeExchangeXML is the national e-invoicing exchange's native
	// structured format, parsed field-by-tag with confidence 100.
	MediaTypeExchangeXML = "application/vnd.ksef+xml"
)

// Category is the closed set of bookkeeping categories known to the
// categorization engine and the export placement table.
type Category string

const (
	CategoryFuel           Category = "fuel"
	CategoryHosting        Category = "hosting"
	CategoryOfficeSupplies Category = "office_supplies"
	CategorySoftware       Category = "software"
	CategoryMarketing      Category = "marketing"
	CategoryUtilities      Category = "utilities"
	CategoryServices       Category = "services"
	CategoryGoodsPurchase  Category = "goods_purchase"
	CategoryTransport      Category = "transport"
	CategoryWages          Category = "wages"
	CategoryPrepaid        Category = "prepaid"
	CategoryRnDServices    Category = "rnd_services"
	CategorySale           Category = "sale"
	CategoryOtherIncome    Category = "other_income"
)

// Categories lists every category in declaration order. Keyword-scoring
// tie-breaks depend on this order, so it must stay stable.
var Categories = []Category{
	CategoryFuel,
	CategoryHosting,
	CategoryOfficeSupplies,
	CategorySoftware,
	CategoryMarketing,
	CategoryUtilities,
	CategoryServices,
	CategoryGoodsPurchase,
	CategoryTransport,
	CategoryWages,
	CategoryPrepaid,
	CategoryRnDServices,
	CategorySale,
	CategoryOtherIncome,
}

// IsValid returns true if the category is a known built-in category.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}
