package entity

import "time"

// Status is the workflow status of an invoice in the ledger.
type Status string

const (
	StatusNew       Status = "new"
	StatusProcessed Status = "processed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusExported  Status = "exported"
)

// IsTerminal returns true if no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusExported
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Invoice is the central entity of the pipeline. It is created once at
// ingestion and advances through the workflow; the original bytes are
// immutable after creation.
type Invoice struct {
	ID        string `json:"id"`
	Source    Source `json:"source"`
	SourceKey string `json:"source_key"`

	OriginalFile OriginalFile `json:"original_file"`

	Status      Status           `json:"status"`
	Extracted   *ExtractedFields `json:"extracted,omitempty"`
	Suggestion  *Suggestion      `json:"suggestion,omitempty"`
	Description *Description     `json:"description,omitempty"`

	Project     string `json:"project,omitempty"`
	ExpenseType string `json:"expense_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OriginalFile holds the raw document payload as delivered by a source
// adapter. Exports reference it by invoice id, never by copy.
type OriginalFile struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Filename  string `json:"filename,omitempty"`
}

// ExtractedFields holds the structured fields produced by the extraction
// stage. Every field is optional; absence is not an error. Amounts are
// stored in cents (grosze) to avoid float accumulation.
type ExtractedFields struct {
	SellerName    string     `json:"seller_name,omitempty"`
	SellerTaxID   string     `json:"seller_tax_id,omitempty"`
	BuyerTaxID    string     `json:"buyer_tax_id,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	IssueDate     *time.Time `json:"issue_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	NetCents      int64      `json:"net_cents,omitempty"`
	VATCents      int64      `json:"vat_cents,omitempty"`
	GrossCents    int64      `json:"gross_cents,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	LineText      string     `json:"line_text,omitempty"`

	// Confidence is 0-100; 100 means a structured exchange document.
	Confidence int `json:"confidence"`
}

// Suggestion is the advisory output of the categorization engine. It never
// writes Description; only an operator (or an explicitly configured
// auto-approve policy outside the engine) does that.
type Suggestion struct {
	Category     Category      `json:"category"`
	CostCenter   string        `json:"cost_center,omitempty"`
	Confidence   int           `json:"confidence"`
	Strategy     string        `json:"strategy"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Alternative is a lower-ranked categorization candidate.
type Alternative struct {
	Category   Category `json:"category"`
	CostCenter string   `json:"cost_center,omitempty"`
	Confidence int      `json:"confidence"`
}

// Description is the operator-entered classification, set during approval
// and required before export.
type Description struct {
	Category   Category `json:"category"`
	CostCenter string   `json:"cost_center,omitempty"`
	Project    string   `json:"project,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Complete reports whether the description carries the fields required for
// approval and export.
func (d *Description) Complete() bool {
	return d != nil && d.Category.IsValid()
}
