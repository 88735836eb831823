package export

import (
	"fmt"
	"time"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
)

// Row is the shared 19-column ledger row every export format is derived
// from. Fields are positionally meaningful; renderers may reorder or
// subset columns but never re-derive amounts or placement.
type Row struct {
	Seq               int       // 1  sequence number within the batch
	EventDate         time.Time // 2  economic event date
	DocumentRef       string    // 3  exchange document reference or invoice number
	AltDocNo          string    // 4  alternate document number
	ContractorTaxID   string    // 5
	ContractorName    string    // 6
	ContractorAddress string    // 7
	Description       string    // 8  free-text description of the event
	SaleIncomeCents   int64     // 9
	OtherIncomeCents  int64     // 10
	IncomeTotalCents  int64     // 11 = 9 + 10
	GoodsCents        int64     // 12
	SideCostsCents    int64     // 13
	WagesCents        int64     // 14
	OtherExpenseCents int64     // 15
	ExpenseTotalCents int64     // 16 = 12 + 13 + 14 + 15
	DeferredCents     int64     // 17 outside the expense total
	RnDReliefCents    int64     // 18 outside the expense total
	Notes             string    // 19
}

// BuildRows maps approved invoices to ledger rows in input order. Any
// ineligible invoice fails the whole batch before a single byte is
// rendered; partial regulatory output is worse than none.
func BuildRows(invoices []*entity.Invoice) ([]Row, error) {
	rows := make([]Row, 0, len(invoices))
	for i, inv := range invoices {
		row, err := buildRow(inv, i+1)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildRow(inv *entity.Invoice, seq int) (Row, error) {
	if inv.Status != entity.StatusApproved && inv.Status != entity.StatusExported {
		return Row{}, fmt.Errorf("invoice %s in state %s: %w", inv.ID, inv.Status, ledger.ErrMissingDescription)
	}
	if !inv.Description.Complete() {
		return Row{}, fmt.Errorf("invoice %s: %w", inv.ID, ledger.ErrMissingDescription)
	}

	row := Row{
		Seq:       seq,
		EventDate: inv.CreatedAt,
		Notes:     inv.Description.Notes,
	}

	var gross, net int64
	if ex := inv.Extracted; ex != nil {
		if ex.IssueDate != nil {
			row.EventDate = *ex.IssueDate
		}
		row.ContractorTaxID = ex.SellerTaxID
		row.ContractorName = ex.SellerName
		row.AltDocNo = ex.InvoiceNumber
		gross, net = ex.GrossCents, ex.NetCents
	}

	// Exchange documents are referenced by the exchange-assigned id.
	if inv.Source == entity.SourceExchange {
		row.DocumentRef = inv.SourceKey
	} else {
		row.DocumentRef = row.AltDocNo
	}

	row.Description = describeRow(inv)

	// Expenses post the net amount, income posts gross; the other of the
	// two is the fallback when extraction missed one.
	column, err := PlacementFor(inv.Description.Category)
	if err != nil {
		return Row{}, err
	}
	var amount int64
	switch column {
	case ColumnSaleIncome, ColumnOtherIncome:
		amount = gross
		if amount == 0 {
			amount = net
		}
	default:
		amount = net
		if amount == 0 {
			amount = gross
		}
	}

	if err := Place(&row, inv.Description.Category, amount); err != nil {
		return Row{}, err
	}

	row.IncomeTotalCents = row.SaleIncomeCents + row.OtherIncomeCents
	row.ExpenseTotalCents = row.GoodsCents + row.SideCostsCents + row.WagesCents + row.OtherExpenseCents

	return row, nil
}

func describeRow(inv *entity.Invoice) string {
	if inv.Description.Notes != "" {
		return inv.Description.Notes
	}
	if inv.Extracted != nil && inv.Extracted.SellerName != "" {
		return fmt.Sprintf("%s - %s", inv.Description.Category, inv.Extracted.SellerName)
	}
	return inv.Description.Category.String()
}

// FormatCentsComma renders cents as a comma-decimal two-fraction-digit
// string: 123456 -> "1234,56". Used by the canonical ledger-row format.
func FormatCentsComma(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d", sign, cents/100, cents%100)
}

// FormatCentsDot renders cents as a dot-decimal two-fraction-digit string:
// 123456 -> "1234.56". Used by the regulatory-submission format.
func FormatCentsDot(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
