package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// jpkEntry is one ledger row in the regulatory submission schema.
type jpkEntry struct {
	XMLName      xml.Name `xml:"KPiRWiersz"`
	Seq          int      `xml:"K_1"`
	EventDate    string   `xml:"K_2"`
	DocumentRef  string   `xml:"K_3"`
	Contractor   string   `xml:"K_4"`
	TaxID        string   `xml:"K_5,omitempty"`
	Address      string   `xml:"K_6,omitempty"`
	Description  string   `xml:"K_7"`
	SaleIncome   string   `xml:"K_8"`
	OtherIncome  string   `xml:"K_9"`
	IncomeTotal  string   `xml:"K_10"`
	Goods        string   `xml:"K_11"`
	SideCosts    string   `xml:"K_12"`
	Wages        string   `xml:"K_13"`
	OtherExpense string   `xml:"K_14"`
	ExpenseTotal string   `xml:"K_15"`
	Deferred     string   `xml:"K_16"`
	RnDRelief    string   `xml:"K_17"`
	Notes        string   `xml:"K_18,omitempty"`
}

// jpkControl carries the batch control totals the receiving system uses to
// verify the submission was not truncated.
type jpkControl struct {
	XMLName      xml.Name `xml:"KPiRCtrl"`
	RowCount     int      `xml:"LiczbaWierszy"`
	IncomeTotal  string   `xml:"SumaPrzychodow"`
	ExpenseTotal string   `xml:"SumaWydatkow"`
}

type jpkDocument struct {
	XMLName xml.Name   `xml:"JPK"`
	Entries []jpkEntry `xml:"KPiRWiersz"`
	Control jpkControl `xml:"KPiRCtrl"`
}

// jpkRenderer renders the regulatory XML submission. Amounts use dot
// decimals; the trailer holds row count and income/expense sums over the
// same rows, so the control totals can never drift from the entries.
type jpkRenderer struct{}

func newJPKRenderer() Renderer {
	return &jpkRenderer{}
}

func (j *jpkRenderer) ID() string        { return FormatJPK }
func (j *jpkRenderer) MediaType() string { return "application/xml" }

func (j *jpkRenderer) Filename(label string) string {
	return fmt.Sprintf("%s_%s.xml", FormatJPK, label)
}

func (j *jpkRenderer) Render(rows []Row) ([]byte, error) {
	doc := jpkDocument{Entries: make([]jpkEntry, 0, len(rows))}

	var incomeSum, expenseSum int64
	for _, row := range rows {
		doc.Entries = append(doc.Entries, jpkEntry{
			Seq:          row.Seq,
			EventDate:    row.EventDate.Format("2006-01-02"),
			DocumentRef:  row.DocumentRef,
			Contractor:   row.ContractorName,
			TaxID:        row.ContractorTaxID,
			Address:      row.ContractorAddress,
			Description:  row.Description,
			SaleIncome:   FormatCentsDot(row.SaleIncomeCents),
			OtherIncome:  FormatCentsDot(row.OtherIncomeCents),
			IncomeTotal:  FormatCentsDot(row.IncomeTotalCents),
			Goods:        FormatCentsDot(row.GoodsCents),
			SideCosts:    FormatCentsDot(row.SideCostsCents),
			Wages:        FormatCentsDot(row.WagesCents),
			OtherExpense: FormatCentsDot(row.OtherExpenseCents),
			ExpenseTotal: FormatCentsDot(row.ExpenseTotalCents),
			Deferred:     FormatCentsDot(row.DeferredCents),
			RnDRelief:    FormatCentsDot(row.RnDReliefCents),
			Notes:        row.Notes,
		})
		incomeSum += row.IncomeTotalCents
		expenseSum += row.ExpenseTotalCents
	}

	doc.Control = jpkControl{
		RowCount:     len(rows),
		IncomeTotal:  FormatCentsDot(incomeSum),
		ExpenseTotal: FormatCentsDot(expenseSum),
	}

	return marshalXMLDocument(doc)
}

// ledgerXMLRow is the generic markup rendition of a ledger row, one element
// per column in canonical order.
type ledgerXMLRow struct {
	XMLName           xml.Name `xml:"Row"`
	Seq               int      `xml:"Seq"`
	EventDate         string   `xml:"EventDate"`
	DocumentRef       string   `xml:"DocumentRef"`
	AltDocNo          string   `xml:"AltDocNo,omitempty"`
	ContractorTaxID   string   `xml:"ContractorTaxID,omitempty"`
	ContractorName    string   `xml:"ContractorName,omitempty"`
	ContractorAddress string   `xml:"ContractorAddress,omitempty"`
	Description       string   `xml:"Description"`
	SaleIncome        string   `xml:"SaleIncome"`
	OtherIncome       string   `xml:"OtherIncome"`
	IncomeTotal       string   `xml:"IncomeTotal"`
	Goods             string   `xml:"Goods"`
	SideCosts         string   `xml:"SideCosts"`
	Wages             string   `xml:"Wages"`
	OtherExpense      string   `xml:"OtherExpense"`
	ExpenseTotal      string   `xml:"ExpenseTotal"`
	Deferred          string   `xml:"Deferred"`
	RnDRelief         string   `xml:"RnDRelief"`
	Notes             string   `xml:"Notes,omitempty"`
}

type ledgerXMLDocument struct {
	XMLName xml.Name       `xml:"Ledger"`
	Rows    []ledgerXMLRow `xml:"Row"`
}

type ledgerXMLRenderer struct{}

func newLedgerXMLRenderer() Renderer {
	return &ledgerXMLRenderer{}
}

func (l *ledgerXMLRenderer) ID() string        { return FormatLedgerXML }
func (l *ledgerXMLRenderer) MediaType() string { return "application/xml" }

func (l *ledgerXMLRenderer) Filename(label string) string {
	return fmt.Sprintf("%s_%s.xml", FormatLedgerXML, label)
}

func (l *ledgerXMLRenderer) Render(rows []Row) ([]byte, error) {
	doc := ledgerXMLDocument{Rows: make([]ledgerXMLRow, 0, len(rows))}
	for _, row := range rows {
		doc.Rows = append(doc.Rows, ledgerXMLRow{
			Seq:               row.Seq,
			EventDate:         row.EventDate.Format("2006-01-02"),
			DocumentRef:       row.DocumentRef,
			AltDocNo:          row.AltDocNo,
			ContractorTaxID:   row.ContractorTaxID,
			ContractorName:    row.ContractorName,
			ContractorAddress: row.ContractorAddress,
			Description:       row.Description,
			SaleIncome:        FormatCentsDot(row.SaleIncomeCents),
			OtherIncome:       FormatCentsDot(row.OtherIncomeCents),
			IncomeTotal:       FormatCentsDot(row.IncomeTotalCents),
			Goods:             FormatCentsDot(row.GoodsCents),
			SideCosts:         FormatCentsDot(row.SideCostsCents),
			Wages:             FormatCentsDot(row.WagesCents),
			OtherExpense:      FormatCentsDot(row.OtherExpenseCents),
			ExpenseTotal:      FormatCentsDot(row.ExpenseTotalCents),
			Deferred:          FormatCentsDot(row.DeferredCents),
			RnDRelief:         FormatCentsDot(row.RnDReliefCents),
			Notes:             row.Notes,
		})
	}
	return marshalXMLDocument(doc)
}

func marshalXMLDocument(doc interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
