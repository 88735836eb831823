package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// moneyFormatter renders a cents amount in a format's numeric style.
type moneyFormatter func(int64) string

// column binds a header name to a cell extractor. Amount cells go through
// the renderer's money formatter so numeric style stays internally
// consistent per format.
type column struct {
	header string
	cell   func(Row, moneyFormatter) string
}

// The full 19-column layout in canonical order. Variant formats subset and
// reorder these; none re-derives amounts.
var canonicalColumns = []column{
	{"Lp", func(r Row, _ moneyFormatter) string { return strconv.Itoa(r.Seq) }},
	{"Data zdarzenia", func(r Row, _ moneyFormatter) string { return r.EventDate.Format("2006-01-02") }},
	{"Nr dowodu", func(r Row, _ moneyFormatter) string { return r.DocumentRef }},
	{"Nr dowodu alt.", func(r Row, _ moneyFormatter) string { return r.AltDocNo }},
	{"NIP kontrahenta", func(r Row, _ moneyFormatter) string { return r.ContractorTaxID }},
	{"Nazwa kontrahenta", func(r Row, _ moneyFormatter) string { return r.ContractorName }},
	{"Adres kontrahenta", func(r Row, _ moneyFormatter) string { return r.ContractorAddress }},
	{"Opis zdarzenia", func(r Row, _ moneyFormatter) string { return r.Description }},
	{"Przychod ze sprzedazy", func(r Row, m moneyFormatter) string { return m(r.SaleIncomeCents) }},
	{"Pozostale przychody", func(r Row, m moneyFormatter) string { return m(r.OtherIncomeCents) }},
	{"Razem przychod", func(r Row, m moneyFormatter) string { return m(r.IncomeTotalCents) }},
	{"Zakup towarow", func(r Row, m moneyFormatter) string { return m(r.GoodsCents) }},
	{"Koszty uboczne", func(r Row, m moneyFormatter) string { return m(r.SideCostsCents) }},
	{"Wynagrodzenia", func(r Row, m moneyFormatter) string { return m(r.WagesCents) }},
	{"Pozostale wydatki", func(r Row, m moneyFormatter) string { return m(r.OtherExpenseCents) }},
	{"Razem wydatki", func(r Row, m moneyFormatter) string { return m(r.ExpenseTotalCents) }},
	{"Koszty rozliczane w czasie", func(r Row, m moneyFormatter) string { return m(r.DeferredCents) }},
	{"Ulga B+R", func(r Row, m moneyFormatter) string { return m(r.RnDReliefCents) }},
	{"Uwagi", func(r Row, _ moneyFormatter) string { return r.Notes }},
}

// canonicalSubset selects canonical columns by zero-based index.
func canonicalSubset(indexes ...int) []column {
	cols := make([]column, 0, len(indexes))
	for _, i := range indexes {
		cols = append(cols, canonicalColumns[i])
	}
	return cols
}

// delimitedRenderer is the shared engine behind the CSV and TSV formats.
type delimitedRenderer struct {
	id        string
	comma     rune
	columns   []column
	money     moneyFormatter
	header    bool
	extension string
	mediaType string
}

func (d *delimitedRenderer) ID() string        { return d.id }
func (d *delimitedRenderer) MediaType() string { return d.mediaType }

func (d *delimitedRenderer) Filename(label string) string {
	return fmt.Sprintf("%s_%s.%s", d.id, label, d.extension)
}

func (d *delimitedRenderer) Render(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = d.comma

	if d.header {
		headers := make([]string, len(d.columns))
		for i, col := range d.columns {
			headers[i] = col.header
		}
		if err := w.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	record := make([]string, len(d.columns))
	for _, row := range rows {
		for i, col := range d.columns {
			record[i] = col.cell(row, d.money)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row.Seq, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}
	return buf.Bytes(), nil
}

// kpir is the canonical ledger-row format: all nineteen columns, semicolon
// separated, comma-decimal amounts.
func newKPiRRenderer() Renderer {
	return &delimitedRenderer{
		id:        FormatKPiR,
		comma:     ';',
		columns:   canonicalColumns,
		money:     FormatCentsComma,
		header:    true,
		extension: "csv",
		mediaType: "text/csv",
	}
}

// rewizor takes the bookkeeping subset in canonical order.
func newRewizorRenderer() Renderer {
	return &delimitedRenderer{
		id:        FormatRewizor,
		comma:     ';',
		columns:   canonicalSubset(0, 1, 2, 4, 5, 7, 10, 11, 12, 13, 14, 15, 18),
		money:     FormatCentsComma,
		header:    true,
		extension: "csv",
		mediaType: "text/csv",
	}
}

// rachmistrz wants dot decimals, no header and a leading document number.
func newRachmistrzRenderer() Renderer {
	return &delimitedRenderer{
		id:        FormatRachmistrz,
		comma:     ',',
		columns:   canonicalSubset(2, 1, 4, 5, 7, 8, 9, 10, 11, 12, 13, 14, 15),
		money:     FormatCentsDot,
		header:    false,
		extension: "csv",
		mediaType: "text/csv",
	}
}

// optima reorders contractor columns ahead of the document reference.
func newOptimaRenderer() Renderer {
	return &delimitedRenderer{
		id:        FormatOptima,
		comma:     ';',
		columns:   canonicalSubset(0, 4, 5, 6, 1, 2, 7, 10, 15, 16, 17, 18),
		money:     FormatCentsComma,
		header:    true,
		extension: "csv",
		mediaType: "text/csv",
	}
}

// safir is the narrow totals-only interchange.
func newSafirRenderer() Renderer {
	return &delimitedRenderer{
		id:        FormatSafir,
		comma:     ',',
		columns:   canonicalSubset(1, 2, 4, 5, 10, 15),
		money:     FormatCentsComma,
		header:    false,
		extension: "csv",
		mediaType: "text/csv",
	}
}

// wapro is tab separated with dot decimals.
func newWaproRenderer() Renderer {
	return &delimitedRenderer{
		id:        FormatWapro,
		comma:     '\t',
		columns:   canonicalSubset(0, 1, 2, 4, 5, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17),
		money:     FormatCentsDot,
		header:    true,
		extension: "txt",
		mediaType: "text/tab-separated-values",
	}
}
