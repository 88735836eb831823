package export

import (
	"bytes"
	"fmt"
)

// kvField maps a block key to a cell extractor.
type kvField struct {
	key  string
	cell func(Row, moneyFormatter) string
}

// kvLayout describes a line-oriented key=value block format: one block per
// row, blocks separated by a marker line.
type kvLayout struct {
	blockStart string
	blockEnd   string
	assign     string
	money      moneyFormatter
	fields     []kvField
}

// kvRenderer renders the key=value block envelope shared by the Symfonia
// and enova style imports.
type kvRenderer struct {
	id     string
	layout kvLayout
}

func newKVRenderer(id string, layout kvLayout) Renderer {
	return &kvRenderer{id: id, layout: layout}
}

func (k *kvRenderer) ID() string        { return k.id }
func (k *kvRenderer) MediaType() string { return "text/plain" }

func (k *kvRenderer) Filename(label string) string {
	return fmt.Sprintf("%s_%s.txt", k.id, label)
}

func (k *kvRenderer) Render(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	for _, row := range rows {
		if k.layout.blockStart != "" {
			fmt.Fprintf(&buf, "%s\n", k.layout.blockStart)
		}
		for _, field := range k.layout.fields {
			fmt.Fprintf(&buf, "%s%s%s\n", field.key, k.layout.assign, field.cell(row, k.layout.money))
		}
		if k.layout.blockEnd != "" {
			fmt.Fprintf(&buf, "%s\n", k.layout.blockEnd)
		}
	}
	return buf.Bytes(), nil
}

var symfoniaLayout = kvLayout{
	blockStart: ".Zapis",
	blockEnd:   ".Koniec",
	assign:     "=",
	money:      FormatCentsComma,
	fields: []kvField{
		{"Lp", func(r Row, _ moneyFormatter) string { return fmt.Sprintf("%d", r.Seq) }},
		{"Data", func(r Row, _ moneyFormatter) string { return r.EventDate.Format("2006-01-02") }},
		{"Dowod", func(r Row, _ moneyFormatter) string { return r.DocumentRef }},
		{"NIP", func(r Row, _ moneyFormatter) string { return r.ContractorTaxID }},
		{"Kontrahent", func(r Row, _ moneyFormatter) string { return r.ContractorName }},
		{"Opis", func(r Row, _ moneyFormatter) string { return r.Description }},
		{"Przychod", func(r Row, m moneyFormatter) string { return m(r.IncomeTotalCents) }},
		{"Towary", func(r Row, m moneyFormatter) string { return m(r.GoodsCents) }},
		{"Uboczne", func(r Row, m moneyFormatter) string { return m(r.SideCostsCents) }},
		{"Wynagrodzenia", func(r Row, m moneyFormatter) string { return m(r.WagesCents) }},
		{"Pozostale", func(r Row, m moneyFormatter) string { return m(r.OtherExpenseCents) }},
		{"RazemWydatki", func(r Row, m moneyFormatter) string { return m(r.ExpenseTotalCents) }},
		{"BR", func(r Row, m moneyFormatter) string { return m(r.RnDReliefCents) }},
		{"Uwagi", func(r Row, _ moneyFormatter) string { return r.Notes }},
	},
}

var enovaLayout = kvLayout{
	blockStart: "[ZAPIS]",
	blockEnd:   "",
	assign:     " = ",
	money:      FormatCentsDot,
	fields: []kvField{
		{"LP", func(r Row, _ moneyFormatter) string { return fmt.Sprintf("%d", r.Seq) }},
		{"DATA", func(r Row, _ moneyFormatter) string { return r.EventDate.Format("20060102") }},
		{"DOKUMENT", func(r Row, _ moneyFormatter) string { return r.DocumentRef }},
		{"DOKUMENT_ALT", func(r Row, _ moneyFormatter) string { return r.AltDocNo }},
		{"NIP", func(r Row, _ moneyFormatter) string { return r.ContractorTaxID }},
		{"NAZWA", func(r Row, _ moneyFormatter) string { return r.ContractorName }},
		{"ADRES", func(r Row, _ moneyFormatter) string { return r.ContractorAddress }},
		{"OPIS", func(r Row, _ moneyFormatter) string { return r.Description }},
		{"PRZYCHOD_SPRZEDAZ", func(r Row, m moneyFormatter) string { return m(r.SaleIncomeCents) }},
		{"PRZYCHOD_POZOSTALE", func(r Row, m moneyFormatter) string { return m(r.OtherIncomeCents) }},
		{"PRZYCHOD_RAZEM", func(r Row, m moneyFormatter) string { return m(r.IncomeTotalCents) }},
		{"WYDATEK_TOWARY", func(r Row, m moneyFormatter) string { return m(r.GoodsCents) }},
		{"WYDATEK_UBOCZNE", func(r Row, m moneyFormatter) string { return m(r.SideCostsCents) }},
		{"WYDATEK_WYNAGRODZENIA", func(r Row, m moneyFormatter) string { return m(r.WagesCents) }},
		{"WYDATEK_POZOSTALE", func(r Row, m moneyFormatter) string { return m(r.OtherExpenseCents) }},
		{"WYDATEK_RAZEM", func(r Row, m moneyFormatter) string { return m(r.ExpenseTotalCents) }},
		{"KOSZTY_W_CZASIE", func(r Row, m moneyFormatter) string { return m(r.DeferredCents) }},
		{"ULGA_BR", func(r Row, m moneyFormatter) string { return m(r.RnDReliefCents) }},
		{"UWAGI", func(r Row, _ moneyFormatter) string { return r.Notes }},
	},
}

// eppRenderer renders the sectioned interchange format: a header section
// followed by one delimited content line per row.
type eppRenderer struct {
	money moneyFormatter
}

func newEPPRenderer() Renderer {
	return &eppRenderer{money: FormatCentsComma}
}

func (e *eppRenderer) ID() string        { return FormatEPP }
func (e *eppRenderer) MediaType() string { return "text/plain" }

func (e *eppRenderer) Filename(label string) string {
	return fmt.Sprintf("%s_%s.epp", FormatEPP, label)
}

func (e *eppRenderer) Render(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[INFO]\n")
	buf.WriteString("\"KPIR\",\"1.05\"\n")
	buf.WriteString("[NAGLOWEK]\n")
	fmt.Fprintf(&buf, "\"ZAPISY\",%d\n", len(rows))
	buf.WriteString("[ZAWARTOSC]\n")

	for _, row := range rows {
		fmt.Fprintf(&buf, "%d,\"%s\",\"%s\",\"%s\",\"%s\",\"%s\",%s,%s,%s,%s,%s,%s,%s,%s\n",
			row.Seq,
			row.EventDate.Format("20060102"),
			row.DocumentRef,
			row.ContractorTaxID,
			row.ContractorName,
			row.Description,
			e.money(row.SaleIncomeCents),
			e.money(row.OtherIncomeCents),
			e.money(row.IncomeTotalCents),
			e.money(row.GoodsCents),
			e.money(row.SideCostsCents),
			e.money(row.WagesCents),
			e.money(row.OtherExpenseCents),
			e.money(row.ExpenseTotalCents),
		)
	}
	return buf.Bytes(), nil
}
