package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReceiptText = `Stacja Paliw Orlen Sp. z o.o.
ul. Przykladowa 1, Warszawa
NIP: 777-00-00-037
Faktura VAT nr FV/123/2026
Data wystawienia: 2026-03-10
Termin platnosci: 2026-03-24
Netto: 200,00
VAT: 46,00
Brutto: 246,00
Nabywca NIP: 5260305006`

func TestExtractFromText(t *testing.T) {
	fields := ExtractFromText(sampleReceiptText, 90)
	require.NotNil(t, fields)

	assert.Equal(t, "FV/123/2026", fields.InvoiceNumber)
	assert.Equal(t, "7770000037", fields.SellerTaxID)
	assert.Equal(t, "5260305006", fields.BuyerTaxID)

	require.NotNil(t, fields.IssueDate)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *fields.IssueDate)
	require.NotNil(t, fields.DueDate)
	assert.Equal(t, time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC), *fields.DueDate)

	assert.Equal(t, int64(24600), fields.GrossCents)
	assert.Equal(t, int64(20000), fields.NetCents)
	assert.Equal(t, int64(4600), fields.VATCents)

	// Three amount tokens means the ambiguity penalty applies.
	assert.Equal(t, 90-extraAmountPenalty, fields.Confidence)

	assert.Equal(t, "Stacja Paliw Orlen Sp. z o.o.", fields.SellerName)
	assert.NotEmpty(t, fields.LineText)
}

func TestExtractFromTextTwoAmountsKeepsConfidence(t *testing.T) {
	text := "Sklep ABC\nNIP 1234563218\nNetto 200,00\nBrutto 246,00"
	fields := ExtractFromText(text, 80)

	assert.Equal(t, int64(24600), fields.GrossCents)
	assert.Equal(t, int64(20000), fields.NetCents)
	assert.Equal(t, int64(4600), fields.VATCents)
	assert.Equal(t, 80, fields.Confidence)
}

func TestExtractFromTextMissingFields(t *testing.T) {
	fields := ExtractFromText("unreadable scan noise", 35)

	assert.Empty(t, fields.InvoiceNumber)
	assert.Empty(t, fields.SellerTaxID)
	assert.Nil(t, fields.IssueDate)
	assert.Zero(t, fields.GrossCents)
	assert.Equal(t, 35, fields.Confidence, "missing fields are not an error")
}

func TestExtractFromTextDottedDates(t *testing.T) {
	text := "Faktura nr A/1\nData: 05.02.2026\nZaplata do 19.02.2026\nBrutto 100,00"
	fields := ExtractFromText(text, 70)

	require.NotNil(t, fields.IssueDate)
	assert.Equal(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), *fields.IssueDate)
	require.NotNil(t, fields.DueDate)
	assert.Equal(t, time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC), *fields.DueDate)
}

func TestGuessSellerNameSkipsHeaders(t *testing.T) {
	text := "Faktura VAT\n\nHurtownia Papiernicza Sp. j.\nNIP 1234563218"
	assert.Equal(t, "Hurtownia Papiernicza Sp. j.", guessSellerName(text))
}
