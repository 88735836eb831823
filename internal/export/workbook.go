package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const workbookSheet = "Ksiega"

// BuildWorkbook renders the ledger rows into a spreadsheet workbook for
// operators who review a batch before handing it to an accountant. The
// sheet mirrors the canonical 19-column layout; amounts are numeric cells
// so the sheet can be summed in place.
func BuildWorkbook(rows []Row, label string) (*Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), workbookSheet)

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	for i, col := range canonicalColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(workbookSheet, cell, col.header); err != nil {
			return nil, fmt.Errorf("failed to write header %s: %w", col.header, err)
		}
	}

	for r, row := range rows {
		values := []interface{}{
			row.Seq,
			row.EventDate.Format("2006-01-02"),
			row.DocumentRef,
			row.AltDocNo,
			row.ContractorTaxID,
			row.ContractorName,
			row.ContractorAddress,
			row.Description,
			centsValue(row.SaleIncomeCents),
			centsValue(row.OtherIncomeCents),
			centsValue(row.IncomeTotalCents),
			centsValue(row.GoodsCents),
			centsValue(row.SideCostsCents),
			centsValue(row.WagesCents),
			centsValue(row.OtherExpenseCents),
			centsValue(row.ExpenseTotalCents),
			centsValue(row.DeferredCents),
			centsValue(row.RnDReliefCents),
			row.Notes,
		}
		for c, value := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(workbookSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row.Seq, err)
			}
			if _, isAmount := value.(float64); isAmount {
				if err := f.SetCellStyle(workbookSheet, cell, cell, moneyStyle); err != nil {
					return nil, fmt.Errorf("failed to style row %d: %w", row.Seq, err)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return &Artifact{
		Format:    "workbook",
		Filename:  fmt.Sprintf("ksiega_%s.xlsx", label),
		MediaType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:      buf.Bytes(),
		RowCount:  len(rows),
	}, nil
}

func centsValue(cents int64) float64 {
	return float64(cents) / 100
}
