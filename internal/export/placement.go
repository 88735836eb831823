package export

import (
	"fmt"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

// Column identifies an amount-bearing ledger-row column.
type Column string

const (
	ColumnSaleIncome   Column = "sale_income"   // 9
	ColumnOtherIncome  Column = "other_income"  // 10
	ColumnGoods        Column = "goods"         // 12
	ColumnSideCosts    Column = "side_costs"    // 13
	ColumnWages        Column = "wages"         // 14
	ColumnOtherExpense Column = "other_expense" // 15
	ColumnDeferred     Column = "deferred"      // 17
	ColumnRnDRelief    Column = "rnd_relief"    // 18
)

// placementTable is the single source of truth for category -> column
// placement. Every renderer consumes it through the shared row; no format
// may re-derive placement independently.
var placementTable = map[entity.Category]Column{
	entity.CategoryFuel:           ColumnOtherExpense,
	entity.CategoryHosting:        ColumnOtherExpense,
	entity.CategoryOfficeSupplies: ColumnOtherExpense,
	entity.CategorySoftware:       ColumnOtherExpense,
	entity.CategoryMarketing:      ColumnOtherExpense,
	entity.CategoryUtilities:      ColumnOtherExpense,
	entity.CategoryServices:       ColumnOtherExpense,
	entity.CategoryGoodsPurchase:  ColumnGoods,
	entity.CategoryTransport:      ColumnSideCosts,
	entity.CategoryWages:          ColumnWages,
	entity.CategoryPrepaid:        ColumnDeferred,
	entity.CategoryRnDServices:    ColumnRnDRelief,
	entity.CategorySale:           ColumnSaleIncome,
	entity.CategoryOtherIncome:    ColumnOtherIncome,
}

// PlacementFor returns the ledger column a category posts to. Total over
// the closed category set.
func PlacementFor(category entity.Category) (Column, error) {
	column, ok := placementTable[category]
	if !ok {
		return "", fmt.Errorf("no column placement for category %q", category)
	}
	return column, nil
}

// Place posts the amount into the row column implied by the category.
func Place(row *Row, category entity.Category, cents int64) error {
	column, err := PlacementFor(category)
	if err != nil {
		return err
	}

	switch column {
	case ColumnSaleIncome:
		row.SaleIncomeCents = cents
	case ColumnOtherIncome:
		row.OtherIncomeCents = cents
	case ColumnGoods:
		row.GoodsCents = cents
	case ColumnSideCosts:
		row.SideCostsCents = cents
	case ColumnWages:
		row.WagesCents = cents
	case ColumnOtherExpense:
		row.OtherExpenseCents = cents
	case ColumnDeferred:
		row.DeferredCents = cents
	case ColumnRnDRelief:
		row.RnDReliefCents = cents
	}
	return nil
}

// AmountIn reads the amount back out of the column, used by placement
// consistency checks.
func (r Row) AmountIn(column Column) int64 {
	switch column {
	case ColumnSaleIncome:
		return r.SaleIncomeCents
	case ColumnOtherIncome:
		return r.OtherIncomeCents
	case ColumnGoods:
		return r.GoodsCents
	case ColumnSideCosts:
		return r.SideCostsCents
	case ColumnWages:
		return r.WagesCents
	case ColumnOtherExpense:
		return r.OtherExpenseCents
	case ColumnDeferred:
		return r.DeferredCents
	case ColumnRnDRelief:
		return r.RnDReliefCents
	}
	return 0
}
