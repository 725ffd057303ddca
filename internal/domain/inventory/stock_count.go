package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockCount compares a physical count of one material with the stock on
// record at count time. An adjustment books Difference to the ledger.
type StockCount struct {
	MaterialID      uuid.UUID
	SystemQuantity  decimal.Decimal
	CountedQuantity decimal.Decimal
	Difference      decimal.Decimal // counted - system
	UnitCost        decimal.Decimal
	DifferenceValue decimal.Decimal // difference * unit cost
}

// NewStockCount records a count against the stock on record
func NewStockCount(materialID uuid.UUID, system, counted, unitCost decimal.Decimal) StockCount {
	diff := counted.Sub(system)
	return StockCount{
		MaterialID:      materialID,
		SystemQuantity:  system,
		CountedQuantity: counted,
		Difference:      diff,
		UnitCost:        unitCost,
		DifferenceValue: diff.Mul(unitCost),
	}
}

// HasDifference reports whether the count disagreed with the record
func (c StockCount) HasDifference() bool {
	return !c.Difference.IsZero()
}

// IsShrinkage reports whether less was counted than recorded
func (c StockCount) IsShrinkage() bool {
	return c.Difference.IsNegative()
}

// Count returns the stock count an adjustment entry booked, valued at
// unitCost. Other entries carry no count.
func (t *InventoryTransaction) Count(unitCost decimal.Decimal) (StockCount, bool) {
	if t.TransactionType != TransactionTypeAdjustment {
		return StockCount{}, false
	}
	return NewStockCount(t.MaterialID, t.QuantityBefore, t.QuantityAfter, unitCost), true
}
