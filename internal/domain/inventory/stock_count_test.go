package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockCount(t *testing.T) {
	m := newTestMaterial(t, 0)
	count := NewStockCount(m.ID, decimal.NewFromInt(100), decimal.NewFromInt(93), decimal.RequireFromString("2.5"))

	assert.True(t, count.Difference.Equal(decimal.NewFromInt(-7)))
	assert.True(t, count.DifferenceValue.Equal(decimal.RequireFromString("-17.5")))
	assert.True(t, count.HasDifference())
	assert.True(t, count.IsShrinkage())

	exact := NewStockCount(m.ID, decimal.NewFromInt(5), decimal.NewFromInt(5), decimal.NewFromInt(1))
	assert.False(t, exact.HasDifference())
	assert.False(t, exact.IsShrinkage())
}

func TestInventoryTransaction_Count(t *testing.T) {
	m := newTestMaterial(t, 10)

	adj, err := m.RecordMovement(Movement{Type: TransactionTypeAdjustment, Quantity: decimal.NewFromInt(12), Reason: ReasonCountAdjustment})
	require.NoError(t, err)
	count, ok := adj.Count(decimal.NewFromInt(3))
	require.True(t, ok)
	assert.Equal(t, m.ID, count.MaterialID)
	assert.True(t, count.SystemQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, count.CountedQuantity.Equal(decimal.NewFromInt(12)))
	assert.True(t, count.DifferenceValue.Equal(decimal.NewFromInt(6)))
	assert.True(t, adj.QuantityChange.Equal(count.Difference), "the ledger books the count difference")

	restock, err := m.RecordMovement(Movement{Type: TransactionTypeRestock, Quantity: decimal.NewFromInt(1), Reason: ReasonPurchase})
	require.NoError(t, err)
	_, ok = restock.Count(decimal.NewFromInt(3))
	assert.False(t, ok)
}
