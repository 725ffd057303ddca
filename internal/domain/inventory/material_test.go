package inventory

import (
	"testing"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaterial(t *testing.T, stock int64) *Material {
	t.Helper()
	m, err := NewMaterial(uuid.New(), "Flour", valueobject.UnitKilogram)
	require.NoError(t, err)
	if stock > 0 {
		_, err = m.RecordMovement(Movement{
			Type:     TransactionTypeRestock,
			Quantity: decimal.NewFromInt(stock),
			Reason:   ReasonPurchase,
		})
		require.NoError(t, err)
		m.ClearDomainEvents()
	}
	return m
}

func TestNewMaterial(t *testing.T) {
	t.Run("creates material with zero stock", func(t *testing.T) {
		tenantID := uuid.New()
		m, err := NewMaterial(tenantID, "  Sugar ", valueobject.UnitGram)
		require.NoError(t, err)
		assert.Equal(t, "Sugar", m.Name)
		assert.Equal(t, tenantID, m.TenantID)
		assert.True(t, m.StockQuantity.IsZero())
		assert.Equal(t, 1, m.Version)
	})

	t.Run("rejects missing tenant", func(t *testing.T) {
		_, err := NewMaterial(uuid.Nil, "Sugar", valueobject.UnitGram)
		assert.ErrorIs(t, err, shared.ErrTenantRequired)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewMaterial(uuid.New(), "   ", valueobject.UnitGram)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})

	t.Run("rejects unknown unit", func(t *testing.T) {
		_, err := NewMaterial(uuid.New(), "Sugar", valueobject.MeasureUnit("ton"))
		assert.ErrorIs(t, err, shared.ErrInvalidUnit)
	})
}

func TestMaterial_Setters(t *testing.T) {
	m := newTestMaterial(t, 0)

	require.NoError(t, m.SetSKU(" flour 00 "))
	assert.Equal(t, "FLOUR-00", m.SKU)
	assert.True(t, m.HasSKU())

	assert.Error(t, m.SetReorderThreshold(decimal.NewFromInt(-1)))
	assert.Error(t, m.SetUnitCost(decimal.NewFromInt(-1)))
	require.NoError(t, m.SetUnitCost(decimal.RequireFromString("1.25")))
	assert.True(t, m.UnitCost.Equal(decimal.RequireFromString("1.25")))
}

func TestMaterial_RecordMovement(t *testing.T) {
	t.Run("restock adds quantity", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		tx, err := m.RecordMovement(Movement{Type: TransactionTypeRestock, Quantity: decimal.NewFromInt(25), Reason: ReasonPurchase})
		require.NoError(t, err)
		assert.True(t, tx.QuantityBefore.Equal(decimal.NewFromInt(100)))
		assert.True(t, tx.QuantityChange.Equal(decimal.NewFromInt(25)))
		assert.True(t, tx.QuantityAfter.Equal(decimal.NewFromInt(125)))
		assert.True(t, m.StockQuantity.Equal(decimal.NewFromInt(125)))
		assert.Equal(t, m.Version, tx.MaterialVersion)
	})

	t.Run("deduction subtracts quantity", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		tx, err := m.RecordMovement(Movement{Type: TransactionTypeDeduction, Quantity: decimal.NewFromInt(40), Reason: ReasonSale})
		require.NoError(t, err)
		assert.True(t, tx.QuantityChange.Equal(decimal.NewFromInt(-40)))
		assert.True(t, m.StockQuantity.Equal(decimal.NewFromInt(60)))
	})

	t.Run("deduction beyond stock fails and leaves stock unchanged", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		version := m.Version
		_, err := m.RecordMovement(Movement{Type: TransactionTypeDeduction, Quantity: decimal.NewFromInt(150), Reason: ReasonSale})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.True(t, m.StockQuantity.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, version, m.Version)
		assert.Empty(t, m.GetDomainEvents())
	})

	t.Run("deduction of the full stock reaches zero", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		_, err := m.RecordMovement(Movement{Type: TransactionTypeDeduction, Quantity: decimal.NewFromInt(100), Reason: ReasonWaste})
		require.NoError(t, err)
		assert.True(t, m.StockQuantity.IsZero())
	})

	t.Run("adjustment sets the counted quantity", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		tx, err := m.RecordMovement(Movement{Type: TransactionTypeAdjustment, Quantity: decimal.NewFromInt(92), Reason: ReasonCountAdjustment})
		require.NoError(t, err)
		assert.True(t, tx.QuantityChange.Equal(decimal.NewFromInt(-8)))
		assert.True(t, m.StockQuantity.Equal(decimal.NewFromInt(92)))

		tx, err = m.RecordMovement(Movement{Type: TransactionTypeAdjustment, Quantity: decimal.NewFromInt(92), Reason: ReasonCountAdjustment})
		require.NoError(t, err)
		assert.True(t, tx.QuantityChange.IsZero(), "a confirming count is still recorded")
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		_, err := m.RecordMovement(Movement{Type: TransactionTypeRestock, Quantity: decimal.Zero, Reason: ReasonPurchase})
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
		_, err = m.RecordMovement(Movement{Type: TransactionTypeRestock, Quantity: decimal.NewFromInt(-5), Reason: ReasonPurchase})
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	})

	t.Run("rejects unknown reason", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		_, err := m.RecordMovement(Movement{Type: TransactionTypeRestock, Quantity: decimal.NewFromInt(1), Reason: Reason("gift")})
		assert.ErrorIs(t, err, shared.ErrInvalidReason)
	})

	t.Run("rejects deleted material", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		require.NoError(t, m.SoftDelete())
		_, err := m.RecordMovement(Movement{Type: TransactionTypeRestock, Quantity: decimal.NewFromInt(1), Reason: ReasonPurchase})
		assert.ErrorIs(t, err, shared.ErrMaterialNotFound)
	})

	t.Run("raises reorder event only when crossing the threshold", func(t *testing.T) {
		m := newTestMaterial(t, 100)
		require.NoError(t, m.SetReorderThreshold(decimal.NewFromInt(50)))

		_, err := m.RecordMovement(Movement{Type: TransactionTypeDeduction, Quantity: decimal.NewFromInt(60), Reason: ReasonProduction})
		require.NoError(t, err)
		events := m.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeStockMutated, events[0].EventType())
		assert.Equal(t, EventTypeMaterialBelowReorderThreshold, events[1].EventType())
		below := events[1].(*MaterialBelowReorderThresholdEvent)
		assert.True(t, below.Shortfall().Equal(decimal.NewFromInt(10)))

		m.ClearDomainEvents()
		_, err = m.RecordMovement(Movement{Type: TransactionTypeDeduction, Quantity: decimal.NewFromInt(5), Reason: ReasonProduction})
		require.NoError(t, err)
		assert.Len(t, m.GetDomainEvents(), 1, "already below threshold")
	})
}

func TestMaterial_SoftDelete(t *testing.T) {
	m := newTestMaterial(t, 0)
	require.NoError(t, m.SoftDelete())
	assert.True(t, m.IsDeleted())
	assert.ErrorIs(t, m.SoftDelete(), shared.ErrInvalidState)
}

func TestMaterial_RecordMovementStorageScale(t *testing.T) {
	t.Run("rejects a deduction finer than the stored scale", func(t *testing.T) {
		m := newTestMaterial(t, 1)

		_, err := m.RecordMovement(Movement{
			Type:     TransactionTypeDeduction,
			Quantity: decimal.RequireFromString("0.0000015"),
			Reason:   ReasonProduction,
		})

		assert.ErrorIs(t, err, shared.ErrQuantityPrecision)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
		assert.True(t, m.StockQuantity.Equal(decimal.NewFromInt(1)), "stock untouched")
		assert.Equal(t, 2, m.Version)
	})

	t.Run("accepts six decimal places and keeps the chain exact", func(t *testing.T) {
		m := newTestMaterial(t, 1)

		tx, err := m.RecordMovement(Movement{
			Type:     TransactionTypeDeduction,
			Quantity: decimal.RequireFromString("0.000001"),
			Reason:   ReasonProduction,
		})

		require.NoError(t, err)
		assert.Equal(t, "0.999999", tx.QuantityAfter.String())
		assert.True(t, valueobject.FitsStorage(tx.QuantityChange))
		assert.True(t, tx.IsBalanced())
	})

	t.Run("rejects a restock past the storable range", func(t *testing.T) {
		m := newTestMaterial(t, 1)

		_, err := m.RecordMovement(Movement{
			Type:     TransactionTypeRestock,
			Quantity: decimal.RequireFromString("99999999999999"),
			Reason:   ReasonPurchase,
		})

		assert.ErrorIs(t, err, shared.ErrQuantityPrecision)
		assert.True(t, m.StockQuantity.Equal(decimal.NewFromInt(1)))
	})

	t.Run("rejects unit cost and threshold finer than the stored scale", func(t *testing.T) {
		m := newTestMaterial(t, 0)
		assert.ErrorIs(t, m.SetUnitCost(decimal.RequireFromString("0.1234567")), shared.ErrQuantityPrecision)
		assert.ErrorIs(t, m.SetReorderThreshold(decimal.RequireFromString("1.0000001")), shared.ErrQuantityPrecision)
		assert.NoError(t, m.SetUnitCost(decimal.RequireFromString("0.123450")))
	})
}
