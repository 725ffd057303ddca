package inventory

import (
	"testing"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	for _, in := range []string{"adjustment", "DEDUCTION", " restock "} {
		_, err := ParseTransactionType(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseTransactionType("transfer")
	assert.ErrorIs(t, err, shared.ErrInvalidTransactionType)
}

func TestParseReason(t *testing.T) {
	for _, r := range AllReasons() {
		got, err := ParseReason(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseReason("theft")
	assert.ErrorIs(t, err, shared.ErrInvalidReason)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestMovement_Validate(t *testing.T) {
	valid := Movement{Type: TransactionTypeRestock, Quantity: decimal.NewFromInt(1), Reason: ReasonPurchase}
	assert.NoError(t, valid.Validate())

	partialRef := valid
	partialRef.Reference = &Reference{Type: "order"}
	assert.Equal(t, shared.KindValidation, shared.KindOf(partialRef.Validate()))

	badType := valid
	badType.Type = "transfer"
	assert.ErrorIs(t, badType.Validate(), shared.ErrInvalidTransactionType)

	tooFine := valid
	tooFine.Quantity = decimal.RequireFromString("0.0000001")
	assert.ErrorIs(t, tooFine.Validate(), shared.ErrQuantityPrecision)

	trailingZeros := valid
	trailingZeros.Quantity = decimal.RequireFromString("2.50000000")
	assert.NoError(t, trailingZeros.Validate())
}

func TestInventoryTransaction_Reference(t *testing.T) {
	m := newTestMaterial(t, 10)
	tx, err := m.RecordMovement(Movement{
		Type:      TransactionTypeDeduction,
		Quantity:  decimal.NewFromInt(2),
		Reason:    ReasonProduction,
		Reference: &Reference{Type: "production_run", ID: "PR-7"},
		Notes:     "  batch 7 ",
	})
	require.NoError(t, err)
	require.NotNil(t, tx.Reference())
	assert.Equal(t, "production_run", tx.Reference().Type)
	assert.Equal(t, "batch 7", tx.Notes)
	assert.Equal(t, m.TenantID, tx.TenantID)
	assert.True(t, tx.IsBalanced())
}

func TestInventoryTransaction_Matches(t *testing.T) {
	m := newTestMaterial(t, 10)
	deduct := Movement{Type: TransactionTypeDeduction, Quantity: decimal.NewFromInt(4), Reason: ReasonSale}
	tx, err := m.RecordMovement(deduct)
	require.NoError(t, err)

	assert.True(t, tx.MovementQuantity().Equal(decimal.NewFromInt(4)))
	assert.True(t, tx.Matches(m.ID, deduct))

	other := deduct
	other.Quantity = decimal.NewFromInt(5)
	assert.False(t, tx.Matches(m.ID, other))

	other = deduct
	other.Reason = ReasonWaste
	assert.False(t, tx.Matches(m.ID, other))

	count := Movement{Type: TransactionTypeAdjustment, Quantity: decimal.NewFromInt(9), Reason: ReasonCountAdjustment}
	adj, err := m.RecordMovement(count)
	require.NoError(t, err)
	assert.True(t, adj.MovementQuantity().Equal(decimal.NewFromInt(9)), "adjustments carry the counted stock")
	assert.True(t, adj.Matches(m.ID, count))
}
