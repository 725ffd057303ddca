package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockReorderNotifier struct {
	mock.Mock
}

func (m *MockReorderNotifier) Notify(ctx context.Context, alert ReorderAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func belowThresholdEvent(t *testing.T, stock int64) *inventory.MaterialBelowReorderThresholdEvent {
	t.Helper()
	m, err := inventory.NewMaterial(uuid.New(), "Butter", valueobject.UnitKilogram)
	require.NoError(t, err)
	require.NoError(t, m.SetSKU("BTR-1"))
	require.NoError(t, m.SetSupplierRef("dairy-co"))
	require.NoError(t, m.SetReorderThreshold(decimal.NewFromInt(10)))
	m.StockQuantity = decimal.NewFromInt(stock)
	return inventory.NewMaterialBelowReorderThresholdEvent(m)
}

func TestReorderAlertHandler_EventTypes(t *testing.T) {
	h := NewReorderAlertHandler(zap.NewNop())
	assert.Equal(t, []string{inventory.EventTypeMaterialBelowReorderThreshold}, h.EventTypes())
}

func TestReorderAlertHandler_Handle(t *testing.T) {
	t.Run("logs and forwards a low stock alert", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		notifier := new(MockReorderNotifier)
		e := belowThresholdEvent(t, 4)

		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a ReorderAlert) bool {
			return a.AlertType == AlertTypeLowStock &&
				a.MaterialID == e.MaterialID.String() &&
				a.SKU == "BTR-1" &&
				a.SupplierRef == "dairy-co" &&
				a.Shortfall == "6"
		})).Return(nil).Once()

		h := NewReorderAlertHandler(zap.New(core)).WithNotifier(notifier)
		require.NoError(t, h.Handle(context.Background(), e))

		notifier.AssertExpectations(t)
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "Material below reorder threshold", entry.Message)
		assert.Equal(t, AlertTypeLowStock, entry.ContextMap()["alert_type"])
	})

	t.Run("zero stock is out of stock", func(t *testing.T) {
		notifier := new(MockReorderNotifier)
		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a ReorderAlert) bool {
			return a.AlertType == AlertTypeOutOfStock
		})).Return(nil).Once()

		h := NewReorderAlertHandler(zap.NewNop()).WithNotifier(notifier)
		require.NoError(t, h.Handle(context.Background(), belowThresholdEvent(t, 0)))
		notifier.AssertExpectations(t)
	})

	t.Run("notifier failure is returned", func(t *testing.T) {
		notifier := new(MockReorderNotifier)
		notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		h := NewReorderAlertHandler(zap.NewNop()).WithNotifier(notifier)
		err := h.Handle(context.Background(), belowThresholdEvent(t, 3))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "smtp down")
	})

	t.Run("works without a notifier", func(t *testing.T) {
		h := NewReorderAlertHandler(zap.NewNop())
		assert.NoError(t, h.Handle(context.Background(), belowThresholdEvent(t, 3)))
	})

	t.Run("rejects other events", func(t *testing.T) {
		m, err := inventory.NewMaterial(uuid.New(), "Salt", valueobject.UnitGram)
		require.NoError(t, err)
		var e shared.DomainEvent = inventory.NewMaterialCreatedEvent(m)

		h := NewReorderAlertHandler(zap.NewNop())
		err = h.Handle(context.Background(), e)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})
}
