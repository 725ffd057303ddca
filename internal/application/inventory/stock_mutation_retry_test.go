package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// racingMaterials hands out a fresh copy of the same material on every read
// and fails the first `conflicts` saves as if another writer got there first
type racingMaterials struct {
	inventory.MaterialRepository
	material  inventory.Material
	conflicts int
	saves     int
	reads     int
}

func (r *racingMaterials) FindByIDForUpdate(_ context.Context, tenantID, id uuid.UUID) (*inventory.Material, error) {
	r.reads++
	if tenantID != r.material.TenantID || id != r.material.ID {
		return nil, shared.ErrMaterialNotFound
	}
	m := r.material
	return &m, nil
}

func (r *racingMaterials) SaveWithLock(_ context.Context, m *inventory.Material) error {
	r.saves++
	if r.saves <= r.conflicts {
		return shared.ErrConcurrencyConflict
	}
	r.material = *m
	r.material.ClearDomainEvents()
	return nil
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *inventory.InventoryTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByMaterial(ctx context.Context, tenantID, materialID uuid.UUID, filter shared.Filter) ([]inventory.InventoryTransaction, error) {
	args := m.Called(ctx, tenantID, materialID, filter)
	return args.Get(0).([]inventory.InventoryTransaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByMaterial(ctx context.Context, tenantID, materialID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, materialID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) FindChain(ctx context.Context, tenantID, materialID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	args := m.Called(ctx, tenantID, materialID)
	return args.Get(0).([]inventory.InventoryTransaction), args.Error(1)
}

func newRacingMaterial(t *testing.T, conflicts int) *racingMaterials {
	t.Helper()
	m, err := inventory.NewMaterial(uuid.New(), "Sugar", valueobject.UnitKilogram)
	require.NoError(t, err)
	m.StockQuantity = decimal.NewFromInt(10)
	m.ClearDomainEvents()
	return &racingMaterials{material: *m, conflicts: conflicts}
}

func deductOne(repo *racingMaterials) MutateStockCommand {
	return MutateStockCommand{
		TenantID:   repo.material.TenantID,
		MaterialID: repo.material.ID,
		Type:       inventory.TransactionTypeDeduction,
		Quantity:   decimal.NewFromInt(1),
		Reason:     inventory.ReasonProduction,
	}
}

func TestStockMutationService_RetriesConflicts(t *testing.T) {
	materials := newRacingMaterial(t, 2)
	ledger := new(MockTransactionRepository)
	ledger.On("Create", mock.Anything, mock.AnythingOfType("*inventory.InventoryTransaction")).Return(nil).Once()

	reader := metric.NewManualReader()
	metrics, err := telemetry.NewBOMMetrics(metric.NewMeterProvider(metric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	svc := NewStockMutationService(
		NewNoOpTransactionScope(materials, ledger, nil),
		nil,
		MutationConfig{MaxRetries: 3, RetryBackoff: time.Millisecond},
		zap.NewNop(),
	)
	svc.SetMetrics(metrics)

	res, err := svc.Mutate(context.Background(), deductOne(materials))
	require.NoError(t, err)

	assert.Equal(t, 3, materials.reads, "each attempt re-reads the material")
	assert.True(t, res.NewQuantity.Equal(decimal.NewFromInt(9)))
	assert.True(t, res.Transaction.QuantityBefore.Equal(decimal.NewFromInt(10)))
	ledger.AssertExpectations(t)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	retries := int64(0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "bom.stock.mutation.retries" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				retries += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), retries)
}

func TestStockMutationService_GivesUpAfterMaxRetries(t *testing.T) {
	materials := newRacingMaterial(t, 100)
	ledger := new(MockTransactionRepository)

	svc := NewStockMutationService(
		NewNoOpTransactionScope(materials, ledger, nil),
		nil,
		MutationConfig{MaxRetries: 2, RetryBackoff: time.Millisecond},
		zap.NewNop(),
	)

	_, err := svc.Mutate(context.Background(), deductOne(materials))
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.True(t, shared.IsRetryable(err))
	assert.Equal(t, 3, materials.saves)
	ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStockMutationService_DoesNotRetryDomainErrors(t *testing.T) {
	materials := newRacingMaterial(t, 0)
	ledger := new(MockTransactionRepository)

	svc := NewStockMutationService(
		NewNoOpTransactionScope(materials, ledger, nil),
		nil,
		MutationConfig{MaxRetries: 5, RetryBackoff: time.Millisecond},
		zap.NewNop(),
	)

	cmd := deductOne(materials)
	cmd.Quantity = decimal.NewFromInt(11)
	_, err := svc.Mutate(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 1, materials.reads)
}

func TestStockMutationService_RetryStopsOnCancel(t *testing.T) {
	materials := newRacingMaterial(t, 100)
	ledger := new(MockTransactionRepository)

	svc := NewStockMutationService(
		NewNoOpTransactionScope(materials, ledger, nil),
		nil,
		MutationConfig{MaxRetries: 10, RetryBackoff: time.Hour},
		zap.NewNop(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Mutate(ctx, deductOne(materials))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, materials.saves)
}

func TestMutationOutcome(t *testing.T) {
	assert.Equal(t, telemetry.OutcomeSuccess, mutationOutcome(&MutationResult{}, nil))
	assert.Equal(t, telemetry.OutcomeReplayed, mutationOutcome(&MutationResult{Replayed: true}, nil))
	assert.Equal(t, telemetry.OutcomeConflict, mutationOutcome(nil, shared.ErrConcurrencyConflict))
	assert.Equal(t, telemetry.OutcomeRejected, mutationOutcome(nil, shared.ErrInsufficientStock))
	assert.Equal(t, telemetry.OutcomeError, mutationOutcome(nil, context.Canceled))
	assert.Equal(t, telemetry.OutcomeError, mutationOutcome(nil, errors.New("connection reset")))
}
