package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/lock"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MutationConfig bounds the retry loop and idempotency records of the
// mutation service
type MutationConfig struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	IdempotencyTTL time.Duration
}

// DefaultMutationConfig returns the settings used when none are configured
func DefaultMutationConfig() MutationConfig {
	return MutationConfig{
		MaxRetries:     3,
		RetryBackoff:   20 * time.Millisecond,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// StockMutationService is the only write path for material stock.
//
// Writes to one material are serialized three ways: a per-material lock
// (Redis or in-process), a FOR UPDATE read of the material row inside the
// database transaction, and the optimistic version check on save. Losing
// any of them surfaces as a ConcurrencyConflict, which is retried up to
// MaxRetries times before it reaches the caller.
type StockMutationService struct {
	scope       TransactionScope
	locker      lock.Locker
	cfg         MutationConfig
	logger      *zap.Logger
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	metrics     *telemetry.BOMMetrics
}

// NewStockMutationService creates a new StockMutationService
func NewStockMutationService(scope TransactionScope, locker lock.Locker, cfg MutationConfig, log *zap.Logger) *StockMutationService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &StockMutationService{
		scope:  scope,
		locker: locker,
		cfg:    cfg,
		logger: log,
	}
}

// SetEventPublisher sets the publisher for events raised by mutations.
// Events are published only after the database transaction commits.
func (s *StockMutationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetIdempotencyStore enables replay of commands carrying an idempotency key
func (s *StockMutationService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetMetrics sets the business metrics recorder
func (s *StockMutationService) SetMetrics(m *telemetry.BOMMetrics) {
	s.metrics = m
}

// Mutate applies one stock movement and appends its ledger entry atomically
func (s *StockMutationService) Mutate(ctx context.Context, cmd MutateStockCommand) (result *MutationResult, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_mutation", "mutate",
		attribute.String("tenant_id", cmd.TenantID.String()),
		attribute.String("material_id", cmd.MaterialID.String()),
		attribute.String("transaction_type", cmd.Type.String()),
	)
	defer func() {
		telemetry.EndSpan(span, err)
		s.metrics.RecordMutation(ctx, cmd.TenantID.String(), cmd.Type.String(), mutationOutcome(result, err), time.Since(start))
	}()

	if err := s.validate(cmd); err != nil {
		return nil, err
	}

	if cmd.IdempotencyKey == "" || s.idempotency == nil {
		return s.mutateWithRetry(ctx, cmd)
	}
	return s.mutateIdempotent(ctx, cmd)
}

func (s *StockMutationService) validate(cmd MutateStockCommand) error {
	if cmd.TenantID == uuid.Nil {
		return shared.ErrTenantRequired
	}
	if cmd.MaterialID == uuid.Nil {
		return shared.ErrMaterialNotFound
	}
	return cmd.movement().Validate()
}

func (s *StockMutationService) mutateIdempotent(ctx context.Context, cmd MutateStockCommand) (*MutationResult, error) {
	key := idempotencyKey(cmd.TenantID, cmd.IdempotencyKey)

	if res, done, err := s.replay(ctx, key, cmd); done || err != nil {
		return res, err
	}

	reserved, err := s.idempotency.Reserve(ctx, key, s.cfg.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !reserved {
		// Lost the race to a concurrent request with the same key
		if res, done, err := s.replay(ctx, key, cmd); done || err != nil {
			return res, err
		}
		return nil, errRequestInProgress
	}

	result, err := s.mutateWithRetry(ctx, cmd)
	if err != nil {
		if rerr := s.idempotency.Release(context.WithoutCancel(ctx), key); rerr != nil {
			logger.WithLogger(ctx, s.logger).Warn("Failed to release idempotency key", zap.Error(rerr))
		}
		return nil, err
	}

	if cerr := s.idempotency.Complete(context.WithoutCancel(ctx), key, result.Transaction.ID.String(), s.cfg.IdempotencyTTL); cerr != nil {
		logger.WithLogger(ctx, s.logger).Warn("Failed to record idempotency result",
			zap.String("transaction_id", result.Transaction.ID.String()),
			zap.Error(cerr),
		)
	}
	return result, nil
}

var errRequestInProgress = shared.ErrConcurrencyConflict.WithMessage("A request with this idempotency key is still in progress")

// replay returns the recorded result for key. done is false when nothing has
// been recorded yet.
func (s *StockMutationService) replay(ctx context.Context, key string, cmd MutateStockCommand) (*MutationResult, bool, error) {
	ref, pending, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("look up idempotency key: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	if pending {
		return nil, true, errRequestInProgress
	}

	txID, err := uuid.Parse(ref)
	if err != nil {
		return nil, true, fmt.Errorf("corrupt idempotency record %q: %w", ref, err)
	}

	var (
		entry    *inventory.InventoryTransaction
		material *inventory.Material
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var ferr error
		entry, ferr = repos.TransactionRepo().FindByIDForTenant(ctx, cmd.TenantID, txID)
		if ferr != nil {
			return ferr
		}
		material, ferr = repos.MaterialRepo().FindByIDForTenant(ctx, cmd.TenantID, entry.MaterialID)
		return ferr
	})
	if err != nil {
		return nil, true, err
	}
	if !entry.Matches(cmd.MaterialID, cmd.movement()) {
		return nil, true, shared.ErrValidation.WithMessage("Idempotency key was already used for a different stock mutation")
	}

	logger.WithLogger(ctx, s.logger).Info("Replayed stock mutation",
		zap.String("transaction_id", entry.ID.String()),
		zap.String("material_id", entry.MaterialID.String()),
	)
	result := &MutationResult{Transaction: entry, NewQuantity: entry.QuantityAfter, Replayed: true}
	return result.withCount(material.UnitCost), true, nil
}

func (s *StockMutationService) mutateWithRetry(ctx context.Context, cmd MutateStockCommand) (*MutationResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := s.attempt(ctx, cmd)
		if err == nil {
			return result, nil
		}
		if !shared.IsRetryable(err) || attempt >= s.cfg.MaxRetries {
			return nil, err
		}

		s.metrics.RecordMutationRetry(ctx, cmd.TenantID.String())
		logger.WithLogger(ctx, s.logger).Debug("Retrying stock mutation after conflict",
			zap.String("material_id", cmd.MaterialID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(s.cfg.RetryBackoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// attempt runs one locked read-check-write cycle
func (s *StockMutationService) attempt(ctx context.Context, cmd MutateStockCommand) (*MutationResult, error) {
	if s.locker != nil {
		waitStart := time.Now()
		release, err := s.locker.Acquire(ctx, lock.MaterialKey(cmd.TenantID, cmd.MaterialID))
		s.metrics.RecordLockWait(ctx, time.Since(waitStart), err == nil)
		if err != nil {
			return nil, err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				logger.WithLogger(ctx, s.logger).Warn("Failed to release material lock",
					zap.String("material_id", cmd.MaterialID.String()),
					zap.Error(rerr),
				)
			}
		}()
	}

	var (
		material *inventory.Material
		entry    *inventory.InventoryTransaction
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MaterialRepo().FindByIDForUpdate(ctx, cmd.TenantID, cmd.MaterialID)
		if err != nil {
			return err
		}
		tx, err := m.RecordMovement(cmd.movement())
		if err != nil {
			return err
		}
		if err := repos.MaterialRepo().SaveWithLock(ctx, m); err != nil {
			return err
		}
		if err := repos.TransactionRepo().Create(ctx, tx); err != nil {
			return err
		}
		material, entry = m, tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Stock mutated",
		zap.String("material_id", material.ID.String()),
		zap.String("transaction_id", entry.ID.String()),
		zap.String("transaction_type", entry.TransactionType.String()),
		zap.String("quantity_before", entry.QuantityBefore.String()),
		zap.String("quantity_after", entry.QuantityAfter.String()),
	)

	result := (&MutationResult{Transaction: entry, NewQuantity: material.StockQuantity}).withCount(material.UnitCost)
	if result.Count != nil && result.Count.HasDifference() {
		logger.WithLogger(ctx, s.logger).Info("Stock count differs from record",
			zap.String("material_id", material.ID.String()),
			zap.String("difference", result.Count.Difference.String()),
			zap.String("difference_value", result.Count.DifferenceValue.String()),
			zap.Bool("shrinkage", result.Count.IsShrinkage()),
		)
	}

	s.publishDomainEvents(ctx, material)
	return result, nil
}

func (s *StockMutationService) publishDomainEvents(ctx context.Context, m *inventory.Material) {
	events := m.GetDomainEvents()
	m.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	// Handler failures are logged by the bus and never undo a committed mutation
	_ = s.publisher.Publish(ctx, events...)
}

func idempotencyKey(tenantID uuid.UUID, key string) string {
	return "stock-mutation:" + tenantID.String() + ":" + key
}

func mutationOutcome(result *MutationResult, err error) string {
	switch {
	case err == nil && result != nil && result.Replayed:
		return telemetry.OutcomeReplayed
	case err == nil:
		return telemetry.OutcomeSuccess
	case shared.KindOf(err) == shared.KindConcurrencyConflict:
		return telemetry.OutcomeConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return telemetry.OutcomeError
	case shared.KindOf(err) != shared.KindInternal:
		return telemetry.OutcomeRejected
	default:
		return telemetry.OutcomeError
	}
}
