package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName names the meter for engine metrics
const MeterName = "bom-engine"

// Attribute keys shared by engine metrics
var (
	AttrTenantID        = attribute.Key("tenant_id")
	AttrTransactionType = attribute.Key("transaction_type")
	AttrOutcome         = attribute.Key("outcome")
	AttrStatus          = attribute.Key("status")
	AttrStrategy        = attribute.Key("strategy")
	AttrEventType       = attribute.Key("event_type")
)

// Mutation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeReplayed = "replayed"
)

// BOMMetrics holds the engine's business instruments. A nil *BOMMetrics is
// valid and records nothing.
type BOMMetrics struct {
	mutations          metric.Int64Counter
	mutationDuration   metric.Float64Histogram
	mutationRetries    metric.Int64Counter
	lockWait           metric.Float64Histogram
	reorderAlerts      metric.Int64Counter
	availabilityChecks metric.Int64Counter
	plans              metric.Int64Counter
	planBottlenecks    metric.Int64Histogram
	eventDispatches    metric.Int64Counter
}

// NewBOMMetrics creates the instruments on meter
func NewBOMMetrics(meter metric.Meter) (*BOMMetrics, error) {
	m := &BOMMetrics{}
	var err error

	if m.mutations, err = meter.Int64Counter("bom.stock.mutations",
		metric.WithDescription("Stock mutations by transaction type and outcome"),
		metric.WithUnit("{mutation}")); err != nil {
		return nil, fmt.Errorf("create mutations counter: %w", err)
	}
	if m.mutationDuration, err = meter.Float64Histogram("bom.stock.mutation.duration",
		metric.WithDescription("Time to apply a stock mutation, lock wait included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(MutationDurationBuckets...)); err != nil {
		return nil, fmt.Errorf("create mutation duration histogram: %w", err)
	}
	if m.mutationRetries, err = meter.Int64Counter("bom.stock.mutation.retries",
		metric.WithDescription("Mutation attempts repeated after a concurrency conflict"),
		metric.WithUnit("{retry}")); err != nil {
		return nil, fmt.Errorf("create mutation retries counter: %w", err)
	}
	if m.lockWait, err = meter.Float64Histogram("bom.stock.lock.wait",
		metric.WithDescription("Time spent waiting for a material lock"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(LockWaitBuckets...)); err != nil {
		return nil, fmt.Errorf("create lock wait histogram: %w", err)
	}
	if m.reorderAlerts, err = meter.Int64Counter("bom.stock.reorder_alerts",
		metric.WithDescription("Materials that dropped below their reorder threshold"),
		metric.WithUnit("{alert}")); err != nil {
		return nil, fmt.Errorf("create reorder alerts counter: %w", err)
	}
	if m.availabilityChecks, err = meter.Int64Counter("bom.availability.checks",
		metric.WithDescription("Availability verdicts by status"),
		metric.WithUnit("{check}")); err != nil {
		return nil, fmt.Errorf("create availability counter: %w", err)
	}
	if m.plans, err = meter.Int64Counter("bom.allocation.plans",
		metric.WithDescription("Multi-product plans by strategy"),
		metric.WithUnit("{plan}")); err != nil {
		return nil, fmt.Errorf("create plans counter: %w", err)
	}
	if m.planBottlenecks, err = meter.Int64Histogram("bom.allocation.bottlenecks",
		metric.WithDescription("Over-subscribed materials per plan"),
		metric.WithUnit("{material}")); err != nil {
		return nil, fmt.Errorf("create bottlenecks histogram: %w", err)
	}
	if m.eventDispatches, err = meter.Int64Counter("bom.events.dispatched",
		metric.WithDescription("Domain event handler invocations by outcome"),
		metric.WithUnit("{dispatch}")); err != nil {
		return nil, fmt.Errorf("create event dispatch counter: %w", err)
	}
	return m, nil
}

// RecordMutation counts one finished mutation request
func (m *BOMMetrics) RecordMutation(ctx context.Context, tenantID, txType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrTenantID.String(tenantID), AttrTransactionType.String(txType), AttrOutcome.String(outcome))
	m.mutations.Add(ctx, 1, attrs)
	m.mutationDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordMutationRetry counts a retried attempt
func (m *BOMMetrics) RecordMutationRetry(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.mutationRetries.Add(ctx, 1, metric.WithAttributes(AttrTenantID.String(tenantID)))
}

// RecordLockWait records how long a writer waited for its lock
func (m *BOMMetrics) RecordLockWait(ctx context.Context, waited time.Duration, acquired bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !acquired {
		outcome = OutcomeConflict
	}
	m.lockWait.Record(ctx, waited.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome)))
}

// RecordReorderAlert counts a reorder threshold crossing
func (m *BOMMetrics) RecordReorderAlert(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.reorderAlerts.Add(ctx, 1, metric.WithAttributes(AttrTenantID.String(tenantID)))
}

// RecordAvailabilityCheck counts a verdict: producible, partial or blocked
func (m *BOMMetrics) RecordAvailabilityCheck(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.availabilityChecks.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
}

// RecordPlan counts a plan and its bottleneck count
func (m *BOMMetrics) RecordPlan(ctx context.Context, strategy string, bottlenecks int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrStrategy.String(strategy))
	m.plans.Add(ctx, 1, attrs)
	m.planBottlenecks.Record(ctx, int64(bottlenecks), attrs)
}

// ObserveEventDispatch counts a handler invocation. Its signature matches
// the event bus dispatch observer.
func (m *BOMMetrics) ObserveEventDispatch(ctx context.Context, eventType string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.eventDispatches.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(eventType), AttrOutcome.String(outcome)))
}
