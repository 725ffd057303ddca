package bom

import (
	"context"

	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AvailabilityChecker is the read-only availability calculator
type AvailabilityChecker interface {
	Check(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal) (*production.Availability, error)
	BulkCheck(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID, quantity decimal.Decimal) ([]production.BulkVerdict, error)
}

// Planner allocates stock across competing production requests
type Planner interface {
	Plan(ctx context.Context, tenantID uuid.UUID, requests []production.PlanRequest, strategyName string) (*production.Plan, error)
}

// BOMService answers the read-side production questions: what a run needs,
// whether it can run, and how to split stock between several runs. None of
// its operations write.
type BOMService struct {
	resolver   production.RequirementResolver
	calculator AvailabilityChecker
	planner    Planner
	logger     *zap.Logger
	metrics    *telemetry.BOMMetrics
}

// NewBOMService creates a new BOMService
func NewBOMService(resolver production.RequirementResolver, calculator AvailabilityChecker, planner Planner, log *zap.Logger) *BOMService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BOMService{
		resolver:   resolver,
		calculator: calculator,
		planner:    planner,
		logger:     log,
	}
}

// SetMetrics sets the business metrics recorder
func (s *BOMService) SetMetrics(m *telemetry.BOMMetrics) {
	s.metrics = m
}

// ResolveRequirements expands the product's active recipe for a quantity
func (s *BOMService) ResolveRequirements(ctx context.Context, q RequirementsQuery) (resp *RequirementsResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "resolve_requirements",
		attribute.String("tenant_id", q.TenantID.String()),
		attribute.String("product_id", q.ProductID.String()),
		attribute.Bool("include_waste", q.IncludeWaste),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	res, err := s.resolver.Resolve(ctx, q.TenantID, q.ProductID, q.Quantity, q.IncludeWaste)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("requirements", len(res.Requirements)))
	return ToRequirementsResponse(q.ProductID, res), nil
}

// CheckAvailability reports whether the requested quantity can be produced
// from current stock and, if not, which materials fall short
func (s *BOMService) CheckAvailability(ctx context.Context, q AvailabilityQuery) (resp *AvailabilityResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "check_availability",
		attribute.String("tenant_id", q.TenantID.String()),
		attribute.String("product_id", q.ProductID.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	a, err := s.calculator.Check(ctx, q.TenantID, q.ProductID, q.Quantity)
	if err != nil {
		return nil, err
	}

	status := a.Status()
	span.SetAttributes(attribute.String("status", status))
	s.metrics.RecordAvailabilityCheck(ctx, status)

	logger.WithLogger(ctx, s.logger).Debug("Availability checked",
		zap.String("product_id", q.ProductID.String()),
		zap.String("status", status),
		zap.String("max_producible_quantity", a.MaxProducibleQuantity.String()),
	)
	return ToAvailabilityResponse(a), nil
}

// BulkCheckAvailability checks each product independently at the same
// quantity. Per-product failures are reported inline.
func (s *BOMService) BulkCheckAvailability(ctx context.Context, q BulkAvailabilityQuery) (resp *BulkAvailabilityResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "bulk_check_availability",
		attribute.String("tenant_id", q.TenantID.String()),
		attribute.Int("products", len(q.ProductIDs)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	verdicts, err := s.calculator.BulkCheck(ctx, q.TenantID, q.ProductIDs, q.Quantity)
	if err != nil {
		return nil, err
	}

	resp = ToBulkAvailabilityResponse(verdicts)
	for _, item := range resp.Results {
		if item.Availability != nil {
			s.metrics.RecordAvailabilityCheck(ctx, item.Availability.Status)
		}
	}
	if resp.Failed > 0 {
		logger.WithLogger(ctx, s.logger).Info("Bulk availability check had failing products",
			zap.Int("failed", resp.Failed),
			zap.Int("products", len(q.ProductIDs)),
		)
	}
	return resp, nil
}

// PlanMultiProduct allocates current stock across the requests using the
// named strategy (empty selects the configured default)
func (s *BOMService) PlanMultiProduct(ctx context.Context, cmd PlanCommand) (resp *PlanResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "plan_multi_product",
		attribute.String("tenant_id", cmd.TenantID.String()),
		attribute.Int("requests", len(cmd.Requests)),
		attribute.String("strategy", cmd.Strategy),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	requests := make([]production.PlanRequest, len(cmd.Requests))
	for i, r := range cmd.Requests {
		requests[i] = production.PlanRequest{ProductID: r.ProductID, Quantity: r.Quantity}
	}

	plan, err := s.planner.Plan(ctx, cmd.TenantID, requests, cmd.Strategy)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPlan(ctx, plan.Strategy, len(plan.Bottlenecks))
	if len(plan.Bottlenecks) > 0 {
		logger.WithLogger(ctx, s.logger).Info("Production plan constrained by stock",
			zap.String("strategy", plan.Strategy),
			zap.Int("bottlenecks", len(plan.Bottlenecks)),
		)
	}
	return ToPlanResponse(plan), nil
}
