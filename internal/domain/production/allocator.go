package production

import (
	"context"
	"fmt"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxPlanRequests is the largest accepted multi-product plan
const DefaultMaxPlanRequests = 20

// allocationTolerance absorbs the last-digit rounding of scaled consumption
var allocationTolerance = decimal.New(1, -9)

// StrategyLookup finds allocation strategies by name
type StrategyLookup interface {
	GetProductionAllocationStrategy(name string) (strategy.ProductionAllocationStrategy, error)
}

// PlanRequest is one product competing for the shared material pool
type PlanRequest struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// PlanLine is the allocation outcome for one request
type PlanLine struct {
	ProductID          uuid.UUID       `json:"product_id"`
	RequestedQuantity  decimal.Decimal `json:"requested_quantity"`
	AchievableQuantity decimal.Decimal `json:"achievable_quantity"`
	LimitingMaterials  []uuid.UUID     `json:"limiting_materials"`
}

// FullySatisfied reports whether the whole request can be produced
func (l PlanLine) FullySatisfied() bool {
	return l.AchievableQuantity.Equal(l.RequestedQuantity)
}

// Bottleneck is a material whose aggregate demand exceeds stock
type Bottleneck struct {
	MaterialID   uuid.UUID               `json:"material_id"`
	MaterialName string                  `json:"material_name"`
	Unit         valueobject.MeasureUnit `json:"unit"`
	Available    decimal.Decimal         `json:"available"`
	Demand       decimal.Decimal         `json:"demand"`
	Allocated    decimal.Decimal         `json:"allocated"`
}

// Plan is the result of allocating stock across several requests. Lines are
// in request order.
type Plan struct {
	Strategy    string       `json:"strategy"`
	Lines       []PlanLine   `json:"lines"`
	Bottlenecks []Bottleneck `json:"bottlenecks"`
}

// AllocatorOption configures an Allocator
type AllocatorOption func(*Allocator)

// WithMaxPlanRequests overrides the plan size limit
func WithMaxPlanRequests(n int) AllocatorOption {
	return func(a *Allocator) {
		if n > 0 {
			a.maxRequests = n
		}
	}
}

// WithDefaultStrategy sets the strategy used when a plan names none
func WithDefaultStrategy(name string) AllocatorOption {
	return func(a *Allocator) {
		if name != "" {
			a.defaultStrategy = name
		}
	}
}

// Allocator divides current stock between competing production requests.
// It never writes.
type Allocator struct {
	resolver        RequirementResolver
	stock           StockReader
	strategies      StrategyLookup
	maxRequests     int
	defaultStrategy string
}

// NewAllocator creates a new Allocator
func NewAllocator(resolver RequirementResolver, stock StockReader, strategies StrategyLookup, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		resolver:        resolver,
		stock:           stock,
		strategies:      strategies,
		maxRequests:     DefaultMaxPlanRequests,
		defaultStrategy: strategy.AllocationPriority,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Plan allocates the material pool between requests using the named
// strategy. When no material is over-subscribed every request is granted in
// full and the strategy is not consulted.
func (a *Allocator) Plan(ctx context.Context, tenantID uuid.UUID, requests []PlanRequest, strategyName string) (*Plan, error) {
	if err := a.validate(tenantID, requests); err != nil {
		return nil, err
	}
	if strategyName == "" {
		strategyName = a.defaultStrategy
	}
	alloc, err := a.strategies.GetProductionAllocationStrategy(strategyName)
	if err != nil {
		return nil, shared.ErrInvalidStrategy.WithMessage(fmt.Sprintf("Unknown allocation strategy %q", strategyName))
	}

	prodReqs := make([]strategy.ProductionRequest, len(requests))
	names := make(map[uuid.UUID]string)
	units := make(map[uuid.UUID]valueobject.MeasureUnit)
	order := make([]uuid.UUID, 0)
	for i, r := range requests {
		res, err := a.resolver.Resolve(ctx, tenantID, r.ProductID, r.Quantity, true)
		if err != nil {
			return nil, err
		}
		pr := strategy.ProductionRequest{
			ProductID:         r.ProductID,
			RequestedQuantity: r.Quantity,
			Materials:         make([]uuid.UUID, 0, len(res.Requirements)),
			Consumption:       make(map[uuid.UUID]decimal.Decimal, len(res.Requirements)),
		}
		pr.EstimatedCost, pr.CostKnown = res.TotalEstimatedCost()
		for _, req := range res.Requirements {
			if _, seen := pr.Consumption[req.MaterialID]; !seen {
				pr.Materials = append(pr.Materials, req.MaterialID)
			}
			pr.Consumption[req.MaterialID] = pr.Consumption[req.MaterialID].Add(req.EffectiveQuantity)
			if _, seen := names[req.MaterialID]; !seen {
				order = append(order, req.MaterialID)
				names[req.MaterialID] = req.MaterialName
				units[req.MaterialID] = req.Unit
			}
		}
		prodReqs[i] = pr
	}

	stock, err := LoadStock(ctx, a.stock, tenantID, order)
	if err != nil {
		return nil, err
	}

	allocCtx := strategy.AllocationContext{
		TenantID:    tenantID,
		Stock:       stock,
		Demand:      make(map[uuid.UUID]decimal.Decimal, len(order)),
		Bottlenecks: make(map[uuid.UUID]bool),
	}
	for _, pr := range prodReqs {
		for id, q := range pr.Consumption {
			allocCtx.Demand[id] = allocCtx.Demand[id].Add(q)
		}
	}
	for _, id := range order {
		if allocCtx.Demand[id].GreaterThan(stock[id]) {
			allocCtx.Bottlenecks[id] = true
		}
	}

	var grants []strategy.ProductionGrant
	if len(allocCtx.Bottlenecks) == 0 {
		grants = fullGrants(prodReqs)
	} else {
		grants, err = alloc.Allocate(ctx, allocCtx, prodReqs)
		if err != nil {
			return nil, fmt.Errorf("allocate with %s: %w", alloc.Name(), err)
		}
	}

	allocated, err := checkGrants(prodReqs, grants, stock)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", alloc.Name(), err)
	}

	plan := &Plan{
		Strategy:    alloc.Name(),
		Lines:       make([]PlanLine, len(grants)),
		Bottlenecks: make([]Bottleneck, 0, len(allocCtx.Bottlenecks)),
	}
	for i, g := range grants {
		limiting := g.LimitingMaterials
		if limiting == nil {
			limiting = make([]uuid.UUID, 0)
		}
		plan.Lines[i] = PlanLine{
			ProductID:          g.ProductID,
			RequestedQuantity:  g.RequestedQuantity,
			AchievableQuantity: g.AchievableQuantity,
			LimitingMaterials:  limiting,
		}
	}
	for _, id := range order {
		if !allocCtx.Bottlenecks[id] {
			continue
		}
		plan.Bottlenecks = append(plan.Bottlenecks, Bottleneck{
			MaterialID:   id,
			MaterialName: names[id],
			Unit:         units[id],
			Available:    stock[id],
			Demand:       allocCtx.Demand[id],
			Allocated:    allocated[id],
		})
	}
	return plan, nil
}

func (a *Allocator) validate(tenantID uuid.UUID, requests []PlanRequest) error {
	if tenantID == uuid.Nil {
		return shared.ErrTenantRequired
	}
	if len(requests) == 0 {
		return shared.ErrValidation.WithMessage("At least one production request is required")
	}
	if len(requests) > a.maxRequests {
		return shared.ErrBatchTooLarge.WithMessage(fmt.Sprintf("At most %d production requests can be planned at once, got %d", a.maxRequests, len(requests)))
	}
	for i, r := range requests {
		if r.ProductID == uuid.Nil {
			return shared.ErrValidation.WithMessage(fmt.Sprintf("Request %d has no product ID", i))
		}
		if !r.Quantity.IsPositive() {
			return shared.ErrInvalidQuantity.WithMessage(fmt.Sprintf("Request %d quantity must be greater than zero", i))
		}
	}
	return nil
}

func fullGrants(reqs []strategy.ProductionRequest) []strategy.ProductionGrant {
	grants := make([]strategy.ProductionGrant, len(reqs))
	for i, r := range reqs {
		grants[i] = strategy.ProductionGrant{
			ProductID:          r.ProductID,
			RequestedQuantity:  r.RequestedQuantity,
			AchievableQuantity: r.RequestedQuantity,
			LimitingMaterials:  make([]uuid.UUID, 0),
		}
	}
	return grants
}

// checkGrants verifies the strategy output lines up with the requests and
// that no material is allocated beyond its stock. It returns the total
// allocation per material.
func checkGrants(reqs []strategy.ProductionRequest, grants []strategy.ProductionGrant, stock map[uuid.UUID]decimal.Decimal) (map[uuid.UUID]decimal.Decimal, error) {
	if len(grants) != len(reqs) {
		return nil, fmt.Errorf("returned %d grants for %d requests", len(grants), len(reqs))
	}
	allocated := make(map[uuid.UUID]decimal.Decimal)
	for i, g := range grants {
		r := reqs[i]
		if g.ProductID != r.ProductID {
			return nil, fmt.Errorf("grant %d is for product %s, want %s", i, g.ProductID, r.ProductID)
		}
		if g.AchievableQuantity.IsNegative() || g.AchievableQuantity.GreaterThan(r.RequestedQuantity) {
			return nil, fmt.Errorf("grant %d quantity %s outside [0, %s]", i, g.AchievableQuantity, r.RequestedQuantity)
		}
		for id, q := range strategy.ConsumptionFor(r, g.AchievableQuantity) {
			allocated[id] = allocated[id].Add(q)
		}
	}
	for id, q := range allocated {
		if q.Sub(stock[id]).GreaterThan(allocationTolerance) {
			return nil, fmt.Errorf("material %s over-allocated: %s of %s", id, q, stock[id])
		}
		allocated[id] = decimal.Min(q, stock[id])
	}
	return allocated, nil
}
