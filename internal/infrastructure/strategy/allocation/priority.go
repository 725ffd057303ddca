package allocation

import (
	"context"

	"github.com/erp/bomengine/internal/domain/shared/strategy"
)

// PriorityAllocationStrategy serves requests in the order they were
// submitted: each takes as much as it can from what earlier ones left.
type PriorityAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewPriorityAllocationStrategy creates a new priority allocation strategy
func NewPriorityAllocationStrategy() *PriorityAllocationStrategy {
	return &PriorityAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			strategy.AllocationPriority,
			strategy.StrategyTypeAllocation,
			"Serve production requests in submission order",
		),
	}
}

// Allocate grants requests in input order against the remaining pool
func (s *PriorityAllocationStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	requests []strategy.ProductionRequest,
) ([]strategy.ProductionGrant, error) {
	remaining := strategy.CopyStock(allocCtx.Stock)
	grants := make([]strategy.ProductionGrant, len(requests))

	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		achievable, limiting := strategy.GrantWithin(req, remaining)
		strategy.Deduct(remaining, strategy.ConsumptionFor(req, achievable))

		grants[i] = strategy.ProductionGrant{
			ProductID:          req.ProductID,
			RequestedQuantity:  req.RequestedQuantity,
			AchievableQuantity: achievable,
			LimitingMaterials:  limiting,
		}
	}
	return grants, nil
}
