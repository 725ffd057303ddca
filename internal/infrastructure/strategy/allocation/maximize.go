package allocation

import (
	"context"
	"sort"

	"github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// MaximizeAllocationStrategy completes as many requests as possible. Requests
// are ranked cheapest first by total material cost, or smallest first when
// any request's cost is unknown, and each is granted in full or not at all.
type MaximizeAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewMaximizeAllocationStrategy creates a new maximize allocation strategy
func NewMaximizeAllocationStrategy() *MaximizeAllocationStrategy {
	return &MaximizeAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			strategy.AllocationMaximize,
			strategy.StrategyTypeAllocation,
			"Complete the largest number of production requests",
		),
	}
}

// Allocate grants whole requests in ranking order while they fit
func (s *MaximizeAllocationStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	requests []strategy.ProductionRequest,
) ([]strategy.ProductionGrant, error) {
	order := rank(requests)
	remaining := strategy.CopyStock(allocCtx.Stock)
	grants := make([]strategy.ProductionGrant, len(requests))

	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req := requests[i]
		achievable := decimal.Zero
		limiting := strategy.Short(req.Materials, req.Consumption, remaining)
		if len(limiting) == 0 {
			achievable = req.RequestedQuantity
			strategy.Deduct(remaining, req.Consumption)
		}

		grants[i] = strategy.ProductionGrant{
			ProductID:          req.ProductID,
			RequestedQuantity:  req.RequestedQuantity,
			AchievableQuantity: achievable,
			LimitingMaterials:  limiting,
		}
	}
	return grants, nil
}

// rank returns request indexes in grant order. Ties keep submission order.
func rank(requests []strategy.ProductionRequest) []int {
	byCost := true
	for _, r := range requests {
		if !r.CostKnown {
			byCost = false
			break
		}
	}

	order := make([]int, len(requests))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := requests[order[a]], requests[order[b]]
		if byCost {
			return ra.EstimatedCost.LessThan(rb.EstimatedCost)
		}
		return ra.RequestedQuantity.LessThan(rb.RequestedQuantity)
	})
	return order
}
