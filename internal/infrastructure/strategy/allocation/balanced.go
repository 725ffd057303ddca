package allocation

import (
	"context"

	"github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalancedAllocationStrategy scales every request by the same share of each
// over-subscribed material. For a material the share is stock divided by
// aggregate demand; a request is scaled by the smallest share among the
// bottleneck materials it consumes.
type BalancedAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewBalancedAllocationStrategy creates a new balanced allocation strategy
func NewBalancedAllocationStrategy() *BalancedAllocationStrategy {
	return &BalancedAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			strategy.AllocationBalanced,
			strategy.StrategyTypeAllocation,
			"Share scarce materials proportionally across production requests",
		),
	}
}

// Allocate scales each request by its minimum bottleneck share
func (s *BalancedAllocationStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	requests []strategy.ProductionRequest,
) ([]strategy.ProductionGrant, error) {
	grants := make([]strategy.ProductionGrant, len(requests))

	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		limiting := make([]uuid.UUID, 0)
		for _, id := range req.Materials {
			if allocCtx.IsBottleneck(id) && req.Consumption[id].IsPositive() {
				limiting = append(limiting, id)
			}
		}

		achievable := req.RequestedQuantity
		if len(limiting) > 0 {
			// Scaling demand by the whole request lets the exact search find
			// the largest whole q with demand*q <= stock*requested.
			q, bounded := strategy.MaxWholeQuantity(req.RequestedQuantity, limiting, allocCtx.Demand, allocCtx.Stock)
			if bounded {
				achievable = decimal.Min(q, req.RequestedQuantity)
			}
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
