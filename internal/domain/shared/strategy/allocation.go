package strategy

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Names of the built-in production allocation strategies
const (
	AllocationPriority = "priority"
	AllocationBalanced = "balanced"
	AllocationMaximize = "maximize"
)

// ProductionRequest is one competing production request with its material
// consumption already resolved for the full requested quantity.
type ProductionRequest struct {
	ProductID         uuid.UUID
	RequestedQuantity decimal.Decimal
	// Materials lists the consumed materials in recipe order
	Materials []uuid.UUID
	// Consumption maps material ID to the waste-adjusted quantity needed to
	// produce RequestedQuantity.
	Consumption map[uuid.UUID]decimal.Decimal
	// EstimatedCost is the total material cost of the full request; only
	// meaningful when CostKnown is true.
	EstimatedCost decimal.Decimal
	CostKnown     bool
}

// AllocationContext describes the shared material pool
type AllocationContext struct {
	TenantID uuid.UUID
	// Stock maps material ID to the quantity currently on hand
	Stock map[uuid.UUID]decimal.Decimal
	// Demand maps material ID to the aggregate consumption of all requests
	Demand map[uuid.UUID]decimal.Decimal
	// Bottlenecks holds the materials whose aggregate demand exceeds stock
	Bottlenecks map[uuid.UUID]bool
}

// IsBottleneck reports whether the material is over-subscribed
func (c AllocationContext) IsBottleneck(materialID uuid.UUID) bool {
	return c.Bottlenecks[materialID]
}

// ProductionGrant is the outcome of allocation for one request
type ProductionGrant struct {
	ProductID          uuid.UUID
	RequestedQuantity  decimal.Decimal
	AchievableQuantity decimal.Decimal
	LimitingMaterials  []uuid.UUID
}

// ProductionAllocationStrategy divides a scarce material pool between
// competing production requests. Implementations return one grant per
// request, in request order, and must never hand out more of a material than
// AllocationContext.Stock holds.
type ProductionAllocationStrategy interface {
	Strategy
	Allocate(ctx context.Context, allocCtx AllocationContext, requests []ProductionRequest) ([]ProductionGrant, error)
}
