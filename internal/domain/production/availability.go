package production

import (
	"context"
	"fmt"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/recipe"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxBulkCheck is the largest accepted bulk availability batch
const DefaultMaxBulkCheck = 50

// defaultBulkConcurrency bounds parallel checks within one bulk request
const defaultBulkConcurrency = 8

// RequirementResolver expands a product's recipe into requirements
type RequirementResolver interface {
	Resolve(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal, includeWaste bool) (*recipe.Resolution, error)
}

// StockReader reads current material stock. All requested materials are read
// in one statement so a plan never mixes pre- and post-mutation values of
// different materials.
type StockReader interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Material, error)
}

// Shortage is a material that cannot cover its requirement
type Shortage struct {
	MaterialID   uuid.UUID               `json:"material_id"`
	MaterialName string                  `json:"material_name"`
	Unit         valueobject.MeasureUnit `json:"unit"`
	Required     decimal.Decimal         `json:"required"`
	Available    decimal.Decimal         `json:"available"`
	Shortfall    decimal.Decimal         `json:"shortfall"`
}

// Availability is the verdict for one production request
type Availability struct {
	ProductID             uuid.UUID            `json:"product_id"`
	RecipeID              uuid.UUID            `json:"recipe_id"`
	RequestedQuantity     decimal.Decimal      `json:"requested_quantity"`
	Producible            bool                 `json:"producible"`
	MaxProducibleQuantity decimal.Decimal      `json:"max_producible_quantity"`
	Shortages             []Shortage           `json:"shortages"`
	Requirements          []recipe.Requirement `json:"requirements"`
}

// Status classifies the verdict as fully satisfiable, partial or blocked
func (a *Availability) Status() string {
	switch {
	case a.Producible:
		return "producible"
	case a.MaxProducibleQuantity.IsPositive():
		return "partial"
	default:
		return "blocked"
	}
}

// BulkVerdict is one entry of a bulk check. Exactly one of Availability and
// Err is set.
type BulkVerdict struct {
	ProductID    uuid.UUID
	Availability *Availability
	Err          error
}

// AvailabilityCalculatorOption configures an AvailabilityCalculator
type AvailabilityCalculatorOption func(*AvailabilityCalculator)

// WithMaxBulkCheck overrides the bulk batch limit
func WithMaxBulkCheck(n int) AvailabilityCalculatorOption {
	return func(c *AvailabilityCalculator) {
		if n > 0 {
			c.maxBulk = n
		}
	}
}

// WithBulkConcurrency overrides how many bulk checks run in parallel
func WithBulkConcurrency(n int) AvailabilityCalculatorOption {
	return func(c *AvailabilityCalculator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// AvailabilityCalculator checks requirements against current stock. It is
// read-only.
type AvailabilityCalculator struct {
	resolver    RequirementResolver
	maxBulk     int
	concurrency int
}

// NewAvailabilityCalculator creates a new AvailabilityCalculator
func NewAvailabilityCalculator(resolver RequirementResolver, opts ...AvailabilityCalculatorOption) *AvailabilityCalculator {
	c := &AvailabilityCalculator{
		resolver:    resolver,
		maxBulk:     DefaultMaxBulkCheck,
		concurrency: defaultBulkConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check classifies a single production request. maxProducibleQuantity is
// the largest whole number of finished units the current stock supports;
// it may exceed the requested quantity, and for a producible fractional
// request it is at least the request itself.
func (c *AvailabilityCalculator) Check(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal) (*Availability, error) {
	res, err := c.resolver.Resolve(ctx, tenantID, productID, quantity, true)
	if err != nil {
		return nil, err
	}
	return Evaluate(productID, res, res.Stock()), nil
}

// BulkCheck runs Check for every product at the given quantity, each as if
// it alone had the entire stock. A failing product is reported in its own
// verdict and does not fail the batch.
func (c *AvailabilityCalculator) BulkCheck(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID, quantity decimal.Decimal) ([]BulkVerdict, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if len(productIDs) == 0 {
		return nil, shared.ErrValidation.WithMessage("At least one product is required")
	}
	if len(productIDs) > c.maxBulk {
		return nil, shared.ErrBatchTooLarge.WithMessage(fmt.Sprintf("At most %d products can be checked at once, got %d", c.maxBulk, len(productIDs)))
	}
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	seen := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		if id == uuid.Nil {
			return nil, shared.ErrValidation.WithMessage("Product ID cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return nil, shared.ErrValidation.WithMessage(fmt.Sprintf("Product %s appears more than once", id))
		}
		seen[id] = struct{}{}
	}

	verdicts := make([]BulkVerdict, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, productID := range productIDs {
		g.Go(func() error {
			a, err := c.Check(gctx, tenantID, productID, quantity)
			if err != nil && shared.KindOf(err) == shared.KindInternal {
				return err
			}
			verdicts[i] = BulkVerdict{ProductID: productID, Availability: a, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// Evaluate compares a resolution against a stock snapshot
func Evaluate(productID uuid.UUID, res *recipe.Resolution, stock map[uuid.UUID]decimal.Decimal) *Availability {
	a := &Availability{
		ProductID:         productID,
		RecipeID:          res.Recipe.ID,
		RequestedQuantity: res.Quantity,
		Producible:        true,
		Shortages:         make([]Shortage, 0),
		Requirements:      res.Requirements,
	}

	ids := make([]uuid.UUID, 0, len(res.Requirements))
	need := make(map[uuid.UUID]decimal.Decimal, len(res.Requirements))
	for _, req := range res.Requirements {
		available := stock[req.MaterialID]
		shortfall := decimal.Max(decimal.Zero, req.EffectiveQuantity.Sub(available))
		if shortfall.IsPositive() {
			a.Producible = false
			a.Shortages = append(a.Shortages, Shortage{
				MaterialID:   req.MaterialID,
				MaterialName: req.MaterialName,
				Unit:         req.Unit,
				Required:     req.EffectiveQuantity,
				Available:    available,
				Shortfall:    shortfall,
			})
		}
		ids = append(ids, req.MaterialID)
		need[req.MaterialID] = need[req.MaterialID].Add(req.EffectiveQuantity)
	}

	maxQty, bounded := strategy.MaxWholeQuantity(res.Quantity, ids, need, stock)
	if !bounded {
		maxQty = valueobject.FloorProduction(res.Quantity)
	}
	// A fractional request that fits is never reported below itself
	if a.Producible && maxQty.LessThan(res.Quantity) {
		maxQty = res.Quantity
	}
	a.MaxProducibleQuantity = maxQty
	return a
}

// LoadStock reads the stock of the given materials as one snapshot. A
// material that is missing, deleted, or owned by another tenant fails the
// load.
func LoadStock(ctx context.Context, reader StockReader, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	materials, err := reader.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load material stock: %w", err)
	}
	stock := make(map[uuid.UUID]decimal.Decimal, len(materials))
	for _, m := range materials {
		if m.IsDeleted() {
			continue
		}
		stock[m.ID] = m.StockQuantity
	}
	for _, id := range ids {
		if _, ok := stock[id]; !ok {
			return nil, shared.ErrMaterialNotFound.WithMessage(fmt.Sprintf("Material %s not found", id))
		}
	}
	return stock, nil
}
