package recipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialReader is the slice of the material store the resolver needs
type MaterialReader interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Material, error)
}

// Requirement is the quantity of one material needed for a production run
type Requirement struct {
	MaterialID        uuid.UUID               `json:"material_id"`
	MaterialName      string                  `json:"material_name"`
	Unit              valueobject.MeasureUnit `json:"unit"`
	WastePercentage   decimal.Decimal         `json:"waste_percentage"`
	RequiredQuantity  decimal.Decimal         `json:"required_quantity"`
	EffectiveQuantity decimal.Decimal         `json:"effective_quantity"`
	EstimatedCost     decimal.Decimal         `json:"estimated_cost"`
}

// Resolution is a recipe expanded for a target quantity
type Resolution struct {
	Recipe       *Recipe
	Quantity     decimal.Decimal
	IncludeWaste bool
	Requirements []Requirement
	// Materials is the snapshot of referenced materials read during resolution
	Materials map[uuid.UUID]*inventory.Material
}

// Stock returns the on-hand quantity of every referenced material as read
// in the same statement that produced the requirements.
func (r *Resolution) Stock() map[uuid.UUID]decimal.Decimal {
	stock := make(map[uuid.UUID]decimal.Decimal, len(r.Materials))
	for id, m := range r.Materials {
		stock[id] = m.StockQuantity
	}
	return stock
}

// MaterialIDs returns the materials in requirement order
func (r *Resolution) MaterialIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Requirements))
	for i, req := range r.Requirements {
		ids[i] = req.MaterialID
	}
	return ids
}

// TotalEstimatedCost sums the requirement costs. known is false when any
// material has no unit cost recorded.
func (r *Resolution) TotalEstimatedCost() (total decimal.Decimal, known bool) {
	known = true
	for _, req := range r.Requirements {
		if req.EstimatedCost.IsZero() {
			known = false
		}
		total = total.Add(req.EstimatedCost)
	}
	return total, known
}

// Resolver expands a product's active recipe into flat material requirements.
// It never looks at stock quantities.
type Resolver struct {
	recipes   RecipeRepository
	materials MaterialReader
}

// NewResolver creates a new Resolver
func NewResolver(recipes RecipeRepository, materials MaterialReader) *Resolver {
	return &Resolver{recipes: recipes, materials: materials}
}

// Resolve computes per-material requirements for producing quantity units
// of the product:
//
//	required  = quantityRequired * (quantity / yieldQuantity)
//	effective = required * (1 + waste/100)   when includeWaste
func (r *Resolver) Resolve(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal, includeWaste bool) (*Resolution, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if productID == uuid.Nil {
		return nil, shared.ErrValidation.WithMessage("Product ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}

	active, err := r.recipes.FindActiveByProduct(ctx, tenantID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNoActiveRecipe.WithMessage(fmt.Sprintf("Product %s has no active recipe", productID))
		}
		return nil, fmt.Errorf("load active recipe: %w", err)
	}

	materials, err := r.loadMaterials(ctx, tenantID, active.MaterialIDs())
	if err != nil {
		return nil, err
	}

	reqs, err := Expand(active, materials, quantity, includeWaste)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Recipe:       active,
		Quantity:     quantity,
		IncludeWaste: includeWaste,
		Requirements: reqs,
		Materials:    materials,
	}, nil
}

func (r *Resolver) loadMaterials(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*inventory.Material, error) {
	found, err := r.materials.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load recipe materials: %w", err)
	}
	byID := make(map[uuid.UUID]*inventory.Material, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	return byID, nil
}

// Expand applies the requirement arithmetic to a recipe. materials must hold
// every material the recipe references.
func Expand(rcp *Recipe, materials map[uuid.UUID]*inventory.Material, quantity decimal.Decimal, includeWaste bool) ([]Requirement, error) {
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	if !rcp.YieldQuantity.IsPositive() {
		return nil, shared.ErrValidation.WithMessage(fmt.Sprintf("Recipe %s has a non-positive yield", rcp.ID))
	}

	reqs := make([]Requirement, 0, len(rcp.Components))
	for _, c := range rcp.Components {
		m, ok := materials[c.MaterialID]
		if !ok || m.IsDeleted() {
			return nil, shared.ErrMaterialNotFound.WithMessage(fmt.Sprintf("Material %s referenced by recipe %s not found", c.MaterialID, rcp.ID))
		}
		if err := CheckUnit(c, m); err != nil {
			return nil, err
		}

		required := c.QuantityRequired.Mul(quantity).Div(rcp.YieldQuantity)
		effective := required
		if includeWaste {
			effective = valueobject.ApplyWaste(required, c.WastePercentage)
		}

		reqs = append(reqs, Requirement{
			MaterialID:        c.MaterialID,
			MaterialName:      m.Name,
			Unit:              c.Unit,
			WastePercentage:   c.WastePercentage,
			RequiredQuantity:  required,
			EffectiveQuantity: effective,
			EstimatedCost:     effective.Mul(m.UnitCost),
		})
	}
	return reqs, nil
}

// CheckUnit verifies a component is measured in its material's unit
func CheckUnit(c RecipeComponent, m *inventory.Material) error {
	if c.Unit.CompatibleWith(m.Unit) {
		return nil
	}
	if c.Unit.SameDimension(m.Unit) {
		return shared.ErrUnitMismatch.WithMessage(fmt.Sprintf(
			"Component unit %s does not match material %s unit %s; express the component in %s",
			c.Unit, m.ID, m.Unit, m.Unit,
		))
	}
	return shared.ErrUnitMismatch.WithMessage(fmt.Sprintf(
		"Component unit %s (%s) does not match material %s unit %s (%s)",
		c.Unit, c.Unit.Dimension(), m.ID, m.Unit, m.Unit.Dimension(),
	))
}
