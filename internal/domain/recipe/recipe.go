package recipe

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field limits for recipes
const (
	MaxRecipeNameLength  = 200
	MaxRecipeNotesLength = 2000
	MaxComponents        = 200
)

var hundred = decimal.NewFromInt(100)

// Recipe converts material inputs into a fixed yield of one product. At most
// one recipe per product and tenant is active at any time.
type Recipe struct {
	shared.TenantAggregateRoot
	ProductID     uuid.UUID
	Name          string
	YieldQuantity decimal.Decimal
	YieldUnit     valueobject.MeasureUnit
	IsActive      bool
	ActivatedAt   *time.Time
	Notes         string
	Components    []RecipeComponent
}

// RecipeComponent is one material line of a recipe. QuantityRequired is per
// one full yield of the recipe.
type RecipeComponent struct {
	shared.BaseEntity
	RecipeID         uuid.UUID
	MaterialID       uuid.UUID
	QuantityRequired decimal.Decimal
	Unit             valueobject.MeasureUnit
	WastePercentage  decimal.Decimal
	Notes            string
	SortOrder        int
}

// NewRecipe creates an inactive recipe with no components
func NewRecipe(tenantID, productID uuid.UUID, name string, yieldQuantity decimal.Decimal, yieldUnit valueobject.MeasureUnit) (*Recipe, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if productID == uuid.Nil {
		return nil, shared.ErrValidation.WithMessage("Product ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrValidation.WithMessage("Recipe name cannot be empty")
	}
	if len(name) > MaxRecipeNameLength {
		return nil, shared.ErrValidation.WithMessage("Recipe name cannot exceed 200 characters")
	}
	if !yieldQuantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Yield quantity must be greater than zero")
	}
	if !valueobject.FitsStorage(yieldQuantity) {
		return nil, shared.ErrQuantityPrecision.WithMessage("Yield quantity must have at most 6 decimal places and 14 integer digits")
	}
	if !yieldUnit.IsValid() {
		return nil, shared.ErrInvalidUnit
	}

	return &Recipe{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		Name:                name,
		YieldQuantity:       yieldQuantity,
		YieldUnit:           yieldUnit,
		Components:          make([]RecipeComponent, 0),
	}, nil
}

// SetNotes sets the free-text notes
func (r *Recipe) SetNotes(notes string) error {
	if len(notes) > MaxRecipeNotesLength {
		return shared.ErrValidation.WithMessage("Recipe notes cannot exceed 2000 characters")
	}
	r.Notes = strings.TrimSpace(notes)
	r.Touch()
	return nil
}

// AddComponent appends a material line. A material may appear only once.
func (r *Recipe) AddComponent(materialID uuid.UUID, quantity decimal.Decimal, unit valueobject.MeasureUnit, wastePercentage decimal.Decimal, notes string) (*RecipeComponent, error) {
	if materialID == uuid.Nil {
		return nil, shared.ErrValidation.WithMessage("Material ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Component quantity must be greater than zero")
	}
	if !valueobject.FitsStorage(quantity) {
		return nil, shared.ErrQuantityPrecision.WithMessage("Component quantity must have at most 6 decimal places and 14 integer digits")
	}
	if !unit.IsValid() {
		return nil, shared.ErrInvalidUnit
	}
	if wastePercentage.IsNegative() || wastePercentage.GreaterThan(hundred) {
		return nil, shared.ErrValidation.WithMessage("Waste percentage must be between 0 and 100")
	}
	if !valueobject.WithinScale(wastePercentage, valueobject.WasteScale) {
		return nil, shared.ErrValidation.WithMessage("Waste percentage must have at most 2 decimal places")
	}
	if len(r.Components) >= MaxComponents {
		return nil, shared.ErrBatchTooLarge.WithMessage("A recipe cannot have more than 200 components")
	}
	for _, c := range r.Components {
		if c.MaterialID == materialID {
			return nil, shared.ErrValidation.WithMessage(fmt.Sprintf("Material %s already appears in this recipe", materialID))
		}
	}

	c := RecipeComponent{
		BaseEntity:       shared.NewBaseEntity(),
		RecipeID:         r.ID,
		MaterialID:       materialID,
		QuantityRequired: quantity,
		Unit:             unit,
		WastePercentage:  wastePercentage,
		Notes:            strings.TrimSpace(notes),
		SortOrder:        len(r.Components),
	}
	r.Components = append(r.Components, c)
	r.Touch()
	return &r.Components[len(r.Components)-1], nil
}

// MaterialIDs returns the referenced materials in component order
func (r *Recipe) MaterialIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Components))
	for i, c := range r.Components {
		ids[i] = c.MaterialID
	}
	return ids
}

// Activate marks the recipe active. Deactivating the product's previously
// active recipe is the caller's job; see Activation.
func (r *Recipe) Activate() error {
	if r.IsActive {
		return shared.ErrInvalidState.WithMessage("Recipe is already active")
	}
	if len(r.Components) == 0 {
		return shared.ErrInvalidState.WithMessage("Cannot activate a recipe without components")
	}
	now := time.Now()
	r.IsActive = true
	r.ActivatedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	r.AddDomainEvent(NewRecipeActivatedEvent(r))
	return nil
}

// Deactivate marks the recipe inactive
func (r *Recipe) Deactivate() error {
	if !r.IsActive {
		return shared.ErrInvalidState.WithMessage("Recipe is not active")
	}
	r.IsActive = false
	r.ActivatedAt = nil
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRecipeDeactivatedEvent(r))
	return nil
}

// Activation switches a product's active recipe. Previous is nil when the
// product had no active recipe.
type Activation struct {
	Target   *Recipe
	Previous *Recipe
}

// Activate applies the switch to both recipes in memory. Both must then be
// saved in one transaction.
func (a Activation) Activate() error {
	if a.Target == nil {
		return shared.ErrRecipeNotFound
	}
	if a.Previous != nil {
		if a.Previous.ID == a.Target.ID {
			return shared.ErrInvalidState.WithMessage("Recipe is already active")
		}
		if a.Previous.ProductID != a.Target.ProductID || a.Previous.TenantID != a.Target.TenantID {
			return shared.ErrInvalidState.WithMessage("Previous recipe belongs to a different product")
		}
		if err := a.Previous.Deactivate(); err != nil {
			return err
		}
	}
	return a.Target.Activate()
}
