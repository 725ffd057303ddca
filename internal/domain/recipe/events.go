package recipe

import (
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeRecipe = "Recipe"

// Event type constants
const (
	EventTypeRecipeActivated   = "RecipeActivated"
	EventTypeRecipeDeactivated = "RecipeDeactivated"
)

// RecipeActivatedEvent is raised when a recipe becomes the product's active recipe
type RecipeActivatedEvent struct {
	shared.BaseDomainEvent
	RecipeID  uuid.UUID `json:"recipe_id"`
	ProductID uuid.UUID `json:"product_id"`
}

// NewRecipeActivatedEvent creates a new RecipeActivatedEvent
func NewRecipeActivatedEvent(r *Recipe) *RecipeActivatedEvent {
	return &RecipeActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecipeActivated, AggregateTypeRecipe, r.ID, r.TenantID),
		RecipeID:        r.ID,
		ProductID:       r.ProductID,
	}
}

// RecipeDeactivatedEvent is raised when a recipe stops being active
type RecipeDeactivatedEvent struct {
	shared.BaseDomainEvent
	RecipeID  uuid.UUID `json:"recipe_id"`
	ProductID uuid.UUID `json:"product_id"`
}

// NewRecipeDeactivatedEvent creates a new RecipeDeactivatedEvent
func NewRecipeDeactivatedEvent(r *Recipe) *RecipeDeactivatedEvent {
	return &RecipeDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecipeDeactivated, AggregateTypeRecipe, r.ID, r.TenantID),
		RecipeID:        r.ID,
		ProductID:       r.ProductID,
	}
}
