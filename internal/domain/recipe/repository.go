package recipe

import (
	"context"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
)

// RecipeRepository defines the interface for recipe persistence.
// Recipes are always loaded together with their components.
type RecipeRepository interface {
	// FindByIDForTenant finds a recipe by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Recipe, error)

	// FindActiveByProduct returns the product's active recipe, or
	// shared.ErrNotFound when there is none
	FindActiveByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*Recipe, error)

	// FindByProduct lists every recipe of a product
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) ([]Recipe, error)

	// Create inserts a recipe and its components
	Create(ctx context.Context, recipe *Recipe) error

	// SaveWithLock saves the recipe header with optimistic locking
	SaveWithLock(ctx context.Context, recipe *Recipe) error
}
