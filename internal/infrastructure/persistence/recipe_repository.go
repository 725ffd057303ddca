package persistence

import (
	"context"
	"errors"

	"github.com/erp/bomengine/internal/domain/recipe"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/erp/bomengine/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecipeRepository implements recipe.RecipeRepository using GORM
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

func (r *GormRecipeRepository) withComponents(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Components", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	})
}

// FindByIDForTenant finds a recipe and its components
func (r *GormRecipeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*recipe.Recipe, error) {
	var model models.RecipeModel
	if err := r.withComponents(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrRecipeNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByProduct returns the product's active recipe
func (r *GormRecipeRepository) FindActiveByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*recipe.Recipe, error) {
	var model models.RecipeModel
	if err := r.withComponents(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("product_id = ? AND is_active = ?", productID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct lists a product's recipes, newest first
func (r *GormRecipeRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) ([]recipe.Recipe, error) {
	filter = filter.Normalize()
	orderBy := ValidateSortField(filter.OrderBy, RecipeSortFields, "created_at")

	var rows []models.RecipeModel
	if err := r.withComponents(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("product_id = ?", productID).
		Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]recipe.Recipe, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts the recipe header and its components
func (r *GormRecipeRepository) Create(ctx context.Context, rcp *recipe.Recipe) error {
	model := models.RecipeModelFromDomain(rcp)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Components").Create(model).Error; err != nil {
			return err
		}
		if len(model.Components) == 0 {
			return nil
		}
		return tx.Create(&model.Components).Error
	})
}

// SaveWithLock updates the recipe header under optimistic locking.
// Components are immutable once created.
func (r *GormRecipeRepository) SaveWithLock(ctx context.Context, rcp *recipe.Recipe) error {
	result := r.db.WithContext(ctx).
		Model(&models.RecipeModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", rcp.ID, rcp.TenantID, rcp.Version-1).
		Updates(map[string]any{
			"name":         rcp.Name,
			"is_active":    rcp.IsActive,
			"activated_at": rcp.ActivatedAt,
			"notes":        rcp.Notes,
			"version":      rcp.Version,
			"updated_at":   rcp.UpdatedAt,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return shared.ErrConcurrencyConflict.WithMessage("Another recipe was activated for this product concurrently")
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("Recipe was modified by another transaction")
	}
	return nil
}

var _ recipe.RecipeRepository = (*GormRecipeRepository)(nil)
