package bom

import (
	"context"
	"errors"
	"fmt"

	appinv "github.com/erp/bomengine/internal/application/inventory"
	"github.com/erp/bomengine/internal/domain/recipe"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RecipeService manages recipes and the single-active-recipe rule
type RecipeService struct {
	recipes   recipe.RecipeRepository
	scope     appinv.TransactionScope
	logger    *zap.Logger
	publisher shared.EventPublisher
}

// NewRecipeService creates a new RecipeService
func NewRecipeService(recipes recipe.RecipeRepository, scope appinv.TransactionScope, log *zap.Logger) *RecipeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecipeService{recipes: recipes, scope: scope, logger: log}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *RecipeService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateRecipe stores a new recipe. Every component must reference a live
// material of the tenant counted in the same unit. With cmd.Activate
// the recipe replaces the product's active recipe in the same transaction.
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (resp *RecipeResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", "create",
		attribute.String("tenant_id", cmd.TenantID.String()),
		attribute.String("product_id", cmd.ProductID.String()),
		attribute.Int("components", len(cmd.Components)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	rcp, err := buildRecipe(cmd)
	if err != nil {
		return nil, err
	}

	var previous *recipe.Recipe
	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if err := checkComponents(ctx, repos, rcp); err != nil {
			return err
		}
		if err := repos.RecipeRepo().Create(ctx, rcp); err != nil {
			return err
		}
		if !cmd.Activate {
			return nil
		}
		var aerr error
		previous, aerr = switchActive(ctx, repos, rcp)
		return aerr
	})
	if err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Recipe created",
		zap.String("recipe_id", rcp.ID.String()),
		zap.String("product_id", rcp.ProductID.String()),
		zap.Bool("active", rcp.IsActive),
	)
	s.publishDomainEvents(ctx, previous, rcp)

	out := ToRecipeResponse(rcp)
	return &out, nil
}

func buildRecipe(cmd CreateRecipeCommand) (*recipe.Recipe, error) {
	yieldUnit, err := valueobject.ParseMeasureUnit(cmd.YieldUnit)
	if err != nil {
		return nil, shared.ErrInvalidUnit.WithMessage(err.Error())
	}
	rcp, err := recipe.NewRecipe(cmd.TenantID, cmd.ProductID, cmd.Name, cmd.YieldQuantity, yieldUnit)
	if err != nil {
		return nil, err
	}
	if err := rcp.SetNotes(cmd.Notes); err != nil {
		return nil, err
	}
	if len(cmd.Components) == 0 {
		return nil, shared.ErrValidation.WithMessage("A recipe needs at least one component")
	}
	for i, c := range cmd.Components {
		unit, err := valueobject.ParseMeasureUnit(c.Unit)
		if err != nil {
			return nil, shared.ErrInvalidUnit.WithMessage(fmt.Sprintf("components[%d]: %s", i, err))
		}
		if _, err := rcp.AddComponent(c.MaterialID, c.QuantityRequired, unit, c.WastePercentage, c.Notes); err != nil {
			return nil, withComponentIndex(err, i)
		}
	}
	return rcp, nil
}

func withComponentIndex(err error, i int) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.WithMessage(fmt.Sprintf("components[%d]: %s", i, de.Message))
	}
	return fmt.Errorf("components[%d]: %w", i, err)
}

// checkComponents verifies every referenced material exists for the tenant
// and is counted in the component's unit
func checkComponents(ctx context.Context, repos appinv.TransactionalRepositories, rcp *recipe.Recipe) error {
	found, err := repos.MaterialRepo().FindByIDs(ctx, rcp.TenantID, rcp.MaterialIDs())
	if err != nil {
		return fmt.Errorf("load recipe materials: %w", err)
	}
	byID := make(map[uuid.UUID]int, len(found))
	for i := range found {
		byID[found[i].ID] = i
	}
	for i, c := range rcp.Components {
		idx, ok := byID[c.MaterialID]
		if !ok || found[idx].IsDeleted() {
			return shared.ErrMaterialNotFound.WithMessage(fmt.Sprintf("components[%d]: material %s not found", i, c.MaterialID))
		}
		if err := recipe.CheckUnit(c, &found[idx]); err != nil {
			return withComponentIndex(err, i)
		}
	}
	return nil
}

// switchActive makes target the product's active recipe and returns the
// recipe it replaced, if any. The previous recipe is saved first so the
// one-active-per-product index never sees two active rows.
func switchActive(ctx context.Context, repos appinv.TransactionalRepositories, target *recipe.Recipe) (*recipe.Recipe, error) {
	previous, err := repos.RecipeRepo().FindActiveByProduct(ctx, target.TenantID, target.ProductID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		previous = nil
	}

	if err := (recipe.Activation{Target: target, Previous: previous}).Activate(); err != nil {
		return nil, err
	}
	if previous != nil {
		if err := repos.RecipeRepo().SaveWithLock(ctx, previous); err != nil {
			return nil, err
		}
	}
	if err := repos.RecipeRepo().SaveWithLock(ctx, target); err != nil {
		return nil, err
	}
	return previous, nil
}

// ActivateRecipe makes the recipe its product's active recipe, deactivating
// the previous one atomically
func (s *RecipeService) ActivateRecipe(ctx context.Context, tenantID, recipeID uuid.UUID) (resp *RecipeResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", "activate",
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("recipe_id", recipeID.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	var target, previous *recipe.Recipe
	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var ferr error
		target, ferr = repos.RecipeRepo().FindByIDForTenant(ctx, tenantID, recipeID)
		if ferr != nil {
			return ferr
		}
		if target.IsActive {
			return shared.ErrInvalidState.WithMessage("Recipe is already active")
		}
		if err := checkComponents(ctx, repos, target); err != nil {
			return err
		}
		previous, ferr = switchActive(ctx, repos, target)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("recipe_id", target.ID.String()),
		zap.String("product_id", target.ProductID.String()),
	}
	if previous != nil {
		fields = append(fields, zap.String("previous_recipe_id", previous.ID.String()))
	}
	logger.WithLogger(ctx, s.logger).Info("Recipe activated", fields...)
	s.publishDomainEvents(ctx, previous, target)

	out := ToRecipeResponse(target)
	return &out, nil
}

// DeactivateRecipe leaves the product without an active recipe
func (s *RecipeService) DeactivateRecipe(ctx context.Context, tenantID, recipeID uuid.UUID) (*RecipeResponse, error) {
	var target *recipe.Recipe
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var ferr error
		target, ferr = repos.RecipeRepo().FindByIDForTenant(ctx, tenantID, recipeID)
		if ferr != nil {
			return ferr
		}
		if err := target.Deactivate(); err != nil {
			return err
		}
		return repos.RecipeRepo().SaveWithLock(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Recipe deactivated", zap.String("recipe_id", target.ID.String()))
	s.publishDomainEvents(ctx, target)

	out := ToRecipeResponse(target)
	return &out, nil
}

// GetRecipe returns a recipe with its components
func (s *RecipeService) GetRecipe(ctx context.Context, tenantID, recipeID uuid.UUID) (*RecipeResponse, error) {
	rcp, err := s.recipes.FindByIDForTenant(ctx, tenantID, recipeID)
	if err != nil {
		return nil, err
	}
	out := ToRecipeResponse(rcp)
	return &out, nil
}

// ListProductRecipes lists every recipe of a product, newest first
func (s *RecipeService) ListProductRecipes(ctx context.Context, tenantID, productID uuid.UUID, page, pageSize int) ([]RecipeResponse, error) {
	rows, err := s.recipes.FindByProduct(ctx, tenantID, productID, shared.Filter{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, err
	}
	out := make([]RecipeResponse, len(rows))
	for i := range rows {
		out[i] = ToRecipeResponse(&rows[i])
	}
	return out, nil
}

func (s *RecipeService) publishDomainEvents(ctx context.Context, recipes ...*recipe.Recipe) {
	var events []shared.DomainEvent
	for _, r := range recipes {
		if r == nil {
			continue
		}
		events = append(events, r.GetDomainEvents()...)
		r.ClearDomainEvents()
	}
	if s.publisher == nil || len(events) == 0 {
		return
	}
	_ = s.publisher.Publish(ctx, events...)
}
