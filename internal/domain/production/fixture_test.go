package production_test

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/recipe"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// catalog is an in-memory recipe and material store for one tenant
type catalog struct {
	mu        sync.Mutex
	tenantID  uuid.UUID
	recipes   map[uuid.UUID]*recipe.Recipe
	materials map[uuid.UUID]*inventory.Material
	reads     int
}

func newCatalog() *catalog {
	return &catalog{
		tenantID:  uuid.New(),
		recipes:   make(map[uuid.UUID]*recipe.Recipe),
		materials: make(map[uuid.UUID]*inventory.Material),
	}
}

func (c *catalog) addMaterial(t *testing.T, name string, stock, unitCost string) *inventory.Material {
	t.Helper()
	m, err := inventory.NewMaterial(c.tenantID, name, valueobject.UnitKilogram)
	require.NoError(t, err)
	m.StockQuantity = d(stock)
	if unitCost != "" {
		require.NoError(t, m.SetUnitCost(d(unitCost)))
	}
	c.materials[m.ID] = m
	return m
}

type component struct {
	material *inventory.Material
	quantity string
	waste    string
}

// addProduct creates an active recipe yielding one unit and returns the product ID
func (c *catalog) addProduct(t *testing.T, components ...component) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	r, err := recipe.NewRecipe(c.tenantID, productID, "recipe", d("1"), valueobject.UnitPiece)
	require.NoError(t, err)
	for _, comp := range components {
		waste := comp.waste
		if waste == "" {
			waste = "0"
		}
		_, err := r.AddComponent(comp.material.ID, d(comp.quantity), comp.material.Unit, d(waste), "")
		require.NoError(t, err)
	}
	require.NoError(t, r.Activate())
	c.recipes[productID] = r
	return productID
}

func (c *catalog) resolver() *recipe.Resolver {
	return recipe.NewResolver(c, c)
}

func (c *catalog) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Material, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	out := make([]inventory.Material, 0, len(ids))
	if tenantID != c.tenantID {
		return out, nil
	}
	for _, id := range ids {
		if m, ok := c.materials[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (c *catalog) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*recipe.Recipe, error) {
	for _, r := range c.recipes {
		if r.ID == id && r.TenantID == tenantID {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (c *catalog) FindActiveByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*recipe.Recipe, error) {
	r, ok := c.recipes[productID]
	if !ok || r.TenantID != tenantID || !r.IsActive {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

func (c *catalog) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) ([]recipe.Recipe, error) {
	r, ok := c.recipes[productID]
	if !ok {
		return []recipe.Recipe{}, nil
	}
	return []recipe.Recipe{*r}, nil
}

func (c *catalog) Create(ctx context.Context, r *recipe.Recipe) error {
	c.recipes[r.ProductID] = r
	return nil
}

func (c *catalog) SaveWithLock(ctx context.Context, r *recipe.Recipe) error {
	c.recipes[r.ProductID] = r
	return nil
}
