package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bomapp "github.com/erp/bomengine/internal/application/bom"
	inventoryapp "github.com/erp/bomengine/internal/application/inventory"
	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/domain/recipe"
	"github.com/erp/bomengine/internal/infrastructure/cache"
	"github.com/erp/bomengine/internal/infrastructure/lock"
	"github.com/erp/bomengine/internal/infrastructure/persistence"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/erp/bomengine/internal/infrastructure/strategy"
	"github.com/erp/bomengine/internal/interfaces/http/dto"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type apiFixture struct {
	engine   *gin.Engine
	tenantID uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	materials := persistence.NewGormMaterialRepository(db)
	ledger := persistence.NewGormInventoryTransactionRepository(db)
	recipes := persistence.NewGormRecipeRepository(db)
	scope := persistence.NewGormTransactionScope(db)

	registry, err := strategy.NewRegistryWithDefaults("")
	require.NoError(t, err)
	resolver := recipe.NewResolver(recipes, materials)
	calculator := production.NewAvailabilityCalculator(resolver, production.WithMaxBulkCheck(10))
	allocator := production.NewAllocator(resolver, materials, registry, production.WithMaxPlanRequests(10))

	mutations := inventoryapp.NewStockMutationService(scope, lock.NewLocalLocker(time.Second), inventoryapp.MutationConfig{
		MaxRetries: 2, RetryBackoff: time.Millisecond, IdempotencyTTL: time.Minute,
	}, zap.NewNop())
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	mutations.SetIdempotencyStore(store)

	materialHandler := NewMaterialHandler(inventoryapp.NewMaterialService(materials, ledger, scope, 10, zap.NewNop()), mutations)
	recipeHandler := NewRecipeHandler(bomapp.NewRecipeService(recipes, scope, zap.NewNop()))
	bomHandler := NewBOMHandler(bomapp.NewBOMService(resolver, calculator, allocator, zap.NewNop()))

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.TenantMiddleware())
	api := engine.Group("/api/v1")
	api.POST("/materials/bulk", materialHandler.BulkCreate)
	api.GET("/materials", materialHandler.List)
	api.GET("/materials/:id", materialHandler.GetByID)
	api.DELETE("/materials/:id", materialHandler.Delete)
	api.POST("/materials/:id/stock-mutations", materialHandler.MutateStock)
	api.GET("/materials/:id/transactions", materialHandler.History)
	api.GET("/materials/:id/ledger/verify", materialHandler.VerifyLedger)
	api.POST("/recipes", recipeHandler.Create)
	api.GET("/recipes/:id", recipeHandler.GetByID)
	api.POST("/recipes/:id/activate", recipeHandler.Activate)
	api.POST("/recipes/:id/deactivate", recipeHandler.Deactivate)
	api.GET("/products/:id/recipes", recipeHandler.ListByProduct)
	api.POST("/bom/requirements", bomHandler.Requirements)
	api.POST("/bom/availability", bomHandler.Availability)
	api.POST("/bom/availability/bulk", bomHandler.BulkAvailability)
	api.POST("/bom/plan", bomHandler.Plan)

	return &apiFixture{engine: engine, tenantID: uuid.New()}
}

type apiResult struct {
	Code   int
	Header http.Header
	Body   struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
		Meta    *dto.Meta       `json:"meta"`
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers ...string) apiResult {
	t.Helper()
	return f.doAs(t, f.tenantID, method, path, body, headers...)
}

func (f *apiFixture) doAs(t *testing.T, tenantID uuid.UUID, method, path string, body any, headers ...string) apiResult {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeaderKey, tenantID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	res := apiResult{Code: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body), w.Body.String())
	}
	return res
}

func (r apiResult) into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, v))
}

func (r apiResult) errCode() string {
	if r.Body.Error == nil {
		return ""
	}
	return r.Body.Error.Code
}

// createMaterials creates flour (10 kg) and sugar (5 kg) and returns their ids
func (f *apiFixture) createMaterials(t *testing.T) (uuid.UUID, uuid.UUID) {
	t.Helper()
	res := f.do(t, http.MethodPost, "/api/v1/materials/bulk", gin.H{"materials": []gin.H{
		{"name": "Flour", "sku": "FL-1", "unit": "kg", "opening_stock": "10", "unit_cost": "2", "reorder_threshold": "3"},
		{"name": "Sugar", "sku": "SU-1", "unit": "kg", "opening_stock": "5", "unit_cost": "1"},
	}})
	require.Equal(t, http.StatusCreated, res.Code, res.errCode())

	var created []inventoryapp.MaterialResponse
	res.into(t, &created)
	require.Len(t, created, 2)
	return created[0].ID, created[1].ID
}

// createProduct creates an active recipe consuming 2 kg flour and 1 kg sugar
// per piece
func (f *apiFixture) createProduct(t *testing.T, flour, sugar uuid.UUID) (uuid.UUID, uuid.UUID) {
	t.Helper()
	productID := uuid.New()
	res := f.do(t, http.MethodPost, "/api/v1/recipes", gin.H{
		"product_id":     productID,
		"name":           "Sweet bread",
		"yield_quantity": "1",
		"yield_unit":     "pcs",
		"activate":       true,
		"components": []gin.H{
			{"material_id": flour, "quantity_required": "2", "unit": "kg"},
			{"material_id": sugar, "quantity_required": "1", "unit": "kg"},
		},
	})
	require.Equal(t, http.StatusCreated, res.Code, res.errCode())

	var rcp bomapp.RecipeResponse
	res.into(t, &rcp)
	assert.True(t, rcp.IsActive)
	return productID, rcp.ID
}

func TestMaterialAPI(t *testing.T) {
	f := newAPIFixture(t)
	flour, _ := f.createMaterials(t)
	base := "/api/v1/materials/" + flour.String()

	t.Run("list and get", func(t *testing.T) {
		res := f.do(t, http.MethodGet, "/api/v1/materials?page_size=10", nil)
		require.Equal(t, http.StatusOK, res.Code)
		require.NotNil(t, res.Body.Meta)
		assert.Equal(t, int64(2), res.Body.Meta.Total)

		res = f.do(t, http.MethodGet, base, nil)
		require.Equal(t, http.StatusOK, res.Code)
		var m inventoryapp.MaterialResponse
		res.into(t, &m)
		assert.Equal(t, "10", m.StockQuantity.String())
	})

	t.Run("other tenants cannot see it", func(t *testing.T) {
		res := f.doAs(t, uuid.New(), http.MethodGet, base, nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
		assert.Equal(t, dto.ErrCodeMaterialNotFound, res.errCode())
	})

	t.Run("duplicate sku", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/materials/bulk", gin.H{"materials": []gin.H{
			{"name": "Flour again", "sku": "FL-1", "unit": "kg"},
		}})
		assert.Equal(t, http.StatusConflict, res.Code)
	})

	t.Run("restock is idempotent per key", func(t *testing.T) {
		body := gin.H{"type": "restock", "quantity": "5", "reason": "purchase"}

		res := f.do(t, http.MethodPost, base+"/stock-mutations", body, IdempotencyKeyHeader, "po-42")
		require.Equal(t, http.StatusCreated, res.Code, res.errCode())
		var first inventoryapp.MutationResponse
		res.into(t, &first)
		assert.Equal(t, "15", first.NewQuantity.String())

		res = f.do(t, http.MethodPost, base+"/stock-mutations", body, IdempotencyKeyHeader, "po-42")
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "true", res.Header.Get("Idempotent-Replayed"))
		var replay inventoryapp.MutationResponse
		res.into(t, &replay)
		assert.Equal(t, first.Transaction.ID, replay.Transaction.ID)
	})

	t.Run("deduction beyond stock is rejected", func(t *testing.T) {
		res := f.do(t, http.MethodPost, base+"/stock-mutations", gin.H{
			"type": "deduction", "quantity": "100", "reason": "production",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
		assert.Equal(t, dto.ErrCodeInsufficientStock, res.errCode())
	})

	t.Run("bad input", func(t *testing.T) {
		res := f.do(t, http.MethodPost, base+"/stock-mutations", gin.H{
			"type": "transfer", "quantity": "1", "reason": "other",
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, dto.ErrCodeInvalidTransactionType, res.errCode())

		res = f.do(t, http.MethodPost, base+"/stock-mutations", gin.H{
			"type": "restock", "quantity": "-1", "reason": "purchase",
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, dto.ErrCodeInvalidQuantity, res.errCode())

		res = f.do(t, http.MethodGet, "/api/v1/materials/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("ledger history and verification", func(t *testing.T) {
		res := f.do(t, http.MethodGet, base+"/transactions", nil)
		require.Equal(t, http.StatusOK, res.Code)
		var entries []inventoryapp.TransactionResponse
		res.into(t, &entries)
		require.Len(t, entries, 2)
		assert.Equal(t, "15", entries[0].QuantityAfter.String())

		res = f.do(t, http.MethodGet, base+"/ledger/verify", nil)
		require.Equal(t, http.StatusOK, res.Code)
		var report struct {
			Consistent bool `json:"consistent"`
			Entries    int  `json:"entries"`
		}
		res.into(t, &report)
		assert.True(t, report.Consistent)
		assert.Equal(t, 2, report.Entries)
	})

	t.Run("delete", func(t *testing.T) {
		res := f.do(t, http.MethodDelete, base, nil)
		assert.Equal(t, http.StatusNoContent, res.Code)

		res = f.do(t, http.MethodGet, base, nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestRecipeAPI(t *testing.T) {
	f := newAPIFixture(t)
	flour, sugar := f.createMaterials(t)
	productID, firstID := f.createProduct(t, flour, sugar)

	res := f.do(t, http.MethodPost, "/api/v1/recipes", gin.H{
		"product_id": productID, "name": "Less sugar", "yield_quantity": "1", "yield_unit": "pcs",
		"components": []gin.H{{"material_id": flour, "quantity_required": "2", "unit": "kg"}},
	})
	require.Equal(t, http.StatusCreated, res.Code)
	var second bomapp.RecipeResponse
	res.into(t, &second)
	assert.False(t, second.IsActive)

	res = f.do(t, http.MethodPost, "/api/v1/recipes/"+second.ID.String()+"/activate", nil)
	require.Equal(t, http.StatusOK, res.Code, res.errCode())

	res = f.do(t, http.MethodGet, "/api/v1/recipes/"+firstID.String(), nil)
	require.Equal(t, http.StatusOK, res.Code)
	var first bomapp.RecipeResponse
	res.into(t, &first)
	assert.False(t, first.IsActive)

	res = f.do(t, http.MethodGet, "/api/v1/products/"+productID.String()+"/recipes", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var all []bomapp.RecipeResponse
	res.into(t, &all)
	assert.Len(t, all, 2)

	t.Run("unit must match the material", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/recipes", gin.H{
			"product_id": uuid.New(), "name": "Wrong unit", "yield_quantity": "1", "yield_unit": "pcs",
			"components": []gin.H{{"material_id": flour, "quantity_required": "200", "unit": "g"}},
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, dto.ErrCodeUnitMismatch, res.errCode())
	})

	t.Run("deactivate leaves no active recipe", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/recipes/"+second.ID.String()+"/deactivate", nil)
		require.Equal(t, http.StatusOK, res.Code)

		res = f.do(t, http.MethodPost, "/api/v1/bom/requirements", gin.H{"product_id": productID, "quantity": "1"})
		assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
		assert.Equal(t, dto.ErrCodeNoActiveRecipe, res.errCode())
	})
}

func TestBOMAPI(t *testing.T) {
	f := newAPIFixture(t)
	flour, sugar := f.createMaterials(t)
	productID, _ := f.createProduct(t, flour, sugar)

	t.Run("requirements", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/bom/requirements", gin.H{"product_id": productID, "quantity": "3"})
		require.Equal(t, http.StatusOK, res.Code, res.errCode())
		var reqs bomapp.RequirementsResponse
		res.into(t, &reqs)
		require.Len(t, reqs.Requirements, 2)
		assert.Equal(t, "6", reqs.Requirements[0].EffectiveQuantity.String())
		assert.Equal(t, "3", reqs.Requirements[1].EffectiveQuantity.String())
	})

	t.Run("availability", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/bom/availability", gin.H{"product_id": productID, "quantity": "3"})
		require.Equal(t, http.StatusOK, res.Code)
		var ok bomapp.AvailabilityResponse
		res.into(t, &ok)
		assert.Equal(t, "producible", ok.Status)

		res = f.do(t, http.MethodPost, "/api/v1/bom/availability", gin.H{"product_id": productID, "quantity": "8"})
		require.Equal(t, http.StatusOK, res.Code)
		var short bomapp.AvailabilityResponse
		res.into(t, &short)
		assert.Equal(t, "partial", short.Status)
		assert.Equal(t, "5", short.MaxProducibleQuantity.String())
		assert.NotEmpty(t, short.Shortages)
	})

	t.Run("bulk availability reports failures inline", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/bom/availability/bulk", gin.H{
			"product_ids": []uuid.UUID{productID, uuid.New()},
			"quantity":    "2",
		})
		require.Equal(t, http.StatusOK, res.Code)
		var bulk bomapp.BulkAvailabilityResponse
		res.into(t, &bulk)
		require.Len(t, bulk.Results, 2)
		assert.Equal(t, 1, bulk.Producible)
		assert.Equal(t, 1, bulk.Failed)
		require.NotNil(t, bulk.Results[1].Error)
		assert.Equal(t, "NO_ACTIVE_RECIPE", bulk.Results[1].Error.Code)
	})

	t.Run("bulk availability defaults to one unit", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/bom/availability/bulk", gin.H{
			"product_ids": []uuid.UUID{productID},
		})
		require.Equal(t, http.StatusOK, res.Code, res.errCode())
		var bulk bomapp.BulkAvailabilityResponse
		res.into(t, &bulk)
		require.Len(t, bulk.Results, 1)
		require.NotNil(t, bulk.Results[0].Availability)
		assert.Equal(t, "1", bulk.Results[0].Availability.RequestedQuantity.String())
		assert.Equal(t, 1, bulk.Producible)

		res = f.do(t, http.MethodPost, "/api/v1/bom/availability/bulk", gin.H{
			"product_ids": []uuid.UUID{productID},
			"quantity":    "0",
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, dto.ErrCodeInvalidQuantity, res.errCode())
	})

	t.Run("plan in priority order", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/bom/plan", gin.H{
			"strategy": "priority",
			"requests": []gin.H{
				{"product_id": productID, "quantity": "3"},
				{"product_id": productID, "quantity": "3"},
			},
		})
		require.Equal(t, http.StatusOK, res.Code, res.errCode())
		var plan bomapp.PlanResponse
		res.into(t, &plan)
		require.Len(t, plan.Lines, 2)
		assert.True(t, plan.Lines[0].FullySatisfied)
		assert.Equal(t, "2", plan.Lines[1].AchievableQuantity.String())
		assert.NotEmpty(t, plan.Bottlenecks)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		res := f.do(t, http.MethodPost, "/api/v1/bom/plan", gin.H{
			"strategy": "random",
			"requests": []gin.H{{"product_id": productID, "quantity": "1"}},
		})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, dto.ErrCodeInvalidStrategy, res.errCode())
	})

	t.Run("missing tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bom/availability", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		f.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
