package handler

import (
	bomapp "github.com/erp/bomengine/internal/application/bom"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipeHandler manages recipes and their activation
type RecipeHandler struct {
	BaseHandler
	service *bomapp.RecipeService
}

// NewRecipeHandler creates a new RecipeHandler
func NewRecipeHandler(service *bomapp.RecipeService) *RecipeHandler {
	return &RecipeHandler{service: service}
}

// ComponentRequest is one material line of a recipe
type ComponentRequest struct {
	MaterialID       string          `json:"material_id" binding:"required,uuid"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	Unit             string          `json:"unit" binding:"required,measure_unit"`
	WastePercentage  decimal.Decimal `json:"waste_percentage"`
	Notes            string          `json:"notes" binding:"max=500"`
}

// CreateRecipeRequest creates a recipe for a product
type CreateRecipeRequest struct {
	ProductID     string             `json:"product_id" binding:"required,uuid"`
	Name          string             `json:"name" binding:"required,min=1,max=200"`
	YieldQuantity decimal.Decimal    `json:"yield_quantity"`
	YieldUnit     string             `json:"yield_unit" binding:"required,measure_unit"`
	Notes         string             `json:"notes" binding:"max=2000"`
	Components    []ComponentRequest `json:"components" binding:"required,min=1,dive"`
	Activate      bool               `json:"activate"`
}

// Create godoc
// @Summary  Create a recipe
// @Tags     recipes
// @Router   /recipes [post]
func (h *RecipeHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	components := make([]bomapp.ComponentInput, len(req.Components))
	for i, comp := range req.Components {
		components[i] = bomapp.ComponentInput{
			MaterialID:       uuid.MustParse(comp.MaterialID),
			QuantityRequired: comp.QuantityRequired,
			Unit:             comp.Unit,
			WastePercentage:  comp.WastePercentage,
			Notes:            comp.Notes,
		}
	}

	resp, err := h.service.CreateRecipe(c.Request.Context(), bomapp.CreateRecipeCommand{
		TenantID:      tenantID,
		ProductID:     uuid.MustParse(req.ProductID),
		Name:          req.Name,
		YieldQuantity: req.YieldQuantity,
		YieldUnit:     req.YieldUnit,
		Notes:         req.Notes,
		Components:    components,
		Activate:      req.Activate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// GetByID godoc
// @Summary  Get a recipe
// @Tags     recipes
// @Router   /recipes/{id} [get]
func (h *RecipeHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetRecipe(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Activate godoc
// @Summary  Make a recipe its product's active recipe
// @Tags     recipes
// @Router   /recipes/{id}/activate [post]
func (h *RecipeHandler) Activate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.ActivateRecipe(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate godoc
// @Summary  Deactivate a recipe
// @Tags     recipes
// @Router   /recipes/{id}/deactivate [post]
func (h *RecipeHandler) Deactivate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.DeactivateRecipe(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByProduct godoc
// @Summary  List a product's recipes, newest first
// @Tags     recipes
// @Router   /products/{id}/recipes [get]
func (h *RecipeHandler) ListByProduct(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	resp, err := h.service.ListProductRecipes(c.Request.Context(), tenantID, productID, page, pageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
