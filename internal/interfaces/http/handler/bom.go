package handler

import (
	bomapp "github.com/erp/bomengine/internal/application/bom"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMHandler serves the read-only production queries
type BOMHandler struct {
	BaseHandler
	service *bomapp.BOMService
}

// NewBOMHandler creates a new BOMHandler
func NewBOMHandler(service *bomapp.BOMService) *BOMHandler {
	return &BOMHandler{service: service}
}

// RequirementsRequest asks what one production run consumes
type RequirementsRequest struct {
	ProductID    string          `json:"product_id" binding:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity"`
	IncludeWaste bool            `json:"include_waste"`
}

// AvailabilityRequest asks whether one production run is possible
type AvailabilityRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// defaultBulkQuantity is checked when a bulk request names no quantity
var defaultBulkQuantity = decimal.NewFromInt(1)

// BulkAvailabilityRequest checks several products at one quantity.
// Quantity defaults to one unit of each product.
type BulkAvailabilityRequest struct {
	ProductIDs []string         `json:"product_ids" binding:"required,min=1,dive,uuid"`
	Quantity   *decimal.Decimal `json:"quantity"`
}

// PlanItemRequest is one product competing for stock
type PlanItemRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// PlanRequest asks how to split current stock between several runs
type PlanRequest struct {
	Requests []PlanItemRequest `json:"requests" binding:"required,min=1,dive"`
	Strategy string            `json:"strategy" binding:"max=50"`
}

// Requirements godoc
// @Summary  Resolve material requirements for a production run
// @Tags     bom
// @Router   /bom/requirements [post]
func (h *BOMHandler) Requirements(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req RequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.ResolveRequirements(c.Request.Context(), bomapp.RequirementsQuery{
		TenantID:     tenantID,
		ProductID:    uuid.MustParse(req.ProductID),
		Quantity:     req.Quantity,
		IncludeWaste: req.IncludeWaste,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Availability godoc
// @Summary  Check whether a quantity of one product can be produced
// @Tags     bom
// @Router   /bom/availability [post]
func (h *BOMHandler) Availability(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.CheckAvailability(c.Request.Context(), bomapp.AvailabilityQuery{
		TenantID:  tenantID,
		ProductID: uuid.MustParse(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// BulkAvailability godoc
// @Summary  Check availability for several products
// @Tags     bom
// @Router   /bom/availability/bulk [post]
func (h *BOMHandler) BulkAvailability(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req BulkAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	productIDs := make([]uuid.UUID, len(req.ProductIDs))
	for i, id := range req.ProductIDs {
		productIDs[i] = uuid.MustParse(id)
	}

	quantity := defaultBulkQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	resp, err := h.service.BulkCheckAvailability(c.Request.Context(), bomapp.BulkAvailabilityQuery{
		TenantID:   tenantID,
		ProductIDs: productIDs,
		Quantity:   quantity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Plan godoc
// @Summary  Allocate current stock across several production requests
// @Tags     bom
// @Router   /bom/plan [post]
func (h *BOMHandler) Plan(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	items := make([]bomapp.PlanItem, len(req.Requests))
	for i, r := range req.Requests {
		items[i] = bomapp.PlanItem{ProductID: uuid.MustParse(r.ProductID), Quantity: r.Quantity}
	}

	resp, err := h.service.PlanMultiProduct(c.Request.Context(), bomapp.PlanCommand{
		TenantID: tenantID,
		Requests: items,
		Strategy: req.Strategy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
