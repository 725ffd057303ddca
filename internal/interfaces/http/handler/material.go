package handler

import (
	"strconv"

	inventoryapp "github.com/erp/bomengine/internal/application/inventory"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader makes a retried stock mutation replay its first result
const IdempotencyKeyHeader = "Idempotency-Key"

const defaultHistoryPageLimit = 100

// MaterialHandler handles material and stock endpoints
type MaterialHandler struct {
	BaseHandler
	materials        *inventoryapp.MaterialService
	mutations        *inventoryapp.StockMutationService
	historyPageLimit int
}

// NewMaterialHandler creates a new MaterialHandler
func NewMaterialHandler(materials *inventoryapp.MaterialService, mutations *inventoryapp.StockMutationService) *MaterialHandler {
	return &MaterialHandler{
		materials:        materials,
		mutations:        mutations,
		historyPageLimit: defaultHistoryPageLimit,
	}
}

// WithHistoryPageLimit caps the page size accepted by History
func (h *MaterialHandler) WithHistoryPageLimit(n int) *MaterialHandler {
	if n > 0 {
		h.historyPageLimit = n
	}
	return h
}

// CreateMaterialRequest is one material in a bulk create
type CreateMaterialRequest struct {
	Name             string          `json:"name" binding:"required,min=1,max=200"`
	SKU              string          `json:"sku" binding:"max=100"`
	Category         string          `json:"category" binding:"max=100"`
	Unit             string          `json:"unit" binding:"required,measure_unit"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	SupplierRef      string          `json:"supplier_ref" binding:"max=100"`
	OpeningStock     decimal.Decimal `json:"opening_stock"`
}

// BulkCreateMaterialsRequest creates several materials in one transaction
type BulkCreateMaterialsRequest struct {
	Materials []CreateMaterialRequest `json:"materials" binding:"required,min=1,dive"`
}

// ReferenceRequest links a stock movement to an external document
type ReferenceRequest struct {
	Type string `json:"type" binding:"required,max=50"`
	ID   string `json:"id" binding:"required,max=100"`
}

// StockMutationRequest is a single stock movement
type StockMutationRequest struct {
	Type      string            `json:"type" binding:"required,transaction_type"`
	Quantity  decimal.Decimal   `json:"quantity"`
	Reason    string            `json:"reason" binding:"required,transaction_reason"`
	Notes     string            `json:"notes" binding:"max=500"`
	Reference *ReferenceRequest `json:"reference"`
}

// BulkCreate godoc
// @Summary  Create materials
// @Tags     materials
// @Router   /materials/bulk [post]
func (h *MaterialHandler) BulkCreate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req BulkCreateMaterialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	inputs := make([]inventoryapp.CreateMaterialInput, len(req.Materials))
	for i, m := range req.Materials {
		inputs[i] = inventoryapp.CreateMaterialInput{
			Name:             m.Name,
			SKU:              m.SKU,
			Category:         m.Category,
			Unit:             m.Unit,
			ReorderThreshold: m.ReorderThreshold,
			UnitCost:         m.UnitCost,
			SupplierRef:      m.SupplierRef,
			OpeningStock:     m.OpeningStock,
		}
	}

	created, err := h.materials.BulkCreate(c.Request.Context(), inventoryapp.BulkCreateMaterialsCommand{
		TenantID:  tenantID,
		ActorID:   actorID(c),
		Materials: inputs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, created)
}

// List godoc
// @Summary  List materials
// @Tags     materials
// @Router   /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var filter inventoryapp.MaterialListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	materials, total, err := h.materials.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, materials, total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @Summary  Get a material
// @Tags     materials
// @Router   /materials/{id} [get]
func (h *MaterialHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	material, err := h.materials.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, material)
}

// Delete godoc
// @Summary  Delete a material
// @Tags     materials
// @Router   /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.materials.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// MutateStock godoc
// @Summary  Restock, deduct or adjust a material's stock
// @Tags     materials
// @Param    Idempotency-Key header string false "Replays the first result for a repeated key"
// @Router   /materials/{id}/stock-mutations [post]
func (h *MaterialHandler) MutateStock(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	materialID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req StockMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	// Both parse cleanly: the binding validators already checked them.
	txType, _ := inventory.ParseTransactionType(req.Type)
	reason, _ := inventory.ParseReason(req.Reason)

	cmd := inventoryapp.MutateStockCommand{
		TenantID:       tenantID,
		MaterialID:     materialID,
		Type:           txType,
		Quantity:       req.Quantity,
		Reason:         reason,
		Notes:          req.Notes,
		ActorID:        actorID(c),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	}
	if req.Reference != nil {
		cmd.Reference = &inventory.Reference{Type: req.Reference.Type, ID: req.Reference.ID}
	}

	result, err := h.mutations.Mutate(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
		h.Success(c, inventoryapp.ToMutationResponse(result))
		return
	}
	h.Created(c, inventoryapp.ToMutationResponse(result))
}

// History godoc
// @Summary  List a material's ledger entries, newest first
// @Tags     materials
// @Router   /materials/{id}/transactions [get]
func (h *MaterialHandler) History(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	materialID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	if pageSize > h.historyPageLimit {
		pageSize = h.historyPageLimit
	}

	entries, total, err := h.materials.History(c.Request.Context(), tenantID, materialID, page, pageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, page, pageSize)
}

// VerifyLedger godoc
// @Summary  Replay a material's ledger and compare it with stored stock
// @Tags     materials
// @Router   /materials/{id}/ledger/verify [get]
func (h *MaterialHandler) VerifyLedger(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	materialID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	report, err := h.materials.VerifyLedger(c.Request.Context(), tenantID, materialID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// queryInt reads a positive integer query parameter, falling back to def
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
