package inventory

import (
	"time"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MutateStockCommand asks for one stock movement on one material
type MutateStockCommand struct {
	TenantID   uuid.UUID
	MaterialID uuid.UUID
	Type       inventory.TransactionType
	Quantity   decimal.Decimal
	Reason     inventory.Reason
	Notes      string
	Reference  *inventory.Reference
	ActorID    *uuid.UUID
	// IdempotencyKey, when set, makes a retried command replay the first
	// result instead of moving stock again
	IdempotencyKey string
}

func (c MutateStockCommand) movement() inventory.Movement {
	return inventory.Movement{
		Type:      c.Type,
		Quantity:  c.Quantity,
		Reason:    c.Reason,
		Notes:     c.Notes,
		Reference: c.Reference,
		ActorID:   c.ActorID,
	}
}

// MutationResult is the outcome of a stock mutation
type MutationResult struct {
	Transaction *inventory.InventoryTransaction
	NewQuantity decimal.Decimal
	// Replayed is true when the result came from an earlier request with the
	// same idempotency key
	Replayed bool
	// Count is set for adjustments
	Count *inventory.StockCount
}

// withCount attaches the stock count an adjustment booked
func (r *MutationResult) withCount(unitCost decimal.Decimal) *MutationResult {
	if count, ok := r.Transaction.Count(unitCost); ok {
		r.Count = &count
	}
	return r
}

// MaterialResponse represents a material in API responses
type MaterialResponse struct {
	ID                   uuid.UUID       `json:"id"`
	TenantID             uuid.UUID       `json:"tenant_id"`
	Name                 string          `json:"name"`
	SKU                  string          `json:"sku,omitempty"`
	Category             string          `json:"category,omitempty"`
	Unit                 string          `json:"unit"`
	StockQuantity        decimal.Decimal `json:"stock_quantity"`
	ReorderThreshold     decimal.Decimal `json:"reorder_threshold"`
	UnitCost             decimal.Decimal `json:"unit_cost"`
	SupplierRef          string          `json:"supplier_ref,omitempty"`
	IsBelowReorderThresh bool            `json:"is_below_reorder_threshold"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ToMaterialResponse converts a domain Material to MaterialResponse
func ToMaterialResponse(m *inventory.Material) MaterialResponse {
	return MaterialResponse{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		Name:                 m.Name,
		SKU:                  m.SKU,
		Category:             m.Category,
		Unit:                 m.Unit.String(),
		StockQuantity:        m.StockQuantity,
		ReorderThreshold:     m.ReorderThreshold,
		UnitCost:             m.UnitCost,
		SupplierRef:          m.SupplierRef,
		IsBelowReorderThresh: m.IsBelowReorderThreshold(),
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// ToMaterialResponses converts a slice of domain materials
func ToMaterialResponses(materials []inventory.Material) []MaterialResponse {
	out := make([]MaterialResponse, len(materials))
	for i := range materials {
		out[i] = ToMaterialResponse(&materials[i])
	}
	return out
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	MaterialID      uuid.UUID       `json:"material_id"`
	TransactionType string          `json:"transaction_type"`
	Reason          string          `json:"reason"`
	QuantityBefore  decimal.Decimal `json:"quantity_before"`
	QuantityChange  decimal.Decimal `json:"quantity_change"`
	QuantityAfter   decimal.Decimal `json:"quantity_after"`
	Notes           string          `json:"notes,omitempty"`
	ReferenceType   string          `json:"reference_type,omitempty"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	ActorID         *uuid.UUID      `json:"actor_id,omitempty"`
	MaterialVersion int             `json:"material_version"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToTransactionResponse converts a ledger entry to TransactionResponse
func ToTransactionResponse(t *inventory.InventoryTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		MaterialID:      t.MaterialID,
		TransactionType: t.TransactionType.String(),
		Reason:          t.Reason.String(),
		QuantityBefore:  t.QuantityBefore,
		QuantityChange:  t.QuantityChange,
		QuantityAfter:   t.QuantityAfter,
		Notes:           t.Notes,
		ReferenceType:   t.ReferenceType,
		ReferenceID:     t.ReferenceID,
		ActorID:         t.ActorID,
		MaterialVersion: t.MaterialVersion,
		CreatedAt:       t.CreatedAt,
	}
}

// ToTransactionResponses converts a slice of ledger entries
func ToTransactionResponses(entries []inventory.InventoryTransaction) []TransactionResponse {
	out := make([]TransactionResponse, len(entries))
	for i := range entries {
		out[i] = ToTransactionResponse(&entries[i])
	}
	return out
}

// StockCountResponse describes the count behind an adjustment
type StockCountResponse struct {
	SystemQuantity  decimal.Decimal `json:"system_quantity"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
	Difference      decimal.Decimal `json:"difference"`
	DifferenceValue decimal.Decimal `json:"difference_value"`
}

// MutationResponse is returned by the stock mutation endpoint
type MutationResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewQuantity decimal.Decimal     `json:"new_quantity"`
	Replayed    bool                `json:"replayed,omitempty"`
	Count       *StockCountResponse `json:"count,omitempty"`
}

// ToMutationResponse converts a MutationResult
func ToMutationResponse(r *MutationResult) MutationResponse {
	resp := MutationResponse{
		Transaction: ToTransactionResponse(r.Transaction),
		NewQuantity: r.NewQuantity,
		Replayed:    r.Replayed,
	}
	if r.Count != nil {
		resp.Count = &StockCountResponse{
			SystemQuantity:  r.Count.SystemQuantity,
			CountedQuantity: r.Count.CountedQuantity,
			Difference:      r.Count.Difference,
			DifferenceValue: r.Count.DifferenceValue,
		}
	}
	return resp
}

// CreateMaterialInput describes one material of a bulk create
type CreateMaterialInput struct {
	Name             string
	SKU              string
	Category         string
	Unit             string
	ReorderThreshold decimal.Decimal
	UnitCost         decimal.Decimal
	SupplierRef      string
	// OpeningStock, when positive, is booked as a restock ledger entry so
	// the new material's stock is backed by its ledger from the start
	OpeningStock decimal.Decimal
}

// BulkCreateMaterialsCommand creates 1..MaxBulkCreate materials atomically
type BulkCreateMaterialsCommand struct {
	TenantID  uuid.UUID
	ActorID   *uuid.UUID
	Materials []CreateMaterialInput
}

// MaterialListFilter represents filter options for the material list
type MaterialListFilter struct {
	Search       string `form:"search"`
	Category     string `form:"category"`
	BelowReorder bool   `form:"below_reorder"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size" binding:"omitempty,max=100"`
	OrderBy      string `form:"order_by"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter maps the list filter onto a repository filter
func (f MaterialListFilter) ToFilter() shared.Filter {
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.OrderBy,
		OrderDir: f.OrderDir,
		Search:   f.Search,
		Filters:  map[string]any{},
	}
	if f.Category != "" {
		filter.Filters["category"] = f.Category
	}
	if f.BelowReorder {
		filter.Filters["below_reorder"] = true
	}
	return filter.Normalize()
}
