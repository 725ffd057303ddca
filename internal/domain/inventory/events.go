package inventory

import (
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeMaterial = "Material"

// Event type constants
const (
	EventTypeStockMutated                  = "StockMutated"
	EventTypeMaterialBelowReorderThreshold = "MaterialBelowReorderThreshold"
	EventTypeMaterialCreated               = "MaterialCreated"
)

// StockMutatedEvent is raised for every ledger entry written
type StockMutatedEvent struct {
	shared.BaseDomainEvent
	MaterialID      uuid.UUID       `json:"material_id"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Reason          Reason          `json:"reason"`
	QuantityBefore  decimal.Decimal `json:"quantity_before"`
	QuantityChange  decimal.Decimal `json:"quantity_change"`
	QuantityAfter   decimal.Decimal `json:"quantity_after"`
}

// NewStockMutatedEvent creates a new StockMutatedEvent
func NewStockMutatedEvent(m *Material, tx *InventoryTransaction) *StockMutatedEvent {
	return &StockMutatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMutated, AggregateTypeMaterial, m.ID, m.TenantID),
		MaterialID:      m.ID,
		TransactionID:   tx.ID,
		TransactionType: tx.TransactionType,
		Reason:          tx.Reason,
		QuantityBefore:  tx.QuantityBefore,
		QuantityChange:  tx.QuantityChange,
		QuantityAfter:   tx.QuantityAfter,
	}
}

// MaterialBelowReorderThresholdEvent is raised when a movement takes stock
// from at-or-above the reorder threshold to below it
type MaterialBelowReorderThresholdEvent struct {
	shared.BaseDomainEvent
	MaterialID       uuid.UUID       `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	SKU              string          `json:"sku,omitempty"`
	CurrentQuantity  decimal.Decimal `json:"current_quantity"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
	SupplierRef      string          `json:"supplier_ref,omitempty"`
}

// NewMaterialBelowReorderThresholdEvent creates a new MaterialBelowReorderThresholdEvent
func NewMaterialBelowReorderThresholdEvent(m *Material) *MaterialBelowReorderThresholdEvent {
	return &MaterialBelowReorderThresholdEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeMaterialBelowReorderThreshold, AggregateTypeMaterial, m.ID, m.TenantID),
		MaterialID:       m.ID,
		MaterialName:     m.Name,
		SKU:              m.SKU,
		CurrentQuantity:  m.StockQuantity,
		ReorderThreshold: m.ReorderThreshold,
		SupplierRef:      m.SupplierRef,
	}
}

// Shortfall returns how far stock sits below the threshold
func (e *MaterialBelowReorderThresholdEvent) Shortfall() decimal.Decimal {
	return e.ReorderThreshold.Sub(e.CurrentQuantity)
}

// MaterialCreatedEvent is raised when a material is registered
type MaterialCreatedEvent struct {
	shared.BaseDomainEvent
	MaterialID uuid.UUID `json:"material_id"`
	Name       string    `json:"name"`
	Unit       string    `json:"unit"`
}

// NewMaterialCreatedEvent creates a new MaterialCreatedEvent
func NewMaterialCreatedEvent(m *Material) *MaterialCreatedEvent {
	return &MaterialCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMaterialCreated, AggregateTypeMaterial, m.ID, m.TenantID),
		MaterialID:      m.ID,
		Name:            m.Name,
		Unit:            m.Unit.String(),
	}
}
