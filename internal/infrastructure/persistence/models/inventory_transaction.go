package models

import (
	"time"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryTransactionModel is the persistence model for a ledger entry.
// Rows are only ever inserted. (material_id, material_version) is unique,
// so two writers can never both append the same link of a chain.
type InventoryTransactionModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_transactions_chain,priority:1"`
	MaterialVersion int             `gorm:"not null;uniqueIndex:idx_inventory_transactions_chain,priority:2"`
	TransactionType string          `gorm:"type:varchar(20);not null"`
	Reason          string          `gorm:"type:varchar(32);not null"`
	QuantityBefore  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	QuantityChange  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	QuantityAfter   decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Notes           string          `gorm:"type:varchar(500);not null;default:''"`
	ReferenceType   string          `gorm:"type:varchar(50);not null;default:''"`
	ReferenceID     string          `gorm:"type:varchar(100);not null;default:''"`
	ActorID         *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt       time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain ledger entry
func (m *InventoryTransactionModel) ToDomain() *inventory.InventoryTransaction {
	return &inventory.InventoryTransaction{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.CreatedAt,
		},
		TenantID:        m.TenantID,
		MaterialID:      m.MaterialID,
		TransactionType: inventory.TransactionType(m.TransactionType),
		Reason:          inventory.Reason(m.Reason),
		QuantityBefore:  m.QuantityBefore,
		QuantityChange:  m.QuantityChange,
		QuantityAfter:   m.QuantityAfter,
		Notes:           m.Notes,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
		ActorID:         m.ActorID,
		MaterialVersion: m.MaterialVersion,
	}
}

// InventoryTransactionModelFromDomain creates a persistence model from a ledger entry
func InventoryTransactionModelFromDomain(t *inventory.InventoryTransaction) *InventoryTransactionModel {
	return &InventoryTransactionModel{
		ID:              t.ID,
		TenantID:        t.TenantID,
		MaterialID:      t.MaterialID,
		MaterialVersion: t.MaterialVersion,
		TransactionType: t.TransactionType.String(),
		Reason:          t.Reason.String(),
		QuantityBefore:  t.QuantityBefore,
		QuantityChange:  t.QuantityChange,
		QuantityAfter:   t.QuantityAfter,
		Notes:           t.Notes,
		ReferenceType:   t.ReferenceType,
		ReferenceID:     t.ReferenceID,
		ActorID:         t.ActorID,
		CreatedAt:       t.CreatedAt,
	}
}
