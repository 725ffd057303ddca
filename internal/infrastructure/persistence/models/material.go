package models

import (
	"time"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MaterialModel is the persistence model for the Material aggregate root.
// SKU uniqueness only applies to live materials that carry one; see
// partialIndexes.
type MaterialModel struct {
	TenantAggregateModel
	Name             string          `gorm:"type:varchar(200);not null"`
	SKU              string          `gorm:"column:sku;type:varchar(64);not null;default:''"`
	Category         string          `gorm:"type:varchar(100);not null;default:'';index"`
	Unit             string          `gorm:"type:varchar(16);not null"`
	StockQuantity    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	ReorderThreshold decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	SupplierRef      string          `gorm:"type:varchar(100);not null;default:''"`
	DeletedAt        *time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (MaterialModel) TableName() string {
	return "materials"
}

// ToDomain converts the persistence model to a domain Material
func (m *MaterialModel) ToDomain() *inventory.Material {
	return &inventory.Material{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		SKU:                 m.SKU,
		Category:            m.Category,
		Unit:                valueobject.MeasureUnit(m.Unit),
		StockQuantity:       m.StockQuantity,
		ReorderThreshold:    m.ReorderThreshold,
		UnitCost:            m.UnitCost,
		SupplierRef:         m.SupplierRef,
		DeletedAt:           m.DeletedAt,
	}
}

// FromDomain populates the persistence model from a domain Material
func (m *MaterialModel) FromDomain(mat *inventory.Material) {
	m.FromDomainTenantAggregateRoot(mat.TenantAggregateRoot)
	m.Name = mat.Name
	m.SKU = mat.SKU
	m.Category = mat.Category
	m.Unit = mat.Unit.String()
	m.StockQuantity = mat.StockQuantity
	m.ReorderThreshold = mat.ReorderThreshold
	m.UnitCost = mat.UnitCost
	m.SupplierRef = mat.SupplierRef
	m.DeletedAt = mat.DeletedAt
}

// MaterialModelFromDomain creates a new persistence model from a domain Material
func MaterialModelFromDomain(mat *inventory.Material) *MaterialModel {
	m := &MaterialModel{}
	m.FromDomain(mat)
	return m
}
