package inventory

import (
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field limits for materials
const (
	MaxMaterialNameLength = 200
	MaxCategoryLength     = 100
	MaxSupplierRefLength  = 100
)

// Material is a tenant-scoped raw material and the aggregate root for stock.
// StockQuantity is a projection of the ledger: it only changes through
// RecordMovement, which also produces the ledger entry for the change.
type Material struct {
	shared.TenantAggregateRoot
	Name             string
	SKU              string // normalised, empty when the material has none
	Category         string
	Unit             valueobject.MeasureUnit
	StockQuantity    decimal.Decimal
	ReorderThreshold decimal.Decimal
	UnitCost         decimal.Decimal
	SupplierRef      string
	DeletedAt        *time.Time
}

// NewMaterial creates a material with zero stock
func NewMaterial(tenantID uuid.UUID, name string, unit valueobject.MeasureUnit) (*Material, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrValidation.WithMessage("Material name cannot be empty")
	}
	if len(name) > MaxMaterialNameLength {
		return nil, shared.ErrValidation.WithMessage("Material name cannot exceed 200 characters")
	}
	if !unit.IsValid() {
		return nil, shared.ErrInvalidUnit
	}

	return &Material{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Unit:                unit,
		StockQuantity:       decimal.Zero,
		ReorderThreshold:    decimal.Zero,
		UnitCost:            decimal.Zero,
	}, nil
}

// SetSKU sets the SKU in its normalised form. An empty value clears it.
func (m *Material) SetSKU(sku string) error {
	normalized := valueobject.NormalizeSKU(sku)
	if len(normalized) > valueobject.MaxSKULength {
		return shared.ErrValidation.WithMessage("SKU cannot exceed 64 characters")
	}
	m.SKU = normalized
	m.Touch()
	return nil
}

// SetCategory sets the material category
func (m *Material) SetCategory(category string) error {
	category = strings.TrimSpace(category)
	if len(category) > MaxCategoryLength {
		return shared.ErrValidation.WithMessage("Category cannot exceed 100 characters")
	}
	m.Category = category
	m.Touch()
	return nil
}

// SetReorderThreshold sets the stock level below which a reorder alert fires
func (m *Material) SetReorderThreshold(threshold decimal.Decimal) error {
	if threshold.IsNegative() {
		return shared.ErrValidation.WithMessage("Reorder threshold cannot be negative")
	}
	if !valueobject.FitsStorage(threshold) {
		return shared.ErrQuantityPrecision
	}
	m.ReorderThreshold = threshold
	m.Touch()
	return nil
}

// SetUnitCost sets the cost of one unit of the material
func (m *Material) SetUnitCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.ErrValidation.WithMessage("Unit cost cannot be negative")
	}
	if !valueobject.FitsStorage(cost) {
		return shared.ErrQuantityPrecision.WithMessage("Unit cost must have at most 6 decimal places and 14 integer digits")
	}
	m.UnitCost = cost
	m.Touch()
	return nil
}

// SetSupplierRef sets the free-form supplier reference
func (m *Material) SetSupplierRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if len(ref) > MaxSupplierRefLength {
		return shared.ErrValidation.WithMessage("Supplier reference cannot exceed 100 characters")
	}
	m.SupplierRef = ref
	m.Touch()
	return nil
}

// HasSKU reports whether the material carries a SKU
func (m *Material) HasSKU() bool {
	return m.SKU != ""
}

// IsDeleted reports whether the material has been soft-deleted
func (m *Material) IsDeleted() bool {
	return m.DeletedAt != nil
}

// SoftDelete marks the material deleted. Ledger history stays intact.
func (m *Material) SoftDelete() error {
	if m.IsDeleted() {
		return shared.ErrInvalidState.WithMessage("Material is already deleted")
	}
	now := time.Now()
	m.DeletedAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()
	return nil
}

// IsBelowReorderThreshold reports whether stock sits below the threshold.
// A zero threshold disables the check.
func (m *Material) IsBelowReorderThreshold() bool {
	return m.ReorderThreshold.IsPositive() && m.StockQuantity.LessThan(m.ReorderThreshold)
}

// RecordMovement applies a stock movement to the material and returns the
// ledger entry describing it. The entry's QuantityBefore is the stock held
// by this aggregate at call time, so callers must hold the material's write
// lock from load until the entry and the new stock are persisted.
func (m *Material) RecordMovement(mv Movement) (*InventoryTransaction, error) {
	if m.IsDeleted() {
		return nil, shared.ErrMaterialNotFound
	}
	if err := mv.Validate(); err != nil {
		return nil, err
	}

	before := m.StockQuantity
	change := mv.Change(before)
	after := before.Add(change)
	if after.IsNegative() {
		return nil, shared.ErrInsufficientStock.WithMessage(
			"Insufficient stock: available " + before.String() + ", requested " + mv.Quantity.String(),
		)
	}
	if !valueobject.FitsStorage(after) {
		return nil, shared.ErrQuantityPrecision.WithMessage("Resulting stock " + after.String() + " exceeds the storable range")
	}

	wasBelow := m.IsBelowReorderThreshold()

	tx, err := NewInventoryTransaction(m, mv, before, change)
	if err != nil {
		return nil, err
	}

	m.StockQuantity = after
	m.UpdatedAt = tx.CreatedAt
	m.IncrementVersion()
	tx.MaterialVersion = m.Version

	m.AddDomainEvent(NewStockMutatedEvent(m, tx))
	if !wasBelow && m.IsBelowReorderThreshold() {
		m.AddDomainEvent(NewMaterialBelowReorderThresholdEvent(m))
	}

	return tx, nil
}
