package persistence

import (
	"context"
	"errors"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/erp/bomengine/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements the append-only ledger
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Create appends a ledger entry. A clash on (material_id, material_version)
// means another writer already extended the chain from the same version.
func (r *GormInventoryTransactionRepository) Create(ctx context.Context, tx *inventory.InventoryTransaction) error {
	if err := r.db.WithContext(ctx).Create(models.InventoryTransactionModelFromDomain(tx)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrConcurrencyConflict.WithMessage("Ledger entry for this material version already exists")
		}
		return err
	}
	return nil
}

// FindByIDForTenant finds a ledger entry by ID
func (r *GormInventoryTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	var model models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMaterial pages through a material's ledger, newest first
func (r *GormInventoryTransactionRepository) FindByMaterial(ctx context.Context, tenantID, materialID uuid.UUID, filter shared.Filter) ([]inventory.InventoryTransaction, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("material_id = ?", materialID)
	if t, ok := filter.Filters["transaction_type"].(string); ok && t != "" {
		query = query.Where("transaction_type = ?", t)
	}
	if reason, ok := filter.Filters["reason"].(string); ok && reason != "" {
		query = query.Where("reason = ?", reason)
	}

	var rows []models.InventoryTransactionModel
	if err := query.
		Order("material_version DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return transactionsToDomain(rows), nil
}

// CountByMaterial counts a material's ledger entries
func (r *GormInventoryTransactionRepository) CountByMaterial(ctx context.Context, tenantID, materialID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryTransactionModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("material_id = ?", materialID).
		Count(&count).Error
	return count, err
}

// FindChain returns the full ledger of a material in application order
func (r *GormInventoryTransactionRepository) FindChain(ctx context.Context, tenantID, materialID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var rows []models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("material_id = ?", materialID).
		Order("material_version ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return transactionsToDomain(rows), nil
}

func transactionsToDomain(rows []models.InventoryTransactionModel) []inventory.InventoryTransaction {
	out := make([]inventory.InventoryTransaction, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ inventory.InventoryTransactionRepository = (*GormInventoryTransactionRepository)(nil)
