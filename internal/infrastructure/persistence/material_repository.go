package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/erp/bomengine/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMaterialRepository implements inventory.MaterialRepository using GORM
type GormMaterialRepository struct {
	db *gorm.DB
}

// NewGormMaterialRepository creates a new GormMaterialRepository
func NewGormMaterialRepository(db *gorm.DB) *GormMaterialRepository {
	return &GormMaterialRepository{db: db}
}

// FindByIDForTenant finds a live material by ID within a tenant
func (r *GormMaterialRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Material, error) {
	var model models.MaterialModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Live(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, translateMaterialError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads a live material and holds a row lock on it until
// the surrounding transaction ends.
func (r *GormMaterialRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Material, error) {
	var model models.MaterialModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.Live(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, translateMaterialError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the given live materials in one statement
func (r *GormMaterialRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Material, error) {
	if len(ids) == 0 {
		return []inventory.Material{}, nil
	}

	var rows []models.MaterialModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Live(tenantID)).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return materialsToDomain(rows), nil
}

// FindAllForTenant lists live materials with paging and optional filters
func (r *GormMaterialRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.Material, error) {
	filter = filter.Normalize()
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.MaterialModel{}).Scopes(tenant.Live(tenantID)), filter)

	orderBy := ValidateSortField(filter.OrderBy, MaterialSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.MaterialModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Order("id").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return materialsToDomain(rows), nil
}

// CountForTenant counts live materials matching the filter
func (r *GormMaterialRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.MaterialModel{}).Scopes(tenant.Live(tenantID)),
		filter,
	).Count(&count).Error
	return count, err
}

// FindExistingSKUs returns which of the given SKUs live materials already use
func (r *GormMaterialRepository) FindExistingSKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]string, error) {
	if len(skus) == 0 {
		return []string{}, nil
	}
	var taken []string
	if err := r.db.WithContext(ctx).
		Model(&models.MaterialModel{}).
		Scopes(tenant.Live(tenantID)).
		Where("sku IN ?", skus).
		Pluck("sku", &taken).Error; err != nil {
		return nil, err
	}
	return taken, nil
}

// CreateBatch inserts all materials in one statement. A unique violation on
// the SKU index maps to ErrAlreadyExists.
func (r *GormMaterialRepository) CreateBatch(ctx context.Context, materials []*inventory.Material) error {
	if len(materials) == 0 {
		return nil
	}
	rows := make([]*models.MaterialModel, len(materials))
	for i, m := range materials {
		rows[i] = models.MaterialModelFromDomain(m)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists.WithMessage("A material with this SKU already exists")
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking. The aggregate has already
// bumped its version, so the stored row must still be at Version-1.
func (r *GormMaterialRepository) SaveWithLock(ctx context.Context, m *inventory.Material) error {
	result := r.db.WithContext(ctx).
		Model(&models.MaterialModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", m.ID, m.TenantID, m.Version-1).
		Updates(map[string]any{
			"name":              m.Name,
			"sku":               m.SKU,
			"category":          m.Category,
			"stock_quantity":    m.StockQuantity,
			"reorder_threshold": m.ReorderThreshold,
			"unit_cost":         m.UnitCost,
			"supplier_ref":      m.SupplierRef,
			"deleted_at":        m.DeletedAt,
			"version":           m.Version,
			"updated_at":        m.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("Material was modified by another transaction")
	}
	return nil
}

func (r *GormMaterialRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
	}
	if category, ok := filter.Filters["category"].(string); ok && category != "" {
		query = query.Where("category = ?", category)
	}
	if below, ok := filter.Filters["below_reorder"].(bool); ok && below {
		query = query.Where("reorder_threshold > 0 AND stock_quantity < reorder_threshold")
	}
	return query
}

func materialsToDomain(rows []models.MaterialModel) []inventory.Material {
	out := make([]inventory.Material, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

func translateMaterialError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrMaterialNotFound
	}
	return err
}

// isUniqueViolation recognises unique constraint failures from PostgreSQL
// and SQLite without importing either driver's error types.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

var _ inventory.MaterialRepository = (*GormMaterialRepository)(nil)
