package inventory

import (
	"context"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
)

// MaterialRepository defines the interface for material persistence.
// Every finder is tenant-scoped and ignores soft-deleted materials; a
// material owned by another tenant is reported as not found.
type MaterialRepository interface {
	// FindByIDForTenant finds a material by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Material, error)

	// FindByIDForUpdate finds a material and takes a row-level write lock on
	// it. Only meaningful inside a transaction scope.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Material, error)

	// FindByIDs finds the given materials; missing IDs are simply absent
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Material, error)

	// FindAllForTenant lists materials, optionally filtered by category or search
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Material, error)

	// CountForTenant counts materials matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// FindExistingSKUs returns which of the given normalised SKUs are taken
	FindExistingSKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]string, error)

	// CreateBatch inserts new materials
	CreateBatch(ctx context.Context, materials []*Material) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, material *Material) error
}

// InventoryTransactionRepository persists ledger entries. There is no update
// or delete: entries are append-only.
type InventoryTransactionRepository interface {
	// Create appends a ledger entry
	Create(ctx context.Context, tx *InventoryTransaction) error

	// FindByIDForTenant finds a ledger entry by ID
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*InventoryTransaction, error)

	// FindByMaterial lists a material's entries, newest first
	FindByMaterial(ctx context.Context, tenantID, materialID uuid.UUID, filter shared.Filter) ([]InventoryTransaction, error)

	// CountByMaterial counts a material's entries
	CountByMaterial(ctx context.Context, tenantID, materialID uuid.UUID) (int64, error)

	// FindChain returns a material's full ledger, oldest first
	FindChain(ctx context.Context, tenantID, materialID uuid.UUID) ([]InventoryTransaction, error)
}
