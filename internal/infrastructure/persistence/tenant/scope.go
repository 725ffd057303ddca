// Package tenant provides tenant scoping for GORM queries.
//
// Every repository query goes through Scope so a row owned by another tenant
// is indistinguishable from a missing row:
//
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).First(&m, "id = ?", id)
package tenant

import (
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tenant column shared by every tenant-owned table
const Column = "tenant_id"

// Scope filters the statement to tenantID. A nil tenant fails the statement
// with shared.ErrTenantRequired rather than reading across tenants.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(shared.ErrTenantRequired)
			return db
		}
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: Column},
			Value:  tenantID,
		})
	}
}

// Live is Scope restricted to rows that have not been soft-deleted
func Live(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Scope(tenantID)(db).Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: "deleted_at"},
			Value:  nil,
		})
	}
}
