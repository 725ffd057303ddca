package tenant

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type scopedRow struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid"`
	Name     string
}

func (scopedRow) TableName() string { return "scoped_rows" }

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func TestScope(t *testing.T) {
	t.Run("adds qualified tenant condition", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "scoped_rows" WHERE "scoped_rows"."tenant_id" = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var rows []scopedRow
		err := db.Scopes(Scope(tenantID)).Find(&rows).Error

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil tenant fails without querying", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		var rows []scopedRow
		err := db.Scopes(Scope(uuid.Nil)).Find(&rows).Error

		assert.ErrorIs(t, err, shared.ErrTenantRequired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLive(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "scoped_rows" WHERE "scoped_rows"."tenant_id" = \$1 AND "scoped_rows"."deleted_at" IS NULL`).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []scopedRow
	require.NoError(t, db.Scopes(Live(tenantID)).Find(&rows).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}
