package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
)

// テストごとに独立したインメモリDB
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func seedCategory(t *testing.T, gdb *gorm.DB, name string) model.Category {
	t.Helper()
	c, err := NewCategoryGormRepository(gdb).Create(context.Background(), model.Category{Name: name})
	require.NoError(t, err)
	return c
}

func seedProduct(t *testing.T, gdb *gorm.DB, categoryID int64, name string, price string, stock int64) model.Product {
	t.Helper()
	p, err := NewProductGormRepository(gdb).Create(context.Background(), model.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		CategoryID:    categoryID,
	})
	require.NoError(t, err)
	return p
}
