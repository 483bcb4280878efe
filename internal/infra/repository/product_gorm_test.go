package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

func TestProductGorm_FindByIDJoinsCategoryName(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	cat := seedCategory(t, gdb, "Shoes")
	p := seedProduct(t, gdb, cat.ID, "Runner", "59.90", 10)

	r := NewProductGormRepository(gdb)
	got, err := r.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Runner", got.Name)
	assert.Equal(t, "Shoes", got.CategoryName)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("59.90")))

	_, err = r.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestProductGorm_FindByIDsSkipsMissing(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	cat := seedCategory(t, gdb, "Hats")
	a := seedProduct(t, gdb, cat.ID, "A", "1", 1)
	b := seedProduct(t, gdb, cat.ID, "B", "2", 2)

	r := NewProductGormRepository(gdb)
	got, err := r.FindByIDs(ctx, []int64{b.ID, 4242, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)

	locked, err := r.FindByIDsForUpdate(ctx, []int64{a.ID})
	require.NoError(t, err)
	require.Len(t, locked, 1)

	empty, err := r.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductGorm_UpdateAndDeleteByCategory(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	shoes := seedCategory(t, gdb, "Shoes")
	bags := seedCategory(t, gdb, "Bags")
	p1 := seedProduct(t, gdb, shoes.ID, "S1", "10", 3)
	seedProduct(t, gdb, shoes.ID, "S2", "10", 3)
	bag := seedProduct(t, gdb, bags.ID, "B1", "10", 3)

	r := NewProductGormRepository(gdb)

	p1.Name = "S1 v2"
	p1.Price = decimal.RequireFromString("12.50")
	require.NoError(t, r.Update(ctx, p1))
	got, err := r.FindByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "S1 v2", got.Name)
	assert.Equal(t, int64(3), got.StockQuantity)

	p1.ID = 777
	assert.ErrorIs(t, r.Update(ctx, p1), repo.ErrNotFound)

	inCat, err := r.ListByCategoryForUpdate(ctx, shoes.ID)
	require.NoError(t, err)
	assert.Len(t, inCat, 2)

	n, err := r.DeleteByCategory(ctx, shoes.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, bag.ID, all[0].ID)

	assert.ErrorIs(t, r.Delete(ctx, p1.ID+1000), repo.ErrNotFound)
	require.NoError(t, r.Delete(ctx, bag.ID))

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProductGorm_ListLowStock(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	cat := seedCategory(t, gdb, "Misc")
	seedProduct(t, gdb, cat.ID, "plenty", "1", 50)
	low := seedProduct(t, gdb, cat.ID, "low", "1", 2)
	edge := seedProduct(t, gdb, cat.ID, "edge", "1", 5)

	got, err := NewProductGormRepository(gdb).ListLowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, low.ID, got[0].ID)
	assert.Equal(t, edge.ID, got[1].ID)
}

func TestInventoryGorm_DecreaseStockIfEnough(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	cat := seedCategory(t, gdb, "Misc")
	p := seedProduct(t, gdb, cat.ID, "x", "1", 3)

	inv := NewInventoryGormRepository(gdb)

	ok, err := inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// 残り1なので2は減らせない
	ok, err = inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := NewProductGormRepository(gdb).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.StockQuantity)

	require.NoError(t, inv.SetStock(ctx, p.ID, 40))
	assert.ErrorIs(t, inv.SetStock(ctx, p.ID+1, 1), repo.ErrNotFound)
}

func TestInventoryGorm_DecreaseForItemsStopsAtShortage(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	cat := seedCategory(t, gdb, "Misc")
	a := seedProduct(t, gdb, cat.ID, "a", "1", 5)
	b := seedProduct(t, gdb, cat.ID, "b", "1", 1)

	inv := NewInventoryGormRepository(gdb)

	short, err := inv.DecreaseForItems(ctx, []model.OrderItem{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Zero(t, short)

	short, err = inv.DecreaseForItems(ctx, []model.OrderItem{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, short)
}
