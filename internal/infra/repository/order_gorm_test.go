package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

func createOrder(t *testing.T, r repo.TxRepos, customerID int64, at time.Time, status model.OrderStatus, items ...model.OrderItem) int64 {
	t.Helper()
	ctx := context.Background()
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	id, err := r.Orders().Create(ctx, model.Order{
		CustomerID:  customerID,
		OrderDate:   at,
		TotalAmount: total,
		Status:      status,
	})
	require.NoError(t, err)
	require.NoError(t, r.OrderItems().CreateBulk(ctx, id, items))
	return id
}

func TestOrderGorm_HistoryNewestFirstWithItems(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	r := NewRepos(gdb)
	cat := seedCategory(t, gdb, "Misc")
	p := seedProduct(t, gdb, cat.ID, "x", "2.50", 10)

	now := time.Now().UTC().Truncate(time.Second)
	older := createOrder(t, r, 1, now.Add(-time.Hour), model.OrderStatusPending,
		model.OrderItem{ProductID: p.ID, Quantity: 1, Price: p.Price})
	newer := createOrder(t, r, 1, now, model.OrderStatusPending,
		model.OrderItem{ProductID: p.ID, Quantity: 2, Price: p.Price})
	createOrder(t, r, 2, now, model.OrderStatusPending,
		model.OrderItem{ProductID: p.ID, Quantity: 4, Price: p.Price})

	orders, err := r.Orders().ListByCustomerID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer, orders[0].ID)
	assert.Equal(t, older, orders[1].ID)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, int64(2), orders[0].Items[0].Quantity)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.RequireFromString("5")))

	all, err := r.Orders().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := r.OrderItems().CountByProductID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestOrderGorm_UpdateStatusAndAggregates(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	r := NewRepos(gdb)
	cat := seedCategory(t, gdb, "Misc")
	a := seedProduct(t, gdb, cat.ID, "a", "10", 10)
	b := seedProduct(t, gdb, cat.ID, "b", "1", 10)
	now := time.Now().UTC()

	o1 := createOrder(t, r, 1, now, model.OrderStatusPending,
		model.OrderItem{ProductID: a.ID, Quantity: 1, Price: a.Price})
	o2 := createOrder(t, r, 1, now, model.OrderStatusPending,
		model.OrderItem{ProductID: b.ID, Quantity: 5, Price: b.Price})

	require.NoError(t, r.Orders().UpdateStatus(ctx, o2, model.OrderStatusCancelled))
	assert.ErrorIs(t, r.Orders().UpdateStatus(ctx, 999, model.OrderStatusShipped), repo.ErrNotFound)

	got, err := r.Orders().FindByID(ctx, o1)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)

	byStatus, err := r.Orders().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byStatus[model.OrderStatusPending])
	assert.Equal(t, int64(1), byStatus[model.OrderStatusCancelled])
	assert.Equal(t, int64(0), byStatus[model.OrderStatusShipped])

	revenue, err := r.Orders().SumRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.Equal(decimal.NewFromInt(10)), revenue.String())

	top, err := r.OrderItems().TopSellers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, b.ID, top[0].ProductID)
	assert.Equal(t, int64(5), top[0].Quantity)
	assert.Equal(t, "b", top[0].Name)
}

func TestOrderGorm_SumRevenueEmpty(t *testing.T) {
	gdb := newTestDB(t)
	revenue, err := NewOrderGormRepository(gdb).SumRevenue(context.Background())
	require.NoError(t, err)
	assert.True(t, revenue.IsZero())
}

func TestTxManagerGorm_RollbackOnError(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	tm := NewTxManagerGorm(gdb)
	boom := errors.New("boom")

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().Create(ctx, model.Category{Name: "Temp"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	cs, err := NewCategoryGormRepository(gdb).ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, cs)

	err = tm.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Categories().Create(ctx, model.Category{Name: "Kept"})
		return err
	})
	require.NoError(t, err)
	cs, err = NewCategoryGormRepository(gdb).ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, cs, 1)
}

func TestAuditLogGorm_CreateAndFilter(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	r := NewAuditLogGormRepository(gdb)

	require.NoError(t, r.Create(ctx, model.AuditLog{
		Actor: "admin", Action: model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceProduct, ResourceID: 1,
		BeforeJSON: `{"stock":1}`, AfterJSON: `{"stock":5}`,
	}))
	require.NoError(t, r.Create(ctx, model.AuditLog{
		Actor: "admin", Action: model.AuditActionDeleteCategory,
		ResourceType: model.AuditResourceCategory, ResourceID: 2,
	}))

	action := model.AuditActionUpdateStock
	logs, err := r.List(ctx, repo.AuditLogFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(1), logs[0].ResourceID)
	assert.False(t, logs[0].CreatedAt.IsZero())

	all, err := r.List(ctx, repo.AuditLogFilter{Actor: "admin"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.AuditActionDeleteCategory, all[0].Action)
}
