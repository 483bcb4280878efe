package repository

import (
	"context"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 明細付き・新しい順
	ListByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	// 集計
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
	// CANCELLED以外の合計
	SumRevenue(ctx context.Context) (decimal.Decimal, error)
}
