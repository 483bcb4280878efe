package model

import "github.com/shopspring/decimal"

type ProductSales struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
}

// 管理画面の統計レポート
type StoreStatistics struct {
	TotalOrders     int64                 `json:"total_orders"`
	TotalRevenue    decimal.Decimal       `json:"total_revenue"`
	OrdersByStatus  map[OrderStatus]int64 `json:"orders_by_status"`
	TotalCustomers  int64                 `json:"total_customers"`
	TotalProducts   int64                 `json:"total_products"`
	LowStock        []Product             `json:"low_stock"`
	TopSellers      []ProductSales        `json:"top_sellers"`
	LowStockCeiling int64                 `json:"low_stock_threshold"`
}
