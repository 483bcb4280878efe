package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 在庫の書き込みはここだけ（商品の他の列はProductRepository）
type InventoryRepository interface {
	// 管理者の上書き。無い商品はErrNotFound
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// stock_quantity >= qty のときだけ減らす。減らせなければfalse
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 明細の順に減らし、足りなかった最初の商品IDを返す（全部減らせたら0）
	// 途中で止まった分は呼び出し側のトランザクションで戻す
	DecreaseForItems(ctx context.Context, items []model.OrderItem) (int64, error)
}
