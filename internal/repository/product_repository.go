package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")
	// 外部キー違反（参照先がない、または参照されている）
	ErrInUse = errors.New("in use")
)

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	// カテゴリ名付きの全件
	ListAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// 指定IDをまとめて取得（存在しないIDは結果に含まれない）
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	// 行ロック付き取得（トランザクション内で使う）
	FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Product, error)
	ListByCategoryForUpdate(ctx context.Context, categoryID int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error
	DeleteByCategory(ctx context.Context, categoryID int64) (int64, error)

	// 在庫がしきい値以下の商品
	ListLowStock(ctx context.Context, threshold int64) ([]model.Product, error)
	Count(ctx context.Context) (int64, error)
}
