package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CategoryRepository interface {
	ListAll(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	// 削除と並ぶ更新はFOR UPDATE、商品の紐付けはFOR SHAREで取る（Tx内で使う）
	FindByIDForUpdate(ctx context.Context, id int64) (model.Category, error)
	FindByIDForShare(ctx context.Context, id int64) (model.Category, error)
	// 名前重複はErrDuplicate
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, id int64) error
}
