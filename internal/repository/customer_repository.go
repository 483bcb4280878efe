package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 顧客の保存・取得を約束
type CustomerRepository interface {
	// usernameが既にあればErrDuplicate
	Create(ctx context.Context, c model.Customer) (model.Customer, error)
	FindByID(ctx context.Context, id int64) (model.Customer, error)
	FindByUsername(ctx context.Context, username string) (model.Customer, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int64, error)
}
