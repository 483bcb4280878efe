package model

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity int64           `gorm:"column:stock_quantity;not null" json:"stock_quantity"`
	CategoryID    int64           `gorm:"not null;index" json:"category_id"`
	// 外部キー用。商品が残っているカテゴリは消せない
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	// categoriesとJOINしたときだけ埋まる
	CategoryName string `gorm:"->;-:migration;column:category_name" json:"category_name,omitempty"`
	Brand        string `gorm:"type:varchar(100)" json:"brand"`
	Size         string `gorm:"type:varchar(50)" json:"size"`
	Color        string `gorm:"type:varchar(50)" json:"color"`
}
