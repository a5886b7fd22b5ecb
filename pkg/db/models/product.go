package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry that can be added to the cart.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Code        string          `gorm:"column:code;not null;uniqueIndex"`
	Description string          `gorm:"column:description;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
