package models

import "github.com/shopspring/decimal"

// SaleItem is one line of a sale. Price is the product price captured at
// checkout and never follows later catalog edits.
type SaleItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SaleID    int64           `gorm:"column:sale_id;not null"`
	ProductID int64           `gorm:"column:product_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
}

func (SaleItem) TableName() string {
	return "sale_items"
}

// Subtotal returns price x quantity for the line.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
