package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the first value that no longer fits a NUMERIC(12,2) column.
var MaxAmount = decimal.New(1, 10)

// Sale is an immutable ledger entry written once at checkout.
type Sale struct {
	ID    int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Code  string          `gorm:"column:code;not null;uniqueIndex"`
	Date  time.Time       `gorm:"column:date;not null"`
	Total decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Items []SaleItem      `gorm:"foreignKey:SaleID"`
}

func (Sale) TableName() string {
	return "sales"
}
