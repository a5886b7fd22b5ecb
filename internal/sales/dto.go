package sales

import (
	"time"

	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ItemDetail is a sale item joined to its product.
type ItemDetail struct {
	ID                 int64           `gorm:"column:id"`
	SaleID             int64           `gorm:"column:sale_id"`
	ProductID          int64           `gorm:"column:product_id"`
	Quantity           int             `gorm:"column:quantity"`
	Price              decimal.Decimal `gorm:"column:price"`
	ProductCode        string          `gorm:"column:product_code"`
	ProductDescription string          `gorm:"column:product_description"`
}

// Subtotal returns price x quantity.
func (d ItemDetail) Subtotal() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// SaleDetail is a sale with its items.
type SaleDetail struct {
	Sale  models.Sale
	Items []ItemDetail
}

// SaleDTO is the API shape of a sale header.
type SaleDTO struct {
	ID    int64     `json:"id"`
	Code  string    `json:"code"`
	Date  time.Time `json:"date"`
	Total string    `json:"total"`
}

// SaleItemDTO is the API shape of one sale line.
type SaleItemDTO struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

// SaleDetailDTO is a sale header plus its lines.
type SaleDetailDTO struct {
	SaleDTO
	Items []SaleItemDTO `json:"items"`
}

func NewSaleDTO(s models.Sale) SaleDTO {
	return SaleDTO{
		ID:    s.ID,
		Code:  s.Code,
		Date:  s.Date.UTC(),
		Total: s.Total.StringFixed(2),
	}
}

func NewSaleDTOs(list []models.Sale) []SaleDTO {
	out := make([]SaleDTO, 0, len(list))
	for _, s := range list {
		out = append(out, NewSaleDTO(s))
	}
	return out
}

func NewSaleDetailDTO(d SaleDetail) SaleDetailDTO {
	out := SaleDetailDTO{SaleDTO: NewSaleDTO(d.Sale), Items: make([]SaleItemDTO, 0, len(d.Items))}
	for _, it := range d.Items {
		out.Items = append(out.Items, SaleItemDTO{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Code:        it.ProductCode,
			Description: it.ProductDescription,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
			Subtotal:    it.Subtotal().StringFixed(2),
		})
	}
	return out
}
