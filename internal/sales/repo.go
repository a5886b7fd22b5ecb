package sales

import (
	"context"

	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	"github.com/angelmondragon/pos-ledger/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const itemDetailColumns = `
si.id,
si.sale_id,
si.product_id,
si.quantity,
si.price,
p.code AS product_code,
p.description AS product_description`

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateSale inserts the sale header and then its items. Callers run it
// inside a transaction so a failed item insert discards the header.
func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	items := sale.Items
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(sale).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].SaleID = sale.ID
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return err
	}
	sale.Items = items
	return nil
}

func (r *repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListSales returns sale headers, newest first. Sales recorded in the same
// instant keep insertion order reversed.
func (r *repository) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.db.WithContext(ctx).
		Order("date DESC").
		Order("id DESC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// ListSalesPage returns up to limit sale headers in ListSales order, starting
// after the cursor row when one is given.
func (r *repository) ListSalesPage(ctx context.Context, limit int, after *pagination.Cursor) ([]models.Sale, error) {
	q := r.db.WithContext(ctx).
		Order("date DESC").
		Order("id DESC").
		Limit(limit)
	if after != nil {
		q = q.Where("date < ? OR (date = ? AND id < ?)", after.Date, after.Date, after.ID)
	}

	var sales []models.Sale
	if err := q.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repository) FindSale(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindSaleByCode(ctx context.Context, code string) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListItemDetails joins each item of the sale to the product's current code
// and description. Price stays the snapshot stored on the item.
func (r *repository) ListItemDetails(ctx context.Context, saleID int64) ([]ItemDetail, error) {
	var rows []ItemDetail
	if err := r.db.WithContext(ctx).
		Table("sale_items AS si").
		Select(itemDetailColumns).
		Joins("JOIN products p ON p.id = si.product_id").
		Where("si.sale_id = ?", saleID).
		Order("si.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
