package sales

import (
	"context"

	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	"github.com/angelmondragon/pos-ledger/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the sales ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) error
	CodeExists(ctx context.Context, code string) (bool, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
	ListSalesPage(ctx context.Context, limit int, after *pagination.Cursor) ([]models.Sale, error)
	FindSale(ctx context.Context, id int64) (*models.Sale, error)
	FindSaleByCode(ctx context.Context, code string) (*models.Sale, error)
	ListItemDetails(ctx context.Context, saleID int64) ([]ItemDetail, error)
}
