package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/angelmondragon/pos-ledger/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes read access to recorded sales.
type Service interface {
	ListSales(ctx context.Context) ([]models.Sale, error)
	ListSalesPage(ctx context.Context, params pagination.Params) (*SalePage, error)
	GetSaleWithItems(ctx context.Context, id int64) (*SaleDetail, error)
	GetSaleByCode(ctx context.Context, code string) (*SaleDetail, error)
}

type service struct {
	repo Repository
}

// NewService wires a sales query service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListSales(ctx context.Context) ([]models.Sale, error) {
	list, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list sales")
	}
	return list, nil
}

// SalePage is one slice of the sales history. NextCursor is empty on the
// last page.
type SalePage struct {
	Sales      []models.Sale
	NextCursor string
}

func (s *service) ListSalesPage(ctx context.Context, params pagination.Params) (*SalePage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list, err := s.repo.ListSalesPage(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list sales page")
	}

	page := &SalePage{Sales: list}
	if len(list) > limit {
		page.Sales = list[:limit]
		last := page.Sales[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{Date: last.Date, ID: last.ID})
	}
	return page, nil
}

func (s *service) GetSaleWithItems(ctx context.Context, id int64) (*SaleDetail, error) {
	sale, err := s.repo.FindSale(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return s.withItems(ctx, sale)
}

// GetSaleByCode is how a terminal confirms whether a checkout whose outcome
// it never saw was recorded.
func (s *service) GetSaleByCode(ctx context.Context, code string) (*SaleDetail, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	sale, err := s.repo.FindSaleByCode(ctx, code)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return s.withItems(ctx, sale)
}

func (s *service) withItems(ctx context.Context, sale *models.Sale) (*SaleDetail, error) {
	items, err := s.repo.ListItemDetails(ctx, sale.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load sale items")
	}
	return &SaleDetail{Sale: *sale, Items: items}, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load sale")
}
