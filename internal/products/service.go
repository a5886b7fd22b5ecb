package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/pos-ledger/pkg/db"
	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes catalog management operations.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductByCode(ctx context.Context, code string) (*models.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// ProductInput holds the fields accepted on create and update.
type ProductInput struct {
	Code        string
	Description string
	Price       decimal.Decimal
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list products")
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return product, nil
}

func (s *service) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	product, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return product, nil
}

// CreateProduct validates the input and inserts a new product.
func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	var created *models.Product
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureCodeFree(ctx, repo, input.Code, 0); err != nil {
			return err
		}
		product := &models.Product{
			Code:        input.Code,
			Description: input.Description,
			Price:       input.Price,
		}
		created, err = repo.Create(ctx, product)
		if err != nil {
			return mapWriteError(err, input.Code, "db: insert product")
		}
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "create product")
	}
	return created, nil
}

// UpdateProduct replaces code, description and price of an existing product.
// Past sales keep the price they were sold at.
func (s *service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*models.Product, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	var updated *models.Product
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLoadError(err)
		}
		if product.Code != input.Code {
			if err := ensureCodeFree(ctx, repo, input.Code, id); err != nil {
				return err
			}
		}

		product.Code = input.Code
		product.Description = input.Description
		product.Price = input.Price
		updated, err = repo.Update(ctx, product)
		if err != nil {
			return mapWriteError(err, input.Code, "db: update product")
		}
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "update product")
	}
	return updated, nil
}

// DeleteProduct removes a product. Missing products are treated as already
// deleted; products referenced by a sale cannot be removed.
func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		refs, err := repo.CountSaleItems(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: count sale items")
		}
		if refs > 0 {
			return productInUse(id, refs)
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return productInUse(id, refs)
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: delete product")
		}
		return nil
	})
	if err != nil {
		return asTyped(err, "delete product")
	}
	return nil
}

func normalizeInput(input ProductInput) (ProductInput, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Description = strings.TrimSpace(input.Description)

	switch {
	case input.Code == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "code is required").
			WithDetails(map[string]any{"field": "code"})
	case input.Description == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "description is required").
			WithDetails(map[string]any{"field": "description"})
	case !input.Price.IsPositive():
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero").
			WithDetails(map[string]any{"field": "price"})
	case !input.Price.Equal(input.Price.Round(2)):
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price must have at most two decimal places").
			WithDetails(map[string]any{"field": "price"})
	case input.Price.GreaterThanOrEqual(models.MaxAmount):
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price is too large").
			WithDetails(map[string]any{"field": "price"})
	}
	return input, nil
}

func ensureCodeFree(ctx context.Context, repo *Repository, code string, excludeID int64) error {
	taken, err := repo.CodeTaken(ctx, code, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: check product code")
	}
	if taken {
		return duplicateCode(code)
	}
	return nil
}

func duplicateCode(code string) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateCode, "product code already exists").
		WithDetails(map[string]any{"code": code})
}

func productInUse(id, refs int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by recorded sales").
		WithDetails(map[string]any{"product_id": id, "sale_items": refs})
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load product")
}

func mapWriteError(err error, code, msg string) error {
	if db.IsUniqueViolation(err, "products.code") {
		return duplicateCode(code)
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, msg)
}

func asTyped(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, msg)
}
