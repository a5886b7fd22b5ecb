package product

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/pos-ledger/pkg/db"
	"github.com/angelmondragon/pos-ledger/pkg/db/dbtest"
	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client)
	require.NoError(t, err)
	return svc, client
}

func input(code, description, price string) ProductInput {
	return ProductInput{Code: code, Description: description, Price: decimal.RequireFromString(price)}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), err.Error())
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)

	client := dbtest.Open(t)
	_, err = NewService(NewRepository(client.DB()), nil)
	require.Error(t, err)
}

func TestCreateProductRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, input("  A1 ", " Widget ", "10.00"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "A1", created.Code)
	require.Equal(t, "Widget", created.Description)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "A1", got.Code)
	require.Equal(t, "Widget", got.Description)
	require.True(t, got.Price.Equal(decimal.RequireFromString("10.00")), got.Price.String())

	byCode, err := svc.GetProductByCode(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, created.ID, byCode.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]ProductInput{
		"empty code":        input("  ", "Widget", "1.00"),
		"empty description": input("A1", "", "1.00"),
		"zero price":        input("A1", "Widget", "0"),
		"negative price":    input("A1", "Widget", "-2.50"),
		"sub-cent price":    input("A1", "Widget", "1.005"),
		"oversized price":   input("A1", "Widget", "10000000000.00"),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, in)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestCreateProductDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, input("A1", "Widget", "10.00"))
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, input("A1", "Other", "5.00"))
	requireCode(t, err, pkgerrors.CodeDuplicateCode)
}

func TestListProductsOrdersByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, code := range []string{"C", "A", "B"} {
		_, err := svc.CreateProduct(ctx, input(code, "item "+code, "1.50"))
		require.NoError(t, err)
	}

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	require.Equal(t, []string{"C", "A", "B"}, []string{products[0].Code, products[1].Code, products[2].Code})
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, 404)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.GetProductByCode(ctx, "missing")
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.GetProductByCode(ctx, " ")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateProduct(ctx, input("A1", "Widget", "10.00"))
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, input("B1", "Gadget", "4.00"))
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, a.ID, input("A1", "Widget XL", "12.50"))
	require.NoError(t, err)
	require.Equal(t, "Widget XL", updated.Description)

	got, err := svc.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, got.Price.Equal(decimal.RequireFromString("12.50")))

	renamed, err := svc.UpdateProduct(ctx, a.ID, input("A2", "Widget XL", "12.50"))
	require.NoError(t, err)
	require.Equal(t, "A2", renamed.Code)

	_, err = svc.UpdateProduct(ctx, a.ID, input("B1", "Widget XL", "12.50"))
	requireCode(t, err, pkgerrors.CodeDuplicateCode)

	_, err = svc.UpdateProduct(ctx, 999, input("Z9", "Ghost", "1.00"))
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.UpdateProduct(ctx, a.ID, input("A2", "Widget XL", "0"))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDeleteProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, input("A1", "Widget", "10.00"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	// already gone
	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
}

func TestDeleteProductReferencedBySaleIsRefused(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, input("A1", "Widget", "10.00"))
	require.NoError(t, err)

	sale := models.Sale{
		Code:  "VTEST",
		Date:  time.Now().UTC(),
		Total: decimal.RequireFromString("20.00"),
		Items: []models.SaleItem{{ProductID: p.ID, Quantity: 2, Price: p.Price}},
	}
	require.NoError(t, client.DB().Create(&sale).Error)

	err = svc.DeleteProduct(ctx, p.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	still, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, still.ID)
}

func TestNewProductDTOFormatsPrice(t *testing.T) {
	dto := NewProductDTO(models.Product{ID: 7, Code: "A1", Description: "Widget", Price: decimal.RequireFromString("10.5")})
	require.Equal(t, "10.50", dto.Price)
	require.Empty(t, NewProductDTOs(nil))
	require.NotNil(t, NewProductDTOs(nil))
}
