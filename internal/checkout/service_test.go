package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/pos-ledger/internal/cart"
	product "github.com/angelmondragon/pos-ledger/internal/products"
	"github.com/angelmondragon/pos-ledger/internal/sales"
	"github.com/angelmondragon/pos-ledger/pkg/db"
	"github.com/angelmondragon/pos-ledger/pkg/db/dbtest"
	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/angelmondragon/pos-ledger/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	client   *db.Client
	products product.Service
	sales    sales.Service
	repo     sales.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	products, err := product.NewService(product.NewRepository(client.DB()), client)
	require.NoError(t, err)
	repo := sales.NewRepository(client.DB())
	salesSvc, err := sales.NewService(repo)
	require.NoError(t, err)
	return &fixture{client: client, products: products, sales: salesSvc, repo: repo}
}

func (f *fixture) service(t *testing.T, opts Options) Service {
	t.Helper()
	svc, err := NewService(f.client, f.repo, opts)
	require.NoError(t, err)
	return svc
}

func (f *fixture) product(t *testing.T, code, price string) models.Product {
	t.Helper()
	p, err := f.products.CreateProduct(context.Background(), product.ProductInput{
		Code:        code,
		Description: "product " + code,
		Price:       decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return *p
}

func (f *fixture) countSales(t *testing.T) (salesCount, itemCount int64) {
	t.Helper()
	require.NoError(t, f.client.DB().Model(&models.Sale{}).Count(&salesCount).Error)
	require.NoError(t, f.client.DB().Model(&models.SaleItem{}).Count(&itemCount).Error)
	return salesCount, itemCount
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.True(t, pkgerrors.Is(err, code), "expected %s, got %v", code, err)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, Options{})
	require.Error(t, err)

	f := newFixture(t)
	_, err = NewService(f.client, nil, Options{})
	require.Error(t, err)
}

func TestCheckoutRecordsSaleWithSnapshotTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00")
	b := f.product(t, "B", "5.00")

	c := cart.New()
	c.AddItem(a, 2)
	c.AddItem(b, 2)
	require.True(t, c.Total().Equal(decimal.RequireFromString("30.00")))

	sale, err := f.service(t, Options{}).Checkout(ctx, c.Lines())
	require.NoError(t, err)
	assert.NotZero(t, sale.ID)
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("30.00")), sale.Total.String())
	assert.True(t, strings.HasPrefix(sale.Code, "V"))
	assert.Len(t, sale.Code, 27)
	require.Len(t, sale.Items, 2)

	detail, err := f.sales.GetSaleWithItems(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.Code, detail.Sale.Code)
	assert.True(t, detail.Sale.Total.Equal(decimal.RequireFromString("30")))
	require.Len(t, detail.Items, 2)

	sum := decimal.Zero
	for _, it := range detail.Items {
		sum = sum.Add(it.Subtotal())
	}
	assert.True(t, sum.Equal(detail.Sale.Total))
	assert.Equal(t, "A", detail.Items[0].ProductCode)
	assert.Equal(t, 2, detail.Items[0].Quantity)
	assert.True(t, detail.Items[1].Price.Equal(decimal.RequireFromString("5.00")))
}

func TestCheckoutUsesCartPricesNotCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00")

	c := cart.New()
	c.AddItem(a, 3)

	// catalog changes after the product entered the cart
	_, err := f.products.UpdateProduct(ctx, a.ID, product.ProductInput{Code: "A", Description: "renamed", Price: decimal.RequireFromString("12.00")})
	require.NoError(t, err)

	sale, err := f.service(t, Options{}).Checkout(ctx, c.Lines())
	require.NoError(t, err)
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("30.00")))

	// and again after the sale was recorded
	_, err = f.products.UpdateProduct(ctx, a.ID, product.ProductInput{Code: "A", Description: "renamed twice", Price: decimal.RequireFromString("99.99")})
	require.NoError(t, err)

	detail, err := f.sales.GetSaleWithItems(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.True(t, detail.Items[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, detail.Sale.Total.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, "renamed twice", detail.Items[0].ProductDescription)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, Options{})

	_, err := svc.Checkout(context.Background(), nil)
	requireCode(t, err, pkgerrors.CodeEmptyCart)

	_, err = svc.Checkout(context.Background(), cart.New().Lines())
	requireCode(t, err, pkgerrors.CodeEmptyCart)

	salesCount, _ := f.countSales(t)
	assert.Zero(t, salesCount)
}

func TestCheckoutRejectsInvalidLines(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "1.00")
	svc := f.service(t, Options{})

	bad := [][]cart.Line{
		{{Product: a, Quantity: 0}},
		{{Product: models.Product{ID: a.ID, Price: decimal.Zero}, Quantity: 1}},
		{{Product: models.Product{Price: decimal.NewFromInt(1)}, Quantity: 1}},
	}
	for i, lines := range bad {
		_, err := svc.Checkout(context.Background(), lines)
		requireCode(t, err, pkgerrors.CodeValidation)
		assert.NotNil(t, pkgerrors.As(err).Details(), "case %d", i)
	}
}

func TestCheckoutRejectsAmountsBeyondColumnRange(t *testing.T) {
	f := newFixture(t)
	big := f.product(t, "BIG", "9999999999.99")
	half := f.product(t, "HALF", "6000000000.00")
	svc := f.service(t, Options{})

	cases := map[string][]cart.Line{
		"line subtotal": {{Product: big, Quantity: 1000003}},
		"sale total":    {{Product: half, Quantity: 1}, {Product: big, Quantity: 1}},
	}
	for name, lines := range cases {
		_, err := svc.Checkout(context.Background(), lines)
		requireCode(t, err, pkgerrors.CodeValidation)
		assert.NotNil(t, pkgerrors.As(err).Details(), name)
	}

	salesCount, itemCount := f.countSales(t)
	assert.Zero(t, salesCount)
	assert.Zero(t, itemCount)

	sale, err := svc.Checkout(context.Background(), []cart.Line{{Product: big, Quantity: 1}})
	require.NoError(t, err)
	detail, err := f.sales.GetSaleWithItems(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "9999999999.99", detail.Sale.Total.StringFixed(2))
	assert.True(t, detail.Sale.Total.Equal(detail.Items[0].Subtotal()))
}

func TestCheckoutProducesDistinctCodes(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "1.00")
	svc := f.service(t, Options{})

	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		sale, err := svc.Checkout(context.Background(), []cart.Line{{Product: a, Quantity: 1}})
		require.NoError(t, err)
		require.False(t, seen[sale.Code], "duplicate code %s", sale.Code)
		seen[sale.Code] = true
	}
}

func TestCheckoutRollsBackWhenProductVanished(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "2.00")
	ghost := models.Product{ID: 9999, Code: "GHOST", Price: decimal.RequireFromString("3.00")}

	_, err := f.service(t, Options{}).Checkout(context.Background(), []cart.Line{
		{Product: a, Quantity: 1},
		{Product: ghost, Quantity: 1},
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	salesCount, itemCount := f.countSales(t)
	assert.Zero(t, salesCount, "sale header must be rolled back")
	assert.Zero(t, itemCount)
}

func TestCheckoutWithCodeRejectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "4.00")
	svc := f.service(t, Options{})
	lines := []cart.Line{{Product: a, Quantity: 1}}

	first, err := svc.CheckoutWithCode(ctx, " VFIXED ", lines)
	require.NoError(t, err)
	assert.Equal(t, "VFIXED", first.Code)

	_, err = svc.CheckoutWithCode(ctx, "VFIXED", lines)
	requireCode(t, err, pkgerrors.CodeDuplicateCode)

	// the terminal then confirms the first attempt landed
	detail, err := f.sales.GetSaleByCode(ctx, "VFIXED")
	require.NoError(t, err)
	assert.Equal(t, first.ID, detail.Sale.ID)

	_, err = svc.CheckoutWithCode(ctx, "  ", lines)
	requireCode(t, err, pkgerrors.CodeValidation)

	salesCount, _ := f.countSales(t)
	assert.Equal(t, int64(1), salesCount)
}

func TestCheckoutRegeneratesCollidingCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1.00")
	lines := []cart.Line{{Product: a, Quantity: 1}}

	_, err := f.service(t, Options{}).CheckoutWithCode(ctx, "VTAKEN", lines)
	require.NoError(t, err)

	calls := 0
	codes := func(time.Time) string {
		calls++
		if calls == 1 {
			return "VTAKEN"
		}
		return fmt.Sprintf("VFRESH%d", calls)
	}
	sale, err := f.service(t, Options{Codes: codes}).Checkout(ctx, lines)
	require.NoError(t, err)
	assert.Equal(t, "VFRESH2", sale.Code)
	assert.Equal(t, 2, calls)
}

func TestCheckoutGivesUpAfterMaxCodeAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1.00")
	lines := []cart.Line{{Product: a, Quantity: 1}}

	_, err := f.service(t, Options{}).CheckoutWithCode(ctx, "VSAME", lines)
	require.NoError(t, err)

	calls := 0
	svc := f.service(t, Options{
		MaxCodeAttempts: 4,
		Codes:           func(time.Time) string { calls++; return "VSAME" },
	})
	_, err = svc.Checkout(ctx, lines)
	requireCode(t, err, pkgerrors.CodeDuplicateCode)
	assert.Equal(t, 4, calls)
}

// collidingRepo hides existing codes from the pre-check so the insert itself
// hits the unique constraint.
type collidingRepo struct {
	sales.Repository
}

func (r collidingRepo) WithTx(tx *gorm.DB) sales.Repository {
	return collidingRepo{Repository: r.Repository.WithTx(tx)}
}

func (r collidingRepo) CodeExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestCheckoutMapsInsertTimeUniqueViolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1.00")
	lines := []cart.Line{{Product: a, Quantity: 1}}

	_, err := f.service(t, Options{}).CheckoutWithCode(ctx, "VRACE", lines)
	require.NoError(t, err)

	svc, err := NewService(f.client, collidingRepo{Repository: f.repo}, Options{})
	require.NoError(t, err)
	_, err = svc.CheckoutWithCode(ctx, "VRACE", lines)
	requireCode(t, err, pkgerrors.CodeDuplicateCode)
}

type failingTx struct{ err error }

func (f failingTx) WithTx(context.Context, func(tx *gorm.DB) error) error { return f.err }

func TestCheckoutWrapsStorageFailures(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "1.00")

	svc, err := NewService(failingTx{err: errors.New("disk I/O error")}, f.repo, Options{})
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), []cart.Line{{Product: a, Quantity: 1}})
	requireCode(t, err, pkgerrors.CodeStorage)
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeStorage).Retryable)
}

func TestCheckoutUsesInjectedClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1.00")
	at := time.Date(2026, 5, 4, 12, 30, 0, 123456000, time.FixedZone("X", 3600))

	sale, err := f.service(t, Options{Clock: func() time.Time { return at }}).Checkout(ctx, []cart.Line{{Product: a, Quantity: 1}})
	require.NoError(t, err)
	assert.True(t, sale.Date.Equal(at))
	assert.Equal(t, time.UTC, sale.Date.Location())

	stored, err := f.sales.GetSaleWithItems(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, stored.Sale.Date.Equal(at), stored.Sale.Date.String())
}

func TestCheckoutConcurrentCallersAllCommit(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "2.50")
	svc := f.service(t, Options{})

	const n = 20
	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sale, err := svc.Checkout(context.Background(), []cart.Line{{Product: a, Quantity: i + 1}})
			errs[i] = err
			if sale != nil {
				codes[i] = sale.Code
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.False(t, seen[codes[i]])
		seen[codes[i]] = true
	}
	salesCount, itemCount := f.countSales(t)
	assert.Equal(t, int64(n), salesCount)
	assert.Equal(t, int64(n), itemCount)
}

func TestCheckoutRecordsMetrics(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "10.00")
	reg := prometheus.NewRegistry()
	svc := f.service(t, Options{Metrics: metrics.NewCheckoutMetrics(reg)})

	_, err := svc.Checkout(context.Background(), []cart.Line{{Product: a, Quantity: 3}})
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), nil)
	require.Error(t, err)

	expected := `
# HELP pos_checkout_success_total Checkouts that recorded a sale.
# TYPE pos_checkout_success_total counter
pos_checkout_success_total 1
# HELP pos_checkout_failure_total Checkouts that failed, by error code.
# TYPE pos_checkout_failure_total counter
pos_checkout_failure_total{code="EMPTY_CART"} 1
# HELP pos_sales_amount_total Sum of recorded sale totals.
# TYPE pos_sales_amount_total counter
pos_sales_amount_total 30
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"pos_checkout_success_total", "pos_checkout_failure_total", "pos_sales_amount_total"))
}

func TestNewSaleCode(t *testing.T) {
	gen := NewSaleCode("V")
	now := time.Now()

	first := gen(now)
	second := gen(now.Add(time.Millisecond))
	assert.True(t, strings.HasPrefix(first, "V"))
	assert.Len(t, first, 27)
	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}
