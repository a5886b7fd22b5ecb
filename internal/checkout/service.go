package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/pos-ledger/internal/cart"
	"github.com/angelmondragon/pos-ledger/internal/sales"
	"github.com/angelmondragon/pos-ledger/pkg/db"
	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
	"github.com/angelmondragon/pos-ledger/pkg/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultMaxCodeAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records sales from cart lines.
type Service interface {
	Checkout(ctx context.Context, lines []cart.Line) (*models.Sale, error)
	CheckoutWithCode(ctx context.Context, code string, lines []cart.Line) (*models.Sale, error)
}

// Options carries the optional collaborators of the service.
type Options struct {
	Clock           func() time.Time
	Codes           CodeGenerator
	MaxCodeAttempts int
	Metrics         *metrics.CheckoutMetrics
	Logger          *logger.Logger
}

type service struct {
	// one checkout at a time
	mu sync.Mutex

	tx          txRunner
	repo        sales.Repository
	now         func() time.Time
	codes       CodeGenerator
	maxAttempts int
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
}

// NewService builds the checkout service.
func NewService(tx txRunner, repo sales.Repository, opts Options) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Codes == nil {
		opts.Codes = NewSaleCode(DefaultCodePrefix)
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	return &service{
		tx:          tx,
		repo:        repo,
		now:         opts.Clock,
		codes:       opts.Codes,
		maxAttempts: opts.MaxCodeAttempts,
		metrics:     opts.Metrics,
		logg:        opts.Logger,
	}, nil
}

// Checkout records a sale for lines under a freshly generated code. Prices
// come from the line snapshots, not the current catalog.
func (s *service) Checkout(ctx context.Context, lines []cart.Line) (*models.Sale, error) {
	return s.execute(ctx, "", lines)
}

// CheckoutWithCode records a sale under a caller-chosen code. Retrying with
// the same code after an unknown outcome fails with DUPLICATE_CODE when the
// first attempt was committed.
func (s *service) CheckoutWithCode(ctx context.Context, code string, lines []cart.Line) (*models.Sale, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale code is required")
	}
	return s.execute(ctx, code, lines)
}

func (s *service) execute(ctx context.Context, fixedCode string, lines []cart.Line) (sale *models.Sale, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, sale, err, time.Since(started)) }()

	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot check out an empty cart")
	}
	items, total, err := buildItems(lines)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Microsecond)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		code, err := s.reserveCode(ctx, repo, fixedCode, now)
		if err != nil {
			return err
		}

		record := &models.Sale{
			Code:  code,
			Date:  now,
			Total: total,
			Items: items,
		}
		if err := repo.CreateSale(ctx, record); err != nil {
			return mapInsertError(err, code)
		}
		sale = record
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "record sale")
	}
	return sale, nil
}

// reserveCode returns a code no recorded sale uses yet. Generated codes are
// retried up to maxAttempts; a caller-chosen code is never replaced.
func (s *service) reserveCode(ctx context.Context, repo sales.Repository, fixed string, now time.Time) (string, error) {
	if fixed != "" {
		exists, err := repo.CodeExists(ctx, fixed)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: check sale code")
		}
		if exists {
			return "", duplicateCode(fixed)
		}
		return fixed, nil
	}

	var last string
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		last = s.codes(now)
		exists, err := repo.CodeExists(ctx, last)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: check sale code")
		}
		if !exists {
			return last, nil
		}
	}
	return "", duplicateCode(last)
}

func (s *service) observe(ctx context.Context, sale *models.Sale, err error, elapsed time.Duration) {
	if err != nil {
		code := string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			code = string(typed.Code())
		}
		s.metrics.ObserveDuration(metrics.OutcomeFailure, elapsed)
		s.metrics.IncFailure(code)
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error_code", code), "checkout failed: "+err.Error())
		}
		return
	}

	amount, _ := sale.Total.Float64()
	s.metrics.ObserveDuration(metrics.OutcomeSuccess, elapsed)
	s.metrics.IncSuccess(amount)
	if s.logg != nil {
		ctx = s.logg.WithSaleCode(ctx, sale.Code)
		ctx = s.logg.WithFields(ctx, map[string]any{
			"sale_id": sale.ID,
			"total":   sale.Total.StringFixed(2),
			"items":   len(sale.Items),
		})
		s.logg.Info(ctx, "sale recorded")
	}
}

// buildItems validates the lines and snapshots their prices into sale items.
func buildItems(lines []cart.Line) ([]models.SaleItem, decimal.Decimal, error) {
	items := make([]models.SaleItem, 0, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		if line.Product.ID <= 0 {
			return nil, decimal.Zero, invalidLine(i, "product id is required")
		}
		if line.Quantity <= 0 {
			return nil, decimal.Zero, invalidLine(i, "quantity must be greater than zero")
		}
		if !line.Product.Price.IsPositive() {
			return nil, decimal.Zero, invalidLine(i, "price must be greater than zero")
		}
		if line.Product.Price.GreaterThanOrEqual(models.MaxAmount) {
			return nil, decimal.Zero, invalidLine(i, "price is too large")
		}
		subtotal := line.Subtotal()
		if subtotal.GreaterThanOrEqual(models.MaxAmount) {
			return nil, decimal.Zero, invalidLine(i, "line subtotal is too large")
		}
		items = append(items, models.SaleItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		})
		total = total.Add(subtotal)
	}
	if total.GreaterThanOrEqual(models.MaxAmount) {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "sale total is too large").
			WithDetails(map[string]any{"total": total.StringFixed(2), "max": models.MaxAmount.StringFixed(2)})
	}
	return items, total, nil
}

func invalidLine(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithDetails(map[string]any{"line": index})
}

func duplicateCode(code string) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateCode, "sale code already exists").
		WithDetails(map[string]any{"code": code})
}

func mapInsertError(err error, code string) error {
	switch {
	case db.IsUniqueViolation(err, "sales.code"):
		return duplicateCode(code)
	case db.IsForeignKeyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product no longer exists")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: insert sale")
	}
}
