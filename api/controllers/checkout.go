package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-ledger/api/responses"
	"github.com/angelmondragon/pos-ledger/api/validators"
	"github.com/angelmondragon/pos-ledger/internal/cart"
	checkoutsvc "github.com/angelmondragon/pos-ledger/internal/checkout"
	"github.com/angelmondragon/pos-ledger/internal/sales"
	"github.com/angelmondragon/pos-ledger/pkg/db/models"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
)

type checkoutRequest struct {
	Code string `json:"code" validate:"omitempty,max=64"`
}

// Checkout records the current cart as a sale and empties the cart. When the
// client supplies a code it can safely retry after a lost response: a repeat
// fails with DUPLICATE_CODE and the sale is readable by that code.
func Checkout(svc checkoutsvc.Service, c *cart.Cart, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Code != "" {
			logger.Annotate(r.Context(), "sale_code", payload.Code)
		}

		var (
			sale  *models.Sale
			lines []cart.Line
		)
		err := c.Settle(func(current []cart.Line) error {
			var err error
			lines = current
			if payload.Code != "" {
				sale, err = svc.CheckoutWithCode(r.Context(), payload.Code, current)
			} else {
				sale, err = svc.Checkout(r.Context(), current)
			}
			return err
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logger.AnnotateSale(r.Context(), sale.ID, sale.Code)
		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutDTO(sale, lines))
	}
}

// newCheckoutDTO describes the sale from the lines that produced it, which
// carry the code and description the cashier saw.
func newCheckoutDTO(sale *models.Sale, lines []cart.Line) sales.SaleDetailDTO {
	detail := sales.SaleDetail{Sale: *sale, Items: make([]sales.ItemDetail, 0, len(sale.Items))}
	for i, item := range sale.Items {
		it := sales.ItemDetail{
			ID:        item.ID,
			SaleID:    item.SaleID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		if i < len(lines) {
			it.ProductCode = lines[i].Product.Code
			it.ProductDescription = lines[i].Product.Description
		}
		detail.Items = append(detail.Items, it)
	}
	return sales.NewSaleDetailDTO(detail)
}
