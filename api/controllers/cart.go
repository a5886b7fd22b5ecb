package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-ledger/api/responses"
	"github.com/angelmondragon/pos-ledger/api/validators"
	"github.com/angelmondragon/pos-ledger/internal/cart"
	productsvc "github.com/angelmondragon/pos-ledger/internal/products"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
)

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"max=9999"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=9999"`
}

func GetCart(c *cart.Cart) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, cart.NewCartDTO(c))
	}
}

// AddCartItem snapshots the current catalog entry into the cart. A missing
// or non-positive quantity adds one unit.
func AddCartItem(c *cart.Cart, products productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logger.Annotate(r.Context(), "product_id", payload.ProductID)
		product, err := products.GetProduct(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := c.AddItem(*product, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.NewCartDTO(c))
	}
}

// SetCartItemQuantity replaces a line quantity; zero or less removes it.
func SetCartItemQuantity(c *cart.Cart, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logger.Annotate(r.Context(), "product_id", id)
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := c.SetQuantity(id, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.NewCartDTO(c))
	}
}

func RemoveCartItem(c *cart.Cart, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logger.Annotate(r.Context(), "product_id", id)
		c.RemoveItem(id)
		responses.WriteSuccess(w, cart.NewCartDTO(c))
	}
}

func ClearCart(c *cart.Cart) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.Clear()
		responses.WriteSuccess(w, cart.NewCartDTO(c))
	}
}
