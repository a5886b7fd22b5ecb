package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-ledger/api/responses"
	"github.com/angelmondragon/pos-ledger/api/validators"
	"github.com/angelmondragon/pos-ledger/internal/sales"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
)

const nextCursorHeader = "X-Next-Cursor"

// ListSales returns sale headers newest first. Without limit or cursor the
// whole history is returned; otherwise one page is returned and the cursor of
// the following page, if any, is sent in X-Next-Cursor.
func ListSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, paged, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !paged {
			list, err := svc.ListSales(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, sales.NewSaleDTOs(list))
			return
		}

		page, err := svc.ListSalesPage(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if page.NextCursor != "" {
			w.Header().Set(nextCursorHeader, page.NextCursor)
		}
		responses.WriteSuccess(w, sales.NewSaleDTOs(page.Sales))
	}
}

func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetSaleWithItems(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logger.AnnotateSale(r.Context(), detail.Sale.ID, detail.Sale.Code)
		responses.WriteSuccess(w, sales.NewSaleDetailDTO(*detail))
	}
}

func GetSaleByCode(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := validators.CodeParam(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logger.Annotate(r.Context(), "sale_code", code)
		detail, err := svc.GetSaleByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logger.AnnotateSale(r.Context(), detail.Sale.ID, detail.Sale.Code)
		responses.WriteSuccess(w, sales.NewSaleDetailDTO(*detail))
	}
}
