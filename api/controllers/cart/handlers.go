package cart

import (
	"net/http"

	cartdto "github.com/gomarketplace/cartstore/api/controllers/cart/dto"
	"github.com/gomarketplace/cartstore/api/responses"
	"github.com/gomarketplace/cartstore/api/validators"
	cartsvc "github.com/gomarketplace/cartstore/internal/cart"
	pkgerrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/logger"
)

const productIDParam = "productID"

// CartFetch returns the current line items and their summary.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeUnavailable(w, r, logg)
			return
		}
		writeCart(w, svc)
	}
}

// CartAddItem places a product in the cart, or bumps its quantity when present.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeUnavailable(w, r, logg)
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProductID(ctx, payload.ID)
		}
		if _, err := svc.Add(ctx, payload.Product()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCart(w, svc)
	}
}

// CartIncrementItem raises the quantity of a product already in the cart.
func CartIncrementItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeUnavailable(w, r, logg)
			return
		}

		id, err := validators.RequirePathParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.Increment(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, svc)
	}
}

// CartDecrementItem lowers the quantity by one; the line item is removed at zero.
func CartDecrementItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeUnavailable(w, r, logg)
			return
		}

		id, err := validators.RequirePathParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, _, err := svc.Decrement(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, svc)
	}
}

func writeCart(w http.ResponseWriter, svc cartsvc.Service) {
	items, summary := svc.View()
	responses.WriteSuccess(w, cartdto.NewCart(items, summary))
}

func writeUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
}
