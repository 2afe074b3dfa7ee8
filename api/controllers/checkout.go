package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type checkoutRequest struct {
	Email          string           `json:"email"`
	Name           *string          `json:"name,omitempty"`
	Shipping       *shippingPayload `json:"shipping,omitempty"`
	DeliveryZoneID *uuid.UUID       `json:"delivery_zone_id,omitempty"`
}

type shippingPayload struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

func (p checkoutRequest) toInput(lines []cart.Line) orders.CheckoutInput {
	input := orders.CheckoutInput{
		Email:          p.Email,
		Name:           p.Name,
		Lines:          lines,
		DeliveryZoneID: p.DeliveryZoneID,
	}
	if p.Shipping != nil {
		input.Shipping = &orders.ShippingInput{
			Name:       p.Shipping.Name,
			Phone:      p.Shipping.Phone,
			Address:    p.Shipping.Address,
			City:       p.Shipping.City,
			PostalCode: p.Shipping.PostalCode,
			Notes:      p.Shipping.Notes,
		}
	}
	return input
}

// Checkout freezes the session cart into a pending order and empties the cart.
func Checkout(cartSvc cart.Service, orderSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if cartSvc == nil || orderSvc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		session := middleware.CartSessionFromContext(ctx)
		if session == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required").
				WithDetails(map[string]any{"header": middleware.CartSessionHeader}))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := cartSvc.Snapshot(ctx, session)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := orderSvc.Checkout(ctx, payload.toInput(state.Lines))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ctx = logg.WithOrderID(ctx, order.ID.String())
		if err := cartSvc.Clear(ctx, session); err != nil {
			logg.Error(ctx, "checkout.cart_clear_failed", err)
		}
		logg.Info(ctx, "checkout.order_created")

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
