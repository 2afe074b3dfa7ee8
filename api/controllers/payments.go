package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type createPayPalOrderRequest struct {
	OrderID string `json:"orderId"`
}

type capturePayPalOrderRequest struct {
	OrderID       string `json:"orderId"`
	PayPalOrderID string `json:"paypalOrderId"`
}

type captureResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	PayPalOrderID string `json:"paypalOrderId,omitempty"`
	CaptureID     string `json:"captureId,omitempty"`
}

func parseOrderID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "orderId must be a uuid")
	}
	return id, nil
}

// CreatePayPalOrder starts a PayPal checkout for a pending order and returns the URL
// the customer must be redirected to.
func CreatePayPalOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteFlatError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "payments unavailable"))
			return
		}

		var payload createPayPalOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteFlatError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(payload.OrderID)
		if err != nil {
			responses.WriteFlatError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), orderID)
		if err != nil {
			responses.WriteFlatError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFlat(w, http.StatusOK, result)
	}
}

// CapturePayPalOrder completes payment after the customer returns from PayPal. The
// return URL carries orderId and token, so both may come from the query string.
func CapturePayPalOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteFlatError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "payments unavailable"))
			return
		}

		var payload capturePayPalOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteFlatError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		if strings.TrimSpace(payload.OrderID) == "" {
			payload.OrderID = query.Get("orderId")
		}
		if strings.TrimSpace(payload.PayPalOrderID) == "" {
			payload.PayPalOrderID = query.Get("token")
		}

		orderID, err := parseOrderID(payload.OrderID)
		if err != nil {
			responses.WriteFlatError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Capture(r.Context(), orderID, payload.PayPalOrderID)
		if err != nil {
			responses.WriteFlatError(r.Context(), logg, w, err)
			return
		}

		resp := captureResponse{
			Success:       true,
			PayPalOrderID: result.PayPalOrderID,
			CaptureID:     result.CaptureID,
		}
		if result.AlreadyCompleted {
			resp.Message = "Order already completed"
		}
		responses.WriteFlat(w, http.StatusOK, resp)
	}
}
