package paypal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	IntentCapture = "CAPTURE"

	StatusCreated         = "CREATED"
	StatusApproved        = "APPROVED"
	StatusPayerActionReqd = "PAYER_ACTION_REQUIRED"
	StatusCompleted       = "COMPLETED"

	// IssueOrderAlreadyCaptured comes back with a 422 when a capture is repeated.
	IssueOrderAlreadyCaptured = "ORDER_ALREADY_CAPTURED"

	relApprove     = "approve"
	relPayerAction = "payer-action"
)

// CreateOrderRequest is the storefront view of a single-unit PayPal order.
type CreateOrderRequest struct {
	ReferenceID string
	Amount      decimal.Decimal
	Currency    string
	BrandName   string
	ReturnURL   string
	CancelURL   string
}

// Order is the subset of the PayPal order resource the storefront consumes.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

// ApprovalURL returns the link the buyer must visit, accepting either the
// classic "approve" relation or the newer "payer-action" one.
func (o Order) ApprovalURL() (string, bool) {
	for _, rel := range []string{relApprove, relPayerAction} {
		for _, link := range o.Links {
			if strings.EqualFold(link.Rel, rel) && link.Href != "" {
				return link.Href, true
			}
		}
	}
	return "", false
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// Capture is the result of capturing an approved order.
type Capture struct {
	OrderID   string
	Status    string
	CaptureID string
}

// Completed reports whether PayPal settled the payment.
func (c Capture) Completed() bool {
	return strings.EqualFold(c.Status, StatusCompleted)
}

// APIError is a non-2xx answer from PayPal.
type APIError struct {
	StatusCode int
	Status     string
	Name       string
	Issues     []string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Body)
	}
	return e.Status
}

// HasIssue reports whether PayPal listed issue in the error details.
func (e *APIError) HasIssue(issue string) bool {
	for _, got := range e.Issues {
		if strings.EqualFold(got, issue) {
			return true
		}
	}
	return false
}

type errorResponse struct {
	Name    string `json:"name"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitRequest struct {
	ReferenceID string `json:"reference_id"`
	Amount      amount `json:"amount"`
}

type applicationContext struct {
	BrandName  string `json:"brand_name,omitempty"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	UserAction string `json:"user_action,omitempty"`
}

type createOrderBody struct {
	Intent             string                `json:"intent"`
	PurchaseUnits      []purchaseUnitRequest `json:"purchase_units"`
	ApplicationContext applicationContext    `json:"application_context"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		Payments    struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (r captureResponse) captureID() string {
	for _, unit := range r.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			if capture.ID != "" {
				return capture.ID
			}
		}
	}
	return ""
}
