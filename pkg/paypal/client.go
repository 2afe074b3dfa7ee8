package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 2048

	// token exchange, capture, and the order lookup after a repeated capture
	captureRoundTrips = 3
)

// CaptureBudget is the longest CaptureOrder can run with the given per-request timeout.
func CaptureBudget(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return captureRoundTrips * timeout
}

// Processor is the payment processor surface used by the payments service.
type Processor interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	CaptureOrder(ctx context.Context, paypalOrderID string) (*Capture, error)
}

// Client talks to the PayPal Orders v2 REST API using client-credentials auth.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewClient builds a client from configuration. Missing credentials are reported as a
// configuration error so boot can continue and the endpoints fail cleanly.
func NewClient(cfg config.PayPalConfig, httpClient *http.Client) (*Client, error) {
	if !cfg.HasCredentials() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "paypal credentials are not configured")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      resolveBaseURL(cfg),
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
	}, nil
}

func resolveBaseURL(cfg config.PayPalConfig) string {
	if override := strings.TrimSpace(cfg.BaseURL); override != "" {
		return strings.TrimRight(override, "/")
	}
	if cfg.Environment() == "live" || cfg.Environment() == "production" {
		return LiveBaseURL
	}
	return SandboxBaseURL
}

// BaseURL exposes the API root in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AccessToken returns a cached bearer token, exchanging client credentials when the
// cached one is missing or close to expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.expiry) > time.Minute {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "paypal token request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, statusError(resp), "paypal authentication failed")
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstreamAuth, err, "decode paypal token response")
	}
	if payload.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeUpstreamAuth, "paypal token response missing access_token")
	}

	c.token = payload.AccessToken
	c.expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.token, nil
}

// CreateOrder creates a CAPTURE-intent order with one purchase unit.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderRequest) (*Order, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	body := createOrderBody{
		Intent: IntentCapture,
		PurchaseUnits: []purchaseUnitRequest{{
			ReferenceID: in.ReferenceID,
			Amount: amount{
				CurrencyCode: currency,
				Value:        in.Amount.StringFixed(2),
			},
		}},
		ApplicationContext: applicationContext{
			BrandName:  in.BrandName,
			ReturnURL:  in.ReturnURL,
			CancelURL:  in.CancelURL,
			UserAction: "PAY_NOW",
		},
	}

	var out Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamResponse, "paypal order response missing id")
	}
	return &out, nil
}

// CaptureOrder captures an approved order. When PayPal reports the order as already
// captured, the stored order is read back so a retry sees the original capture.
func (c *Client) CaptureOrder(ctx context.Context, paypalOrderID string) (*Capture, error) {
	id := strings.TrimSpace(paypalOrderID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required")
	}

	var out captureResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(id))
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &out); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity || !apiErr.HasIssue(IssueOrderAlreadyCaptured) {
			return nil, err
		}
		out = captureResponse{}
		if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(id), nil, &out); err != nil {
			return nil, err
		}
	}
	return &Capture{
		OrderID:   firstNonEmpty(out.ID, id),
		Status:    out.Status,
		CaptureID: out.captureID(),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paypal request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamResponse, err, "paypal request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamResponse, statusError(resp), "paypal returned an error").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamResponse, err, "decode paypal response")
	}
	return nil
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(b)),
	}
	var payload errorResponse
	if json.Unmarshal(b, &payload) == nil {
		apiErr.Name = payload.Name
		for _, d := range payload.Details {
			apiErr.Issues = append(apiErr.Issues, d.Issue)
		}
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
