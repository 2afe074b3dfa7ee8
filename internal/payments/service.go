package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/paypal"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	captureLockScope = "capture"
	captureLockSlack = 10 * time.Second

	outcomeSuccess          = "success"
	outcomeAlreadyCompleted = "already_completed"
)

// Service hands orders off to PayPal and reconciles them on return.
type Service interface {
	Initiate(ctx context.Context, orderID uuid.UUID) (*InitiateResult, error)
	Capture(ctx context.Context, orderID uuid.UUID, paypalOrderID string) (*CaptureResult, error)
}

// InitiateResult is returned to the storefront so it can redirect the customer.
type InitiateResult struct {
	PayPalOrderID string `json:"paypalOrderId"`
	ApprovalURL   string `json:"approvalUrl"`
}

type CaptureResult struct {
	OrderID          uuid.UUID `json:"orderId"`
	PayPalOrderID    string    `json:"paypalOrderId"`
	CaptureID        string    `json:"captureId,omitempty"`
	AlreadyCompleted bool      `json:"alreadyCompleted"`
}

type orderStore interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdatePayPalOrderID(ctx context.Context, id uuid.UUID, paypalOrderID string) error
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
}

type locker interface {
	AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, scope, id, token string) error
}

// ServiceParams wires the payment service. Processor is nil when PayPal credentials are
// not configured; Locker, Notifier and Metrics are optional. The capture lock lives at
// least as long as a capture can take with ProcessorTimeout per request.
type ServiceParams struct {
	Orders    orderStore
	Processor paypal.Processor
	Locker    locker
	Notifier  notifications.Notifier
	Metrics   *metrics.PaymentMetrics
	Logger    *logger.Logger
	SiteURL   string
	BrandName string
	LockTTL   time.Duration

	ProcessorTimeout time.Duration
}

type service struct {
	orders    orderStore
	processor paypal.Processor
	locker    locker
	notifier  notifications.Notifier
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
	siteURL   string
	brandName string
	lockTTL   time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	site := strings.TrimRight(strings.TrimSpace(params.SiteURL), "/")
	if site == "" {
		return nil, fmt.Errorf("site url required")
	}
	if params.Notifier == nil {
		params.Notifier = notifications.NewLogNotifier(params.Logger)
	}
	if floor := paypal.CaptureBudget(params.ProcessorTimeout) + captureLockSlack; params.LockTTL < floor {
		params.LockTTL = floor
	}
	return &service{
		orders:    params.Orders,
		processor: params.Processor,
		locker:    params.Locker,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      params.Logger,
		siteURL:   site,
		brandName: params.BrandName,
		lockTTL:   params.LockTTL,
	}, nil
}

func (s *service) Initiate(ctx context.Context, orderID uuid.UUID) (result *InitiateResult, err error) {
	started := time.Now()
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	defer func() { s.record(ctx, metrics.OperationInitiate, started, outcomeSuccess, err) }()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	processor, err := s.requireProcessor()
	if err != nil {
		return nil, err
	}

	created, err := processor.CreateOrder(ctx, paypal.CreateOrderRequest{
		ReferenceID: order.ID.String(),
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
		BrandName:   s.brandName,
		ReturnURL:   s.redirectURL("success", order.ID),
		CancelURL:   s.redirectURL("cancel", order.ID),
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdatePayPalOrderID(ctx, order.ID, created.ID); err != nil {
		// The customer can still approve; capture then fails verification and is retried from checkout.
		s.logg.Error(s.logg.WithField(ctx, "paypal_order_id", created.ID), "payments.initiate.persist_session_failed", err)
	}

	approval, ok := created.ApprovalURL()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamResponse, "paypal response missing approval link").
			WithDetails(map[string]string{"paypal_order_id": created.ID})
	}

	s.logg.Info(s.logg.WithField(ctx, "paypal_order_id", created.ID), "payments.initiate.created")
	return &InitiateResult{PayPalOrderID: created.ID, ApprovalURL: approval}, nil
}

func (s *service) Capture(ctx context.Context, orderID uuid.UUID, paypalOrderID string) (result *CaptureResult, err error) {
	started := time.Now()
	outcome := outcomeSuccess
	paypalOrderID = strings.TrimSpace(paypalOrderID)
	ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{"paypal_order_id": paypalOrderID})
	defer func() { s.record(ctx, metrics.OperationCapture, started, outcome, err) }()

	if paypalOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required").
			WithDetails(map[string]string{"paypalOrderId": "is required"})
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := verifySession(order, paypalOrderID); err != nil {
		s.logg.Warn(ctx, "payments.capture.session_mismatch")
		return nil, err
	}
	if order.Status == enums.OrderStatusCompleted {
		outcome = outcomeAlreadyCompleted
		return &CaptureResult{OrderID: order.ID, PayPalOrderID: paypalOrderID, AlreadyCompleted: true}, nil
	}

	processor, err := s.requireProcessor()
	if err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another request may have finished between the first read and the lock.
	order, err = s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCompleted {
		outcome = outcomeAlreadyCompleted
		return &CaptureResult{OrderID: order.ID, PayPalOrderID: paypalOrderID, AlreadyCompleted: true}, nil
	}

	captured, err := processor.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		return nil, err
	}
	if !captured.Completed() {
		s.logg.Warn(s.logg.WithField(ctx, "paypal_status", captured.Status), "payments.capture.not_completed")
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotCompleted, "payment not completed").
			WithDetails(map[string]string{"status": captured.Status})
	}

	changed, err := s.orders.MarkCompleted(ctx, order.ID)
	if err != nil {
		// PayPal holds the funds; the order must be reconciled by hand.
		s.logg.Error(s.logg.WithField(ctx, "capture_id", captured.CaptureID), "payments.capture.mark_completed_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order completed")
	}
	if !changed {
		outcome = outcomeAlreadyCompleted
	} else {
		s.notify(ctx, order, captured)
	}

	s.logg.Info(s.logg.WithField(ctx, "capture_id", captured.CaptureID), "payments.capture.completed")
	return &CaptureResult{
		OrderID:          order.ID,
		PayPalOrderID:    paypalOrderID,
		CaptureID:        captured.CaptureID,
		AlreadyCompleted: !changed,
	}, nil
}

func (s *service) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) requireProcessor() (paypal.Processor, error) {
	if s.processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "paypal credentials not configured")
	}
	return s.processor, nil
}

func verifySession(order *models.Order, paypalOrderID string) error {
	if order.PayPalOrderID == nil || *order.PayPalOrderID != paypalOrderID {
		return pkgerrors.New(pkgerrors.CodeVerification, "payment session does not match order")
	}
	return nil
}

// lock serializes captures per order. Without a locker, or when Redis is unreachable,
// the conditional status update is the remaining guard.
func (s *service) lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	id := orderID.String()
	token, err := s.locker.AcquireLock(ctx, captureLockScope, id, s.lockTTL)
	if err != nil {
		if errors.Is(err, pkgredis.ErrLockHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "capture already in progress")
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payments.capture.lock_unavailable")
		return noop, nil
	}
	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), captureLockScope, id, token); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payments.capture.lock_release_failed")
		}
	}, nil
}

func (s *service) notify(ctx context.Context, order *models.Order, captured *paypal.Capture) {
	event := notifications.OrderCompleted{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		PayPalOrderID: captured.OrderID,
		CaptureID:     captured.CaptureID,
	}
	if order.ShippingName != nil || order.ShippingAddress != nil || order.ShippingCity != nil ||
		order.ShippingPhone != nil || order.ShippingPostalCode != nil || order.ShippingNotes != nil {
		event.Shipping = &notifications.Shipping{
			Name:       order.ShippingName,
			Phone:      order.ShippingPhone,
			Address:    order.ShippingAddress,
			City:       order.ShippingCity,
			PostalCode: order.ShippingPostalCode,
			Notes:      order.ShippingNotes,
		}
	}
	if event.PayPalOrderID == "" && order.PayPalOrderID != nil {
		event.PayPalOrderID = *order.PayPalOrderID
	}
	if err := s.notifier.OrderCompleted(ctx, event); err != nil {
		s.logg.Error(ctx, "payments.capture.notify_failed", err)
	}
}

func (s *service) redirectURL(outcome string, orderID uuid.UUID) string {
	q := url.Values{}
	q.Set("orderId", orderID.String())
	return fmt.Sprintf("%s/payment/%s?%s", s.siteURL, outcome, q.Encode())
}

func (s *service) record(ctx context.Context, operation string, started time.Time, outcome string, err error) {
	if err != nil {
		outcome = outcomeFor(err)
	}
	s.metrics.ObserveDuration(operation, time.Since(started))
	s.metrics.IncOutcome(operation, outcome)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"operation": operation,
			"outcome":   outcome,
			"error":     err.Error(),
		}), "payments.failed")
	}
}

func outcomeFor(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "error"
}
