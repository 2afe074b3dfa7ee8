package orders

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// MaxCustomerNameLength is measured in characters after trimming.
const MaxCustomerNameLength = 100

var validate = validator.New()

// Service writes orders at checkout and serves customer and admin reads.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*OrderDTO, error)
	GetForCustomer(ctx context.Context, id uuid.UUID, email string) (*OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

// CheckoutInput is the customer submission plus the cart snapshot taken at that moment.
type CheckoutInput struct {
	Email          string
	Name           *string
	Lines          []cart.Line
	Shipping       *ShippingInput
	DeliveryZoneID *uuid.UUID
}

type ShippingInput struct {
	Name       *string `validate:"omitempty,max=100"`
	Phone      *string `validate:"omitempty,max=40"`
	Address    *string `validate:"omitempty,max=300"`
	City       *string `validate:"omitempty,max=100"`
	PostalCode *string `validate:"omitempty,max=20"`
	Notes      *string `validate:"omitempty,max=500"`
}

type service struct {
	repo            Repository
	tx              txRunner
	defaultCurrency string
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, defaultCurrency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	currency, err := enums.ParseCurrency(defaultCurrency)
	if err != nil {
		return nil, err
	}
	return &service{repo: repo, tx: tx, defaultCurrency: currency.String()}, nil
}

func validationError(field, message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

// normalizeCheckout validates everything up front so a rejected checkout performs no writes.
func normalizeCheckout(input CheckoutInput) (CheckoutInput, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validate.Var(input.Email, "required,email"); err != nil {
		return input, validationError("email", "must be a valid email")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if utf8.RuneCountInString(name) > MaxCustomerNameLength {
			return input, validationError("name", fmt.Sprintf("must be at most %d characters", MaxCustomerNameLength))
		}
		if name == "" {
			input.Name = nil
		} else {
			input.Name = &name
		}
	}
	if len(input.Lines) == 0 {
		return input, validationError("cart", "cart is empty")
	}
	for _, line := range input.Lines {
		if line.Quantity < 1 {
			return input, validationError("cart", "cart line quantity must be positive")
		}
	}
	if input.Shipping != nil {
		input.Shipping = trimShipping(*input.Shipping)
		if err := validate.Struct(input.Shipping); err != nil {
			details := map[string]string{}
			if errs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range errs {
					details["shipping."+strings.ToLower(fe.Field())] = "too long"
				}
			}
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping details").WithDetails(details)
		}
	}
	return input, nil
}

func trimShipping(in ShippingInput) *ShippingInput {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			return nil
		}
		return &t
	}
	return &ShippingInput{
		Name:       trim(in.Name),
		Phone:      trim(in.Phone),
		Address:    trim(in.Address),
		City:       trim(in.City),
		PostalCode: trim(in.PostalCode),
		Notes:      trim(in.Notes),
	}
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*OrderDTO, error) {
	input, err := normalizeCheckout(input)
	if err != nil {
		return nil, err
	}

	state := cart.State{Lines: input.Lines}
	currency := state.Currency()
	if currency == "" {
		currency = s.defaultCurrency
	}

	order := &models.Order{
		ID:             uuid.New(),
		CustomerEmail:  input.Email,
		CustomerName:   input.Name,
		TotalAmount:    state.TotalAmount().Round(2),
		Currency:       strings.ToUpper(currency),
		Status:         enums.OrderStatusPending,
		DeliveryZoneID: input.DeliveryZoneID,
	}
	if sh := input.Shipping; sh != nil {
		order.ShippingName = sh.Name
		order.ShippingPhone = sh.Phone
		order.ShippingAddress = sh.Address
		order.ShippingCity = sh.City
		order.ShippingPostalCode = sh.PostalCode
		order.ShippingNotes = sh.Notes
	}

	lines := make([]models.OrderLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		p := l.Purchasable()
		line := models.OrderLine{
			OrderID:     order.ID,
			ProductID:   l.Product.ID,
			ProductName: p.DisplayName(),
			UnitPrice:   p.UnitPrice().Round(2),
			Quantity:    l.Quantity,
		}
		if key := p.Key(); key.HasVariant() {
			variantID := key.VariantID
			line.VariantID = &variantID
		}
		lines = append(lines, line)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateOrderLines(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout transaction")
	}

	order.Lines = lines
	dto := toDTO(*order)
	return &dto, nil
}

// GetForCustomer returns the order only when the email matches; a mismatch looks like a missing order.
func (s *service) GetForCustomer(ctx context.Context, id uuid.UUID, email string) (*OrderDTO, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, validationError("email", "is required")
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	return s.load(ctx, id)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrderWithLines(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := toDTO(*order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, validationError("status", "unknown order status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListOrders(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, next := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &OrderList{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Orders = append(out.Orders, toDTO(row))
	}
	return out, nil
}

// UpdateStatus is the admin transition. Completed is reserved for payment capture.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, validationError("status", "unknown order status")
	}
	if status == enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "completed is set by payment capture only").
			WithDetails(map[string]string{"status": string(status)})
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.load(ctx, id)
}
