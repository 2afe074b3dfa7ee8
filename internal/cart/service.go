package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// PersisterFactory returns the persister backing one browser session.
type PersisterFactory func(session string) Persister

type purchasableResolver interface {
	ResolvePurchasable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (catalog.Purchasable, error)
}

// Service exposes the session-scoped cart over the API.
type Service interface {
	Get(ctx context.Context, session string) (*CartDTO, error)
	AddItem(ctx context.Context, session string, productID uuid.UUID, variantID *uuid.UUID) (*CartDTO, error)
	UpdateItem(ctx context.Context, session string, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, session string, productID uuid.UUID, variantID *uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, session string) error
	Snapshot(ctx context.Context, session string) (State, error)
}

// CartDTO is the API view of a cart.
type CartDTO struct {
	Lines       []LineDTO       `json:"lines"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency,omitempty"`
}

type LineDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	Name        string          `json:"name"`
	ImageURL    *string         `json:"image_url,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	MaxQuantity int             `json:"max_quantity"`
}

// ToDTO renders a state for API responses.
func ToDTO(state State) *CartDTO {
	dto := &CartDTO{
		Lines:       make([]LineDTO, 0, len(state.Lines)),
		TotalItems:  state.TotalItems(),
		TotalAmount: state.TotalAmount(),
		Currency:    state.Currency(),
	}
	for _, l := range state.Lines {
		p := l.Purchasable()
		line := LineDTO{
			ProductID:   l.Product.ID,
			Name:        p.DisplayName(),
			ImageURL:    l.Product.ImageURL,
			UnitPrice:   p.UnitPrice(),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
			MaxQuantity: p.Stock(),
		}
		if l.Variant != nil {
			id := l.Variant.ID
			line.VariantID = &id
		}
		dto.Lines = append(dto.Lines, line)
	}
	return dto
}

// SessionLocker serializes writes to one session's cart across API instances.
type SessionLocker interface {
	AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, scope, id, token string) error
}

const (
	lockScope    = "cart"
	lockTTL      = 5 * time.Second
	lockAttempts = 20
	lockBackoff  = 25 * time.Millisecond
)

type service struct {
	catalog    purchasableResolver
	persisters PersisterFactory
	locker     SessionLocker
	logg       *logger.Logger
}

// NewService constructs the cart service. A nil locker leaves concurrent writes to
// the same session unserialized.
func NewService(resolver purchasableResolver, persisters PersisterFactory, locker SessionLocker, logg *logger.Logger) (Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if persisters == nil {
		return nil, fmt.Errorf("persister factory required")
	}
	return &service{catalog: resolver, persisters: persisters, locker: locker, logg: logg}, nil
}

func (s *service) open(ctx context.Context, session string) (*Store, context.Context, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, ctx, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithCartSession(ctx, session)
	}
	store, err := OpenStrict(ctx, s.persisters(session), s.logg)
	if err != nil {
		return nil, ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart unavailable")
	}
	return store, ctx, nil
}

// mutate runs fn against the freshly loaded cart while holding the session lock and
// saves the result. Nothing is reported as stored unless the save succeeded.
func (s *service) mutate(ctx context.Context, session string, fn func(ctx context.Context, store *Store) (Action, error)) (State, error) {
	release, err := s.lock(ctx, strings.TrimSpace(session))
	if err != nil {
		return State{}, err
	}
	defer release()

	store, ctx, err := s.open(ctx, session)
	if err != nil {
		return State{}, err
	}
	action, err := fn(ctx, store)
	if err != nil {
		return State{}, err
	}
	state, err := store.Commit(ctx, action)
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart could not be saved")
	}
	return state, nil
}

func (s *service) lock(ctx context.Context, session string) (func(), error) {
	noop := func() {}
	if s.locker == nil || session == "" {
		return noop, nil
	}
	for attempt := 0; attempt < lockAttempts; attempt++ {
		token, err := s.locker.AcquireLock(ctx, lockScope, session, lockTTL)
		if err == nil {
			return func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockScope, session, token); err != nil && s.logg != nil {
					s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.lock.release_failed")
				}
			}, nil
		}
		if !errors.Is(err, pkgredis.ErrLockHeld) {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.lock.unavailable")
			}
			return noop, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is being updated, retry")
}

func (s *service) Get(ctx context.Context, session string) (*CartDTO, error) {
	state, err := s.Snapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	return ToDTO(state), nil
}

func (s *service) Snapshot(ctx context.Context, session string) (State, error) {
	store, _, err := s.open(ctx, session)
	if err != nil {
		return State{}, err
	}
	return store.State(), nil
}

func (s *service) AddItem(ctx context.Context, session string, productID uuid.UUID, variantID *uuid.UUID) (*CartDTO, error) {
	state, err := s.mutate(ctx, session, func(ctx context.Context, store *Store) (Action, error) {
		item, err := s.catalog.ResolvePurchasable(ctx, productID, variantID)
		if err != nil {
			return nil, err
		}
		if cur := store.State().Currency(); cur != "" && !sameCurrency(cur, item) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart cannot mix currencies").
				WithDetails(map[string]string{"currency": cur})
		}
		return AddItem{Item: item}, nil
	})
	if err != nil {
		return nil, err
	}
	return ToDTO(state), nil
}

func sameCurrency(current string, item catalog.Purchasable) bool {
	var product catalog.ProductSnapshot
	switch p := item.(type) {
	case catalog.BaseOnly:
		product = p.Product
	case catalog.WithVariant:
		product = p.Product
	}
	return strings.EqualFold(current, product.Currency)
}

func (s *service) UpdateItem(ctx context.Context, session string, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*CartDTO, error) {
	state, err := s.mutate(ctx, session, func(_ context.Context, store *Store) (Action, error) {
		if quantity > 0 {
			if _, ok := store.State().Find(keyFor(productID, variantID)); !ok {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
		}
		return UpdateQuantity{ProductID: productID, VariantID: variantID, Quantity: quantity}, nil
	})
	if err != nil {
		return nil, err
	}
	return ToDTO(state), nil
}

func (s *service) RemoveItem(ctx context.Context, session string, productID uuid.UUID, variantID *uuid.UUID) (*CartDTO, error) {
	state, err := s.mutate(ctx, session, func(context.Context, *Store) (Action, error) {
		return RemoveItem{ProductID: productID, VariantID: variantID}, nil
	})
	if err != nil {
		return nil, err
	}
	return ToDTO(state), nil
}

func (s *service) Clear(ctx context.Context, session string) error {
	_, err := s.mutate(ctx, session, func(context.Context, *Store) (Action, error) {
		return ClearCart{}, nil
	})
	return err
}
