package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Listener receives the state after every dispatched action.
type Listener func(State)

// Store owns the current cart snapshot. Transitions go through Reduce; each one is
// persisted best effort and then broadcast to subscribers.
type Store struct {
	mu        sync.Mutex
	state     State
	persister Persister
	logg      *logger.Logger

	subMu     sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// Open restores the previous snapshot from the persister. Missing, unreadable or
// corrupt data yields an empty cart; Open never fails.
func Open(ctx context.Context, persister Persister, logg *logger.Logger) *Store {
	s, _ := open(ctx, persister, logg, false)
	return s
}

// OpenStrict is Open for carts held on the server. A snapshot that cannot be read is
// returned as an error, so a later write cannot overwrite the stored cart with a
// partial one. Corrupt snapshots still yield an empty cart.
func OpenStrict(ctx context.Context, persister Persister, logg *logger.Logger) (*Store, error) {
	return open(ctx, persister, logg, true)
}

func open(ctx context.Context, persister Persister, logg *logger.Logger, strict bool) (*Store, error) {
	s := &Store{
		state:     Empty(),
		persister: persister,
		logg:      logg,
		listeners: map[int]Listener{},
	}
	if persister == nil {
		return s, nil
	}
	data, err := persister.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return s, nil
		}
		if strict {
			return nil, err
		}
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart.snapshot.unreadable")
		}
		return s, nil
	}
	state, err := decodeState(data)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart.snapshot.corrupt")
		}
		return s, nil
	}
	s.state = state
	return s, nil
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Dispatch applies the action, persists the result and notifies subscribers.
func (s *Store) Dispatch(ctx context.Context, action Action) State {
	s.mu.Lock()
	next := Reduce(s.state, action)
	s.state = next
	s.mu.Unlock()

	if Mutates(action) {
		s.persist(ctx, next)
	}
	s.notify(next)
	return next.clone()
}

// Commit applies the action only if the result is saved. On a save error the store
// keeps its previous state and subscribers are not notified.
func (s *Store) Commit(ctx context.Context, action Action) (State, error) {
	s.mu.Lock()
	next := Reduce(s.state, action)
	if Mutates(action) && s.persister != nil {
		data, err := encodeState(next)
		if err == nil {
			err = s.persister.Save(ctx, data)
		}
		if err != nil {
			s.mu.Unlock()
			return State{}, err
		}
	}
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	return next.clone(), nil
}

func (s *Store) persist(ctx context.Context, state State) {
	if s.persister == nil {
		return
	}
	data, err := encodeState(state)
	if err == nil {
		err = s.persister.Save(ctx, data)
	}
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.snapshot.save_failed")
	}
}

func (s *Store) Add(ctx context.Context, item catalog.Purchasable) State {
	return s.Dispatch(ctx, AddItem{Item: item})
}

func (s *Store) Remove(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) State {
	return s.Dispatch(ctx, RemoveItem{ProductID: productID, VariantID: variantID})
}

func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int, variantID *uuid.UUID) State {
	return s.Dispatch(ctx, UpdateQuantity{ProductID: productID, VariantID: variantID, Quantity: quantity})
}

func (s *Store) Clear(ctx context.Context) State {
	return s.Dispatch(ctx, ClearCart{})
}

func (s *Store) SetOpen(ctx context.Context, open bool) State {
	return s.Dispatch(ctx, SetOpen{Open: open})
}

func (s *Store) TotalItems() int {
	return s.State().TotalItems()
}

func (s *Store) TotalAmount() decimal.Decimal {
	return s.State().TotalAmount()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(state State) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()
	for _, fn := range listeners {
		fn(state.clone())
	}
}
