package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type stubResolver struct {
	items map[uuid.UUID]catalog.ProductSnapshot
}

func (s stubResolver) ResolvePurchasable(_ context.Context, productID uuid.UUID, variantID *uuid.UUID) (catalog.Purchasable, error) {
	p, ok := s.items[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if variantID != nil {
		return catalog.Resolve(p, &catalog.VariantSnapshot{ID: *variantID, Name: "V", Stock: 1}), nil
	}
	return catalog.Resolve(p, nil), nil
}

// flakyPersister wraps a memory persister and fails on demand.
type flakyPersister struct {
	*MemoryPersister
	mu      sync.Mutex
	loadErr error
	saveErr error
}

func (f *flakyPersister) fail(load, save error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr, f.saveErr = load, save
}

func (f *flakyPersister) Load(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	err := f.loadErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryPersister.Load(ctx)
}

func (f *flakyPersister) Save(ctx context.Context, data []byte) error {
	f.mu.Lock()
	err := f.saveErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryPersister.Save(ctx, data)
}

type memoryLocker struct {
	mu      sync.Mutex
	held    map[string]string
	err     error
	acquire int
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: map[string]string{}}
}

func (l *memoryLocker) AcquireLock(_ context.Context, scope, id string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquire++
	if l.err != nil {
		return "", l.err
	}
	key := scope + ":" + id
	if _, ok := l.held[key]; ok {
		return "", pkgredis.ErrLockHeld
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *memoryLocker) ReleaseLock(_ context.Context, scope, id, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := scope + ":" + id
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type serviceFixture struct {
	svc      Service
	sessions map[string]*flakyPersister
}

func newServiceFixture(t *testing.T, locker SessionLocker, products ...catalog.ProductSnapshot) *serviceFixture {
	t.Helper()
	items := map[uuid.UUID]catalog.ProductSnapshot{}
	for _, p := range products {
		items[p.ID] = p
	}
	f := &serviceFixture{sessions: map[string]*flakyPersister{}}
	var mu sync.Mutex
	svc, err := NewService(stubResolver{items: items}, func(session string) Persister {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := f.sessions[session]; !ok {
			f.sessions[session] = &flakyPersister{MemoryPersister: NewMemoryPersister(nil)}
		}
		return f.sessions[session]
	}, locker, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *serviceFixture) persister(t *testing.T, session string) *flakyPersister {
	t.Helper()
	if _, err := f.svc.Get(context.Background(), session); err != nil {
		t.Fatalf("get %s: %v", session, err)
	}
	return f.sessions[session]
}

func TestNewServiceValidatesDeps(t *testing.T) {
	if _, err := NewService(nil, func(string) Persister { return nil }, nil, nil); err == nil {
		t.Fatal("expected error without resolver")
	}
	if _, err := NewService(stubResolver{}, nil, nil, nil); err == nil {
		t.Fatal("expected error without persister factory")
	}
}

func TestServiceAddUpdateRemove(t *testing.T) {
	p := product("40.00")
	svc := newServiceFixture(t, nil, p).svc
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", p.ID, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	cart, err := svc.AddItem(ctx, "s1", p.ID, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if cart.TotalItems != 2 || !cart.TotalAmount.Equal(decimal.NewFromInt(80)) || cart.Currency != "USD" {
		t.Fatalf("unexpected cart %+v", cart)
	}

	other, err := svc.Get(ctx, "s2")
	if err != nil || len(other.Lines) != 0 {
		t.Fatalf("expected empty second session, got %+v err=%v", other, err)
	}

	cart, err = svc.UpdateItem(ctx, "s1", p.ID, nil, 5)
	if err != nil || cart.Lines[0].Quantity != 5 {
		t.Fatalf("update: %+v err=%v", cart, err)
	}

	if _, err := svc.UpdateItem(ctx, "s1", uuid.New(), nil, 1); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown line, got %v", err)
	}

	cart, err = svc.RemoveItem(ctx, "s1", p.ID, nil)
	if err != nil || len(cart.Lines) != 0 {
		t.Fatalf("remove: %+v err=%v", cart, err)
	}
}

func TestServiceRejectsMixedCurrencies(t *testing.T) {
	usd := product("1.00")
	eur := product("1.00")
	eur.Currency = "EUR"
	svc := newServiceFixture(t, nil, usd, eur).svc
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s", usd.ID, nil); err != nil {
		t.Fatalf("add usd: %v", err)
	}
	if _, err := svc.AddItem(ctx, "s", eur.ID, nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceRequiresSession(t *testing.T) {
	svc := newServiceFixture(t, nil).svc
	if _, err := svc.Get(context.Background(), "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceClear(t *testing.T) {
	p := product("2.00")
	svc := newServiceFixture(t, nil, p).svc
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "s", p.ID, nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.Clear(ctx, "s"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	state, err := svc.Snapshot(ctx, "s")
	if err != nil || !state.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v err=%v", state, err)
	}
}

func TestServiceUnknownProduct(t *testing.T) {
	svc := newServiceFixture(t, nil).svc
	if _, err := svc.AddItem(context.Background(), "s", uuid.New(), nil); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceUnreadableCartIsNotOverwritten(t *testing.T) {
	a, b := product("10.00"), product("5.00")
	f := newServiceFixture(t, nil, a, b)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.svc.AddItem(ctx, "s", a.ID, nil); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	p := f.persister(t, "s")
	p.fail(errors.New("i/o timeout"), nil)
	if _, err := f.svc.AddItem(ctx, "s", b.ID, nil); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, err := f.svc.Get(ctx, "s"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error on read, got %v", err)
	}

	p.fail(nil, nil)
	cart, err := f.svc.Get(ctx, "s")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cart.TotalItems != 2 || len(cart.Lines) != 1 || cart.Lines[0].ProductID != a.ID {
		t.Fatalf("stored cart changed: %+v", cart)
	}
}

func TestServiceFailedSaveIsReported(t *testing.T) {
	a, b := product("10.00"), product("5.00")
	f := newServiceFixture(t, nil, a, b)
	ctx := context.Background()
	if _, err := f.svc.AddItem(ctx, "s", a.ID, nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	p := f.persister(t, "s")
	p.fail(nil, errors.New("READONLY replica"))
	if _, err := f.svc.AddItem(ctx, "s", b.ID, nil); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if err := f.svc.Clear(ctx, "s"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error on clear, got %v", err)
	}

	p.fail(nil, nil)
	cart, err := f.svc.Get(ctx, "s")
	if err != nil || cart.TotalItems != 1 {
		t.Fatalf("expected the earlier cart to survive, got %+v err=%v", cart, err)
	}
}

func TestServiceSerializesConcurrentWrites(t *testing.T) {
	p := product("1.00")
	f := newServiceFixture(t, newMemoryLocker(), p)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, "shared", p.ID, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	cart, err := f.svc.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cart.TotalItems != writers {
		t.Fatalf("expected %d items, got %d", writers, cart.TotalItems)
	}
}

func TestServiceBusySessionIsConflict(t *testing.T) {
	p := product("1.00")
	locker := newMemoryLocker()
	locker.held[lockScope+":s"] = "someone-else"
	svc := newServiceFixture(t, locker, p).svc

	_, err := svc.AddItem(context.Background(), "s", p.ID, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if locker.acquire != lockAttempts {
		t.Fatalf("expected %d attempts, got %d", lockAttempts, locker.acquire)
	}
}

func TestServiceWritesWhenLockStoreIsDown(t *testing.T) {
	p := product("1.00")
	locker := newMemoryLocker()
	locker.err = errors.New("connection refused")
	svc := newServiceFixture(t, locker, p).svc

	cart, err := svc.AddItem(context.Background(), "s", p.ID, nil)
	if err != nil || cart.TotalItems != 1 {
		t.Fatalf("expected the write to proceed, got %+v err=%v", cart, err)
	}
}
