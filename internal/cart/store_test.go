package cart

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type failingPersister struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingPersister) Load(context.Context) ([]byte, error) { return nil, f.loadErr }
func (f *failingPersister) Save(context.Context, []byte) error {
	f.saves++
	return f.saveErr
}

func testLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Output: buf})
}

func TestOpenRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryPersister(nil)
	p := product("40.00")

	first := Open(ctx, persister, nil)
	first.Add(ctx, base(p))
	first.Add(ctx, base(p))

	second := Open(ctx, persister, nil)
	state := second.State()
	if len(state.Lines) != 1 || state.Lines[0].Quantity != 2 {
		t.Fatalf("expected restored line with quantity 2, got %+v", state.Lines)
	}
	if state.Open {
		t.Fatal("open flag should not survive a reload")
	}
}

func TestOpenFallsBackToEmptyOnCorruptData(t *testing.T) {
	ctx := context.Background()
	cases := map[string][]byte{
		"garbage":       []byte("{not json"),
		"wrong version": []byte(`{"v":99,"lines":[]}`),
		"zero quantity": []byte(`{"v":1,"lines":[{"product":{"id":"` + uuid.NewString() + `"},"quantity":0}]}`),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			store := Open(ctx, NewMemoryPersister(data), testLogger(&buf))
			if !store.State().IsEmpty() {
				t.Fatalf("expected empty cart")
			}
			if !strings.Contains(buf.String(), "cart.snapshot.corrupt") {
				t.Fatalf("expected corrupt snapshot log, got %s", buf.String())
			}
		})
	}
}

func TestOpenFallsBackToEmptyOnReadError(t *testing.T) {
	store := Open(context.Background(), &failingPersister{loadErr: errors.New("boom")}, nil)
	if !store.State().IsEmpty() {
		t.Fatal("expected empty cart")
	}
}

func TestSaveFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	persister := &failingPersister{loadErr: ErrNoSnapshot, saveErr: errors.New("disk full")}
	store := Open(ctx, persister, testLogger(&buf))

	state := store.Add(ctx, base(product("3.00")))
	if state.TotalItems() != 1 || persister.saves != 1 {
		t.Fatalf("expected 1 item and 1 save, got %d and %d", state.TotalItems(), persister.saves)
	}
	if !strings.Contains(buf.String(), "cart.snapshot.save_failed") {
		t.Fatalf("expected save failure log, got %s", buf.String())
	}
}

func TestSetOpenIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	persister := &failingPersister{loadErr: ErrNoSnapshot}
	store := Open(ctx, persister, nil)
	store.SetOpen(ctx, true)
	if persister.saves != 0 || !store.State().Open {
		t.Fatalf("expected open without saving, saves=%d", persister.saves)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, nil, nil)
	p := product("2.00")

	var seen []int
	unsubscribe := store.Subscribe(func(s State) {
		seen = append(seen, s.TotalItems())
	})
	store.Add(ctx, base(p))
	store.UpdateQuantity(ctx, p.ID, 4, nil)
	unsubscribe()
	store.Clear(ctx)

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 4 {
		t.Fatalf("expected notifications [1 4], got %v", seen)
	}
	if store.TotalItems() != 0 || !store.TotalAmount().IsZero() {
		t.Fatalf("expected cleared store")
	}
}

type fakeKV struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttl[key] = ttl
	return nil
}

func (f *fakeKV) CartKey(session string) string { return "sf:cart:" + session }

func TestRedisPersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
	persister := NewRedisPersister(kv, "abc", time.Hour)

	if _, err := persister.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	store := Open(ctx, persister, nil)
	store.Add(ctx, base(product("1.00")))

	if _, ok := kv.data["sf:cart:abc"]; !ok {
		t.Fatal("expected snapshot under sf:cart:abc")
	}
	if kv.ttl["sf:cart:abc"] != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", kv.ttl["sf:cart:abc"])
	}
	if got := Open(ctx, persister, nil).TotalItems(); got != 1 {
		t.Fatalf("expected 1 item after reload, got %d", got)
	}
}

func TestCommitKeepsStateWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	persister := &failingPersister{loadErr: ErrNoSnapshot, saveErr: errors.New("disk full")}
	store := Open(ctx, persister, nil)
	notified := 0
	store.Subscribe(func(State) { notified++ })

	if _, err := store.Commit(ctx, AddItem{Item: base(product("3.00"))}); err == nil {
		t.Fatal("expected save error")
	}
	if store.TotalItems() != 0 || notified != 0 {
		t.Fatalf("expected untouched store, items=%d notified=%d", store.TotalItems(), notified)
	}

	persister.saveErr = nil
	state, err := store.Commit(ctx, AddItem{Item: base(product("3.00"))})
	if err != nil || state.TotalItems() != 1 || notified != 1 {
		t.Fatalf("commit: items=%d notified=%d err=%v", state.TotalItems(), notified, err)
	}
}

func TestOpenStrictSurfacesReadErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenStrict(ctx, &failingPersister{loadErr: errors.New("timeout")}, nil); err == nil {
		t.Fatal("expected read error")
	}
	store, err := OpenStrict(ctx, &failingPersister{loadErr: ErrNoSnapshot}, nil)
	if err != nil || store.TotalItems() != 0 {
		t.Fatalf("missing snapshot should open empty, err=%v", err)
	}
	store, err = OpenStrict(ctx, NewMemoryPersister([]byte("{not json")), nil)
	if err != nil || store.TotalItems() != 0 {
		t.Fatalf("corrupt snapshot should open empty, err=%v", err)
	}
}
