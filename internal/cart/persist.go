package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// ErrNoSnapshot is returned by a Persister that has nothing stored yet.
var ErrNoSnapshot = errors.New("cart snapshot not found")

// Persister stores the serialized cart between requests.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type snapshot struct {
	Version int    `json:"v"`
	Lines   []Line `json:"lines"`
}

const snapshotVersion = 1

func encodeState(state State) ([]byte, error) {
	return json.Marshal(snapshot{Version: snapshotVersion, Lines: state.Lines})
}

// decodeState rejects snapshots that would break the line invariants.
func decodeState(data []byte) (State, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return State{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return State{}, fmt.Errorf("unsupported cart snapshot version %d", snap.Version)
	}
	state := Empty()
	for _, line := range snap.Lines {
		if line.Quantity < 1 {
			return State{}, fmt.Errorf("cart line %s has quantity %d", line.Product.ID, line.Quantity)
		}
		if state.indexOf(line.Key()) >= 0 {
			return State{}, fmt.Errorf("duplicate cart line %s", line.Product.ID)
		}
		state.Lines = append(state.Lines, line)
	}
	return state, nil
}

// MemoryPersister keeps the snapshot in process memory.
type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryPersister(initial []byte) *MemoryPersister {
	return &MemoryPersister{data: initial}
}

func (m *MemoryPersister) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNoSnapshot
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryPersister) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// Bytes returns the last saved snapshot.
func (m *MemoryPersister) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

type keyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(session string) string
}

// RedisPersister stores the snapshot under sf:cart:<session> with a sliding TTL.
type RedisPersister struct {
	store   keyValueStore
	session string
	ttl     time.Duration
}

func NewRedisPersister(store keyValueStore, session string, ttl time.Duration) *RedisPersister {
	return &RedisPersister{store: store, session: session, ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context) ([]byte, error) {
	value, err := p.store.Get(ctx, p.store.CartKey(p.session))
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return []byte(value), nil
}

func (p *RedisPersister) Save(ctx context.Context, data []byte) error {
	return p.store.Set(ctx, p.store.CartKey(p.session), string(data), p.ttl)
}
