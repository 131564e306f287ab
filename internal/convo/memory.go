package convo

import (
	"context"
	"sync"
	"time"
)

type memoryKey struct {
	userID int64
	key    string
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Entries are dropped lazily on read
// and by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memoryKey]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. now may be nil, in which
// case time.Now is used.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[memoryKey]memoryEntry),
		now:     now,
	}
}

func (m *MemoryStore) Set(ctx context.Context, userID int64, state State, ttl time.Duration) error {
	if state == StateNone {
		return m.Clear(ctx, userID, KeyState)
	}
	return m.SetScratch(ctx, userID, KeyState, string(state), ttl)
}

func (m *MemoryStore) Get(ctx context.Context, userID int64) (State, error) {
	v, ok, err := m.GetScratch(ctx, userID, KeyState)
	if err != nil || !ok {
		return StateNone, err
	}
	return State(v), nil
}

func (m *MemoryStore) SetScratch(_ context.Context, userID int64, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey{userID, key}] = memoryEntry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) GetScratch(_ context.Context, userID int64, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey{userID, key}
	e, ok := m.entries[k]
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, k)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memoryKey{userID, key})
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (m *MemoryStore) Sweep(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var n int64
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}
