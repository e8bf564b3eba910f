package leader

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store holds named leases. Every operation must be atomic in the store
// itself: two holders can never both get a true answer for the same live
// lease.
type Store interface {
	// Acquire takes the lease if it is free or expired, or if holder
	// already owns it.
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	// Renew extends the lease only while holder still owns it.
	Renew(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	// Release drops the lease only if holder owns it.
	Release(ctx context.Context, name, holder string) error
	// Holder returns the current live holder, or "" when the lease is free.
	Holder(ctx context.Context, name string) (string, error)
}

type lease struct {
	holder    string
	expiresAt time.Time
}

// MemoryStore is a process-local Store for tests and single-node runs.
type MemoryStore struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	leases map[string]lease
}

// NewMemoryStore creates an empty store. A nil clock uses the real clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{clock: clock, leases: make(map[string]lease)}
}

func (m *MemoryStore) Acquire(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	if cur, ok := m.leases[name]; ok && cur.holder != holder && now.Before(cur.expiresAt) {
		return false, nil
	}
	m.leases[name] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryStore) Renew(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	cur, ok := m.leases[name]
	if !ok || cur.holder != holder || !now.Before(cur.expiresAt) {
		return false, nil
	}
	m.leases[name] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, name, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.leases[name]; ok && cur.holder == holder {
		delete(m.leases, name)
	}
	return nil
}

func (m *MemoryStore) Holder(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.leases[name]
	if !ok || !m.clock.Now().Before(cur.expiresAt) {
		return "", nil
	}
	return cur.holder, nil
}
