package cooldown

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cooldown for long-running programs that check the
// registry repeatedly. It backs slotwatch.NewMemoryCooldown.
//
// Memory is safe for concurrent use. State is lost when the process exits;
// use [Store] to share the cooldown across cron runs.
type Memory struct {
	mu       sync.Mutex
	notified map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewMemory returns a [Memory] cooldown. A ttl that is not positive selects
// [DefaultTTL].
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		notified: make(map[string]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Acquire reports whether a notification for url may be sent now.
// It never returns an error.
func (m *Memory) Acquire(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if at, ok := m.notified[url]; ok && now.Sub(at) < m.ttl {
		return false, nil
	}
	m.notified[url] = now
	return true, nil
}

// TTL returns how long a URL stays suppressed after a notification.
func (m *Memory) TTL() time.Duration {
	return m.ttl
}
