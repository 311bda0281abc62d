// Package cooldown suppresses repeat notifications for the same page.
//
// Without a cooldown every run re-notifies for every page that still looks
// available. A [Store] remembers notified URLs in Redis for a fixed TTL so
// that runs started by cron within that window stay quiet.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is used when Options.TTL is not positive.
const DefaultTTL = 6 * time.Hour

// DefaultKeyPrefix namespaces cooldown keys.
const DefaultKeyPrefix = "slotwatch:"

// Options configure a Redis-backed [Store].
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration

	// DialTimeout bounds connection attempts. Zero uses the go-redis default.
	DialTimeout time.Duration
}

// Store records notified URLs in Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New returns a [Store]. No connection is made until the first call.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		MaxRetries:  -1,
	})

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Acquire reports whether a notification for url may be sent now.
//
// The first caller within the TTL wins and gets true; later callers get
// false until the key expires.
func (s *Store) Acquire(ctx context.Context, url string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(url), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown %s: %w", url, err)
	}
	return ok, nil
}

// TTL returns how long a URL stays suppressed after a notification.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Close releases the Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(url string) string {
	return s.prefix + "url:" + url
}
