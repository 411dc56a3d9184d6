package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/incal-auth/token"
	"github.com/rs/zerolog/log"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Store is a single-process token.Store. Expired entries are dropped lazily on
// access and, when a janitor is running, periodically.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	nowFunc func() time.Time
}

type Option func(*options)

type options struct {
	nowFunc func() time.Time
}

// WithNowFunc overrides the clock used for expiry checks.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

func New[T any](opts ...Option) *Store[T] {
	o := options{nowFunc: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		entries: make(map[string]entry[T]),
		nowFunc: o.nowFunc,
	}
}

// NewStores builds the code, access and refresh stores sharing one clock.
func NewStores(opts ...Option) token.Stores {
	return token.Stores{
		Codes:   New[*token.AuthorizationCode](opts...),
		Access:  New[*token.AccessToken](opts...),
		Refresh: New[*token.RefreshToken](opts...),
	}
}

var _ token.Store[string] = (*Store[string])(nil)

func (s *Store[T]) Put(_ context.Context, key string, value T, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[T]{value: value, expiresAt: expiresAt}
	return nil
}

func (s *Store[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		var zero T
		return zero, token.ErrNotFound
	}
	return e.value, nil
}

func (s *Store[T]) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	delete(s.entries, key)
	return ok, nil
}

func (s *Store[T]) Take(_ context.Context, key string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	delete(s.entries, key)
	if !ok {
		var zero T
		return zero, token.ErrNotFound
	}
	return e.value, nil
}

// live returns the entry for key if present and unexpired, evicting it otherwise.
// The caller must hold s.mu.
func (s *Store[T]) live(key string) (entry[T], bool) {
	e, ok := s.entries[key]
	if !ok {
		return e, false
	}
	if token.Expired(s.nowFunc(), e.expiresAt) {
		delete(s.entries, key)
		return e, false
	}
	return e, true
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts every expired entry and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	removed := 0
	for k, e := range s.entries {
		if token.Expired(now, e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps the store every interval until ctx is cancelled.
func (s *Store[T]) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Debug().Int("evicted", n).Msg("token store sweep")
				}
			}
		}
	}()
}
