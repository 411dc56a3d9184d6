package memstore_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/incal-auth/token"
	"github.com/jrsteele09/incal-auth/token/memstore"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func TestPutGetRemove(t *testing.T) {
	ctx := context.Background()
	s := memstore.New[string]()

	require.NoError(t, s.Put(ctx, "k", "v", time.Now().Add(time.Minute)))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	removed, err := s.Remove(ctx, "k")
	require.NoError(t, err)
	require.True(t, removed)

	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, token.ErrNotFound)

	removed, err = s.Remove(ctx, "k")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	s := memstore.New[string](memstore.WithNowFunc(c.Now))
	expiresAt := c.Now().Add(time.Minute)

	for _, offset := range []time.Duration{time.Minute, 30 * time.Second, time.Millisecond} {
		key := fmt.Sprintf("k-%s", offset)
		require.NoError(t, s.Put(ctx, key, "v", expiresAt))
		c.Set(expiresAt.Add(-offset))
		_, err := s.Get(ctx, key)
		require.NoError(t, err, "retrievable %s before expiry", offset)
		c.Set(expiresAt.Add(-time.Minute))
	}

	// At exactly expiresAt, and after it, nothing is retrievable.
	for _, at := range []time.Time{expiresAt, expiresAt.Add(time.Nanosecond), expiresAt.Add(time.Hour)} {
		c.Set(at)
		for _, offset := range []time.Duration{time.Minute, 30 * time.Second, time.Millisecond} {
			_, err := s.Get(ctx, fmt.Sprintf("k-%s", offset))
			require.ErrorIs(t, err, token.ErrNotFound)
		}
	}
}

func TestTake_Expired(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	s := memstore.New[string](memstore.WithNowFunc(c.Now))

	require.NoError(t, s.Put(ctx, "k", "v", c.Now().Add(time.Second)))
	c.Set(c.Now().Add(time.Second))

	_, err := s.Take(ctx, "k")
	require.ErrorIs(t, err, token.ErrNotFound)
	require.Equal(t, 0, s.Len())
}

func TestTake_SingleWinner(t *testing.T) {
	ctx := context.Background()
	s := memstore.New[string]()

	for round := 0; round < 50; round++ {
		key := fmt.Sprintf("code-%d", round)
		require.NoError(t, s.Put(ctx, key, "v", time.Now().Add(time.Minute)))

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := s.Take(ctx, key); err == nil {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	}
}

func TestSweepAndJanitor(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	s := memstore.New[int](memstore.WithNowFunc(c.Now))

	require.NoError(t, s.Put(ctx, "short", 1, c.Now().Add(time.Second)))
	require.NoError(t, s.Put(ctx, "long", 2, c.Now().Add(time.Hour)))
	c.Set(c.Now().Add(time.Minute))

	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Put(ctx, "short2", 3, c.Now().Add(time.Second)))
	c.Set(c.Now().Add(time.Minute))

	janitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.StartJanitor(janitorCtx, 5*time.Millisecond)
	require.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestNewStores(t *testing.T) {
	ctx := context.Background()
	stores := memstore.NewStores()

	at, err := token.NewAccessToken("a", "dashboard", "u", "user_info:read", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, stores.Access.Put(ctx, at.Token, at, at.ExpiresAt))

	got, err := stores.Access.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, at, got)

	_, err = stores.Refresh.Get(ctx, "a")
	require.ErrorIs(t, err, token.ErrNotFound)
}
