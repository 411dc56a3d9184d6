package rp

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrSuperseded is returned to a call that a newer call through the same Latest replaced.
var ErrSuperseded = errors.New("request superseded")

// Latest issues GETs where only the most recent one matters, such as
// search-as-you-type. Starting a call cancels the one in flight, and a stale
// response is dropped even if it arrived.
type Latest struct {
	client *Client

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func (c *Client) Latest() *Latest {
	return &Latest{client: c}
}

func (l *Latest) Get(ctx context.Context, path string) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	result, err := l.client.Get(ctx, path)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return Result{}, ErrSuperseded
	}
	l.cancel = nil
	return result, err
}
