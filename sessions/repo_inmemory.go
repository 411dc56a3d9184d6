package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory session store. Sessions older than
// maxAge are treated as absent.
type InMemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]*ConsentSession
	maxAge   time.Duration
	nowFunc  func() time.Time
}

type InMemoryOption func(*InMemoryRepo)

func WithNowFunc(now func() time.Time) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.nowFunc = now
	}
}

// NewInMemoryRepo creates a session repository. A maxAge of zero keeps sessions forever.
func NewInMemoryRepo(maxAge time.Duration, opts ...InMemoryOption) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]*ConsentSession),
		maxAge:   maxAge,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (*ConsentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *InMemoryRepo) Save(_ context.Context, session *ConsentSession) error {
	if session == nil || session.ID == "" {
		return errors.New("[InMemoryRepo.Save] session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *InMemoryRepo) ConsumeCSRF(_ context.Context, id, value string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.live(id)
	if !ok {
		return false, ErrNotFound
	}
	matched := s.CSRF.Matches(value, now)
	s.CSRF = nil
	return matched, nil
}

// Len returns the number of stored sessions, including expired ones not yet evicted.
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts every session older than maxAge and returns how many were removed.
func (r *InMemoryRepo) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFunc()
	removed := 0
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps the repo every interval until ctx is cancelled.
func (r *InMemoryRepo) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					log.Debug().Int("evicted", n).Msg("session sweep")
				}
			}
		}
	}()
}

// live returns the stored session, evicting it when it has outlived maxAge.
// Callers hold r.mu.
func (r *InMemoryRepo) live(id string) (*ConsentSession, bool) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if r.expired(s, r.nowFunc()) {
		delete(r.sessions, id)
		return nil, false
	}
	return s, true
}

func (r *InMemoryRepo) expired(s *ConsentSession, now time.Time) bool {
	return r.maxAge > 0 && !now.Before(s.CreatedAt.Add(r.maxAge))
}
