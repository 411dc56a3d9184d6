package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/incal-auth/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces consent sessions next to the token store keys.
const KeyPrefix = "incal:session:"

// maxConsumeAttempts bounds optimistic-lock retries in ConsumeCSRF.
const maxConsumeAttempts = 10

var _ sessions.Repo = (*Repo)(nil)

// Repo stores consent sessions in Redis so that every server instance sees the
// same login and CSRF state. Keys expire maxAge after the session was created.
type Repo struct {
	client  *redis.Client
	maxAge  time.Duration
	nowFunc func() time.Time
}

type Option func(*Repo)

func WithNowFunc(now func() time.Time) Option {
	return func(r *Repo) {
		r.nowFunc = now
	}
}

// New creates a session repo over client. A maxAge of zero keeps sessions until deleted.
func New(client *redis.Client, maxAge time.Duration, opts ...Option) *Repo {
	r := &Repo{client: client, maxAge: maxAge, nowFunc: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repo) key(id string) string {
	return KeyPrefix + id
}

func (r *Repo) Get(ctx context.Context, id string) (*sessions.ConsentSession, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	return r.decode(data, err)
}

// Save writes the session with a TTL that ends maxAge after CreatedAt.
// Sessions that have already outlived maxAge are not stored.
func (r *Repo) Save(ctx context.Context, session *sessions.ConsentSession) error {
	if session == nil || session.ID == "" {
		return errors.New("[redisrepo.Save] session id is required")
	}
	ttl, live := r.ttl(session)
	if !live {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[redisrepo.Save] marshal")
	}
	if err := r.client.Set(ctx, r.key(session.ID), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "[redisrepo.Save] set")
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return errors.Wrap(err, "[redisrepo.Delete] del")
	}
	return nil
}

// ConsumeCSRF clears the outstanding CSRF token inside a WATCH transaction.
// A concurrent writer aborts the transaction and the retry sees the token gone,
// so at most one caller wins.
func (r *Repo) ConsumeCSRF(ctx context.Context, id, value string, now time.Time) (bool, error) {
	key := r.key(id)
	var matched bool
	consume := func(tx *redis.Tx) error {
		session, err := r.decode(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		matched = session.CSRF.Matches(value, now)
		if session.CSRF == nil {
			return nil
		}
		session.CSRF = nil
		data, err := json.Marshal(session)
		if err != nil {
			return errors.Wrap(err, "[redisrepo.ConsumeCSRF] marshal")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, data, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for range maxConsumeAttempts {
		matched = false
		err := r.client.Watch(ctx, consume, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, err
		}
		return matched, nil
	}
	return false, errors.New("[redisrepo.ConsumeCSRF] too much contention")
}

func (r *Repo) ttl(session *sessions.ConsentSession) (time.Duration, bool) {
	if r.maxAge <= 0 {
		return 0, true
	}
	ttl := session.CreatedAt.Add(r.maxAge).Sub(r.nowFunc())
	return ttl, ttl > 0
}

func (r *Repo) decode(data []byte, err error) (*sessions.ConsentSession, error) {
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redisrepo] read")
	}
	var session sessions.ConsentSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "[redisrepo] unmarshal")
	}
	if _, live := r.ttl(&session); !live {
		return nil, sessions.ErrNotFound
	}
	return &session, nil
}
