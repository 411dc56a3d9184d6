package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/incal-auth/token"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Key prefixes for each record kind.
const (
	CodePrefix    = "incal:code:"
	AccessPrefix  = "incal:access:"
	RefreshPrefix = "incal:refresh:"
)

// Store is a token.Store backed by Redis. Take uses GETDEL so that concurrent
// redemptions across server instances have a single winner.
type Store[T any] struct {
	client  redis.Cmdable
	prefix  string
	nowFunc func() time.Time
}

type envelope[T any] struct {
	Value     T         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

var _ token.Store[string] = (*Store[string])(nil)

func New[T any](client redis.Cmdable, prefix string) *Store[T] {
	return &Store[T]{client: client, prefix: prefix, nowFunc: time.Now}
}

// NewStores builds the code, access and refresh stores over one client.
func NewStores(client redis.Cmdable) token.Stores {
	return token.Stores{
		Codes:   New[*token.AuthorizationCode](client, CodePrefix),
		Access:  New[*token.AccessToken](client, AccessPrefix),
		Refresh: New[*token.RefreshToken](client, RefreshPrefix),
	}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.Connect] parsing url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[redisstore.Connect] ping")
	}
	return client, nil
}

func (s *Store[T]) key(k string) string {
	return s.prefix + k
}

// Put stores value with a TTL derived from expiresAt. Already expired values are not stored.
func (s *Store[T]) Put(ctx context.Context, key string, value T, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.nowFunc())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(envelope[T]{Value: value, ExpiresAt: expiresAt})
	if err != nil {
		return errors.Wrap(err, "[redisstore.Put] marshal")
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "[redisstore.Put] set")
	}
	return nil
}

func (s *Store[T]) Get(ctx context.Context, key string) (T, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	return s.decode(data, err)
}

func (s *Store[T]) Remove(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, "[redisstore.Remove] del")
	}
	return n > 0, nil
}

func (s *Store[T]) Take(ctx context.Context, key string) (T, error) {
	data, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	return s.decode(data, err)
}

// decode unwraps a stored envelope. Redis expiry has millisecond precision, so
// the stored expiresAt is checked as well to honour the exact boundary.
func (s *Store[T]) decode(data []byte, err error) (T, error) {
	var zero T
	if errors.Is(err, redis.Nil) {
		return zero, token.ErrNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "[redisstore] read")
	}
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, errors.Wrap(err, "[redisstore] unmarshal")
	}
	if token.Expired(s.nowFunc(), env.ExpiresAt) {
		return zero, token.ErrNotFound
	}
	return env.Value, nil
}
