// Package redislock implements lock.Locker on Redis so that several engine
// processes sharing one store serialize on the same records.
//
// A hold is a key set with SET NX PX to a random token. Release deletes the
// key only if it still carries that token.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/escrow/lock"
)

var _ lock.Locker = (*Locker)(nil)

const (
	defaultPrefix = "escrow:lock:"
	defaultTTL    = 30 * time.Second
	defaultRetry  = 25 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis-backed lock.Locker.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// Option configures a Locker.
type Option func(*Locker)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(l *Locker) { l.prefix = prefix }
}

// WithTTL sets how long a hold survives if its owner never releases it.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) { l.ttl = ttl }
}

// WithRetryInterval sets the polling interval while waiting for a hold.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) { l.retry = d }
}

// New returns a Locker using client.
func New(client redis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		retry:  defaultRetry,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Dial parses a redis:// URL, connects, and pings.
func Dial(ctx context.Context, url string, opts ...Option) (*Locker, error) {
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redislock: parse url: %w", err)
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redislock: ping: %w", err)
	}
	return New(client, opts...), nil
}

// Lock implements lock.Locker.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(k, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}

func (l *Locker) releaser(key, token string) func() {
	return func() {
		// Release even if the operation's ctx is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// On failure the key still expires after the TTL.
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
}
