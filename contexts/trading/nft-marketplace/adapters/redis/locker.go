package redisadapter

import (
	"context"
	"errors"
	"sync"
	"time"

	application "emporium/contexts/trading/nft-marketplace/application"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLeaseTTL      = 30 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// releaseScript deletes the lock only while it still carries our token, so a
// lease that expired and was taken by another process is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// renewScript extends the lease only while it still carries our token.
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// leaseClient is the subset of the go-redis client the locker uses.
type leaseClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// KeyLocker is a lease lock shared by every API and worker process pointed
// at the same Redis. A live holder renews its lease every third of LeaseTTL;
// locks expire after LeaseTTL if the holder dies.
type KeyLocker struct {
	client        leaseClient
	prefix        string
	leaseTTL      time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

type Option func(*KeyLocker)

func WithLeaseTTL(ttl time.Duration) Option {
	return func(l *KeyLocker) {
		if ttl > 0 {
			l.leaseTTL = ttl
		}
	}
}

func WithRetryInterval(interval time.Duration) Option {
	return func(l *KeyLocker) {
		if interval > 0 {
			l.retryInterval = interval
		}
	}
}

func NewKeyLocker(client leaseClient, prefix string, logger *zap.Logger, opts ...Option) *KeyLocker {
	if prefix == "" {
		prefix = "emporium:lock:"
	}
	locker := &KeyLocker{
		client:        client,
		prefix:        prefix,
		leaseTTL:      defaultLeaseTTL,
		retryInterval: defaultRetryInterval,
		logger:        application.ResolveLogger(logger),
	}
	for _, opt := range opts {
		opt(locker)
	}
	return locker
}

func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.leaseTTL).Result()
		if err != nil {
			return nil, err
		}
		if acquired {
			stop := l.keepAlive(redisKey, token)
			return func() {
				stop()
				l.release(redisKey, token)
			}, nil
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// keepAlive renews the lease until the returned stop func is called or the
// lease turns out to belong to someone else.
func (l *KeyLocker) keepAlive(redisKey string, token string) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(max(l.leaseTTL/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !l.renew(redisKey, token) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
}

// renew reports false once the lease is no longer ours. Transport errors are
// logged and retried on the next tick.
func (l *KeyLocker) renew(redisKey string, token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	renewed, err := l.client.Eval(ctx, renewScript, []string{redisKey}, token, l.leaseTTL.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("redis lock renew failed",
			application.LogFields("nft_marketplace_lock_renew_failed", "adapter",
				zap.String("lock_key", redisKey),
				zap.Error(err),
			)...,
		)
		return true
	}
	if renewed == 0 {
		l.logger.Error("redis lock lease lost",
			application.LogFields("nft_marketplace_lock_lease_lost", "adapter",
				zap.String("lock_key", redisKey),
			)...,
		)
		return false
	}
	return true
}

func (l *KeyLocker) release(redisKey string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := l.client.Eval(ctx, releaseScript, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("redis lock release failed",
			application.LogFields("nft_marketplace_lock_release_failed", "adapter",
				zap.String("lock_key", redisKey),
				zap.Error(err),
			)...,
		)
	}
}
