// Package lock serializes work on a shared key across service instances.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/errs"
)

// ErrBusy is returned when another holder owns the key.
var ErrBusy = errs.Precondition("request_busy", "Payment request is being processed, try again")

// Locker runs fn while holding an exclusive lock on key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Noop runs fn without locking. Used when Redis is not configured; the
// store-level conditional updates still guarantee a single resolution.
type Noop struct{}

func (Noop) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Options tune lock acquisition.
type Options struct {
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// DefaultOptions holds a lock long enough for one resolution and retries briefly.
func DefaultOptions() Options {
	return Options{Expiry: 10 * time.Second, Tries: 3, RetryDelay: 100 * time.Millisecond}
}

// Redis is a redsync-backed Locker.
type Redis struct {
	rs     *redsync.Redsync
	opts   Options
	logger *zap.Logger
}

// NewRedis builds a Locker on top of an existing go-redis client.
func NewRedis(client *redis.Client, opts Options, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = def.Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	return &Redis{rs: redsync.New(goredis.NewPool(client)), opts: opts, logger: logger}
}

func (l *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(
		"lock:"+key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if errors.Is(err, redsync.ErrFailed) || strings.Contains(err.Error(), "lock already taken") {
			return ErrBusy
		}
		return errs.Store("acquire lock", err)
	}

	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			l.logger.Warn("release lock", zap.String("key", key), zap.Bool("ok", ok), zap.Error(err))
		}
	}()

	return fn(ctx)
}
