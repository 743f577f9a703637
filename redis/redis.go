package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"govbid/internal/logger"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// Client wraps go-redis. A nil *Client is valid and behaves as if Redis were
// absent: nothing is revoked, locks are no-ops, publishes are dropped.
type Client struct {
	rdb *goredis.Client
	log *logger.Logger

	LockWait  time.Duration
	LockRetry time.Duration
}

// InitRedis connects to addr, returning nil when Redis is not reachable so
// the service can run without it.
func InitRedis(addr string, log *logger.Logger) *Client {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis not available. Running without Redis.", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}

	log.Info("Redis connected successfully.", "addr", addr)
	return NewClient(rdb, log)
}

func NewClient(rdb *goredis.Client, log *logger.Logger) *Client {
	return &Client{
		rdb:       rdb,
		log:       log.With("service", "Redis"),
		LockWait:  5 * time.Second,
		LockRetry: 100 * time.Millisecond,
	}
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func revokedKey(jti string) string {
	return "revoked:" + jti
}

// Revoke marks a token id as revoked until ttl elapses.
func (c *Client) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if c == nil || jti == "" {
		return nil
	}
	return c.rdb.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

func (c *Client) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if c == nil || jti == "" {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock acquires a mutual-exclusion lease on key, waiting up to LockWait.
// The lease expires after ttl even if unlock is never called.
func (c *Client) Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error) {
	if c == nil {
		return func() {}, nil
	}

	token := uuid.NewString()
	deadline := time.Now().Add(c.LockWait)
	for {
		ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.LockRetry):
		}
	}

	return func() {
		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, c.rdb, []string{key}, token).Err(); err != nil {
			c.log.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}

// Publish JSON-encodes msg onto channel.
func (c *Client) Publish(ctx context.Context, channel string, msg any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, channel, raw).Err()
}

// Subscribe delivers every payload published on channel to onMsg until ctx
// is cancelled. It returns once the subscription is confirmed.
func (c *Client) Subscribe(ctx context.Context, channel string, onMsg func(payload []byte)) error {
	if c == nil {
		return errors.New("redis not initialized")
	}

	sub := c.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				onMsg([]byte(m.Payload))
			}
		}
	}()
	return nil
}
