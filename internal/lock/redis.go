package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// Redis is a Locker shared by every process using the same Redis instance.
// Each key is held with SET NX PX, renewed every ttl/3 while held and
// released only by its owner token.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	retry   time.Duration
	prefix  string
	release *redis.Script
	extend  *redis.Script
}

// NewRedis creates a Redis locker. ttl bounds how long a crashed holder can
// block others.
func NewRedis(client *redis.Client, ttl time.Duration, prefix string) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{
		client:  client,
		ttl:     ttl,
		retry:   25 * time.Millisecond,
		prefix:  strings.TrimSuffix(prefix, ":"),
		release: redis.NewScript(releaseScript),
		extend:  redis.NewScript(extendScript),
	}
}

// Lock acquires all keys in sorted order, polling until ctx is done.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	keys = normalize(keys)
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		redisKey := r.key(key)
		if err := r.acquire(ctx, redisKey, token); err != nil {
			r.unlock(held, token)
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		held = append(held, redisKey)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(held, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			r.unlock(held, token)
		})
	}, nil
}

func (r *Redis) keepAlive(keys []string, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		for _, key := range keys {
			n, err := r.extend.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
			switch {
			case err != nil:
				slog.Warn("extend lock", "key", key, "error", err)
			case n == 0:
				slog.Error("lock expired while held", "key", key)
			}
		}
		cancel()
	}
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Redis) unlock(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, key := range keys {
		if err := r.release.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			slog.Warn("release lock", "key", key, "error", err)
		}
	}
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
