package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"rental-ledger/logger"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance talking to the same Redis
type RedisLocker struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	retryEvery time.Duration
}

// NewRedisLocker creates a Redis backed locker. ttl bounds how long a crashed
// holder can keep a key.
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client:     client,
		prefix:     prefix,
		ttl:        ttl,
		retryEvery: 25 * time.Millisecond,
	}
}

// Lock polls SET NX until it wins the key or ctx is done
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create lock token: %w", err)
	}

	ticker := time.NewTicker(r.retryEvery)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{fullKey}, token).Err(); err != nil {
			logger.Error(fmt.Sprintf("Failed to release lock %s", fullKey), err)
		}
	}, nil
}

func newToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}
