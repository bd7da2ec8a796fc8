// Package rdx holds the Redis connection and the token revocation list kept in it.
package rdx

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "auth:revoked:"

// Revoker remembers logged-out token ids until the token would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

type Redis struct {
	Conn *redis.Client
}

func (r *Redis) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.Conn.Set(ctx, revokedPrefix+jti, 1, ttl).Err()
}

func (r *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.Conn.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Memory is the single-instance fallback used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{expires: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, at := range m.expires {
		if !at.After(now) {
			delete(m.expires, id)
		}
	}
	m.expires[jti] = now.Add(ttl)
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.expires[jti]
	return ok && at.After(m.now()), nil
}
