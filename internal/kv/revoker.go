// Package kv holds the token revocation list backing logout. Revoked tokens
// are remembered until their natural expiry; the backend is Redis when
// configured and an in-process map otherwise.
package kv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenRevoker records tokens that must no longer authenticate.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

// RedisRevoker stores revocations in Redis.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker connects to Redis and verifies the connection.
func NewRedisRevoker(ctx context.Context, addr, password string, db int) (*RedisRevoker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisRevoker{client: client}, nil
}

func (r *RedisRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return r.client.Set(ctx, tokenKey(token), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, tokenKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (r *RedisRevoker) Close() error { return r.client.Close() }

// MemoryRevoker is the in-process fallback. Safe for concurrent use.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevoker creates an empty revocation list.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time)}
}

func (m *MemoryRevoker) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenKey(token)] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline, ok := m.revoked[tokenKey(token)]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(m.revoked, tokenKey(token))
		return false, nil
	}
	return true, nil
}
