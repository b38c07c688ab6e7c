// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"pitstop/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client.
	CacheClient *redis.Client
	// AuthCacheClient is the dedicated client for authorization caching
	// (revoked token hashes, active session markers).
	AuthCacheClient *redis.Client
)

// InitCache initializes the generic Redis cache client (using DB from AppConfig for general caching).
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := CacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitAuthCache initializes the Redis client for authorization caching.
func InitAuthCache() {
	AuthCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisAuthDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := AuthCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Auth Cache): %v", err)
	}
}

// GetAuthCacheClient returns the Redis client for authorization caching.
func GetAuthCacheClient() *redis.Client {
	if AuthCacheClient == nil {
		InitAuthCache()
	}
	return AuthCacheClient
}

const revokedUserPrefix = "revoked-user:"

// RevokeUserSessions invalidates every outstanding token for a user, e.g.
// after an erasure request. The marker outlives the longest token lifetime;
// past that point expiry takes over.
func RevokeUserSessions(ctx context.Context, userID string) error {
	return GetAuthCacheClient().Set(ctx, revokedUserPrefix+userID, "1", TokenTTL+time.Hour).Err()
}

// UserSessionsRevoked reports whether the user's sessions have been revoked
// wholesale.
func UserSessionsRevoked(ctx context.Context, userID string) (bool, error) {
	n, err := GetAuthCacheClient().Exists(ctx, revokedUserPrefix+userID).Result()
	return n > 0, err
}

const idempotencyPrefix = "idem:"

// ClaimIdempotencyKey marks an idempotency key as in-flight. Returns false
// when another request already claimed the same key, so callers can skip
// duplicate side effects on retried webhooks.
func ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return GetCacheClient().SetNX(ctx, idempotencyPrefix+key, "1", ttl).Result()
}

// ReleaseIdempotencyKey drops a previously claimed key, allowing a retry
// after a failed attempt.
func ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return GetCacheClient().Del(ctx, idempotencyPrefix+key).Err()
}
