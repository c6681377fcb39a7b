package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-mvi/internal/domain/user"
)

// keyPrefix namespaces every key written by the users cache.
const keyPrefix = "users:"

// ListKey is the key of the full users list.
const ListKey = keyPrefix + "list"

// SearchKey returns the key of the results of query.
func SearchKey(query string) string {
	return keyPrefix + "search:" + query
}

// UsersCache defines the interface for caching user lists.
type UsersCache interface {
	// Get retrieves the users stored under key.
	// Returns nil, false if key is not in cache.
	Get(ctx context.Context, key string) ([]domain.User, bool, error)

	// Set stores users under key with the configured TTL.
	Set(ctx context.Context, key string, users []domain.User) error

	// Delete removes keys from cache.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes every users key.
	Clear(ctx context.Context) error
}

// RedisUsersCache implements UsersCache using Redis as the backing store.
type RedisUsersCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUsersCache creates a new Redis-backed users cache.
func NewRedisUsersCache(client *redis.Client, ttl time.Duration, log *zap.Logger) UsersCache {
	return &RedisUsersCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// cachedUser is the stored form of a user. Domain users are rebuilt through
// validation on read.
type cachedUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// Get retrieves users from Redis cache.
func (c *RedisUsersCache) Get(ctx context.Context, key string) ([]domain.User, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Cache miss - not an error
		c.log.Debug("cache miss", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, false, err
	}

	var stored []cachedUser
	if err := json.Unmarshal(data, &stored); err != nil {
		c.log.Error("failed to unmarshal cached users", zap.String("key", key), zap.Error(err))
		return nil, false, err
	}

	users := make([]domain.User, 0, len(stored))
	for _, s := range stored {
		u, err := domain.Create(s.ID, s.Email, s.FirstName, s.LastName, s.Avatar)
		if err != nil {
			c.log.Error("invalid cached user", zap.String("key", key), zap.String("user_id", s.ID), zap.Error(err))
			return nil, false, fmt.Errorf("invalid cached user %s: %w", s.ID, err)
		}
		users = append(users, u)
	}

	c.log.Debug("cache hit", zap.String("key", key), zap.Int("count", len(users)))
	return users, true, nil
}

// Set stores users in Redis cache with TTL.
func (c *RedisUsersCache) Set(ctx context.Context, key string, users []domain.User) error {
	stored := make([]cachedUser, 0, len(users))
	for _, u := range users {
		stored = append(stored, cachedUser{
			ID:        u.ID,
			Email:     u.Email.String(),
			FirstName: u.FirstName.String(),
			LastName:  u.LastName.String(),
			Avatar:    u.Avatar,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		c.log.Error("failed to marshal users for cache", zap.String("key", key), zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.String("key", key), zap.Error(err))
		return err
	}

	c.log.Debug("cached users", zap.String("key", key), zap.Int("count", len(users)), zap.Duration("ttl", c.ttl))
	return nil
}

// Delete removes keys from Redis cache.
func (c *RedisUsersCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Error("failed to delete from cache", zap.Strings("keys", keys), zap.Error(err))
		return err
	}

	c.log.Debug("deleted from cache", zap.Int("count", len(keys)))
	return nil
}

// Clear removes every key under the users prefix.
func (c *RedisUsersCache) Clear(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Error("failed to scan cache", zap.Error(err))
		return err
	}

	if err := c.Delete(ctx, keys...); err != nil {
		return err
	}

	c.log.Debug("cleared users cache", zap.Int("count", len(keys)))
	return nil
}
