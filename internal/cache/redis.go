package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const authHashKey = "users:auth"

type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisClient caches credential lookups so the auth middleware doesn't
// hit postgres on every request.
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(cfg Config) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: rdb}, nil
}

func authField(email, passwordHash string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + ":" + passwordHash))
}

// GetUserIDByAuth looks up a cached credential pair
func (c *RedisClient) GetUserIDByAuth(ctx context.Context, email, passwordHash string) (int64, error) {
	userIDStr, err := c.client.HGet(ctx, authHashKey, authField(email, passwordHash)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("user not found in cache")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, nil
}

// SetUserIDByAuth caches a verified credential pair
func (c *RedisClient) SetUserIDByAuth(ctx context.Context, email, passwordHash string, userID int64) error {
	return c.client.HSet(ctx, authHashKey, authField(email, passwordHash), strconv.FormatInt(userID, 10)).Err()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}
