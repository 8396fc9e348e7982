package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"college/internal/config"
)

// Redis holds the client shared by the notice queue and the OTP store.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a lazily connecting client with short timeouts.
func NewRedis(cfg config.App) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,

		DialTimeout: 2 * time.Second,
		// BRPOP blocks for 5s; the read deadline must outlast it.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Second,
	})}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
