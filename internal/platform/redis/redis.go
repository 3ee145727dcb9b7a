package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dental-captcha/internal/config"
)

// New connects to the stats cache and fails fast when the server does not
// answer a PING within the dial timeout.
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout(),
		ReadTimeout:  cfg.ReadWriteTimeout(),
		WriteTimeout: cfg.ReadWriteTimeout(),
		PoolSize:     cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout())
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s failed: %w", cfg.Addr, err)
	}

	return client, nil
}
