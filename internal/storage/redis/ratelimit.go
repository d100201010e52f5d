package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimiter 基于 Redis 的限流计数器
//
// 实现 storage.RateLimitRepository，多实例部署时计数全局一致。
type RateLimiter struct {
	client *goredis.Client
	ctx    context.Context
}

// NewRateLimiter 创建限流计数器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{
		client: client.Client(),
		ctx:    context.Background(),
	}
}

// IncrementRateLimit 增加限流计数
func (r *RateLimiter) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	pipe := r.client.Pipeline()

	// 增加计数
	incr := pipe.Incr(r.ctx, key)

	// 设置过期时间（如果是新键）
	pipe.Expire(r.ctx, key, window)

	_, err := pipe.Exec(r.ctx)
	if err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

// GetRateLimit 获取限流计数
func (r *RateLimiter) GetRateLimit(key string) (int64, error) {
	count, err := r.client.Get(r.ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}
