package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dance-house/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单与公开接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// RateLimitResult 一次限流判定的结果
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	// RetryAfter 窗口内最早一次请求滑出窗口的剩余时间，仅 Allowed 为 false 时有值
	RetryAfter time.Duration
}

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 时放行
// 使用 ZSET 记录请求时间戳，MULTI 管道保证清理、计数、写入在一次往返内完成
// 被拒绝的请求同样计入窗口
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, key)
	oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, err
	}

	return rateLimitResult(int(count.Val()), oldest.Val(), limit, window, now), nil
}

func rateLimitResult(used int, oldest []goredis.Z, limit int, window time.Duration, now time.Time) RateLimitResult {
	res := RateLimitResult{Allowed: used < limit, Remaining: limit - used - 1}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if res.Allowed {
		return res
	}

	res.RetryAfter = window
	if len(oldest) > 0 {
		slidesOut := time.Unix(0, int64(oldest[0].Score)).Add(window)
		if d := slidesOut.Sub(now); d > 0 && d < window {
			res.RetryAfter = d
		}
	}
	return res
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
