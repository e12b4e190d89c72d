package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"crewcheck/backend/config"
	pkgerrors "crewcheck/backend/pkg/errors"
)

// Client Redis 客户端封装
// 用于成员头像缓存与核验提交限流；nil *Client 上的方法返回 ErrCacheUnavailable
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
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 头像缓存 ──

const avatarPrefix = "crew:avatar:"

// GetAvatars 批量读取头像缓存
// 返回命中的 userID → avatarURL，以及未命中的 userID（保持入参顺序）
func (c *Client) GetAvatars(ctx context.Context, userIDs []string) (map[string]string, []string, error) {
	if c == nil {
		return nil, userIDs, pkgerrors.ErrCacheUnavailable
	}
	if len(userIDs) == 0 {
		return map[string]string{}, nil, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = avatarPrefix + id
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, userIDs, fmt.Errorf("读取头像缓存失败: %w", err)
	}

	hits := make(map[string]string, len(userIDs))
	var missing []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, userIDs[i])
			continue
		}
		hits[userIDs[i]] = s
	}
	return hits, missing, nil
}

// SetAvatars 批量写入头像缓存（空字符串同样缓存，避免无头像用户反复回源）
func (c *Client) SetAvatars(ctx context.Context, avatars map[string]string, ttl time.Duration) error {
	if c == nil {
		return pkgerrors.ErrCacheUnavailable
	}
	if len(avatars) == 0 || ttl <= 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for id, url := range avatars {
		pipe.Set(ctx, avatarPrefix+id, url, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入头像缓存失败: %w", err)
	}
	return nil
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数限流，窗口内第 limit+1 次起返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if c == nil {
		return true, pkgerrors.ErrCacheUnavailable
	}

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("限流计数失败: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
