package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cv-match-go/internal/config"
	"cv-match-go/internal/constants"
	"cv-match-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 键不存在时返回，包装底层的redis.Nil以便上层判断
var ErrNotFound = redis.Nil

// Redis 键值存储客户端，承载匹配结果缓存
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("为Redis添加OpenTelemetry钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis失败 %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("Redis客户端未初始化")
	}
	return r.Client.Ping(ctx).Err()
}

// matchCacheKey 用两份输入的MD5拼出缓存键：同样的岗位和同一份简历命中同一个键
func matchCacheKey(offerMD5, resumeMD5 string) string {
	return fmt.Sprintf(constants.KeyMatchResult, offerMD5, resumeMD5)
}

// matchCacheDuration 返回匹配结果缓存的有效期
func (r *Redis) matchCacheDuration() time.Duration {
	if r.config.MatchCacheExpireHours > 0 {
		return time.Duration(r.config.MatchCacheExpireHours) * time.Hour
	}
	return constants.MatchCacheDuration
}

// CacheMatchResult 缓存一次匹配的完整结果
func (r *Redis) CacheMatchResult(ctx context.Context, offerMD5, resumeMD5 string, result *types.MatchResult) error {
	if r.Client == nil {
		return fmt.Errorf("Redis客户端未初始化")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化匹配结果失败: %w", err)
	}
	return r.Client.Set(ctx, matchCacheKey(offerMD5, resumeMD5), data, r.matchCacheDuration()).Err()
}

// GetCachedMatchResult 查询缓存的匹配结果，未命中时返回ErrNotFound
func (r *Redis) GetCachedMatchResult(ctx context.Context, offerMD5, resumeMD5 string) (*types.MatchResult, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("Redis客户端未初始化")
	}
	data, err := r.Client.Get(ctx, matchCacheKey(offerMD5, resumeMD5)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取匹配结果缓存失败: %w", err)
	}

	var result types.MatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		// 缓存内容损坏按未命中处理，由调用方重新计算覆盖
		return nil, ErrNotFound
	}
	return &result, nil
}
