package generator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Cache 模块配置缓存
type Cache interface {
	Get(ctx context.Context, moduleKey string) (*IdGeneratorInfoPO, bool, error)
	Set(ctx context.Context, moduleKey string, info *IdGeneratorInfoPO) error
	Delete(ctx context.Context, moduleKey string) error
}

// RedisCache 以JSON存储，不设置过期时间
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache prefix为空时键即moduleKey
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(moduleKey string) string {
	return c.prefix + moduleKey
}

func (c *RedisCache) Get(ctx context.Context, moduleKey string) (*IdGeneratorInfoPO, bool, error) {
	raw, err := c.client.Get(ctx, c.key(moduleKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var info IdGeneratorInfoPO
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, false, err
	}
	return &info, true, nil
}

func (c *RedisCache) Set(ctx context.Context, moduleKey string, info *IdGeneratorInfoPO) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(moduleKey), raw, 0).Err()
}

func (c *RedisCache) Delete(ctx context.Context, moduleKey string) error {
	return c.client.Del(ctx, c.key(moduleKey)).Err()
}

// MemoryCache 进程内缓存，redis未启用时使用
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]IdGeneratorInfoPO
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]IdGeneratorInfoPO)}
}

func (c *MemoryCache) Get(_ context.Context, moduleKey string) (*IdGeneratorInfoPO, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.items[moduleKey]
	if !ok {
		return nil, false, nil
	}
	return &info, true, nil
}

func (c *MemoryCache) Set(_ context.Context, moduleKey string, info *IdGeneratorInfoPO) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[moduleKey] = *info
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, moduleKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, moduleKey)
	return nil
}
