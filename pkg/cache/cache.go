package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// Cache 定义通用缓存接口
type Cache interface {
	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get 获取缓存，并将结果 Unmarshal 到 target 中，未命中返回 ErrMiss
	Get(ctx context.Context, key string, target interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
}

// Remember 经典的 cache-aside: 命中直接返回，未命中调用 load 并回写。
// 回写失败不影响结果，只是下次还会回源。
func Remember(ctx context.Context, c Cache, key string, ttl time.Duration, target interface{}, load func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, target); err == nil {
		return nil
	}

	value, err := load(ctx)
	if err != nil {
		return err
	}
	_ = c.Set(ctx, key, value, ttl)

	// 统一走一次 Get，保证 target 的填充方式与命中时一致
	if err := c.Get(ctx, key, target); err != nil {
		return copyJSON(value, target)
	}
	return nil
}
