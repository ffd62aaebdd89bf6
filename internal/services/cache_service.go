package services

import (
	"context"
	"time"

	"gotrike/pkg/cache"
)

// CacheService is the read-through cache used by the repositories. Kept
// narrow so tests can run with a nil cache.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type redisCacheService struct {
	cache *cache.RedisCache
}

func NewCacheService(redisCache *cache.RedisCache) CacheService {
	return &redisCacheService{cache: redisCache}
}

func (s *redisCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.cache.Get(ctx, key, dest)
}

func (s *redisCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.cache.Set(ctx, key, value, expiration)
}

func (s *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	return s.cache.Delete(ctx, keys...)
}
