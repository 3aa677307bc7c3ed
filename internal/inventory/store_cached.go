package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const allItemsKey = "items:all"

func itemKey(id string) string { return "item:" + id }

func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	if err := withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rdb, nil
}

// CachedStore is a cache-aside decorator: reads go to Redis first and every
// successful write drops the affected keys. Cache failures are logged and
// never surface to the caller.
type CachedStore struct {
	next Store
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.next.Ping(ctx); err != nil {
		return err
	}
	return s.rdb.Ping(ctx).Err()
}

func (s *CachedStore) List(ctx context.Context) ([]Item, error) {
	var items []Item
	if s.load(ctx, allItemsKey, &items) {
		return items, nil
	}

	items, err := s.next.List(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, allItemsKey, items)
	return items, nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (Item, bool, error) {
	var it Item
	if s.load(ctx, itemKey(id), &it) {
		return it, true, nil
	}

	it, found, err := s.next.Get(ctx, id)
	if err != nil || !found {
		return it, found, err
	}
	s.store(ctx, itemKey(id), it)
	return it, true, nil
}

func (s *CachedStore) Create(ctx context.Context, it Item) error {
	if err := s.next.Create(ctx, it); err != nil {
		return err
	}
	s.invalidate(ctx, allItemsKey)
	return nil
}

func (s *CachedStore) Update(ctx context.Context, it Item) (bool, error) {
	found, err := s.next.Update(ctx, it)
	if err != nil || !found {
		return found, err
	}
	s.invalidate(ctx, itemKey(it.ID), allItemsKey)
	return true, nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) (bool, error) {
	found, err := s.next.Delete(ctx, id)
	if err != nil || !found {
		return found, err
	}
	s.invalidate(ctx, itemKey(id), allItemsKey)
	return true, nil
}

func (s *CachedStore) load(ctx context.Context, key string, dest any) bool {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("cache get failed", zap.Error(err), zap.String("key", key))
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		s.log.Warn("cache entry corrupt", zap.Error(err), zap.String("key", key))
		return false
	}
	return true
}

func (s *CachedStore) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.log.Warn("cache set failed", zap.Error(err), zap.String("key", key))
	}
}

func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn("cache invalidate failed", zap.Error(err), zap.Strings("keys", keys))
	}
}
