package conversation

import (
	"context"
	"fmt"
	"time"

	"CoinMentor/internal/domain/models"
	"CoinMentor/pkg/cache"
)

const historyKeyPrefix = "conversation"

// CacheStore keeps conversation history in a cache.Service, so histories
// survive process restarts when backed by Redis. Each advisor's history
// lives under its own key.
type CacheStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCacheStore creates a cache-backed conversation store. A zero ttl
// keeps histories until reset.
func NewCacheStore(c cache.Service, ttl time.Duration) *CacheStore {
	return &CacheStore{cache: c, ttl: ttl}
}

func historyKey(advisor string) string {
	return cache.GenerateKey(historyKeyPrefix, advisor)
}

func (s *CacheStore) Get(ctx context.Context, advisor string) ([]models.Message, error) {
	var history []models.Message
	err := s.cache.Get(ctx, historyKey(advisor), &history)
	if err != nil {
		if err == cache.ErrCacheMiss {
			return nil, nil
		}
		return nil, fmt.Errorf("get history for %s: %w", advisor, err)
	}
	return history, nil
}

func (s *CacheStore) Append(ctx context.Context, advisor string, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	history, err := s.Get(ctx, advisor)
	if err != nil {
		return err
	}
	history = append(history, msgs...)

	if err := s.cache.Set(ctx, historyKey(advisor), history, s.ttl); err != nil {
		return fmt.Errorf("append history for %s: %w", advisor, err)
	}
	return nil
}

func (s *CacheStore) Reset(ctx context.Context, advisor string) error {
	return s.cache.Delete(ctx, historyKey(advisor))
}

func (s *CacheStore) ResetAll(ctx context.Context) error {
	return s.cache.DeleteByPattern(ctx, cache.BuildPattern(historyKeyPrefix+":"))
}
