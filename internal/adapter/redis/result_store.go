package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tgedin/sentimentflow/internal/domain"
)

const resultCachePrefix = "result_cache:"

// ResultStore keeps analysis results in Redis so repeated inputs skip
// inference across instances. It implements sentiment.CacheStore.
type ResultStore struct {
	rdb goredis.Cmdable
}

func NewResultStore(rdb goredis.Cmdable) *ResultStore {
	return &ResultStore{rdb: rdb}
}

// Get fetches the cached result for the fingerprint key. A corrupt
// entry is deleted and reported as a miss instead of failing the
// request.
func (s *ResultStore) Get(ctx context.Context, key string) (*domain.AnalysisResult, bool, error) {
	data, err := s.rdb.Get(ctx, resultCachePrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET failed: %w", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		slog.Warn("dropping corrupt result cache entry", "key", key, "error", err)
		_ = s.rdb.Del(ctx, resultCachePrefix+key).Err()
		return nil, false, nil
	}

	return &result, true, nil
}

// Set stores a result under the fingerprint key with the given TTL.
func (s *ResultStore) Set(ctx context.Context, key string, result *domain.AnalysisResult, ttl time.Duration) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := s.rdb.Set(ctx, resultCachePrefix+key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}
