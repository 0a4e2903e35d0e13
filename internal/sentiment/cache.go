package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/metrics"
	"github.com/tgedin/sentimentflow/internal/platform/logging"
)

// CacheStore is the backend behind ResultCache. Implementations exist
// for Redis and for an in-process map.
type CacheStore interface {
	Get(ctx context.Context, key string) (*domain.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, result *domain.AnalysisResult, ttl time.Duration) error
}

// ResultCache memoizes analysis results by input fingerprint. A failing
// backend degrades to a miss: the caller always gets a result as long
// as inference itself succeeds.
type ResultCache struct {
	store CacheStore
	ttl   time.Duration
}

func NewResultCache(store CacheStore, ttl time.Duration) *ResultCache {
	return &ResultCache{store: store, ttl: ttl}
}

// Fingerprint derives the cache key for a text/model pair. The text is
// trimmed before hashing so surrounding whitespace does not split cache
// entries for otherwise identical inputs.
func Fingerprint(text, modelID string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(text)))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached result for the text/model pair, or
// runs compute and stores its result. The boolean reports whether the
// result came from the cache. Cached results come back with CacheHit
// set and compute's error, if any, is returned untouched.
func (c *ResultCache) GetOrCompute(ctx context.Context, text, modelID string, compute func(context.Context) (*domain.AnalysisResult, error)) (*domain.AnalysisResult, bool, error) {
	key := Fingerprint(text, modelID)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("get").Inc()
		logging.WithModel(modelID).Warn("result cache read failed, treating as miss", "error", err)
	}
	if ok {
		metrics.CacheHitsTotal.Inc()
		hit := *cached
		hit.CacheHit = true
		return &hit, true, nil
	}
	metrics.CacheMissesTotal.Inc()

	result, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := c.store.Set(ctx, key, result, c.ttl); err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("set").Inc()
		logging.WithModel(modelID).Warn("result cache write failed", "error", err)
	}

	return result, false, nil
}
