package sentiment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/metrics"
)

// MemoryStore is an in-process CacheStore with TTL-based expiration.
// It backs the result cache when no Redis is configured, so a single
// instance still dedupes repeated inputs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	clock   clockwork.Clock
}

type memoryEntry struct {
	result    domain.AnalysisResult
	expiresAt time.Time
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		clock:   clock,
	}
}

// Get returns the cached result if present and not expired.
func (s *MemoryStore) Get(_ context.Context, key string) (*domain.AnalysisResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	// Expired entries count as misses. No delete here (read lock only);
	// eviction happens periodically.
	if s.clock.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	result := entry.result
	return &result, true, nil
}

// Set stores a result with the given TTL.
func (s *MemoryStore) Set(_ context.Context, key string, result *domain.AnalysisResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &memoryEntry{
		result:    *result,
		expiresAt: s.clock.Now().Add(ttl),
	}
	return nil
}

// Size returns the current number of entries (including expired).
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// EvictExpired removes all expired entries and returns the count
// evicted. This keeps the map from growing without bound.
func (s *MemoryStore) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	evicted := 0

	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}

	return evicted
}

// StartEvictionTimer starts a background goroutine that periodically
// evicts expired entries. The returned stop function cleans up the
// goroutine.
func (s *MemoryStore) StartEvictionTimer(interval time.Duration) func() {
	ticker := s.clock.NewTicker(interval)
	done := make(chan bool)

	go func() {
		for {
			select {
			case <-ticker.Chan():
				evicted := s.EvictExpired()
				if evicted > 0 {
					slog.Debug("evicted expired result cache entries",
						"count", evicted,
						"remaining", s.Size(),
					)
					metrics.CacheEvictions.Add(float64(evicted))
				}
				metrics.CacheSize.Set(float64(s.Size()))

			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
