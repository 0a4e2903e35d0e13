package sentiment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/metrics"
	"github.com/tgedin/sentimentflow/internal/platform/logging"
	"github.com/tgedin/sentimentflow/internal/platform/retry"
)

const (
	loadTimeout     = 2 * time.Minute
	loadMaxAttempts = 2
	loadBackoff     = 250 * time.Millisecond
)

// LoadedModel is a model that finished loading on the runtime and is
// ready to serve predictions.
type LoadedModel struct {
	Descriptor domain.ModelDescriptor
	LoadedAt   time.Time

	runtime domain.ModelRuntime
}

// Predict runs inference on the loaded model.
func (m *LoadedModel) Predict(ctx context.Context, text string) ([]domain.Prediction, error) {
	return m.runtime.Predict(ctx, m.Descriptor.ID, text)
}

// Registry serves models from the catalog, loading each one lazily on
// first use. Concurrent requests for the same unloaded model collapse
// into a single load; a failed load is forgotten so the next request
// triggers a fresh attempt.
type Registry struct {
	catalog *Catalog
	runtime domain.ModelRuntime
	clock   clockwork.Clock

	mu     sync.RWMutex
	loaded map[string]*LoadedModel

	loadGroup singleflight.Group
}

func NewRegistry(catalog *Catalog, runtime domain.ModelRuntime, clock clockwork.Clock) *Registry {
	return &Registry{
		catalog: catalog,
		runtime: runtime,
		clock:   clock,
		loaded:  make(map[string]*LoadedModel),
	}
}

// Models returns the descriptors of every model the registry can serve,
// loaded or not.
func (r *Registry) Models() []domain.ModelDescriptor {
	return r.catalog.List()
}

// IsLoaded reports whether the model finished loading.
func (r *Registry) IsLoaded(modelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaded[modelID]
	return ok
}

// Acquire returns the loaded model for modelID, loading it first if
// necessary. Unknown ids fail before any load is attempted. When the
// caller's context ends while a load is in flight the caller gets the
// context error, but the load keeps running for the other waiters.
func (r *Registry) Acquire(ctx context.Context, modelID string) (*LoadedModel, error) {
	desc, ok := r.catalog.Get(modelID)
	if !ok {
		return nil, &domain.UnknownModelError{ModelID: modelID}
	}

	r.mu.RLock()
	model, ok := r.loaded[modelID]
	r.mu.RUnlock()
	if ok {
		return model, nil
	}

	ch := r.loadGroup.DoChan(modelID, func() (any, error) {
		return r.load(desc)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LoadedModel), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs on its own deadline, detached from any single caller, so an
// impatient request cannot abort a load other requests are waiting on.
func (r *Registry) load(desc domain.ModelDescriptor) (*LoadedModel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	log := logging.WithModel(desc.ID)
	log.Info("loading model")
	start := r.clock.Now()

	policy := retry.Policy{
		MaxAttempts:    loadMaxAttempts,
		InitialBackoff: loadBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			log.Warn("model load failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	retryable := func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	err := retry.DoVoid(ctx, policy, retryable, func() error {
		return r.runtime.Load(ctx, desc.ID)
	})
	if err != nil {
		metrics.ModelLoadsTotal.WithLabelValues(desc.ID, "error").Inc()
		log.Error("model load failed", "error", err)
		return nil, &domain.ModelLoadError{ModelID: desc.ID, Err: err}
	}

	model := &LoadedModel{
		Descriptor: desc,
		LoadedAt:   r.clock.Now(),
		runtime:    r.runtime,
	}

	r.mu.Lock()
	r.loaded[desc.ID] = model
	count := len(r.loaded)
	r.mu.Unlock()

	elapsed := r.clock.Since(start)
	metrics.ModelLoadsTotal.WithLabelValues(desc.ID, "success").Inc()
	metrics.ModelLoadDuration.WithLabelValues(desc.ID).Observe(elapsed.Seconds())
	metrics.LoadedModels.Set(float64(count))
	log.Info("model loaded", "duration", elapsed)

	return model, nil
}
