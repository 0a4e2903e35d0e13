package sentiment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgedin/sentimentflow/internal/domain"
)

// fakeRuntime is a scriptable ModelRuntime for tests.
type fakeRuntime struct {
	mu           sync.Mutex
	loadCalls    int
	predictCalls int
	loadFn       func(ctx context.Context, modelID string) error
	predictFn    func(ctx context.Context, modelID, text string) ([]domain.Prediction, error)
}

func (f *fakeRuntime) Load(ctx context.Context, modelID string) error {
	f.mu.Lock()
	f.loadCalls++
	fn := f.loadFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, modelID)
	}
	return nil
}

func (f *fakeRuntime) Predict(ctx context.Context, modelID, text string) ([]domain.Prediction, error) {
	f.mu.Lock()
	f.predictCalls++
	fn := f.predictFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, modelID, text)
	}
	return []domain.Prediction{{Label: "POSITIVE", Score: 0.98}}, nil
}

func (f *fakeRuntime) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls
}

func (f *fakeRuntime) predictions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.predictCalls
}

func newTestRegistry(runtime *fakeRuntime) *Registry {
	return NewRegistry(DefaultCatalog(), runtime, clockwork.NewFakeClock())
}

func TestRegistryLoadsLazily(t *testing.T) {
	runtime := &fakeRuntime{}
	registry := newTestRegistry(runtime)

	assert.Equal(t, 0, runtime.loads())
	assert.False(t, registry.IsLoaded(ModelDistilBERT))

	model, err := registry.Acquire(context.Background(), ModelDistilBERT)
	require.NoError(t, err)
	assert.Equal(t, ModelDistilBERT, model.Descriptor.ID)
	assert.Equal(t, 1, runtime.loads())
	assert.True(t, registry.IsLoaded(ModelDistilBERT))

	// Second acquire serves from memory.
	_, err = registry.Acquire(context.Background(), ModelDistilBERT)
	require.NoError(t, err)
	assert.Equal(t, 1, runtime.loads())
}

func TestRegistryUnknownModelNeverLoads(t *testing.T) {
	runtime := &fakeRuntime{}
	registry := newTestRegistry(runtime)

	_, err := registry.Acquire(context.Background(), "no-such-model")

	var unknown *domain.UnknownModelError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no-such-model", unknown.ModelID)
	assert.Equal(t, 0, runtime.loads())
}

func TestRegistryConcurrentAcquiresLoadOnce(t *testing.T) {
	release := make(chan struct{})
	runtime := &fakeRuntime{
		loadFn: func(ctx context.Context, modelID string) error {
			<-release
			return nil
		},
	}
	registry := newTestRegistry(runtime)

	const workers = 20
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = registry.Acquire(context.Background(), ModelRoBERTa)
		}()
	}

	require.Eventually(t, func() bool { return runtime.loads() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range results {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, runtime.loads())
}

func TestRegistryFailedLoadRetriesOnNextAcquire(t *testing.T) {
	runtime := &fakeRuntime{}
	registry := newTestRegistry(runtime)

	boom := errors.New("weights unavailable")
	runtime.loadFn = func(ctx context.Context, modelID string) error { return boom }

	_, err := registry.Acquire(context.Background(), ModelDistilBERT)

	var loadErr *domain.ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ModelDistilBERT, loadErr.ModelID)
	assert.ErrorIs(t, err, boom)
	assert.False(t, registry.IsLoaded(ModelDistilBERT))
	// One acquire exhausts all load attempts.
	assert.Equal(t, loadMaxAttempts, runtime.loads())

	// The failure is not sticky: a later acquire tries again.
	runtime.mu.Lock()
	runtime.loadFn = nil
	runtime.mu.Unlock()

	_, err = registry.Acquire(context.Background(), ModelDistilBERT)
	require.NoError(t, err)
	assert.True(t, registry.IsLoaded(ModelDistilBERT))
}

func TestRegistryAbandonedWaiterDoesNotAbortLoad(t *testing.T) {
	release := make(chan struct{})
	runtime := &fakeRuntime{
		loadFn: func(ctx context.Context, modelID string) error {
			<-release
			return nil
		},
	}
	registry := newTestRegistry(runtime)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := registry.Acquire(ctx, ModelBERTStars)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return runtime.loads() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled acquire did not return")
	}

	// The load finishes anyway and serves later callers.
	close(release)
	require.Eventually(t, func() bool { return registry.IsLoaded(ModelBERTStars) }, time.Second, time.Millisecond)

	_, err := registry.Acquire(context.Background(), ModelBERTStars)
	require.NoError(t, err)
	assert.Equal(t, 1, runtime.loads())
}

func TestRegistryModelsListsCatalog(t *testing.T) {
	registry := newTestRegistry(&fakeRuntime{})

	models := registry.Models()
	require.Len(t, models, 3)
	assert.Equal(t, ModelDistilBERT, models[0].ID)
}
