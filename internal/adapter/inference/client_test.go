package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHitsLoadEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "loaded"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	err := client.Load(context.Background(), "cardiffnlp/twitter-roberta-base-sentiment")
	require.NoError(t, err)

	// Model ids may contain slashes and must arrive path-escaped.
	want := "/models/" + url.PathEscape("cardiffnlp/twitter-roberta-base-sentiment") + "/load"
	assert.Equal(t, want, gotPath)
}

func TestPredictDecodesPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "I love this!", req.Text)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"label": "NEGATIVE", "score": 0.02},
				{"label": "POSITIVE", "score": 0.98},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	preds, err := client.Predict(context.Background(), "some-model", "I love this!")
	require.NoError(t, err)

	require.Len(t, preds, 2)
	assert.Equal(t, "POSITIVE", preds[1].Label)
	assert.Equal(t, 0.98, preds[1].Score)
}

func TestPredictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Predict(context.Background(), "some-model", "hello")
	assert.ErrorContains(t, err, "status 500")
}

func TestPredictContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Predict(ctx, "some-model", "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	// Push enough failures through the rolling window to trip the breaker.
	for i := 0; i < 10; i++ {
		_, _ = client.Predict(context.Background(), "some-model", "hello")
	}

	before := calls.Load()
	_, err := client.Predict(context.Background(), "some-model", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	// The open breaker short-circuits without touching the server.
	assert.Equal(t, before, calls.Load())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown model", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	for i := 0; i < 10; i++ {
		err := client.Load(context.Background(), "missing-model")
		require.ErrorContains(t, err, "status 404")
	}

	// Still reaching the server: the breaker stayed closed.
	err := client.Load(context.Background(), "missing-model")
	assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
}
