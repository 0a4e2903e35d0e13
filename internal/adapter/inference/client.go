// Package inference talks to the model inference sidecar over HTTP and
// adapts it to the domain.ModelRuntime interface.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/metrics"
)

// Client is an HTTP client for the inference runtime. All calls pass
// through a circuit breaker so a dead runtime fails fast instead of
// tying up request handlers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         circuitbreaker.CircuitBreaker[any]
}

var _ domain.ModelRuntime = (*Client)(nil)

// NewClient creates a runtime client for the given base URL. Breaker
// settings: 60% failure rate over a 10s window (min 5 requests) opens,
// 30s delay before half-open, one success closes again.
func NewClient(baseURL string, timeout time.Duration) *Client {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("circuit breaker state changed",
				"component", "inference",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(e.NewState.String()).Inc()
			metrics.CircuitBreakerState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Load asks the runtime to load a model's weights. The call returns
// once the model is ready to serve predictions.
func (c *Client) Load(ctx context.Context, modelID string) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.post(ctx, c.modelPath(modelID, "load"), nil, &resp)
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Predictions []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"predictions"`
}

// Predict runs inference against an already loaded model.
func (c *Client) Predict(ctx context.Context, modelID, text string) ([]domain.Prediction, error) {
	var resp predictResponse
	if err := c.post(ctx, c.modelPath(modelID, "predict"), predictRequest{Text: text}, &resp); err != nil {
		return nil, err
	}

	preds := make([]domain.Prediction, len(resp.Predictions))
	for i, p := range resp.Predictions {
		preds[i] = domain.Prediction{Label: p.Label, Score: p.Score}
	}
	return preds, nil
}

func (c *Client) modelPath(modelID, action string) string {
	return c.baseURL + "/models/" + url.PathEscape(modelID) + "/" + action
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	if !c.cb.TryAcquirePermit() {
		return fmt.Errorf("inference circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.cb.RecordError(err)
		return fmt.Errorf("inference request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("inference runtime returned status %d", resp.StatusCode)
		// Client errors (bad model id, malformed input) do not indicate
		// an unhealthy runtime, so they do not trip the breaker.
		if resp.StatusCode >= http.StatusInternalServerError {
			c.cb.RecordError(err)
		} else {
			c.cb.RecordSuccess()
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.cb.RecordError(err)
		return fmt.Errorf("failed to decode inference response: %w", err)
	}

	c.cb.RecordSuccess()
	return nil
}
