package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/metrics"
	"github.com/tgedin/sentimentflow/internal/platform/logging"
	"github.com/tgedin/sentimentflow/internal/platform/retry"
)

const (
	predictMaxAttempts = 2
	predictBackoff     = 100 * time.Millisecond
)

// Analyzer runs the full single-text pipeline: validate, acquire the
// model, truncate, predict, and normalize the winning label.
type Analyzer struct {
	registry         *Registry
	clock            clockwork.Clock
	defaultModel     string
	batchConcurrency int
}

func NewAnalyzer(registry *Registry, clock clockwork.Clock, defaultModel string, batchConcurrency int) *Analyzer {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	return &Analyzer{
		registry:         registry,
		clock:            clock,
		defaultModel:     defaultModel,
		batchConcurrency: batchConcurrency,
	}
}

// DefaultModel returns the model id used when a request names none.
func (a *Analyzer) DefaultModel() string { return a.defaultModel }

// ResolveModel maps a request's model field to a concrete model id.
func (a *Analyzer) ResolveModel(requested string) string {
	if requested == "" {
		return a.defaultModel
	}
	return requested
}

// Analyze classifies a single text. Empty or whitespace-only input is
// rejected before the registry is touched, so a bad request can never
// trigger a model load.
func (a *Analyzer) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &domain.InvalidInputError{Reason: "text must not be empty"}
	}
	modelID := a.ResolveModel(req.Model)

	model, err := a.registry.Acquire(ctx, modelID)
	if err != nil {
		return nil, err
	}

	input, truncated := truncate(req.Text, model.Descriptor.MaxInputLength)
	if truncated {
		metrics.TruncatedInputsTotal.WithLabelValues(modelID).Inc()
	}

	start := a.clock.Now()
	preds, err := a.predict(ctx, model, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.InferenceError{ModelID: modelID, Err: err}
	}

	top := topPrediction(preds)
	label, confidence, err := Normalize(model.Descriptor, top.Label, top.Score)
	if err != nil {
		// A raw label outside the descriptor mapping is a catalog
		// defect, not a transient failure.
		logging.WithModel(modelID).Error("model emitted unmapped label", "raw_label", top.Label)
		return nil, err
	}

	elapsed := a.clock.Since(start)
	metrics.AnalysesTotal.WithLabelValues(modelID, string(label)).Inc()
	metrics.AnalysisDuration.WithLabelValues(modelID).Observe(elapsed.Seconds())

	return &domain.AnalysisResult{
		ID:         uuid.NewString(),
		Text:       req.Text,
		Label:      label,
		Confidence: confidence,
		RawLabel:   top.Label,
		Model:      modelID,
		Truncated:  truncated,
		Duration:   elapsed,
		Timestamp:  a.clock.Now().UTC(),
	}, nil
}

// AnalyzeBatch classifies every text in the batch with bounded
// concurrency. The returned slice is positional: items[i] always holds
// the outcome for reqs[i], and one element failing never touches the
// others.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) []domain.BatchItem {
	items := make([]domain.BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(a.batchConcurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := a.Analyze(ctx, req)
			items[i] = domain.BatchItem{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

func (a *Analyzer) predict(ctx context.Context, model *LoadedModel, text string) ([]domain.Prediction, error) {
	modelID := model.Descriptor.ID
	policy := retry.Policy{
		MaxAttempts:    predictMaxAttempts,
		InitialBackoff: predictBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			metrics.InferenceRetriesTotal.WithLabelValues(modelID).Inc()
			logging.WithModel(modelID).Warn("inference failed, retrying", "attempt", attempt, "error", err)
		},
	}
	retryable := func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	return retry.Do(ctx, policy, retryable, func() ([]domain.Prediction, error) {
		preds, err := model.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(preds) == 0 {
			return nil, fmt.Errorf("model returned no predictions")
		}
		return preds, nil
	})
}

// topPrediction returns the highest-scoring prediction. Ties keep the
// earliest entry so the outcome is deterministic.
func topPrediction(preds []domain.Prediction) domain.Prediction {
	top := preds[0]
	for _, p := range preds[1:] {
		if p.Score > top.Score {
			top = p
		}
	}
	return top
}

// truncate cuts text to at most maxLen runes. Rune-based slicing keeps
// the cut point deterministic for multi-byte input.
func truncate(text string, maxLen int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text, false
	}
	return string(runes[:maxLen]), true
}
