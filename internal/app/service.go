package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/platform/logging"
	"github.com/tgedin/sentimentflow/internal/sentiment"
)

const historyWriteTimeout = 5 * time.Second

// ModelInfo is a catalog entry plus its runtime state.
type ModelInfo struct {
	domain.ModelDescriptor
	Loaded  bool `json:"loaded"`
	Default bool `json:"default"`
}

// Service orchestrates a request end to end: cache lookup, analysis,
// and history recording.
type Service struct {
	registry *sentiment.Registry
	analyzer *sentiment.Analyzer
	cache    *sentiment.ResultCache
	history  domain.HistoryStore

	requestTimeout   time.Duration
	maxBatchSize     int
	batchConcurrency int
}

func NewService(
	registry *sentiment.Registry,
	analyzer *sentiment.Analyzer,
	cache *sentiment.ResultCache,
	history domain.HistoryStore,
	requestTimeout time.Duration,
	maxBatchSize int,
	batchConcurrency int,
) *Service {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	return &Service{
		registry:         registry,
		analyzer:         analyzer,
		cache:            cache,
		history:          history,
		requestTimeout:   requestTimeout,
		maxBatchSize:     maxBatchSize,
		batchConcurrency: batchConcurrency,
	}
}

// Analyze classifies one text under the request deadline, consulting
// the result cache first. Every successful result is recorded to the
// session's history, cache hits included: a session counts requests,
// not inference runs. Requests without a session id get one generated
// here, so session-less traffic still shows up in the analytics.
func (s *Service) Analyze(ctx context.Context, req domain.AnalysisRequest, userAgent string) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &domain.InvalidInputError{Reason: "text must not be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	modelID := s.analyzer.ResolveModel(req.Model)
	result, _, err := s.cache.GetOrCompute(ctx, req.Text, modelID, func(ctx context.Context) (*domain.AnalysisResult, error) {
		return s.analyzer.Analyze(ctx, req)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.TimeoutError{Err: err}
		}
		return nil, err
	}

	// The runtime is CPU-bound and may finish a prediction after the
	// deadline has passed. A late success is still a timeout for the
	// caller.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &domain.TimeoutError{Err: ctxErr}
		}
		return nil, ctxErr
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	result.SessionID = sessionID

	s.record(ctx, result, sessionID, userAgent)
	return result, nil
}

// AnalyzeBatch classifies a batch with bounded concurrency. The slice
// is positional (items[i] belongs to reqs[i]) and element failures stay
// in their slot. Only an invalid batch shape fails the call itself.
func (s *Service) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest, userAgent string) ([]domain.BatchItem, error) {
	if len(reqs) == 0 {
		return nil, &domain.InvalidInputError{Reason: "batch must not be empty"}
	}
	if len(reqs) > s.maxBatchSize {
		return nil, &domain.InvalidInputError{
			Reason: fmt.Sprintf("batch size %d exceeds limit %d", len(reqs), s.maxBatchSize),
		}
	}

	// Elements without a session id share one generated for the whole
	// batch, so the batch lands in a single session.
	batchSession := uuid.NewString()
	for i := range reqs {
		if reqs[i].SessionID == "" {
			reqs[i].SessionID = batchSession
		}
	}

	items := make([]domain.BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			result, err := s.Analyze(ctx, req, userAgent)
			items[i] = domain.BatchItem{Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return items, nil
}

// Models lists every servable model with its load state.
func (s *Service) Models() []ModelInfo {
	descriptors := s.registry.Models()
	infos := make([]ModelInfo, len(descriptors))
	for i, desc := range descriptors {
		infos[i] = ModelInfo{
			ModelDescriptor: desc,
			Loaded:          s.registry.IsLoaded(desc.ID),
			Default:         desc.ID == s.analyzer.DefaultModel(),
		}
	}
	return infos
}

// Sessions returns a history page plus the total session count.
func (s *Service) Sessions(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	return s.history.Sessions(ctx, limit, offset)
}

// SessionDetail returns one session and its results, newest first. The
// session is nil when the identifier has never been seen.
func (s *Service) SessionDetail(ctx context.Context, sessionID string) (*domain.Session, []domain.AnalysisResult, error) {
	return s.history.ResultsForSession(ctx, sessionID)
}

// Distribution returns recorded result counts per canonical label.
func (s *Service) Distribution(ctx context.Context) (map[domain.Label]int, error) {
	return s.history.Distribution(ctx)
}

// ModelStatsFor aggregates history for one model. Models absent from
// history yield zero stats; retired models stay queryable this way.
func (s *Service) ModelStatsFor(ctx context.Context, modelID string) (*domain.ModelStats, error) {
	return s.history.ModelStats(ctx, modelID)
}

// ConfidenceOverview summarizes confidence across all recorded results.
func (s *Service) ConfidenceOverview(ctx context.Context) (*domain.ConfidenceOverview, error) {
	return s.history.ConfidenceOverview(ctx)
}

// record writes the result to history, best-effort. A failing history
// store must not turn a successful analysis into an error; the write
// runs on its own deadline so a nearly-expired request still records.
func (s *Service) record(ctx context.Context, result *domain.AnalysisResult, sessionID, userAgent string) {
	// A cache hit replays a stored result, primary key included. Each
	// history row needs its own identity.
	entry := *result
	if entry.CacheHit {
		entry.ID = uuid.NewString()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.history.Record(writeCtx, &entry, sessionID, userAgent); err != nil {
		logging.WithSession(sessionID).Warn("failed to record analysis to history",
			"model", result.Model, "error", err)
	}
}
