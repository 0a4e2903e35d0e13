package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tgedin/sentimentflow/internal/app"
	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/platform/config"
)

// mockAppService is a scriptable sentimentService for handler tests.
type mockAppService struct {
	analyzeFn      func(ctx context.Context, req domain.AnalysisRequest, userAgent string) (*domain.AnalysisResult, error)
	analyzeBatchFn func(ctx context.Context, reqs []domain.AnalysisRequest, userAgent string) ([]domain.BatchItem, error)
	modelsFn       func() []app.ModelInfo
	sessionsFn     func(ctx context.Context, limit, offset int) ([]domain.Session, int, error)
	sessionFn      func(ctx context.Context, sessionID string) (*domain.Session, []domain.AnalysisResult, error)
	distributionFn func(ctx context.Context) (map[domain.Label]int, error)
	modelStatsFn   func(ctx context.Context, modelID string) (*domain.ModelStats, error)
	confidenceFn   func(ctx context.Context) (*domain.ConfidenceOverview, error)
}

func (m *mockAppService) Analyze(ctx context.Context, req domain.AnalysisRequest, userAgent string) (*domain.AnalysisResult, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, req, userAgent)
	}
	return nil, nil
}

func (m *mockAppService) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest, userAgent string) ([]domain.BatchItem, error) {
	if m.analyzeBatchFn != nil {
		return m.analyzeBatchFn(ctx, reqs, userAgent)
	}
	return nil, nil
}

func (m *mockAppService) Models() []app.ModelInfo {
	if m.modelsFn != nil {
		return m.modelsFn()
	}
	return nil
}

func (m *mockAppService) Sessions(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	if m.sessionsFn != nil {
		return m.sessionsFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockAppService) SessionDetail(ctx context.Context, sessionID string) (*domain.Session, []domain.AnalysisResult, error) {
	if m.sessionFn != nil {
		return m.sessionFn(ctx, sessionID)
	}
	return nil, nil, nil
}

func (m *mockAppService) Distribution(ctx context.Context) (map[domain.Label]int, error) {
	if m.distributionFn != nil {
		return m.distributionFn(ctx)
	}
	return nil, nil
}

func (m *mockAppService) ModelStatsFor(ctx context.Context, modelID string) (*domain.ModelStats, error) {
	if m.modelStatsFn != nil {
		return m.modelStatsFn(ctx, modelID)
	}
	return nil, nil
}

func (m *mockAppService) ConfidenceOverview(ctx context.Context) (*domain.ConfidenceOverview, error) {
	if m.confidenceFn != nil {
		return m.confidenceFn(ctx)
	}
	return nil, nil
}

type serverOption func(*Server)

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func newTestServer(t *testing.T, svc sentimentService, opts ...serverOption) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:               "0",
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}

	srv := NewServer(cfg, svc, nil)
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// doRequest runs a request through the full router, middleware included.
func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
