// Package httpserver exposes the sentiment service over HTTP.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tgedin/sentimentflow/internal/app"
	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/platform/config"
)

type sentimentService interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest, userAgent string) (*domain.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest, userAgent string) ([]domain.BatchItem, error)
	Models() []app.ModelInfo
	Sessions(ctx context.Context, limit, offset int) ([]domain.Session, int, error)
	SessionDetail(ctx context.Context, sessionID string) (*domain.Session, []domain.AnalysisResult, error)
	Distribution(ctx context.Context) (map[domain.Label]int, error)
	ModelStatsFor(ctx context.Context, modelID string) (*domain.ModelStats, error)
	ConfidenceOverview(ctx context.Context) (*domain.ConfidenceOverview, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app          sentimentService
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app sentimentService, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
