package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tgedin/sentimentflow/internal/platform/correlation"
	apperrors "github.com/tgedin/sentimentflow/internal/platform/errors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(correlationMiddleware)
	s.echo.Use(apperrors.Middleware())

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/v1")

	limiter := newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst)
	sentiment := api.Group("/sentiment")
	sentiment.POST("/analyze", s.handleAnalyze, limiter)
	sentiment.POST("/analyze/batch", s.handleAnalyzeBatch, limiter)
	sentiment.GET("/models", s.handleModels)

	history := api.Group("/history")
	history.GET("/sessions", s.handleSessions)
	history.GET("/sessions/:id", s.handleSessionDetail)
	history.GET("/stats/distribution", s.handleDistribution)
	// Model ids contain slashes, so this route takes the tail of the path.
	history.GET("/stats/models/*", s.handleModelStats)
	history.GET("/stats/confidence", s.handleConfidenceOverview)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("Request", attrs...)
			return nil
		},
	})
}

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, _ := correlation.Ensure(c.Request().Context())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
