package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tgedin/sentimentflow/internal/domain"
	apperrors "github.com/tgedin/sentimentflow/internal/platform/errors"
)

const (
	defaultSessionsLimit = 20
	maxSessionsLimit     = 100
)

type sessionsResponse struct {
	Sessions []domain.Session `json:"sessions"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type sessionDetailResponse struct {
	Session *domain.Session     `json:"session"`
	Results []*analysisResponse `json:"results"`
}

type modelStatsResponse struct {
	Model         string  `json:"model"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

func (s *Server) handleSessions(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultSessionsLimit)
	if err != nil || limit > maxSessionsLimit {
		return apperrors.ValidationError("limit must be an integer between 1 and 100")
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0)
	if err != nil {
		return apperrors.ValidationError("offset must be a non-negative integer")
	}

	sessions, total, err := s.app.Sessions(c.Request().Context(), limit, offset)
	if err != nil {
		return toAPIError(err)
	}

	resp := sessionsResponse{Sessions: sessions, Total: total, Limit: limit, Offset: offset}
	if resp.Sessions == nil {
		resp.Sessions = []domain.Session{}
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSessionDetail(c echo.Context) error {
	sessionID := c.Param("id")

	session, results, err := s.app.SessionDetail(c.Request().Context(), sessionID)
	if err != nil {
		return toAPIError(err)
	}
	if session == nil {
		return apperrors.NotFoundError("session not found").WithField("session_id", sessionID)
	}

	resp := sessionDetailResponse{
		Session: session,
		Results: make([]*analysisResponse, len(results)),
	}
	for i := range results {
		resp.Results[i] = toAnalysisResponse(&results[i])
	}

	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDistribution(c echo.Context) error {
	dist, err := s.app.Distribution(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}

	if err := c.JSON(http.StatusOK, map[string]any{"distribution": dist}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleModelStats(c echo.Context) error {
	// The wildcard keeps slashes in model ids; it may still arrive escaped.
	modelID := c.Param("*")
	if decoded, err := url.PathUnescape(modelID); err == nil {
		modelID = decoded
	}
	if modelID == "" {
		return apperrors.ValidationError("model id is required")
	}

	stats, err := s.app.ModelStatsFor(c.Request().Context(), modelID)
	if err != nil {
		return toAPIError(err)
	}

	resp := modelStatsResponse{
		Model:         stats.Model,
		Count:         stats.Count,
		AvgConfidence: stats.AvgConfidence,
		AvgDurationMs: float64(stats.AvgDuration) / float64(time.Millisecond),
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleConfidenceOverview(c echo.Context) error {
	overview, err := s.app.ConfidenceOverview(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}

	if err := c.JSON(http.StatusOK, overview); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if v == 0 {
		return fallback, nil
	}
	return v, nil
}
