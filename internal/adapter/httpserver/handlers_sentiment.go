package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tgedin/sentimentflow/internal/domain"
	apperrors "github.com/tgedin/sentimentflow/internal/platform/errors"
)

type analyzeRequest struct {
	Text      string `json:"text"`
	Model     string `json:"model,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type batchAnalyzeRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
}

type analysisResponse struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id,omitempty"`
	Text         string    `json:"text"`
	Label        string    `json:"label"`
	Confidence   float64   `json:"confidence"`
	RawLabel     string    `json:"raw_label"`
	Model        string    `json:"model"`
	Truncated    bool      `json:"truncated"`
	CacheHit     bool      `json:"cache_hit"`
	ProcessingMs float64   `json:"processing_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

type batchItemResponse struct {
	Result *analysisResponse        `json:"result,omitempty"`
	Error  *apperrors.ErrorResponse `json:"error,omitempty"`
}

type batchAnalyzeResponse struct {
	Results []batchItemResponse `json:"results"`
	Total   int                 `json:"total"`
	Failed  int                 `json:"failed"`
}

func toAnalysisResponse(result *domain.AnalysisResult) *analysisResponse {
	return &analysisResponse{
		ID:           result.ID,
		SessionID:    result.SessionID,
		Text:         result.Text,
		Label:        string(result.Label),
		Confidence:   result.Confidence,
		RawLabel:     result.RawLabel,
		Model:        result.Model,
		Truncated:    result.Truncated,
		CacheHit:     result.CacheHit,
		ProcessingMs: float64(result.Duration) / float64(time.Millisecond),
		Timestamp:    result.Timestamp,
	}
}

// toAPIError maps domain errors onto the structured error layer, which
// owns the HTTP status mapping.
func toAPIError(err error) *apperrors.Error {
	var (
		invalid     *domain.InvalidInputError
		unknown     *domain.UnknownModelError
		loadErr     *domain.ModelLoadError
		infErr      *domain.InferenceError
		unsupported *domain.UnsupportedLabelError
		persistence *domain.PersistenceError
		timeout     *domain.TimeoutError
	)

	switch {
	case errors.As(err, &invalid):
		return apperrors.ValidationError(invalid.Reason)
	case errors.As(err, &unknown):
		return apperrors.NotFoundError("unknown model").WithField("model", unknown.ModelID)
	case errors.As(err, &loadErr):
		return apperrors.ExternalError("model load failed", err).WithField("model", loadErr.ModelID)
	case errors.As(err, &infErr):
		return apperrors.ExternalError("inference failed", err).WithField("model", infErr.ModelID)
	case errors.As(err, &unsupported):
		return apperrors.InternalError("model emitted unmapped label", err).
			WithField("model", unsupported.ModelID).
			WithField("raw_label", unsupported.RawLabel)
	case errors.As(err, &persistence):
		return apperrors.InternalError("history store failure", err).WithField("operation", persistence.Op)
	case errors.As(err, &timeout):
		return apperrors.TimeoutError("analysis timed out", err)
	default:
		return apperrors.AsStructuredError(err)
	}
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	result, err := s.app.Analyze(c.Request().Context(), domain.AnalysisRequest{
		Text:      req.Text,
		Model:     req.Model,
		SessionID: req.SessionID,
	}, c.Request().UserAgent())
	if err != nil {
		return toAPIError(err)
	}

	if err := c.JSON(http.StatusOK, toAnalysisResponse(result)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleAnalyzeBatch(c echo.Context) error {
	var req batchAnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	reqs := make([]domain.AnalysisRequest, len(req.Texts))
	for i, text := range req.Texts {
		reqs[i] = domain.AnalysisRequest{
			Text:      text,
			Model:     req.Model,
			SessionID: req.SessionID,
		}
	}

	items, err := s.app.AnalyzeBatch(c.Request().Context(), reqs, c.Request().UserAgent())
	if err != nil {
		return toAPIError(err)
	}

	resp := batchAnalyzeResponse{
		Results: make([]batchItemResponse, len(items)),
		Total:   len(items),
	}
	for i, item := range items {
		if item.Err != nil {
			body := toAPIError(item.Err).ToResponse()
			resp.Results[i] = batchItemResponse{Error: &body}
			resp.Failed++
			continue
		}
		resp.Results[i] = batchItemResponse{Result: toAnalysisResponse(item.Result)}
	}

	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleModels(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]any{"models": s.app.Models()}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
