package domain

import (
	"context"
	"time"
)

// Session tracks analysis history for one client-supplied session identifier.
// Created on first analysis referencing a new identifier; aggregates update
// with every subsequent analysis in that session.
type Session struct {
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	TotalAnalyses int       `json:"total_analyses"`
	ModelsUsed    []string  `json:"models_used"`
	UserAgent     string    `json:"user_agent,omitempty"`
}

// ModelStats aggregates recorded results for one model.
type ModelStats struct {
	Model         string        `json:"model"`
	Count         int           `json:"count"`
	AvgConfidence float64       `json:"avg_confidence"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// ConfidenceOverview summarizes confidence scores across all recorded results.
type ConfidenceOverview struct {
	Total         int     `json:"total"`
	AvgConfidence float64 `json:"avg_confidence"`
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
}

// HistoryStore persists analysis results and session aggregates.
//
// Record attaches the result to its session (creating the session first if the
// identifier is new) atomically: a reader never observes a session whose
// counter disagrees with its recorded results. Read queries for an unknown
// session return empty data, not an error. All store failures surface as
// *PersistenceError.
type HistoryStore interface {
	Record(ctx context.Context, result *AnalysisResult, sessionID, userAgent string) error
	Sessions(ctx context.Context, limit, offset int) ([]Session, int, error)
	ResultsForSession(ctx context.Context, sessionID string) (*Session, []AnalysisResult, error)
	Distribution(ctx context.Context) (map[Label]int, error)
	ModelStats(ctx context.Context, modelID string) (*ModelStats, error)
	ConfidenceOverview(ctx context.Context) (*ConfidenceOverview, error)
}
