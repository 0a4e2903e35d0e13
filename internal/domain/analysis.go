package domain

import "time"

// AnalysisRequest is one unit of work for the analyzer. Model defaults to the
// configured default model when empty. SessionID is optional; when set, the
// result is attached to that session's history.
type AnalysisRequest struct {
	Text      string `json:"text"`
	Model     string `json:"model,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// AnalysisResult is the canonical outcome of one successful analysis.
// Immutable once created; HistoryStore owns the durable copy after recording.
type AnalysisResult struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id,omitempty"`
	Text       string        `json:"text"`
	Label      Label         `json:"label"`
	Confidence float64       `json:"confidence"`
	RawLabel   string        `json:"raw_label"`
	Model      string        `json:"model"`
	Truncated  bool          `json:"truncated,omitempty"`
	CacheHit   bool          `json:"cache_hit"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
}

// BatchItem is one slot of a batch analysis response. Exactly one of Result
// and Err is set; a failed element never aborts its siblings, and slots
// correspond positionally to the batch inputs.
type BatchItem struct {
	Result *AnalysisResult
	Err    error
}
