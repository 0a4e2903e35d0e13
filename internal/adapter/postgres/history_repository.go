package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tgedin/sentimentflow/internal/domain"
	"github.com/tgedin/sentimentflow/internal/metrics"
)

// HistoryRepo implements domain.HistoryStore on PostgreSQL.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

var _ domain.HistoryStore = (*HistoryRepo)(nil)

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// Record inserts the result and updates its session's aggregates in one
// transaction. The session row is created on first use; the stored
// user agent keeps the value from session creation.
func (r *HistoryRepo) Record(ctx context.Context, result *domain.AnalysisResult, sessionID, userAgent string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.fail("record", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (session_id, created_at, last_activity, total_analyses, models_used, user_agent)
		VALUES ($1, $2, $2, 1, ARRAY[$3], $4)
		ON CONFLICT (session_id) DO UPDATE SET
			last_activity = GREATEST(sessions.last_activity, EXCLUDED.last_activity),
			total_analyses = sessions.total_analyses + 1,
			models_used = CASE
				WHEN $3 = ANY(sessions.models_used) THEN sessions.models_used
				ELSE array_append(sessions.models_used, $3)
			END
	`, sessionID, result.Timestamp, result.Model, userAgent)
	if err != nil {
		return r.fail("record", fmt.Errorf("failed to upsert session: %w", err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_results (id, session_id, text, label, confidence, raw_label, model, truncated, cache_hit, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, result.ID, sessionID, result.Text, string(result.Label), result.Confidence,
		result.RawLabel, result.Model, result.Truncated, result.CacheHit,
		durationToMillis(result.Duration), result.Timestamp)
	if err != nil {
		return r.fail("record", fmt.Errorf("failed to insert result: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return r.fail("record", err)
	}

	metrics.HistoryWritesTotal.WithLabelValues("success").Inc()
	return nil
}

// Sessions returns a page of sessions ordered by most recent activity,
// along with the total session count for pagination.
func (r *HistoryRepo) Sessions(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, r.fail("sessions", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT session_id, created_at, last_activity, total_analyses, models_used, user_agent
		FROM sessions
		ORDER BY last_activity DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, r.fail("sessions", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0, limit)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.SessionID, &s.CreatedAt, &s.LastActivity, &s.TotalAnalyses, &s.ModelsUsed, &s.UserAgent); err != nil {
			return nil, 0, r.fail("sessions", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.fail("sessions", err)
	}

	return sessions, total, nil
}

// ResultsForSession returns the session and its results, newest first.
// An unknown session yields a nil session and no results, not an error.
func (r *HistoryRepo) ResultsForSession(ctx context.Context, sessionID string) (*domain.Session, []domain.AnalysisResult, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx, `
		SELECT session_id, created_at, last_activity, total_analyses, models_used, user_agent
		FROM sessions
		WHERE session_id = $1
	`, sessionID).Scan(&s.SessionID, &s.CreatedAt, &s.LastActivity, &s.TotalAnalyses, &s.ModelsUsed, &s.UserAgent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, r.fail("results_for_session", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, text, label, confidence, raw_label, model, truncated, cache_hit, duration_ms, created_at
		FROM analysis_results
		WHERE session_id = $1
		ORDER BY created_at DESC
	`, sessionID)
	if err != nil {
		return nil, nil, r.fail("results_for_session", err)
	}
	defer rows.Close()

	var results []domain.AnalysisResult
	for rows.Next() {
		var res domain.AnalysisResult
		var label string
		var durationMs float64
		if err := rows.Scan(&res.ID, &res.Text, &label, &res.Confidence, &res.RawLabel,
			&res.Model, &res.Truncated, &res.CacheHit, &durationMs, &res.Timestamp); err != nil {
			return nil, nil, r.fail("results_for_session", err)
		}
		res.Label = domain.Label(label)
		res.Duration = millisToDuration(durationMs)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, r.fail("results_for_session", err)
	}

	return &s, results, nil
}

// Distribution counts recorded results per canonical label. Labels with
// no results are present with a zero count.
func (r *HistoryRepo) Distribution(ctx context.Context) (map[domain.Label]int, error) {
	dist := map[domain.Label]int{
		domain.LabelNegative: 0,
		domain.LabelNeutral:  0,
		domain.LabelPositive: 0,
	}

	rows, err := r.pool.Query(ctx, `SELECT label, COUNT(*) FROM analysis_results GROUP BY label`)
	if err != nil {
		return nil, r.fail("distribution", err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, r.fail("distribution", err)
		}
		dist[domain.Label(label)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("distribution", err)
	}

	return dist, nil
}

// ModelStats aggregates recorded results for one model. A model with no
// recorded results yields zero counts.
func (r *HistoryRepo) ModelStats(ctx context.Context, modelID string) (*domain.ModelStats, error) {
	var count int
	var avgConfidence, avgDurationMs float64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(confidence), 0), COALESCE(AVG(duration_ms), 0)
		FROM analysis_results
		WHERE model = $1
	`, modelID).Scan(&count, &avgConfidence, &avgDurationMs)
	if err != nil {
		return nil, r.fail("model_stats", err)
	}

	return &domain.ModelStats{
		Model:         modelID,
		Count:         count,
		AvgConfidence: avgConfidence,
		AvgDuration:   millisToDuration(avgDurationMs),
	}, nil
}

// ConfidenceOverview summarizes confidence across all recorded results.
func (r *HistoryRepo) ConfidenceOverview(ctx context.Context) (*domain.ConfidenceOverview, error) {
	var overview domain.ConfidenceOverview
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(confidence), 0), COALESCE(MIN(confidence), 0), COALESCE(MAX(confidence), 0)
		FROM analysis_results
	`).Scan(&overview.Total, &overview.AvgConfidence, &overview.MinConfidence, &overview.MaxConfidence)
	if err != nil {
		return nil, r.fail("confidence_overview", err)
	}

	return &overview, nil
}

func (r *HistoryRepo) fail(op string, err error) error {
	if op == "record" {
		metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
