package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// PromptTemplateStats holds the rolling aggregates for one prompt template.
// Averages are maintained by the streaming update in the analytics engine;
// they are never recomputed from raw interaction history.
type PromptTemplateStats struct {
	ID                     string
	TotalUses              int64
	SuccessfulUses         int64
	SuccessRate            float64
	AverageConfidenceScore float64
	AverageResponseTimeMs  float64
	LastUsed               time.Time
}

// templateStatsColumns is the standard column list for template-stats queries.
const templateStatsColumns = `id, total_uses, successful_uses, success_rate,
	average_confidence_score, average_response_time_ms, last_used`

// scanTemplateStats scans a row into a PromptTemplateStats.
func scanTemplateStats(row pgx.Row) (*PromptTemplateStats, error) {
	var s PromptTemplateStats
	err := row.Scan(
		&s.ID, &s.TotalUses, &s.SuccessfulUses, &s.SuccessRate,
		&s.AverageConfidenceScore, &s.AverageResponseTimeMs, &s.LastUsed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetPromptTemplateStats retrieves stats for a template id.
func (db *DB) GetPromptTemplateStats(ctx context.Context, templateID string) (*PromptTemplateStats, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+templateStatsColumns+` FROM prompt_template_stats WHERE id = $1`,
		templateID,
	)
	return scanTemplateStats(row)
}

// SavePromptTemplateStats upserts the full stats row for a template.
func (db *DB) SavePromptTemplateStats(ctx context.Context, stats PromptTemplateStats) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO prompt_template_stats (id, total_uses, successful_uses, success_rate,
		     average_confidence_score, average_response_time_ms, last_used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET total_uses = EXCLUDED.total_uses,
		     successful_uses = EXCLUDED.successful_uses,
		     success_rate = EXCLUDED.success_rate,
		     average_confidence_score = EXCLUDED.average_confidence_score,
		     average_response_time_ms = EXCLUDED.average_response_time_ms,
		     last_used = EXCLUDED.last_used`,
		stats.ID, stats.TotalUses, stats.SuccessfulUses, stats.SuccessRate,
		stats.AverageConfidenceScore, stats.AverageResponseTimeMs, stats.LastUsed,
	)
	return err
}

// RankPromptTemplates returns templates used since the given time, ranked
// by success rate and then by volume.
func (db *DB) RankPromptTemplates(ctx context.Context, since time.Time, limit int) ([]PromptTemplateStats, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+templateStatsColumns+` FROM prompt_template_stats
		 WHERE last_used >= $1
		 ORDER BY success_rate DESC, total_uses DESC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []PromptTemplateStats
	for rows.Next() {
		var s PromptTemplateStats
		if err := rows.Scan(
			&s.ID, &s.TotalUses, &s.SuccessfulUses, &s.SuccessRate,
			&s.AverageConfidenceScore, &s.AverageResponseTimeMs, &s.LastUsed,
		); err != nil {
			return nil, err
		}
		all = append(all, s)
	}
	return all, rows.Err()
}

// DeletePromptTemplateStats deletes the stats row for a template.
func (db *DB) DeletePromptTemplateStats(ctx context.Context, templateID string) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM prompt_template_stats WHERE id = $1`,
		templateID,
	)
	return err
}
