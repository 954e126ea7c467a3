package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ComprehensionIssue represents a recurring model-comprehension failure,
// deduplicated by (category, html_pattern).
type ComprehensionIssue struct {
	ID               uuid.UUID
	Category         string
	Description      string
	HTMLPattern      string
	ExpectedBehavior string
	ActualBehavior   string
	Severity         string
	FrequencyCount   int
	FirstSeen        time.Time
	LastSeen         time.Time
}

// UpsertIssueParams contains parameters for recording an issue occurrence.
type UpsertIssueParams struct {
	Category         string
	Description      string
	HTMLPattern      string
	ExpectedBehavior string
	ActualBehavior   string
	Severity         string
}

// issueColumns is the standard column list for issue queries.
const issueColumns = `id, category, description, html_pattern, expected_behavior,
	actual_behavior, severity, frequency_count, first_seen, last_seen`

// scanIssue scans a row into a ComprehensionIssue.
func scanIssue(row pgx.Row) (*ComprehensionIssue, error) {
	var i ComprehensionIssue
	err := row.Scan(
		&i.ID, &i.Category, &i.Description, &i.HTMLPattern, &i.ExpectedBehavior,
		&i.ActualBehavior, &i.Severity, &i.FrequencyCount, &i.FirstSeen, &i.LastSeen,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// UpsertComprehensionIssue records one issue occurrence. A repeated
// (category, html_pattern) key increments frequency_count and refreshes
// last_seen instead of inserting a second row.
func (db *DB) UpsertComprehensionIssue(ctx context.Context, params UpsertIssueParams) (*ComprehensionIssue, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO comprehension_issues (category, description, html_pattern,
		     expected_behavior, actual_behavior, severity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (category, html_pattern) DO UPDATE
		 SET frequency_count = comprehension_issues.frequency_count + 1,
		     last_seen = now(),
		     severity = EXCLUDED.severity,
		     description = EXCLUDED.description,
		     actual_behavior = EXCLUDED.actual_behavior
		 RETURNING `+issueColumns,
		params.Category, params.Description, params.HTMLPattern,
		params.ExpectedBehavior, params.ActualBehavior, params.Severity,
	)
	return scanIssue(row)
}

// GetComprehensionIssue retrieves an issue by its deduplication key.
func (db *DB) GetComprehensionIssue(ctx context.Context, category, htmlPattern string) (*ComprehensionIssue, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+issueColumns+` FROM comprehension_issues
		 WHERE category = $1 AND html_pattern = $2`,
		category, htmlPattern,
	)
	return scanIssue(row)
}

// ListComprehensionIssues returns issues seen since the given time, most
// frequent first.
func (db *DB) ListComprehensionIssues(ctx context.Context, since time.Time, limit int) ([]ComprehensionIssue, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+issueColumns+` FROM comprehension_issues
		 WHERE last_seen >= $1
		 ORDER BY frequency_count DESC, last_seen DESC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []ComprehensionIssue
	for rows.Next() {
		var i ComprehensionIssue
		if err := rows.Scan(
			&i.ID, &i.Category, &i.Description, &i.HTMLPattern, &i.ExpectedBehavior,
			&i.ActualBehavior, &i.Severity, &i.FrequencyCount, &i.FirstSeen, &i.LastSeen,
		); err != nil {
			return nil, err
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// IssueCategorySummary aggregates issue frequency for one category.
type IssueCategorySummary struct {
	Category       string
	TotalFrequency int
	// AverageSeverity is the frequency-weighted mean of the numeric severity
	// (low=1, medium=2, high=3).
	AverageSeverity float64
}

// IssueFrequencyByCategory groups issue frequency by category for issues
// seen since the given time.
func (db *DB) IssueFrequencyByCategory(ctx context.Context, since time.Time) ([]IssueCategorySummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT category,
		        SUM(frequency_count),
		        SUM(frequency_count * CASE severity
		            WHEN 'high' THEN 3
		            WHEN 'medium' THEN 2
		            ELSE 1 END)::float / SUM(frequency_count)
		 FROM comprehension_issues
		 WHERE last_seen >= $1
		 GROUP BY category
		 ORDER BY SUM(frequency_count) DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []IssueCategorySummary
	for rows.Next() {
		var s IssueCategorySummary
		if err := rows.Scan(&s.Category, &s.TotalFrequency, &s.AverageSeverity); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// DeleteComprehensionIssue deletes an issue by ID.
func (db *DB) DeleteComprehensionIssue(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM comprehension_issues WHERE id = $1`,
		id,
	)
	return err
}
