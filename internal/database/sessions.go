package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Session represents a stored form-analysis session: one page-visit attempt.
type Session struct {
	ID                       uuid.UUID
	AttemptID                string
	SiteID                   string
	PageURL                  string
	PageTitle                string
	RawContentHash           string
	ScreenshotPath           string
	StartedAt                time.Time
	EndedAt                  *time.Time
	TotalFieldsDetected      int
	FieldsSuccessfullyFilled int
	HoneypotsDetected        int
	HoneypotsAvoided         int
	Success                  *bool
	FailureReason            *string
	InteractionLog           []InteractionSummary
	FinalAssessment          *string
	LessonsLearned           *string
	ScreenshotAfterPath      *string
	ValidationErrors         []string
}

// InteractionSummary is the lightweight audit-trail entry appended to a
// session for every interaction logged while it was open.
type InteractionSummary struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// CreateSessionParams contains parameters for creating a session.
type CreateSessionParams struct {
	AttemptID      string
	SiteID         string
	PageURL        string
	PageTitle      string
	RawContentHash string
	ScreenshotPath string
}

// CloseSessionParams contains the final values persisted when a session ends.
type CloseSessionParams struct {
	EndedAt                  time.Time
	TotalFieldsDetected      int
	FieldsSuccessfullyFilled int
	HoneypotsDetected        int
	HoneypotsAvoided         int
	Success                  bool
	FailureReason            *string
	InteractionLog           []InteractionSummary
	FinalAssessment          *string
	LessonsLearned           *string
	ScreenshotAfterPath      *string
	ValidationErrors         []string
}

// sessionColumns is the standard column list for session queries.
const sessionColumns = `id, attempt_id, site_id, page_url, page_title, raw_content_hash,
	screenshot_path, started_at, ended_at, total_fields_detected, fields_successfully_filled,
	honeypots_detected, honeypots_avoided, success, failure_reason, interaction_log,
	final_assessment, lessons_learned, screenshot_after_path, validation_errors`

// scanSession scans a row into a Session and unmarshals the jsonb columns.
func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var logJSON, errsJSON []byte
	err := row.Scan(
		&s.ID, &s.AttemptID, &s.SiteID, &s.PageURL, &s.PageTitle, &s.RawContentHash,
		&s.ScreenshotPath, &s.StartedAt, &s.EndedAt, &s.TotalFieldsDetected, &s.FieldsSuccessfullyFilled,
		&s.HoneypotsDetected, &s.HoneypotsAvoided, &s.Success, &s.FailureReason, &logJSON,
		&s.FinalAssessment, &s.LessonsLearned, &s.ScreenshotAfterPath, &errsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if logJSON != nil {
		if err := json.Unmarshal(logJSON, &s.InteractionLog); err != nil {
			return nil, err
		}
	}
	if errsJSON != nil {
		if err := json.Unmarshal(errsJSON, &s.ValidationErrors); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// CreateSession stores a new open session with zeroed counters.
func (db *DB) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO form_analysis_sessions (attempt_id, site_id, page_url, page_title, raw_content_hash, screenshot_path)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+sessionColumns,
		params.AttemptID, params.SiteID, params.PageURL, params.PageTitle, params.RawContentHash, params.ScreenshotPath,
	)
	return scanSession(row)
}

// GetSessionByID retrieves a session by ID.
func (db *DB) GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM form_analysis_sessions WHERE id = $1`,
		id,
	)
	return scanSession(row)
}

// CloseSession persists the final counters and marks the session ended.
func (db *DB) CloseSession(ctx context.Context, id uuid.UUID, params CloseSessionParams) error {
	logJSON, err := json.Marshal(params.InteractionLog)
	if err != nil {
		return err
	}
	var errsJSON []byte
	if params.ValidationErrors != nil {
		if errsJSON, err = json.Marshal(params.ValidationErrors); err != nil {
			return err
		}
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE form_analysis_sessions
		 SET ended_at = $2, total_fields_detected = $3, fields_successfully_filled = $4,
		     honeypots_detected = $5, honeypots_avoided = $6, success = $7,
		     failure_reason = $8, interaction_log = $9, final_assessment = $10,
		     lessons_learned = $11, screenshot_after_path = $12, validation_errors = $13
		 WHERE id = $1`,
		id, params.EndedAt, params.TotalFieldsDetected, params.FieldsSuccessfullyFilled,
		params.HoneypotsDetected, params.HoneypotsAvoided, params.Success,
		params.FailureReason, logJSON, params.FinalAssessment,
		params.LessonsLearned, params.ScreenshotAfterPath, errsJSON,
	)
	return err
}

// ListRecentSessions returns sessions started since the given time, newest first.
func (db *DB) ListRecentSessions(ctx context.Context, since time.Time, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM form_analysis_sessions
		 WHERE started_at >= $1
		 ORDER BY started_at DESC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// DeleteSession deletes a session by ID. Field records cascade; interactions
// keep their rows with session_id nulled.
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM form_analysis_sessions WHERE id = $1`,
		id,
	)
	return err
}
