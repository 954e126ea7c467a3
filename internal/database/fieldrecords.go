package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FieldRecord represents one model-claimed field graded against ground truth.
type FieldRecord struct {
	ID                       uuid.UUID
	SessionID                *uuid.UUID
	InteractionID            *uuid.UUID
	Selector                 string
	RawHTML                  string
	Attributes               map[string]string
	SurroundingContext       string
	LLMPurpose               string
	LLMConfidence            float64
	ActualPurpose            string
	WasHoneypot              bool
	LLMDetectedHoneypot      bool
	HoneypotDetectionCorrect bool
	Reasoning                string
	AccuracyScore            float64
	CreatedAt                time.Time
}

// CreateFieldRecordParams contains parameters for creating a field record.
type CreateFieldRecordParams struct {
	SessionID                *uuid.UUID
	InteractionID            *uuid.UUID
	Selector                 string
	RawHTML                  string
	Attributes               map[string]string
	SurroundingContext       string
	LLMPurpose               string
	LLMConfidence            float64
	ActualPurpose            string
	WasHoneypot              bool
	LLMDetectedHoneypot      bool
	HoneypotDetectionCorrect bool
	Reasoning                string
	AccuracyScore            float64
}

// fieldRecordColumns is the standard column list for field-record queries.
const fieldRecordColumns = `id, session_id, interaction_id, selector, raw_html, attributes,
	surrounding_context, llm_purpose, llm_confidence, actual_purpose, was_honeypot,
	llm_detected_honeypot, honeypot_detection_correct, reasoning, accuracy_score, created_at`

// scanFieldRecord scans a row into a FieldRecord.
func scanFieldRecord(row pgx.Row) (*FieldRecord, error) {
	var fr FieldRecord
	var attrsJSON []byte
	err := row.Scan(
		&fr.ID, &fr.SessionID, &fr.InteractionID, &fr.Selector, &fr.RawHTML, &attrsJSON,
		&fr.SurroundingContext, &fr.LLMPurpose, &fr.LLMConfidence, &fr.ActualPurpose, &fr.WasHoneypot,
		&fr.LLMDetectedHoneypot, &fr.HoneypotDetectionCorrect, &fr.Reasoning, &fr.AccuracyScore, &fr.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if attrsJSON != nil {
		if err := json.Unmarshal(attrsJSON, &fr.Attributes); err != nil {
			return nil, err
		}
	}
	return &fr, nil
}

// CreateFieldRecord stores one graded field identification.
func (db *DB) CreateFieldRecord(ctx context.Context, params CreateFieldRecordParams) (*FieldRecord, error) {
	var attrsJSON []byte
	var err error
	if params.Attributes != nil {
		attrsJSON, err = json.Marshal(params.Attributes)
		if err != nil {
			return nil, err
		}
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO field_accuracy_records (session_id, interaction_id, selector, raw_html, attributes,
		     surrounding_context, llm_purpose, llm_confidence, actual_purpose, was_honeypot,
		     llm_detected_honeypot, honeypot_detection_correct, reasoning, accuracy_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+fieldRecordColumns,
		params.SessionID, params.InteractionID, params.Selector, params.RawHTML, attrsJSON,
		params.SurroundingContext, params.LLMPurpose, params.LLMConfidence, params.ActualPurpose,
		params.WasHoneypot, params.LLMDetectedHoneypot, params.HoneypotDetectionCorrect,
		params.Reasoning, params.AccuracyScore,
	)
	return scanFieldRecord(row)
}

// ListSessionFieldRecords returns all field records for a session, oldest first.
func (db *DB) ListSessionFieldRecords(ctx context.Context, sessionID uuid.UUID) ([]FieldRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+fieldRecordColumns+` FROM field_accuracy_records
		 WHERE session_id = $1
		 ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FieldRecord
	for rows.Next() {
		var fr FieldRecord
		var attrsJSON []byte
		if err := rows.Scan(
			&fr.ID, &fr.SessionID, &fr.InteractionID, &fr.Selector, &fr.RawHTML, &attrsJSON,
			&fr.SurroundingContext, &fr.LLMPurpose, &fr.LLMConfidence, &fr.ActualPurpose, &fr.WasHoneypot,
			&fr.LLMDetectedHoneypot, &fr.HoneypotDetectionCorrect, &fr.Reasoning, &fr.AccuracyScore, &fr.CreatedAt,
		); err != nil {
			return nil, err
		}
		if attrsJSON != nil {
			if err := json.Unmarshal(attrsJSON, &fr.Attributes); err != nil {
				return nil, err
			}
		}
		records = append(records, fr)
	}
	return records, rows.Err()
}

// AccuracyTrendPoint is one day of aggregated field-identification accuracy.
type AccuracyTrendPoint struct {
	Day                 time.Time
	Records             int
	AverageScore        float64
	HoneypotCorrectRate float64
}

// FieldAccuracyTrend returns the daily average accuracy and honeypot
// detection correctness rate since the given time, oldest day first.
func (db *DB) FieldAccuracyTrend(ctx context.Context, since time.Time) ([]AccuracyTrendPoint, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT date_trunc('day', created_at) AS day,
		        COUNT(*),
		        AVG(accuracy_score),
		        AVG(CASE WHEN honeypot_detection_correct THEN 1.0 ELSE 0.0 END)
		 FROM field_accuracy_records
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day ASC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []AccuracyTrendPoint
	for rows.Next() {
		var p AccuracyTrendPoint
		if err := rows.Scan(&p.Day, &p.Records, &p.AverageScore, &p.HoneypotCorrectRate); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
