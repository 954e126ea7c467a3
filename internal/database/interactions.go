package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kamilpajak/fieldscope/pkg/fieldmap"
)

// Interaction represents a stored model call. Immutable once written,
// except for the accuracy report attached by the enrichment path.
type Interaction struct {
	ID               uuid.UUID
	SessionID        *uuid.UUID
	Type             string
	PromptText       string
	ResponseText     string
	Model            string
	TokensUsed       int
	CostUSD          float64
	ProcessingTimeMs int64
	ConfidenceScore  float64
	PromptTemplateID *string
	Success          bool
	AccuracyReport   *fieldmap.AccuracyReport
	CreatedAt        time.Time
}

// CreateInteractionParams contains parameters for creating an interaction.
type CreateInteractionParams struct {
	SessionID        *uuid.UUID
	Type             string
	PromptText       string
	ResponseText     string
	Model            string
	TokensUsed       int
	CostUSD          float64
	ProcessingTimeMs int64
	ConfidenceScore  float64
	PromptTemplateID *string
	Success          bool
}

// interactionColumns is the standard column list for interaction queries.
const interactionColumns = `id, session_id, type, prompt_text, response_text, model,
	tokens_used, cost_usd, processing_time_ms, confidence_score, prompt_template_id,
	success, accuracy_report, created_at`

// scanInteraction scans a row into an Interaction and unmarshals the report JSON.
func scanInteraction(row pgx.Row) (*Interaction, error) {
	var in Interaction
	var reportJSON []byte
	err := row.Scan(
		&in.ID, &in.SessionID, &in.Type, &in.PromptText, &in.ResponseText, &in.Model,
		&in.TokensUsed, &in.CostUSD, &in.ProcessingTimeMs, &in.ConfidenceScore,
		&in.PromptTemplateID, &in.Success, &reportJSON, &in.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalReport(reportJSON, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// unmarshalReport unmarshals accuracy-report JSON into an Interaction if present.
func unmarshalReport(reportJSON []byte, in *Interaction) error {
	if reportJSON != nil {
		in.AccuracyReport = &fieldmap.AccuracyReport{}
		return json.Unmarshal(reportJSON, in.AccuracyReport)
	}
	return nil
}

// CreateInteraction stores a new model-call record.
func (db *DB) CreateInteraction(ctx context.Context, params CreateInteractionParams) (*Interaction, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO ai_interactions (session_id, type, prompt_text, response_text, model,
		     tokens_used, cost_usd, processing_time_ms, confidence_score, prompt_template_id, success)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+interactionColumns,
		params.SessionID, params.Type, params.PromptText, params.ResponseText, params.Model,
		params.TokensUsed, params.CostUSD, params.ProcessingTimeMs, params.ConfidenceScore,
		params.PromptTemplateID, params.Success,
	)
	return scanInteraction(row)
}

// GetInteractionByID retrieves an interaction by ID.
func (db *DB) GetInteractionByID(ctx context.Context, id uuid.UUID) (*Interaction, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+interactionColumns+` FROM ai_interactions WHERE id = $1`,
		id,
	)
	return scanInteraction(row)
}

// UpdateInteractionReport attaches the scored accuracy diff to an interaction.
func (db *DB) UpdateInteractionReport(ctx context.Context, id uuid.UUID, report *fieldmap.AccuracyReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE ai_interactions SET accuracy_report = $2 WHERE id = $1`,
		id, reportJSON,
	)
	return err
}

// ListRecentInteractions returns interactions created since the given time,
// newest first.
func (db *DB) ListRecentInteractions(ctx context.Context, since time.Time, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+interactionColumns+` FROM ai_interactions
		 WHERE created_at >= $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []Interaction
	for rows.Next() {
		var in Interaction
		var reportJSON []byte
		if err := rows.Scan(
			&in.ID, &in.SessionID, &in.Type, &in.PromptText, &in.ResponseText, &in.Model,
			&in.TokensUsed, &in.CostUSD, &in.ProcessingTimeMs, &in.ConfidenceScore,
			&in.PromptTemplateID, &in.Success, &reportJSON, &in.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalReport(reportJSON, &in); err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	return interactions, rows.Err()
}

// CountInteractionsSince returns the number of interactions logged since a
// given time.
func (db *DB) CountInteractionsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ai_interactions WHERE created_at >= $1`,
		since,
	).Scan(&count)
	return count, err
}

// DeleteOldInteractions deletes interactions older than the specified time.
func (db *DB) DeleteOldInteractions(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM ai_interactions WHERE created_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
