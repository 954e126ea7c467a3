// Package analytics implements the field-identification accuracy and
// feedback analytics engine. It reconciles a language model's claimed form
// fields against ground truth, maintains rolling prompt-template
// statistics, and tracks recurring comprehension issues.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/fieldscope/internal/database"
	"github.com/kamilpajak/fieldscope/pkg/fieldmap"
)

// InteractionTypeFieldExtraction triggers the accuracy-analysis enrichment.
const InteractionTypeFieldExtraction = "field_extraction"

// DefaultModel is recorded for interactions that omit the model name.
const DefaultModel = "gemini-2.5-flash"

// rawContentHashLen truncates the page-content hash. The hash exists for
// human inspection and dedup reference only; it is not a uniqueness key.
const rawContentHashLen = 16

// Store defines the persistence operations the engine needs. *database.DB
// satisfies it.
type Store interface {
	CreateSession(ctx context.Context, params database.CreateSessionParams) (*database.Session, error)
	CloseSession(ctx context.Context, id uuid.UUID, params database.CloseSessionParams) error
	CreateInteraction(ctx context.Context, params database.CreateInteractionParams) (*database.Interaction, error)
	UpdateInteractionReport(ctx context.Context, id uuid.UUID, report *fieldmap.AccuracyReport) error
	CreateFieldRecord(ctx context.Context, params database.CreateFieldRecordParams) (*database.FieldRecord, error)
	UpsertComprehensionIssue(ctx context.Context, params database.UpsertIssueParams) (*database.ComprehensionIssue, error)
	GetPromptTemplateStats(ctx context.Context, templateID string) (*database.PromptTemplateStats, error)
	SavePromptTemplateStats(ctx context.Context, stats database.PromptTemplateStats) error
	ListRecentInteractions(ctx context.Context, since time.Time, limit int) ([]database.Interaction, error)
	RankPromptTemplates(ctx context.Context, since time.Time, limit int) ([]database.PromptTemplateStats, error)
	IssueFrequencyByCategory(ctx context.Context, since time.Time) ([]database.IssueCategorySummary, error)
	FieldAccuracyTrend(ctx context.Context, since time.Time) ([]database.AccuracyTrendPoint, error)
}

// InsightGenerator is the extension point invoked when a session ends.
// Implementations are strictly best-effort: a returned error is logged, the
// session still closes.
type InsightGenerator interface {
	GenerateSessionInsight(ctx context.Context, summary SessionSummary) (string, error)
}

// SessionSummary is the material handed to the insight generator.
type SessionSummary struct {
	SessionID                uuid.UUID
	SiteID                   string
	PageURL                  string
	Success                  bool
	DurationMs               int64
	TotalFieldsDetected      int
	FieldsSuccessfullyFilled int
	HoneypotsDetected        int
	HoneypotsAvoided         int
	FailureReason            string
	Interactions             []database.InteractionSummary
}

// PageData describes the page under analysis when a session starts.
type PageData struct {
	URL            string
	Title          string
	HTML           string
	FormSelector   string
	ScreenshotPath string
}

// InteractionData carries one model call from the orchestrator.
type InteractionData struct {
	Type             string
	Prompt           string
	Response         string
	Model            string
	TokensUsed       int
	CostUSD          float64
	ProcessingTimeMs int64
	Confidence       float64
	PromptTemplateID string
	// Success is a tri-state: nil means not reported and defaults to true.
	Success        *bool
	ParsedResponse map[string]any
	ActualFields   []fieldmap.GroundTruthField
	HTMLPattern    string
}

// FinalData carries caller-supplied final metrics for EndSession. Non-nil
// values override the engine's internally accumulated counters.
type FinalData struct {
	TotalFieldsDetected      *int
	FieldsSuccessful         *int
	HoneypotsDetected        *int
	HoneypotsAvoided         *int
	FailureReason            string
	Assessment               string
	LessonsLearned           string
	ScreenshotAfterPath      string
	ValidationErrors         []string
}

// openSession is the engine's in-memory state for a session that has not
// ended yet.
type openSession struct {
	id                       uuid.UUID
	siteID                   string
	pageURL                  string
	formSelector             string
	startedAt                time.Time
	totalFieldsDetected      int
	fieldsSuccessfullyFilled int
	honeypotsDetected        int
	honeypotsAvoided         int
	log                      []database.InteractionSummary
}

// Engine coordinates the analytics pipeline. Open sessions are kept in a
// map keyed by session id, so concurrent sessions on one engine instance
// are independent; callers thread the session id through every call.
type Engine struct {
	store        Store
	insights     InsightGenerator
	defaultModel string
	logf         func(format string, args ...any)

	mu   sync.Mutex
	open map[uuid.UUID]*openSession
}

// Option configures an Engine.
type Option func(*Engine)

// WithInsightGenerator installs the end-of-session insight extension point.
func WithInsightGenerator(g InsightGenerator) Option {
	return func(e *Engine) { e.insights = g }
}

// WithDefaultModel overrides the model name recorded for interactions that
// omit one.
func WithDefaultModel(model string) Option {
	return func(e *Engine) { e.defaultModel = model }
}

// WithLogger overrides the advisory-failure logger (used in tests).
func WithLogger(logf func(format string, args ...any)) Option {
	return func(e *Engine) { e.logf = logf }
}

// NewEngine creates an analytics engine backed by the given store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		defaultModel: DefaultModel,
		logf:         log.Printf,
		open:         make(map[uuid.UUID]*openSession),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession creates and opens a new form-analysis session. A store
// failure is fatal: the caller must not log interactions against a session
// that was never persisted.
func (e *Engine) StartSession(ctx context.Context, attemptID, siteID string, page PageData) (uuid.UUID, error) {
	session, err := e.store.CreateSession(ctx, database.CreateSessionParams{
		AttemptID:      attemptID,
		SiteID:         siteID,
		PageURL:        page.URL,
		PageTitle:      page.Title,
		RawContentHash: contentHash(page.HTML),
		ScreenshotPath: page.ScreenshotPath,
	})
	if err != nil {
		return uuid.Nil, fatal("start session", err)
	}

	e.mu.Lock()
	e.open[session.ID] = &openSession{
		id:           session.ID,
		siteID:       siteID,
		pageURL:      page.URL,
		formSelector: page.FormSelector,
		startedAt:    session.StartedAt,
	}
	e.mu.Unlock()

	return session.ID, nil
}

// LogInteraction persists one model call and runs the enrichment pipeline.
// sessionID may be uuid.Nil for interactions outside any session. The
// primary persistence write is fatal on failure; everything after it is
// advisory and never rolls the write back.
func (e *Engine) LogInteraction(ctx context.Context, sessionID uuid.UUID, data InteractionData) (uuid.UUID, error) {
	model := data.Model
	if model == "" {
		model = e.defaultModel
	}
	success := data.Success == nil || *data.Success

	params := database.CreateInteractionParams{
		Type:             data.Type,
		PromptText:       data.Prompt,
		ResponseText:     data.Response,
		Model:            model,
		TokensUsed:       data.TokensUsed,
		CostUSD:          data.CostUSD,
		ProcessingTimeMs: data.ProcessingTimeMs,
		ConfidenceScore:  data.Confidence,
		Success:          success,
	}
	if sessionID != uuid.Nil {
		params.SessionID = &sessionID
	}
	if data.PromptTemplateID != "" {
		params.PromptTemplateID = &data.PromptTemplateID
	}

	interaction, err := e.store.CreateInteraction(ctx, params)
	if err != nil {
		return uuid.Nil, fatal("log interaction", err)
	}

	session := e.appendToSessionLog(sessionID, interaction)

	if data.Type == InteractionTypeFieldExtraction && session != nil {
		if err := e.analyzeFieldAccuracy(ctx, session, interaction.ID, data); err != nil {
			e.logf("field accuracy analysis skipped: %v", err)
		}
	}

	if data.PromptTemplateID != "" {
		if err := e.updateTemplateStats(ctx, data.PromptTemplateID, success, data.Confidence, data.ProcessingTimeMs); err != nil {
			e.logf("template stats update failed: %v", err)
		}
	}

	return interaction.ID, nil
}

// appendToSessionLog records the audit-trail summary on the open session,
// if any, and returns it.
func (e *Engine) appendToSessionLog(sessionID uuid.UUID, in *database.Interaction) *openSession {
	if sessionID == uuid.Nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.open[sessionID]
	if !ok {
		return nil
	}
	session.log = append(session.log, database.InteractionSummary{
		ID:        in.ID,
		Type:      in.Type,
		Timestamp: in.CreatedAt,
		Success:   in.Success,
	})
	return session
}

// analyzeFieldAccuracy scores the model's field claims against ground
// truth, persists the report and per-field records, and tracks issues.
// Advisory throughout.
func (e *Engine) analyzeFieldAccuracy(ctx context.Context, session *openSession, interactionID uuid.UUID, data InteractionData) error {
	if interactionID == uuid.Nil {
		return advisory("field accuracy", errMissingInteraction)
	}

	claims := fieldmap.ParseClaims(data.ParsedResponse)
	honeypots := fieldmap.ParseHoneypots(data.ParsedResponse)
	truth := data.ActualFields

	report := fieldmap.CalculateAccuracy(claims, truth, honeypots)

	if err := e.store.UpdateInteractionReport(ctx, interactionID, report); err != nil {
		return advisory("store accuracy report", err)
	}

	e.recordFieldAccuracy(ctx, session, interactionID, claims, truth, data.Confidence)
	e.trackIssues(ctx, report, issuePattern(data, session))
	e.accumulateCounters(session, claims, truth, honeypots)

	return nil
}

// recordFieldAccuracy persists one FieldRecord per model claim.
func (e *Engine) recordFieldAccuracy(ctx context.Context, session *openSession, interactionID uuid.UUID, claims []fieldmap.FieldClaim, truth []fieldmap.GroundTruthField, confidence float64) {
	truthBySelector := make(map[string]fieldmap.GroundTruthField, len(truth))
	for _, g := range truth {
		truthBySelector[g.Selector] = g
	}

	for _, claim := range claims {
		var match *fieldmap.GroundTruthField
		var rawHTML, surrounding string
		var attrs map[string]string
		if g, ok := truthBySelector[claim.Selector]; ok {
			g := g
			match = &g
			rawHTML = g.RawHTML
			surrounding = g.SurroundingContext
			attrs = g.Attributes
		}

		score, actualPurpose, honeypotCorrect := fieldmap.FieldScore(claim, match)

		llmConfidence := claim.Confidence
		if llmConfidence == 0 {
			llmConfidence = confidence
		}

		_, err := e.store.CreateFieldRecord(ctx, database.CreateFieldRecordParams{
			SessionID:                &session.id,
			InteractionID:            &interactionID,
			Selector:                 claim.Selector,
			RawHTML:                  rawHTML,
			Attributes:               attrs,
			SurroundingContext:       surrounding,
			LLMPurpose:               claim.Purpose,
			LLMConfidence:            llmConfidence,
			ActualPurpose:            actualPurpose,
			WasHoneypot:              match != nil && match.WasHoneypot,
			LLMDetectedHoneypot:      claim.IsHoneypot,
			HoneypotDetectionCorrect: honeypotCorrect,
			Reasoning:                claim.Reasoning,
			AccuracyScore:            score,
		})
		if err != nil {
			e.logf("field record for %q not stored: %v", claim.Selector, err)
		}
	}
}

// trackIssues classifies the report and upserts each issue by its
// (category, htmlPattern) key.
func (e *Engine) trackIssues(ctx context.Context, report *fieldmap.AccuracyReport, htmlPattern string) {
	for _, issue := range IdentifyIssues(report) {
		_, err := e.store.UpsertComprehensionIssue(ctx, database.UpsertIssueParams{
			Category:         issue.Category,
			Description:      issue.Description,
			HTMLPattern:      htmlPattern,
			ExpectedBehavior: issue.ExpectedBehavior,
			ActualBehavior:   issue.ActualBehavior,
			Severity:         issue.Severity,
		})
		if err != nil {
			e.logf("comprehension issue %q not stored: %v", issue.Category, err)
		}
	}
}

// accumulateCounters folds one extraction's results into the session
// counters. Caller-supplied finals still win at EndSession.
func (e *Engine) accumulateCounters(session *openSession, claims []fieldmap.FieldClaim, truth []fieldmap.GroundTruthField, honeypots []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(truth) > session.totalFieldsDetected {
		session.totalFieldsDetected = len(truth)
	}

	var truthHoneypots int
	for _, g := range truth {
		if g.WasHoneypot {
			truthHoneypots++
		}
	}
	if truthHoneypots > session.honeypotsDetected {
		session.honeypotsDetected = truthHoneypots
	}
	if len(honeypots) > session.honeypotsAvoided {
		session.honeypotsAvoided = len(honeypots)
	}
}

// updateTemplateStats performs the read-modify-upsert of a template's
// rolling aggregates.
func (e *Engine) updateTemplateStats(ctx context.Context, templateID string, success bool, confidence float64, responseTimeMs int64) error {
	stats, err := e.store.GetPromptTemplateStats(ctx, templateID)
	if err != nil {
		return advisory("load template stats", err)
	}
	if stats == nil {
		stats = &database.PromptTemplateStats{ID: templateID}
	}

	applySample(stats, success, confidence, responseTimeMs, time.Now().UTC())

	if err := e.store.SavePromptTemplateStats(ctx, *stats); err != nil {
		return advisory("save template stats", err)
	}
	return nil
}

// EndSession closes an open session, persisting the final metrics. Calling
// it for an unknown or already-closed session is a no-op. Insight
// generation is best-effort and cannot fail the close. The session stays
// open in memory until the close write succeeds, so a failed EndSession
// can be retried.
func (e *Engine) EndSession(ctx context.Context, sessionID uuid.UUID, success bool, final FinalData) error {
	e.mu.Lock()
	session, ok := e.open[sessionID]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	now := time.Now().UTC()

	params := database.CloseSessionParams{
		EndedAt:                  now,
		TotalFieldsDetected:      valueOr(final.TotalFieldsDetected, session.totalFieldsDetected),
		FieldsSuccessfullyFilled: valueOr(final.FieldsSuccessful, session.fieldsSuccessfullyFilled),
		HoneypotsDetected:        valueOr(final.HoneypotsDetected, session.honeypotsDetected),
		HoneypotsAvoided:         valueOr(final.HoneypotsAvoided, session.honeypotsAvoided),
		Success:                  success,
		InteractionLog:           session.log,
		ValidationErrors:         final.ValidationErrors,
	}
	if final.FailureReason != "" {
		params.FailureReason = &final.FailureReason
	}
	if final.LessonsLearned != "" {
		params.LessonsLearned = &final.LessonsLearned
	}
	if final.ScreenshotAfterPath != "" {
		params.ScreenshotAfterPath = &final.ScreenshotAfterPath
	}

	assessment := final.Assessment
	if e.insights != nil {
		insight, err := e.insights.GenerateSessionInsight(ctx, SessionSummary{
			SessionID:                session.id,
			SiteID:                   session.siteID,
			PageURL:                  session.pageURL,
			Success:                  success,
			DurationMs:               now.Sub(session.startedAt).Milliseconds(),
			TotalFieldsDetected:      params.TotalFieldsDetected,
			FieldsSuccessfullyFilled: params.FieldsSuccessfullyFilled,
			HoneypotsDetected:        params.HoneypotsDetected,
			HoneypotsAvoided:         params.HoneypotsAvoided,
			FailureReason:            final.FailureReason,
			Interactions:             session.log,
		})
		if err != nil {
			e.logf("insight generation failed for session %s: %v", session.id, err)
		} else if assessment == "" {
			assessment = insight
		}
	}
	if assessment != "" {
		params.FinalAssessment = &assessment
	}

	if err := e.store.CloseSession(ctx, sessionID, params); err != nil {
		return fatal("end session", err)
	}

	e.mu.Lock()
	delete(e.open, sessionID)
	e.mu.Unlock()
	return nil
}

// OpenSessions returns the ids of sessions that have not ended yet.
func (e *Engine) OpenSessions() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(e.open))
	for id := range e.open {
		ids = append(ids, id)
	}
	return ids
}

// issuePattern picks the HTML pattern used as the issue deduplication key:
// the caller-supplied pattern, falling back to the session's form selector.
func issuePattern(data InteractionData, session *openSession) string {
	if data.HTMLPattern != "" {
		return data.HTMLPattern
	}
	if session.formSelector != "" {
		return session.formSelector
	}
	return "unknown"
}

// contentHash returns a truncated sha256 hex digest of the page markup.
func contentHash(html string) string {
	if html == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])[:rawContentHashLen]
}

func valueOr(override *int, fallback int) int {
	if override != nil {
		return *override
	}
	return fallback
}
