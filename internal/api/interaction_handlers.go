package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/formparse"
	"github.com/kamilpajak/fieldscope/pkg/fieldmap"
)

// interactionRequest is the body of interaction-logging endpoints.
type interactionRequest struct {
	Type             string         `json:"type"`
	Prompt           string         `json:"prompt"`
	Response         string         `json:"response"`
	Model            string         `json:"model"`
	TokensUsed       int            `json:"tokensUsed"`
	CostUSD          float64        `json:"costUsd"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	Confidence       float64        `json:"confidence"`
	PromptTemplateID string         `json:"promptTemplateId"`
	Success          *bool          `json:"success"`
	ParsedResponse   map[string]any `json:"parsedResponse"`

	// Ground truth: either pre-extracted fields, or raw markup for
	// server-side extraction.
	ActualFields []fieldmap.GroundTruthField `json:"actualFields"`
	PageHTML     string                      `json:"pageHtml"`
	FormSelector string                      `json:"formSelector"`
	HTMLPattern  string                      `json:"htmlPattern"`
}

// handleLogSessionInteraction records an interaction against a session.
func (s *Server) handleLogSessionInteraction(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	s.logInteraction(w, r, sessionID)
}

// handleLogInteraction records an interaction outside any session.
func (s *Server) handleLogInteraction(w http.ResponseWriter, r *http.Request) {
	s.logInteraction(w, r, uuid.Nil)
}

func (s *Server) logInteraction(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	var req interactionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	actualFields := req.ActualFields
	if len(actualFields) == 0 && req.PageHTML != "" {
		fields, err := formparse.ExtractFields(req.PageHTML, req.FormSelector)
		if err != nil {
			writeError(w, http.StatusBadRequest, "ground-truth extraction failed: "+err.Error())
			return
		}
		actualFields = fields
	}

	interactionID, err := s.engine.LogInteraction(r.Context(), sessionID, analytics.InteractionData{
		Type:             req.Type,
		Prompt:           req.Prompt,
		Response:         req.Response,
		Model:            req.Model,
		TokensUsed:       req.TokensUsed,
		CostUSD:          req.CostUSD,
		ProcessingTimeMs: req.ProcessingTimeMs,
		Confidence:       req.Confidence,
		PromptTemplateID: req.PromptTemplateID,
		Success:          req.Success,
		ParsedResponse:   req.ParsedResponse,
		ActualFields:     actualFields,
		HTMLPattern:      req.HTMLPattern,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log interaction")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"interactionId": interactionID.String()})
}
