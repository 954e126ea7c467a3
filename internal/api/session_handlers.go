package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kamilpajak/fieldscope/internal/analytics"
)

// startSessionRequest is the body of POST /api/sessions.
type startSessionRequest struct {
	AttemptID string `json:"attemptId"`
	SiteID    string `json:"siteId"`
	Page      struct {
		URL            string `json:"url"`
		Title          string `json:"title"`
		HTML           string `json:"html"`
		FormSelector   string `json:"formSelector"`
		ScreenshotPath string `json:"screenshotPath"`
	} `json:"page"`
}

// handleStartSession opens a new form-analysis session.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AttemptID == "" || req.SiteID == "" {
		writeError(w, http.StatusBadRequest, "attemptId and siteId are required")
		return
	}

	sessionID, err := s.engine.StartSession(r.Context(), req.AttemptID, req.SiteID, analytics.PageData{
		URL:            req.Page.URL,
		Title:          req.Page.Title,
		HTML:           req.Page.HTML,
		FormSelector:   req.Page.FormSelector,
		ScreenshotPath: req.Page.ScreenshotPath,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID.String()})
}

// handleGetSession returns a single session by id.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	session, err := s.db.GetSessionByID(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

// endSessionRequest is the body of POST /api/sessions/{sessionID}/end.
type endSessionRequest struct {
	Success                  bool     `json:"success"`
	FailureReason            string   `json:"failureReason"`
	Assessment               string   `json:"assessment"`
	LessonsLearned           string   `json:"lessonsLearned"`
	ScreenshotAfterPath      string   `json:"screenshotAfterPath"`
	ValidationErrors         []string `json:"validationErrors"`
	TotalFieldsDetected      *int     `json:"totalFieldsDetected"`
	FieldsSuccessfullyFilled *int     `json:"fieldsSuccessfullyFilled"`
	HoneypotsDetected        *int     `json:"honeypotsDetected"`
	HoneypotsAvoided         *int     `json:"honeypotsAvoided"`
}

// handleEndSession finalizes a session.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req endSessionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.engine.EndSession(r.Context(), sessionID, req.Success, analytics.FinalData{
		TotalFieldsDetected: req.TotalFieldsDetected,
		FieldsSuccessful:    req.FieldsSuccessfullyFilled,
		HoneypotsDetected:   req.HoneypotsDetected,
		HoneypotsAvoided:    req.HoneypotsAvoided,
		FailureReason:       req.FailureReason,
		Assessment:          req.Assessment,
		LessonsLearned:      req.LessonsLearned,
		ScreenshotAfterPath: req.ScreenshotAfterPath,
		ValidationErrors:    req.ValidationErrors,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// requireSession parses the sessionID path parameter and verifies the
// session exists.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := parseSessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return uuid.Nil, false
	}

	session, err := s.db.GetSessionByID(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return uuid.Nil, false
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return uuid.Nil, false
	}

	return sessionID, true
}

// parseSessionID parses the session ID from the path parameter.
func parseSessionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("sessionID"))
}
