package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/database"
)

// testDB returns a connected DB or skips if DATABASE_URL is not set.
// It also ensures migrations are run before tests.
func testDB(t *testing.T) *database.DB {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	err := database.Migrate(dbURL)
	require.NoError(t, err)

	ctx := context.Background()
	db, err := database.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

// testServer creates a test API server without auth middleware.
func testServer(t *testing.T, db *database.DB) *Server {
	t.Helper()
	return NewServer(Config{
		Engine: analytics.NewEngine(db),
		DB:     db,
	})
}

func doJSON(t *testing.T, server http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	server := NewServer(Config{})
	rec := doJSON(t, server, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestCORSPreflights(t *testing.T) {
	server := NewServer(Config{})
	req := httptest.NewRequest("OPTIONS", "/api/sessions", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	server := NewServer(Config{RateLimit: 1, RateBurst: 1})

	first := doJSON(t, server, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, server, "GET", "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestStartSessionValidation(t *testing.T) {
	server := NewServer(Config{})

	rec := doJSON(t, server, "POST", "/api/sessions", map[string]any{"attemptId": "a1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "siteId")
}

func TestDashboardInvalidTimeframe(t *testing.T) {
	db := testDB(t)
	server := testServer(t, db)

	rec := doJSON(t, server, "GET", "/api/dashboard?timeframe=90d", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "unknown timeframe")
}

func TestSessionLifecycle(t *testing.T) {
	db := testDB(t)
	server := testServer(t, db)

	// Start
	rec := doJSON(t, server, "POST", "/api/sessions", map[string]any{
		"attemptId": "attempt-api-test",
		"siteId":    "site-api-test",
		"page": map[string]any{
			"url":            "https://example.com/signup",
			"title":          "Sign up",
			"html":           "<form id='f'><input id='email' type='email'></form>",
			"formSelector":   "#f",
			"screenshotPath": "/artifacts/signup-before.png",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID, _ := decodeBody(t, rec)["sessionId"].(string)
	require.NotEmpty(t, sessionID)

	// Log a field-extraction interaction with server-side ground truth.
	rec = doJSON(t, server, "POST", "/api/sessions/"+sessionID+"/interactions", map[string]any{
		"type":             "field_extraction",
		"prompt":           "identify all fields",
		"response":         `{"fields":[{"selector":"#email","purpose":"email","type":"email"}]}`,
		"promptTemplateId": "extract-v1",
		"confidence":       0.85,
		"processingTimeMs": 1200,
		"parsedResponse": map[string]any{
			"fields": []any{
				map[string]any{
					"selector":   "#email",
					"purpose":    "email",
					"type":       "email",
					"confidence": 0.85,
					"reasoning":  "input element with type=email",
				},
			},
		},
		"pageHtml":     "<form id='f'><input id='email' type='email'></form>",
		"formSelector": "#f",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	interactionID, _ := decodeBody(t, rec)["interactionId"].(string)
	require.NotEmpty(t, interactionID)

	// End
	rec = doJSON(t, server, "POST", "/api/sessions/"+sessionID+"/end", map[string]any{
		"success":                  true,
		"fieldsSuccessfullyFilled": 1,
		"lessonsLearned":           "email field needs a focus event before typing",
		"screenshotAfterPath":      "/artifacts/signup-after.png",
		"validationErrors":         []string{"newsletter checkbox required"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Fetch the closed session
	rec = doJSON(t, server, "GET", "/api/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody(t, rec)["session"].(map[string]any)
	assert.Equal(t, "attempt-api-test", session["AttemptID"])
	assert.NotNil(t, session["EndedAt"])
	assert.Equal(t, "/artifacts/signup-before.png", session["ScreenshotPath"])
	assert.Equal(t, "email field needs a focus event before typing", session["LessonsLearned"])
	assert.Equal(t, "/artifacts/signup-after.png", session["ScreenshotAfterPath"])

	// Dashboard includes the interaction
	rec = doJSON(t, server, "GET", "/api/dashboard?timeframe=1h", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody(t, rec)
	assert.Equal(t, "1h", report["timeframe"])
}

func TestSessionNotFound(t *testing.T) {
	db := testDB(t)
	server := testServer(t, db)

	rec := doJSON(t, server, "POST", "/api/sessions/00000000-0000-0000-0000-000000000001/end", map[string]any{"success": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, "GET", "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInteractionRequiresType(t *testing.T) {
	db := testDB(t)
	server := testServer(t, db)

	rec := doJSON(t, server, "POST", "/api/interactions", map[string]any{"prompt": "p"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "type is required")
}
