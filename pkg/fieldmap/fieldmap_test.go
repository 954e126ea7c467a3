package fieldmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaims(t *testing.T) {
	var parsed map[string]any
	raw := `{
		"fields": [
			{"selector": "#email", "purpose": "email", "type": "email", "confidence": 0.92, "reasoning": "type attribute is email"},
			{"selector": "#hp", "purpose": "honeypot", "type": "text", "isHoneypot": true},
			"not a field object"
		],
		"honeypots": ["#hp"]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))

	claims := ParseClaims(parsed)
	require.Len(t, claims, 2)
	assert.Equal(t, "#email", claims[0].Selector)
	assert.Equal(t, 0.92, claims[0].Confidence)
	assert.True(t, claims[1].IsHoneypot)

	honeypots := ParseHoneypots(parsed)
	assert.Equal(t, []string{"#hp"}, honeypots)
}

func TestParseClaims_NoFields(t *testing.T) {
	assert.Nil(t, ParseClaims(map[string]any{}))
	assert.Nil(t, ParseClaims(map[string]any{"fields": "oops"}))
	assert.Nil(t, ParseHoneypots(map[string]any{"honeypots": 42}))
}

func TestParseGroundTruth(t *testing.T) {
	var payload struct {
		ActualFields []any `json:"actualFields"`
	}
	raw := `{"actualFields": [
		{"selector": "#name", "purpose": "name", "type": "text",
		 "attributes": {"autocomplete": "name", "maxlength": "80"},
		 "surroundingContext": "Your full name"},
		{"selector": "#website", "purpose": "honeypot", "type": "text", "wasHoneypot": true}
	]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	fields := ParseGroundTruth(payload.ActualFields)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Attributes["autocomplete"])
	assert.Equal(t, "Your full name", fields[0].SurroundingContext)
	assert.True(t, fields[1].WasHoneypot)
}

func TestParseHoneypots_ObjectForm(t *testing.T) {
	parsed := map[string]any{
		"honeypots": []any{
			map[string]any{"selector": "#trap", "reason": "display:none"},
			"#other",
		},
	}
	assert.Equal(t, []string{"#trap", "#other"}, ParseHoneypots(parsed))
}
