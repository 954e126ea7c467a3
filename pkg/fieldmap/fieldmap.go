// Package fieldmap defines the field structures exchanged between the form
// automation orchestrator and the analytics engine, and the scoring rubric
// applied when reconciling a model's claimed fields against ground truth.
package fieldmap

// Purpose value reported when the model could not classify a field.
const PurposeUnknown = "unknown"

// FieldClaim is one form field as identified by the language model.
type FieldClaim struct {
	Selector   string  `json:"selector"`
	Purpose    string  `json:"purpose"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	IsHoneypot bool    `json:"is_honeypot,omitempty"`
}

// GroundTruthField is one actual fillable field on the page, determined
// independently of the model's claims.
type GroundTruthField struct {
	Selector           string            `json:"selector"`
	Purpose            string            `json:"purpose"`
	Type               string            `json:"type"`
	WasHoneypot        bool              `json:"was_honeypot,omitempty"`
	RawHTML            string            `json:"raw_html,omitempty"`
	Attributes         map[string]string `json:"attributes,omitempty"`
	SurroundingContext string            `json:"surrounding_context,omitempty"`
}

// FieldMismatch records a selector present in both maps whose purpose or
// type disagrees.
type FieldMismatch struct {
	Selector          string `json:"selector"`
	ExpectedPurpose   string `json:"expected_purpose"`
	IdentifiedPurpose string `json:"identified_purpose"`
	ExpectedType      string `json:"expected_type"`
	IdentifiedType    string `json:"identified_type"`
}

// AccuracyReport is the scored diff between the model's field list and the
// ground truth. It is stored as a structured record on the triggering
// interaction, not as a standalone entity.
type AccuracyReport struct {
	MissingFields      []GroundTruthField `json:"missing_fields"`
	ExtraFields        []FieldClaim       `json:"extra_fields"`
	IncorrectFields    []FieldMismatch    `json:"incorrect_fields"`
	HoneypotAccuracy   float64            `json:"honeypot_accuracy"`
	SelectorValidity   float64            `json:"selector_validity"`
	FieldTypeAccuracy  float64            `json:"field_type_accuracy"`
	ComprehensionScore float64            `json:"comprehension_score"`
	CoherenceScore     float64            `json:"coherence_score"`
	ActionabilityScore float64            `json:"actionability_score"`
	Errors             []string           `json:"errors,omitempty"`
	Improvements       []string           `json:"improvements,omitempty"`
}

// ParseClaims extracts field claims from a parsed model response. The
// orchestrator forwards the model output as generic JSON; tolerate missing
// or mistyped entries rather than failing the enrichment path.
func ParseClaims(parsed map[string]any) []FieldClaim {
	raw, ok := parsed["fields"].([]any)
	if !ok {
		return nil
	}

	var claims []FieldClaim
	for _, f := range raw {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		claims = append(claims, FieldClaim{
			Selector:   stringVal(m, "selector"),
			Purpose:    stringVal(m, "purpose"),
			Type:       stringVal(m, "type"),
			Confidence: floatVal(m, "confidence"),
			Reasoning:  stringVal(m, "reasoning"),
			IsHoneypot: boolVal(m, "isHoneypot") || boolVal(m, "is_honeypot"),
		})
	}
	return claims
}

// ParseHoneypots extracts the selectors the model flagged as honeypots.
func ParseHoneypots(parsed map[string]any) []string {
	raw, ok := parsed["honeypots"].([]any)
	if !ok {
		return nil
	}

	var selectors []string
	for _, h := range raw {
		switch v := h.(type) {
		case string:
			selectors = append(selectors, v)
		case map[string]any:
			if s := stringVal(v, "selector"); s != "" {
				selectors = append(selectors, s)
			}
		}
	}
	return selectors
}

// ParseGroundTruth extracts ground-truth fields from orchestrator-supplied
// generic JSON (the actualFields payload).
func ParseGroundTruth(raw []any) []GroundTruthField {
	var fields []GroundTruthField
	for _, f := range raw {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		gt := GroundTruthField{
			Selector:           stringVal(m, "selector"),
			Purpose:            stringVal(m, "purpose"),
			Type:               stringVal(m, "type"),
			WasHoneypot:        boolVal(m, "wasHoneypot") || boolVal(m, "was_honeypot"),
			RawHTML:            stringVal(m, "rawHtml"),
			SurroundingContext: stringVal(m, "surroundingContext"),
		}
		if attrs, ok := m["attributes"].(map[string]any); ok {
			gt.Attributes = make(map[string]string, len(attrs))
			for k, v := range attrs {
				if s, ok := v.(string); ok {
					gt.Attributes[k] = s
				}
			}
		}
		fields = append(fields, gt)
	}
	return fields
}

// stringVal extracts a string from a generic map, returning "" if absent.
func stringVal(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// floatVal extracts a number from a generic map, returning 0 if absent.
func floatVal(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// boolVal extracts a bool from a generic map, returning false if absent.
func boolVal(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}
