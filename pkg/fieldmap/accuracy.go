package fieldmap

import (
	"fmt"
	"strings"
)

// Coherence penalties. The score starts at 1.0 and is reduced for each
// structural defect found in the model's field list.
const (
	penaltyMissingSelector    = 0.3
	penaltyMissingPurpose     = 0.3
	penaltyDuplicateSelectors = 0.2
)

// Actionability weights. A field's usefulness for downstream automation is
// the sum of the weights it earns; the report score is the mean over fields.
const (
	weightSelector   = 0.3
	weightPurpose    = 0.3
	weightConfidence = 0.2
	weightReasoning  = 0.2

	confidenceFloor    = 0.5
	minReasoningLength = 10
)

// Per-field accuracy weights used by FieldScore.
const (
	fieldWeightPurpose  = 0.5
	fieldWeightType     = 0.3
	fieldWeightHoneypot = 0.2
)

// lowComprehensionCutoff triggers the prompt-simplification improvement.
const lowComprehensionCutoff = 0.7

// CalculateAccuracy reconciles the model's claimed fields against ground
// truth and produces the scored diff. Both inputs are keyed by selector;
// modelHoneypots lists the selectors the model flagged as honeypots.
func CalculateAccuracy(claims []FieldClaim, truth []GroundTruthField, modelHoneypots []string) *AccuracyReport {
	report := &AccuracyReport{}

	claimBySelector := make(map[string]FieldClaim, len(claims))
	for _, c := range claims {
		if c.Selector != "" {
			claimBySelector[c.Selector] = c
		}
	}
	truthBySelector := make(map[string]GroundTruthField, len(truth))
	for _, g := range truth {
		truthBySelector[g.Selector] = g
	}

	// Ground-truth fields the model never mentioned.
	for _, g := range truth {
		if _, ok := claimBySelector[g.Selector]; !ok {
			report.MissingFields = append(report.MissingFields, g)
		}
	}

	// Reconcile claims against the page, each selector counted once: a
	// duplicated claim must not score as two correct matches or two extras.
	// Extra claims do not exist on the page; matched claims are compared on
	// purpose and type.
	var correct, typeMatches, matched int
	seen := make(map[string]struct{}, len(claims))
	for _, c := range claims {
		if _, dup := seen[c.Selector]; dup {
			continue
		}
		seen[c.Selector] = struct{}{}
		g, ok := truthBySelector[c.Selector]
		if !ok {
			report.ExtraFields = append(report.ExtraFields, c)
			continue
		}
		matched++
		purposeOK := strings.EqualFold(c.Purpose, g.Purpose)
		typeOK := strings.EqualFold(c.Type, g.Type)
		if typeOK {
			typeMatches++
		}
		if purposeOK && typeOK {
			correct++
			continue
		}
		report.IncorrectFields = append(report.IncorrectFields, FieldMismatch{
			Selector:          c.Selector,
			ExpectedPurpose:   g.Purpose,
			IdentifiedPurpose: c.Purpose,
			ExpectedType:      g.Type,
			IdentifiedType:    c.Type,
		})
	}

	report.ComprehensionScore = comprehensionScore(correct, len(report.ExtraFields), len(truth))
	report.CoherenceScore = coherenceScore(claims)
	report.ActionabilityScore = actionabilityScore(claims)
	report.HoneypotAccuracy = honeypotAccuracy(truth, modelHoneypots)
	report.SelectorValidity = ratio(matched, len(seen))
	report.FieldTypeAccuracy = ratio(typeMatches, matched)

	report.Errors = describeErrors(report)
	report.Improvements = suggestImprovements(report, truth)

	return report
}

// comprehensionScore is the fraction of ground-truth fields correctly
// identified, penalized one-for-one by false positives. Clamped at 0, and
// defined as 0 when there is no ground truth.
func comprehensionScore(correct, extra, truthCount int) float64 {
	if truthCount == 0 {
		return 0
	}
	score := float64(correct-extra) / float64(truthCount)
	if score < 0 {
		return 0
	}
	return score
}

// coherenceScore measures the structural self-consistency of the claim list.
func coherenceScore(claims []FieldClaim) float64 {
	score := 1.0

	var missingSelector, missingPurpose bool
	seen := make(map[string]struct{}, len(claims))
	for _, c := range claims {
		if c.Selector == "" {
			missingSelector = true
		}
		if c.Purpose == "" {
			missingPurpose = true
		}
		seen[c.Selector] = struct{}{}
	}

	if missingSelector {
		score -= penaltyMissingSelector
	}
	if missingPurpose {
		score -= penaltyMissingPurpose
	}
	if len(seen) != len(claims) {
		score -= penaltyDuplicateSelectors
	}

	if score < 0 {
		return 0
	}
	return score
}

// actionabilityScore is the mean per-field completeness score, 0 for an
// empty claim list.
func actionabilityScore(claims []FieldClaim) float64 {
	if len(claims) == 0 {
		return 0
	}

	var total float64
	for _, c := range claims {
		if c.Selector != "" {
			total += weightSelector
		}
		if c.Purpose != "" && !strings.EqualFold(c.Purpose, PurposeUnknown) {
			total += weightPurpose
		}
		if c.Confidence > confidenceFloor {
			total += weightConfidence
		}
		if len(c.Reasoning) > minReasoningLength {
			total += weightReasoning
		}
	}
	return total / float64(len(claims))
}

// honeypotAccuracy is the fraction of ground-truth honeypots the model
// flagged. A page without honeypots scores 1.0 — nothing to miss.
func honeypotAccuracy(truth []GroundTruthField, modelHoneypots []string) float64 {
	flagged := make(map[string]struct{}, len(modelHoneypots))
	for _, s := range modelHoneypots {
		flagged[s] = struct{}{}
	}

	var honeypots, detected int
	for _, g := range truth {
		if !g.WasHoneypot {
			continue
		}
		honeypots++
		if _, ok := flagged[g.Selector]; ok {
			detected++
		}
	}
	if honeypots == 0 {
		return 1.0
	}
	return float64(detected) / float64(honeypots)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// describeErrors renders the diff as human-readable strings.
func describeErrors(r *AccuracyReport) []string {
	var errs []string
	if n := len(r.MissingFields); n > 0 {
		errs = append(errs, fmt.Sprintf("%d ground-truth field(s) not identified by the model", n))
	}
	if n := len(r.ExtraFields); n > 0 {
		errs = append(errs, fmt.Sprintf("%d identified field(s) do not exist on the page", n))
	}
	for _, m := range r.IncorrectFields {
		errs = append(errs, fmt.Sprintf("%s: expected purpose %q/type %q, model said %q/%q",
			m.Selector, m.ExpectedPurpose, m.ExpectedType, m.IdentifiedPurpose, m.IdentifiedType))
	}
	return errs
}

// suggestImprovements applies the fixed prompt-improvement rules.
func suggestImprovements(r *AccuracyReport, truth []GroundTruthField) []string {
	var out []string
	if len(r.MissingFields) > 0 {
		out = append(out,
			"Add detection-pattern examples for commonly missed field types",
			"Emphasize finding ALL form fields, including visually obscured ones",
		)
	}
	if len(r.ExtraFields) > 0 {
		out = append(out, "Add selector-existence validation instructions to the prompt")
	}
	if hasHoneypots(truth) && r.HoneypotAccuracy < 1.0 {
		out = append(out, "Enhance honeypot examples in the prompt")
	}
	if r.ComprehensionScore < lowComprehensionCutoff {
		out = append(out, "Simplify the prompt or add step-by-step instructions")
	}
	return out
}

func hasHoneypots(truth []GroundTruthField) bool {
	for _, g := range truth {
		if g.WasHoneypot {
			return true
		}
	}
	return false
}

// FieldScore grades a single model claim against its ground-truth match.
// truth is nil when no ground-truth field shares the claim's selector; the
// actual purpose then defaults to "unknown" and only a coincidental
// honeypot match can contribute to the score.
func FieldScore(claim FieldClaim, truth *GroundTruthField) (score float64, actualPurpose string, honeypotCorrect bool) {
	var wasHoneypot bool
	actualPurpose = PurposeUnknown
	if truth != nil {
		actualPurpose = truth.Purpose
		wasHoneypot = truth.WasHoneypot
	}

	honeypotCorrect = wasHoneypot == claim.IsHoneypot
	if honeypotCorrect {
		score += fieldWeightHoneypot
	}
	if truth != nil {
		if strings.EqualFold(claim.Purpose, truth.Purpose) {
			score += fieldWeightPurpose
		}
		if strings.EqualFold(claim.Type, truth.Type) {
			score += fieldWeightType
		}
	}
	return score, actualPurpose, honeypotCorrect
}
