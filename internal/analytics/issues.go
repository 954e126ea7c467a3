package analytics

import (
	"fmt"

	"github.com/kamilpajak/fieldscope/pkg/fieldmap"
)

// Issue categories.
const (
	CategoryMissingField     = "missing_field"
	CategoryExtraField       = "extra_field"
	CategoryLowComprehension = "low_comprehension"
)

// Issue severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Classification thresholds. Kept as named constants so they are
// independently testable and tunable.
const (
	// MissingFieldHighSeverityCount is the missing-field count above which
	// a missing_field issue is graded high instead of medium.
	MissingFieldHighSeverityCount = 2

	// LowComprehensionThreshold is the comprehension score below which a
	// low_comprehension issue is raised.
	LowComprehensionThreshold = 0.7
)

// Issue is a classified comprehension failure derived from one accuracy
// report, before deduplication against the store.
type Issue struct {
	Category         string
	Description      string
	ExpectedBehavior string
	ActualBehavior   string
	Severity         string
}

// IdentifyIssues evaluates the fixed classification rules in order and
// returns zero or more issues for the report.
func IdentifyIssues(report *fieldmap.AccuracyReport) []Issue {
	var issues []Issue

	if n := len(report.MissingFields); n > 0 {
		severity := SeverityMedium
		if n > MissingFieldHighSeverityCount {
			severity = SeverityHigh
		}
		issues = append(issues, Issue{
			Category:         CategoryMissingField,
			Description:      fmt.Sprintf("model failed to identify %d form field(s)", n),
			ExpectedBehavior: "identify every fillable field present on the page",
			ActualBehavior:   fmt.Sprintf("%d ground-truth field(s) absent from the model output", n),
			Severity:         severity,
		})
	}

	if n := len(report.ExtraFields); n > 0 {
		issues = append(issues, Issue{
			Category:         CategoryExtraField,
			Description:      fmt.Sprintf("model identified %d field(s) that do not exist", n),
			ExpectedBehavior: "only report selectors that exist on the page",
			ActualBehavior:   fmt.Sprintf("%d claimed selector(s) not found in ground truth", n),
			Severity:         SeverityMedium,
		})
	}

	if report.ComprehensionScore < LowComprehensionThreshold {
		issues = append(issues, Issue{
			Category:         CategoryLowComprehension,
			Description:      fmt.Sprintf("comprehension score %.2f below threshold %.2f", report.ComprehensionScore, LowComprehensionThreshold),
			ExpectedBehavior: fmt.Sprintf("comprehension score of at least %.2f", LowComprehensionThreshold),
			ActualBehavior:   fmt.Sprintf("scored %.2f", report.ComprehensionScore),
			Severity:         SeverityHigh,
		})
	}

	return issues
}
