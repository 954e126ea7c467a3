package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/fieldscope/pkg/fieldmap"
)

func TestIdentifyIssuesCleanReport(t *testing.T) {
	report := &fieldmap.AccuracyReport{ComprehensionScore: 1.0}
	assert.Empty(t, IdentifyIssues(report))
}

func TestIdentifyIssuesMissingFieldSeverity(t *testing.T) {
	missing := func(n int) []fieldmap.GroundTruthField {
		fields := make([]fieldmap.GroundTruthField, n)
		for i := range fields {
			fields[i] = fieldmap.GroundTruthField{Selector: "#f"}
		}
		return fields
	}

	t.Run("at threshold is medium", func(t *testing.T) {
		report := &fieldmap.AccuracyReport{
			MissingFields:      missing(MissingFieldHighSeverityCount),
			ComprehensionScore: 0.9,
		}
		issues := IdentifyIssues(report)
		require.Len(t, issues, 1)
		assert.Equal(t, CategoryMissingField, issues[0].Category)
		assert.Equal(t, SeverityMedium, issues[0].Severity)
	})

	t.Run("above threshold is high", func(t *testing.T) {
		report := &fieldmap.AccuracyReport{
			MissingFields:      missing(MissingFieldHighSeverityCount + 1),
			ComprehensionScore: 0.9,
		}
		issues := IdentifyIssues(report)
		require.Len(t, issues, 1)
		assert.Equal(t, SeverityHigh, issues[0].Severity)
	})
}

func TestIdentifyIssuesExtraFields(t *testing.T) {
	report := &fieldmap.AccuracyReport{
		ExtraFields:        []fieldmap.FieldClaim{{Selector: "#ghost"}},
		ComprehensionScore: 0.95,
	}
	issues := IdentifyIssues(report)
	require.Len(t, issues, 1)
	assert.Equal(t, CategoryExtraField, issues[0].Category)
	assert.Equal(t, SeverityMedium, issues[0].Severity)
}

func TestIdentifyIssuesLowComprehension(t *testing.T) {
	report := &fieldmap.AccuracyReport{ComprehensionScore: 0.5}
	issues := IdentifyIssues(report)
	require.Len(t, issues, 1)
	assert.Equal(t, CategoryLowComprehension, issues[0].Category)
	assert.Equal(t, SeverityHigh, issues[0].Severity)

	// The threshold itself does not trip the rule.
	report.ComprehensionScore = LowComprehensionThreshold
	assert.Empty(t, IdentifyIssues(report))
}

func TestIdentifyIssuesAllRulesFire(t *testing.T) {
	report := &fieldmap.AccuracyReport{
		MissingFields:      []fieldmap.GroundTruthField{{Selector: "#a"}, {Selector: "#b"}, {Selector: "#c"}},
		ExtraFields:        []fieldmap.FieldClaim{{Selector: "#x"}},
		ComprehensionScore: 0.1,
	}
	issues := IdentifyIssues(report)
	require.Len(t, issues, 3)
	assert.Equal(t, CategoryMissingField, issues[0].Category)
	assert.Equal(t, CategoryExtraField, issues[1].Category)
	assert.Equal(t, CategoryLowComprehension, issues[2].Category)
}
