package dashboard

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/database"
)

func sampleReport() *analytics.DashboardReport {
	return &analytics.DashboardReport{
		Timeframe:   "24h",
		GeneratedAt: time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC),
		TopTemplates: []database.PromptTemplateStats{
			{ID: "extract-v2", TotalUses: 40, SuccessRate: 0.9, AverageConfidenceScore: 0.82, AverageResponseTimeMs: 1100},
			{ID: "extract-v1", TotalUses: 12, SuccessRate: 0.5, AverageConfidenceScore: 0.61, AverageResponseTimeMs: 1900},
		},
		IssuesByCategory: []database.IssueCategorySummary{
			{Category: "missing_field", TotalFrequency: 17, AverageSeverity: 2.8},
			{Category: "extra_field", TotalFrequency: 3, AverageSeverity: 2.0},
		},
		AccuracyTrend: []database.AccuracyTrendPoint{
			{Day: time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), Records: 120, AverageScore: 0.76, HoneypotCorrectRate: 0.95},
		},
		RecentInteractions: []database.Interaction{
			{Type: "field_extraction", Model: "gemini-2.5-flash", TokensUsed: 900, CostUSD: 0.0012, Success: true, CreatedAt: time.Date(2026, 8, 27, 9, 15, 0, 0, time.UTC)},
			{Type: "fill_plan", Model: "gemini-2.5-flash", TokensUsed: 400, CostUSD: 0.0005, Success: false, CreatedAt: time.Date(2026, 8, 27, 9, 16, 0, 0, time.UTC)},
		},
		Warnings: []string{"accuracy trend unavailable: timeout"},
	}
}

func TestRenderFullReport(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).Render(sampleReport())
	out := buf.String()

	assert.Contains(t, out, "FIELD ANALYTICS — last 24h")
	assert.Contains(t, out, "extract-v2")
	assert.Contains(t, out, "40 uses")
	assert.Contains(t, out, "missing_field")
	assert.Contains(t, out, "17 occurrences")
	assert.Contains(t, out, "Aug 26")
	assert.Contains(t, out, "honeypots 95%")
	assert.Contains(t, out, "field_extraction")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "! accuracy trend unavailable: timeout")
}

func TestRenderEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).Render(&analytics.DashboardReport{Timeframe: "7d", GeneratedAt: time.Now()})
	out := buf.String()

	assert.Contains(t, out, "no template usage in this timeframe")
	assert.Contains(t, out, "none recorded")
	assert.Contains(t, out, "no field records in this timeframe")
}

func TestRateBarBounds(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	r.printRateBar(1.5)
	assert.Contains(t, buf.String(), "100%")

	buf.Reset()
	r.printRateBar(-0.2)
	assert.Contains(t, buf.String(), "  0%")
}
