package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kamilpajak/fieldscope/internal/database"
)

func TestApplySampleRollingAverages(t *testing.T) {
	now := time.Now().UTC()
	stats := &database.PromptTemplateStats{ID: "field-extraction-v2"}

	applySample(stats, true, 0.6, 100, now)
	applySample(stats, true, 0.8, 200, now)
	applySample(stats, false, 0.7, 300, now)

	assert.Equal(t, int64(3), stats.TotalUses)
	assert.Equal(t, int64(2), stats.SuccessfulUses)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 0.7, stats.AverageConfidenceScore, 1e-9)
	assert.InDelta(t, 200.0, stats.AverageResponseTimeMs, 1e-9)
	assert.Equal(t, now, stats.LastUsed)
}

func TestApplySampleFirstSample(t *testing.T) {
	now := time.Now().UTC()
	stats := &database.PromptTemplateStats{ID: "fresh"}

	applySample(stats, true, 0.9, 1500, now)

	assert.Equal(t, int64(1), stats.TotalUses)
	assert.InDelta(t, 1.0, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 0.9, stats.AverageConfidenceScore, 1e-9)
	assert.InDelta(t, 1500.0, stats.AverageResponseTimeMs, 1e-9)
}

func TestApplySampleAllFailures(t *testing.T) {
	now := time.Now().UTC()
	stats := &database.PromptTemplateStats{ID: "failing"}

	applySample(stats, false, 0.2, 50, now)
	applySample(stats, false, 0.4, 150, now)

	assert.Equal(t, int64(2), stats.TotalUses)
	assert.Equal(t, int64(0), stats.SuccessfulUses)
	assert.InDelta(t, 0.0, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 0.3, stats.AverageConfidenceScore, 1e-9)
}
