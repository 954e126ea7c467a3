package analytics

import (
	"time"

	"github.com/kamilpajak/fieldscope/internal/database"
)

// applySample folds one interaction into a template's rolling aggregates
// using the streaming formula avg_new = (avg_old*(n-1) + sample) / n, where
// n is the use count after increment. No raw history is retained, at the
// cost of floating-point drift over very large use counts.
func applySample(s *database.PromptTemplateStats, success bool, confidence float64, responseTimeMs int64, now time.Time) {
	s.TotalUses++
	if success {
		s.SuccessfulUses++
	}
	s.SuccessRate = float64(s.SuccessfulUses) / float64(s.TotalUses)

	n := float64(s.TotalUses)
	s.AverageConfidenceScore = (s.AverageConfidenceScore*(n-1) + confidence) / n
	s.AverageResponseTimeMs = (s.AverageResponseTimeMs*(n-1) + float64(responseTimeMs)) / n
	s.LastUsed = now
}
