package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/kamilpajak/fieldscope/internal/database"
)

// DefaultTimeframe is used when a dashboard request omits the timeframe.
const DefaultTimeframe = "24h"

// recentInteractionLimit caps the interaction list on the dashboard.
const recentInteractionLimit = 50

// topTemplateLimit caps the template ranking on the dashboard.
const topTemplateLimit = 10

var timeframes = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ParseTimeframe maps a dashboard timeframe token to a duration. An empty
// token means DefaultTimeframe; anything else unrecognized is an error.
func ParseTimeframe(token string) (time.Duration, error) {
	if token == "" {
		token = DefaultTimeframe
	}
	d, ok := timeframes[token]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q (want 1h, 24h, 7d or 30d)", token)
	}
	return d, nil
}

// DashboardReport aggregates everything the dashboard renders for one
// timeframe. Sections that could not be loaded are left empty and named
// in Warnings.
type DashboardReport struct {
	Timeframe          string                           `json:"timeframe"`
	GeneratedAt        time.Time                        `json:"generatedAt"`
	RecentInteractions []database.Interaction           `json:"recentInteractions"`
	TopTemplates       []database.PromptTemplateStats   `json:"topTemplates"`
	IssuesByCategory   []database.IssueCategorySummary  `json:"issuesByCategory"`
	AccuracyTrend      []database.AccuracyTrendPoint    `json:"accuracyTrend"`
	Warnings           []string                         `json:"warnings,omitempty"`
}

// Dashboard assembles the analytics dashboard for the given timeframe
// token. Individual section failures degrade to a warning instead of
// failing the whole report; only an invalid timeframe is an error.
func (e *Engine) Dashboard(ctx context.Context, timeframe string) (*DashboardReport, error) {
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	window, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	since := now.Add(-window)
	report := &DashboardReport{
		Timeframe:   timeframe,
		GeneratedAt: now,
	}

	if report.RecentInteractions, err = e.store.ListRecentInteractions(ctx, since, recentInteractionLimit); err != nil {
		report.warn("recent interactions", err)
	}
	if report.TopTemplates, err = e.store.RankPromptTemplates(ctx, since, topTemplateLimit); err != nil {
		report.warn("template ranking", err)
	}
	if report.IssuesByCategory, err = e.store.IssueFrequencyByCategory(ctx, since); err != nil {
		report.warn("issue summary", err)
	}
	if report.AccuracyTrend, err = e.store.FieldAccuracyTrend(ctx, since); err != nil {
		report.warn("accuracy trend", err)
	}

	return report, nil
}

func (r *DashboardReport) warn(section string, err error) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s unavailable: %v", section, err))
}
