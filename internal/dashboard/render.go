// Package dashboard renders the analytics dashboard for the terminal.
package dashboard

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kamilpajak/fieldscope/internal/analytics"
)

// Renderer writes a dashboard report as formatted terminal output. Color
// is disabled automatically when the writer is not a terminal.
type Renderer struct {
	w     io.Writer
	bold  *color.Color
	dim   *color.Color
	warn  *color.Color
	green *color.Color
	red   *color.Color
}

// NewRenderer creates a renderer for the given writer.
func NewRenderer(w io.Writer) *Renderer {
	r := &Renderer{
		w:     w,
		bold:  color.New(color.Bold),
		dim:   color.New(color.FgHiBlack),
		warn:  color.New(color.FgYellow),
		green: color.New(color.FgGreen),
		red:   color.New(color.FgRed),
	}
	if f, ok := w.(*os.File); ok && !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		for _, c := range []*color.Color{r.bold, r.dim, r.warn, r.green, r.red} {
			c.DisableColor()
		}
	}
	return r
}

// Render writes the full report.
func (r *Renderer) Render(report *analytics.DashboardReport) {
	_, _ = r.bold.Fprintf(r.w, "FIELD ANALYTICS — last %s\n", report.Timeframe)
	_, _ = r.dim.Fprintf(r.w, "generated %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	r.renderTemplates(report)
	r.renderIssues(report)
	r.renderTrend(report)
	r.renderInteractions(report)

	for _, warning := range report.Warnings {
		_, _ = r.warn.Fprintf(r.w, "! %s\n", warning)
	}
}

func (r *Renderer) renderTemplates(report *analytics.DashboardReport) {
	_, _ = r.bold.Fprintln(r.w, "PROMPT TEMPLATES")
	if len(report.TopTemplates) == 0 {
		_, _ = r.dim.Fprintln(r.w, "  no template usage in this timeframe")
		fmt.Fprintln(r.w)
		return
	}
	for _, tpl := range report.TopTemplates {
		fmt.Fprintf(r.w, "  %-28s %4d uses  ", tpl.ID, tpl.TotalUses)
		r.printRateBar(tpl.SuccessRate)
		_, _ = r.dim.Fprintf(r.w, "  conf %.2f  %.0fms\n", tpl.AverageConfidenceScore, tpl.AverageResponseTimeMs)
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) renderIssues(report *analytics.DashboardReport) {
	_, _ = r.bold.Fprintln(r.w, "COMPREHENSION ISSUES")
	if len(report.IssuesByCategory) == 0 {
		_, _ = r.dim.Fprintln(r.w, "  none recorded")
		fmt.Fprintln(r.w)
		return
	}
	for _, summary := range report.IssuesByCategory {
		line := fmt.Sprintf("  %-22s %4d occurrences  severity %.1f", summary.Category, summary.TotalFrequency, summary.AverageSeverity)
		if summary.AverageSeverity >= 2.5 {
			_, _ = r.red.Fprintln(r.w, line)
		} else {
			fmt.Fprintln(r.w, line)
		}
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) renderTrend(report *analytics.DashboardReport) {
	_, _ = r.bold.Fprintln(r.w, "FIELD ACCURACY TREND")
	if len(report.AccuracyTrend) == 0 {
		_, _ = r.dim.Fprintln(r.w, "  no field records in this timeframe")
		fmt.Fprintln(r.w)
		return
	}
	for _, point := range report.AccuracyTrend {
		fmt.Fprintf(r.w, "  %s  %4d fields  ", point.Day.Format("Jan 02"), point.Records)
		r.printRateBar(point.AverageScore)
		_, _ = r.dim.Fprintf(r.w, "  honeypots %.0f%%\n", point.HoneypotCorrectRate*100)
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) renderInteractions(report *analytics.DashboardReport) {
	_, _ = r.bold.Fprintln(r.w, "RECENT INTERACTIONS")
	if len(report.RecentInteractions) == 0 {
		_, _ = r.dim.Fprintln(r.w, "  none")
		fmt.Fprintln(r.w)
		return
	}
	for _, in := range report.RecentInteractions {
		status := "ok"
		if !in.Success {
			status = "FAILED"
		}
		fmt.Fprintf(r.w, "  %s  %-20s %-8s", in.CreatedAt.Format("15:04:05"), in.Type, status)
		_, _ = r.dim.Fprintf(r.w, " %s, %d tokens, $%.4f\n", in.Model, in.TokensUsed, in.CostUSD)
	}
	fmt.Fprintln(r.w)
}

// printRateBar draws a 24-cell bar for a 0..1 rate, colored by band.
func (r *Renderer) printRateBar(rate float64) {
	const barWidth = 24
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	filled := int(rate * barWidth)

	barColor := r.red
	switch {
	case rate >= 0.8:
		barColor = r.green
	case rate >= 0.4:
		barColor = r.warn
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(r.w, "%3.0f%% ", rate*100)
	_, _ = barColor.Fprint(r.w, bar)
}
