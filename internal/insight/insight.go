// Package insight generates end-of-session assessments from an LLM.
// It implements the analytics engine's InsightGenerator extension point.
package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/llm"
)

const systemPrompt = `You are an expert analyst of automated form-filling runs. You review a finished form-analysis session and produce a short assessment.

When assessing a session, consider:
1. Whether the run succeeded and, if not, the stated failure reason
2. The gap between fields detected and fields successfully filled
3. Honeypot handling: fields detected as traps versus traps actually avoided
4. The mix of interaction types and how many of them failed

Respond with 2-4 sentences of plain prose. Name the single most important observation first, then any concrete adjustment that would improve the next run on this site. Do not restate the raw numbers back verbatim.`

// maxLoggedInteractions caps the interaction list included in the prompt.
const maxLoggedInteractions = 20

// Completer is the LLM surface the generator needs. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (*llm.Completion, error)
}

// Generator produces session assessments via an LLM completion.
type Generator struct {
	client Completer
}

// NewGenerator creates a Generator backed by the given LLM client.
func NewGenerator(client Completer) *Generator {
	return &Generator{client: client}
}

// GenerateSessionInsight builds the session prompt and returns the model's
// assessment text.
func (g *Generator) GenerateSessionInsight(ctx context.Context, summary analytics.SessionSummary) (string, error) {
	completion, err := g.client.Complete(ctx, systemPrompt, BuildPrompt(summary))
	if err != nil {
		return "", fmt.Errorf("generate session insight: %w", err)
	}
	return strings.TrimSpace(completion.Text), nil
}

// BuildPrompt renders a session summary into the analysis prompt.
func BuildPrompt(summary analytics.SessionSummary) string {
	var sb strings.Builder

	outcome := "succeeded"
	if !summary.Success {
		outcome = "failed"
	}
	sb.WriteString(fmt.Sprintf(`## Session Summary
- Site: %s
- Page: %s
- Outcome: %s
- Duration: %dms
- Fields detected: %d
- Fields successfully filled: %d
- Honeypots detected: %d
- Honeypots avoided: %d

`, summary.SiteID, summary.PageURL, outcome, summary.DurationMs,
		summary.TotalFieldsDetected, summary.FieldsSuccessfullyFilled,
		summary.HoneypotsDetected, summary.HoneypotsAvoided))

	if summary.FailureReason != "" {
		sb.WriteString(fmt.Sprintf("## Failure Reason\n%s\n\n", summary.FailureReason))
	}

	if len(summary.Interactions) == 0 {
		sb.WriteString("No interactions were logged for this session.\n")
		return sb.String()
	}

	sb.WriteString("## Interactions\n\n")
	for i, in := range summary.Interactions {
		if i >= maxLoggedInteractions {
			sb.WriteString(fmt.Sprintf("\n... and %d more interactions\n", len(summary.Interactions)-maxLoggedInteractions))
			break
		}
		status := "ok"
		if !in.Success {
			status = "FAILED"
		}
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n", i+1, in.Type, status))
	}

	return sb.String()
}
