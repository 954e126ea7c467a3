// Package llm is a minimal Google Gemini client used for end-of-session
// insight generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const defaultModel = "gemini-2.5-flash"

// Client handles Gemini generateContent calls.
type Client struct {
	apiKey  string
	baseURL string
	model   string
}

// NewClient creates a new LLM client (Google Gemini).
func NewClient() (*Client, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable required")
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		model:   defaultModel,
	}, nil
}

// NewClientWith creates a client with explicit credentials and endpoint.
// An empty model or baseURL falls back to the defaults.
func NewClientWith(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, model: model}
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Completion is the result of a single generateContent call.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Complete sends one system+user prompt pair and returns the model's text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (*Completion, error) {
	var sys *Content
	if system != "" {
		sys = &Content{Parts: []Part{{Text: system}}}
	}
	history := []Content{
		{Role: "user", Parts: []Part{{Text: prompt}}},
	}

	resp, err := c.generate(ctx, history, sys)
	if err != nil {
		return nil, err
	}

	var candidate *Candidate
	if len(resp.Candidates) > 0 {
		candidate = &resp.Candidates[0]
	}
	if isEmptyResponse(candidate) {
		return nil, fmt.Errorf("empty response from model: %s", describeEmptyResponse(candidate))
	}

	var texts []string
	for _, p := range candidate.Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}

	completion := &Completion{
		Text:  strings.Join(texts, "\n"),
		Model: c.model,
	}
	if resp.UsageMetadata != nil {
		completion.InputTokens = resp.UsageMetadata.PromptTokenCount
		completion.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
		completion.TotalTokens = resp.UsageMetadata.TotalTokenCount
	}
	return completion, nil
}

func (c *Client) generate(ctx context.Context, history []Content, system *Content) (*GenerateResponse, error) {
	req := GenerateRequest{
		Contents:          history,
		SystemInstruction: system,
		GenerationConfig: &GenerationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 2048,
		},
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error: %s - %s", resp.Status, string(body))
	}

	var result GenerateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// isEmptyResponse reports whether a candidate carries no usable parts.
func isEmptyResponse(c *Candidate) bool {
	if c == nil {
		return true
	}
	for _, p := range c.Content.Parts {
		if p.Text != "" {
			return false
		}
	}
	return true
}

// describeEmptyResponse explains why a candidate was unusable, surfacing
// the finish reason and any blocked safety categories.
func describeEmptyResponse(c *Candidate) string {
	if c == nil {
		return "no candidate"
	}
	desc := fmt.Sprintf("finishReason=%s", c.FinishReason)
	for _, r := range c.SafetyRatings {
		if r.Blocked {
			desc += fmt.Sprintf(", %s=%s (blocked)", r.Category, r.Probability)
		}
	}
	return desc
}
