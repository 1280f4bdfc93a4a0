package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/turn"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/llm"
)

const (
	defaultTemperature = 0.2

	// defaultMaxPromptTokens bounds the rendered transcript when the
	// provider reports no context window of its own.
	defaultMaxPromptTokens = 24000

	// defaultOutputReserve is subtracted from a provider's context window
	// to leave room for the completion when MaxOutputTokens is unknown.
	defaultOutputReserve = 2048
)

// evaluationPrompt is the base system prompt. Rubric hints from the persona
// are appended at construction time.
const evaluationPrompt = `You are an experienced technical interviewer evaluating a completed live interview.

You will receive the full transcript. Lines labelled [Candidate] are spoken by the person being evaluated; lines labelled [Interviewer] are spoken by the agent conducting the interview.

Evaluate only the candidate. Judge technical depth, communication clarity, and how directly questions were answered. Be fair: a short transcript limits what can be assessed, and the score must reflect demonstrated evidence, not assumptions.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "score": <integer 0-100>,
  "summary": "<3-5 sentence overall evaluation>",
  "strengths": ["<specific strength>", ...],
  "improvements": ["<specific, actionable improvement>", ...]
}`

// modelReport is the expected JSON structure returned by the model.
type modelReport struct {
	Score        int      `json:"score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Option is a functional option for configuring an [LLMGenerator].
type Option func(*LLMGenerator)

// WithTemperature sets the sampling temperature. Lower values produce more
// consistent scoring. Default: 0.2.
func WithTemperature(temp float64) Option {
	return func(g *LLMGenerator) { g.temperature = temp }
}

// WithRubricHints appends persona scoring guidance to the system prompt.
func WithRubricHints(hints []string) Option {
	return func(g *LLMGenerator) {
		g.hints = make([]string, len(hints))
		copy(g.hints, hints)
	}
}

// WithMaxPromptTokens overrides the derived prompt token budget.
func WithMaxPromptTokens(n int) Option {
	return func(g *LLMGenerator) { g.maxPromptTokens = n }
}

// LLMGenerator implements [Generator] on top of an [llm.Provider].
//
// Pass a fallback-wrapped provider to get automatic failover across model
// backends; the generator itself performs exactly one completion per call.
// It is safe for concurrent use.
type LLMGenerator struct {
	llm             llm.Provider
	hints           []string
	temperature     float64
	maxPromptTokens int
}

// Compile-time interface check.
var _ Generator = (*LLMGenerator)(nil)

// NewLLMGenerator returns an [LLMGenerator] backed by the given provider.
func NewLLMGenerator(provider llm.Provider, opts ...Option) *LLMGenerator {
	g := &LLMGenerator{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate renders entries into an evaluation prompt, trims the oldest
// exchanges when the rendered transcript exceeds the token budget, and parses
// the model's JSON reply. An empty transcript short-circuits to [Placeholder]
// without calling the model.
func (g *LLMGenerator) Generate(ctx context.Context, entries []turn.Entry) (*Report, error) {
	if len(entries) == 0 {
		return Placeholder(), nil
	}

	system := g.systemPrompt()
	kept, trimmed := g.trimToBudget(entries, system)

	body := formatTranscript(kept)
	if trimmed {
		body = "[earlier exchanges omitted to fit the model context]\n" + body
	}

	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Temperature:  g.temperature,
		Messages: []llm.Message{
			{Role: "user", Content: body},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("report: complete: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return nil, errors.New("report: empty completion from model")
	}

	return parseReport(resp.Content)
}

// systemPrompt returns the base prompt with any rubric hints appended.
func (g *LLMGenerator) systemPrompt() string {
	if len(g.hints) == 0 {
		return evaluationPrompt
	}
	var sb strings.Builder
	sb.WriteString(evaluationPrompt)
	sb.WriteString("\n\nScoring guidance:\n")
	for _, h := range g.hints {
		sb.WriteString("- ")
		sb.WriteString(h)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// trimToBudget drops the oldest entries until the rendered prompt fits the
// token budget. The newest exchanges carry the candidate's most recent and
// usually most developed answers, so trimming always happens at the front.
// Token counting is best-effort: if the provider cannot count, the full
// transcript is sent untrimmed.
func (g *LLMGenerator) trimToBudget(entries []turn.Entry, system string) (kept []turn.Entry, trimmed bool) {
	budget := g.promptBudget()
	for len(entries) > 1 {
		count, err := g.llm.CountTokens([]llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: formatTranscript(entries)},
		})
		if err != nil {
			slog.Warn("report: token count unavailable, sending untrimmed transcript", "error", err)
			return entries, trimmed
		}
		if count <= budget {
			return entries, trimmed
		}
		drop := max(len(entries)/10, 1)
		entries = entries[drop:]
		trimmed = true
	}
	return entries, trimmed
}

// promptBudget resolves the prompt token budget from the explicit override,
// then the provider's context window, then the package default.
func (g *LLMGenerator) promptBudget() int {
	if g.maxPromptTokens > 0 {
		return g.maxPromptTokens
	}
	caps := g.llm.Capabilities()
	if caps.ContextWindow > 0 {
		reserve := caps.MaxOutputTokens
		if reserve <= 0 {
			reserve = defaultOutputReserve
		}
		if b := caps.ContextWindow - reserve; b > 0 {
			return b
		}
	}
	return defaultMaxPromptTokens
}

// formatTranscript renders entries as labelled lines for the evaluator.
func formatTranscript(entries []turn.Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		label := "Interviewer"
		if e.Speaker == turn.User {
			label = "Candidate"
		}
		fmt.Fprintf(&sb, "[%s]: %s\n", label, e.Text)
	}
	return sb.String()
}

// parseReport unmarshals the model output into a [Report]. Markdown code
// fences are stripped first; scores outside [0, 100] are clamped.
func parseReport(content string) (*Report, error) {
	cleaned := stripMarkdown(content)

	var m modelReport
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return nil, fmt.Errorf("report: parse model response: %w", err)
	}
	if strings.TrimSpace(m.Summary) == "" {
		return nil, errors.New("report: model response has no summary")
	}

	return &Report{
		Score:        min(max(m.Score, 0), 100),
		Summary:      strings.TrimSpace(m.Summary),
		Strengths:    cleanList(m.Strengths),
		Improvements: cleanList(m.Improvements),
	}, nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

// cleanList trims entries and drops blanks; the result is never nil.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
