package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Advice source labels.
const (
	SourceRules = "rules"
	SourceLLM   = "llm"
)

// Advice is the advisor's answer: up to MaxTips tips plus provenance.
// Degraded marks an answer that fell back to rules after the LLM path
// failed.
type Advice struct {
	Tips           []Tip  `json:"tips"`
	Source         string `json:"source"`
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degradedReason,omitempty"`
}

// Completer is the single LLM call the advisor needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter calls the chat completions API with one user message.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	return &OpenAICompleter{client: openai.NewClient(apiKey), model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Advisor produces advice from metrics. Without a completer it answers
// from the rules alone; with one it makes a single bounded LLM attempt
// and falls back to the rules on any failure.
type Advisor struct {
	completer Completer
	timeout   time.Duration
}

// NewAdvisor wires the advisor. An empty API key disables the LLM path.
func NewAdvisor(apiKey, model string, timeout time.Duration) *Advisor {
	a := &Advisor{timeout: timeout}
	if apiKey != "" {
		a.completer = NewOpenAICompleter(apiKey, model)
	}
	return a
}

// WithCompleter swaps the LLM backend, mainly for tests.
func (a *Advisor) WithCompleter(c Completer, timeout time.Duration) *Advisor {
	return &Advisor{completer: c, timeout: timeout}
}

// Advise returns tips for the metrics. It never returns an error: the
// rule engine always has an answer.
func (a *Advisor) Advise(ctx context.Context, m Metrics) Advice {
	if a.completer == nil {
		return Advice{Tips: RuleTips(m), Source: SourceRules}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	tips, err := a.llmTips(ctx, m)
	if err != nil {
		slog.WarnContext(ctx, "LLM advice failed, falling back to rules", "error", err)
		return Advice{
			Tips:           RuleTips(m),
			Source:         SourceRules,
			Degraded:       true,
			DegradedReason: err.Error(),
		}
	}

	return Advice{Tips: tips, Source: SourceLLM}
}

func (a *Advisor) llmTips(ctx context.Context, m Metrics) ([]Tip, error) {
	raw, err := a.completer.Complete(ctx, buildPrompt(m))
	if err != nil {
		return nil, err
	}

	tips, err := parseTips(raw)
	if err != nil {
		return nil, err
	}
	if len(tips) == 0 {
		return nil, fmt.Errorf("model returned no tips")
	}
	return tips, nil
}

func buildPrompt(m Metrics) string {
	var b strings.Builder
	b.WriteString("You are a personal finance advisor. Based on the metrics below, ")
	fmt.Fprintf(&b, "give at most %d short, concrete money tips.\n\n", MaxTips)
	fmt.Fprintf(&b, "Income this month: %s\n", m.MonthIncome.String())
	fmt.Fprintf(&b, "Expenses this month: %s\n", m.MonthExpense.String())
	fmt.Fprintf(&b, "Savings rate: %.1f%%\n", m.SavingsRate)
	if m.TopCategory != "" {
		fmt.Fprintf(&b, "Largest expense category: %s (%.0f%% of spending)\n", m.TopCategory, m.TopShare)
	}
	for _, cb := range m.Breakdown {
		fmt.Fprintf(&b, "- %s: %s (%.0f%%)\n", cb.Category, cb.Total.String(), cb.Percentage)
	}
	b.WriteString("\nAnswer with a JSON array only, each element ")
	b.WriteString(`{"message": string, "severity": "high"|"medium"|"low"}.`)
	return b.String()
}

// parseTips reads the model's JSON answer, tolerating markdown fences.
func parseTips(raw string) ([]Tip, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "["); i >= 0 {
		if j := strings.LastIndex(raw, "]"); j > i {
			raw = raw[i : j+1]
		}
	}

	var tips []Tip
	if err := json.Unmarshal([]byte(raw), &tips); err != nil {
		return nil, fmt.Errorf("parse model answer: %w", err)
	}

	out := tips[:0]
	for _, t := range tips {
		t.Message = strings.TrimSpace(t.Message)
		if t.Message == "" {
			continue
		}
		switch t.Severity {
		case SeverityHigh, SeverityMedium, SeverityLow:
		default:
			t.Severity = SeverityLow
		}
		out = append(out, t)
		if len(out) == MaxTips {
			break
		}
	}
	return out, nil
}

// Narrative renders a short deterministic prose summary of the metrics
// for the analysis endpoint.
func Narrative(m Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This month you earned %s and spent %s", m.MonthIncome.String(), m.MonthExpense.String())
	if m.MonthIncome.Cents > 0 {
		fmt.Fprintf(&b, ", a savings rate of %.1f%%", m.SavingsRate)
	}
	b.WriteString(". ")
	if m.TopCategory != "" {
		fmt.Fprintf(&b, "Your largest expense category was %s at %.0f%% of spending. ", m.TopCategory, m.TopShare)
	}
	if len(m.Duplicates) > 0 {
		fmt.Fprintf(&b, "Found %d possible duplicate charge(s). ", len(m.Duplicates))
	}
	fmt.Fprintf(&b, "You log about %.0f expenses per week.", m.ExpensesPerWeek)
	return b.String()
}
