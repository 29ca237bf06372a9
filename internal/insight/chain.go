package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/KaramelBytes/ags-analyzer/internal/ai"
	"github.com/KaramelBytes/ags-analyzer/internal/metrics"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
	"github.com/KaramelBytes/ags-analyzer/internal/utils"
)

// DefaultTemperature keeps answers close to the statistics.
const DefaultTemperature = 0.2

var (
	ErrNoRuntime   = errors.New("no LLM runtime configured")
	ErrEmptyAnswer = errors.New("model returned an empty answer")
)

// Chain binds a runtime and model settings to the insight prompt.
type Chain struct {
	Runtime     ai.Runtime
	Provider    string // metrics/log label
	Model       string
	Temperature float64
	MaxTokens   int
	Log         *slog.Logger
}

// Answer is a generated insight.
type Answer struct {
	Text     string        `json:"answer"`
	Model    string        `json:"model"`
	Usage    ai.Usage      `json:"usage"`
	Duration time.Duration `json:"-"`
}

// Estimate is a dry-run summary of a request.
type Estimate struct {
	Model           string         `json:"model"`
	PromptTokens    int            `json:"prompt_tokens"`
	Breakdown       map[string]int `json:"breakdown"`
	MaxOutputTokens int            `json:"max_output_tokens"`
	CostUSD         float64        `json:"cost_usd"`
	CostKnown       bool           `json:"cost_known"`
	ContextTokens   int            `json:"context_tokens,omitempty"`
	ExceedsContext  bool           `json:"exceeds_context"`
}

func (c *Chain) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

func (c *Chain) temperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return DefaultTemperature
}

// Request builds the runtime request for a question.
func (c *Chain) Request(p retrieval.Payload, question string) (ai.GenerateRequest, error) {
	user, err := Prompt(p, question)
	if err != nil {
		return ai.GenerateRequest{}, err
	}
	return ai.GenerateRequest{
		Model: c.Model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.MaxTokens,
		Temperature: c.temperature(),
	}, nil
}

// Estimate reports prompt size and cost without calling the runtime.
func (c *Chain) Estimate(p retrieval.Payload, question string) (*Estimate, error) {
	req, err := c.Request(p, question)
	if err != nil {
		return nil, err
	}
	stats, _ := p.JSON()
	breakdown := utils.TokenBreakdown(map[string]string{
		"system":     req.Messages[0].Content,
		"question":   question,
		"statistics": string(stats),
	})
	promptTokens := utils.CountTokens(req.Messages[0].Content) + utils.CountTokens(req.Messages[1].Content)
	est := &Estimate{
		Model:           c.Model,
		PromptTokens:    promptTokens,
		Breakdown:       breakdown,
		MaxOutputTokens: c.MaxTokens,
	}
	est.CostUSD, est.CostKnown = ai.EstimateCostUSD(c.Model, promptTokens, c.MaxTokens)
	if mi, ok := ai.LookupModel(c.Model); ok && mi.ContextTokens > 0 {
		est.ContextTokens = mi.ContextTokens
		est.ExceedsContext = promptTokens+c.MaxTokens > mi.ContextTokens
	}
	return est, nil
}

// Run asks the model one question about the payload.
func (c *Chain) Run(ctx context.Context, p retrieval.Payload, question string) (*Answer, error) {
	if c.Runtime == nil {
		return nil, ErrNoRuntime
	}
	req, err := c.Request(p, question)
	if err != nil {
		return nil, err
	}

	span := sentry.StartSpan(ctx, "gen_ai.chat", sentry.WithDescription(fmt.Sprintf("chat %s", c.Model)))
	span.SetData("gen_ai.request.model", c.Model)
	span.SetData("gen_ai.system", c.Provider)
	ctx = span.Context()
	defer span.Finish()

	start := time.Now()
	c.logger().Debug("insight request starting", "provider", c.Provider, "model", c.Model, "promptLen", len(req.Messages[1].Content))
	resp, err := c.Runtime.Generate(ctx, req)
	duration := time.Since(start)
	metrics.RecordInsightRequest(c.Provider, duration, err)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		c.logger().Error("insight request failed", "provider", c.Provider, "model", c.Model, "duration", duration, "error", err)
		return nil, fmt.Errorf("generate insight: %w", err)
	}
	metrics.RecordInsightTokens(int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
	span.SetData("gen_ai.usage.input_tokens", resp.Usage.PromptTokens)
	span.SetData("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens)
	span.Status = sentry.SpanStatusOK

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyAnswer
	}
	c.logger().Debug("insight request completed", "provider", c.Provider, "duration", duration,
		"inputTokens", resp.Usage.PromptTokens, "outputTokens", resp.Usage.CompletionTokens)
	return &Answer{Text: text, Model: c.Model, Usage: resp.Usage, Duration: duration}, nil
}

// Stream forwards answer deltas as they arrive. Runtimes without streaming
// support get a single delta with the full answer.
func (c *Chain) Stream(ctx context.Context, p retrieval.Payload, question string, onDelta func(string)) error {
	sr, ok := c.Runtime.(ai.StreamRuntime)
	if !ok {
		ans, err := c.Run(ctx, p, question)
		if err != nil {
			return err
		}
		onDelta(ans.Text)
		return nil
	}
	req, err := c.Request(p, question)
	if err != nil {
		return err
	}
	start := time.Now()
	err = sr.GenerateStream(ctx, req, onDelta)
	metrics.RecordInsightRequest(c.Provider, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("stream insight: %w", err)
	}
	return nil
}
