package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultAnthropicMaxTokens is sent when the request leaves MaxTokens unset;
// the Messages API requires a value.
const defaultAnthropicMaxTokens = 1024

// AnthropicClient runs prompts through the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	apiKey string
}

// NewAnthropicClient builds a client. An empty apiKey falls back to the
// SDK's ANTHROPIC_API_KEY environment lookup.
func NewAnthropicClient(apiKey string, opts ClientOptions) *AnthropicClient {
	opts = opts.withDefaults(ClientOptions{HTTPTimeout: 60 * time.Second, RetryMax: 3})
	reqOpts := []option.RequestOption{
		option.WithRequestTimeout(opts.HTTPTimeout),
		option.WithMaxRetries(opts.RetryMax - 1),
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(reqOpts...), apiKey: apiKey}
}

func (c *AnthropicClient) params(req GenerateRequest) (anthropic.MessageNewParams, error) {
	if err := validateRequest(req); err != nil {
		return anthropic.MessageNewParams{}, err
	}
	system, conv := splitSystem(req.Messages)
	if len(conv) == 0 {
		return anthropic.MessageNewParams{}, errors.New("messages cannot be empty")
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
	}
	if system != "" {
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range conv {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			p.Messages = append(p.Messages, anthropic.NewAssistantMessage(block))
		} else {
			p.Messages = append(p.Messages, anthropic.NewUserMessage(block))
		}
	}
	if req.Temperature > 0 {
		p.Temperature = anthropic.Float(req.Temperature)
	}
	return p, nil
}

// Generate sends one Messages request and maps the reply onto GenerateResponse.
func (c *AnthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	params, err := c.params(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &GenerateResponse{
		ID:      msg.ID,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		RequestID: msg.ID,
	}, nil
}

// GenerateStream forwards text deltas as they arrive.
func (c *AnthropicClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	params, err := c.params(req)
	if err != nil {
		return err
	}
	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch d := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if d.Text != "" {
					onDelta(d.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return classifyAnthropicError(err)
	}
	return nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &UnreachableError{Host: "api.anthropic.com", Err: err}
	}
	header := http.Header{}
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	out := &APIError{
		StatusCode: apiErr.StatusCode,
		Message:    fmt.Sprintf("%v", err),
		RequestID:  header.Get("Request-Id"),
	}
	return classifyAPIError(out, header)
}
