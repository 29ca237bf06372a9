package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaHost is the address of a local Ollama daemon.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	opts       ClientOptions
}

// NewOllamaClient targets host (e.g. http://127.0.0.1:11434); zero options use
// a 60s timeout and two attempts with 200ms..1s backoff.
func NewOllamaClient(host string, opts ClientOptions) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	opts = opts.withDefaults(ClientOptions{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    1 * time.Second,
	})
	return &OllamaClient{
		httpClient: &http.Client{Timeout: opts.HTTPTimeout},
		host:       strings.TrimRight(host, "/"),
		opts:       opts,
	}
}

// Structures aligned with Ollama /api/chat
type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func (c *OllamaClient) body(req GenerateRequest, stream bool) ([]byte, error) {
	oreq := ollamaChatRequest{
		Model:    req.Model,
		Messages: make([]ollamaChatMessage, len(req.Messages)),
		Stream:   stream,
		Options:  map[string]any{},
	}
	for i, m := range req.Messages {
		oreq.Messages[i] = ollamaChatMessage(m)
	}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	b, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return b, nil
}

func (c *OllamaClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportErr(c.host, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, classifyOllamaError(readAPIError(resp))
	}
	return resp, nil
}

// Ollama reports a missing model as a plain 404.
func classifyOllamaError(apiErr *APIError) error {
	switch {
	case apiErr.StatusCode == http.StatusNotFound:
		return &ModelNotFoundError{APIError: apiErr}
	case apiErr.StatusCode == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case apiErr.StatusCode >= 500:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// Generate sends a non-streaming chat request.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	body, err := c.body(req, false)
	if err != nil {
		return nil, err
	}

	bo := backoff{next: c.opts.BaseDelay, max: c.opts.MaxDelay}
	var lastErr error
	for attempt := 1; attempt <= c.opts.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := c.post(ctx, body)
		if err == nil {
			var oresp ollamaChatResponse
			derr := json.NewDecoder(resp.Body).Decode(&oresp)
			resp.Body.Close()
			if derr != nil {
				return nil, fmt.Errorf("decode response: %w", derr)
			}
			return &GenerateResponse{
				Choices: []Choice{{Message: Message{Role: "assistant", Content: oresp.Message.Content}}},
				Usage: Usage{
					PromptTokens:     oresp.PromptEvalCount,
					CompletionTokens: oresp.EvalCount,
					TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
				},
				RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
			}, nil
		}
		lastErr = err
		var (
			se *ServerError
			ue *UnreachableError
		)
		retry := errors.As(err, &se) || (errors.As(err, &ue) && isRetryableNetErr(ue.Err))
		if !retry || attempt == c.opts.RetryMax {
			break
		}
		if werr := bo.wait(ctx); werr != nil {
			return nil, werr
		}
	}
	return nil, lastErr
}

// GenerateStream streams partial deltas from Ollama's newline-delimited JSON.
func (c *OllamaClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	body, err := c.body(req, true)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var oresp ollamaChatResponse
		if err := dec.Decode(&oresp); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode stream: %w", err)
		}
		if msg := oresp.Message.Content; msg != "" {
			onDelta(msg)
		}
		if oresp.Done {
			return nil
		}
	}
}
