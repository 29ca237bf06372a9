package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient talks to the OpenRouter chat completions API.
type OpenRouterClient struct {
	httpClient *http.Client
	apiKey     string
	opts       ClientOptions
}

// NewOpenRouterClient returns a client; zero options use a 60s timeout and
// three attempts with 500ms..4s backoff.
func NewOpenRouterClient(apiKey string, opts ClientOptions) *OpenRouterClient {
	opts = opts.withDefaults(ClientOptions{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		BaseURL:     openRouterBaseURL,
	})
	return &OpenRouterClient{
		httpClient: &http.Client{Timeout: opts.HTTPTimeout},
		apiKey:     apiKey,
		opts:       opts,
	}
}

func (c *OpenRouterClient) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/KaramelBytes/ags-analyzer")
	req.Header.Set("X-Title", "AGS Analyzer")
	return req, nil
}

// Generate sends one chat completion, retrying on 429/5xx and transient
// network errors. Retry-After is honored when present.
func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	bo := backoff{next: c.opts.BaseDelay, max: c.opts.MaxDelay}
	var lastErr error
	for attempt := 1; attempt <= c.opts.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		httpReq, err := c.newRequest(ctx, body)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = wrapTransportErr(c.opts.BaseURL, err)
			if isRetryableNetErr(err) && attempt < c.opts.RetryMax {
				if werr := bo.wait(ctx); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var out GenerateResponse
			err := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			out.RequestID = extractRequestID(resp)
			return &out, nil
		}

		apiErr := readAPIError(resp)
		resp.Body.Close()
		lastErr = classifyAPIError(apiErr, resp.Header)
		if !retryableStatus(resp.StatusCode) || attempt == c.opts.RetryMax {
			return nil, lastErr
		}
		if ra, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			err = sleepCtx(ctx, ra)
		} else {
			err = bo.wait(ctx)
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// GenerateStream streams content using OpenRouter's SSE stream.
func (c *OpenRouterClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   true,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return wrapTransportErr(c.opts.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyAPIError(readAPIError(resp), resp.Header)
	}

	type streamDelta struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var d streamDelta
		if err := json.Unmarshal([]byte(data), &d); err == nil && len(d.Choices) > 0 && d.Choices[0].Delta.Content != "" {
			onDelta(d.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}
