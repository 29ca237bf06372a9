package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "hello from ollama"},
			"done":              true,
			"prompt_eval_count": 20,
			"eval_count":        5,
		})
	}))

	c := NewOllamaClient(srv.URL, ClientOptions{HTTPTimeout: 2 * time.Second, RetryMax: 1})
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "mistral:7b-instruct", Messages: userMsg("hi"), MaxTokens: 16})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "hello from ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Usage.TotalTokens != 25 {
		t.Fatalf("expected usage from eval counts, got %+v", resp.Usage)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected simulated request id")
	}
}

func TestOllamaGenerateModelNotFound(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'nope' not found"})
	}))
	c := NewOllamaClient(srv.URL, ClientOptions{RetryMax: 3})
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "nope", Messages: userMsg("hi")})
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %T: %v", err, err)
	}
	if mnf.Message != "model 'nope' not found" {
		t.Fatalf("unexpected message %q", mnf.Message)
	}
	if srv.hits.Load() != 1 {
		t.Fatalf("404 must not be retried")
	}
}

func TestOllamaGenerateRetriesServerErrors(t *testing.T) {
	srv := statusSequence(t, "/api/chat", []int{500, 200}, nil, map[string]any{
		"message": map[string]any{"role": "assistant", "content": "recovered"},
		"done":    true,
	})
	c := NewOllamaClient(srv.URL, ClientOptions{RetryMax: 2, BaseDelay: time.Millisecond})
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: userMsg("hi")})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "recovered" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", ClientOptions{HTTPTimeout: time.Second, RetryMax: 1})
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: userMsg("hi")})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
	if HTTPStatus(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 mapping, got %d", HTTPStatus(err))
	}
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("", ClientOptions{})

	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{}})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
	err = c.GenerateStream(context.Background(), GenerateRequest{Model: "m"}, func(string) {})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
}

func TestOllamaPreservesMessagesAndOptions(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "response"}})
	}))

	c := NewOllamaClient(srv.URL, ClientOptions{RetryMax: 1})
	messages := []Message{
		{Role: "system", Content: "You are a BI analyst"},
		{Role: "user", Content: "Which region leads?"},
	}
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: messages, Temperature: 0.2, MaxTokens: 128}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "Which region leads?" {
		t.Fatalf("messages not preserved: %+v", captured.Messages)
	}
	if captured.Options["temperature"] != 0.2 || captured.Options["num_predict"] != float64(128) {
		t.Fatalf("options not forwarded: %+v", captured.Options)
	}
	if captured.Stream {
		t.Fatalf("Generate must not stream")
	}
}

func TestOllamaStream(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"East "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"leads"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	c := NewOllamaClient(srv.URL, ClientOptions{})
	var out string
	if err := c.GenerateStream(context.Background(), GenerateRequest{Model: "m", Messages: userMsg("hi")}, func(d string) { out += d }); err != nil {
		t.Fatalf("GenerateStream error: %v", err)
	}
	if out != "East leads" {
		t.Fatalf("unexpected stream accumulation: %q", out)
	}
}
