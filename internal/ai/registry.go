package ai

import (
	"sort"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OpenRouter / Anthropic
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[name]; ok {
		return f(cfg), true
	}
	return nil, false
}

// Providers lists registered provider names.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		return NewOpenRouterClient(c.APIKey, ClientOptions{
			HTTPTimeout: c.HTTPTimeout,
			RetryMax:    c.RetryMax,
			BaseDelay:   c.BaseDelay,
			MaxDelay:    c.MaxDelay,
			BaseURL:     c.BaseURL,
		})
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, ClientOptions{
			HTTPTimeout: c.HTTPTimeout,
			RetryMax:    c.RetryMax,
			BaseDelay:   c.BaseDelay,
			MaxDelay:    c.MaxDelay,
		})
	})
	RegisterRuntime(ProviderAnthropic, func(c RuntimeConfig) Runtime {
		return NewAnthropicClient(c.APIKey, ClientOptions{
			HTTPTimeout: c.HTTPTimeout,
			RetryMax:    c.RetryMax,
			BaseURL:     c.BaseURL,
		})
	})
}
