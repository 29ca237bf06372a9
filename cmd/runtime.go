package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/ags-analyzer/internal/ai"
	cfgpkg "github.com/KaramelBytes/ags-analyzer/internal/config"
	"github.com/KaramelBytes/ags-analyzer/internal/insight"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// normalizeProvider maps user spellings onto registered provider names.
func normalizeProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "local":
		return ai.ProviderOllama
	case "claude":
		return ai.ProviderAnthropic
	default:
		return p
	}
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = cfg.HTTPTimeout()
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := normalizeProvider(opts.ProviderFlag)
	if providerName == "" && cfg != nil {
		providerName = normalizeProvider(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}

	switch providerName {
	case ai.ProviderOpenRouter:
		if cfg != nil {
			rc.APIKey = cfg.APIKey
		}
		if rc.APIKey == "" {
			return nil, providerName, fmt.Errorf("%w: set OPENROUTER_API_KEY or api_key in ~/.ags/config.yaml", ai.ErrMissingAPIKey)
		}
	case ai.ProviderAnthropic:
		if cfg != nil {
			rc.APIKey = cfg.AnthropicAPIKey
		}
		if rc.APIKey == "" {
			return nil, providerName, fmt.Errorf("%w: set ANTHROPIC_API_KEY or anthropic_api_key in ~/.ags/config.yaml", ai.ErrMissingAPIKey)
		}
	case ai.ProviderOllama:
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("AGS_OLLAMA_HOST")
		}
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
		if v := os.Getenv("AGS_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use %s)", providerName, strings.Join(ai.Providers(), "|"))
	}
	return client, providerName, nil
}

// selectModel resolves the model: flag, then config, then provider default.
// A configured model is only used with the configured provider.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if m := strings.TrimSpace(explicit); m != "" {
		return m
	}
	if cfg != nil && cfg.DefaultModel != "" && normalizeProvider(cfg.DefaultProvider) == provider {
		return cfg.DefaultModel
	}
	return ai.DefaultModel(provider)
}

// newChain wires a runtime into an insight chain using config defaults.
func newChain(runtime ai.Runtime, provider, model string, maxTokens int, temperature float64) *insight.Chain {
	if maxTokens <= 0 && cfg != nil {
		maxTokens = cfg.MaxTokens
	}
	if temperature <= 0 && cfg != nil {
		temperature = cfg.Temperature
	}
	return &insight.Chain{
		Runtime:     runtime,
		Provider:    provider,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Log:         log,
	}
}

// explainRuntimeError adds a user-facing hint to common runtime failures.
func explainRuntimeError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (AGS_OLLAMA_HOST or config 'ollama_host'). Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check the API key for %s: %w", provider, err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name or list known models with 'ags models': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a lower --max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return err
}
