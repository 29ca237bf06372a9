package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ModelInfo holds pricing used for `ask --dry-run` estimates.
// Prices are indicative; verify against the provider.
type ModelInfo struct {
	Name          string  `json:"name"`
	Provider      string  `json:"provider"`
	ContextTokens int     `json:"context_tokens"`
	InputPerK     float64 `json:"input_per_k"`  // USD per 1K input tokens
	OutputPerK    float64 `json:"output_per_k"` // USD per 1K output tokens
}

var builtinModels = []ModelInfo{
	{Name: "mistralai/mistral-7b-instruct", Provider: ProviderOpenRouter, ContextTokens: 32768, InputPerK: 0.000028, OutputPerK: 0.000054},
	{Name: "mistralai/mistral-7b-instruct:free", Provider: ProviderOpenRouter, ContextTokens: 32768},
	{Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	{Name: "meta-llama/llama-3.1-8b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072, InputPerK: 0.00002, OutputPerK: 0.00005},
	{Name: "anthropic/claude-3.5-haiku", Provider: ProviderOpenRouter, ContextTokens: 200000, InputPerK: 0.0008, OutputPerK: 0.004},
	{Name: "claude-3-5-haiku-latest", Provider: ProviderAnthropic, ContextTokens: 200000, InputPerK: 0.0008, OutputPerK: 0.004},
	{Name: "claude-sonnet-4-5", Provider: ProviderAnthropic, ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
	{Name: "mistral:7b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
	{Name: "llama3.1:8b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
}

var (
	catalogMu sync.RWMutex
	catalog   = map[string]ModelInfo{}
)

func init() {
	for _, mi := range builtinModels {
		catalog[mi.Name] = mi
	}
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	mi, ok := catalog[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// Models lists catalog entries sorted by name.
func Models() []ModelInfo {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make([]ModelInfo, 0, len(catalog))
	for _, mi := range catalog {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MergeCatalogFile merges entries from a JSON object keyed by model name.
func MergeCatalogFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m map[string]ModelInfo
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode model catalog %s: %w", path, err)
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		catalog[k] = v
	}
	return nil
}
