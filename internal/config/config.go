// Package config loads the analyzer's global settings from defaults, an
// optional YAML file, .env files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override (AGS_DEFAULT_MODEL, ...).
const EnvPrefix = "AGS"

// Global configuration structure.
type Global struct {
	// LLM selection
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	ModelCatalog    string  `mapstructure:"model_catalog" yaml:"model_catalog"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Presentation
	Currency string `mapstructure:"currency" yaml:"currency"`

	// Service
	ListenAddr       string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	CORSOrigins      []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	SessionTTLMin    int      `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
	MaxUploadMB      int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	AskRatePerMinute int      `mapstructure:"ask_rate_per_minute" yaml:"ask_rate_per_minute"`
	SentryDSN        string   `mapstructure:"sentry_dsn" yaml:"sentry_dsn"`
	Environment      string   `mapstructure:"environment" yaml:"environment"`
}

// Keys lists every recognized configuration key.
var Keys = []string{
	"api_key", "anthropic_api_key", "default_provider", "default_model", "max_tokens", "temperature", "model_catalog",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"ollama_host", "ollama_timeout_sec",
	"currency",
	"listen_addr", "cors_origins", "session_ttl_min", "max_upload_mb", "ask_rate_per_minute", "sentry_dsn", "environment",
}

// HTTPTimeout returns the configured timeout for hosted runtimes.
func (c *Global) HTTPTimeout() time.Duration { return time.Duration(c.HTTPTimeoutSec) * time.Second }

// SessionTTL returns how long an idle session lives.
func (c *Global) SessionTTL() time.Duration { return time.Duration(c.SessionTTLMin) * time.Minute }

// DefaultPath returns ~/.ags/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ags", "config.yaml"), nil
}

// Save writes the given configuration to cfgFile, or to ~/.ags/config.yaml
// when cfgFile is empty, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", "openrouter")
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", 512)
	v.SetDefault("temperature", 0.2)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	v.SetDefault("currency", "")
	// Service defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("session_ttl_min", 30)
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("ask_rate_per_minute", 10)
	v.SetDefault("environment", "development")
}

// Load loads configuration from defaults, config file, .env and environment.
// Precedence: AGS_* env > OPENROUTER_* env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; existing environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range Keys {
		_ = v.BindEnv(k)
	}
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Variables understood by the OpenRouter tooling.
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if c.DefaultModel == "" {
		c.DefaultModel = os.Getenv("OPENROUTER_MODEL")
	}
	if c.AnthropicAPIKey == "" {
		c.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &c, nil
}
