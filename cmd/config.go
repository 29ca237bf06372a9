package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/ags-analyzer/internal/ai"
	cfgpkg "github.com/KaramelBytes/ags-analyzer/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set AGS configuration",
}

var secretKeys = map[string]bool{"api_key": true, "anthropic_api_key": true, "sentry_dsn": true}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := configValues(cfg)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			v := values[k]
			if secretKeys[k] {
				s, _ := v.(string)
				v = mask(s)
			}
			fmt.Fprintf(w, "%s: %v\n", k, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		values, err := configValues(cfg)
		if err != nil {
			return err
		}
		cur, ok := values[key]
		if !ok {
			return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
		}

		switch key {
		case "default_provider":
			p := normalizeProvider(val)
			if _, ok := ai.GetRuntime(p, ai.RuntimeConfig{}); !ok {
				return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(ai.Providers(), "|"))
			}
			values[key] = p
		default:
			v, err := parseLike(cur, val)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			values[key] = v
		}

		b, err := yaml.Marshal(values)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		var next cfgpkg.Global
		if err := yaml.Unmarshal(b, &next); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

// configValues flattens the config into its YAML keys.
func configValues(c *cfgpkg.Global) (map[string]any, error) {
	if c == nil {
		c = &cfgpkg.Global{}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// parseLike parses val into the type of the current value.
func parseLike(cur any, val string) (any, error) {
	switch cur.(type) {
	case int:
		// yaml encodes a zero float as 0
		if i, err := strconv.Atoi(val); err == nil {
			return i, nil
		}
		return strconv.ParseFloat(val, 64)
	case float64:
		return strconv.ParseFloat(val, 64)
	case []any:
		parts := []string{}
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return parts, nil
	}
	return val, nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
