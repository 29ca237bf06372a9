package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/ags-analyzer/internal/insight"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
	"github.com/KaramelBytes/ags-analyzer/internal/utils"
)

var (
	askLoad        loadFlags
	askMap         mappingFlags
	askQuestion    string
	askPayloadPath string
	askProvider    string
	askModel       string
	askOllamaHost  string
	askMaxTokens   int
	askTemperature float64
	askTimeoutSec  int
	askStream      bool
	askDryRun      bool
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [file]",
	Short: "Ask a business question answered from the aggregate statistics",
	Long: `Ask normalizes the dataset (or reads a payload saved with 'ags analyze --payload-out')
and sends only the aggregate statistics, never raw rows, to the configured LLM.`,
	Example: `  ags ask orders.csv --sales Amount --region Area --product Item --date When -q "Which region grew fastest?"
  ags ask --payload stats.json -q "Which product should we promote?" --provider ollama
  ags ask --payload stats.json -q "Summarize the trend" --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := askPayload(args)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		provider := normalizeProvider(askProvider)
		if provider == "" {
			provider = normalizeProvider(cfg.DefaultProvider)
		}
		model := selectModel(cfg, provider, askModel)

		if askDryRun {
			chain := newChain(nil, provider, model, askMaxTokens, askTemperature)
			est, err := chain.Estimate(payload, askQuestion)
			if err != nil {
				return err
			}
			prompt, _ := insight.Prompt(payload, askQuestion)
			if askJSON {
				b, err := utils.PrettyJSON(map[string]any{"estimate": est, "prompt": prompt})
				if err != nil {
					return err
				}
				_, err = w.Write(append(b, '\n'))
				return err
			}
			fmt.Fprintf(w, "--dry-run: no API call will be made (model=%s, prompt tokens≈%d)\n", est.Model, est.PromptTokens)
			if est.CostKnown {
				fmt.Fprintf(w, "Estimated max cost: ~$%.4f\n", est.CostUSD)
			}
			if est.ExceedsContext {
				fmt.Fprintf(w, "⚠ Warning: prompt + max tokens exceed the model context (%d tokens)\n", est.ContextTokens)
			}
			fmt.Fprintln(w, prompt)
			return nil
		}

		runtime, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: provider, OllamaHost: askOllamaHost})
		if err != nil {
			return err
		}
		chain := newChain(runtime, provider, model, askMaxTokens, askTemperature)

		timeoutSec := askTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = 180
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSec)*time.Second)
		defer cancel()

		fmt.Fprintf(cmd.ErrOrStderr(), "⚙ Asking %s (%s) ...\n", model, provider)
		if askStream && !askJSON {
			err := chain.Stream(ctx, payload, askQuestion, func(delta string) { fmt.Fprint(w, delta) })
			fmt.Fprintln(w)
			if err != nil {
				return explainRuntimeError(err, provider, model)
			}
			return nil
		}

		ans, err := chain.Run(ctx, payload, askQuestion)
		if err != nil {
			return explainRuntimeError(err, provider, model)
		}
		if askJSON {
			b, err := utils.PrettyJSON(ans)
			if err != nil {
				return err
			}
			_, err = w.Write(append(b, '\n'))
			return err
		}
		fmt.Fprintln(w, ans.Text)
		return nil
	},
}

// askPayload builds the statistics payload from a data file or a saved payload.
func askPayload(args []string) (retrieval.Payload, error) {
	switch {
	case askPayloadPath != "" && len(args) > 0:
		return retrieval.Payload{}, errors.New("use either a data file or --payload, not both")
	case askPayloadPath != "":
		return retrieval.Load(askPayloadPath)
	case len(args) == 1:
		_, a, err := analyzeFile(args[0], &askLoad, &askMap)
		if err != nil {
			return retrieval.Payload{}, err
		}
		return retrieval.New(a).AsPayload(), nil
	}
	return retrieval.Payload{}, errors.New("a data file or --payload is required")
}

func init() {
	rootCmd.AddCommand(askCmd)
	askLoad.register(askCmd.Flags())
	askMap.register(askCmd.Flags())
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "business question to ask")
	askCmd.Flags().StringVar(&askPayloadPath, "payload", "", "statistics payload saved by 'ags analyze --payload-out'")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "LLM provider: openrouter|ollama|anthropic (default from config)")
	askCmd.Flags().StringVar(&askModel, "model", "", "model name (default from config or provider)")
	askCmd.Flags().StringVar(&askOllamaHost, "ollama-host", "", "Ollama host (default from config)")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "max output tokens (default from config)")
	askCmd.Flags().Float64Var(&askTemperature, "temperature", 0, "sampling temperature (default from config)")
	askCmd.Flags().IntVar(&askTimeoutSec, "timeout-sec", 180, "request timeout in seconds")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer if the provider supports it")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompt and cost estimate without calling the model")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer (or dry-run estimate) as JSON")
	_ = askCmd.MarkFlagRequired("question")
}
