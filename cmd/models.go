package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/ags-analyzer/internal/ai"
	"github.com/KaramelBytes/ags-analyzer/internal/utils"
)

var (
	modelsFile     string
	modelsJSON     bool
	modelsProvider string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the model catalog used for context and cost estimates",
	Example: `  ags models
  ags models --provider anthropic
  ags models --file ./models.json --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsFile != "" {
			if err := ai.MergeCatalogFile(modelsFile); err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
		}
		var list []ai.ModelInfo
		provider := normalizeProvider(modelsProvider)
		for _, m := range ai.Models() {
			if provider == "" || m.Provider == provider {
				list = append(list, m)
			}
		}
		if modelsJSON {
			b, err := utils.PrettyJSON(list)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tIN $/1K\tOUT $/1K")
		for _, m := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.5f\t%.5f\n", m.Name, m.Provider, m.ContextTokens, m.InputPerK, m.OutputPerK)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsFile, "file", "", "merge a JSON catalog file before listing")
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "only list models of this provider")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print as JSON")
}
