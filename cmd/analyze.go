package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/report"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
	"github.com/KaramelBytes/ags-analyzer/internal/utils"
)

var (
	anaLoad        loadFlags
	anaMap         mappingFlags
	anaJSON        bool
	anaOutputPath  string
	anaPayloadOut  string
	anaNoDashboard bool
)

type metricJSON struct {
	Label string          `json:"label"`
	Value retrieval.Float `json:"value"`
}

type analysisJSON struct {
	Dataset  string                 `json:"dataset"`
	Rows     int                    `json:"rows"`
	Mapping  analysis.ColumnMapping `json:"mapping"`
	Currency string                 `json:"currency,omitempty"`
	Metrics  []metricJSON           `json:"metrics"`
	Payload  retrieval.Payload      `json:"payload"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Normalize a sales table and print its aggregate analytics",
	Example: `  ags analyze orders.csv --sales Amount --region Area --product Item --date "Order Date"
  ags analyze orders.xlsx --sheet-name 2024 --sales Total --region Zone --product SKU --date Day --json
  ags analyze orders.csv --sales Amount --region Area --product Item --date When --payload-out stats.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, a, err := analyzeFile(args[0], &anaLoad, &anaMap)
		if err != nil {
			return err
		}
		currency := anaMap.currency()
		payload := retrieval.New(a).AsPayload()

		var out []byte
		if anaJSON {
			m := a.BasicMetrics()
			doc := analysisJSON{
				Dataset:  raw.Name(),
				Rows:     m.TotalRows,
				Mapping:  anaMap.mapping(),
				Currency: currency,
				Payload:  payload,
			}
			for _, e := range m.Entries() {
				doc.Metrics = append(doc.Metrics, metricJSON{Label: e.Label, Value: retrieval.Float(e.Value)})
			}
			if out, err = utils.PrettyJSON(doc); err != nil {
				return fmt.Errorf("encode analysis: %w", err)
			}
		} else {
			md, err := renderMarkdown(raw.Name(), a, payload, currency, !anaNoDashboard)
			if err != nil {
				return err
			}
			out = []byte(md)
		}

		if anaPayloadOut != "" {
			if err := payload.Save(anaPayloadOut); err != nil {
				return fmt.Errorf("write payload: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote statistics payload to %s\n", anaPayloadOut)
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func renderMarkdown(name string, a *analysis.Analyzer, p retrieval.Payload, currency string, dashboard bool) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sales Analysis: %s\n\n", name)
	b.WriteString("## Key Metrics\n\n")
	b.WriteString(report.SummaryTable(a.BasicMetrics(), currency))
	if dashboard {
		b.WriteString("\n## Dashboard\n\n```\n")
		var buf bytes.Buffer
		if err := report.BuildDashboard(p, currency).Render(&buf); err != nil {
			return "", fmt.Errorf("render dashboard: %w", err)
		}
		b.Write(buf.Bytes())
		b.WriteString("```\n")
	}
	return b.String(), nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaLoad.register(analyzeCmd.Flags())
	anaMap.register(analyzeCmd.Flags())
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print metrics and statistics payload as JSON")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the analysis to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&anaPayloadOut, "payload-out", "", "also save the statistics payload (JSON) for 'ags ask --payload'")
	analyzeCmd.Flags().BoolVar(&anaNoDashboard, "no-dashboard", false, "omit the text dashboard")
}
