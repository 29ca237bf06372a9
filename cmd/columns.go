package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/ags-analyzer/internal/utils"
)

var (
	colLoad loadFlags
	colRows int
	colJSON bool
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "List a dataset's columns with detected types and preview rows",
	Long:  "Use this before 'ags analyze' to pick the sales, region, product and date columns.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := colLoad.load(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if colJSON {
			b, err := utils.PrettyJSON(map[string]any{
				"dataset": raw.Name(),
				"rows":    raw.Len(),
				"columns": raw.Schema(),
				"preview": raw.Head(colRows),
			})
			if err != nil {
				return err
			}
			_, err = w.Write(append(b, '\n'))
			return err
		}

		fmt.Fprintf(w, "%s: %d rows, %d columns\n\n", raw.Name(), raw.Len(), len(raw.Columns()))
		for _, c := range raw.Schema() {
			fmt.Fprintf(w, "  - %s (%s)\n", c.Name, c.Kind)
		}
		if rows := raw.Head(colRows); len(rows) > 0 {
			fmt.Fprintf(w, "\nData Preview (first %d rows):\n\n", len(rows))
			fmt.Fprintf(w, "| %s |\n", strings.Join(raw.Columns(), " | "))
			fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(raw.Columns())))
			for _, r := range rows {
				fmt.Fprintf(w, "| %s |\n", strings.Join(r, " | "))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	colLoad.register(columnsCmd.Flags())
	columnsCmd.Flags().IntVar(&colRows, "rows", 5, "number of preview rows")
	columnsCmd.Flags().BoolVar(&colJSON, "json", false, "print as JSON")
}
