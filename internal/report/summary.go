package report

import (
	"strings"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
)

// SummaryTable renders the global metrics as a markdown Metric/Value table
// in the fixed metric order. Monetary rows carry the currency when given.
func SummaryTable(m analysis.Metrics, currency string) string {
	var b strings.Builder
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|---|---|\n")
	for _, e := range m.Entries() {
		b.WriteString("| ")
		b.WriteString(e.Label)
		b.WriteString(" | ")
		b.WriteString(formatEntry(e, currency))
		b.WriteString(" |\n")
	}
	return b.String()
}

func formatEntry(e analysis.MetricEntry, currency string) string {
	switch e.Label {
	case analysis.MetricTotalRows, analysis.MetricRegions, analysis.MetricProducts:
		return Count(int(e.Value))
	}
	s := Amount(e.Value)
	if currency != "" && s != "n/a" {
		s += " " + currency
	}
	return s
}
