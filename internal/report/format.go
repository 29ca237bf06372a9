package report

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// HumanReadable abbreviates axis values: 1.2M, 12K or a plain integer.
func HumanReadable(x float64) string {
	switch {
	case math.IsNaN(x) || math.IsInf(x, 0):
		return "n/a"
	case math.Abs(x) >= 1_000_000:
		return fmt.Sprintf("%.1fM", x/1_000_000)
	case math.Abs(x) >= 1_000:
		return fmt.Sprintf("%.0fK", x/1_000)
	default:
		return fmt.Sprintf("%d", int64(x))
	}
}

// Amount formats x with thousands separators and two decimals.
func Amount(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return printer.Sprintf("%.2f", x)
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// SalesLabel is the axis label for sales values.
func SalesLabel(currency string) string {
	if currency == "" {
		return "Sales"
	}
	return "Sales (" + currency + ")"
}
