// Package report renders the human-facing views of an analysis: a text
// dashboard of the four aggregate panels and a metric summary table.
package report

import "sync"

// Theme controls how panels are drawn. It is set once per process.
type Theme struct {
	Style    string // "whitegrid" draws a rule under panel titles
	BarWidth int
	BarRune  rune
	Rule     rune
}

// DefaultTheme is used when InitTheme is never called.
var DefaultTheme = Theme{Style: "whitegrid", BarWidth: 40, BarRune: '█', Rule: '─'}

var (
	themeOnce sync.Once
	theme     = DefaultTheme
)

// InitTheme installs t as the process theme. Only the first call has effect;
// later calls return the theme already in place.
func InitTheme(t Theme) Theme {
	themeOnce.Do(func() {
		if t.BarWidth <= 0 {
			t.BarWidth = DefaultTheme.BarWidth
		}
		if t.BarRune == 0 {
			t.BarRune = DefaultTheme.BarRune
		}
		if t.Rule == 0 {
			t.Rule = DefaultTheme.Rule
		}
		theme = t
	})
	return theme
}

// CurrentTheme returns the active theme.
func CurrentTheme() Theme {
	themeOnce.Do(func() {})
	return theme
}
