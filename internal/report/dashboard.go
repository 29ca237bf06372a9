package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
)

// yearsShown is how many trailing years the yearly panel keeps.
const yearsShown = 4

// Bar is one labelled value of a panel.
type Bar struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Panel is one chart of the dashboard.
type Panel struct {
	Title string `json:"title"`
	Axis  string `json:"axis"`
	Bars  []Bar  `json:"bars"`
}

// Dashboard holds the four panels in display order. Panels whose view is
// empty are omitted.
type Dashboard struct {
	Currency string  `json:"currency,omitempty"`
	Panels   []Panel `json:"panels"`
}

// BuildDashboard lays out the panels from the retrieval payload: monthly
// sales of the latest year, the last four years, products and regions.
func BuildDashboard(p retrieval.Payload, currency string) Dashboard {
	label := SalesLabel(currency)
	d := Dashboard{Currency: currency, Panels: []Panel{}}

	if months, year := latestYearMonths(p.SalesOverTime); len(months) > 0 {
		d.Panels = append(d.Panels, panel(fmt.Sprintf("Monthly Sales - %d", year), label, months))
	}
	if years := lastYears(p.SalesByYear, yearsShown); len(years) > 0 {
		g := make([]analysis.GroupTotal, len(years))
		for i, y := range years {
			g[i] = analysis.GroupTotal{Key: strconv.Itoa(y.Year), Sales: y.Sales}
		}
		d.Panels = append(d.Panels, panel(fmt.Sprintf("Sales by Year (Last %d Years)", yearsShown), label, g))
	}
	if len(p.SalesByProduct) > 0 {
		d.Panels = append(d.Panels, panel("Sales by Product / Service", label, p.SalesByProduct))
	}
	if len(p.SalesByRegion) > 0 {
		d.Panels = append(d.Panels, panel("Sales by Region", label, p.SalesByRegion))
	}
	return d
}

func panel(title, axis string, g []analysis.GroupTotal) Panel {
	bars := make([]Bar, len(g))
	for i, v := range g {
		bars[i] = Bar{Label: v.Key, Value: v.Sales, Display: HumanReadable(v.Sales)}
	}
	return Panel{Title: title, Axis: axis, Bars: bars}
}

// latestYearMonths keeps the "YYYY-MM" entries of the greatest year.
func latestYearMonths(g []analysis.GroupTotal) ([]analysis.GroupTotal, int) {
	year := -1
	for _, v := range g {
		if y, ok := monthYear(v.Key); ok && y > year {
			year = y
		}
	}
	if year < 0 {
		return nil, 0
	}
	var out []analysis.GroupTotal
	for _, v := range g {
		if y, ok := monthYear(v.Key); ok && y == year {
			out = append(out, v)
		}
	}
	return out, year
}

func monthYear(key string) (int, bool) {
	i := strings.IndexByte(key, '-')
	if i <= 0 {
		return 0, false
	}
	y, err := strconv.Atoi(key[:i])
	return y, err == nil
}

// lastYears returns the trailing n entries of an ascending year view.
func lastYears(y []analysis.YearTotal, n int) []analysis.YearTotal {
	if len(y) <= n {
		return y
	}
	return y[len(y)-n:]
}

// Render draws the dashboard as horizontal text bar charts.
func (d Dashboard) Render(w io.Writer) error {
	t := CurrentTheme()
	if len(d.Panels) == 0 {
		_, err := fmt.Fprintln(w, "No data to display.")
		return err
	}
	for i, p := range d.Panels {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := renderPanel(w, t, p); err != nil {
			return err
		}
	}
	return nil
}

func renderPanel(w io.Writer, t Theme, p Panel) error {
	var b strings.Builder
	b.WriteString(p.Title)
	b.WriteByte('\n')
	if t.Style == "whitegrid" {
		b.WriteString(strings.Repeat(string(t.Rule), utf8.RuneCountInString(p.Title)))
		b.WriteByte('\n')
	}

	labelWidth, peak := 0, 0.0
	for _, bar := range p.Bars {
		if n := utf8.RuneCountInString(bar.Label); n > labelWidth {
			labelWidth = n
		}
		if bar.Value > peak {
			peak = bar.Value
		}
	}
	for _, bar := range p.Bars {
		n := 0
		if peak > 0 && bar.Value > 0 {
			n = int(bar.Value / peak * float64(t.BarWidth))
			if n == 0 {
				n = 1
			}
		}
		pad := labelWidth - utf8.RuneCountInString(bar.Label)
		fmt.Fprintf(&b, "  %s%s  %s %s\n", bar.Label, strings.Repeat(" ", pad), strings.Repeat(string(t.BarRune), n), bar.Display)
	}
	fmt.Fprintf(&b, "  (%s)\n", p.Axis)
	_, err := io.WriteString(w, b.String())
	return err
}
