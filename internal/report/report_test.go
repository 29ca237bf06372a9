package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
)

func TestHumanReadable(t *testing.T) {
	cases := map[float64]string{
		1_234_567:  "1.2M",
		-2_500_000: "-2.5M",
		12_345:     "12K",
		999:        "999",
		42.9:       "42",
		0:          "0",
	}
	for in, want := range cases {
		assert.Equal(t, want, HumanReadable(in), "input %v", in)
	}
	assert.Equal(t, "n/a", HumanReadable(math.NaN()))
}

func TestAmountAndCount(t *testing.T) {
	assert.Equal(t, "1,234,567.89", Amount(1234567.891))
	assert.Equal(t, "n/a", Amount(math.NaN()))
	assert.Equal(t, "12,000", Count(12000))
	assert.Equal(t, "Sales", SalesLabel(""))
	assert.Equal(t, "Sales (EUR)", SalesLabel("EUR"))
}

func samplePayload() retrieval.Payload {
	return retrieval.Payload{
		SalesOverTime: []analysis.GroupTotal{
			{Key: "2022-11", Sales: 10}, {Key: "2023-01", Sales: 20}, {Key: "2023-02", Sales: 30},
		},
		SalesByYear: []analysis.YearTotal{
			{Year: 2018, Sales: 1}, {Year: 2019, Sales: 2}, {Year: 2020, Sales: 3},
			{Year: 2021, Sales: 4}, {Year: 2022, Sales: 10}, {Year: 2023, Sales: 50},
		},
		SalesByProduct: []analysis.GroupTotal{{Key: "Widget", Sales: 40}, {Key: "Gadget", Sales: 20}},
		SalesByRegion:  []analysis.GroupTotal{{Key: "East", Sales: 60}},
	}
}

func TestBuildDashboard(t *testing.T) {
	d := BuildDashboard(samplePayload(), "USD")
	require.Len(t, d.Panels, 4)

	monthly := d.Panels[0]
	assert.Equal(t, "Monthly Sales - 2023", monthly.Title)
	assert.Equal(t, "Sales (USD)", monthly.Axis)
	require.Len(t, monthly.Bars, 2)
	assert.Equal(t, "2023-01", monthly.Bars[0].Label)

	yearly := d.Panels[1]
	require.Len(t, yearly.Bars, 4)
	assert.Equal(t, "2020", yearly.Bars[0].Label)
	assert.Equal(t, "2023", yearly.Bars[3].Label)

	assert.Equal(t, "Sales by Product / Service", d.Panels[2].Title)
	assert.Equal(t, "Sales by Region", d.Panels[3].Title)
}

func TestBuildDashboardOmitsEmptyViews(t *testing.T) {
	p := samplePayload()
	p.SalesOverTime = nil
	p.SalesByRegion = []analysis.GroupTotal{}
	d := BuildDashboard(p, "")
	require.Len(t, d.Panels, 2)
	assert.Equal(t, "Sales", d.Panels[0].Axis)

	var buf bytes.Buffer
	require.NoError(t, BuildDashboard(retrieval.Payload{}, "").Render(&buf))
	assert.Equal(t, "No data to display.\n", buf.String())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BuildDashboard(samplePayload(), "USD").Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "Sales by Region\n")
	assert.Contains(t, out, "(Sales (USD))")

	// the largest bar of a panel spans the full width
	th := CurrentTheme()
	full := strings.Repeat(string(th.BarRune), th.BarWidth)
	assert.Contains(t, out, "Widget  "+full+" 40")
}

func TestSummaryTable(t *testing.T) {
	m := analysis.Metrics{
		TotalRows: 1200, TotalSales: 1500.5, AverageSales: 1.25,
		MedianSales: 1, SalesStdDev: math.NaN(), RegionCount: 3, ProductCount: 2,
	}
	got := SummaryTable(m, "USD")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "| Metric | Value |", lines[0])
	assert.Equal(t, "| Total Rows | 1,200 |", lines[2])
	assert.Equal(t, "| Total Sales | 1,500.50 USD |", lines[3])
	assert.Equal(t, "| Sales Std Dev | n/a |", lines[6])
	assert.Equal(t, "| Number of Products | 2 |", lines[8])
}
