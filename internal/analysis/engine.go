package analysis

import (
	"sort"

	"github.com/KaramelBytes/ags-analyzer/internal/dataset"
)

// Labels of the basic metrics, in display order.
const (
	MetricTotalRows   = "Total Rows"
	MetricTotalSales  = "Total Sales"
	MetricAvgSales    = "Average Sales"
	MetricMedianSales = "Median Sales"
	MetricStdSales    = "Sales Std Dev"
	MetricRegions     = "Number of Regions"
	MetricProducts    = "Number of Products"
)

// Metrics are the global scalar aggregates of a dataset. Mean, median and
// standard deviation are NaN when undefined; counts and sums are zero.
type Metrics struct {
	TotalRows    int
	TotalSales   float64
	AverageSales float64
	MedianSales  float64
	SalesStdDev  float64
	RegionCount  int
	ProductCount int
}

// MetricEntry is one labelled metric value.
type MetricEntry struct {
	Label string
	Value float64
}

// Entries lists the metrics under their display labels in fixed order.
func (m Metrics) Entries() []MetricEntry {
	return []MetricEntry{
		{MetricTotalRows, float64(m.TotalRows)},
		{MetricTotalSales, m.TotalSales},
		{MetricAvgSales, m.AverageSales},
		{MetricMedianSales, m.MedianSales},
		{MetricStdSales, m.SalesStdDev},
		{MetricRegions, float64(m.RegionCount)},
		{MetricProducts, float64(m.ProductCount)},
	}
}

// GroupTotal is the summed sales of one group key.
type GroupTotal struct {
	Key   string  `json:"key"`
	Sales float64 `json:"sales"`
}

// YearTotal is the summed sales of one calendar year.
type YearTotal struct {
	Year  int     `json:"year"`
	Sales float64 `json:"sales"`
}

// Analyzer answers aggregate queries over one canonical dataset. Queries are
// pure and safe for concurrent use.
type Analyzer struct {
	ds *CanonicalDataset
}

// NewAnalyzer normalizes raw with mapping and wraps the result.
func NewAnalyzer(raw *dataset.Raw, mapping ColumnMapping) (*Analyzer, error) {
	ds, err := Normalize(raw, mapping)
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

// New wraps an already normalized dataset.
func New(ds *CanonicalDataset) *Analyzer {
	if ds == nil {
		ds = &CanonicalDataset{}
	}
	return &Analyzer{ds: ds}
}

// Dataset returns the underlying canonical dataset.
func (a *Analyzer) Dataset() *CanonicalDataset { return a.ds }

// BasicMetrics computes the global metrics.
func (a *Analyzer) BasicMetrics() Metrics {
	var s summary
	for _, v := range a.ds.sales {
		s.add(v)
	}
	return Metrics{
		TotalRows:    a.ds.Len(),
		TotalSales:   s.sum,
		AverageSales: s.Mean(),
		MedianSales:  median(a.ds.sales),
		SalesStdDev:  s.Std(),
		RegionCount:  distinct(a.ds.regions),
		ProductCount: distinct(a.ds.products),
	}
}

// SalesByRegion sums sales per region, largest first.
func (a *Analyzer) SalesByRegion() []GroupTotal {
	return sortDesc(groupSum(a.ds.regions, a.ds.sales))
}

// SalesByProduct sums sales per product, largest first.
func (a *Analyzer) SalesByProduct() []GroupTotal {
	return sortDesc(groupSum(a.ds.products, a.ds.sales))
}

// SalesOverTime sums sales per month key, chronologically.
func (a *Analyzer) SalesOverTime() []GroupTotal {
	out := groupSum(a.ds.months, a.ds.sales)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SalesByYear sums sales per calendar year, ascending.
func (a *Analyzer) SalesByYear() []YearTotal {
	idx := make(map[int]int)
	var out []YearTotal
	for i, y := range a.ds.years {
		j, ok := idx[y]
		if !ok {
			j = len(out)
			idx[y] = j
			out = append(out, YearTotal{Year: y})
		}
		out[j].Sales += a.ds.sales[i]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// groupSum accumulates in row order so sums are reproducible.
func groupSum(keys []string, sales []float64) []GroupTotal {
	idx := make(map[string]int)
	var out []GroupTotal
	for i, k := range keys {
		j, ok := idx[k]
		if !ok {
			j = len(out)
			idx[k] = j
			out = append(out, GroupTotal{Key: k})
		}
		out[j].Sales += sales[i]
	}
	return out
}

func sortDesc(g []GroupTotal) []GroupTotal {
	sort.Slice(g, func(i, j int) bool {
		if g[i].Sales != g[j].Sales {
			return g[i].Sales > g[j].Sales
		}
		return g[i].Key < g[j].Key
	})
	return g
}
