package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsTwoRows(t *testing.T) {
	a, err := NewAnalyzer(ordersRaw(t), IdentityMapping())
	require.NoError(t, err)

	m := a.BasicMetrics()
	assert.Equal(t, 2, m.TotalRows)
	assert.Equal(t, 300.0, m.TotalSales)
	assert.Equal(t, 150.0, m.AverageSales)
	assert.Equal(t, 150.0, m.MedianSales)
	assert.InDelta(t, 70.7106781, m.SalesStdDev, 1e-6)
	assert.Equal(t, 2, m.RegionCount)
	assert.Equal(t, 2, m.ProductCount)

	entries := m.Entries()
	require.Len(t, entries, 7)
	assert.Equal(t, MetricTotalRows, entries[0].Label)
	assert.Equal(t, MetricProducts, entries[6].Label)
}

func TestEmptyDatasetYieldsNaNNotZero(t *testing.T) {
	a := New(NewCanonical("empty", nil, nil, nil, nil))

	m := a.BasicMetrics()
	assert.Equal(t, 0, m.TotalRows)
	assert.Equal(t, 0.0, m.TotalSales)
	assert.True(t, math.IsNaN(m.AverageSales))
	assert.True(t, math.IsNaN(m.MedianSales))
	assert.True(t, math.IsNaN(m.SalesStdDev))
	assert.Equal(t, 0, m.RegionCount)
	assert.Equal(t, 0, m.ProductCount)

	assert.Empty(t, a.SalesByRegion())
	assert.Empty(t, a.SalesByProduct())
	assert.Empty(t, a.SalesOverTime())
	assert.Empty(t, a.SalesByYear())
}

func TestSingleRowStdIsNaN(t *testing.T) {
	a := New(NewCanonical("one", []float64{42}, []string{"East"}, []string{"A"},
		[]time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))
	m := a.BasicMetrics()
	assert.Equal(t, 42.0, m.AverageSales)
	assert.Equal(t, 42.0, m.MedianSales)
	assert.True(t, math.IsNaN(m.SalesStdDev))
}

func TestGroupViews(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	ds := NewCanonical("orders",
		[]float64{10, 20, 30, 40, 5},
		[]string{"East", "West", "East", "North", "West"},
		[]string{"A", "B", "B", "C", "A"},
		[]time.Time{day(2023, 12, 1), day(2024, 1, 5), day(2024, 1, 20), day(2022, 6, 30), day(2024, 3, 1)},
	)
	a := New(ds)

	assert.Equal(t, []GroupTotal{{"East", 40}, {"North", 40}, {"West", 25}}, a.SalesByRegion())
	assert.Equal(t, []GroupTotal{{"B", 50}, {"C", 40}, {"A", 15}}, a.SalesByProduct())
	assert.Equal(t, []GroupTotal{{"2022-06", 40}, {"2023-12", 10}, {"2024-01", 50}, {"2024-03", 5}}, a.SalesOverTime())
	assert.Equal(t, []YearTotal{{2022, 40}, {2023, 10}, {2024, 55}}, a.SalesByYear())
}

func TestMedianEvenCount(t *testing.T) {
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(median(nil)))
}

func randomDataset(seed int64, n int) *CanonicalDataset {
	rng := rand.New(rand.NewSource(seed))
	regions := []string{"East", "West", "North", "South"}
	products := []string{"A", "B", "C", "D", "E"}
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	sales := make([]float64, n)
	rs := make([]string, n)
	ps := make([]string, n)
	ds := make([]time.Time, n)
	for i := 0; i < n; i++ {
		sales[i] = math.Round(rng.Float64()*100000) / 100
		rs[i] = regions[rng.Intn(len(regions))]
		ps[i] = products[rng.Intn(len(products))]
		ds[i] = base.AddDate(0, 0, rng.Intn(5*365))
	}
	return NewCanonical(fmt.Sprintf("random-%d", seed), sales, rs, ps, ds)
}

func sumGroups(g []GroupTotal) float64 {
	var s float64
	for _, v := range g {
		s += v.Sales
	}
	return s
}

func TestSumConsistency(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		a := New(randomDataset(seed, 500))
		total := a.BasicMetrics().TotalSales
		assert.InDelta(t, total, sumGroups(a.SalesByRegion()), 1e-6)
		assert.InDelta(t, total, sumGroups(a.SalesByProduct()), 1e-6)
		assert.InDelta(t, total, sumGroups(a.SalesOverTime()), 1e-6)
		var years float64
		for _, y := range a.SalesByYear() {
			years += y.Sales
		}
		assert.InDelta(t, total, years, 1e-6)
	}
}

func TestSortInvariants(t *testing.T) {
	a := New(randomDataset(7, 800))

	for _, view := range [][]GroupTotal{a.SalesByRegion(), a.SalesByProduct()} {
		for i := 1; i < len(view); i++ {
			assert.GreaterOrEqual(t, view[i-1].Sales, view[i].Sales)
		}
	}
	months := a.SalesOverTime()
	for i := 1; i < len(months); i++ {
		assert.Less(t, months[i-1].Key, months[i].Key)
	}
	years := a.SalesByYear()
	for i := 1; i < len(years); i++ {
		assert.Less(t, years[i-1].Year, years[i].Year)
	}
}

func TestQueriesAreRepeatable(t *testing.T) {
	a := New(randomDataset(3, 200))
	assert.Equal(t, a.SalesByRegion(), a.SalesByRegion())
	assert.Equal(t, a.SalesOverTime(), a.SalesOverTime())

	// callers cannot reach into the dataset through returned slices
	v := a.SalesByProduct()
	v[0].Sales = -1
	assert.NotEqual(t, -1.0, a.SalesByProduct()[0].Sales)
	s := a.Dataset().Sales()
	s[0] = -1
	assert.NotEqual(t, -1.0, a.Dataset().Sales()[0])
}
