package retrieval

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
)

func sampleAnalyzer() *analysis.Analyzer {
	d := func(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }
	return analysis.New(analysis.NewCanonical("orders",
		[]float64{100, 200, 50},
		[]string{"East", "West", "East"},
		[]string{"A", "B", "B"},
		[]time.Time{d(2023, 12), d(2024, 1), d(2024, 1)},
	))
}

func TestAsPayloadCarriesEveryView(t *testing.T) {
	a := sampleAnalyzer()
	p := New(a).AsPayload()

	assert.Equal(t, Float(350), p.GlobalMetrics.TotalSales)
	assert.InDelta(t, 116.6667, float64(p.GlobalMetrics.AverageSales), 1e-4)
	assert.Equal(t, Float(100), p.GlobalMetrics.MedianSales)
	assert.Equal(t, a.SalesByRegion(), p.SalesByRegion)
	assert.Equal(t, a.SalesByProduct(), p.SalesByProduct)
	assert.Equal(t, a.SalesOverTime(), p.SalesOverTime)
	assert.Equal(t, a.SalesByYear(), p.SalesByYear)
}

func TestPayloadJSONKeys(t *testing.T) {
	b, err := New(sampleAnalyzer()).AsPayload().JSON()
	require.NoError(t, err)

	var generic map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &generic))
	for _, k := range []string{"global_metrics", "sales_by_region", "sales_by_product", "sales_over_time", "sales_by_year"} {
		assert.Contains(t, generic, k)
	}
	assert.Len(t, generic, 5)
	assert.JSONEq(t, `[{"key":"West","sales":200},{"key":"East","sales":150}]`, string(generic["sales_by_region"]))
	assert.JSONEq(t, `[{"year":2023,"sales":100},{"year":2024,"sales":250}]`, string(generic["sales_by_year"]))
}

func TestEmptyDatasetPayloadUsesNull(t *testing.T) {
	empty := analysis.New(analysis.NewCanonical("empty", nil, nil, nil, nil))
	b, err := New(empty).AsPayload().JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"global_metrics": {"total_sales": 0, "average_sales": null, "median_sales": null, "std_dev_sales": null},
		"sales_by_region": [],
		"sales_by_product": [],
		"sales_over_time": [],
		"sales_by_year": []
	}`, string(b))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	single := analysis.New(analysis.NewCanonical("one", []float64{5}, []string{"East"}, []string{"A"},
		[]time.Time{time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)}))
	p := New(single).AsPayload()
	require.NoError(t, p.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p.SalesOverTime, got.SalesOverTime)
	assert.Equal(t, Float(5), got.GlobalMetrics.TotalSales)
	assert.True(t, math.IsNaN(float64(got.GlobalMetrics.StdDevSales)))
}
