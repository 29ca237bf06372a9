// Package retrieval flattens aggregate views into one serializable snapshot,
// the only form in which sales data reaches the insight layer.
package retrieval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/utils"
)

// Source is the read side of an analyzer.
type Source interface {
	BasicMetrics() analysis.Metrics
	SalesByRegion() []analysis.GroupTotal
	SalesByProduct() []analysis.GroupTotal
	SalesOverTime() []analysis.GroupTotal
	SalesByYear() []analysis.YearTotal
}

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// GlobalMetrics are the scalar sales statistics.
type GlobalMetrics struct {
	TotalSales   Float `json:"total_sales"`
	AverageSales Float `json:"average_sales"`
	MedianSales  Float `json:"median_sales"`
	StdDevSales  Float `json:"std_dev_sales"`
}

// Payload is a point-in-time snapshot of every aggregate view.
type Payload struct {
	GlobalMetrics  GlobalMetrics         `json:"global_metrics"`
	SalesByRegion  []analysis.GroupTotal `json:"sales_by_region"`
	SalesByProduct []analysis.GroupTotal `json:"sales_by_product"`
	SalesOverTime  []analysis.GroupTotal `json:"sales_over_time"`
	SalesByYear    []analysis.YearTotal  `json:"sales_by_year"`
}

// Retriever exposes an analyzer's views as a Payload.
type Retriever struct {
	src Source
}

func New(src Source) *Retriever { return &Retriever{src: src} }

// AsPayload collects the current views. No new figures are computed here.
func (r *Retriever) AsPayload() Payload {
	m := r.src.BasicMetrics()
	return Payload{
		GlobalMetrics: GlobalMetrics{
			TotalSales:   Float(m.TotalSales),
			AverageSales: Float(m.AverageSales),
			MedianSales:  Float(m.MedianSales),
			StdDevSales:  Float(m.SalesStdDev),
		},
		SalesByRegion:  nonNil(r.src.SalesByRegion()),
		SalesByProduct: nonNil(r.src.SalesByProduct()),
		SalesOverTime:  nonNil(r.src.SalesOverTime()),
		SalesByYear:    nonNilYears(r.src.SalesByYear()),
	}
}

// empty views encode as [] rather than null
func nonNil(g []analysis.GroupTotal) []analysis.GroupTotal {
	if g == nil {
		return []analysis.GroupTotal{}
	}
	return g
}

func nonNilYears(y []analysis.YearTotal) []analysis.YearTotal {
	if y == nil {
		return []analysis.YearTotal{}
	}
	return y
}

// JSON returns the indented JSON encoding of the payload.
func (p Payload) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Save writes the payload atomically.
func (p Payload) Save(path string) error {
	b, err := p.JSON()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// Load reads a payload previously written by Save.
func Load(path string) (Payload, error) {
	var p Payload
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode payload %s: %w", path, err)
	}
	return p, nil
}
