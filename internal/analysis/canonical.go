package analysis

import (
	"strconv"
	"time"
)

// MissingLabel stands in for an empty Region or Product cell so that grouping
// never drops a row.
const MissingLabel = "(missing)"

// Column is an untouched passthrough column carried alongside the role columns.
type Column struct {
	Name   string
	Kind   string
	Values []string
}

// CanonicalDataset is a normalized sales table. Every invariant is checked once
// by Normalize; the value is never mutated afterwards and accessors return copies.
type CanonicalDataset struct {
	source   string
	order    []string
	sales    []float64
	regions  []string
	products []string
	dates    []time.Time
	years    []int
	months   []string
	extra    []Column
}

// Source returns the name of the raw dataset this was built from.
func (c *CanonicalDataset) Source() string { return c.source }

// Len returns the number of rows.
func (c *CanonicalDataset) Len() int { return len(c.sales) }

// Columns returns the column names: role and passthrough columns in source
// order followed by Year and Month.
func (c *CanonicalDataset) Columns() []string { return append([]string(nil), c.order...) }

func (c *CanonicalDataset) Sales() []float64 { return append([]float64(nil), c.sales...) }
func (c *CanonicalDataset) Regions() []string { return append([]string(nil), c.regions...) }
func (c *CanonicalDataset) Products() []string { return append([]string(nil), c.products...) }
func (c *CanonicalDataset) Dates() []time.Time { return append([]time.Time(nil), c.dates...) }
func (c *CanonicalDataset) Years() []int { return append([]int(nil), c.years...) }
func (c *CanonicalDataset) Months() []string { return append([]string(nil), c.months...) }

// Passthrough returns the values of an untouched source column.
func (c *CanonicalDataset) Passthrough(name string) (Column, bool) {
	for _, col := range c.extra {
		if col.Name == name {
			return Column{Name: col.Name, Kind: col.Kind, Values: append([]string(nil), col.Values...)}, true
		}
	}
	return Column{}, false
}

// Records renders the dataset as a header row followed by data rows.
func (c *CanonicalDataset) Records() [][]string {
	out := make([][]string, 0, len(c.sales)+1)
	out = append(out, c.Columns())
	for i := range c.sales {
		row := make([]string, 0, len(c.order))
		for _, name := range c.order {
			row = append(row, c.cell(name, i))
		}
		out = append(out, row)
	}
	return out
}

func (c *CanonicalDataset) cell(name string, i int) string {
	switch name {
	case ColSales:
		return strconv.FormatFloat(c.sales[i], 'f', -1, 64)
	case ColRegion:
		return c.regions[i]
	case ColProduct:
		return c.products[i]
	case ColOrderDate:
		return c.dates[i].Format(time.RFC3339)
	case ColYear:
		return strconv.Itoa(c.years[i])
	case ColMonth:
		return c.months[i]
	}
	for _, col := range c.extra {
		if col.Name == name {
			return col.Values[i]
		}
	}
	return ""
}

// NewCanonical assembles a dataset directly from typed rows. The slices must
// have equal length; Year and Month are derived from dates.
func NewCanonical(source string, sales []float64, regions, products []string, dates []time.Time) *CanonicalDataset {
	c := &CanonicalDataset{
		source:   source,
		order:    []string{ColSales, ColRegion, ColProduct, ColOrderDate, ColYear, ColMonth},
		sales:    append([]float64(nil), sales...),
		regions:  append([]string(nil), regions...),
		products: append([]string(nil), products...),
		dates:    append([]time.Time(nil), dates...),
	}
	c.deriveCalendar()
	return c
}

func (c *CanonicalDataset) deriveCalendar() {
	c.years = make([]int, len(c.dates))
	c.months = make([]string, len(c.dates))
	for i, d := range c.dates {
		c.years[i] = d.Year()
		c.months[i] = d.Format(monthLayout)
	}
}

const monthLayout = "2006-01"
