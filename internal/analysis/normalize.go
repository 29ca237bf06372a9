package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/ags-analyzer/internal/dataset"
)

// maxInvalidSamples bounds how many offending date cells a ValueError lists.
const maxInvalidSamples = 5

// Date layouts tried in order; month-first forms win over day-first ones.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006-01",
	"20060102",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01-02-2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"Mon, 02 Jan 2006",
	// day-first fallbacks
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
	"02/01/2006 15:04",
	"02/01/06",
}

// Excel stores dates as days since 1899-12-30.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Normalize validates mapping against raw and builds the canonical dataset.
// Nothing is returned unless every check passes; the raw dataset is not modified.
func Normalize(raw *dataset.Raw, mapping ColumnMapping) (*CanonicalDataset, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	for _, r := range Roles {
		if !raw.HasColumn(mapping[r]) {
			return nil, &SchemaError{Kind: ErrUnknownColumn, Roles: []Role{r}, Column: mapping[r]}
		}
	}

	df := raw.Frame()

	// Unselected columns that would collide with a canonical or derived name.
	selected := mapping.selected()
	var drop []string
	for _, name := range df.Names() {
		if selected[name] {
			continue
		}
		if isCanonicalRoleColumn(name) || name == ColYear || name == ColMonth {
			drop = append(drop, name)
		}
	}
	if len(drop) > 0 {
		df = df.Drop(drop)
	}

	// Rename through temporary names so swapped picks (sales=Region,
	// region=Sales) never meet an existing column.
	for _, r := range Roles {
		df = df.Rename(tempName(r), mapping[r])
	}
	for _, r := range Roles {
		df = df.Rename(r.Canonical(), tempName(r))
	}
	if df.Err != nil {
		return nil, fmt.Errorf("normalize columns: %w", df.Err)
	}

	out := &CanonicalDataset{source: raw.Name()}

	salesCol := df.Col(ColSales)
	switch salesCol.Type() {
	case series.Int, series.Float:
	default:
		return nil, &TypeError{Kind: ErrNonNumericSales, Role: RoleSales, Column: mapping[RoleSales], Found: string(salesCol.Type())}
	}
	for i, isNaN := range salesCol.IsNaN() {
		if isNaN {
			return nil, &TypeError{Kind: ErrNonNumericSales, Role: RoleSales, Column: mapping[RoleSales], Found: string(salesCol.Type()), Row: i + 1}
		}
	}
	out.sales = salesCol.Float()

	var err error
	if out.regions, err = labels(df.Col(ColRegion), RoleRegion, mapping); err != nil {
		return nil, err
	}
	if out.products, err = labels(df.Col(ColProduct), RoleProduct, mapping); err != nil {
		return nil, err
	}
	if out.dates, err = parseDates(df.Col(ColOrderDate), mapping[RoleDate], raw.Format() == "xlsx"); err != nil {
		return nil, err
	}
	out.deriveCalendar()

	names := df.Names()
	types := df.Types()
	for i, name := range names {
		out.order = append(out.order, name)
		if isCanonicalRoleColumn(name) {
			continue
		}
		out.extra = append(out.extra, Column{
			Name:   name,
			Kind:   string(types[i]),
			Values: df.Col(name).Records(),
		})
	}
	out.order = append(out.order, ColYear, ColMonth)
	return out, nil
}

func tempName(r Role) string { return "\x00role:" + string(r) }

func labels(s series.Series, r Role, mapping ColumnMapping) ([]string, error) {
	if s.Type() != series.String {
		return nil, &TypeError{Kind: ErrNonCategoricalColumn, Role: r, Column: mapping[r], Found: string(s.Type())}
	}
	vals := s.Records()
	present := 0
	for i, isNaN := range s.IsNaN() {
		if isNaN {
			vals[i] = MissingLabel
			continue
		}
		present++
	}
	if present == 0 {
		return nil, &TypeError{Kind: ErrNonCategoricalColumn, Role: r, Column: mapping[r], Found: "empty"}
	}
	return vals, nil
}

func parseDates(s series.Series, column string, excelSerials bool) ([]time.Time, error) {
	numeric := s.Type() == series.Int || s.Type() == series.Float
	records := s.Records()
	missing := s.IsNaN()
	out := make([]time.Time, len(records))
	verr := &ValueError{Kind: ErrInvalidDateValues, Column: column, Total: len(records)}
	for i, v := range records {
		var (
			t  time.Time
			ok bool
		)
		switch {
		case missing[i]:
		case numeric && excelSerials:
			t, ok = excelSerialDate(v)
		default:
			t, ok = parseDate(v)
		}
		if !ok {
			verr.Invalid++
			if missing[i] {
				v = ""
			}
			if len(verr.Samples) < maxInvalidSamples {
				verr.Samples = append(verr.Samples, InvalidValue{Row: i + 1, Value: v})
			}
			continue
		}
		out[i] = t
	}
	if verr.Invalid > 0 {
		return nil, verr
	}
	return out, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func excelSerialDate(s string) (time.Time, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f > 2958465 || math.IsNaN(f) {
		return time.Time{}, false
	}
	days := math.Floor(f)
	secs := math.Round((f - days) * 86400)
	return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), true
}
