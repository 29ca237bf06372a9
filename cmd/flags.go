package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/KaramelBytes/ags-analyzer/internal/analysis"
	"github.com/KaramelBytes/ags-analyzer/internal/dataset"
	"github.com/KaramelBytes/ags-analyzer/internal/metrics"
)

// loadFlags control how a dataset file is read.
type loadFlags struct {
	Delimiter  string
	SheetName  string
	SheetIndex int
}

func (l *loadFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&l.Delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (default by extension)")
	fs.StringVar(&l.SheetName, "sheet-name", "", "XLSX: sheet name to read")
	fs.IntVar(&l.SheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (l *loadFlags) options() (dataset.Options, error) {
	opt := dataset.Options{SheetName: l.SheetName, SheetIndex: l.SheetIndex}
	switch l.Delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	case "\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", l.Delimiter)
	}
	return opt, nil
}

func (l *loadFlags) load(path string) (*dataset.Raw, error) {
	opt, err := l.options()
	if err != nil {
		return nil, err
	}
	return dataset.LoadFile(path, opt)
}

// mappingFlags pick the source column for each role. Roles left empty are
// reported by the normalizer as missing.
type mappingFlags struct {
	Sales    string
	Region   string
	Product  string
	Date     string
	Currency string
}

func (m *mappingFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&m.Sales, "sales", "", "column holding the sales amount")
	fs.StringVar(&m.Region, "region", "", "column holding the region")
	fs.StringVar(&m.Product, "product", "", "column holding the product or service")
	fs.StringVar(&m.Date, "date", "", "column holding the order date")
	fs.StringVar(&m.Currency, "currency", "", "currency label for display, e.g. USD (default from config)")
}

func (m *mappingFlags) mapping() analysis.ColumnMapping {
	out := analysis.ColumnMapping{}
	for role, col := range map[analysis.Role]string{
		analysis.RoleSales:   m.Sales,
		analysis.RoleRegion:  m.Region,
		analysis.RoleProduct: m.Product,
		analysis.RoleDate:    m.Date,
	} {
		if col = strings.TrimSpace(col); col != "" {
			out[role] = col
		}
	}
	return out
}

func (m *mappingFlags) currency() string {
	if c := strings.TrimSpace(m.Currency); c != "" {
		return c
	}
	if cfg != nil {
		return cfg.Currency
	}
	return ""
}

// analyzeFile loads path and normalizes it under the flag mapping.
func analyzeFile(path string, l *loadFlags, m *mappingFlags) (*dataset.Raw, *analysis.Analyzer, error) {
	raw, err := l.load(path)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("dataset loaded", "dataset", raw.Name(), "rows", raw.Len(), "columns", raw.Columns())

	mapping := m.mapping()
	start := time.Now()
	a, err := analysis.NewAnalyzer(raw, mapping)
	metrics.RecordNormalization(time.Since(start), raw.Len(), err)
	if err != nil {
		return raw, nil, err
	}
	log.Debug("dataset normalized", "mapping", mapping.String(), "duration", time.Since(start))
	return raw, a, nil
}
