package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds carried by the normalization errors; match with errors.Is.
var (
	ErrMissingKeys          = errors.New("schema missing required keys")
	ErrUnknownRole          = errors.New("schema has unknown roles")
	ErrDuplicateColumn      = errors.New("each selected column must be unique")
	ErrUnknownColumn        = errors.New("column not found")
	ErrNonNumericSales      = errors.New("selected sales column must be numeric")
	ErrNonCategoricalColumn = errors.New("selected column must be categorical")
	ErrInvalidDateValues    = errors.New("date column contains invalid or non-date values")
)

// SchemaError reports a mapping that cannot be applied to the dataset:
// missing or unknown roles, a reused column, or a column that does not exist.
type SchemaError struct {
	Kind   error
	Roles  []Role
	Column string
}

func (e *SchemaError) Error() string {
	switch e.Kind {
	case ErrMissingKeys:
		return fmt.Sprintf("schema missing required keys: %s", joinRoles(e.Roles))
	case ErrUnknownRole:
		return fmt.Sprintf("schema has unknown roles: %s (use sales|region|product|date)", e.Column)
	case ErrDuplicateColumn:
		return fmt.Sprintf("column '%s' selected for both %s; each selected column must be unique", e.Column, joinRoles(e.Roles))
	case ErrUnknownColumn:
		return fmt.Sprintf("column '%s' not found for role '%s'", e.Column, joinRoles(e.Roles))
	}
	return fmt.Sprintf("schema error: %v", e.Kind)
}

func (e *SchemaError) Unwrap() error { return e.Kind }

func (e *SchemaError) MetricLabel() string { return "schema_error" }

// TypeError reports a role column whose values have the wrong semantics.
type TypeError struct {
	Kind   error
	Role   Role
	Column string // source column name as picked by the user
	Found  string // detected kind of the column
	Row    int    // 1-based data row of a missing value, 0 when the whole column is mistyped
}

func (e *TypeError) Error() string {
	switch e.Kind {
	case ErrNonNumericSales:
		if e.Row > 0 {
			return fmt.Sprintf("selected Sales column '%s' must be numeric: row %d is missing a value", e.Column, e.Row)
		}
		return fmt.Sprintf("selected Sales column '%s' must be numeric (found %s values)", e.Column, e.Found)
	case ErrNonCategoricalColumn:
		return fmt.Sprintf("selected %s column '%s' must be categorical (found %s values)", e.Role.Canonical(), e.Column, e.Found)
	}
	return fmt.Sprintf("type error: %v", e.Kind)
}

func (e *TypeError) Unwrap() error { return e.Kind }

func (e *TypeError) MetricLabel() string { return "type_error" }

// InvalidValue is one rejected cell.
type InvalidValue struct {
	Row   int    `json:"row"`
	Value string `json:"value"`
}

// ValueError reports unparseable values that invalidate the whole dataset.
type ValueError struct {
	Kind    error
	Column  string
	Invalid int
	Total   int
	Samples []InvalidValue // first few offending cells
}

func (e *ValueError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "date column '%s' contains invalid or non-date values (%d of %d rows)", e.Column, e.Invalid, e.Total)
	if len(e.Samples) > 0 {
		b.WriteString(": ")
		for i, s := range e.Samples {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "row %d %q", s.Row, s.Value)
		}
	}
	return b.String()
}

func (e *ValueError) Unwrap() error { return e.Kind }

func (e *ValueError) MetricLabel() string { return "value_error" }

// IsInputError reports whether err is one of the normalization errors a caller
// should surface to the user as a request for corrected input.
func IsInputError(err error) bool {
	var se *SchemaError
	var te *TypeError
	var ve *ValueError
	return errors.As(err, &se) || errors.As(err, &te) || errors.As(err, &ve)
}

func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	return strings.Join(parts, ", ")
}
