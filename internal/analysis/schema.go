package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Role is one of the four semantic column purposes every analysis depends on.
type Role string

const (
	RoleSales   Role = "sales"
	RoleRegion  Role = "region"
	RoleProduct Role = "product"
	RoleDate    Role = "date"
)

// Roles lists the required roles in their fixed order.
var Roles = []Role{RoleSales, RoleRegion, RoleProduct, RoleDate}

// Canonical column names of a normalized dataset.
const (
	ColSales     = "Sales"
	ColRegion    = "Region"
	ColProduct   = "Product"
	ColOrderDate = "Order Date"
	ColYear      = "Year"
	ColMonth     = "Month"
)

var canonicalByRole = map[Role]string{
	RoleSales:   ColSales,
	RoleRegion:  ColRegion,
	RoleProduct: ColProduct,
	RoleDate:    ColOrderDate,
}

// Canonical returns the internal column name used for the role after normalization.
func (r Role) Canonical() string { return canonicalByRole[r] }

func (r Role) valid() bool {
	_, ok := canonicalByRole[r]
	return ok
}

// ParseRole resolves a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.valid() {
		return "", fmt.Errorf("unknown role %q (use sales|region|product|date)", s)
	}
	return r, nil
}

func isCanonicalRoleColumn(name string) bool {
	for _, c := range canonicalByRole {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnMapping maps each role to the raw column the user picked for it.
type ColumnMapping map[Role]string

// IdentityMapping maps every role onto its canonical column name.
func IdentityMapping() ColumnMapping {
	m := make(ColumnMapping, len(Roles))
	for _, r := range Roles {
		m[r] = r.Canonical()
	}
	return m
}

// Validate checks the mapping on its own, before any dataset column is touched:
// all four roles present, no unknown roles, and no source column reused.
func (m ColumnMapping) Validate() error {
	var missing []Role
	for _, r := range Roles {
		if _, ok := m[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Kind: ErrMissingKeys, Roles: missing}
	}
	if len(m) > len(Roles) {
		var extra []string
		for r := range m {
			if !r.valid() {
				extra = append(extra, string(r))
			}
		}
		sort.Strings(extra)
		return &SchemaError{Kind: ErrUnknownRole, Column: strings.Join(extra, ", ")}
	}
	owner := make(map[string]Role, len(Roles))
	for _, r := range Roles {
		col := m[r]
		if prev, ok := owner[col]; ok {
			return &SchemaError{Kind: ErrDuplicateColumn, Roles: []Role{prev, r}, Column: col}
		}
		owner[col] = r
	}
	return nil
}

func (m ColumnMapping) selected() map[string]bool {
	out := make(map[string]bool, len(m))
	for _, col := range m {
		out[col] = true
	}
	return out
}

func (m ColumnMapping) String() string {
	parts := make([]string, 0, len(Roles))
	for _, r := range Roles {
		parts = append(parts, fmt.Sprintf("%s=%q", r, m[r]))
	}
	return strings.Join(parts, " ")
}
