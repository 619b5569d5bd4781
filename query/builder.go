// Package query builds bounded, typed query plans from untrusted
// query-string parameters.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"taskflow/domain"
)

// Op is a filter comparison operator.
type Op int

const (
	Equals Op = iota
	GreaterThan
	GreaterOrEqual
	LessThan
	LessOrEqual
	In
)

const (
	// DefaultLimit bounds list responses when the caller does not ask for a
	// page size.
	DefaultLimit = 25

	// MaxLimit caps the page size a caller can request.
	MaxLimit = 100

	// maxPage keeps page*limit far from integer overflow; skip values past
	// any realistic collection size just return empty pages.
	maxPage = 1_000_000

	defaultSortField = "createdAt"
)

// Condition is a single comparison applied to a field. Values is only used
// by In; every other operator uses Value.
type Condition struct {
	Op     Op
	Value  string
	Values []string
}

// SortKey orders results by a single field.
type SortKey struct {
	Field      string
	Descending bool
}

// Plan is the sanitized filter/sort/pagination structure derived from
// request parameters. It is built once per read request and never persisted.
type Plan struct {
	Filter map[string][]Condition
	Select []string
	Sort   []SortKey
	Page   int
	Limit  int
}

// Skip returns the number of records the store should skip for this page.
func (p Plan) Skip() int { return (p.Page - 1) * p.Limit }

// control keys are consumed by the builder and never become data filters.
var controlKeys = map[string]struct{}{
	"select": {},
	"sort":   {},
	"page":   {},
	"limit":  {},
}

var suffixOps = map[string]Op{
	"gt":  GreaterThan,
	"gte": GreaterOrEqual,
	"lt":  LessThan,
	"lte": LessOrEqual,
	"in":  In,
}

// Build translates raw query parameters into a Plan. Recognized bracketed
// suffixes (gt, gte, lt, lte, in) become typed comparisons; any other
// bracketed suffix fails with domain.InvalidQueryError. Non-numeric page or
// limit values silently fall back to their defaults to keep read paths
// permissive; oversized values are clamped so skip arithmetic stays in
// range.
func Build(params url.Values) (Plan, error) {
	plan := Plan{
		Filter: make(map[string][]Condition),
		Page:   1,
		Limit:  DefaultLimit,
	}

	for key, values := range params {
		if _, ok := controlKeys[key]; ok {
			continue
		}
		if len(values) == 0 {
			continue
		}
		field, cond, err := parseFilter(key, values[0])
		if err != nil {
			return Plan{}, err
		}
		plan.Filter[field] = append(plan.Filter[field], cond)
	}

	if sel := params.Get("select"); sel != "" {
		for _, f := range strings.Split(sel, ",") {
			if f = strings.TrimSpace(f); f != "" {
				plan.Select = append(plan.Select, f)
			}
		}
	}

	plan.Sort = parseSort(params.Get("sort"))

	if n, err := strconv.Atoi(params.Get("page")); err == nil && n >= 1 {
		plan.Page = min(n, maxPage)
	}
	if n, err := strconv.Atoi(params.Get("limit")); err == nil && n >= 1 {
		plan.Limit = min(n, MaxLimit)
	}

	return plan, nil
}

func parseFilter(key, value string) (string, Condition, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if !safeField(key) {
			return "", Condition{}, domain.InvalidQueryError{Key: key}
		}
		return key, Condition{Op: Equals, Value: value}, nil
	}

	close := strings.IndexByte(key, ']')
	if open == 0 || close != len(key)-1 {
		return "", Condition{}, domain.InvalidQueryError{Key: key}
	}
	field := key[:open]
	suffix := key[open+1 : close]

	op, ok := suffixOps[suffix]
	if !ok {
		return "", Condition{}, domain.InvalidQueryError{Key: key}
	}
	if _, reserved := controlKeys[field]; reserved || !safeField(field) {
		return "", Condition{}, domain.InvalidQueryError{Key: key}
	}

	cond := Condition{Op: op, Value: value}
	if op == In {
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				cond.Values = append(cond.Values, v)
			}
		}
	}
	return field, cond, nil
}

// safeField rejects field names that could reach the store's operator
// namespace.
func safeField(f string) bool {
	if f == "" {
		return false
	}
	return !strings.ContainsAny(f, "$.[]")
}

func parseSort(raw string) []SortKey {
	if raw == "" {
		return []SortKey{{Field: defaultSortField, Descending: true}}
	}
	var keys []SortKey
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		desc := false
		if f[0] == '-' {
			desc = true
			f = f[1:]
		}
		if !safeField(f) {
			continue
		}
		keys = append(keys, SortKey{Field: f, Descending: desc})
	}
	if len(keys) == 0 {
		return []SortKey{{Field: defaultSortField, Descending: true}}
	}
	return keys
}
