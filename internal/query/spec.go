// Package query turns untrusted request parameters into a typed, whitelisted
// list specification: filters, sort order, field projection and pagination.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Op is a comparison operator in a filter condition.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

// Filter is one whitelisted condition, e.g. {Field: "createdAt", Op: gte}.
type Filter struct {
	Field string
	Op    Op
	Value string
}

// SortKey is one ordered sort criterion.
type SortKey struct {
	Field string
	Desc  bool
}

// Spec is a safe, fully validated list query. Everything not covered by the
// whitelists has already been dropped.
type Spec struct {
	Filters []Filter
	Sort    []SortKey
	Fields  []string
	Page    int
	Limit   int
}

// Offset is the number of records skipped by pagination.
func (s Spec) Offset() int {
	return (s.Page - 1) * s.Limit
}

// filterableFields are the only keys that may appear in a filter or sort.
var filterableFields = []string{"name", "email", "first_name", "last_name", "createdAt"}

// projectableFields are the attributes a fields= projection can select.
var projectableFields = []string{"id", "username", "email", "first_name", "last_name", "createdAt", "active"}

var operators = map[string]Op{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
}

// reserved parameters that are never filters.
var reservedParams = map[string]bool{"sort": true, "fields": true, "page": true, "limit": true, "token": true}

// Parse builds a Spec from raw query parameters. Unknown filter keys and
// unknown sort/projection fields are ignored rather than rejected, so a
// request with only garbage parameters degrades to "list everything".
func Parse(values url.Values) Spec {
	spec := Spec{
		Page:  positiveInt(values.Get("page"), DefaultPage),
		Limit: positiveInt(values.Get("limit"), DefaultLimit),
	}

	for key, vals := range values {
		if reservedParams[key] || len(vals) == 0 {
			continue
		}
		field, op := splitOperator(key)
		if !contains(filterableFields, field) {
			continue
		}
		spec.Filters = append(spec.Filters, Filter{Field: field, Op: op, Value: vals[0]})
	}

	spec.Sort = parseSort(values.Get("sort"))
	spec.Fields = parseFields(values.Get("fields"))
	return spec
}

// splitOperator recognizes the field[op] form, e.g. createdAt[gte].
// A bare key means equality.
func splitOperator(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open == -1 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	field := key[:open]
	if op, ok := operators[key[open+1:len(key)-1]]; ok {
		return field, op
	}
	return key, OpEq
}

func parseSort(raw string) []SortKey {
	if raw == "" {
		return []SortKey{{Field: "createdAt"}}
	}
	var keys []SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		if !contains(filterableFields, field) {
			continue
		}
		keys = append(keys, SortKey{Field: field, Desc: desc})
	}
	if len(keys) == 0 {
		return []SortKey{{Field: "createdAt"}}
	}
	return keys
}

func parseFields(raw string) []string {
	if raw == "" {
		return append([]string(nil), projectableFields...)
	}
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if contains(projectableFields, part) && !contains(fields, part) {
			fields = append(fields, part)
		}
	}
	if len(fields) == 0 {
		return append([]string(nil), projectableFields...)
	}
	return fields
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
