// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

// Op is a filter comparison.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpIn  Op = "in"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	// OpContains is a case-insensitive substring match on a string field,
	// or on any string element of an array field.
	OpContains Op = "contains"
)

// Filter is one condition on a document field. Field is the stored (BSON)
// name and may be a dotted path into embedded documents and arrays of
// documents. As in MongoDB, a condition on an array field holds when any
// element satisfies it.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches field == v.
func Eq(field string, v any) Filter { return Filter{Field: field, Op: OpEq, Value: v} }

// Ne matches field != v.
func Ne(field string, v any) Filter { return Filter{Field: field, Op: OpNe, Value: v} }

// Gt matches field > v.
func Gt(field string, v any) Filter { return Filter{Field: field, Op: OpGt, Value: v} }

// Gte matches field >= v.
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }

// Lt matches field < v.
func Lt(field string, v any) Filter { return Filter{Field: field, Op: OpLt, Value: v} }

// Lte matches field <= v.
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: v} }

// Contains matches a case-insensitive substring.
func Contains(field, substr string) Filter {
	return Filter{Field: field, Op: OpContains, Value: substr}
}

// In matches field equal to any of values.
func In[T any](field string, values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Field: field, Op: OpIn, Value: vs}
}

// Query selects, orders and pages documents. Filters are ANDed. Results are
// ordered by Sort (then by ID for a stable order); an empty Sort orders by
// ID alone.
type Query struct {
	Filters []Filter
	Sort    string
	Desc    bool
	Skip    int
	Limit   int
}

// Where starts a query.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// And adds filters.
func (q Query) And(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// OrderBy sets the sort field.
func (q Query) OrderBy(field string, desc bool) Query {
	q.Sort = field
	q.Desc = desc
	return q
}

// Paginate sets Skip and Limit for a 1-based page.
func (q Query) Paginate(page, size int) Query {
	if page < 1 {
		page = 1
	}
	if size < 0 {
		size = 0
	}
	q.Skip = (page - 1) * size
	q.Limit = size
	return q
}

// Unpaged drops Skip and Limit, for counting.
func (q Query) Unpaged() Query {
	q.Skip = 0
	q.Limit = 0
	return q
}
