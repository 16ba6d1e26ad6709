// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"cmp"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// In-process query evaluation for the embedded engine. Documents are BSON,
// the same encoding MongoDB stores, so both engines agree on field names and
// value types.

// matches reports whether doc satisfies every filter.
func matches(doc bson.Raw, filters []Filter) bool {
	for _, f := range filters {
		if !matchFilter(doc, f) {
			return false
		}
	}
	return true
}

func matchFilter(doc bson.Raw, f Filter) bool {
	vals := flatten(lookup(doc, strings.Split(f.Field, ".")))
	if len(vals) == 0 {
		// A missing field compares as null.
		vals = []any{nil}
	}
	want := normalize(f.Value)

	if f.Op == OpNe {
		return !anyMatch(vals, OpEq, want)
	}
	return anyMatch(vals, f.Op, want)
}

func anyMatch(vals []any, op Op, want any) bool {
	for _, v := range vals {
		switch op {
		case OpEq:
			if equal(v, want) {
				return true
			}
		case OpIn:
			options, _ := want.([]any)
			for _, w := range options {
				if equal(v, w) {
					return true
				}
			}
		case OpGt, OpGte, OpLt, OpLte:
			c, ok := compare(v, want)
			if !ok {
				continue
			}
			if (op == OpGt && c > 0) || (op == OpGte && c >= 0) || (op == OpLt && c < 0) || (op == OpLte && c <= 0) {
				return true
			}
		case OpContains:
			s, ok := v.(string)
			sub, ok2 := want.(string)
			if ok && ok2 && strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
				return true
			}
		}
	}
	return false
}

// lookup returns the values at path. Crossing an array of documents fans
// out, so several values may come back.
func lookup(doc bson.Raw, path []string) []any {
	rv, err := doc.LookupErr(path[0])
	if err != nil {
		return nil
	}
	if len(path) == 1 {
		return []any{rawValue(rv)}
	}
	switch rv.Type {
	case bson.TypeEmbeddedDocument:
		return lookup(rv.Document(), path[1:])
	case bson.TypeArray:
		elems, err := rv.Array().Values()
		if err != nil {
			return nil
		}
		var out []any
		for _, el := range elems {
			if el.Type == bson.TypeEmbeddedDocument {
				out = append(out, lookup(el.Document(), path[1:])...)
			}
		}
		return out
	}
	return nil
}

// flatten expands array values so conditions apply element-wise.
func flatten(vals []any) []any {
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		if arr, ok := v.([]any); ok {
			out = append(out, arr...)
			continue
		}
		out = append(out, v)
	}
	return out
}

// rawValue converts a BSON value: numbers to float64, datetimes to UTC
// time.Time, arrays to []any.
func rawValue(rv bson.RawValue) any {
	switch rv.Type {
	case bson.TypeString:
		return rv.StringValue()
	case bson.TypeDouble:
		return rv.Double()
	case bson.TypeInt32:
		return float64(rv.Int32())
	case bson.TypeInt64:
		return float64(rv.Int64())
	case bson.TypeBoolean:
		return rv.Boolean()
	case bson.TypeDateTime:
		return rv.Time().UTC()
	case bson.TypeNull, bson.TypeUndefined:
		return nil
	case bson.TypeArray:
		elems, err := rv.Array().Values()
		if err != nil {
			return nil
		}
		out := make([]any, len(elems))
		for i, el := range elems {
			out[i] = rawValue(el)
		}
		return out
	case bson.TypeEmbeddedDocument:
		return rv.Document()
	}
	return rv
}

// normalize converts a filter operand to the representation rawValue
// produces, so named string types and every numeric kind compare directly.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, float64:
		return x
	case time.Time:
		return x.UTC()
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return a == nil && b == nil
}

// compare orders two values of the same kind.
func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

// typeRank follows MongoDB's cross-type sort order.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case bson.Raw:
		return 3
	case []any:
		return 4
	case bool:
		return 5
	case time.Time:
		return 6
	}
	return 7
}

func sortValue(doc bson.Raw, field string) any {
	vals := lookup(doc, strings.Split(field, "."))
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

func sortCompare(a, b any) int {
	if c, ok := compare(a, b); ok {
		return c
	}
	return cmp.Compare(typeRank(a), typeRank(b))
}

// sortDocs orders docs by field, then by ID ascending.
func sortDocs(docs [][]byte, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := bson.Raw(docs[i]), bson.Raw(docs[j])
		if field != "" {
			if c := sortCompare(sortValue(a, field), sortValue(b, field)); c != 0 {
				if desc {
					return c > 0
				}
				return c < 0
			}
		}
		return sortCompare(sortValue(a, "_id"), sortValue(b, "_id")) < 0
	})
}

// window applies skip and limit.
func window(docs [][]byte, skip, limit int) [][]byte {
	if skip > 0 {
		if skip >= len(docs) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
