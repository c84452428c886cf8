package docstore

import (
	"sort"
	"strings"
)

// Equals filters on exact field equality.
type Equals struct {
	Field string
	Value any
}

// Contains filters on membership of a value in a string-array field.
type Contains struct {
	Field string
	Value string
}

// Query describes a filtered, ordered view over one collection. At most one
// of Equals and Contains is set.
type Query struct {
	Collection string
	Equals     *Equals
	Contains   *Contains
	OrderBy    string
	Descending bool
}

// Match reports whether the document satisfies the query's filters.
func (q Query) Match(d Document) bool {
	if q.Equals != nil {
		if !valuesEqual(d.Fields[q.Equals.Field], q.Equals.Value) {
			return false
		}
	}
	if q.Contains != nil {
		found := false
		for _, s := range d.Strings(q.Contains.Field) {
			if s == q.Contains.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply filters and orders docs per the query, returning a fresh slice.
func (q Query) Apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Match(d) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		field := q.OrderBy
		sort.SliceStable(out, func(i, j int) bool {
			less := compareValues(out[i].Fields[field], out[j].Fields[field]) < 0
			if q.Descending {
				return !less && compareValues(out[i].Fields[field], out[j].Fields[field]) != 0
			}
			return less
		})
	}
	return out
}

func valuesEqual(a, b any) bool {
	if a == b {
		return true
	}
	// Numbers compare across int64/float64 since JSON decoding widens.
	an, aok := asFloat(a)
	bn, bok := asFloat(b)
	return aok && bok && an == bn
}

func compareValues(a, b any) int {
	an, aok := asFloat(a)
	bn, bok := asFloat(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return strings.Compare(as, bs)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
