package catalog

import (
	"strconv"
	"strings"
)

// MatchKind selects how a Condition compares a payload field.
type MatchKind int

const (
	// MatchExact requires the field to equal Value.
	MatchExact MatchKind = iota
	// MatchText requires the field to contain Value as text. The store
	// backs this with a full-text index, so partial names match.
	MatchText
	// MatchRange requires a numeric field to lie within [Gte, Lte].
	MatchRange
)

// String implements fmt.Stringer.
func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchText:
		return "text"
	case MatchRange:
		return "range"
	}
	return "unknown"
}

// Condition is a single predicate over one payload field.
type Condition struct {
	// Field is the payload key, e.g. FieldColor.
	Field string

	// Kind selects the comparison.
	Kind MatchKind

	// Value is the operand for MatchExact and MatchText.
	Value string

	// Gte and Lte are the inclusive bounds for MatchRange. A nil bound is open.
	Gte *float64
	Lte *float64
}

// Exact returns an equality condition.
func Exact(field, value string) Condition {
	return Condition{Field: field, Kind: MatchExact, Value: value}
}

// Text returns a full-text condition.
func Text(field, text string) Condition {
	return Condition{Field: field, Kind: MatchText, Value: text}
}

// Range returns an inclusive numeric range condition.
func Range(field string, gte, lte *float64) Condition {
	return Condition{Field: field, Kind: MatchRange, Gte: gte, Lte: lte}
}

// Filter is a conjunction of conditions: a record matches when it satisfies
// every condition in Must. An empty filter matches everything.
type Filter struct {
	Must []Condition
}

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool { return len(f.Must) == 0 }

// Matches evaluates the filter against w in process. It mirrors the store's
// semantics closely enough for in-memory stores and tests: text matching is
// a case-insensitive substring check rather than tokenised full-text search.
func (f Filter) Matches(w Wine) bool {
	for _, c := range f.Must {
		if !c.Matches(w) {
			return false
		}
	}
	return true
}

// Matches evaluates a single condition against w.
func (c Condition) Matches(w Wine) bool {
	v := w.Field(c.Field)
	switch c.Kind {
	case MatchExact:
		return v == c.Value
	case MatchText:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case MatchRange:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return false
		}
		if c.Gte != nil && n < *c.Gte {
			return false
		}
		if c.Lte != nil && n > *c.Lte {
			return false
		}
		return true
	}
	return false
}
