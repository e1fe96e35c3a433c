package worklist

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/types"
)

func lookupAttribute(tag dicom.Tag) (attribute, bool) {
	if attr, ok := patientAttributes[tag]; ok {
		return attr, true
	}
	attr, ok := stepAttributes[tag]
	return attr, ok
}

func (k ScalarKey) matches(r *types.WorklistRecord) bool {
	attr, ok := lookupAttribute(k.Attribute)
	if !ok {
		return true
	}
	value := attr.value(r)
	for _, pattern := range k.Values {
		if matchValue(pattern, value) {
			return true
		}
	}
	return false
}

func (k RangeKey) matches(r *types.WorklistRecord) bool {
	attr, ok := lookupAttribute(k.Attribute)
	if !ok {
		return true
	}
	lower, upper, ok := rangeBounds(attr.kind, k.Lower, k.Upper)
	if !ok {
		return false
	}
	value := attr.value(r)
	if value == "" {
		return false
	}
	return value >= lower && value <= upper
}

func (k SequenceKey) matches(r *types.WorklistRecord) bool {
	for _, key := range k.Keys {
		if !key.matches(r) {
			return false
		}
	}
	return true
}

// Matches reports whether record satisfies every key of q.
func (q *Query) Matches(record *types.WorklistRecord) bool {
	if q == nil {
		return true
	}
	for _, key := range q.Keys {
		if !key.matches(record) {
			return false
		}
	}
	return true
}

// Match yields the records matching q in ascending id order. It does not modify
// records and keeps no state, so it is safe for concurrent use.
func Match(q *Query, records []types.WorklistRecord) iter.Seq[*types.WorklistRecord] {
	return func(yield func(*types.WorklistRecord) bool) {
		order := make([]int, len(records))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return cmp.Compare(records[a].ID, records[b].ID)
		})

		for _, i := range order {
			record := &records[i]
			if !q.Matches(record) {
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}

// matchValue applies exact or wildcard matching. Both are case-sensitive and
// anchored to the whole value.
func matchValue(pattern, value string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		return pattern == value
	}
	return wildcardMatch(pattern, value)
}

// wildcardMatch matches * (zero or more characters) and ? (exactly one character)
// over runes. Every other character, including [ and \, is literal.
func wildcardMatch(pattern, value string) bool {
	p := []rune(pattern)
	v := []rune(value)

	pi, vi := 0, 0
	star, mark := -1, 0
	for vi < len(v) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = vi
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == v[vi]):
			pi++
			vi++
		case star >= 0:
			pi = star + 1
			mark++
			vi = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// rangeBounds validates and normalizes range bounds so that they compare
// lexically against formatted record values. Open ends widen to the extremes.
func rangeBounds(kind attributeKind, lower, upper string) (string, string, bool) {
	if lower == "" && upper == "" {
		return "", "", false
	}

	var width int
	switch kind {
	case kindDate:
		width = len(DateLayout)
	case kindTime:
		width = len(TimeLayout)
	default:
		return "", "", false
	}

	normalize := func(bound string, fill byte) (string, bool) {
		if kind == kindTime {
			bound, _, _ = strings.Cut(bound, ".")
			bound = strings.ReplaceAll(bound, ":", "")
		}
		if kind == kindDate && len(bound) != width {
			return "", false
		}
		if kind == kindTime && (len(bound) < 2 || len(bound) > width || len(bound)%2 != 0) {
			return "", false
		}
		for _, c := range []byte(bound) {
			if c < '0' || c > '9' {
				return "", false
			}
		}
		return bound + strings.Repeat(string(fill), width-len(bound)), true
	}

	lo := strings.Repeat("0", width)
	hi := strings.Repeat("9", width)
	var ok bool
	if lower != "" {
		if lo, ok = normalize(lower, '0'); !ok {
			return "", "", false
		}
	}
	if upper != "" {
		if hi, ok = normalize(upper, '9'); !ok {
			return "", "", false
		}
	}
	return lo, hi, true
}
