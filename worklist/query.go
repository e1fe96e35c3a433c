package worklist

import (
	"strings"

	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/types"
)

// MatchKey is one matching key taken from a query identifier. The set of
// implementations is closed: ScalarKey, RangeKey and SequenceKey.
type MatchKey interface {
	Tag() dicom.Tag
	matches(r *types.WorklistRecord) bool
}

// ScalarKey matches an attribute against an exact value or a * / ? wildcard pattern.
// A UID list (values separated by a backslash) matches when any entry matches.
type ScalarKey struct {
	Attribute dicom.Tag
	Values    []string
}

// RangeKey matches a date or time attribute against an inclusive range. An empty
// bound leaves that end open.
type RangeKey struct {
	Attribute dicom.Tag
	Lower     string
	Upper     string
}

// SequenceKey holds the matching keys found in the first item of the Scheduled
// Procedure Step Sequence.
type SequenceKey struct {
	Attribute dicom.Tag
	Keys      []MatchKey
}

func (k ScalarKey) Tag() dicom.Tag { return k.Attribute }
func (k RangeKey) Tag() dicom.Tag { return k.Attribute }
func (k SequenceKey) Tag() dicom.Tag { return k.Attribute }

// Query is the parsed form of a C-FIND identifier: the keys to evaluate and the
// identifier itself, which names the return keys.
type Query struct {
	Keys       []MatchKey
	ReturnKeys *dicom.Dataset
}

// IsUniversal reports whether the query matches every record.
func (q *Query) IsUniversal() bool {
	return q == nil || len(q.Keys) == 0
}

// ParseQuery builds a Query from a C-FIND identifier. Empty values are universal
// and attributes the worklist does not hold are not evaluated.
func ParseQuery(identifier *dicom.Dataset) *Query {
	q := &Query{ReturnKeys: identifier}
	if identifier == nil {
		return q
	}

	for _, tag := range identifier.SortedTags() {
		element := identifier.Elements[tag]

		if tag == dicom.TagScheduledProcedureStepSequence {
			items := identifier.GetSequence(tag)
			if len(items) == 0 {
				continue
			}
			if keys := parseKeys(items[0], stepAttributes); len(keys) > 0 {
				q.Keys = append(q.Keys, SequenceKey{Attribute: tag, Keys: keys})
			}
			continue
		}

		attr, ok := patientAttributes[tag]
		if !ok {
			continue
		}
		if key := parseKey(tag, attr, element); key != nil {
			q.Keys = append(q.Keys, key)
		}
	}
	return q
}

func parseKeys(item *dicom.Dataset, attributes map[dicom.Tag]attribute) []MatchKey {
	var keys []MatchKey
	for _, tag := range item.SortedTags() {
		attr, ok := attributes[tag]
		if !ok {
			continue
		}
		if key := parseKey(tag, attr, item.Elements[tag]); key != nil {
			keys = append(keys, key)
		}
	}
	return keys
}

// parseKey returns nil for universal matching.
func parseKey(tag dicom.Tag, attr attribute, element *dicom.Element) MatchKey {
	value := elementString(element)
	if value == "" {
		return nil
	}

	if attr.kind != kindText && strings.Contains(value, "-") {
		lower, upper, _ := strings.Cut(value, "-")
		return RangeKey{Attribute: tag, Lower: strings.TrimSpace(lower), Upper: strings.TrimSpace(upper)}
	}

	if attr.vr == dicom.VR_UI {
		return ScalarKey{Attribute: tag, Values: splitValues(value)}
	}
	return ScalarKey{Attribute: tag, Values: []string{value}}
}

func elementString(element *dicom.Element) string {
	switch v := element.Value.(type) {
	case string:
		return strings.TrimSpace(strings.TrimRight(v, "\x00"))
	case []string:
		return strings.TrimSpace(strings.Join(v, "\\"))
	case []byte:
		return strings.TrimSpace(strings.TrimRight(string(v), "\x00"))
	default:
		return ""
	}
}

func splitValues(value string) []string {
	parts := strings.Split(value, "\\")
	values := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
