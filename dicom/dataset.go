package dicom

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/caio-sobreiro/dicommwl/types"
)

// VR (Value Representation) constants
const (
	VR_AE = "AE" // Application Entity
	VR_AS = "AS" // Age String
	VR_AT = "AT" // Attribute Tag
	VR_CS = "CS" // Code String
	VR_DA = "DA" // Date
	VR_DS = "DS" // Decimal String
	VR_DT = "DT" // Date Time
	VR_FL = "FL" // Floating Point Single
	VR_FD = "FD" // Floating Point Double
	VR_IS = "IS" // Integer String
	VR_LO = "LO" // Long String
	VR_LT = "LT" // Long Text
	VR_OB = "OB" // Other Byte
	VR_OD = "OD" // Other Double
	VR_OF = "OF" // Other Float
	VR_OL = "OL" // Other Long
	VR_OV = "OV" // Other Very Long
	VR_OW = "OW" // Other Word
	VR_PN = "PN" // Person Name
	VR_SH = "SH" // Short String
	VR_SL = "SL" // Signed Long
	VR_SQ = "SQ" // Sequence of Items
	VR_SS = "SS" // Signed Short
	VR_ST = "ST" // Short Text
	VR_SV = "SV" // Signed Very Long
	VR_TM = "TM" // Time
	VR_UC = "UC" // Unlimited Characters
	VR_UI = "UI" // Unique Identifier
	VR_UL = "UL" // Unsigned Long
	VR_UN = "UN" // Unknown
	VR_UR = "UR" // Universal Resource
	VR_US = "US" // Unsigned Short
	VR_UT = "UT" // Unlimited Text
	VR_UV = "UV" // Unsigned Very Long
)

// Common transfer syntax UIDs
const (
	TransferSyntaxImplicitVRLittleEndian = types.ImplicitVRLittleEndian
	TransferSyntaxExplicitVRLittleEndian = types.ExplicitVRLittleEndian
	TransferSyntaxExplicitVRBigEndian    = types.ExplicitVRBigEndian
)

// Tag represents a DICOM tag (group, element)
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag as a string in (GGGG,EEEE) format
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// Compare orders tags by group, then element.
func (t Tag) Compare(other Tag) int {
	if c := cmp.Compare(t.Group, other.Group); c != 0 {
		return c
	}
	return cmp.Compare(t.Element, other.Element)
}

// Element represents a DICOM data element. Sequence elements hold []*Dataset.
type Element struct {
	Tag    Tag
	VR     string
	Length uint32
	Value  interface{}
}

// Dataset represents a collection of DICOM elements
type Dataset struct {
	Elements map[Tag]*Element
}

// NewDataset creates a new empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		Elements: make(map[Tag]*Element),
	}
}

// AddElement adds an element to the dataset
func (d *Dataset) AddElement(tag Tag, vr string, value interface{}) {
	d.Elements[tag] = &Element{
		Tag:   tag,
		VR:    vr,
		Value: value,
	}
}

// AddSequence adds a sequence element holding the given items.
func (d *Dataset) AddSequence(tag Tag, items ...*Dataset) {
	d.AddElement(tag, VR_SQ, items)
}

// GetElement returns an element by tag
func (d *Dataset) GetElement(tag Tag) (*Element, bool) {
	element, exists := d.Elements[tag]
	return element, exists
}

// GetString returns a string value for a tag
func (d *Dataset) GetString(tag Tag) string {
	if element, exists := d.Elements[tag]; exists {
		if str, ok := element.Value.(string); ok {
			return strings.TrimSpace(str)
		}
	}
	return ""
}

// GetStrings returns a slice of string values for a tag
func (d *Dataset) GetStrings(tag Tag) []string {
	if element, exists := d.Elements[tag]; exists {
		switch v := element.Value.(type) {
		case string:
			parts := strings.Split(v, "\\")
			result := make([]string, len(parts))
			for i, part := range parts {
				result[i] = strings.TrimSpace(part)
			}
			return result
		case []string:
			return v
		}
	}
	return nil
}

// GetSequence returns the items of a sequence element, or nil when tag is absent or
// not a sequence.
func (d *Dataset) GetSequence(tag Tag) []*Dataset {
	if element, exists := d.Elements[tag]; exists {
		if items, ok := element.Value.([]*Dataset); ok {
			return items
		}
	}
	return nil
}

// IsSequence reports whether the element holds sequence items.
func (e *Element) IsSequence() bool {
	_, ok := e.Value.([]*Dataset)
	return ok || e.VR == VR_SQ
}

// Len returns the number of top-level elements.
func (d *Dataset) Len() int {
	return len(d.Elements)
}

// SortedTags returns the dataset's tags in ascending order.
func (d *Dataset) SortedTags() []Tag {
	tags := make([]Tag, 0, len(d.Elements))
	for tag := range d.Elements {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, Tag.Compare)
	return tags
}

// LogValue renders the dataset as nested slog groups keyed by attribute keyword, so a
// query identifier can be logged with its sequence items.
func (d *Dataset) LogValue() slog.Value {
	if d == nil {
		return slog.StringValue("<nil>")
	}
	attrs := make([]slog.Attr, 0, len(d.Elements))
	for _, tag := range d.SortedTags() {
		element := d.Elements[tag]
		key := TagName(tag)
		if items, ok := element.Value.([]*Dataset); ok {
			itemAttrs := make([]slog.Attr, 0, len(items))
			for i, item := range items {
				itemAttrs = append(itemAttrs, slog.Any("item"+strconv.Itoa(i+1), item))
			}
			attrs = append(attrs, slog.Attr{Key: key, Value: slog.GroupValue(itemAttrs...)})
			continue
		}
		attrs = append(attrs, slog.String(key, valueString(element.Value)))
	}
	return slog.GroupValue(attrs...)
}

func valueString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, "\\")
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
