package dicom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/caio-sobreiro/dicommwl/types"
)

const undefinedLength = 0xFFFFFFFF

// ErrTruncated is returned when a dataset ends in the middle of an element.
var ErrTruncated = errors.New("dicom: truncated dataset")

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// codec captures the two properties of a transfer syntax the dataset encoding depends on.
type codec struct {
	explicit bool
	order    byteOrder
}

func codecFor(transferSyntaxUID string) codec {
	info := types.GetTransferSyntaxInfo(transferSyntaxUID)
	c := codec{explicit: info.ExplicitVR, order: binary.LittleEndian}
	if info.BigEndian {
		c.order = binary.BigEndian
	}
	return c
}

// isLongVR reports whether an explicit VR uses the reserved bytes + 4 byte length form.
func isLongVR(vr string) bool {
	switch vr {
	case VR_OB, VR_OD, VR_OF, VR_OL, VR_OV, VR_OW, VR_SQ, VR_SV, VR_UC, VR_UN, VR_UR, VR_UT, VR_UV:
		return true
	}
	return false
}

// ParseDataset parses a DICOM dataset from raw bytes (Explicit VR Little Endian)
func ParseDataset(data []byte) (*Dataset, error) {
	return ParseDatasetWithTransferSyntax(data, TransferSyntaxExplicitVRLittleEndian)
}

// ParseDatasetWithTransferSyntax parses a dataset using the provided transfer syntax.
// An empty or unknown UID is treated as Explicit VR Little Endian.
func ParseDatasetWithTransferSyntax(data []byte, transferSyntaxUID string) (*Dataset, error) {
	d := &decoder{data: data, c: codecFor(transferSyntaxUID)}
	dataset := NewDataset()
	for d.pos < len(d.data) {
		element, err := d.readElement()
		if err != nil {
			return nil, err
		}
		dataset.Elements[element.Tag] = element
	}
	return dataset, nil
}

type decoder struct {
	data []byte
	pos  int
	c    codec
}

func (d *decoder) need(n uint64) error {
	if uint64(d.pos)+n > uint64(len(d.data)) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, d.pos, len(d.data)-d.pos)
	}
	return nil
}

func (d *decoder) readTag() (Tag, error) {
	if err := d.need(4); err != nil {
		return Tag{}, err
	}
	tag := Tag{
		Group:   d.c.order.Uint16(d.data[d.pos : d.pos+2]),
		Element: d.c.order.Uint16(d.data[d.pos+2 : d.pos+4]),
	}
	d.pos += 4
	return tag, nil
}

func (d *decoder) readUint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := d.c.order.Uint32(d.data[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *decoder) readElement() (*Element, error) {
	start := d.pos
	tag, err := d.readTag()
	if err != nil {
		return nil, err
	}
	if tag.Group == 0xFFFE {
		return nil, fmt.Errorf("dicom: unexpected delimiter %s at offset %d", tag, start)
	}

	var (
		vr     string
		length uint32
	)
	if d.c.explicit {
		if err := d.need(4); err != nil {
			return nil, err
		}
		vr = string(d.data[d.pos : d.pos+2])
		if isLongVR(vr) {
			if err := d.need(8); err != nil {
				return nil, err
			}
			length = d.c.order.Uint32(d.data[d.pos+4 : d.pos+8])
			d.pos += 8
		} else {
			length = uint32(d.c.order.Uint16(d.data[d.pos+2 : d.pos+4]))
			d.pos += 4
		}
	} else {
		if length, err = d.readUint32(); err != nil {
			return nil, err
		}
		vr = LookupVR(tag)
		if length == undefinedLength {
			vr = VR_SQ
		}
	}

	if vr == VR_SQ {
		items, err := d.readSequence(length)
		if err != nil {
			return nil, fmt.Errorf("sequence %s: %w", tag, err)
		}
		return &Element{Tag: tag, VR: VR_SQ, Length: length, Value: items}, nil
	}

	if length == undefinedLength {
		return nil, fmt.Errorf("dicom: undefined length not supported for %s VR %s", tag, vr)
	}
	if err := d.need(uint64(length)); err != nil {
		return nil, err
	}
	raw := d.data[d.pos : d.pos+int(length)]
	d.pos += int(length)

	return &Element{Tag: tag, VR: vr, Length: length, Value: d.decodeValue(vr, raw)}, nil
}

func (d *decoder) readSequence(length uint32) ([]*Dataset, error) {
	items := []*Dataset{}
	end := -1
	if length != undefinedLength {
		if err := d.need(uint64(length)); err != nil {
			return nil, err
		}
		end = d.pos + int(length)
	}

	for end < 0 || d.pos < end {
		tag, err := d.readTag()
		if err != nil {
			return nil, err
		}
		itemLength, err := d.readUint32()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagSequenceDelimitationItem:
			return items, nil
		case TagItem:
			item, err := d.readItem(itemLength)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		default:
			return nil, fmt.Errorf("dicom: unexpected tag %s inside sequence", tag)
		}
	}

	if d.pos != end {
		return nil, fmt.Errorf("dicom: sequence overran its length by %d bytes", d.pos-end)
	}
	return items, nil
}

func (d *decoder) readItem(length uint32) (*Dataset, error) {
	item := NewDataset()

	if length == undefinedLength {
		for {
			if err := d.need(8); err != nil {
				return nil, err
			}
			next := Tag{
				Group:   d.c.order.Uint16(d.data[d.pos : d.pos+2]),
				Element: d.c.order.Uint16(d.data[d.pos+2 : d.pos+4]),
			}
			if next == TagItemDelimitationItem {
				d.pos += 8
				return item, nil
			}
			element, err := d.readElement()
			if err != nil {
				return nil, err
			}
			item.Elements[element.Tag] = element
		}
	}

	if err := d.need(uint64(length)); err != nil {
		return nil, err
	}
	end := d.pos + int(length)
	sub := &decoder{data: d.data[:end], pos: d.pos, c: d.c}
	for sub.pos < end {
		element, err := sub.readElement()
		if err != nil {
			return nil, err
		}
		item.Elements[element.Tag] = element
	}
	d.pos = end
	return item, nil
}

func (d *decoder) decodeValue(vr string, raw []byte) interface{} {
	switch vr {
	case VR_US:
		if len(raw) == 2 {
			return d.c.order.Uint16(raw)
		}
	case VR_UL:
		if len(raw) == 4 {
			return d.c.order.Uint32(raw)
		}
	case VR_OB, VR_OW, VR_OD, VR_OF, VR_OL, VR_OV:
		return append([]byte(nil), raw...)
	}
	return parseElementValue(raw)
}

// parseElementValue decodes text values: NUL padding and surrounding spaces are removed.
func parseElementValue(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	value := string(data)
	if idx := strings.IndexByte(value, 0); idx != -1 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

// EncodeDataset encodes a dataset to bytes (Explicit VR Little Endian)
func (d *Dataset) EncodeDataset() []byte {
	data, err := codecFor(TransferSyntaxExplicitVRLittleEndian).encodeDataset(d)
	if err != nil {
		return nil
	}
	return data
}

// EncodeDatasetWithTransferSyntax encodes a dataset using the provided transfer syntax.
func EncodeDatasetWithTransferSyntax(dataset *Dataset, transferSyntaxUID string) ([]byte, error) {
	if dataset == nil {
		return nil, nil
	}
	return codecFor(transferSyntaxUID).encodeDataset(dataset)
}

func (c codec) encodeDataset(dataset *Dataset) ([]byte, error) {
	var buf []byte
	for _, tag := range dataset.SortedTags() {
		var err error
		buf, err = c.appendElement(buf, dataset.Elements[tag])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", tag, err)
		}
	}
	return buf, nil
}

func (c codec) appendElement(buf []byte, element *Element) ([]byte, error) {
	vr := element.VR
	if len(vr) != 2 {
		vr = LookupVR(element.Tag)
	}

	var value []byte
	if items, ok := element.Value.([]*Dataset); ok {
		vr = VR_SQ
		encoded, err := c.encodeItems(items)
		if err != nil {
			return nil, err
		}
		value = encoded
	} else {
		value = c.encodeValue(element.Value)
		if len(value)%2 == 1 {
			// UI and binary values pad with NUL, text with space.
			if vr == VR_UI || vr == VR_OB || vr == VR_UN {
				value = append(value, 0x00)
			} else {
				value = append(value, 0x20)
			}
		}
	}

	buf = c.appendTag(buf, element.Tag)
	switch {
	case !c.explicit:
		buf = c.order.AppendUint32(buf, uint32(len(value)))
	case isLongVR(vr):
		buf = append(buf, vr[0], vr[1], 0x00, 0x00)
		buf = c.order.AppendUint32(buf, uint32(len(value)))
	default:
		if len(value) > 0xFFFF {
			return nil, fmt.Errorf("value of %d bytes too long for VR %s", len(value), vr)
		}
		buf = append(buf, vr[0], vr[1])
		buf = c.order.AppendUint16(buf, uint16(len(value)))
	}
	return append(buf, value...), nil
}

func (c codec) encodeItems(items []*Dataset) ([]byte, error) {
	var buf []byte
	for _, item := range items {
		body, err := c.encodeDataset(item)
		if err != nil {
			return nil, err
		}
		buf = c.appendTag(buf, TagItem)
		buf = c.order.AppendUint32(buf, uint32(len(body)))
		buf = append(buf, body...)
	}
	return buf, nil
}

func (c codec) appendTag(buf []byte, tag Tag) []byte {
	buf = c.order.AppendUint16(buf, tag.Group)
	return c.order.AppendUint16(buf, tag.Element)
}

// encodeValue encodes a non-sequence element value to bytes
func (c codec) encodeValue(value interface{}) []byte {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []byte(strings.TrimRight(v, "\x00"))
	case []string:
		return []byte(strings.TrimRight(strings.Join(v, "\\"), "\x00"))
	case []byte:
		return v
	case int:
		return []byte(strconv.Itoa(v))
	case uint16:
		return c.order.AppendUint16(nil, v)
	case uint32:
		return c.order.AppendUint32(nil, v)
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}
