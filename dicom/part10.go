package dicom

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/caio-sobreiro/dicommwl/types"
)

const (
	part10PreambleLength = 128
	part10Magic          = "DICM"
	metaGroup            = 0x0002
)

// File Meta Information tags.
var (
	TagFileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	TagFileMetaInformationVersion     = Tag{0x0002, 0x0001}
	TagMediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	TagMediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TagTransferSyntaxUID              = Tag{0x0002, 0x0010}
	TagImplementationClassUID         = Tag{0x0002, 0x0012}
	TagImplementationVersionName      = Tag{0x0002, 0x0013}
)

// ErrNotPart10 is returned when data lacks the preamble and DICM prefix.
var ErrNotPart10 = errors.New("dicom: not a Part 10 file")

// Part10File is a Part 10 file split into its File Meta Information and the raw dataset.
type Part10File struct {
	Meta              *Dataset
	TransferSyntaxUID string
	Dataset           []byte
}

// ParseDataset decodes the body using the transfer syntax named in the meta header.
func (f *Part10File) ParseDataset() (*Dataset, error) {
	return ParseDatasetWithTransferSyntax(f.Dataset, f.TransferSyntaxUID)
}

// HasPart10Header checks if the data starts with a DICOM Part 10 header.
func HasPart10Header(data []byte) bool {
	if len(data) < part10PreambleLength+len(part10Magic) {
		return false
	}
	return string(data[part10PreambleLength:part10PreambleLength+len(part10Magic)]) == part10Magic
}

// ReadPart10 splits a Part 10 file. The meta group is always Explicit VR Little Endian;
// a missing transfer syntax element defaults the body to Explicit VR Little Endian.
func ReadPart10(data []byte) (*Part10File, error) {
	if !HasPart10Header(data) {
		return nil, ErrNotPart10
	}

	d := &decoder{
		data: data,
		pos:  part10PreambleLength + len(part10Magic),
		c:    codecFor(TransferSyntaxExplicitVRLittleEndian),
	}
	meta := NewDataset()
	for d.pos+4 <= len(d.data) {
		if d.c.order.Uint16(d.data[d.pos:d.pos+2]) != metaGroup {
			break
		}
		element, err := d.readElement()
		if err != nil {
			return nil, fmt.Errorf("file meta information: %w", err)
		}
		meta.Elements[element.Tag] = element
	}

	file := &Part10File{
		Meta:              meta,
		TransferSyntaxUID: meta.GetString(TagTransferSyntaxUID),
		Dataset:           data[d.pos:],
	}
	if file.TransferSyntaxUID == "" {
		file.TransferSyntaxUID = TransferSyntaxExplicitVRLittleEndian
	}
	return file, nil
}

// StripPart10Header removes the preamble and File Meta Information, returning the
// dataset bytes only.
func StripPart10Header(data []byte) ([]byte, error) {
	file, err := ReadPart10(data)
	if err != nil {
		return nil, err
	}
	return file.Dataset, nil
}

// WritePart10 wraps a dataset in a Part 10 envelope. The body is encoded in the given
// transfer syntax.
func WritePart10(dataset *Dataset, sopClassUID, sopInstanceUID, transferSyntaxUID string) ([]byte, error) {
	body, err := EncodeDatasetWithTransferSyntax(dataset, transferSyntaxUID)
	if err != nil {
		return nil, err
	}

	meta := NewDataset()
	meta.AddElement(TagFileMetaInformationVersion, VR_OB, []byte{0x00, 0x01})
	meta.AddElement(TagMediaStorageSOPClassUID, VR_UI, sopClassUID)
	meta.AddElement(TagMediaStorageSOPInstanceUID, VR_UI, sopInstanceUID)
	meta.AddElement(TagTransferSyntaxUID, VR_UI, transferSyntaxUID)
	meta.AddElement(TagImplementationClassUID, VR_UI, types.ImplementationClassUID)
	meta.AddElement(TagImplementationVersionName, VR_SH, types.ImplementationVersionName)

	c := codecFor(TransferSyntaxExplicitVRLittleEndian)
	metaBytes, err := c.encodeDataset(meta)
	if err != nil {
		return nil, err
	}
	groupLength, err := c.appendElement(nil, &Element{
		Tag:   TagFileMetaInformationGroupLength,
		VR:    VR_UL,
		Value: uint32(len(metaBytes)),
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(part10PreambleLength + len(part10Magic) + len(groupLength) + len(metaBytes) + len(body))
	buf.Write(make([]byte, part10PreambleLength))
	buf.WriteString(part10Magic)
	buf.Write(groupLength)
	buf.Write(metaBytes)
	buf.Write(body)
	return buf.Bytes(), nil
}
