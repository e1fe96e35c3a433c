package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func explicitShort(order binary.ByteOrder, tag Tag, vr, value string) []byte {
	buf := make([]byte, 8)
	order.PutUint16(buf[0:2], tag.Group)
	order.PutUint16(buf[2:4], tag.Element)
	copy(buf[4:6], vr)
	order.PutUint16(buf[6:8], uint16(len(value)))
	return append(buf, value...)
}

func implicitElement(tag Tag, value []byte) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:2], tag.Group)
	binary.LittleEndian.PutUint16(buf[2:4], tag.Element)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(value)))
	return append(buf, value...)
}

func worklistIdentifier() *Dataset {
	sps := NewDataset()
	sps.AddElement(TagModality, VR_CS, "MR")
	sps.AddElement(TagScheduledStationAETitle, VR_AE, "MRMODALITY")
	sps.AddElement(TagScheduledProcedureStepStartDate, VR_DA, "20260101-20260131")

	ds := NewDataset()
	ds.AddElement(TagPatientName, VR_PN, "T*")
	ds.AddElement(TagPatientID, VR_LO, "")
	ds.AddElement(TagStudyInstanceUID, VR_UI, "")
	ds.AddSequence(TagScheduledProcedureStepSequence, sps)
	return ds
}

func TestParseDataset(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedLen int
		checks      func(t *testing.T, ds *Dataset)
	}{
		{
			name:        "Empty dataset",
			data:        []byte{},
			expectedLen: 0,
		},
		{
			name:        "Single element",
			data:        explicitShort(binary.LittleEndian, TagPatientName, VR_PN, "DOE^JOHN"),
			expectedLen: 1,
			checks: func(t *testing.T, ds *Dataset) {
				if value := ds.GetString(TagPatientName); value != "DOE^JOHN" {
					t.Errorf("Expected DOE^JOHN, got %s", value)
				}
			},
		},
		{
			name: "Multiple elements",
			data: append(
				explicitShort(binary.LittleEndian, TagPatientName, VR_PN, "DOE^JOHN"),
				explicitShort(binary.LittleEndian, TagPatientID, VR_LO, "12345 ")...),
			expectedLen: 2,
			checks: func(t *testing.T, ds *Dataset) {
				if id := ds.GetString(TagPatientID); id != "12345" {
					t.Errorf("Expected 12345, got %s", id)
				}
			},
		},
		{
			name:        "Zero length element is universal",
			data:        explicitShort(binary.LittleEndian, TagAccessionNumber, VR_SH, ""),
			expectedLen: 1,
			checks: func(t *testing.T, ds *Dataset) {
				element, ok := ds.GetElement(TagAccessionNumber)
				if !ok || element.Value != "" {
					t.Errorf("Expected empty accession number element, got %#v", element)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ParseDataset(tt.data)
			if err != nil {
				t.Fatalf("ParseDataset failed: %v", err)
			}
			if len(ds.Elements) != tt.expectedLen {
				t.Errorf("Expected %d elements, got %d", tt.expectedLen, len(ds.Elements))
			}
			if tt.checks != nil {
				tt.checks(t, ds)
			}
		})
	}
}

func TestParseDataset_Truncated(t *testing.T) {
	data := explicitShort(binary.LittleEndian, TagPatientName, VR_PN, "DOE^JOHN")
	_, err := ParseDataset(data[:len(data)-3])
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Expected ErrTruncated, got %v", err)
	}
}

func TestParseDataset_ImplicitUsesDictionary(t *testing.T) {
	data := implicitElement(TagPatientBirthDate, []byte("19800101"))
	data = append(data, implicitElement(TagModality, []byte("MR"))...)

	ds, err := ParseDatasetWithTransferSyntax(data, TransferSyntaxImplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	element, _ := ds.GetElement(TagPatientBirthDate)
	if element.VR != VR_DA {
		t.Errorf("Expected VR DA, got %s", element.VR)
	}
	if ds.GetString(TagModality) != "MR" {
		t.Errorf("Expected MR, got %s", ds.GetString(TagModality))
	}
}

func TestParseDataset_UndefinedLengthSequence(t *testing.T) {
	// Implicit VR: (0040,0100) undefined length, one undefined length item, delimiters.
	var data []byte
	data = binary.LittleEndian.AppendUint16(data, 0x0040)
	data = binary.LittleEndian.AppendUint16(data, 0x0100)
	data = binary.LittleEndian.AppendUint32(data, undefinedLength)
	data = binary.LittleEndian.AppendUint16(data, 0xFFFE)
	data = binary.LittleEndian.AppendUint16(data, 0xE000)
	data = binary.LittleEndian.AppendUint32(data, undefinedLength)
	data = append(data, implicitElement(TagModality, []byte("CT"))...)
	data = binary.LittleEndian.AppendUint16(data, 0xFFFE)
	data = binary.LittleEndian.AppendUint16(data, 0xE00D)
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = binary.LittleEndian.AppendUint16(data, 0xFFFE)
	data = binary.LittleEndian.AppendUint16(data, 0xE0DD)
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = append(data, implicitElement(TagPatientID, []byte("100015"))...)

	ds, err := ParseDatasetWithTransferSyntax(data, TransferSyntaxImplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	items := ds.GetSequence(TagScheduledProcedureStepSequence)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].GetString(TagModality) != "CT" {
		t.Errorf("Expected CT in item, got %q", items[0].GetString(TagModality))
	}
	if ds.GetString(TagPatientID) != "100015" {
		t.Errorf("Element after sequence lost: %q", ds.GetString(TagPatientID))
	}
}

func TestDataset_RoundTripAllTransferSyntaxes(t *testing.T) {
	syntaxes := []string{
		TransferSyntaxExplicitVRLittleEndian,
		TransferSyntaxExplicitVRBigEndian,
		TransferSyntaxImplicitVRLittleEndian,
	}

	for _, ts := range syntaxes {
		t.Run(ts, func(t *testing.T) {
			encoded, err := EncodeDatasetWithTransferSyntax(worklistIdentifier(), ts)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded)%2 != 0 {
				t.Errorf("Encoded length %d is odd", len(encoded))
			}

			decoded, err := ParseDatasetWithTransferSyntax(encoded, ts)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if decoded.GetString(TagPatientName) != "T*" {
				t.Errorf("PatientName = %q", decoded.GetString(TagPatientName))
			}
			items := decoded.GetSequence(TagScheduledProcedureStepSequence)
			if len(items) != 1 {
				t.Fatalf("Expected 1 SPS item, got %d", len(items))
			}
			if items[0].GetString(TagScheduledStationAETitle) != "MRMODALITY" {
				t.Errorf("ScheduledStationAETitle = %q", items[0].GetString(TagScheduledStationAETitle))
			}
			if items[0].GetString(TagScheduledProcedureStepStartDate) != "20260101-20260131" {
				t.Errorf("SPS start date = %q", items[0].GetString(TagScheduledProcedureStepStartDate))
			}
		})
	}
}

func TestEncodeDataset_BigEndianLayout(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagPatientID, VR_LO, "AB")

	encoded, err := EncodeDatasetWithTransferSyntax(ds, TransferSyntaxExplicitVRBigEndian)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x00, 0x10, 0x00, 0x20, 'L', 'O', 0x00, 0x02, 'A', 'B'}
	if !bytes.Equal(encoded, want) {
		t.Errorf("Encoded = % x, want % x", encoded, want)
	}
}

func TestEncodeDataset_Padding(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagStudyInstanceUID, VR_UI, "1.2.3")
	ds.AddElement(TagPatientName, VR_PN, "JOHNSON")

	decoded, err := ParseDataset(ds.EncodeDataset())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	uid, _ := decoded.GetElement(TagStudyInstanceUID)
	if uid.Length != 6 {
		t.Errorf("UI length = %d, want 6", uid.Length)
	}
	if decoded.GetString(TagStudyInstanceUID) != "1.2.3" {
		t.Errorf("UI value = %q", decoded.GetString(TagStudyInstanceUID))
	}
	if decoded.GetString(TagPatientName) != "JOHNSON" {
		t.Errorf("PN value = %q", decoded.GetString(TagPatientName))
	}
}

func TestEncodeValue_VariousTypes(t *testing.T) {
	c := codecFor(TransferSyntaxExplicitVRLittleEndian)
	tests := []struct {
		name  string
		value interface{}
		want  []byte
	}{
		{"string", "ABC", []byte("ABC")},
		{"string with NUL", "AB\x00", []byte("AB")},
		{"string slice", []string{"CT", "MR"}, []byte("CT\\MR")},
		{"int", 42, []byte("42")},
		{"uint16", uint16(0x0102), []byte{0x02, 0x01}},
		{"uint32", uint32(0x01020304), []byte{0x04, 0x03, 0x02, 0x01}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.encodeValue(tt.value); !bytes.Equal(got, tt.want) {
				t.Errorf("encodeValue(%v) = % x, want % x", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseDataset_UnexpectedDelimiter(t *testing.T) {
	var data []byte
	data = binary.LittleEndian.AppendUint16(data, 0xFFFE)
	data = binary.LittleEndian.AppendUint16(data, 0xE00D)
	data = binary.LittleEndian.AppendUint32(data, 0)

	if _, err := ParseDataset(data); err == nil {
		t.Fatal("Expected error for stray delimiter")
	}
}
