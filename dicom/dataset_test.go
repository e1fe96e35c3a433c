package dicom

import "testing"

func TestTag_String(t *testing.T) {
	tests := map[Tag]string{
		TagPatientName:                    "(0010,0010)",
		TagStudyInstanceUID:               "(0020,000d)",
		TagScheduledProcedureStepSequence: "(0040,0100)",
	}
	for tag, want := range tests {
		if got := tag.String(); got != want {
			t.Errorf("String() = %s, want %s", got, want)
		}
	}
}

func TestDataset_AddAndGetElement(t *testing.T) {
	ds := NewDataset()
	if ds.Len() != 0 {
		t.Fatalf("Expected empty dataset, got %d elements", ds.Len())
	}

	ds.AddElement(TagPatientName, VR_PN, "Test^Hilbert")
	ds.AddElement(TagPatientName, VR_PN, "Test^Ada")

	element, ok := ds.GetElement(TagPatientName)
	if !ok {
		t.Fatal("Element not found after adding")
	}
	if element.VR != VR_PN || element.Value != "Test^Ada" {
		t.Errorf("Expected the later value to replace the first, got %s %v", element.VR, element.Value)
	}
	if ds.Len() != 1 {
		t.Errorf("Expected 1 element, got %d", ds.Len())
	}

	if element, ok := ds.GetElement(TagAccessionNumber); ok || element != nil {
		t.Error("Expected no element for a tag that was never added")
	}
}

func TestDataset_GetString(t *testing.T) {
	ds := NewDataset()

	tests := []struct {
		name     string
		tag      Tag
		value    interface{}
		expected string
	}{
		{"String value", Tag{0x0010, 0x0010}, "DOE^JOHN", "DOE^JOHN"},
		{"String with spaces", Tag{0x0010, 0x0020}, "  12345  ", "12345"},
		{"Non-string value", Tag{0x0020, 0x0011}, 123, ""},
		{"Non-existing tag", Tag{0xFFFF, 0xFFFF}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != nil {
				ds.AddElement(tt.tag, VR_LO, tt.value)
			}
			result := ds.GetString(tt.tag)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestDataset_GetStrings(t *testing.T) {
	ds := NewDataset()

	tests := []struct {
		name     string
		tag      Tag
		value    interface{}
		expected []string
	}{
		{
			name:     "Single value",
			tag:      Tag{0x0008, 0x0060},
			value:    "CT",
			expected: []string{"CT"},
		},
		{
			name:     "Multiple values with backslash",
			tag:      Tag{0x0008, 0x0008},
			value:    "ORIGINAL\\PRIMARY\\AXIAL",
			expected: []string{"ORIGINAL", "PRIMARY", "AXIAL"},
		},
		{
			name:     "String slice",
			tag:      Tag{0x0008, 0x0018},
			value:    []string{"value1", "value2"},
			expected: []string{"value1", "value2"},
		},
		{
			name:     "Non-string value",
			tag:      Tag{0x0020, 0x0013},
			value:    123,
			expected: nil,
		},
		{
			name:     "Non-existing tag",
			tag:      Tag{0xFFFF, 0xFFFF},
			value:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != nil {
				ds.AddElement(tt.tag, VR_CS, tt.value)
			}
			result := ds.GetStrings(tt.tag)
			if len(result) != len(tt.expected) {
				t.Errorf("Expected %d strings, got %d", len(tt.expected), len(result))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("String[%d]: expected %q, got %q", i, tt.expected[i], result[i])
				}
			}
		})
	}
}

func TestDataset_GetSequence(t *testing.T) {
	item := NewDataset()
	item.AddElement(TagModality, VR_CS, "MR")

	ds := NewDataset()
	ds.AddSequence(TagScheduledProcedureStepSequence, item)
	ds.AddElement(TagPatientID, VR_LO, "100015")

	items := ds.GetSequence(TagScheduledProcedureStepSequence)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].GetString(TagModality) != "MR" {
		t.Errorf("Expected modality MR, got %q", items[0].GetString(TagModality))
	}
	if ds.GetSequence(TagPatientID) != nil {
		t.Error("Expected nil for non-sequence element")
	}
	element, _ := ds.GetElement(TagScheduledProcedureStepSequence)
	if !element.IsSequence() {
		t.Error("Expected sequence element to report IsSequence")
	}
}

func TestDataset_SortedTags(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagPatientSex, VR_CS, "M")
	ds.AddElement(TagAccessionNumber, VR_SH, "AB123")
	ds.AddElement(TagPatientName, VR_PN, "Test^Hilbert")
	ds.AddElement(TagSpecificCharacterSet, VR_CS, "ISO_IR 100")

	tags := ds.SortedTags()
	want := []Tag{TagSpecificCharacterSet, TagAccessionNumber, TagPatientName, TagPatientSex}
	if len(tags) != len(want) {
		t.Fatalf("Expected %d tags, got %d", len(want), len(tags))
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %s, want %s", i, tags[i], want[i])
		}
	}
}

func TestLookupVR(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{TagPatientName, VR_PN},
		{TagPatientBirthDate, VR_DA},
		{TagScheduledProcedureStepSequence, VR_SQ},
		{TagScheduledStationAETitle, VR_AE},
		{Tag{0x0010, 0x0000}, VR_UL},
		{Tag{0x0009, 0x1001}, VR_UN},
	}

	for _, tt := range tests {
		t.Run(tt.tag.String(), func(t *testing.T) {
			if got := LookupVR(tt.tag); got != tt.want {
				t.Errorf("LookupVR(%s) = %s, want %s", tt.tag, got, tt.want)
			}
		})
	}

	if TagName(TagAccessionNumber) != "AccessionNumber" {
		t.Errorf("TagName = %s", TagName(TagAccessionNumber))
	}
	if TagName(Tag{0x0009, 0x1001}) != "(0009,1001)" {
		t.Errorf("TagName for unknown tag = %s", TagName(Tag{0x0009, 0x1001}))
	}
}
