package types

import "testing"

func TestGetTransferSyntaxInfo(t *testing.T) {
	tests := []struct {
		name         string
		uid          string
		wantName     string
		wantExplicit bool
		wantBig      bool
		wantRetired  bool
	}{
		{
			name:     "Implicit VR Little Endian",
			uid:      ImplicitVRLittleEndian,
			wantName: "Implicit VR Little Endian",
		},
		{
			name:         "Explicit VR Little Endian",
			uid:          ExplicitVRLittleEndian,
			wantName:     "Explicit VR Little Endian",
			wantExplicit: true,
		},
		{
			name:         "Explicit VR Big Endian (retired)",
			uid:          ExplicitVRBigEndian,
			wantName:     "Explicit VR Big Endian",
			wantExplicit: true,
			wantBig:      true,
			wantRetired:  true,
		},
		{
			name:         "Unknown falls back to explicit little endian",
			uid:          "1.2.3.4",
			wantName:     "Unknown",
			wantExplicit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetTransferSyntaxInfo(tt.uid)
			if info.Name != tt.wantName {
				t.Errorf("Name = %s, want %s", info.Name, tt.wantName)
			}
			if info.ExplicitVR != tt.wantExplicit {
				t.Errorf("ExplicitVR = %v, want %v", info.ExplicitVR, tt.wantExplicit)
			}
			if info.BigEndian != tt.wantBig {
				t.Errorf("BigEndian = %v, want %v", info.BigEndian, tt.wantBig)
			}
			if info.IsRetired != tt.wantRetired {
				t.Errorf("IsRetired = %v, want %v", info.IsRetired, tt.wantRetired)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	if IsExplicitVR(ImplicitVRLittleEndian) {
		t.Error("implicit VR reported as explicit")
	}
	if !IsBigEndian(ExplicitVRBigEndian) {
		t.Error("big endian not reported")
	}
	if !IsCompressed(DeflatedExplicitVRLittleEndian) {
		t.Error("deflate should be compressed")
	}
	if TransferSyntaxName("9.9") != "9.9" {
		t.Error("unknown name should echo the uid")
	}
}

func TestWorklistTransferSyntaxesOrder(t *testing.T) {
	got := WorklistTransferSyntaxes()
	want := []string{ExplicitVRLittleEndian, ExplicitVRBigEndian, ImplicitVRLittleEndian}
	if len(got) != len(want) {
		t.Fatalf("got %d syntaxes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("syntax[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
