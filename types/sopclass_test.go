package types

import "testing"

func TestSOPClassName(t *testing.T) {
	tests := []struct {
		uid  string
		want string
	}{
		{ModalityWorklistInformationModelFind, "Modality Worklist FIND"},
		{StudyRootQueryRetrieveInformationModelFind, "Study Root Query/Retrieve FIND"},
		{VerificationSOPClass, "Verification"},
		{MRImageStorage, "MR Image Storage"},
		{"1.2.3.4.5.6.7.8.9", "1.2.3.4.5.6.7.8.9"},
	}

	for _, tt := range tests {
		if got := SOPClassName(tt.uid); got != tt.want {
			t.Errorf("SOPClassName(%s) = %q, want %q", tt.uid, got, tt.want)
		}
	}
}

func TestIsWorklistSOPClass(t *testing.T) {
	tests := []struct {
		name string
		uid  string
		want bool
	}{
		{"modality worklist", ModalityWorklistInformationModelFind, true},
		{"general purpose worklist", GeneralPurposeWorklistInformationModelFind, true},
		{"study root", StudyRootQueryRetrieveInformationModelFind, false},
		{"verification", VerificationSOPClass, false},
		{"unknown", "1.2.3.4.5.6.7.8.9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWorklistSOPClass(tt.uid); got != tt.want {
				t.Errorf("IsWorklistSOPClass(%s) = %v, want %v", tt.uid, got, tt.want)
			}
		})
	}
}
