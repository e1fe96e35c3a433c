package pdu

import (
	"testing"

	"github.com/caio-sobreiro/dicommwl/types"
)

func worklistRQ(calledAE string) *AssociateRQ {
	return &AssociateRQ{
		CalledAETitle:  calledAE,
		CallingAETitle: "MRMODALITY",
		PresentationContexts: []PresentationContextRQ{
			{ID: 1, AbstractSyntax: types.VerificationSOPClass, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
			{ID: 3, AbstractSyntax: types.ModalityWorklistInformationModelFind, TransferSyntaxes: []string{
				types.DeflatedExplicitVRLittleEndian,
				types.ExplicitVRBigEndian,
				types.ExplicitVRLittleEndian,
			}},
			{ID: 5, AbstractSyntax: types.CTImageStorage, TransferSyntaxes: []string{types.ExplicitVRLittleEndian}},
		},
		UserInfo: UserInformation{
			MaxPDULength:    32768,
			AsyncOperations: &AsyncOperationsWindow{MaxInvoked: 8, MaxPerformed: 1},
		},
	}
}

func TestAssociateRQ_RoundTrip(t *testing.T) {
	encoded := worklistRQ("WORKLIST").Encode()

	rq, err := ParseAssociateRQ(encoded)
	if err != nil {
		t.Fatalf("ParseAssociateRQ() error = %v", err)
	}

	if rq.CalledAETitle != "WORKLIST" {
		t.Errorf("CalledAETitle = %q", rq.CalledAETitle)
	}
	if rq.CallingAETitle != "MRMODALITY" {
		t.Errorf("CallingAETitle = %q", rq.CallingAETitle)
	}
	if rq.ApplicationContext != types.ApplicationContextUID {
		t.Errorf("ApplicationContext = %q", rq.ApplicationContext)
	}
	if len(rq.PresentationContexts) != 3 {
		t.Fatalf("Expected 3 presentation contexts, got %d", len(rq.PresentationContexts))
	}
	if got := rq.PresentationContexts[1].TransferSyntaxes; len(got) != 3 || got[1] != types.ExplicitVRBigEndian {
		t.Errorf("context 3 transfer syntaxes = %v", got)
	}
	if rq.UserInfo.MaxPDULength != 32768 {
		t.Errorf("MaxPDULength = %d", rq.UserInfo.MaxPDULength)
	}
	if rq.UserInfo.AsyncOperations == nil || rq.UserInfo.AsyncOperations.MaxInvoked != 8 {
		t.Errorf("AsyncOperations = %+v", rq.UserInfo.AsyncOperations)
	}
	if rq.UserInfo.ImplementationClassUID != types.ImplementationClassUID {
		t.Errorf("ImplementationClassUID = %q", rq.UserInfo.ImplementationClassUID)
	}
}

func TestAssociateRQ_AETitleLayout(t *testing.T) {
	encoded := worklistRQ("WORKLIST").Encode()

	if string(encoded[4:20]) != "WORKLIST        " {
		t.Errorf("called AE field = %q", encoded[4:20])
	}
	if string(encoded[20:36]) != "MRMODALITY      " {
		t.Errorf("calling AE field = %q", encoded[20:36])
	}
	if encoded[fixedFieldsLength] != types.ItemApplicationContext {
		t.Errorf("first variable item = 0x%02x, want application context", encoded[fixedFieldsLength])
	}
}

func TestParseAssociateRQ_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", make([]byte, 20)},
		{"item overruns", append(make([]byte, fixedFieldsLength), 0x10, 0x00, 0x00, 0xFF, '1')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAssociateRQ(tt.data); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestAssociateAC_RoundTrip(t *testing.T) {
	ac := &AssociateAC{
		CalledAETitle:  "WORKLIST",
		CallingAETitle: "MRMODALITY",
		PresentationContexts: []PresentationContextAC{
			{ID: 1, Result: types.PresentationAcceptance, TransferSyntax: types.ImplicitVRLittleEndian},
			{ID: 5, Result: types.PresentationAbstractSyntaxNotSupported},
		},
		UserInfo: UserInformation{AsyncOperations: &AsyncOperationsWindow{MaxInvoked: 4, MaxPerformed: 1}},
	}

	parsed, err := ParseAssociateAC(ac.Encode())
	if err != nil {
		t.Fatalf("ParseAssociateAC() error = %v", err)
	}

	if len(parsed.PresentationContexts) != 2 {
		t.Fatalf("Expected 2 contexts (rejected included), got %d", len(parsed.PresentationContexts))
	}
	accepted := parsed.PresentationContexts[0]
	if accepted.Result != types.PresentationAcceptance || accepted.TransferSyntax != types.ImplicitVRLittleEndian {
		t.Errorf("accepted context = %+v", accepted)
	}
	rejected := parsed.PresentationContexts[1]
	if rejected.ID != 5 || rejected.Result != types.PresentationAbstractSyntaxNotSupported || rejected.TransferSyntax != "" {
		t.Errorf("rejected context = %+v", rejected)
	}
	if parsed.UserInfo.MaxPDULength != types.DefaultMaxPDULength {
		t.Errorf("MaxPDULength = %d", parsed.UserInfo.MaxPDULength)
	}
	if parsed.UserInfo.AsyncOperations == nil || parsed.UserInfo.AsyncOperations.MaxInvoked != 4 {
		t.Errorf("AsyncOperations = %+v", parsed.UserInfo.AsyncOperations)
	}
	if parsed.UserInfo.ImplementationVersionName != types.ImplementationVersionName {
		t.Errorf("ImplementationVersionName = %q", parsed.UserInfo.ImplementationVersionName)
	}
}
