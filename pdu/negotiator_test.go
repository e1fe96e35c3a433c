package pdu

import (
	stderrors "errors"
	"io"
	"log/slog"
	"testing"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNegotiator_RejectsWrongCalledAE(t *testing.T) {
	n := NewNegotiator("WORKLIST", discardLogger())

	assoc, err := n.Negotiate(worklistRQ("SOMEONE_ELSE"), "10.0.0.5:4242")
	if assoc != nil {
		t.Fatal("Expected no association context on rejection")
	}

	var rejection *errors.AssociationError
	if !stderrors.As(err, &rejection) {
		t.Fatalf("Expected *AssociationError, got %v", err)
	}
	if rejection.Result != errors.RejectResultPermanent {
		t.Errorf("Result = %v, want permanent", rejection.Result)
	}
	if rejection.Source != errors.RejectSourceServiceUser {
		t.Errorf("Source = %v, want service-user", rejection.Source)
	}
	if rejection.Reason != errors.RejectReasonCalledAETitleNotRecognized {
		t.Errorf("Reason = %v, want called-ae-title-not-recognized", rejection.Reason)
	}
}

func TestNegotiator_WrongAERejectedEvenWithNoContexts(t *testing.T) {
	n := NewNegotiator("WORKLIST", discardLogger())
	rq := &AssociateRQ{CalledAETitle: "worklist", CallingAETitle: "CT1"}

	if _, err := n.Negotiate(rq, "pipe"); !stderrors.Is(err, errors.ErrAssociationRejected) {
		t.Errorf("Expected case-sensitive AE mismatch to reject, got %v", err)
	}
}

func TestNegotiator_PerContextDecisions(t *testing.T) {
	n := NewNegotiator("WORKLIST", discardLogger())

	assoc, err := n.Negotiate(worklistRQ("WORKLIST"), "10.0.0.5:4242")
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}

	tests := []struct {
		id             byte
		result         byte
		transferSyntax string
	}{
		{1, types.PresentationAcceptance, types.ImplicitVRLittleEndian},
		// First supported syntax in the proposer's order wins; deflate is skipped.
		{3, types.PresentationAcceptance, types.ExplicitVRBigEndian},
		{5, types.PresentationAbstractSyntaxNotSupported, ""},
	}

	for _, tt := range tests {
		pc, ok := assoc.PresentationCtxs[tt.id]
		if !ok {
			t.Fatalf("context %d missing", tt.id)
		}
		if pc.Result != tt.result {
			t.Errorf("context %d result = %s, want %s", tt.id,
				types.PresentationResultName(pc.Result), types.PresentationResultName(tt.result))
		}
		if pc.TransferSyntax != tt.transferSyntax {
			t.Errorf("context %d transfer syntax = %q, want %q", tt.id, pc.TransferSyntax, tt.transferSyntax)
		}
	}

	if assoc.AcceptedCount() != 2 {
		t.Errorf("AcceptedCount() = %d, want 2", assoc.AcceptedCount())
	}
	if assoc.MaxPDULength != 32768 {
		t.Errorf("MaxPDULength = %d", assoc.MaxPDULength)
	}
}

func TestNegotiator_TransferSyntaxNotSupported(t *testing.T) {
	n := NewNegotiator("WORKLIST", discardLogger())
	rq := &AssociateRQ{
		CalledAETitle: "WORKLIST",
		PresentationContexts: []PresentationContextRQ{
			{ID: 7, AbstractSyntax: types.ModalityWorklistInformationModelFind, TransferSyntaxes: []string{"1.2.840.10008.1.2.4.50"}},
		},
	}

	assoc, err := n.Negotiate(rq, "pipe")
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}
	if got := assoc.PresentationCtxs[7].Result; got != types.PresentationTransferSyntaxNotSupported {
		t.Errorf("Result = %s, want transfer-syntaxes-not-supported", types.PresentationResultName(got))
	}
}

func TestNegotiator_ContextsAreIndependent(t *testing.T) {
	n := NewNegotiator("WORKLIST", discardLogger())

	full := worklistRQ("WORKLIST")
	alone := &AssociateRQ{
		CalledAETitle:        "WORKLIST",
		PresentationContexts: full.PresentationContexts[1:2],
	}

	withOthers, err := n.Negotiate(full, "pipe")
	if err != nil {
		t.Fatal(err)
	}
	solo, err := n.Negotiate(alone, "pipe")
	if err != nil {
		t.Fatal(err)
	}

	if *withOthers.PresentationCtxs[3] != *solo.PresentationCtxs[3] {
		t.Errorf("context 3 decision depends on neighbours: %+v vs %+v",
			withOthers.PresentationCtxs[3], solo.PresentationCtxs[3])
	}
}

func TestAssociationContext_Accept(t *testing.T) {
	n := NewNegotiator("WORKLIST", discardLogger())
	assoc, err := n.Negotiate(worklistRQ("WORKLIST"), "pipe")
	if err != nil {
		t.Fatal(err)
	}

	ac := assoc.Accept()
	if len(ac.PresentationContexts) != 3 {
		t.Fatalf("Expected all 3 contexts in AC, got %d", len(ac.PresentationContexts))
	}
	for i, id := range []byte{1, 3, 5} {
		if ac.PresentationContexts[i].ID != id {
			t.Errorf("AC context %d has id %d, want %d", i, ac.PresentationContexts[i].ID, id)
		}
	}
	if ac.UserInfo.AsyncOperations == nil || ac.UserInfo.AsyncOperations.MaxPerformed != 1 {
		t.Errorf("AsyncOperations = %+v", ac.UserInfo.AsyncOperations)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateNegotiating, "Negotiating"},
		{StateOpen, "Open"},
		{StateReleasing, "Releasing"},
		{StateAborting, "Aborting"},
		{StateClosed, "Closed"},
		{State(42), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
