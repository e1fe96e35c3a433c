package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAssociationError(t *testing.T) {
	err := NewAssociationError(
		RejectSourceServiceUser,
		RejectReasonCalledAETitleNotRecognized,
		"called AE title WRONG does not match WORKLIST",
	)

	if err.Result != RejectResultPermanent {
		t.Errorf("Result = %v, want %v", err.Result, RejectResultPermanent)
	}
	if err.Source != RejectSourceServiceUser {
		t.Errorf("Source = %v, want %v", err.Source, RejectSourceServiceUser)
	}
	if err.Reason != RejectReasonCalledAETitleNotRecognized {
		t.Errorf("Reason = %v, want %v", err.Reason, RejectReasonCalledAETitleNotRecognized)
	}

	msg := err.Error()
	for _, part := range []string{"rejected-permanent", "service-user", "called-ae-title-not-recognized"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}

	wrapped := fmt.Errorf("connect: %w", err)
	if !errors.Is(wrapped, ErrAssociationRejected) {
		t.Error("Wrapped association error should match ErrAssociationRejected")
	}
	var target *AssociationError
	if !errors.As(wrapped, &target) || target.Reason != RejectReasonCalledAETitleNotRecognized {
		t.Error("errors.As should recover the association error")
	}
}

func TestDIMSEError(t *testing.T) {
	tests := []struct {
		name      string
		status    uint16
		isSuccess bool
		isPending bool
		isCancel  bool
		isWarning bool
		isFailure bool
	}{
		{"Success", 0x0000, true, false, false, false, false},
		{"Pending", 0xFF00, false, true, false, false, false},
		{"Pending optional keys", 0xFF01, false, true, false, false, false},
		{"Cancel", 0xFE00, false, false, true, false, false},
		{"Warning", 0x0107, false, false, false, true, false},
		{"Failure", 0xC000, false, false, false, false, true},
		{"Identifier mismatch", 0xA900, false, false, false, false, true},
		{"SOP class not supported", 0x0122, false, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDIMSEError("C-FIND", tt.status, "test error")

			if err.IsSuccess() != tt.isSuccess {
				t.Errorf("IsSuccess() = %v, want %v", err.IsSuccess(), tt.isSuccess)
			}
			if err.IsPending() != tt.isPending {
				t.Errorf("IsPending() = %v, want %v", err.IsPending(), tt.isPending)
			}
			if err.IsCancel() != tt.isCancel {
				t.Errorf("IsCancel() = %v, want %v", err.IsCancel(), tt.isCancel)
			}
			if err.IsWarning() != tt.isWarning {
				t.Errorf("IsWarning() = %v, want %v", err.IsWarning(), tt.isWarning)
			}
			if err.IsFailure() != tt.isFailure {
				t.Errorf("IsFailure() = %v, want %v", err.IsFailure(), tt.isFailure)
			}
		})
	}
}

func TestStatusName(t *testing.T) {
	tests := []struct {
		status   uint16
		expected string
	}{
		{0x0000, "Success"},
		{0xFF00, "Pending"},
		{0xFE00, "Cancel"},
		{0xA900, "IdentifierDoesNotMatchSOPClass"},
		{0xC001, "UnableToProcess"},
		{0x1234, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := StatusName(tt.status); got != tt.expected {
				t.Errorf("StatusName(0x%04X) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	innerErr := errors.New("connection refused")
	err := NewNetworkError("dial", innerErr)

	if err.Op != "dial" {
		t.Errorf("Op = %v, want dial", err.Op)
	}

	if !errors.Is(err, innerErr) {
		t.Error("Should unwrap to inner error")
	}
}

func TestPDUError(t *testing.T) {
	err := NewPDUError(0x04, "invalid PDU length")

	if err.PDUType != 0x04 {
		t.Errorf("PDUType = 0x%02X, want 0x04", err.PDUType)
	}
	if !errors.Is(err, ErrInvalidPDU) {
		t.Error("PDU error should match ErrInvalidPDU")
	}
}

func TestAbortError(t *testing.T) {
	err := NewAbortError(AbortSourceServiceProvider, AbortReasonUnrecognizedPDU)

	if err.Source != AbortSourceServiceProvider {
		t.Errorf("Source = %v, want service-provider", err.Source)
	}
	if err.Reason != AbortReasonUnrecognizedPDU {
		t.Errorf("Reason = %v, want unrecognized-pdu", err.Reason)
	}
	if !errors.Is(err, ErrAssociationAborted) {
		t.Error("Abort error should match ErrAssociationAborted")
	}

	want := "association aborted by service-provider (reason: unrecognized-pdu)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderAbort(t *testing.T) {
	err := NewProviderAbort(AbortReasonInvalidParmValue, "presentation context %d not accepted", 5)

	if err.Source != AbortSourceServiceProvider {
		t.Errorf("Source = %v, want service-provider", err.Source)
	}
	if !strings.Contains(err.Error(), "presentation context 5 not accepted") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAssociationRejectReasonString(t *testing.T) {
	tests := []struct {
		reason   AssociationRejectReason
		expected string
	}{
		{RejectReasonNoReasonGiven, "no-reason-given"},
		{RejectReasonApplicationContextNotSupported, "application-context-not-supported"},
		{RejectReasonCallingAETitleNotRecognized, "calling-ae-title-not-recognized"},
		{RejectReasonCalledAETitleNotRecognized, "called-ae-title-not-recognized"},
		{AssociationRejectReason(0xFF), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.reason.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAssociationRejectSourceString(t *testing.T) {
	tests := []struct {
		source   AssociationRejectSource
		expected string
	}{
		{RejectSourceServiceUser, "service-user"},
		{RejectSourceServiceProviderACSE, "service-provider-acse"},
		{RejectSourceServiceProvider, "service-provider-presentation"},
		{AssociationRejectSource(0xFF), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.source.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAbortReasonString(t *testing.T) {
	tests := []struct {
		reason   AbortReason
		expected string
	}{
		{AbortReasonNotSpecified, "reason-not-specified"},
		{AbortReasonUnexpectedPDU, "unexpected-pdu"},
		{AbortReasonInvalidParmValue, "invalid-pdu-parameter-value"},
		{AbortReason(0x7F), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.reason.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}
