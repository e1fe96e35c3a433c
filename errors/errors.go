// Package errors holds the error types shared by the association, message and worklist layers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrConnectionClosed    = errors.New("dicom: connection closed")
	ErrAssociationRejected = errors.New("dicom: association rejected")
	ErrAssociationAborted  = errors.New("dicom: association aborted")
	ErrInvalidPDU          = errors.New("dicom: invalid PDU")
	ErrUnsupportedTransfer = errors.New("dicom: unsupported transfer syntax")
	ErrNoPresentationCtx   = errors.New("dicom: no suitable presentation context")
	ErrInvalidMessage      = errors.New("dicom: invalid DIMSE message")
	ErrOperationCanceled   = errors.New("dicom: operation canceled")
)

// AssociationError represents an A-ASSOCIATE-RJ, sent or received.
type AssociationError struct {
	Result AssociationRejectResult
	Source AssociationRejectSource
	Reason AssociationRejectReason
	Msg    string
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("association rejected: %s (result: %s, source: %s, reason: %s)",
		e.Msg, e.Result, e.Source, e.Reason)
}

// Is lets errors.Is(err, ErrAssociationRejected) match any rejection.
func (e *AssociationError) Is(target error) bool {
	return target == ErrAssociationRejected
}

// AssociationRejectResult distinguishes permanent from transient rejections.
type AssociationRejectResult byte

const (
	RejectResultPermanent AssociationRejectResult = 0x01
	RejectResultTransient AssociationRejectResult = 0x02
)

func (r AssociationRejectResult) String() string {
	switch r {
	case RejectResultPermanent:
		return "rejected-permanent"
	case RejectResultTransient:
		return "rejected-transient"
	default:
		return "unknown"
	}
}

// AssociationRejectReason represents why an association was rejected. The meaning
// depends on the source; the values below are the service-user reasons.
type AssociationRejectReason byte

const (
	RejectReasonUnknown                        AssociationRejectReason = 0x00
	RejectReasonNoReasonGiven                  AssociationRejectReason = 0x01
	RejectReasonApplicationContextNotSupported AssociationRejectReason = 0x02
	RejectReasonCallingAETitleNotRecognized    AssociationRejectReason = 0x03
	RejectReasonCalledAETitleNotRecognized     AssociationRejectReason = 0x07
)

func (r AssociationRejectReason) String() string {
	switch r {
	case RejectReasonNoReasonGiven:
		return "no-reason-given"
	case RejectReasonApplicationContextNotSupported:
		return "application-context-not-supported"
	case RejectReasonCallingAETitleNotRecognized:
		return "calling-ae-title-not-recognized"
	case RejectReasonCalledAETitleNotRecognized:
		return "called-ae-title-not-recognized"
	default:
		return "unknown"
	}
}

// AssociationRejectSource represents who rejected the association
type AssociationRejectSource byte

const (
	RejectSourceUnknown             AssociationRejectSource = 0x00
	RejectSourceServiceUser         AssociationRejectSource = 0x01
	RejectSourceServiceProviderACSE AssociationRejectSource = 0x02
	RejectSourceServiceProvider     AssociationRejectSource = 0x03
)

func (s AssociationRejectSource) String() string {
	switch s {
	case RejectSourceServiceUser:
		return "service-user"
	case RejectSourceServiceProviderACSE:
		return "service-provider-acse"
	case RejectSourceServiceProvider:
		return "service-provider-presentation"
	default:
		return "unknown"
	}
}

// NewAssociationError creates a permanent association rejection.
func NewAssociationError(source AssociationRejectSource, reason AssociationRejectReason, msg string) *AssociationError {
	return &AssociationError{
		Result: RejectResultPermanent,
		Source: source,
		Reason: reason,
		Msg:    msg,
	}
}

// DIMSEError represents a DIMSE operation error with status code
type DIMSEError struct {
	Status    uint16
	Operation string
	Msg       string
}

func (e *DIMSEError) Error() string {
	return fmt.Sprintf("DIMSE %s failed: %s (status: 0x%04X %s)", e.Operation, e.Msg, e.Status, StatusName(e.Status))
}

// NewDIMSEError creates a new DIMSE error
func NewDIMSEError(operation string, status uint16, msg string) *DIMSEError {
	return &DIMSEError{
		Operation: operation,
		Status:    status,
		Msg:       msg,
	}
}

// IsSuccess returns true if the DIMSE status indicates success
func (e *DIMSEError) IsSuccess() bool {
	return e.Status == 0x0000
}

// IsPending returns true if the DIMSE status indicates pending
func (e *DIMSEError) IsPending() bool {
	return e.Status == 0xFF00 || e.Status == 0xFF01
}

// IsCancel returns true if the operation was terminated by a C-CANCEL.
func (e *DIMSEError) IsCancel() bool {
	return e.Status == 0xFE00
}

// IsWarning returns true if the DIMSE status indicates a warning
func (e *DIMSEError) IsWarning() bool {
	return (e.Status&0xFF00) == 0x0100 || (e.Status&0xF000) == 0xB000
}

// IsFailure returns true if the DIMSE status indicates failure
func (e *DIMSEError) IsFailure() bool {
	return (e.Status&0xF000) == 0xC000 || (e.Status&0xF000) == 0xA000 || e.Status == 0x0122
}

// StatusName returns a short name for the C-FIND and C-ECHO statuses.
func StatusName(status uint16) string {
	switch {
	case status == 0x0000:
		return "Success"
	case status == 0xFF00 || status == 0xFF01:
		return "Pending"
	case status == 0xFE00:
		return "Cancel"
	case status == 0x0122:
		return "SOPClassNotSupported"
	case status == 0xA700:
		return "OutOfResources"
	case status == 0xA900:
		return "IdentifierDoesNotMatchSOPClass"
	case status&0xF000 == 0xC000:
		return "UnableToProcess"
	default:
		return "Unknown"
	}
}

// NetworkError represents a network-level error
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{
		Op:  op,
		Err: err,
	}
}

// PDUError represents a PDU-level protocol error
type PDUError struct {
	PDUType byte
	Msg     string
}

func (e *PDUError) Error() string {
	return fmt.Sprintf("PDU error (type: 0x%02X): %s", e.PDUType, e.Msg)
}

// Is lets errors.Is(err, ErrInvalidPDU) match any PDU error.
func (e *PDUError) Is(target error) bool {
	return target == ErrInvalidPDU
}

// NewPDUError creates a new PDU error
func NewPDUError(pduType byte, msg string) *PDUError {
	return &PDUError{
		PDUType: pduType,
		Msg:     msg,
	}
}

// AbortSource identifies who initiated an A-ABORT.
type AbortSource byte

const (
	AbortSourceServiceUser     AbortSource = 0x00
	AbortSourceServiceProvider AbortSource = 0x02
)

func (s AbortSource) String() string {
	switch s {
	case AbortSourceServiceUser:
		return "service-user"
	case AbortSourceServiceProvider:
		return "service-provider"
	default:
		return "unknown"
	}
}

// AbortReason is the provider reason carried by an A-ABORT.
type AbortReason byte

const (
	AbortReasonNotSpecified     AbortReason = 0x00
	AbortReasonUnrecognizedPDU  AbortReason = 0x01
	AbortReasonUnexpectedPDU    AbortReason = 0x02
	AbortReasonUnrecognizedParm AbortReason = 0x04
	AbortReasonUnexpectedParm   AbortReason = 0x05
	AbortReasonInvalidParmValue AbortReason = 0x06
)

func (r AbortReason) String() string {
	switch r {
	case AbortReasonNotSpecified:
		return "reason-not-specified"
	case AbortReasonUnrecognizedPDU:
		return "unrecognized-pdu"
	case AbortReasonUnexpectedPDU:
		return "unexpected-pdu"
	case AbortReasonUnrecognizedParm:
		return "unrecognized-pdu-parameter"
	case AbortReasonUnexpectedParm:
		return "unexpected-pdu-parameter"
	case AbortReasonInvalidParmValue:
		return "invalid-pdu-parameter-value"
	default:
		return "unknown"
	}
}

// AbortError represents an A-ABORT, either received from the peer or one the local
// side decided to send.
type AbortError struct {
	Source AbortSource
	Reason AbortReason
	Msg    string
}

func (e *AbortError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("association aborted by %s: %s (reason: %s)", e.Source, e.Msg, e.Reason)
	}
	return fmt.Sprintf("association aborted by %s (reason: %s)", e.Source, e.Reason)
}

// Is lets errors.Is(err, ErrAssociationAborted) match any abort.
func (e *AbortError) Is(target error) bool {
	return target == ErrAssociationAborted
}

// NewAbortError creates a new abort error
func NewAbortError(source AbortSource, reason AbortReason) *AbortError {
	return &AbortError{
		Source: source,
		Reason: reason,
	}
}

// NewProviderAbort describes a protocol violation that the local side answers with an
// A-ABORT from the service provider.
func NewProviderAbort(reason AbortReason, format string, args ...any) *AbortError {
	return &AbortError{
		Source: AbortSourceServiceProvider,
		Reason: reason,
		Msg:    fmt.Sprintf(format, args...),
	}
}
