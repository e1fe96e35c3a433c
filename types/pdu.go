package types

// PDU type constants
const (
	TypeAssociateRQ = 0x01
	TypeAssociateAC = 0x02
	TypeAssociateRJ = 0x03
	TypePDataTF     = 0x04
	TypeReleaseRQ   = 0x05
	TypeReleaseRP   = 0x06
	TypeAbort       = 0x07
)

// Variable item types carried by A-ASSOCIATE-RQ/AC
const (
	ItemApplicationContext     = 0x10
	ItemPresentationContextRQ  = 0x20
	ItemPresentationContextAC  = 0x21
	ItemAbstractSyntax         = 0x30
	ItemTransferSyntax         = 0x40
	ItemUserInformation        = 0x50
	ItemMaximumLength          = 0x51
	ItemImplementationClassUID = 0x52
	ItemAsynchronousOperations = 0x53
	ItemImplementationVersion  = 0x55
)

// Presentation context results (PS3.8 9.3.3.2)
const (
	PresentationAcceptance                 byte = 0x00
	PresentationUserRejection              byte = 0x01
	PresentationNoReason                   byte = 0x02
	PresentationAbstractSyntaxNotSupported byte = 0x03
	PresentationTransferSyntaxNotSupported byte = 0x04
)

// Implementation identification sent in user information items.
const (
	ImplementationClassUID    = "1.2.826.0.1.3680043.10.1146.1"
	ImplementationVersionName = "DICOMMWL_1_0"
)

// DefaultMaxPDULength is proposed and accepted when the peer does not ask for less.
const DefaultMaxPDULength uint32 = 16384

// PDU represents a Protocol Data Unit
type PDU struct {
	Type   byte
	Length uint32
	Data   []byte
}

// PresentationResultName returns a readable name for a presentation context result.
func PresentationResultName(result byte) string {
	switch result {
	case PresentationAcceptance:
		return "acceptance"
	case PresentationUserRejection:
		return "user-rejection"
	case PresentationNoReason:
		return "no-reason"
	case PresentationAbstractSyntaxNotSupported:
		return "abstract-syntax-not-supported"
	case PresentationTransferSyntaxNotSupported:
		return "transfer-syntaxes-not-supported"
	default:
		return "unknown"
	}
}
