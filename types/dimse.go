package types

// DIMSE Command types
const (
	CFindRQ   = 0x0020
	CFindRSP  = 0x8020
	CEchoRQ   = 0x0030
	CEchoRSP  = 0x8030
	CCancelRQ = 0x0FFF
)

// DIMSE Status codes
const (
	StatusSuccess = 0x0000
	StatusPending = 0xFF00
	StatusCancel  = 0xFE00
	StatusFailure = 0xC000

	// C-FIND specific failures (PS3.4 C.4.1.1.4)
	StatusIdentifierDoesNotMatchSOPClass = 0xA900
	StatusUnableToProcess                = 0xC001
	StatusSOPClassNotSupported           = 0x0122
	StatusUnrecognizedOperation          = 0x0211
)

// Command Data Set Type (0000,0800) values
const (
	DataSetPresent = 0x0000
	NoDataSet      = 0x0101
)

// Priority (0000,0700) values
const (
	PriorityMedium = 0x0000
	PriorityHigh   = 0x0001
	PriorityLow    = 0x0002
)

// Message represents a parsed DIMSE command
type Message struct {
	CommandField              uint16
	MessageID                 uint16
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	RequestedSOPClassUID      string
	Priority                  uint16
	CommandDataSetType        uint16
	Status                    uint16
	MessageIDBeingRespondedTo uint16
	ErrorComment              string
	TransferSyntaxUID         string // Negotiated transfer syntax for associated dataset
}

// HasDataSet reports whether a dataset follows the command.
func (m *Message) HasDataSet() bool {
	return m.CommandDataSetType != NoDataSet
}

// IsPending reports whether the message is a pending response.
func (m *Message) IsPending() bool {
	return m.Status == StatusPending || m.Status == 0xFF01
}

// ResponseCommandFor maps a DIMSE request command to its corresponding response command.
func ResponseCommandFor(request uint16) uint16 {
	switch request {
	case CFindRQ:
		return CFindRSP
	case CEchoRQ:
		return CEchoRSP
	default:
		return request | 0x8000
	}
}

// CommandName returns the DIMSE name of a command field for logging.
func CommandName(command uint16) string {
	switch command {
	case CFindRQ:
		return "C-FIND-RQ"
	case CFindRSP:
		return "C-FIND-RSP"
	case CEchoRQ:
		return "C-ECHO-RQ"
	case CEchoRSP:
		return "C-ECHO-RSP"
	case CCancelRQ:
		return "C-CANCEL-RQ"
	default:
		return "UNKNOWN"
	}
}
