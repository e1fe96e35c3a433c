package dimse

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/caio-sobreiro/dicommwl/types"
)

// Command set element numbers (group 0000).
const (
	elementGroupLength               = 0x0000
	elementAffectedSOPClassUID       = 0x0002
	elementRequestedSOPClassUID      = 0x0003
	elementCommandField              = 0x0100
	elementMessageID                 = 0x0110
	elementMessageIDBeingRespondedTo = 0x0120
	elementPriority                  = 0x0700
	elementCommandDataSetType        = 0x0800
	elementStatus                    = 0x0900
	elementErrorComment              = 0x0902
	elementAffectedSOPInstanceUID    = 0x1000
)

func isRequest(commandField uint16) bool {
	return commandField&0x8000 == 0
}

func appendUID(buf []byte, element uint16, uid string) []byte {
	value := []byte(uid)
	if len(value)%2 == 1 {
		value = append(value, 0x00)
	}
	return AppendImplicitElement(buf, 0x0000, element, value)
}

func appendUint16(buf []byte, element uint16, v uint16) []byte {
	return AppendImplicitElement(buf, 0x0000, element, binary.LittleEndian.AppendUint16(nil, v))
}

// EncodeCommand encodes a DIMSE command message using Implicit VR Little Endian
func EncodeCommand(msg *types.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil command")
	}
	buf := make([]byte, 0, 256)

	// Command Group Length (0000,0000) - filled in at the end
	buf = AppendImplicitElement(buf, 0x0000, elementGroupLength, make([]byte, 4))
	lengthPos := len(buf) - 4

	if msg.AffectedSOPClassUID != "" {
		buf = appendUID(buf, elementAffectedSOPClassUID, msg.AffectedSOPClassUID)
	}
	if msg.RequestedSOPClassUID != "" {
		buf = appendUID(buf, elementRequestedSOPClassUID, msg.RequestedSOPClassUID)
	}

	buf = appendUint16(buf, elementCommandField, msg.CommandField)

	// Requests carry a Message ID, C-CANCEL only references one.
	if (isRequest(msg.CommandField) && msg.CommandField != types.CCancelRQ) || msg.MessageID != 0 {
		buf = appendUint16(buf, elementMessageID, msg.MessageID)
	}
	if !isRequest(msg.CommandField) || msg.CommandField == types.CCancelRQ || msg.MessageIDBeingRespondedTo != 0 {
		buf = appendUint16(buf, elementMessageIDBeingRespondedTo, msg.MessageIDBeingRespondedTo)
	}

	// Priority is mandatory on C-FIND-RQ even when it is medium (0).
	if msg.CommandField == types.CFindRQ || msg.Priority != 0 {
		buf = appendUint16(buf, elementPriority, msg.Priority)
	}

	buf = appendUint16(buf, elementCommandDataSetType, msg.CommandDataSetType)

	if !isRequest(msg.CommandField) {
		buf = appendUint16(buf, elementStatus, msg.Status)
	}

	if msg.ErrorComment != "" {
		comment := msg.ErrorComment
		if len(comment) > 64 {
			comment = comment[:64]
		}
		if len(comment)%2 == 1 {
			comment += " "
		}
		buf = AppendImplicitElement(buf, 0x0000, elementErrorComment, []byte(comment))
	}

	if msg.AffectedSOPInstanceUID != "" {
		buf = appendUID(buf, elementAffectedSOPInstanceUID, msg.AffectedSOPInstanceUID)
	}

	binary.LittleEndian.PutUint32(buf[lengthPos:lengthPos+4], uint32(len(buf)-lengthPos-4))
	return buf, nil
}

// AppendImplicitElement appends a DICOM element using Implicit VR (no VR field)
func AppendImplicitElement(buf []byte, group, element uint16, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, group)
	buf = binary.LittleEndian.AppendUint16(buf, element)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
	return append(buf, value...)
}

func trimText(value []byte) string {
	return strings.TrimRight(string(value), "\x00 ")
}

// DecodeCommand decodes a DIMSE command message. Elements outside group 0000 and
// unknown command elements are skipped.
func DecodeCommand(data []byte) (*types.Message, error) {
	msg := &types.Message{
		CommandDataSetType: types.NoDataSet,
	}
	sawCommandField := false
	offset := 0

	for offset < len(data) {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("command set truncated at offset %d", offset)
		}
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		element := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		end := offset + 8 + int(length)
		if length > uint32(len(data)) || end > len(data) {
			return nil, fmt.Errorf("command element (%04x,%04x) length %d exceeds command set", group, element, length)
		}
		value := data[offset+8 : end]
		offset = end

		if group != 0x0000 {
			continue
		}

		switch element {
		case elementAffectedSOPClassUID:
			msg.AffectedSOPClassUID = trimText(value)
		case elementRequestedSOPClassUID:
			msg.RequestedSOPClassUID = trimText(value)
		case elementAffectedSOPInstanceUID:
			msg.AffectedSOPInstanceUID = trimText(value)
		case elementErrorComment:
			msg.ErrorComment = trimText(value)
		case elementCommandField, elementMessageID, elementMessageIDBeingRespondedTo,
			elementPriority, elementCommandDataSetType, elementStatus:
			if len(value) != 2 {
				return nil, fmt.Errorf("command element (0000,%04x) has length %d, want 2", element, len(value))
			}
			v := binary.LittleEndian.Uint16(value)
			switch element {
			case elementCommandField:
				msg.CommandField = v
				sawCommandField = true
			case elementMessageID:
				msg.MessageID = v
			case elementMessageIDBeingRespondedTo:
				msg.MessageIDBeingRespondedTo = v
			case elementPriority:
				msg.Priority = v
			case elementCommandDataSetType:
				msg.CommandDataSetType = v
			case elementStatus:
				msg.Status = v
			}
		}
	}

	if !sawCommandField {
		return nil, fmt.Errorf("command set has no Command Field")
	}
	return msg, nil
}
