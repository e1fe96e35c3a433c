package pdu

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/types"
)

// PDU types
const (
	TypeAssociateRQ = types.TypeAssociateRQ
	TypeAssociateAC = types.TypeAssociateAC
	TypeAssociateRJ = types.TypeAssociateRJ
	TypePDataTF     = types.TypePDataTF
	TypeReleaseRQ   = types.TypeReleaseRQ
	TypeReleaseRP   = types.TypeReleaseRP
	TypeAbort       = types.TypeAbort
)

// PDU represents a Protocol Data Unit
type PDU = types.PDU

const headerLength = 6

// maxReadLength bounds a single PDU read so a corrupt length cannot exhaust memory.
const maxReadLength = 64 << 20

// TypeName returns the service primitive name of a PDU type.
func TypeName(pduType byte) string {
	switch pduType {
	case TypeAssociateRQ:
		return "A-ASSOCIATE-RQ"
	case TypeAssociateAC:
		return "A-ASSOCIATE-AC"
	case TypeAssociateRJ:
		return "A-ASSOCIATE-RJ"
	case TypePDataTF:
		return "P-DATA-TF"
	case TypeReleaseRQ:
		return "A-RELEASE-RQ"
	case TypeReleaseRP:
		return "A-RELEASE-RP"
	case TypeAbort:
		return "A-ABORT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", pduType)
	}
}

// ReadPDU reads a complete PDU from r.
func ReadPDU(r io.Reader) (*PDU, error) {
	header := make([]byte, headerLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	pduType := header[0]
	pduLength := binary.BigEndian.Uint32(header[2:6])
	if pduLength > maxReadLength {
		return nil, errors.NewPDUError(pduType, fmt.Sprintf("length %d exceeds limit", pduLength))
	}

	data := make([]byte, pduLength)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read %s data: %w", TypeName(pduType), err)
	}

	return &PDU{
		Type:   pduType,
		Length: pduLength,
		Data:   data,
	}, nil
}

// WritePDU writes header and body in a single call.
func WritePDU(w io.Writer, pduType byte, data []byte) error {
	buf := make([]byte, headerLength, headerLength+len(data))
	buf[0] = pduType
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(data)))
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to send %s: %w", TypeName(pduType), err)
	}
	return nil
}

// WriteReleaseRQ sends A-RELEASE-RQ.
func WriteReleaseRQ(w io.Writer) error {
	return WritePDU(w, TypeReleaseRQ, make([]byte, 4))
}

// WriteReleaseRP sends A-RELEASE-RP.
func WriteReleaseRP(w io.Writer) error {
	return WritePDU(w, TypeReleaseRP, make([]byte, 4))
}

// WriteAbort sends A-ABORT with the given source and reason.
func WriteAbort(w io.Writer, source errors.AbortSource, reason errors.AbortReason) error {
	return WritePDU(w, TypeAbort, []byte{0x00, 0x00, byte(source), byte(reason)})
}

// ParseAbort decodes the body of an A-ABORT PDU.
func ParseAbort(data []byte) *errors.AbortError {
	if len(data) < 4 {
		return errors.NewAbortError(errors.AbortSourceServiceProvider, errors.AbortReasonNotSpecified)
	}
	return errors.NewAbortError(errors.AbortSource(data[2]), errors.AbortReason(data[3]))
}

// WriteAssociateRJ sends A-ASSOCIATE-RJ for the given rejection.
func WriteAssociateRJ(w io.Writer, rejection *errors.AssociationError) error {
	return WritePDU(w, TypeAssociateRJ, []byte{0x00, byte(rejection.Result), byte(rejection.Source), byte(rejection.Reason)})
}

// ParseAssociateRJ decodes the body of an A-ASSOCIATE-RJ PDU.
func ParseAssociateRJ(data []byte) (*errors.AssociationError, error) {
	if len(data) < 4 {
		return nil, errors.NewPDUError(TypeAssociateRJ, fmt.Sprintf("body too short: %d bytes", len(data)))
	}
	return &errors.AssociationError{
		Result: errors.AssociationRejectResult(data[1]),
		Source: errors.AssociationRejectSource(data[2]),
		Reason: errors.AssociationRejectReason(data[3]),
		Msg:    "rejected by peer",
	}, nil
}

// Message control header bits.
const (
	pdvCommand      byte = 0x01
	pdvLastFragment byte = 0x02
)

// PDV is one presentation data value item of a P-DATA-TF PDU.
type PDV struct {
	ContextID     byte
	ControlHeader byte
	Data          []byte
}

// IsCommand reports whether the fragment belongs to the command set.
func (p PDV) IsCommand() bool {
	return p.ControlHeader&pdvCommand != 0
}

// IsLast reports whether the fragment is the last of its command or dataset.
func (p PDV) IsLast() bool {
	return p.ControlHeader&pdvLastFragment != 0
}

// NewPDV builds a PDV item with its message control header set.
func NewPDV(presContextID byte, data []byte, isCommand, last bool) PDV {
	control := byte(0)
	if isCommand {
		control |= pdvCommand
	}
	if last {
		control |= pdvLastFragment
	}
	return PDV{ContextID: presContextID, ControlHeader: control, Data: data}
}

// EncodePDVs returns the body of a P-DATA-TF PDU carrying pdvs in order.
func EncodePDVs(pdvs ...PDV) []byte {
	size := 0
	for _, pdv := range pdvs {
		size += 6 + len(pdv.Data)
	}
	body := make([]byte, 0, size)
	for _, pdv := range pdvs {
		body = binary.BigEndian.AppendUint32(body, uint32(len(pdv.Data)+2))
		body = append(body, pdv.ContextID, pdv.ControlHeader)
		body = append(body, pdv.Data...)
	}
	return body
}

// ParsePDVs splits the body of a P-DATA-TF PDU into its PDV items.
func ParsePDVs(data []byte) ([]PDV, error) {
	var pdvs []PDV
	offset := 0
	for offset < len(data) {
		if offset+6 > len(data) {
			return nil, errors.NewPDUError(TypePDataTF, "truncated PDV header")
		}
		pdvLength := binary.BigEndian.Uint32(data[offset : offset+4])
		if pdvLength < 2 {
			return nil, errors.NewPDUError(TypePDataTF, fmt.Sprintf("PDV length %d too short", pdvLength))
		}
		end := offset + 4 + int(pdvLength)
		if end > len(data) {
			return nil, errors.NewPDUError(TypePDataTF, "PDV length exceeds PDU payload")
		}
		pdvs = append(pdvs, PDV{
			ContextID:     data[offset+4],
			ControlHeader: data[offset+5],
			Data:          data[offset+6 : end],
		})
		offset = end
	}
	if len(pdvs) == 0 {
		return nil, errors.NewPDUError(TypePDataTF, "no PDV items")
	}
	return pdvs, nil
}

// WritePData sends data as one or more P-DATA-TF PDUs, each carrying a single PDV that
// fits within maxPDULength. The last fragment gets the last-fragment bit.
func WritePData(w io.Writer, presContextID byte, maxPDULength uint32, data []byte, isCommand bool) error {
	// PDU body = PDV length (4) + context id (1) + control header (1) + fragment
	maxFragment := int(maxPDULength) - 6
	if maxPDULength == 0 || maxFragment <= 0 {
		maxFragment = int(types.DefaultMaxPDULength) - 6
	}

	offset := 0
	for {
		chunk := len(data) - offset
		last := true
		if chunk > maxFragment {
			chunk = maxFragment
			last = false
		}

		pdv := NewPDV(presContextID, data[offset:offset+chunk], isCommand, last)
		if err := WritePDU(w, TypePDataTF, EncodePDVs(pdv)); err != nil {
			return err
		}

		offset += chunk
		if last {
			return nil
		}
	}
}
