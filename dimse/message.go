package dimse

import (
	"fmt"
	"io"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/pdu"
	"github.com/caio-sobreiro/dicommwl/types"
)

// Connection interface for sending/receiving DICOM data
type Connection interface {
	io.ReadWriter
}

// SendDIMSEMessage sends a command and optional dataset on one presentation context.
func SendDIMSEMessage(conn Connection, presContextID byte, maxPDULength uint32, commandData []byte, datasetData []byte) error {
	if err := pdu.WritePData(conn, presContextID, maxPDULength, commandData, true); err != nil {
		return err
	}
	if len(datasetData) > 0 {
		if err := pdu.WritePData(conn, presContextID, maxPDULength, datasetData, false); err != nil {
			return err
		}
	}
	return nil
}

// Received is a reassembled DIMSE message as read by an association requestor.
type Received struct {
	PresentationContextID byte
	Message               *types.Message
	Data                  []byte
}

// Reader reassembles DIMSE messages from a connection. One P-DATA-TF may carry the
// tail of one message and the start of the next, so PDVs left over after a message
// completes are kept for the following Receive.
type Reader struct {
	conn    Connection
	backlog []pdu.PDV
}

// NewReader returns a Reader on conn.
func NewReader(conn Connection) *Reader {
	return &Reader{conn: conn}
}

// Buffered reports whether PDVs from an earlier P-DATA-TF are still waiting.
func (r *Reader) Buffered() bool {
	return len(r.backlog) > 0
}

// Receive returns the next complete message (command and, when announced, its dataset).
// An A-ABORT from the peer is returned as *errors.AbortError.
func (r *Reader) Receive() (*Received, error) {
	var (
		commandData []byte
		datasetData []byte
		received    *Received
	)

	for {
		if len(r.backlog) == 0 {
			pdvs, err := r.readPDVs()
			if err != nil {
				return nil, err
			}
			r.backlog = pdvs
		}

		for len(r.backlog) > 0 {
			pdv := r.backlog[0]
			r.backlog = r.backlog[1:]

			if pdv.IsCommand() {
				if received != nil {
					return nil, errors.NewPDUError(pdu.TypePDataTF, "command fragment before dataset completed")
				}
				commandData = append(commandData, pdv.Data...)
				if !pdv.IsLast() {
					continue
				}
				msg, err := DecodeCommand(commandData)
				if err != nil {
					return nil, fmt.Errorf("failed to decode command: %w", err)
				}
				received = &Received{PresentationContextID: pdv.ContextID, Message: msg}
				if !msg.HasDataSet() {
					return received, nil
				}
				continue
			}

			if received == nil {
				return nil, errors.NewPDUError(pdu.TypePDataTF, "dataset fragment before command")
			}
			datasetData = append(datasetData, pdv.Data...)
			if pdv.IsLast() {
				received.Data = datasetData
				return received, nil
			}
		}
	}
}

func (r *Reader) readPDVs() ([]pdu.PDV, error) {
	p, err := pdu.ReadPDU(r.conn)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case pdu.TypePDataTF:
	case pdu.TypeAbort:
		return nil, pdu.ParseAbort(p.Data)
	default:
		return nil, errors.NewPDUError(p.Type, fmt.Sprintf("unexpected %s while waiting for a DIMSE message", pdu.TypeName(p.Type)))
	}
	return pdu.ParsePDVs(p.Data)
}

// ReceiveDIMSEMessage reads one message from conn. PDVs that follow the message in the
// same P-DATA-TF are dropped; peers that may pack messages need a Reader.
func ReceiveDIMSEMessage(conn Connection) (*Received, error) {
	return NewReader(conn).Receive()
}
