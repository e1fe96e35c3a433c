package client

import (
	"fmt"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/types"
)

// CEchoResponse represents the result of a C-ECHO operation.
type CEchoResponse struct {
	Status    uint16
	MessageID uint16
}

// SendCEcho performs a DICOM C-ECHO (verification) request and returns the response status.
// A zero messageID picks the next one for the association.
func (a *Association) SendCEcho(messageID uint16) (*CEchoResponse, error) {
	if messageID == 0 {
		messageID = a.NextMessageID()
	}

	presContextID, err := a.GetPresentationContextID(types.VerificationSOPClass)
	if err != nil {
		return nil, err
	}

	command := &types.Message{
		CommandField:        types.CEchoRQ,
		MessageID:           messageID,
		CommandDataSetType:  types.NoDataSet,
		AffectedSOPClassUID: types.VerificationSOPClass,
	}

	if err := a.send(presContextID, command, nil); err != nil {
		return nil, fmt.Errorf("failed to send C-ECHO request: %w", err)
	}

	received, err := a.receive()
	if err != nil {
		return nil, err
	}

	msg := received.Message
	if msg.CommandField != types.CEchoRSP {
		return nil, fmt.Errorf("%w: unexpected %s (expected C-ECHO-RSP)", errors.ErrInvalidMessage, types.CommandName(msg.CommandField))
	}

	return &CEchoResponse{
		Status:    msg.Status,
		MessageID: msg.MessageIDBeingRespondedTo,
	}, nil
}
