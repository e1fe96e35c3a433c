package client

import (
	"context"
	"fmt"

	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/dimse"
	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/types"
)

// CFindRequest encapsulates the information required to perform a C-FIND query.
type CFindRequest struct {
	SOPClassUID string // default: Study Root Query/Retrieve FIND
	MessageID   uint16 // zero picks the next one for the association
	Priority    uint16
	Dataset     *dicom.Dataset
}

// CFindResponse represents a single C-FIND response from the SCP.
type CFindResponse struct {
	Status       uint16
	MessageID    uint16
	ErrorComment string
	Dataset      *dicom.Dataset
}

// Pending reports whether more responses follow this one.
func (r *CFindResponse) Pending() bool {
	return r.Status == types.StatusPending || r.Status == 0xFF01
}

// prepare fills request defaults and returns the C-FIND-RQ and its encoded identifier.
func (a *Association) prepare(req *CFindRequest) (byte, *types.Message, []byte, error) {
	if req == nil {
		return 0, nil, nil, fmt.Errorf("c-find request cannot be nil")
	}
	if req.Dataset == nil {
		return 0, nil, nil, fmt.Errorf("c-find request requires a dataset")
	}

	if req.SOPClassUID == "" {
		req.SOPClassUID = types.StudyRootQueryRetrieveInformationModelFind
	}
	if req.MessageID == 0 {
		req.MessageID = a.NextMessageID()
	}

	presContextID, err := a.GetPresentationContextID(req.SOPClassUID)
	if err != nil {
		return 0, nil, nil, err
	}

	// The identifier must use the transfer syntax accepted for this context.
	pc, _ := a.PresentationContext(presContextID)
	datasetData, err := dicom.EncodeDatasetWithTransferSyntax(req.Dataset, pc.TransferSyntax)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to encode C-FIND identifier: %w", err)
	}

	command := &types.Message{
		CommandField:        types.CFindRQ,
		MessageID:           req.MessageID,
		CommandDataSetType:  types.DataSetPresent,
		Priority:            req.Priority,
		AffectedSOPClassUID: req.SOPClassUID,
	}
	return presContextID, command, datasetData, nil
}

// decodeResponse turns a received message into a CFindResponse.
func (a *Association) decodeResponse(received *dimse.Received) (*CFindResponse, error) {
	msg := received.Message
	if msg.CommandField != types.CFindRSP {
		return nil, fmt.Errorf("%w: unexpected %s (expected C-FIND-RSP)", errors.ErrInvalidMessage, types.CommandName(msg.CommandField))
	}

	rsp := &CFindResponse{
		Status:       msg.Status,
		MessageID:    msg.MessageIDBeingRespondedTo,
		ErrorComment: msg.ErrorComment,
	}

	if len(received.Data) > 0 {
		transferSyntax := types.ImplicitVRLittleEndian
		if pc, ok := a.PresentationContext(received.PresentationContextID); ok && pc.TransferSyntax != "" {
			transferSyntax = pc.TransferSyntax
		}
		dataset, err := dicom.ParseDatasetWithTransferSyntax(received.Data, transferSyntax)
		if err != nil {
			a.logger.Warn("Failed to parse C-FIND response dataset",
				"error", err,
				"message_id", rsp.MessageID,
				"status", fmt.Sprintf("0x%04X", rsp.Status))
		}
		rsp.Dataset = dataset
	}
	return rsp, nil
}

// SendCFind performs a DICOM C-FIND query and returns all responses in order. When ctx
// is canceled before the final response, a C-CANCEL is sent and the responses up to
// the SCP's Cancel status are returned.
func (a *Association) SendCFind(ctx context.Context, req *CFindRequest) ([]*CFindResponse, error) {
	presContextID, command, datasetData, err := a.prepare(req)
	if err != nil {
		return nil, err
	}

	if err := a.send(presContextID, command, datasetData); err != nil {
		return nil, fmt.Errorf("failed to send C-FIND request: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		if err := a.SendCCancel(req.MessageID, req.SOPClassUID); err != nil {
			a.logger.Warn("Failed to cancel C-FIND", "message_id", req.MessageID, "error", err)
		}
	})
	defer stop()

	var responses []*CFindResponse

	for {
		received, err := a.receive()
		if err != nil {
			return responses, err
		}

		rsp, err := a.decodeResponse(received)
		if err != nil {
			return responses, err
		}
		if rsp.MessageID != req.MessageID {
			a.logger.Warn("Ignoring response for another operation",
				"message_id", rsp.MessageID,
				"expected", req.MessageID)
			continue
		}

		responses = append(responses, rsp)

		if !rsp.Pending() {
			break
		}
	}

	return responses, nil
}
