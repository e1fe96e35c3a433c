package client

import (
	"fmt"

	"github.com/caio-sobreiro/dicommwl/types"
)

// SendCCancel sends a C-CANCEL-RQ to cancel a pending C-FIND operation.
// The messageID parameter must match the MessageID of the operation being canceled.
// C-CANCEL does not have a response: the SCP ends the operation with a Cancel status.
func (a *Association) SendCCancel(messageID uint16, sopClassUID string) error {
	if messageID == 0 {
		return fmt.Errorf("messageID must be non-zero for C-CANCEL")
	}

	if sopClassUID == "" {
		return fmt.Errorf("sopClassUID must be provided for C-CANCEL")
	}

	presContextID, err := a.GetPresentationContextID(sopClassUID)
	if err != nil {
		return err
	}

	command := &types.Message{
		CommandField:              types.CCancelRQ,
		MessageIDBeingRespondedTo: messageID,
		CommandDataSetType:        types.NoDataSet,
	}

	if err := a.send(presContextID, command, nil); err != nil {
		return fmt.Errorf("failed to send C-CANCEL request: %w", err)
	}

	a.logger.Debug("C-CANCEL sent", "message_id", messageID, "sop_class", types.SOPClassName(sopClassUID))

	return nil
}
