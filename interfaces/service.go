// Package interfaces contains all service and handler interfaces
package interfaces

import (
	"context"

	"github.com/caio-sobreiro/dicommwl/types"
)

// MessageContext describes where a DIMSE message arrived: the negotiated presentation
// context and the association it belongs to.
type MessageContext struct {
	PresentationContextID byte
	AbstractSyntax        string
	TransferSyntaxUID     string
	CallingAETitle        string
	CalledAETitle         string
	RemoteAddr            string
	AssociationID         string
}

// ServiceHandler interface for handling DIMSE operations
type ServiceHandler interface {
	HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta MessageContext) (*types.Message, []byte, error)
}

// StreamingServiceHandler interface for multi-response DIMSE operations
type StreamingServiceHandler interface {
	HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, meta MessageContext, responder ResponseSender) error
}

// ResponseSender interface for sending intermediate responses
type ResponseSender interface {
	SendResponse(msg *types.Message, data []byte) error
}

// DIMSEHandler receives presentation data values from the upper layer, one PDV at a time.
type DIMSEHandler interface {
	HandleDIMSEMessage(ctx context.Context, presContextID byte, msgCtrlHeader byte, data []byte, pduLayer PDULayer) error
}

// PDULayer is the part of the upper layer the DIMSE layer writes responses through.
type PDULayer interface {
	SendDIMSEResponse(presContextID byte, commandData []byte, datasetData []byte) error
	MessageContext(presContextID byte) (MessageContext, bool)
}
