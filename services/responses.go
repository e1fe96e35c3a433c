package services

import (
	"github.com/caio-sobreiro/dicommwl/types"
)

// ResponseBuilder provides convenient methods for creating standard DIMSE response messages.
//
// The builder populates MessageIDBeingRespondedTo and AffectedSOPClassUID from the
// request. CommandDataSetType is left to the DIMSE layer, which sets it from the
// dataset actually sent.
type ResponseBuilder struct {
	request *types.Message
}

// NewResponseBuilder creates a new response builder for the given request message.
func NewResponseBuilder(request *types.Message) *ResponseBuilder {
	return &ResponseBuilder{request: request}
}

// Response creates the response to the request with the given status.
func (b *ResponseBuilder) Response(status uint16) *types.Message {
	return &types.Message{
		CommandField:              types.ResponseCommandFor(b.request.CommandField),
		MessageIDBeingRespondedTo: b.request.MessageID,
		AffectedSOPClassUID:       b.request.AffectedSOPClassUID,
		CommandDataSetType:        types.NoDataSet,
		Status:                    status,
	}
}

// CEchoResponse creates a C-ECHO-RSP message.
func (b *ResponseBuilder) CEchoResponse(status uint16) *types.Message {
	rsp := b.Response(status)
	rsp.CommandField = types.CEchoRSP
	rsp.AffectedSOPClassUID = types.VerificationSOPClass
	return rsp
}

// CFindResponse creates a C-FIND-RSP message.
//
// For pending responses with matches, set status=types.StatusPending and hasDataset=true.
// For the final response, set status=types.StatusSuccess and hasDataset=false.
func (b *ResponseBuilder) CFindResponse(status uint16, hasDataset bool) *types.Message {
	rsp := b.Response(status)
	rsp.CommandField = types.CFindRSP
	if hasDataset {
		rsp.CommandDataSetType = types.DataSetPresent
	}
	return rsp
}

// Helper functions for creating responses without a builder instance

// NewCEchoResponse creates a C-ECHO-RSP message from a request.
func NewCEchoResponse(request *types.Message, status uint16) *types.Message {
	return NewResponseBuilder(request).CEchoResponse(status)
}

// NewCFindPendingResponse creates a pending C-FIND-RSP message (with dataset).
func NewCFindPendingResponse(request *types.Message) *types.Message {
	return NewResponseBuilder(request).CFindResponse(types.StatusPending, true)
}

// NewCFindSuccessResponse creates a final success C-FIND-RSP message (no dataset).
func NewCFindSuccessResponse(request *types.Message) *types.Message {
	return NewResponseBuilder(request).CFindResponse(types.StatusSuccess, false)
}

// NewCFindCancelResponse creates the final C-FIND-RSP sent after a C-CANCEL.
func NewCFindCancelResponse(request *types.Message) *types.Message {
	return NewResponseBuilder(request).CFindResponse(types.StatusCancel, false)
}

// NewCFindErrorResponse creates an error C-FIND-RSP message carrying an error comment.
func NewCFindErrorResponse(request *types.Message, status uint16, comment string) *types.Message {
	rsp := NewResponseBuilder(request).CFindResponse(status, false)
	rsp.ErrorComment = comment
	return rsp
}

// NewUnrecognizedOperationResponse answers a request no service handles.
func NewUnrecognizedOperationResponse(request *types.Message) *types.Message {
	return NewResponseBuilder(request).Response(types.StatusUnrecognizedOperation)
}
