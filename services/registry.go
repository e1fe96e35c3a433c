package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/types"
)

// Registry manages DICOM service handlers and routes incoming DIMSE messages.
//
// The registry acts as a dispatcher, routing DIMSE messages to the appropriate
// service handler based on the command field. It supports both single-response
// and streaming (multi-response) operations.
//
// Example usage:
//
//	registry := services.NewRegistry(logger)
//	registry.RegisterHandler(types.CEchoRQ, services.NewEchoService(logger))
//	registry.RegisterHandler(types.CFindRQ, services.NewWorklistService(source, logger))
type Registry struct {
	mu       sync.RWMutex
	handlers map[uint16]interfaces.ServiceHandler
	logger   *slog.Logger
}

// NewRegistry creates a new, empty service registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[uint16]interfaces.ServiceHandler),
		logger:   logger,
	}
}

// RegisterHandler registers a service handler for a specific DIMSE command.
// Registering the same command again replaces the previous handler.
func (r *Registry) RegisterHandler(commandField uint16, handler interfaces.ServiceHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[commandField] = handler
}

// UnregisterHandler removes a service handler for a specific DIMSE command.
func (r *Registry) UnregisterHandler(commandField uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, commandField)
}

func (r *Registry) handler(commandField uint16) (interfaces.ServiceHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[commandField]
	return h, ok
}

// HandleDIMSE routes a message to its single-response handler. A command with no
// registered handler is answered with status 0x0211 (unrecognized operation).
func (r *Registry) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, []byte, error) {
	handler, ok := r.handler(msg.CommandField)
	if !ok {
		r.logUnhandled(ctx, msg, meta)
		return NewUnrecognizedOperationResponse(msg), nil, nil
	}
	return handler.HandleDIMSE(ctx, msg, data, meta)
}

// HandleDIMSEStreaming routes a message to its handler, using the streaming
// interface when the handler implements it. Errors from single-response handlers
// are reported to the peer as a failure response.
func (r *Registry) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext, responder interfaces.ResponseSender) error {
	r.logger.DebugContext(ctx, "Routing DIMSE message",
		"command", types.CommandName(msg.CommandField),
		"message_id", msg.MessageID)

	handler, ok := r.handler(msg.CommandField)
	if !ok {
		r.logUnhandled(ctx, msg, meta)
		return responder.SendResponse(NewUnrecognizedOperationResponse(msg), nil)
	}

	if streamingHandler, ok := handler.(interfaces.StreamingServiceHandler); ok {
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, data, meta, responder)
	}

	responseMsg, responseData, err := handler.HandleDIMSE(ctx, msg, data, meta)
	if err != nil {
		failure := NewResponseBuilder(msg).Response(types.StatusFailure)
		failure.ErrorComment = err.Error()
		if sendErr := responder.SendResponse(failure, nil); sendErr != nil {
			return sendErr
		}
		return fmt.Errorf("%s handler: %w", types.CommandName(msg.CommandField), err)
	}
	return responder.SendResponse(responseMsg, responseData)
}

func (r *Registry) logUnhandled(ctx context.Context, msg *types.Message, meta interfaces.MessageContext) {
	r.logger.WarnContext(ctx, "No handler registered for DIMSE command",
		"command_field", fmt.Sprintf("0x%04x", msg.CommandField),
		"calling_ae", meta.CallingAETitle)
}

// HasHandler returns true if a handler is registered for the given command field.
func (r *Registry) HasHandler(commandField uint16) bool {
	_, ok := r.handler(commandField)
	return ok
}

// RegisteredCommands returns the command fields that have handlers, in ascending order.
func (r *Registry) RegisteredCommands() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	commands := make([]uint16, 0, len(r.handlers))
	for cmd := range r.handlers {
		commands = append(commands, cmd)
	}
	slices.Sort(commands)
	return commands
}
