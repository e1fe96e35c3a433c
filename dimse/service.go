package dimse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/types"
)

// Command types
const (
	CFindRQ   = types.CFindRQ
	CFindRSP  = types.CFindRSP
	CEchoRQ   = types.CEchoRQ
	CEchoRSP  = types.CEchoRSP
	CCancelRQ = types.CCancelRQ
)

// Status codes
const (
	StatusSuccess = types.StatusSuccess
	StatusPending = types.StatusPending
	StatusCancel  = types.StatusCancel
	StatusFailure = types.StatusFailure
)

// assembly collects the fragments of one message on one presentation context.
type assembly struct {
	command []byte
	dataset []byte
	msg     *types.Message
}

// Service reassembles DIMSE messages from PDV fragments and runs them against a handler.
// Operations run in the background, one at a time, so the PDU layer keeps reading and a
// C-CANCEL can reach an operation that is still streaming responses.
type Service struct {
	handler interfaces.ServiceHandler
	logger  *slog.Logger

	mu       sync.Mutex
	pending  map[byte]*assembly
	inFlight map[uint16]context.CancelFunc

	perform chan struct{}
	wg      sync.WaitGroup
}

// responseHandler implements ResponseSender for streaming responses
type responseHandler struct {
	service       *Service
	presContextID byte
	pduLayer      interfaces.PDULayer
}

// SendResponse implements ResponseSender interface
func (r *responseHandler) SendResponse(msg *types.Message, data []byte) error {
	return r.service.sendDIMSEResponse(msg, data, r.presContextID, r.pduLayer)
}

// NewService creates a new DIMSE service with a handler
func NewService(handler interfaces.ServiceHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		handler:  handler,
		logger:   logger,
		pending:  make(map[byte]*assembly),
		inFlight: make(map[uint16]context.CancelFunc),
		perform:  make(chan struct{}, 1),
	}
}

// Wait blocks until every started operation has finished.
func (d *Service) Wait() {
	d.wg.Wait()
}

// HandleDIMSEMessage accepts one PDV. Protocol violations are returned as a
// service-provider *errors.AbortError.
func (d *Service) HandleDIMSEMessage(ctx context.Context, presContextID byte, msgCtrlHeader byte, data []byte, pduLayer interfaces.PDULayer) error {
	isCommand := msgCtrlHeader&0x01 != 0
	isLastFragment := msgCtrlHeader&0x02 != 0

	d.mu.Lock()
	asm, ok := d.pending[presContextID]
	if !ok {
		asm = &assembly{}
		d.pending[presContextID] = asm
	}
	d.mu.Unlock()

	if isCommand {
		if asm.msg != nil {
			return errors.NewProviderAbort(errors.AbortReasonUnexpectedParm,
				"new command on context %d before dataset of message %d completed", presContextID, asm.msg.MessageID)
		}
		asm.command = append(asm.command, data...)
		if !isLastFragment {
			return nil
		}

		msg, err := DecodeCommand(asm.command)
		if err != nil {
			return errors.NewProviderAbort(errors.AbortReasonInvalidParmValue, "invalid command set: %v", err)
		}
		asm.command = nil

		if msg.CommandField == CCancelRQ {
			d.reset(presContextID)
			d.cancel(msg.MessageIDBeingRespondedTo)
			return nil
		}

		asm.msg = msg
		if !msg.HasDataSet() {
			return d.dispatch(ctx, presContextID, pduLayer)
		}
		return nil
	}

	if asm.msg == nil {
		return errors.NewProviderAbort(errors.AbortReasonUnexpectedParm,
			"dataset fragment on context %d without a command", presContextID)
	}
	asm.dataset = append(asm.dataset, data...)
	if isLastFragment {
		return d.dispatch(ctx, presContextID, pduLayer)
	}
	return nil
}

func (d *Service) reset(presContextID byte) {
	d.mu.Lock()
	delete(d.pending, presContextID)
	d.mu.Unlock()
}

// cancel stops the operation with the given message ID, if it is still running.
func (d *Service) cancel(messageID uint16) {
	d.mu.Lock()
	cancel, ok := d.inFlight[messageID]
	d.mu.Unlock()

	if !ok {
		d.logger.Debug("C-CANCEL for an operation that is not running", "message_id", messageID)
		return
	}
	d.logger.Info("C-CANCEL received", "message_id", messageID)
	cancel()
}

// dispatch hands the completed message on presContextID to the handler.
func (d *Service) dispatch(ctx context.Context, presContextID byte, pduLayer interfaces.PDULayer) error {
	d.mu.Lock()
	asm := d.pending[presContextID]
	delete(d.pending, presContextID)
	d.mu.Unlock()

	meta, ok := pduLayer.MessageContext(presContextID)
	if !ok {
		return errors.NewProviderAbort(errors.AbortReasonInvalidParmValue,
			"presentation context %d was not accepted", presContextID)
	}

	msg := asm.msg
	msg.TransferSyntaxUID = meta.TransferSyntaxUID

	d.logger.InfoContext(ctx, "Processing DIMSE message",
		"command", types.CommandName(msg.CommandField),
		"message_id", msg.MessageID,
		"calling_ae", meta.CallingAETitle,
		"dataset_size", len(asm.dataset))

	opCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.inFlight[msg.MessageID] = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.inFlight, msg.MessageID)
			d.mu.Unlock()
			cancel()
		}()

		select {
		case d.perform <- struct{}{}:
			defer func() { <-d.perform }()
		case <-ctx.Done():
			return
		}

		if err := d.process(opCtx, msg, asm.dataset, meta, pduLayer); err != nil {
			d.logger.WarnContext(ctx, "DIMSE operation failed",
				"command", types.CommandName(msg.CommandField),
				"message_id", msg.MessageID,
				"error", err)
		}
	}()
	return nil
}

// process runs one complete message against the handler
func (d *Service) process(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext, pduLayer interfaces.PDULayer) error {
	responder := &responseHandler{
		service:       d,
		presContextID: meta.PresentationContextID,
		pduLayer:      pduLayer,
	}

	// Check if handler supports streaming (for multi-response operations like C-FIND)
	if streamingHandler, ok := d.handler.(interfaces.StreamingServiceHandler); ok {
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, data, meta, responder)
	}

	responseMsg, responseData, err := d.handler.HandleDIMSE(ctx, msg, data, meta)
	if err != nil {
		failure := &types.Message{
			CommandField:              types.ResponseCommandFor(msg.CommandField),
			MessageIDBeingRespondedTo: msg.MessageID,
			AffectedSOPClassUID:       msg.AffectedSOPClassUID,
			Status:                    StatusFailure,
			ErrorComment:              err.Error(),
		}
		if sendErr := responder.SendResponse(failure, nil); sendErr != nil {
			return sendErr
		}
		return fmt.Errorf("service handler failed: %w", err)
	}
	return responder.SendResponse(responseMsg, responseData)
}

// sendDIMSEResponse encodes msg and writes it with its optional dataset.
func (d *Service) sendDIMSEResponse(msg *types.Message, data []byte, presContextID byte, pduLayer interfaces.PDULayer) error {
	if len(data) > 0 {
		msg.CommandDataSetType = types.DataSetPresent
	} else {
		msg.CommandDataSetType = types.NoDataSet
	}

	commandData, err := EncodeCommand(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", types.CommandName(msg.CommandField), err)
	}

	d.logger.Debug("Sending DIMSE response",
		"command", types.CommandName(msg.CommandField),
		"message_id_being_responded_to", msg.MessageIDBeingRespondedTo,
		"status", fmt.Sprintf("0x%04X", msg.Status),
		"dataset_size", len(data))

	return pduLayer.SendDIMSEResponse(presContextID, commandData, data)
}
