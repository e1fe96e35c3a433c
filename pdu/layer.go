package pdu

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/types"
)

// Layer handles the DICOM Upper Layer Protocol for one inbound connection.
type Layer struct {
	conn          net.Conn
	negotiator    *Negotiator
	dimseHandler  interfaces.DIMSEHandler
	associationID string
	idleTimeout   time.Duration
	writeTimeout  time.Duration
	logger        *slog.Logger

	mu    sync.Mutex // guards writes to conn and state
	state State
	assoc *AssociationContext
}

// LayerOption configures a Layer.
type LayerOption func(*Layer)

// WithIdleTimeout bounds the wait for each inbound PDU.
func WithIdleTimeout(timeout time.Duration) LayerOption {
	return func(p *Layer) {
		p.idleTimeout = timeout
	}
}

// WithWriteTimeout bounds each outbound PDU write.
func WithWriteTimeout(timeout time.Duration) LayerOption {
	return func(p *Layer) {
		p.writeTimeout = timeout
	}
}

// WithAssociationID tags the association for logging and message contexts.
func WithAssociationID(id string) LayerOption {
	return func(p *Layer) {
		p.associationID = id
	}
}

// WithLayerLogger overrides the logger.
func WithLayerLogger(logger *slog.Logger) LayerOption {
	return func(p *Layer) {
		p.logger = logger
	}
}

// waiter is implemented by DIMSE handlers that run operations in the background.
type waiter interface {
	Wait()
}

// NewLayer creates a new PDU layer handler
func NewLayer(conn net.Conn, negotiator *Negotiator, dimseHandler interfaces.DIMSEHandler, opts ...LayerOption) *Layer {
	p := &Layer{
		conn:         conn,
		negotiator:   negotiator,
		dimseHandler: dimseHandler,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// State returns the current association state.
func (p *Layer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Layer) setState(state State) {
	p.mu.Lock()
	previous := p.state
	p.state = state
	p.mu.Unlock()
	p.logger.Debug("Association state changed", "from", previous.String(), "to", state.String())
}

// Association returns the negotiated association, or nil before negotiation.
func (p *Layer) Association() *AssociationContext {
	return p.assoc
}

// HandleConnection manages the complete DICOM connection lifecycle. A peer release or
// abort ends it with a nil error.
func (p *Layer) HandleConnection(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		if w, ok := p.dimseHandler.(waiter); ok {
			w.Wait()
		}
		p.setState(StateClosed)
		p.conn.Close()
	}()

	open, err := p.handleAssociationPhase()
	if err != nil || !open {
		return err
	}

	for {
		pdu, err := p.readPDU()
		if err != nil {
			return p.readFailed(err)
		}

		done, err := p.handlePDU(ctx, cancel, pdu)
		if err != nil {
			var abortErr *errors.AbortError
			if stderrors.As(err, &abortErr) && abortErr.Source == errors.AbortSourceServiceProvider {
				p.abort(abortErr)
			}
			return err
		}
		if done {
			return nil
		}
	}
}

func (p *Layer) readFailed(err error) error {
	remote := p.conn.RemoteAddr().String()
	if stderrors.Is(err, io.EOF) {
		p.logger.Info("Connection closed by peer without release", "remote_addr", remote)
		return nil
	}
	if stderrors.Is(err, os.ErrDeadlineExceeded) {
		p.logger.Warn("Association idle timeout, aborting", "remote_addr", remote, "timeout", p.idleTimeout)
		p.abort(errors.NewProviderAbort(errors.AbortReasonNotSpecified, "idle for %s", p.idleTimeout))
		return errors.NewNetworkError("read", err)
	}
	var pduErr *errors.PDUError
	if stderrors.As(err, &pduErr) {
		p.abort(errors.NewProviderAbort(errors.AbortReasonInvalidParmValue, "%s", pduErr.Msg))
		return err
	}
	return errors.NewNetworkError("read", err)
}

// readPDU reads a complete PDU from the connection
func (p *Layer) readPDU() (*PDU, error) {
	if p.idleTimeout > 0 {
		if err := p.conn.SetReadDeadline(time.Now().Add(p.idleTimeout)); err != nil {
			return nil, err
		}
	}
	pdu, err := ReadPDU(p.conn)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Received PDU", "type", TypeName(pdu.Type), "length", pdu.Length)
	return pdu, nil
}

func (p *Layer) write(fn func(w io.Writer) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeTimeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
			return err
		}
	}
	return fn(p.conn)
}

// abort sends A-ABORT and moves to Aborting. Write errors are only logged since the
// connection is being torn down anyway.
func (p *Layer) abort(abortErr *errors.AbortError) {
	p.setState(StateAborting)
	p.logger.Warn("Aborting association",
		"source", abortErr.Source.String(),
		"reason", abortErr.Reason.String(),
		"detail", abortErr.Msg)
	err := p.write(func(w io.Writer) error {
		return WriteAbort(w, abortErr.Source, abortErr.Reason)
	})
	if err != nil {
		p.logger.Debug("Failed to send A-ABORT", "error", err)
	}
}

// handleAssociationPhase reads the A-ASSOCIATE-RQ and answers it with AC or RJ. open
// reports whether the association was established; a peer A-ABORT ends it quietly.
func (p *Layer) handleAssociationPhase() (open bool, err error) {
	pdu, err := p.readPDU()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return false, fmt.Errorf("connection closed before association request: %w", errors.ErrConnectionClosed)
		}
		return false, fmt.Errorf("failed to read association request: %w", err)
	}

	switch pdu.Type {
	case TypeAssociateRQ:
	case TypeAbort:
		// An A-ABORT is never answered.
		p.setState(StateAborting)
		abortErr := ParseAbort(pdu.Data)
		p.logger.Info("Received A-ABORT before association",
			"source", abortErr.Source.String(),
			"reason", abortErr.Reason.String(),
			"remote_addr", p.conn.RemoteAddr().String())
		return false, nil
	default:
		abortErr := errors.NewProviderAbort(errors.AbortReasonUnexpectedPDU, "expected A-ASSOCIATE-RQ, got %s", TypeName(pdu.Type))
		p.abort(abortErr)
		return false, abortErr
	}
	p.setState(StateNegotiating)

	rq, err := ParseAssociateRQ(pdu.Data)
	if err != nil {
		p.abort(errors.NewProviderAbort(errors.AbortReasonInvalidParmValue, "%v", err))
		return false, fmt.Errorf("invalid A-ASSOCIATE-RQ: %w", err)
	}

	assoc, err := p.negotiator.Negotiate(rq, p.conn.RemoteAddr().String())
	if err != nil {
		var rejection *errors.AssociationError
		if stderrors.As(err, &rejection) {
			if werr := p.write(func(w io.Writer) error { return WriteAssociateRJ(w, rejection) }); werr != nil {
				return false, fmt.Errorf("failed to send A-ASSOCIATE-RJ: %w", werr)
			}
			p.logger.Info("Sent A-ASSOCIATE-RJ",
				"result", rejection.Result.String(),
				"source", rejection.Source.String(),
				"reason", rejection.Reason.String())
		}
		return false, err
	}
	p.assoc = assoc

	ac := assoc.Accept()
	if err := p.write(func(w io.Writer) error { return WritePDU(w, TypeAssociateAC, ac.Encode()) }); err != nil {
		return false, err
	}
	p.setState(StateOpen)

	p.logger.Info("Association established",
		"calling_ae", assoc.CallingAETitle,
		"called_ae", assoc.CalledAETitle,
		"accepted_contexts", assoc.AcceptedCount())
	return true, nil
}

// handlePDU routes PDUs received in the Open state. done reports a clean end. cancel
// stops the operations started on this association.
func (p *Layer) handlePDU(ctx context.Context, cancel context.CancelFunc, pdu *PDU) (done bool, err error) {
	switch pdu.Type {
	case TypePDataTF:
		return false, p.handlePDataTF(ctx, pdu)
	case TypeReleaseRQ:
		return true, p.handleReleaseRequest(cancel)
	case TypeAbort:
		p.setState(StateAborting)
		abortErr := ParseAbort(pdu.Data)
		p.logger.Info("Received A-ABORT",
			"source", abortErr.Source.String(),
			"reason", abortErr.Reason.String(),
			"calling_ae", p.assoc.CallingAETitle)
		return true, nil
	case TypeAssociateRQ, TypeAssociateAC, TypeAssociateRJ, TypeReleaseRP:
		return false, errors.NewProviderAbort(errors.AbortReasonUnexpectedPDU, "%s in state %s", TypeName(pdu.Type), p.State())
	default:
		return false, errors.NewProviderAbort(errors.AbortReasonUnrecognizedPDU, "PDU type 0x%02x", pdu.Type)
	}
}

// handlePDataTF forwards every PDV of a P-DATA-TF to the DIMSE layer.
func (p *Layer) handlePDataTF(ctx context.Context, pdu *PDU) error {
	pdvs, err := ParsePDVs(pdu.Data)
	if err != nil {
		return errors.NewProviderAbort(errors.AbortReasonInvalidParmValue, "%v", err)
	}

	for _, pdv := range pdvs {
		pc, ok := p.assoc.PresentationCtxs[pdv.ContextID]
		if !ok || !pc.Accepted() {
			return errors.NewProviderAbort(errors.AbortReasonInvalidParmValue,
				"presentation context %d was not accepted", pdv.ContextID)
		}

		p.logger.Debug("Processing PDV",
			"presentation_context_id", pdv.ContextID,
			"message_control_header", fmt.Sprintf("0x%02x", pdv.ControlHeader),
			"size_bytes", len(pdv.Data))

		if err := p.dimseHandler.HandleDIMSEMessage(ctx, pdv.ContextID, pdv.ControlHeader, pdv.Data, p); err != nil {
			return err
		}
	}
	return nil
}

// handleReleaseRequest processes A-RELEASE-RQ and sends A-RELEASE-RP. Operations still
// running are canceled first, and their final responses precede the RP.
func (p *Layer) handleReleaseRequest(cancel context.CancelFunc) error {
	p.setState(StateReleasing)
	cancel()
	if w, ok := p.dimseHandler.(waiter); ok {
		w.Wait()
	}
	if err := p.write(WriteReleaseRP); err != nil {
		return err
	}
	p.logger.Info("Association released", "calling_ae", p.assoc.CallingAETitle)
	return nil
}

// SendDIMSEResponse sends a command and optional dataset, fragmented to the peer's
// maximum PDU length.
func (p *Layer) SendDIMSEResponse(presContextID byte, commandData []byte, datasetData []byte) error {
	maxLength := types.DefaultMaxPDULength
	if p.assoc != nil && p.assoc.MaxPDULength > 0 {
		maxLength = p.assoc.MaxPDULength
	}
	return p.write(func(w io.Writer) error {
		if err := WritePData(w, presContextID, maxLength, commandData, true); err != nil {
			return fmt.Errorf("failed to send command: %w", err)
		}
		if len(datasetData) > 0 {
			if err := WritePData(w, presContextID, maxLength, datasetData, false); err != nil {
				return fmt.Errorf("failed to send dataset: %w", err)
			}
		}
		return nil
	})
}

// MessageContext describes the presentation context and association a PDV arrived on.
func (p *Layer) MessageContext(presContextID byte) (interfaces.MessageContext, bool) {
	if p.assoc == nil {
		return interfaces.MessageContext{}, false
	}
	pc, ok := p.assoc.PresentationCtxs[presContextID]
	if !ok || !pc.Accepted() {
		return interfaces.MessageContext{}, false
	}
	return interfaces.MessageContext{
		PresentationContextID: presContextID,
		AbstractSyntax:        pc.AbstractSyntax,
		TransferSyntaxUID:     pc.TransferSyntax,
		CallingAETitle:        p.assoc.CallingAETitle,
		CalledAETitle:         p.assoc.CalledAETitle,
		RemoteAddr:            p.assoc.RemoteAddr,
		AssociationID:         p.associationID,
	}, true
}
