package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caio-sobreiro/dicommwl/dimse"
	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/pdu"
	"github.com/caio-sobreiro/dicommwl/types"
)

// Association represents a client-side DICOM association
type Association struct {
	conn             net.Conn
	reader           *dimse.Reader
	callingAETitle   string
	calledAETitle    string
	maxPDULength     uint32
	peerMaxPDULength uint32
	asyncOps         pdu.AsyncOperationsWindow
	presentationCtxs map[byte]*PresentationContext
	logger           *slog.Logger
	readTimeout      time.Duration
	writeTimeout     time.Duration

	writeMu   sync.Mutex
	messageID atomic.Uint32
}

// PresentationContext holds negotiated presentation context info
type PresentationContext struct {
	ID             byte
	AbstractSyntax string
	TransferSyntax string
	Result         byte
	Accepted       bool
}

// Config holds client configuration
type Config struct {
	CallingAETitle            string
	CalledAETitle             string
	MaxPDULength              uint32
	ConnectTimeout            time.Duration // Timeout for establishing connection (default: 30s)
	ReadTimeout               time.Duration // Timeout for read operations (default: 60s)
	WriteTimeout              time.Duration // Timeout for write operations (default: 60s)
	Logger                    *slog.Logger  // Logger for the association (default: slog.Default())
	PreferredTransferSyntaxes []string      // Transfer syntaxes to propose (default: Explicit VR LE, Implicit VR LE)
	AbstractSyntaxes          []string      // Abstract syntaxes to propose (default: Verification, worklist and study root FIND)

	// AsyncOperations proposes an asynchronous operations window. Nil proposes none,
	// which means one outstanding operation at a time.
	AsyncOperations *pdu.AsyncOperationsWindow
}

// DefaultAbstractSyntaxes are proposed when Config.AbstractSyntaxes is empty.
var DefaultAbstractSyntaxes = []string{
	types.VerificationSOPClass,
	types.ModalityWorklistInformationModelFind,
	types.StudyRootQueryRetrieveInformationModelFind,
}

// withDefaults fills unset fields.
func (config Config) withDefaults() Config {
	if config.MaxPDULength == 0 {
		config.MaxPDULength = types.DefaultMaxPDULength
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 60 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 60 * time.Second
	}
	if len(config.PreferredTransferSyntaxes) == 0 {
		config.PreferredTransferSyntaxes = []string{
			types.ExplicitVRLittleEndian,
			types.ImplicitVRLittleEndian,
		}
	}
	if len(config.AbstractSyntaxes) == 0 {
		config.AbstractSyntaxes = DefaultAbstractSyntaxes
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return config
}

// Connect establishes a DICOM association with a remote SCP. A rejection is returned
// as *errors.AssociationError and an abort as *errors.AbortError.
func Connect(ctx context.Context, address string, config Config) (*Association, error) {
	config = config.withDefaults()

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.NewNetworkError("dial "+address, err)
	}

	assoc, err := associate(ctx, conn, config)
	if err != nil {
		conn.Close()
		return nil, err
	}

	config.Logger.Info("DICOM association established",
		"remote_addr", address,
		"calling_ae", config.CallingAETitle,
		"called_ae", config.CalledAETitle,
		"max_operations_invoked", assoc.asyncOps.MaxInvoked)
	return assoc, nil
}

// associate runs association negotiation over an established connection.
func associate(ctx context.Context, conn net.Conn, config Config) (*Association, error) {
	logger := config.Logger
	a := &Association{
		conn:             conn,
		reader:           dimse.NewReader(conn),
		callingAETitle:   config.CallingAETitle,
		calledAETitle:    config.CalledAETitle,
		maxPDULength:     config.MaxPDULength,
		presentationCtxs: make(map[byte]*PresentationContext),
		logger:           logger,
		readTimeout:      config.ReadTimeout,
		writeTimeout:     config.WriteTimeout,
		asyncOps:         pdu.AsyncOperationsWindow{MaxInvoked: 1, MaxPerformed: 1},
	}

	rq := &pdu.AssociateRQ{
		CalledAETitle:  config.CalledAETitle,
		CallingAETitle: config.CallingAETitle,
		UserInfo: pdu.UserInformation{
			MaxPDULength:    config.MaxPDULength,
			AsyncOperations: config.AsyncOperations,
		},
	}
	// Presentation context IDs are odd (PS3.8 9.3.2.2).
	for i, abstractSyntax := range config.AbstractSyntaxes {
		id := byte(2*i + 1)
		rq.PresentationContexts = append(rq.PresentationContexts, pdu.PresentationContextRQ{
			ID:               id,
			AbstractSyntax:   abstractSyntax,
			TransferSyntaxes: config.PreferredTransferSyntaxes,
		})
		a.presentationCtxs[id] = &PresentationContext{ID: id, AbstractSyntax: abstractSyntax}
	}

	// Negotiation shares the read deadline; ctx can cut it short.
	deadline := time.Now().Add(config.ReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	defer conn.SetDeadline(time.Time{})

	if err := pdu.WritePDU(conn, pdu.TypeAssociateRQ, rq.Encode()); err != nil {
		return nil, fmt.Errorf("failed to send A-ASSOCIATE-RQ: %w", err)
	}

	p, err := pdu.ReadPDU(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to receive A-ASSOCIATE response: %w", err)
	}

	switch p.Type {
	case pdu.TypeAssociateAC:
	case pdu.TypeAssociateRJ:
		rejection, err := pdu.ParseAssociateRJ(p.Data)
		if err != nil {
			return nil, err
		}
		return nil, rejection
	case pdu.TypeAbort:
		return nil, pdu.ParseAbort(p.Data)
	default:
		return nil, errors.NewPDUError(p.Type, "unexpected "+pdu.TypeName(p.Type)+" (expected A-ASSOCIATE-AC)")
	}

	ac, err := pdu.ParseAssociateAC(p.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse A-ASSOCIATE-AC: %w", err)
	}

	for _, result := range ac.PresentationContexts {
		pc, ok := a.presentationCtxs[result.ID]
		if !ok {
			continue
		}
		pc.Result = result.Result
		pc.Accepted = result.Result == types.PresentationAcceptance
		pc.TransferSyntax = result.TransferSyntax
		logger.Debug("Presentation context negotiation",
			"context_id", pc.ID,
			"abstract_syntax", types.SOPClassName(pc.AbstractSyntax),
			"result", types.PresentationResultName(pc.Result),
			"transfer_syntax", pc.TransferSyntax)
	}

	a.peerMaxPDULength = ac.UserInfo.MaxPDULength
	if window := ac.UserInfo.AsyncOperations; window != nil && config.AsyncOperations != nil {
		a.asyncOps = *window
	}
	return a, nil
}

// Close gracefully releases the association and closes the connection.
func (a *Association) Close() error {
	a.writeMu.Lock()
	err := pdu.WriteReleaseRQ(a.conn)
	a.writeMu.Unlock()
	if err != nil {
		a.logger.Warn("Failed to send release request", "error", err)
		return a.conn.Close()
	}

	a.conn.SetReadDeadline(time.Now().Add(a.readTimeout))
	for {
		p, err := pdu.ReadPDU(a.conn)
		if err != nil {
			a.logger.Debug("No release response", "error", err)
			break
		}
		// Responses still in flight may arrive before the A-RELEASE-RP.
		if p.Type == pdu.TypeReleaseRP || p.Type == pdu.TypeAbort {
			break
		}
	}
	return a.conn.Close()
}

// Abort sends an A-ABORT and closes the connection.
func (a *Association) Abort() error {
	a.writeMu.Lock()
	err := pdu.WriteAbort(a.conn, errors.AbortSourceServiceUser, errors.AbortReasonNotSpecified)
	a.writeMu.Unlock()
	if closeErr := a.conn.Close(); err == nil {
		err = closeErr
	}
	return err
}

// GetPresentationContextID finds an accepted presentation context for the given abstract syntax
func (a *Association) GetPresentationContextID(abstractSyntax string) (byte, error) {
	for _, pc := range a.presentationCtxs {
		if pc.AbstractSyntax == abstractSyntax && pc.Accepted {
			return pc.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", errors.ErrNoPresentationCtx, abstractSyntax)
}

// PresentationContext returns the negotiated context with the given ID.
func (a *Association) PresentationContext(id byte) (*PresentationContext, bool) {
	pc, ok := a.presentationCtxs[id]
	return pc, ok
}

// AsyncOperations returns the negotiated asynchronous operations window. Without
// negotiation it is 1/1.
func (a *Association) AsyncOperations() pdu.AsyncOperationsWindow {
	return a.asyncOps
}

// NextMessageID returns a message ID not used before on this association.
func (a *Association) NextMessageID() uint16 {
	for {
		id := uint16(a.messageID.Add(1))
		if id != 0 {
			return id
		}
	}
}

// send writes one DIMSE message. Writes are serialized so a C-CANCEL can be sent while
// other requests are outstanding.
func (a *Association) send(presContextID byte, command *types.Message, dataset []byte) error {
	commandData, err := dimse.EncodeCommand(command)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", types.CommandName(command.CommandField), err)
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := a.conn.SetWriteDeadline(time.Now().Add(a.writeTimeout)); err != nil {
		return err
	}
	return dimse.SendDIMSEMessage(a.conn, presContextID, a.peerMaxPDULength, commandData, dataset)
}

// receive reads the next complete DIMSE message, starting with any PDVs left over
// from the previous P-DATA-TF.
func (a *Association) receive() (*dimse.Received, error) {
	if err := a.conn.SetReadDeadline(time.Now().Add(a.readTimeout)); err != nil {
		return nil, err
	}
	return a.reader.Receive()
}
