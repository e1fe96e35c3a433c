package pdu

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/types"
)

// PresentationContext represents a negotiated presentation context
type PresentationContext struct {
	ID             byte
	Result         byte
	AbstractSyntax string
	TransferSyntax string
}

// Accepted reports whether the context may carry DIMSE messages.
func (pc *PresentationContext) Accepted() bool {
	return pc.Result == types.PresentationAcceptance
}

// AssociationContext holds association state
type AssociationContext struct {
	CalledAETitle    string
	CallingAETitle   string
	RemoteAddr       string
	MaxPDULength     uint32
	AsyncOperations  *AsyncOperationsWindow
	PresentationCtxs map[byte]*PresentationContext
	// Order keeps the proposer's context order for the A-ASSOCIATE-AC.
	Order []byte
}

// Accept builds the A-ASSOCIATE-AC that answers the negotiated association.
func (a *AssociationContext) Accept() *AssociateAC {
	ac := &AssociateAC{
		CalledAETitle:  a.CalledAETitle,
		CallingAETitle: a.CallingAETitle,
		UserInfo:       UserInformation{MaxPDULength: types.DefaultMaxPDULength},
	}
	if a.AsyncOperations != nil {
		// Operations are performed one at a time; invoked is echoed back as granted.
		ac.UserInfo.AsyncOperations = &AsyncOperationsWindow{
			MaxInvoked:   a.AsyncOperations.MaxInvoked,
			MaxPerformed: 1,
		}
	}
	for _, id := range a.Order {
		pc := a.PresentationCtxs[id]
		ac.PresentationContexts = append(ac.PresentationContexts, PresentationContextAC{
			ID:             pc.ID,
			Result:         pc.Result,
			TransferSyntax: pc.TransferSyntax,
		})
	}
	return ac
}

// AcceptedCount returns the number of accepted presentation contexts.
func (a *AssociationContext) AcceptedCount() int {
	n := 0
	for _, pc := range a.PresentationCtxs {
		if pc.Accepted() {
			n++
		}
	}
	return n
}

// Negotiator decides whether an association request is accepted and, per presentation
// context, which transfer syntax is used.
type Negotiator struct {
	AETitle          string
	AbstractSyntaxes []string
	// TransferSyntaxes lists what we can decode; the proposer's order decides which is used.
	TransferSyntaxes []string
	Logger           *slog.Logger
}

// NewNegotiator returns a negotiator accepting Verification and Modality Worklist FIND.
func NewNegotiator(aeTitle string, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		AETitle: aeTitle,
		AbstractSyntaxes: []string{
			types.VerificationSOPClass,
			types.ModalityWorklistInformationModelFind,
		},
		TransferSyntaxes: types.WorklistTransferSyntaxes(),
		Logger:           logger,
	}
}

// Negotiate evaluates an association request. A called AE title other than ours rejects
// the whole association before any presentation context is looked at; otherwise every
// context is decided on its own and the association is accepted.
func (n *Negotiator) Negotiate(rq *AssociateRQ, remoteAddr string) (*AssociationContext, error) {
	n.Logger.Info("Association requested",
		"calling_ae", rq.CallingAETitle,
		"called_ae", rq.CalledAETitle,
		"remote_addr", remoteAddr)

	if rq.CalledAETitle != n.AETitle {
		n.Logger.Warn("Rejecting association: called AE title not recognized",
			"calling_ae", rq.CallingAETitle,
			"called_ae", rq.CalledAETitle,
			"expected_ae", n.AETitle,
			"remote_addr", remoteAddr)
		return nil, errors.NewAssociationError(
			errors.RejectSourceServiceUser,
			errors.RejectReasonCalledAETitleNotRecognized,
			fmt.Sprintf("called AE title %q does not match %q", rq.CalledAETitle, n.AETitle))
	}

	assoc := &AssociationContext{
		CalledAETitle:    rq.CalledAETitle,
		CallingAETitle:   rq.CallingAETitle,
		RemoteAddr:       remoteAddr,
		MaxPDULength:     rq.UserInfo.MaxPDULength,
		AsyncOperations:  rq.UserInfo.AsyncOperations,
		PresentationCtxs: make(map[byte]*PresentationContext, len(rq.PresentationContexts)),
	}

	for _, proposed := range rq.PresentationContexts {
		pc := n.evaluate(proposed)
		if _, dup := assoc.PresentationCtxs[pc.ID]; !dup {
			assoc.Order = append(assoc.Order, pc.ID)
		}
		assoc.PresentationCtxs[pc.ID] = pc
	}

	n.Logger.Info("Negotiated presentation contexts",
		"calling_ae", assoc.CallingAETitle,
		"proposed", len(rq.PresentationContexts),
		"accepted", assoc.AcceptedCount(),
		"max_pdu_length", assoc.MaxPDULength)

	return assoc, nil
}

func (n *Negotiator) evaluate(proposed PresentationContextRQ) *PresentationContext {
	pc := &PresentationContext{
		ID:             proposed.ID,
		AbstractSyntax: proposed.AbstractSyntax,
		Result:         types.PresentationAbstractSyntaxNotSupported,
	}

	if !slices.Contains(n.AbstractSyntaxes, proposed.AbstractSyntax) {
		n.Logger.Warn("Rejecting presentation context: abstract syntax not supported",
			"context_id", proposed.ID,
			"abstract_syntax", proposed.AbstractSyntax,
			"sop_class", types.SOPClassName(proposed.AbstractSyntax))
		return pc
	}

	for _, ts := range proposed.TransferSyntaxes {
		if slices.Contains(n.TransferSyntaxes, ts) {
			pc.Result = types.PresentationAcceptance
			pc.TransferSyntax = ts
			n.Logger.Debug("Accepted presentation context",
				"context_id", proposed.ID,
				"abstract_syntax", proposed.AbstractSyntax,
				"transfer_syntax", types.TransferSyntaxName(ts))
			return pc
		}
	}

	pc.Result = types.PresentationTransferSyntaxNotSupported
	n.Logger.Warn("Rejecting presentation context: no supported transfer syntax",
		"context_id", proposed.ID,
		"abstract_syntax", proposed.AbstractSyntax,
		"proposed_transfer_syntaxes", proposed.TransferSyntaxes)
	return pc
}
