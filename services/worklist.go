package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/types"
	"github.com/caio-sobreiro/dicommwl/worklist"
)

// WorklistService answers Modality Worklist C-FIND requests from a RecordSource.
// Every request reads a fresh snapshot; nothing is cached between requests.
type WorklistService struct {
	source interfaces.RecordSource
	logger *slog.Logger
}

// NewWorklistService creates a worklist C-FIND service backed by source.
func NewWorklistService(source interfaces.RecordSource, logger *slog.Logger) *WorklistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorklistService{source: source, logger: logger}
}

// HandleDIMSE exists to satisfy interfaces.ServiceHandler. C-FIND produces a stream
// of responses and is only served through HandleDIMSEStreaming.
func (s *WorklistService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, []byte, error) {
	return nil, nil, fmt.Errorf("%s must be handled as a stream", types.CommandName(msg.CommandField))
}

// HandleDIMSEStreaming matches the query identifier against the current records and
// sends one pending response per match followed by a final status. If ctx is
// cancelled (C-CANCEL) between matches, the stream ends with status Cancel.
func (s *WorklistService) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext, responder interfaces.ResponseSender) error {
	if msg.CommandField != types.CFindRQ {
		return responder.SendResponse(NewUnrecognizedOperationResponse(msg), nil)
	}
	if msg.AffectedSOPClassUID != "" && !types.IsWorklistSOPClass(msg.AffectedSOPClassUID) {
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusSOPClassNotSupported,
			"SOP class not supported: "+msg.AffectedSOPClassUID), nil)
	}

	identifier, err := dicom.ParseDatasetWithTransferSyntax(data, meta.TransferSyntaxUID)
	if err != nil {
		s.logger.WarnContext(ctx, "Unreadable worklist query identifier",
			"calling_ae", meta.CallingAETitle,
			"error", err)
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusIdentifierDoesNotMatchSOPClass,
			"identifier could not be decoded"), nil)
	}

	s.logger.InfoContext(ctx, "Received worklist query",
		"calling_ae", meta.CallingAETitle,
		"remote_addr", meta.RemoteAddr,
		"message_id", msg.MessageID,
		"query", identifier)

	records, err := s.source.ListCurrentRecords(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read worklist records", "error", err)
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusUnableToProcess,
			"worklist records unavailable"), nil)
	}

	query := worklist.ParseQuery(identifier)
	matches := 0
	for rsp := range worklist.Responses(query, records) {
		if err := ctx.Err(); err != nil {
			s.logger.InfoContext(ctx, "Worklist query cancelled",
				"message_id", msg.MessageID,
				"matches_sent", matches)
			return responder.SendResponse(NewCFindCancelResponse(msg), nil)
		}

		if rsp.Final() {
			break
		}

		payload, err := dicom.EncodeDatasetWithTransferSyntax(rsp.Identifier, meta.TransferSyntaxUID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to encode worklist response",
				"record_id", rsp.Record.ID,
				"error", err)
			return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusUnableToProcess,
				"response could not be encoded"), nil)
		}
		if err := responder.SendResponse(NewCFindPendingResponse(msg), payload); err != nil {
			return fmt.Errorf("send pending response: %w", err)
		}
		matches++
	}

	s.logger.InfoContext(ctx, "Worklist query completed",
		"calling_ae", meta.CallingAETitle,
		"message_id", msg.MessageID,
		"matches", matches,
		"records", len(records))
	return responder.SendResponse(NewCFindSuccessResponse(msg), nil)
}
