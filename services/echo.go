// Package services provides the DICOM service implementations of the worklist server.
//
// Handlers receive the decoded DIMSE command, the raw dataset and the
// interfaces.MessageContext of the presentation context the request arrived on.
package services

import (
	"context"
	"log/slog"

	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/types"
)

// EchoService handles C-ECHO verification requests.
//
// C-ECHO is used to verify connectivity and application-level communication
// between two DICOM Application Entities (AEs). It's the DICOM equivalent
// of a "ping" operation.
type EchoService struct {
	logger *slog.Logger
}

// NewEchoService creates a new C-ECHO service instance.
func NewEchoService(logger *slog.Logger) *EchoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EchoService{logger: logger}
}

// HandleDIMSE processes a C-ECHO request and returns a success response.
//
// According to DICOM standard PS3.4, C-ECHO has no dataset and simply
// returns a status indicating whether the AE is operational.
func (s *EchoService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, []byte, error) {
	s.logger.InfoContext(ctx, "Received verification request",
		"calling_ae", meta.CallingAETitle,
		"remote_addr", meta.RemoteAddr,
		"message_id", msg.MessageID)

	return NewCEchoResponse(msg, types.StatusSuccess), nil, nil
}
