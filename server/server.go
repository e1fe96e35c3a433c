// Package server exposes the worklist SCP on a TCP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caio-sobreiro/dicommwl/dimse"
	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/pdu"
)

// Option configures a Server instance.
type Option func(*Server)

// WithLogger overrides the logger used by the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithIdleTimeout sets how long an association may wait for the next PDU.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.IdleTimeout = timeout
	}
}

// WithWriteTimeout sets the write timeout for client connections.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.WriteTimeout = timeout
	}
}

// WithAbstractSyntaxes replaces the accepted abstract syntaxes (default: Verification
// and Modality Worklist FIND).
func WithAbstractSyntaxes(uids ...string) Option {
	return func(s *Server) {
		s.AbstractSyntaxes = uids
	}
}

// Server exposes a reusable DICOM listener that wires the negotiator, PDU and DIMSE layers.
type Server struct {
	AETitle          string
	Handler          interfaces.ServiceHandler
	Logger           *slog.Logger
	IdleTimeout      time.Duration // Wait for the next PDU before aborting (default: 60s)
	WriteTimeout     time.Duration // Write timeout for connections (default: 60s)
	AbstractSyntaxes []string
}

// New builds a Server with the provided AE title and handler.
func New(aeTitle string, handler interfaces.ServiceHandler, opts ...Option) *Server {
	srv := &Server{
		AETitle:      aeTitle,
		Handler:      handler,
		IdleTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// ListenAndServe listens on the given address and serves until the context is done or an error occurs.
func ListenAndServe(ctx context.Context, address, aeTitle string, handler interfaces.ServiceHandler, opts ...Option) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	srv := New(aeTitle, handler, opts...)
	return srv.Serve(ctx, listener)
}

// Serve accepts connections from listener until ctx is cancelled or an unrecoverable error
// occurs. On cancellation open associations are closed and Serve waits for their
// operations to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if listener == nil {
		return errors.New("dicomserver: listener is required")
	}
	if s == nil {
		return errors.New("dicomserver: server is nil")
	}
	if s.Handler == nil {
		return errors.New("dicomserver: handler is required")
	}
	if s.AETitle == "" {
		return errors.New("dicomserver: AE title is required")
	}

	logger := s.logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	logger.Info("DICOM server listening",
		"address", listener.Addr().String(),
		"ae_title", s.AETitle)

	var (
		wg       sync.WaitGroup
		serveErr error
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Warn("Accept timeout", "error", err)
				continue
			}
			serveErr = err
			break
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			s.handleConnection(ctx, c, logger)
		}(conn)
	}

	wg.Wait()

	if serveErr != nil {
		return serveErr
	}

	return ctx.Err()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, logger *slog.Logger) {
	associationID := uuid.NewString()
	logger = logger.With("association_id", associationID)

	logger.Info("Accepted DICOM connection",
		"remote_addr", conn.RemoteAddr())

	// Shutdown closes the connection so a blocked read returns.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	negotiator := pdu.NewNegotiator(s.AETitle, logger)
	if len(s.AbstractSyntaxes) > 0 {
		negotiator.AbstractSyntaxes = s.AbstractSyntaxes
	}

	layer := pdu.NewLayer(conn, negotiator, dimse.NewService(s.Handler, logger),
		pdu.WithAssociationID(associationID),
		pdu.WithIdleTimeout(s.IdleTimeout),
		pdu.WithWriteTimeout(s.WriteTimeout),
		pdu.WithLayerLogger(logger))

	if err := layer.HandleConnection(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("DICOM connection ended",
			"error", err,
			"remote_addr", conn.RemoteAddr())
	} else {
		logger.Info("DICOM connection closed",
			"remote_addr", conn.RemoteAddr(),
			"state", layer.State().String())
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
