package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/caio-sobreiro/dicommwl/client"
	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/pdu"
	"github.com/caio-sobreiro/dicommwl/types"
)

// DefaultInterval is used when Config.Interval is not set.
const DefaultInterval = 30 * time.Second

// Config describes the archive and how often it is checked.
type Config struct {
	Enabled        bool
	Interval       time.Duration
	Address        string // host:port of the archive
	CallingAETitle string // local AE used for outbound associations
	CalledAETitle  string // archive AE
	// MaxOperations is the asynchronous operations window proposed to the archive.
	// Zero proposes none, which keeps one query outstanding at a time.
	MaxOperations  uint16
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Outcome is what a tick did.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeDisabled
	OutcomeBusy
	OutcomeNoPairs
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeBusy:
		return "busy"
	case OutcomeNoPairs:
		return "no-pairs"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectFunc opens an association to the archive.
type ConnectFunc func(ctx context.Context, address string, config client.Config) (*client.Association, error)

// Scheduler checks the worklist against the archive on every tick. At most one batch
// runs at a time; a tick arriving while a batch is running is dropped.
type Scheduler struct {
	config  Config
	source  interfaces.RecordSource
	sink    Sink
	logger  *slog.Logger
	connect ConnectFunc
	now     func() time.Time

	running atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSink replaces the default LogSink.
func WithSink(sink Sink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// WithLogger overrides the logger used by the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithConnectFunc overrides how archive associations are opened.
func WithConnectFunc(connect ConnectFunc) Option {
	return func(s *Scheduler) {
		s.connect = connect
	}
}

// NewScheduler builds a scheduler reading records from source.
func NewScheduler(config Config, source interfaces.RecordSource, opts ...Option) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	s := &Scheduler{
		config:  config,
		source:  source,
		connect: client.Connect,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.sink == nil {
		s.sink = LogSink{Logger: s.logger}
	}
	return s
}

// Run ticks every interval until ctx is done, then waits for the running batch.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("Archive check scheduled",
		"interval", s.config.Interval,
		"enabled", s.config.Enabled,
		"archive", s.config.Address)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Tick(ctx)
			}()
		}
	}
}

// Tick runs one batch: snapshot, pairs, one association, one study query per pair.
// Failures are logged and abandon the batch; the next tick starts over.
func (s *Scheduler) Tick(ctx context.Context) (Outcome, error) {
	if !s.config.Enabled {
		s.logger.Info("Archive check disabled; skipping tick")
		return OutcomeDisabled, nil
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous archive batch still running; tick dropped")
		return OutcomeBusy, nil
	}
	defer s.running.Store(false)

	batchID := uuid.NewString()
	logger := s.logger.With("batch_id", batchID)

	outcome, err := s.runBatch(ctx, batchID, logger)
	if err != nil {
		logger.Error("Archive batch abandoned", "error", err)
	}
	return outcome, err
}

func (s *Scheduler) runBatch(ctx context.Context, batchID string, logger *slog.Logger) (Outcome, error) {
	records, err := s.source.ListCurrentRecords(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("read worklist snapshot: %w", err)
	}

	pairs := BuildPairs(records)
	if len(pairs) == 0 {
		logger.Info("No worklist records with patient ID and accession number", "records", len(records))
		return OutcomeNoPairs, nil
	}

	clientConfig := client.Config{
		CallingAETitle:   s.config.CallingAETitle,
		CalledAETitle:    s.config.CalledAETitle,
		ConnectTimeout:   s.config.ConnectTimeout,
		ReadTimeout:      s.config.ReadTimeout,
		AbstractSyntaxes: []string{types.StudyRootQueryRetrieveInformationModelFind},
		Logger:           logger,
	}
	if s.config.MaxOperations > 0 {
		clientConfig.AsyncOperations = &pdu.AsyncOperationsWindow{
			MaxInvoked:   s.config.MaxOperations,
			MaxPerformed: 1,
		}
	}

	assoc, err := s.connect(ctx, s.config.Address, clientConfig)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("connect to archive %s: %w", s.config.Address, err)
	}

	reqs := make([]*client.CFindRequest, len(pairs))
	pairFor := make(map[*client.CFindRequest]Pair, len(pairs))
	for i, pair := range pairs {
		reqs[i] = &client.CFindRequest{
			SOPClassUID: types.StudyRootQueryRetrieveInformationModelFind,
			Priority:    types.PriorityMedium,
			Dataset:     StudyQuery(pair),
		}
		pairFor[reqs[i]] = pair
	}

	logger.Info("Archive batch started",
		"archive", s.config.Address,
		"queries", len(reqs),
		"window", assoc.AsyncOperations().MaxInvoked)

	results, batchErr := assoc.SendCFindBatch(ctx, reqs, func(req *client.CFindRequest, rsp *client.CFindResponse) {
		if rsp.Dataset == nil {
			return
		}
		match := Match{
			BatchID:          batchID,
			Pair:             pairFor[req],
			PatientName:      rsp.Dataset.GetString(dicom.TagPatientName),
			StudyInstanceUID: rsp.Dataset.GetString(dicom.TagStudyInstanceUID),
			StudyDate:        rsp.Dataset.GetString(dicom.TagStudyDate),
			FoundAt:          s.now(),
		}
		if err := s.sink.Publish(ctx, match); err != nil {
			logger.Warn("Failed to publish archive match",
				"accession_number", match.Pair.AccessionNumber,
				"error", err)
		}
	})

	if batchErr != nil {
		assoc.Abort()
		return OutcomeFailed, fmt.Errorf("archive batch: %w", batchErr)
	}
	if err := assoc.Close(); err != nil {
		logger.Debug("Archive association close", "error", err)
	}

	var errs []error
	for _, result := range results {
		pair := pairFor[result.Request]
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("accession %s: %w", pair.AccessionNumber, result.Err))
			continue
		}
		logger.Info("Archive query completed",
			"message_id", result.Request.MessageID,
			"patient_id", pair.PatientID,
			"accession_number", pair.AccessionNumber,
			"status", fmt.Sprintf("0x%04X", result.Status),
			"studies", result.Matches)
	}
	if len(errs) > 0 {
		return OutcomeFailed, errors.Join(errs...)
	}

	logger.Info("Archive batch completed", "queries", len(results))
	return OutcomeCompleted, nil
}
