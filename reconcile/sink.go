package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Match is one study the archive reported for a worklist pair.
type Match struct {
	BatchID          string
	Pair             Pair
	PatientName      string
	StudyInstanceUID string
	StudyDate        string
	FoundAt          time.Time
}

// Sink receives archive matches. Publish is called from the association's reader, one
// match at a time.
type Sink interface {
	Publish(ctx context.Context, match Match) error
}

// LogSink logs every match.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements Sink.
func (s LogSink) Publish(ctx context.Context, match Match) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Archive match",
		"batch_id", match.BatchID,
		"record_id", match.Pair.RecordID,
		"accession_number", match.Pair.AccessionNumber,
		"patient_name", match.PatientName,
		"study_uid", match.StudyInstanceUID)
	return nil
}

// DefaultStream is the Redis stream matches are appended to.
const DefaultStream = "worklist:pacs-matches"

// RedisSink appends every match to a Redis stream.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// RedisSinkOption configures a RedisSink.
type RedisSinkOption func(*RedisSink)

// WithMaxLen caps the stream at roughly n entries.
func WithMaxLen(n int64) RedisSinkOption {
	return func(s *RedisSink) {
		s.maxLen = n
	}
}

// NewRedisSink returns a sink writing to stream (DefaultStream when empty).
func NewRedisSink(client *redis.Client, stream string, opts ...RedisSinkOption) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	s := &RedisSink{client: client, stream: stream}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, match Match) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"batch_id":         match.BatchID,
			"record_id":        strconv.FormatInt(match.Pair.RecordID, 10),
			"patient_id":       match.Pair.PatientID,
			"accession_number": match.Pair.AccessionNumber,
			"patient_name":     match.PatientName,
			"study_uid":        match.StudyInstanceUID,
			"study_date":       match.StudyDate,
			"found_at":         match.FoundAt.UTC().Format(time.RFC3339),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// MultiSink publishes to every sink and joins their errors.
type MultiSink []Sink

// Publish implements Sink.
func (m MultiSink) Publish(ctx context.Context, match Match) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, match); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
