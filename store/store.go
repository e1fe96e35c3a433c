// Package store provides SQL persistence for worklist records. SQLite (pure Go) is the
// default backend; PostgreSQL is supported for shared deployments.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/types"
	"github.com/caio-sobreiro/dicommwl/worklist"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Column formats for dates stored as text.
const (
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04:05"
)

var ErrNotFound = errors.New("worklist record not found")

var _ interfaces.RecordStore = (*Store)(nil)

// Store is a RecordStore backed by a SQL database.
type Store struct {
	db     *sql.DB
	driver string
	uids   *worklist.UIDGenerator
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithUIDRoot sets the root of generated Study Instance UIDs.
func WithUIDRoot(root string) Option {
	return func(s *Store) {
		s.uids = worklist.NewUIDGenerator(root)
	}
}

// WithUIDGenerator replaces the Study Instance UID generator.
func WithUIDGenerator(g *worklist.UIDGenerator) Option {
	return func(s *Store) {
		s.uids = g
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open connects to the database and runs migrations.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		db, err = sql.Open(DriverSQLite, sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case DriverPostgres:
		db, err = sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	s := New(db, driver, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// sqliteDSN enables WAL and a busy timeout unless the DSN already sets pragmas.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

// New wraps an open database. It does not migrate.
func New(db *sql.DB, driver string, opts ...Option) *Store {
	s := &Store{
		db:     db,
		driver: driver,
		uids:   worklist.NewUIDGenerator(""),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// --- Schema ---

func (s *Store) schema() string {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "id BIGSERIAL PRIMARY KEY"
	}
	return `
	CREATE TABLE IF NOT EXISTS worklist_items (
		` + id + `,
		accession_number TEXT NOT NULL DEFAULT '',
		patient_id TEXT NOT NULL DEFAULT '',
		surname TEXT NOT NULL DEFAULT '',
		forename TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		sex TEXT NOT NULL DEFAULT '',
		date_of_birth TEXT NOT NULL DEFAULT '',
		modality TEXT NOT NULL DEFAULT '',
		exam_description TEXT NOT NULL DEFAULT '',
		exam_room TEXT NOT NULL DEFAULT '',
		hospital_name TEXT NOT NULL DEFAULT '',
		performing_physician TEXT NOT NULL DEFAULT '',
		referring_physician TEXT NOT NULL DEFAULT '',
		scheduled_aet TEXT NOT NULL DEFAULT '',
		study_uid TEXT,
		exam_date_time TEXT NOT NULL DEFAULT ''
	)`
}

// Migrate creates the schema and assigns a Study Instance UID to rows that have none.
// It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.schema()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return s.backfillStudyUIDs(ctx)
}

func (s *Store) backfillStudyUIDs(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM worklist_items WHERE study_uid IS NULL OR study_uid = '' ORDER BY id")
	if err != nil {
		return fmt.Errorf("find rows without study UID: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		uid, err := s.uids.StudyUID(id)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, s.rebind("UPDATE worklist_items SET study_uid = ? WHERE id = ?"), uid, id); err != nil {
			return fmt.Errorf("backfill study UID for %d: %w", id, err)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("Backfilled study UIDs", "rows", len(ids))
	}
	return nil
}

// --- Records ---

const selectColumns = `SELECT id, accession_number, patient_id, surname, forename, title, sex,
	date_of_birth, modality, exam_description, exam_room, hospital_name, performing_physician,
	referring_physician, scheduled_aet, COALESCE(study_uid, ''), exam_date_time
	FROM worklist_items`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.WorklistRecord, error) {
	var (
		r             types.WorklistRecord
		dob, examTime string
	)
	err := row.Scan(&r.ID, &r.AccessionNumber, &r.PatientID, &r.Surname, &r.Forename, &r.Title, &r.Sex,
		&dob, &r.Modality, &r.ExamDescription, &r.ExamRoom, &r.HospitalName, &r.PerformingPhysician,
		&r.ReferringPhysician, &r.ScheduledAET, &r.StudyUID, &examTime)
	if err != nil {
		return nil, err
	}
	if r.DateOfBirth, err = parseTime(dateFormat, dob); err != nil {
		return nil, fmt.Errorf("record %d date of birth: %w", r.ID, err)
	}
	if r.ExamDateAndTime, err = parseTime(dateTimeFormat, examTime); err != nil {
		return nil, fmt.Errorf("record %d exam date: %w", r.ID, err)
	}
	return &r, nil
}

func parseTime(layout, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	// Rows written by other tools may carry a longer timestamp, an ISO 8601
	// separator, or only a date.
	if len(value) > len(layout) {
		value = value[:len(layout)]
	}
	t, err := time.Parse(layout, value)
	if err == nil || layout == dateFormat {
		return t, err
	}
	if len(value) == len(layout) && value[len(dateFormat)] == 'T' {
		if t, isoErr := time.Parse("2006-01-02T15:04:05", value); isoErr == nil {
			return t, nil
		}
	}
	if len(value) >= len(dateFormat) {
		if t, dateErr := time.Parse(dateFormat, value[:len(dateFormat)]); dateErr == nil && strings.TrimSpace(value[len(dateFormat):]) == "" {
			return t, nil
		}
	}
	return t, err
}

func formatTime(layout string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// ListCurrentRecords returns every record in ascending id order.
func (s *Store) ListCurrentRecords(ctx context.Context) ([]types.WorklistRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []types.WorklistRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*types.WorklistRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, s.rebind(selectColumns+" WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return r, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM worklist_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Add inserts record and returns its id. The store assigns the id and, unless the
// record already has one, a Study Instance UID derived from it. Both are written
// back to record.
func (s *Store) Add(ctx context.Context, record *types.WorklistRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(`INSERT INTO worklist_items (accession_number, patient_id, surname,
		forename, title, sex, date_of_birth, modality, exam_description, exam_room, hospital_name,
		performing_physician, referring_physician, scheduled_aet, study_uid, exam_date_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		record.AccessionNumber, record.PatientID, record.Surname, record.Forename, record.Title, record.Sex,
		formatTime(dateFormat, record.DateOfBirth), record.Modality, record.ExamDescription, record.ExamRoom,
		record.HospitalName, record.PerformingPhysician, record.ReferringPhysician, record.ScheduledAET,
		record.StudyUID, formatTime(dateTimeFormat, record.ExamDateAndTime)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	uid := record.StudyUID
	if uid == "" {
		if uid, err = s.uids.StudyUID(id); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, s.rebind("UPDATE worklist_items SET study_uid = ? WHERE id = ?"), uid, id); err != nil {
			return 0, fmt.Errorf("set study UID: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	record.ID = id
	record.StudyUID = uid
	return id, nil
}

// Update rewrites the editable fields of the record with record.ID. The id and the
// Study Instance UID never change.
func (s *Store) Update(ctx context.Context, record *types.WorklistRecord) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE worklist_items SET accession_number = ?, patient_id = ?,
		surname = ?, forename = ?, title = ?, sex = ?, date_of_birth = ?, modality = ?, exam_description = ?,
		exam_room = ?, hospital_name = ?, performing_physician = ?, referring_physician = ?, scheduled_aet = ?,
		exam_date_time = ? WHERE id = ?`),
		record.AccessionNumber, record.PatientID, record.Surname, record.Forename, record.Title, record.Sex,
		formatTime(dateFormat, record.DateOfBirth), record.Modality, record.ExamDescription, record.ExamRoom,
		record.HospitalName, record.PerformingPhysician, record.ReferringPhysician, record.ScheduledAET,
		formatTime(dateTimeFormat, record.ExamDateAndTime), record.ID)
	if err != nil {
		return fmt.Errorf("update record %d: %w", record.ID, err)
	}
	return expectOneRow(res, record.ID)
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM worklist_items WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// SampleRecord is the demonstration row written into an empty store.
func SampleRecord() *types.WorklistRecord {
	return &types.WorklistRecord{
		AccessionNumber:    "AB123",
		PatientID:          "100015",
		Surname:            "Test",
		Forename:           "Hilbert",
		Sex:                types.SexMale,
		DateOfBirth:        time.Date(1975, 2, 14, 0, 0, 0, 0, time.UTC),
		Modality:           "MR",
		ExamDescription:    "mr knee left",
		ExamRoom:           "MR1",
		ScheduledAET:       "MRMODALITY",
		ReferringPhysician: "Smith^John^Md",
		ExamDateAndTime:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

// SeedSample inserts SampleRecord when the store is empty. It reports whether a row
// was written.
func (s *Store) SeedSample(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Add(ctx, SampleRecord()); err != nil {
		return false, fmt.Errorf("seed sample record: %w", err)
	}
	s.logger.Info("Seeded sample worklist record")
	return true, nil
}
