package types

import (
	"strconv"
	"strings"
	"time"
)

// Patient sex values accepted for worklist records.
const (
	SexMale   = "M"
	SexFemale = "F"
	SexOther  = "O"
)

// Offsets used to derive the requested procedure and procedure step IDs from a record ID.
const (
	ProcedureIDOffset     = 10000
	ProcedureStepIDOffset = 20000
)

// WorklistRecord is one scheduled procedure step.
type WorklistRecord struct {
	ID                  int64
	AccessionNumber     string
	PatientID           string
	Surname             string
	Forename            string
	Title               string
	Sex                 string
	DateOfBirth         time.Time
	Modality            string
	ExamDescription     string
	ExamRoom            string
	HospitalName        string
	PerformingPhysician string
	ReferringPhysician  string
	ScheduledAET        string
	StudyUID            string
	ExamDateAndTime     time.Time
}

// ProcedureID is the Requested Procedure ID derived from the record ID.
func (r *WorklistRecord) ProcedureID() string {
	return strconv.FormatInt(ProcedureIDOffset+r.ID, 10)
}

// ProcedureStepID is the Scheduled Procedure Step ID derived from the record ID.
func (r *WorklistRecord) ProcedureStepID() string {
	return strconv.FormatInt(ProcedureStepIDOffset+r.ID, 10)
}

// PatientName formats the patient as a DICOM person name: family^given^middle^prefix.
// Trailing empty components are dropped.
func (r *WorklistRecord) PatientName() string {
	name := strings.Join([]string{r.Surname, r.Forename, "", r.Title}, "^")
	return strings.TrimRight(name, "^")
}

// HasArchiveKeys reports whether the record carries both keys needed to look it up in
// the archive.
func (r *WorklistRecord) HasArchiveKeys() bool {
	return strings.TrimSpace(r.PatientID) != "" && strings.TrimSpace(r.AccessionNumber) != ""
}
