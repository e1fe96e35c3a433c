package worklist

import (
	"time"

	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/types"
)

// DICOM date and time layouts.
const (
	DateLayout = "20060102"
	TimeLayout = "150405"
)

type attributeKind int

const (
	kindText attributeKind = iota
	kindDate
	kindTime
)

// attribute describes how one matching key maps onto a worklist record.
type attribute struct {
	vr    string
	kind  attributeKind
	value func(r *types.WorklistRecord) string
}

// FormatDate renders t as a DICOM DA value. The zero time renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatTime renders t as a DICOM TM value. The zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

var patientAttributes = map[dicom.Tag]attribute{
	dicom.TagAccessionNumber: {dicom.VR_SH, kindText, func(r *types.WorklistRecord) string {
		return r.AccessionNumber
	}},
	dicom.TagInstitutionName: {dicom.VR_LO, kindText, func(r *types.WorklistRecord) string {
		return r.HospitalName
	}},
	dicom.TagReferringPhysicianName: {dicom.VR_PN, kindText, func(r *types.WorklistRecord) string {
		return r.ReferringPhysician
	}},
	dicom.TagPatientName: {dicom.VR_PN, kindText, func(r *types.WorklistRecord) string {
		return r.PatientName()
	}},
	dicom.TagPatientID: {dicom.VR_LO, kindText, func(r *types.WorklistRecord) string {
		return r.PatientID
	}},
	dicom.TagPatientBirthDate: {dicom.VR_DA, kindDate, func(r *types.WorklistRecord) string {
		return FormatDate(r.DateOfBirth)
	}},
	dicom.TagPatientSex: {dicom.VR_CS, kindText, func(r *types.WorklistRecord) string {
		return r.Sex
	}},
	dicom.TagStudyInstanceUID: {dicom.VR_UI, kindText, func(r *types.WorklistRecord) string {
		return r.StudyUID
	}},
	dicom.TagRequestedProcedureDescription: {dicom.VR_LO, kindText, func(r *types.WorklistRecord) string {
		return r.ExamDescription
	}},
	dicom.TagRequestedProcedureID: {dicom.VR_SH, kindText, func(r *types.WorklistRecord) string {
		return r.ProcedureID()
	}},
}

// stepAttributes are the keys carried inside the Scheduled Procedure Step Sequence item.
var stepAttributes = map[dicom.Tag]attribute{
	dicom.TagModality: {dicom.VR_CS, kindText, func(r *types.WorklistRecord) string {
		return r.Modality
	}},
	dicom.TagScheduledStationAETitle: {dicom.VR_AE, kindText, func(r *types.WorklistRecord) string {
		return r.ScheduledAET
	}},
	dicom.TagScheduledProcedureStepStartDate: {dicom.VR_DA, kindDate, func(r *types.WorklistRecord) string {
		return FormatDate(r.ExamDateAndTime)
	}},
	dicom.TagScheduledProcedureStepStartTime: {dicom.VR_TM, kindTime, func(r *types.WorklistRecord) string {
		return FormatTime(r.ExamDateAndTime)
	}},
	dicom.TagScheduledPerformingPhysicianName: {dicom.VR_PN, kindText, func(r *types.WorklistRecord) string {
		return r.PerformingPhysician
	}},
	dicom.TagScheduledProcedureStepDescription: {dicom.VR_LO, kindText, func(r *types.WorklistRecord) string {
		return r.ExamDescription
	}},
	dicom.TagScheduledProcedureStepID: {dicom.VR_SH, kindText, func(r *types.WorklistRecord) string {
		return r.ProcedureStepID()
	}},
	dicom.TagScheduledProcedureStepLocation: {dicom.VR_SH, kindText, func(r *types.WorklistRecord) string {
		return r.ExamRoom
	}},
}
