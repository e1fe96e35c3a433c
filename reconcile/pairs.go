// Package reconcile periodically asks the archive whether the scheduled procedure steps
// in the worklist already have studies, and publishes what it finds.
package reconcile

import (
	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/types"
)

// Pair is the archive lookup key of one worklist record.
type Pair struct {
	RecordID        int64
	PatientID       string
	AccessionNumber string
}

// BuildPairs returns one pair per record that has both a patient ID and an accession
// number, in snapshot order.
func BuildPairs(records []types.WorklistRecord) []Pair {
	pairs := make([]Pair, 0, len(records))
	for i := range records {
		r := &records[i]
		if !r.HasArchiveKeys() {
			continue
		}
		pairs = append(pairs, Pair{
			RecordID:        r.ID,
			PatientID:       r.PatientID,
			AccessionNumber: r.AccessionNumber,
		})
	}
	return pairs
}

// StudyQuery builds the study-level identifier for a pair. PatientName and
// StudyInstanceUID are return keys.
func StudyQuery(pair Pair) *dicom.Dataset {
	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagQueryRetrieveLevel, dicom.VR_CS, "STUDY")
	ds.AddElement(dicom.TagAccessionNumber, dicom.VR_SH, pair.AccessionNumber)
	ds.AddElement(dicom.TagPatientName, dicom.VR_PN, "")
	ds.AddElement(dicom.TagPatientID, dicom.VR_LO, pair.PatientID)
	ds.AddElement(dicom.TagStudyDate, dicom.VR_DA, "")
	ds.AddElement(dicom.TagStudyInstanceUID, dicom.VR_UI, "")
	return ds
}
