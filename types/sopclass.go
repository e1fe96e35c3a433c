package types

// ApplicationContextUID is the DICOM Application Context Name.
const ApplicationContextUID = "1.2.840.10008.3.1.1.1"

// SOP Class UIDs (PS3.4 Annex B).
const (
	VerificationSOPClass                       = "1.2.840.10008.1.1"
	ModalityWorklistInformationModelFind       = "1.2.840.10008.5.1.4.31"
	GeneralPurposeWorklistInformationModelFind = "1.2.840.10008.5.1.4.32.1"
	StudyRootQueryRetrieveInformationModelFind = "1.2.840.10008.5.1.4.1.2.2.1"
	ModalityPerformedProcedureStepSOPClass     = "1.2.840.10008.3.1.2.3.3"

	// Modalities commonly propose storage contexts alongside the worklist; they are rejected.
	CTImageStorage = "1.2.840.10008.5.1.4.1.1.2"
	MRImageStorage = "1.2.840.10008.5.1.4.1.1.4"
)

var sopClassNames = map[string]string{
	VerificationSOPClass:                       "Verification",
	ModalityWorklistInformationModelFind:       "Modality Worklist FIND",
	GeneralPurposeWorklistInformationModelFind: "General Purpose Worklist FIND",
	StudyRootQueryRetrieveInformationModelFind: "Study Root Query/Retrieve FIND",
	ModalityPerformedProcedureStepSOPClass:     "Modality Performed Procedure Step",
	CTImageStorage:                             "CT Image Storage",
	MRImageStorage:                             "MR Image Storage",
}

// SOPClassName returns a short name for uid, or the uid itself when unknown.
func SOPClassName(uid string) string {
	if name, ok := sopClassNames[uid]; ok {
		return name
	}
	return uid
}

// IsWorklistSOPClass reports whether uid names a worklist information model.
func IsWorklistSOPClass(uid string) bool {
	return uid == ModalityWorklistInformationModelFind || uid == GeneralPurposeWorklistInformationModelFind
}
