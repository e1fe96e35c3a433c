package dicom

// Item and delimiter tags used inside sequences (PS3.5 7.5).
var (
	TagItem                     = Tag{0xFFFE, 0xE000}
	TagItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	TagSequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// Attributes used by the Modality Worklist and Study Root information models.
var (
	TagSpecificCharacterSet              = Tag{0x0008, 0x0005}
	TagStudyDate                         = Tag{0x0008, 0x0020}
	TagStudyTime                         = Tag{0x0008, 0x0030}
	TagAccessionNumber                   = Tag{0x0008, 0x0050}
	TagQueryRetrieveLevel                = Tag{0x0008, 0x0052}
	TagModality                          = Tag{0x0008, 0x0060}
	TagModalitiesInStudy                 = Tag{0x0008, 0x0061}
	TagInstitutionName                   = Tag{0x0008, 0x0080}
	TagReferringPhysicianName            = Tag{0x0008, 0x0090}
	TagStudyDescription                  = Tag{0x0008, 0x1030}
	TagReferencedStudySequence           = Tag{0x0008, 0x1110}
	TagReferencedPatientSequence         = Tag{0x0008, 0x1120}
	TagPatientName                       = Tag{0x0010, 0x0010}
	TagPatientID                         = Tag{0x0010, 0x0020}
	TagIssuerOfPatientID                 = Tag{0x0010, 0x0021}
	TagPatientBirthDate                  = Tag{0x0010, 0x0030}
	TagPatientSex                        = Tag{0x0010, 0x0040}
	TagPatientWeight                     = Tag{0x0010, 0x1030}
	TagMedicalAlerts                     = Tag{0x0010, 0x2000}
	TagAllergies                         = Tag{0x0010, 0x2110}
	TagStudyInstanceUID                  = Tag{0x0020, 0x000D}
	TagStudyID                           = Tag{0x0020, 0x0010}
	TagRequestingPhysician               = Tag{0x0032, 0x1032}
	TagRequestedProcedureDescription     = Tag{0x0032, 0x1060}
	TagRequestedProcedureCodeSequence    = Tag{0x0032, 0x1064}
	TagAdmissionID                       = Tag{0x0038, 0x0010}
	TagCurrentPatientLocation            = Tag{0x0038, 0x0300}
	TagScheduledStationAETitle           = Tag{0x0040, 0x0001}
	TagScheduledProcedureStepStartDate   = Tag{0x0040, 0x0002}
	TagScheduledProcedureStepStartTime   = Tag{0x0040, 0x0003}
	TagScheduledPerformingPhysicianName  = Tag{0x0040, 0x0006}
	TagScheduledProcedureStepDescription = Tag{0x0040, 0x0007}
	TagScheduledProtocolCodeSequence     = Tag{0x0040, 0x0008}
	TagScheduledProcedureStepID          = Tag{0x0040, 0x0009}
	TagScheduledStationName              = Tag{0x0040, 0x0010}
	TagScheduledProcedureStepLocation    = Tag{0x0040, 0x0011}
	TagPreMedication                     = Tag{0x0040, 0x0012}
	TagScheduledProcedureStepStatus      = Tag{0x0040, 0x0020}
	TagScheduledProcedureStepSequence    = Tag{0x0040, 0x0100}
	TagRequestedProcedureID              = Tag{0x0040, 0x1001}
	TagRequestedProcedurePriority        = Tag{0x0040, 0x1003}
)

type dictionaryEntry struct {
	vr   string
	name string
}

var dictionary = map[Tag]dictionaryEntry{
	TagSpecificCharacterSet:              {VR_CS, "SpecificCharacterSet"},
	TagStudyDate:                         {VR_DA, "StudyDate"},
	TagStudyTime:                         {VR_TM, "StudyTime"},
	TagAccessionNumber:                   {VR_SH, "AccessionNumber"},
	TagQueryRetrieveLevel:                {VR_CS, "QueryRetrieveLevel"},
	TagModality:                          {VR_CS, "Modality"},
	TagModalitiesInStudy:                 {VR_CS, "ModalitiesInStudy"},
	TagInstitutionName:                   {VR_LO, "InstitutionName"},
	TagReferringPhysicianName:            {VR_PN, "ReferringPhysicianName"},
	TagStudyDescription:                  {VR_LO, "StudyDescription"},
	TagReferencedStudySequence:           {VR_SQ, "ReferencedStudySequence"},
	TagReferencedPatientSequence:         {VR_SQ, "ReferencedPatientSequence"},
	TagPatientName:                       {VR_PN, "PatientName"},
	TagPatientID:                         {VR_LO, "PatientID"},
	TagIssuerOfPatientID:                 {VR_LO, "IssuerOfPatientID"},
	TagPatientBirthDate:                  {VR_DA, "PatientBirthDate"},
	TagPatientSex:                        {VR_CS, "PatientSex"},
	TagPatientWeight:                     {VR_DS, "PatientWeight"},
	TagMedicalAlerts:                     {VR_LO, "MedicalAlerts"},
	TagAllergies:                         {VR_LO, "Allergies"},
	TagStudyInstanceUID:                  {VR_UI, "StudyInstanceUID"},
	TagStudyID:                           {VR_SH, "StudyID"},
	TagRequestingPhysician:               {VR_PN, "RequestingPhysician"},
	TagRequestedProcedureDescription:     {VR_LO, "RequestedProcedureDescription"},
	TagRequestedProcedureCodeSequence:    {VR_SQ, "RequestedProcedureCodeSequence"},
	TagAdmissionID:                       {VR_LO, "AdmissionID"},
	TagCurrentPatientLocation:            {VR_LO, "CurrentPatientLocation"},
	TagScheduledStationAETitle:           {VR_AE, "ScheduledStationAETitle"},
	TagScheduledProcedureStepStartDate:   {VR_DA, "ScheduledProcedureStepStartDate"},
	TagScheduledProcedureStepStartTime:   {VR_TM, "ScheduledProcedureStepStartTime"},
	TagScheduledPerformingPhysicianName:  {VR_PN, "ScheduledPerformingPhysicianName"},
	TagScheduledProcedureStepDescription: {VR_LO, "ScheduledProcedureStepDescription"},
	TagScheduledProtocolCodeSequence:     {VR_SQ, "ScheduledProtocolCodeSequence"},
	TagScheduledProcedureStepID:          {VR_SH, "ScheduledProcedureStepID"},
	TagScheduledStationName:              {VR_SH, "ScheduledStationName"},
	TagScheduledProcedureStepLocation:    {VR_SH, "ScheduledProcedureStepLocation"},
	TagPreMedication:                     {VR_LO, "PreMedication"},
	TagScheduledProcedureStepStatus:      {VR_CS, "ScheduledProcedureStepStatus"},
	TagScheduledProcedureStepSequence:    {VR_SQ, "ScheduledProcedureStepSequence"},
	TagRequestedProcedureID:              {VR_SH, "RequestedProcedureID"},
	TagRequestedProcedurePriority:        {VR_SH, "RequestedProcedurePriority"},
}

// LookupVR returns the dictionary VR for tag. Group length elements are UL; anything
// not in the dictionary is UN.
func LookupVR(tag Tag) string {
	if tag.Element == 0x0000 {
		return VR_UL
	}
	if entry, ok := dictionary[tag]; ok {
		return entry.vr
	}
	return VR_UN
}

// TagName returns the keyword for tag, or its (gggg,eeee) form when unknown.
func TagName(tag Tag) string {
	if entry, ok := dictionary[tag]; ok {
		return entry.name
	}
	return tag.String()
}
