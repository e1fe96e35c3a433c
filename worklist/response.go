package worklist

import (
	"iter"

	"github.com/caio-sobreiro/dicommwl/dicom"
	"github.com/caio-sobreiro/dicommwl/types"
)

// CharacterSetUTF8 is the Specific Character Set value for UTF-8 encoded text.
const CharacterSetUTF8 = "ISO_IR 192"

// Response is one step of a C-FIND result stream: a pending response carrying an
// identifier, or the final success with none.
type Response struct {
	Status     uint16
	Record     *types.WorklistRecord
	Identifier *dicom.Dataset
}

// Final reports whether r is the terminal response of the stream.
func (r Response) Final() bool {
	return r.Status != types.StatusPending
}

// Responses yields one pending response per matching record, in ascending id order,
// followed by exactly one success response.
func Responses(q *Query, records []types.WorklistRecord) iter.Seq[Response] {
	return func(yield func(Response) bool) {
		var returnKeys *dicom.Dataset
		if q != nil {
			returnKeys = q.ReturnKeys
		}
		for record := range Match(q, records) {
			if !yield(Response{
				Status:     types.StatusPending,
				Record:     record,
				Identifier: BuildResponse(record, returnKeys),
			}) {
				return
			}
		}
		yield(Response{Status: types.StatusSuccess})
	}
}

// BuildResponse renders record as a C-FIND identifier holding the requested return
// keys. With no return keys the full worklist dataset is returned. Requested keys the
// worklist does not hold come back empty.
func BuildResponse(record *types.WorklistRecord, returnKeys *dicom.Dataset) *dicom.Dataset {
	if returnKeys == nil || returnKeys.Len() == 0 {
		return FullResponse(record)
	}

	ds := dicom.NewDataset()
	for tag, element := range returnKeys.Elements {
		switch {
		case tag == dicom.TagSpecificCharacterSet:
			ds.AddElement(tag, dicom.VR_CS, CharacterSetUTF8)
		case tag == dicom.TagScheduledProcedureStepSequence:
			ds.AddSequence(tag, buildStep(record, returnKeys.GetSequence(tag)))
		case element.IsSequence():
			ds.AddSequence(tag)
		default:
			if attr, ok := patientAttributes[tag]; ok {
				ds.AddElement(tag, attr.vr, attr.value(record))
				continue
			}
			ds.AddElement(tag, emptyVR(tag, element), "")
		}
	}
	return ds
}

// FullResponse renders every worklist attribute of record.
func FullResponse(record *types.WorklistRecord) *dicom.Dataset {
	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagSpecificCharacterSet, dicom.VR_CS, CharacterSetUTF8)
	for tag, attr := range patientAttributes {
		ds.AddElement(tag, attr.vr, attr.value(record))
	}
	ds.AddSequence(dicom.TagScheduledProcedureStepSequence, buildStep(record, nil))
	return ds
}

func buildStep(record *types.WorklistRecord, requested []*dicom.Dataset) *dicom.Dataset {
	item := dicom.NewDataset()
	if len(requested) == 0 || requested[0].Len() == 0 {
		for tag, attr := range stepAttributes {
			item.AddElement(tag, attr.vr, attr.value(record))
		}
		return item
	}

	for tag, element := range requested[0].Elements {
		if attr, ok := stepAttributes[tag]; ok {
			item.AddElement(tag, attr.vr, attr.value(record))
			continue
		}
		if element.IsSequence() {
			item.AddSequence(tag)
			continue
		}
		item.AddElement(tag, emptyVR(tag, element), "")
	}
	return item
}

func emptyVR(tag dicom.Tag, element *dicom.Element) string {
	if element.VR != "" && element.VR != dicom.VR_UN {
		return element.VR
	}
	return dicom.LookupVR(tag)
}
