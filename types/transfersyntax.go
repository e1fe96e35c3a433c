package types

// Uncompressed transfer syntaxes. Worklist identifiers never carry pixel data, so the
// encapsulated syntaxes are not listed.
const (
	ImplicitVRLittleEndian         = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian         = "1.2.840.10008.1.2.1"
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian            = "1.2.840.10008.1.2.2"
)

// TransferSyntaxInfo describes how a transfer syntax encodes data elements.
type TransferSyntaxInfo struct {
	UID          string
	Name         string
	ExplicitVR   bool
	BigEndian    bool
	IsCompressed bool
	IsRetired    bool
}

// GetTransferSyntaxInfo returns the registry entry for uid. Unknown syntaxes are reported
// as explicit little endian, which is how the dataset codec falls back.
func GetTransferSyntaxInfo(uid string) *TransferSyntaxInfo {
	info, ok := transferSyntaxRegistry[uid]
	if !ok {
		return &TransferSyntaxInfo{
			UID:        uid,
			Name:       "Unknown",
			ExplicitVR: true,
		}
	}
	return &info
}

// TransferSyntaxName returns a readable name for logging.
func TransferSyntaxName(uid string) string {
	if info, ok := transferSyntaxRegistry[uid]; ok {
		return info.Name
	}
	return uid
}

// IsExplicitVR reports whether datasets in uid carry the VR on the wire.
func IsExplicitVR(uid string) bool {
	return GetTransferSyntaxInfo(uid).ExplicitVR
}

// IsBigEndian reports whether datasets in uid use big endian byte order.
func IsBigEndian(uid string) bool {
	return GetTransferSyntaxInfo(uid).BigEndian
}

// IsCompressed reports whether uid is a compressed transfer syntax.
func IsCompressed(uid string) bool {
	return GetTransferSyntaxInfo(uid).IsCompressed
}

// IsRetired reports whether uid has been retired from the standard.
func IsRetired(uid string) bool {
	return GetTransferSyntaxInfo(uid).IsRetired
}

var transferSyntaxRegistry = map[string]TransferSyntaxInfo{
	ImplicitVRLittleEndian: {
		UID:  ImplicitVRLittleEndian,
		Name: "Implicit VR Little Endian",
	},
	ExplicitVRLittleEndian: {
		UID:        ExplicitVRLittleEndian,
		Name:       "Explicit VR Little Endian",
		ExplicitVR: true,
	},
	ExplicitVRBigEndian: {
		UID:        ExplicitVRBigEndian,
		Name:       "Explicit VR Big Endian",
		ExplicitVR: true,
		BigEndian:  true,
		IsRetired:  true,
	},
	DeflatedExplicitVRLittleEndian: {
		UID:          DeflatedExplicitVRLittleEndian,
		Name:         "Deflated Explicit VR Little Endian",
		ExplicitVR:   true,
		IsCompressed: true,
	},
}

// WorklistTransferSyntaxes is the ordered accept list used when negotiating worklist and
// verification contexts.
func WorklistTransferSyntaxes() []string {
	return []string{
		ExplicitVRLittleEndian,
		ExplicitVRBigEndian,
		ImplicitVRLittleEndian,
	}
}
