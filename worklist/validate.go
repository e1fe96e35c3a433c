package worklist

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/caio-sobreiro/dicommwl/types"
)

// DefaultModalities is the modality allow-list used when none is configured.
var DefaultModalities = []string{"CT", "MR", "US", "CR", "DX", "MG", "NM", "PT", "XA", "RF", "OT"}

var (
	ErrInvalidModality = errors.New("modality not in allow-list")
	ErrInvalidSex      = errors.New("sex must be M, F or O")
	ErrMissingField    = errors.New("required field is empty")
)

// Validator enforces the record rules applied by editors. The protocol server does
// not validate records it serves.
type Validator struct {
	Modalities []string
}

// NewValidator returns a Validator for the given modality allow-list, falling back
// to DefaultModalities.
func NewValidator(modalities []string) *Validator {
	if len(modalities) == 0 {
		modalities = DefaultModalities
	}
	return &Validator{Modalities: modalities}
}

// Validate checks r and normalizes its modality and sex to upper case.
func (v *Validator) Validate(r *types.WorklistRecord) error {
	r.Modality = strings.ToUpper(strings.TrimSpace(r.Modality))
	if !slices.Contains(v.Modalities, r.Modality) {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrInvalidModality, r.Modality, strings.Join(v.Modalities, ", "))
	}

	r.Sex = strings.ToUpper(strings.TrimSpace(r.Sex))
	switch r.Sex {
	case types.SexMale, types.SexFemale, types.SexOther:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSex, r.Sex)
	}

	if strings.TrimSpace(r.PatientID) == "" {
		return fmt.Errorf("%w: patient ID", ErrMissingField)
	}
	if strings.TrimSpace(r.Surname) == "" {
		return fmt.Errorf("%w: surname", ErrMissingField)
	}
	return nil
}
