package worklist

import (
	"errors"
	"strconv"
	"time"

	"github.com/caio-sobreiro/dicommwl/types"
)

var ErrInvalidNationalID = errors.New("not a valid EGN or LNCH")

// NationalID holds what can be derived from a Bulgarian personal number.
type NationalID struct {
	BirthDate time.Time
	Sex       string
}

// ParseNationalID derives birth date and sex from a Bulgarian EGN or LNCH. The month
// of an EGN carries the century: 1-12 for the 1900s, 21-32 for the 1800s and 41-52
// for the 2000s. An LNCH only uses 1-12, so it parses as a 1900s EGN. The ninth
// digit is even for men and odd for women.
func ParseNationalID(id string) (*NationalID, error) {
	if len(id) != 10 {
		return nil, ErrInvalidNationalID
	}
	for _, c := range []byte(id) {
		if c < '0' || c > '9' {
			return nil, ErrInvalidNationalID
		}
	}

	year, _ := strconv.Atoi(id[0:2])
	month, _ := strconv.Atoi(id[2:4])
	day, _ := strconv.Atoi(id[4:6])

	switch {
	case month >= 1 && month <= 12:
		year += 1900
	case month >= 21 && month <= 32:
		year += 1800
		month -= 20
	case month >= 41 && month <= 52:
		year += 2000
		month -= 40
	default:
		return nil, ErrInvalidNationalID
	}

	birth := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31 February into March.
	if birth.Month() != time.Month(month) || birth.Day() != day {
		return nil, ErrInvalidNationalID
	}

	sex := types.SexMale
	if (id[8]-'0')%2 == 1 {
		sex = types.SexFemale
	}
	return &NationalID{BirthDate: birth, Sex: sex}, nil
}

// Apply copies the derived birth date and sex onto r.
func (n *NationalID) Apply(r *types.WorklistRecord) {
	r.DateOfBirth = n.BirthDate
	r.Sex = n.Sex
}
