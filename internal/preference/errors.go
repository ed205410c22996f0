// Package preference converts between stored integers and typed profile
// preferences: grades, subject and purpose bit sets, genders and packed
// location codes. Everything here is pure.
package preference

import "errors"

var (
	ErrInvalidSubjectBits    = errors.New("invalid subject bits")
	ErrInvalidPurposeBits    = errors.New("invalid dating purpose bits")
	ErrInvalidGrade          = errors.New("grade must be within 1..11")
	ErrInvalidGender         = errors.New("invalid gender")
	ErrInvalidLocationFilter = errors.New("invalid location filter")
)
