package preference

import (
	"fmt"
	"time"
)

const (
	MinGrade = 1
	MaxGrade = 11

	// schoolYearStart is the month a new school year begins.
	schoolYearStart = time.September
)

// GradeToGraduationYear returns the year a student currently in grade will
// finish school, relative to now.
//
// Before September the current school year ends this calendar year, so an
// 11th grader graduates in now.Year(). From September on every grade is one
// year further from graduation.
func GradeToGraduationYear(grade int, now time.Time) (int16, error) {
	if grade < MinGrade || grade > MaxGrade {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidGrade, grade)
	}
	year := now.Year() + (MaxGrade - grade)
	if now.Month() >= schoolYearStart {
		year++
	}
	return int16(year), nil
}

// GraduationYearToGrade is the inverse of GradeToGraduationYear. Years that
// do not map into 1..11 (already graduated, not yet in school) are returned
// as-is so callers can decide how to render them; use ValidGrade to check.
func GraduationYearToGrade(year int16, now time.Time) int {
	grade := MaxGrade - (int(year) - now.Year())
	if now.Month() >= schoolYearStart {
		grade++
	}
	return grade
}

// ValidGrade reports whether grade is a school grade.
func ValidGrade(grade int) bool {
	return grade >= MinGrade && grade <= MaxGrade
}
