package preference

import (
	"fmt"
	"strings"
)

// LocationCode packs county (federal district), subject (region) and city
// ids into one integer: county<<16 | subject<<8 | city.
type LocationCode int32

const (
	countyShift  = 16
	subjectShift = 8
	fieldMask    = 0xff
)

func NewLocationCode(county, subject, city uint8) LocationCode {
	return LocationCode(int32(county)<<countyShift | int32(subject)<<subjectShift | int32(city))
}

func CountyOf(code LocationCode) int32 { return int32(code) >> countyShift }

func SubjectRegionOf(code LocationCode) int32 { return (int32(code) >> subjectShift) & fieldMask }

func CityOf(code LocationCode) int32 { return int32(code) & fieldMask }

// Valid reports whether every tier is set and no bits above the county
// field are used.
func (c LocationCode) Valid() bool {
	return c > 0 && CountyOf(c) > 0 && CountyOf(c) <= fieldMask && SubjectRegionOf(c) > 0 && CityOf(c) > 0
}

// LocationFilter is how far away a partner may live.
type LocationFilter string

const (
	SameCity          LocationFilter = "same_city"
	SameSubjectRegion LocationFilter = "same_subject"
	SameCounty        LocationFilter = "same_county"
	SameCountry       LocationFilter = "same_country"
)

func ParseLocationFilter(s string) (LocationFilter, error) {
	f := LocationFilter(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocationFilter, s)
	}
	return f, nil
}

func (f LocationFilter) Valid() bool {
	switch f {
	case SameCity, SameSubjectRegion, SameCounty, SameCountry:
		return true
	}
	return false
}

// NeedsCity reports whether the filter can only be evaluated against a known
// city.
func (f LocationFilter) NeedsCity() bool { return f != SameCountry }

// Accepts reports whether other is close enough to own under f. A missing
// city on either side only passes SameCountry.
func (f LocationFilter) Accepts(own, other *LocationCode) bool {
	if f == SameCountry {
		return true
	}
	if own == nil || other == nil {
		return false
	}
	switch f {
	case SameCounty:
		return CountyOf(*own) == CountyOf(*other)
	case SameSubjectRegion:
		return SubjectRegionOf(*own) == SubjectRegionOf(*other)
	case SameCity:
		return *own == *other
	}
	return false
}

// CityResolver turns free-form text into a known location.
type CityResolver interface {
	Resolve(text string) (LocationCode, bool)
}

// ResolveCityText delegates to r; blank input never resolves.
func ResolveCityText(r CityResolver, text string) (LocationCode, bool) {
	if r == nil || strings.TrimSpace(text) == "" {
		return 0, false
	}
	return r.Resolve(text)
}
