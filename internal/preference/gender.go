package preference

import (
	"fmt"
	"strings"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

func ParseGender(s string) (Gender, error) {
	g := Gender(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
	}
	return g, nil
}

func (g Gender) Valid() bool { return g == Male || g == Female }

// GenderFilter is the partner gender a user accepts. GenderAny is stored as
// NULL.
type GenderFilter string

const (
	GenderAny    GenderFilter = "any"
	GenderMale   GenderFilter = GenderFilter(Male)
	GenderFemale GenderFilter = GenderFilter(Female)
)

func ParseGenderFilter(s string) (GenderFilter, error) {
	f := GenderFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case GenderAny, GenderMale, GenderFemale:
		return f, nil
	case "":
		return GenderAny, nil
	}
	return "", fmt.Errorf("%w: filter %q", ErrInvalidGender, s)
}

// Stored returns the nullable column value.
func (f GenderFilter) Stored() *Gender {
	if f == GenderAny || f == "" {
		return nil
	}
	g := Gender(f)
	return &g
}

// GenderFilterOf converts the nullable column value back.
func GenderFilterOf(g *Gender) GenderFilter {
	if g == nil {
		return GenderAny
	}
	return GenderFilter(*g)
}

// Accepts reports whether a partner of gender g passes the filter.
func (f GenderFilter) Accepts(g Gender) bool {
	return f == GenderAny || f == "" || Gender(f) == g
}
