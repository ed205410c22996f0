package preference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeGraduationYearInverse(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2025, time.August, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, now := range dates {
		for g := MinGrade; g <= MaxGrade; g++ {
			year, err := GradeToGraduationYear(g, now)
			require.NoError(t, err)
			assert.Equal(t, g, GraduationYearToGrade(year, now), "grade %d at %s", g, now)
		}
	}
}

func TestGradeToGraduationYear_SeptemberRollover(t *testing.T) {
	spring := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	autumn := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

	y, err := GradeToGraduationYear(11, spring)
	require.NoError(t, err)
	assert.Equal(t, int16(2025), y)

	y, err = GradeToGraduationYear(11, autumn)
	require.NoError(t, err)
	assert.Equal(t, int16(2026), y)

	y, err = GradeToGraduationYear(9, spring)
	require.NoError(t, err)
	assert.Equal(t, int16(2027), y)
}

func TestGradeToGraduationYear_Invalid(t *testing.T) {
	for _, g := range []int{0, 12, -1} {
		_, err := GradeToGraduationYear(g, time.Now())
		assert.ErrorIs(t, err, ErrInvalidGrade)
	}
	assert.False(t, ValidGrade(GraduationYearToGrade(2000, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
}

func TestSubjectsRoundTrip(t *testing.T) {
	patterns := []int32{0, 1, int32(Math), int32(Math | Art), int32(AllSubjects), 0x00a5a5a5 & int32(AllSubjects)}
	for _, bits := range patterns {
		s, err := DecodeSubjects(bits)
		require.NoError(t, err)
		assert.Equal(t, bits, EncodeSubjects(s))
	}
}

func TestDecodeSubjects_UnknownBits(t *testing.T) {
	_, err := DecodeSubjects(1 << 24)
	assert.ErrorIs(t, err, ErrInvalidSubjectBits)

	_, err = DecodeSubjects(-1)
	assert.ErrorIs(t, err, ErrInvalidSubjectBits)
}

func TestSubjectsSetOps(t *testing.T) {
	s := Math | Art | Physics

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(Math|Art))
	assert.False(t, s.Has(Math|Biology))
	assert.True(t, s.Intersects(Biology|Physics))
	assert.False(t, s.Intersects(Biology))
	assert.Equal(t, []Subjects{Art, Math, Physics}, s.List())
	assert.Equal(t, "art, math, physics", s.String())

	parsed, err := ParseSubject(" Informatics ")
	require.NoError(t, err)
	assert.Equal(t, Informatics, parsed)

	_, err = ParseSubject("alchemy")
	assert.ErrorIs(t, err, ErrInvalidSubjectBits)
}

func TestPurpose(t *testing.T) {
	for raw := int16(0); raw <= int16(AllPurposes); raw++ {
		p, err := DecodePurpose(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, EncodePurpose(p))
	}

	_, err := DecodePurpose(8)
	assert.ErrorIs(t, err, ErrInvalidPurposeBits)

	_, err = RequireCompletePurpose(0)
	assert.ErrorIs(t, err, ErrInvalidPurposeBits)

	p, err := RequireCompletePurpose(int16(Studies | Relationship))
	require.NoError(t, err)
	assert.Equal(t, []string{"studies", "relationship"}, p.Names())
	assert.True(t, p.Intersects(Studies))
	assert.False(t, p.Intersects(Friendship))
}

func TestGenderFilter(t *testing.T) {
	assert.Nil(t, GenderAny.Stored())
	assert.Equal(t, Female, *GenderFemale.Stored())
	assert.Equal(t, GenderAny, GenderFilterOf(nil))

	m := Male
	assert.Equal(t, GenderMale, GenderFilterOf(&m))

	assert.True(t, GenderAny.Accepts(Female))
	assert.True(t, GenderMale.Accepts(Male))
	assert.False(t, GenderMale.Accepts(Female))

	_, err := ParseGender("robot")
	assert.ErrorIs(t, err, ErrInvalidGender)

	f, err := ParseGenderFilter("")
	require.NoError(t, err)
	assert.Equal(t, GenderAny, f)
}

func TestLocationCode(t *testing.T) {
	code := NewLocationCode(3, 17, 42)

	assert.Equal(t, int32(3<<16|17<<8|42), int32(code))
	assert.Equal(t, int32(3), CountyOf(code))
	assert.Equal(t, int32(17), SubjectRegionOf(code))
	assert.Equal(t, int32(42), CityOf(code))
	assert.True(t, code.Valid())
	assert.False(t, NewLocationCode(0, 1, 1).Valid())
}

func TestLocationFilterAccepts(t *testing.T) {
	moscow := NewLocationCode(1, 1, 1)
	podolsk := NewLocationCode(1, 3, 2)
	khimki := NewLocationCode(1, 3, 3)
	kazan := NewLocationCode(5, 6, 4)

	assert.True(t, SameCountry.Accepts(&moscow, &kazan))
	assert.True(t, SameCountry.Accepts(nil, nil))

	assert.True(t, SameCounty.Accepts(&moscow, &podolsk))
	assert.False(t, SameCounty.Accepts(&moscow, &kazan))

	assert.True(t, SameSubjectRegion.Accepts(&podolsk, &khimki))
	assert.False(t, SameSubjectRegion.Accepts(&moscow, &podolsk))

	assert.True(t, SameCity.Accepts(&kazan, &kazan))
	assert.False(t, SameCity.Accepts(&podolsk, &khimki))

	assert.False(t, SameCity.Accepts(nil, &kazan))
	assert.False(t, SameCounty.Accepts(&kazan, nil))

	_, err := ParseLocationFilter("same_galaxy")
	assert.ErrorIs(t, err, ErrInvalidLocationFilter)
}

type staticResolver map[string]LocationCode

func (r staticResolver) Resolve(text string) (LocationCode, bool) {
	c, ok := r[text]
	return c, ok
}

func TestResolveCityText(t *testing.T) {
	r := staticResolver{"Kazan": NewLocationCode(5, 6, 4)}

	code, ok := ResolveCityText(r, "Kazan")
	assert.True(t, ok)
	assert.Equal(t, NewLocationCode(5, 6, 4), code)

	_, ok = ResolveCityText(r, "   ")
	assert.False(t, ok)

	_, ok = ResolveCityText(nil, "Kazan")
	assert.False(t, ok)
}
