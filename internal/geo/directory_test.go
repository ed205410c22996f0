package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvilove/datebot/internal/preference"
)

func TestDefaultDirectory(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 23, d.Len())

	kazan := preference.NewLocationCode(5, 8, 13)
	c, ok := d.City(kazan)
	require.True(t, ok)
	assert.Equal(t, "Казань", c.Name)

	county, ok := d.CountyName(kazan)
	require.True(t, ok)
	assert.Equal(t, "Приволжский", county)

	subject, ok := d.SubjectName(kazan)
	require.True(t, ok)
	assert.Equal(t, "Республика Татарстан", subject)
}

func TestFormat(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	s, err := d.Format(nil)
	require.NoError(t, err)
	assert.Equal(t, "Город не указан", s)

	moscow := preference.NewLocationCode(1, 1, 1)
	s, err = d.Format(&moscow)
	require.NoError(t, err)
	assert.Equal(t, "Центральный ФО, Москва", s)

	khimki := preference.NewLocationCode(1, 2, 3)
	s, err = d.Format(&khimki)
	require.NoError(t, err)
	assert.Equal(t, "Центральный ФО, Московская область, Химки", s)

	unknown := preference.NewLocationCode(9, 9, 9)
	_, err = d.Format(&unknown)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	code, ok := d.Resolve("казань")
	require.True(t, ok)
	assert.Equal(t, preference.NewLocationCode(5, 8, 13), code)

	code, ok = d.Resolve("  Новосибирс ")
	require.True(t, ok)
	assert.Equal(t, preference.NewLocationCode(7, 13, 20), code)

	_, ok = d.Resolve("qwerty")
	assert.False(t, ok)

	_, ok = d.Resolve("")
	assert.False(t, ok)

	code, ok = preference.ResolveCityText(d, "Екатеринбург")
	require.True(t, ok)
	assert.Equal(t, int32(18), preference.CityOf(code))
}

func TestParse_Errors(t *testing.T) {
	counties := "id,name\n1,North\n"
	subjects := "id,name\n1,Coast\n"

	_, err := Parse(strings.NewReader(counties), strings.NewReader(subjects),
		strings.NewReader("county,subject,id,name\nSouth,Coast,1,Port\n"))
	assert.ErrorContains(t, err, "unknown county")

	_, err = Parse(strings.NewReader(counties), strings.NewReader(subjects),
		strings.NewReader("county,subject,id,name\nNorth,Coast,0,Port\n"))
	assert.ErrorContains(t, err, "invalid id")

	d, err := Parse(strings.NewReader(counties), strings.NewReader(subjects),
		strings.NewReader("county,subject,id,name\nNorth,Coast,7,Port\n"))
	require.NoError(t, err)
	_, ok := d.City(preference.NewLocationCode(1, 1, 7))
	assert.True(t, ok)
}
