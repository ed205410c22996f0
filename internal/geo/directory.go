// Package geo holds the static county / subject / city directory and the
// fuzzy city lookup used when a user types their city.
package geo

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/bvilove/datebot/internal/preference"
)

//go:embed data/*.csv
var dataFS embed.FS

// City is one resolvable location.
type City struct {
	Code    preference.LocationCode
	Name    string
	Subject string
	County  string
}

type Directory struct {
	counties map[int32]string
	subjects map[int32]string
	cities   map[preference.LocationCode]City
	index    []indexEntry
}

type indexEntry struct {
	folded string
	code   preference.LocationCode
}

var (
	defaultOnce sync.Once
	defaultDir  *Directory
	defaultErr  error
)

// Default returns the directory built from the embedded tables.
func Default() (*Directory, error) {
	defaultOnce.Do(func() {
		defaultDir, defaultErr = loadEmbedded()
	})
	return defaultDir, defaultErr
}

func loadEmbedded() (*Directory, error) {
	open := func(name string) (io.ReadCloser, error) { return dataFS.Open("data/" + name) }

	counties, err := open("counties.csv")
	if err != nil {
		return nil, err
	}
	defer counties.Close()
	subjects, err := open("subjects.csv")
	if err != nil {
		return nil, err
	}
	defer subjects.Close()
	cities, err := open("cities.csv")
	if err != nil {
		return nil, err
	}
	defer cities.Close()

	return Parse(counties, subjects, cities)
}

// Parse builds a directory from CSV tables:
//
//	counties.csv  id,name
//	subjects.csv  id,name
//	cities.csv    county,subject,id,name   (county/subject by name)
func Parse(counties, subjects, cities io.Reader) (*Directory, error) {
	d := &Directory{
		counties: map[int32]string{},
		subjects: map[int32]string{},
		cities:   map[preference.LocationCode]City{},
	}

	countyIDs, err := readNamedIDs(counties, d.counties)
	if err != nil {
		return nil, fmt.Errorf("counties: %w", err)
	}
	subjectIDs, err := readNamedIDs(subjects, d.subjects)
	if err != nil {
		return nil, fmt.Errorf("subjects: %w", err)
	}

	rows, err := readRows(cities, 4)
	if err != nil {
		return nil, fmt.Errorf("cities: %w", err)
	}
	for _, row := range rows {
		county, ok := countyIDs[row[0]]
		if !ok {
			return nil, fmt.Errorf("cities: unknown county %q", row[0])
		}
		subject, ok := subjectIDs[row[1]]
		if !ok {
			return nil, fmt.Errorf("cities: unknown subject %q", row[1])
		}
		id, err := parseID(row[2])
		if err != nil {
			return nil, fmt.Errorf("cities: %w", err)
		}
		code := preference.NewLocationCode(county, subject, id)
		if _, dup := d.cities[code]; dup {
			return nil, fmt.Errorf("cities: duplicate code %d", code)
		}
		d.cities[code] = City{Code: code, Name: row[3], Subject: row[1], County: row[0]}
	}

	d.index = lo.MapToSlice(d.cities, func(code preference.LocationCode, c City) indexEntry {
		return indexEntry{folded: fold(c.Name), code: code}
	})
	return d, nil
}

func readNamedIDs(r io.Reader, into map[int32]string) (map[string]uint8, error) {
	rows, err := readRows(r, 2)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint8, len(rows))
	for _, row := range rows {
		id, err := parseID(row[0])
		if err != nil {
			return nil, err
		}
		into[int32(id)] = row[1]
		byName[row[1]] = id
	}
	return byName, nil
}

// readRows skips the header line.
func readRows(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty table")
	}
	return rows[1:], nil
}

func parseID(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint8(n), nil
}

func (d *Directory) CountyName(code preference.LocationCode) (string, bool) {
	n, ok := d.counties[preference.CountyOf(code)]
	return n, ok
}

func (d *Directory) SubjectName(code preference.LocationCode) (string, bool) {
	n, ok := d.subjects[preference.SubjectRegionOf(code)]
	return n, ok
}

func (d *Directory) City(code preference.LocationCode) (City, bool) {
	c, ok := d.cities[code]
	return c, ok
}

// Len is the number of known cities.
func (d *Directory) Len() int { return len(d.cities) }

// Format renders a location for display. Cities that are their own subject
// (Moscow, Saint Petersburg) are not repeated.
func (d *Directory) Format(code *preference.LocationCode) (string, error) {
	if code == nil {
		return "Город не указан", nil
	}
	c, ok := d.City(*code)
	if !ok {
		return "", fmt.Errorf("unknown location code %d", *code)
	}
	if c.Subject == c.Name {
		return fmt.Sprintf("%s ФО, %s", c.County, c.Name), nil
	}
	return fmt.Sprintf("%s ФО, %s, %s", c.County, c.Subject, c.Name), nil
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
