// Package matching turns a requester's stored preferences into the set of
// conditions a candidate must satisfy. It never runs a query itself: every
// condition carries both a SQL fragment over the users table (aliased "u")
// and the equivalent in-memory predicate.
package matching

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/db"
	"github.com/bvilove/datebot/internal/preference"
)

var (
	ErrInvalidPreferenceState = errors.New("location filter requires a city")
	ErrPurposeNotSet          = errors.New("dating purpose not set")
)

// Filter names, in evaluation order.
const (
	FilterSelf              = "self"
	FilterActive            = "active"
	FilterRecency           = "recency"
	FilterGradeWindow       = "grade_window"
	FilterPurpose           = "purpose"
	FilterCandidateSubjects = "candidate_subjects"
	FilterRequesterSubjects = "requester_subjects"
	FilterCandidateGender   = "candidate_gender"
	FilterRequesterGender   = "requester_gender"
	FilterCandidateLocation = "candidate_location"
	FilterRequesterLocation = "requester_location"
	FilterAntiRepeat        = "anti_repeat"
)

// Windows are the time spans the builder needs from configuration.
type Windows struct {
	Activity time.Duration // candidates idle longer are skipped
	Cooldown time.Duration // same ordered pair is not suggested again within it
}

// Candidate is one row of the pool plus the time the requester was last
// paired with it, if ever.
type Candidate struct {
	User         *db.User
	LastPairedAt *time.Time
}

// Filter is one named conjunct.
type Filter struct {
	Name  string
	Where string
	Args  []any
	Match func(Candidate) bool
}

// Criteria is the conjunction of filters for a single requester.
type Criteria struct {
	RequesterID int64
	Filters     []Filter
}

// Build derives the candidate criteria for requester r as of now.
//
// Fails with ErrPurposeNotSet when r has no purpose and with
// ErrInvalidPreferenceState when r filters by location without a city.
// Corrupt stored bit sets surface as preference decode errors.
func Build(r *db.User, now time.Time, w Windows) (*Criteria, error) {
	purpose, err := preference.DecodePurpose(r.DatingPurpose)
	if err != nil {
		return nil, err
	}
	if purpose.Empty() {
		return nil, ErrPurposeNotSet
	}
	subjects, err := preference.DecodeSubjects(r.Subjects)
	if err != nil {
		return nil, err
	}
	subjectsFilter, err := preference.DecodeSubjects(r.SubjectsFilter)
	if err != nil {
		return nil, fmt.Errorf("subjects filter: %w", err)
	}
	if !r.LocationFilter.Valid() {
		return nil, fmt.Errorf("%w: %q", preference.ErrInvalidLocationFilter, r.LocationFilter)
	}
	if r.LocationFilter.NeedsCity() && r.City == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPreferenceState, r.LocationFilter)
	}

	activeSince := now.Add(-w.Activity)
	repeatSince := now.Add(-w.Cooldown)
	minYear, maxYear := r.GraduationYear-r.GradeUpFilter, r.GraduationYear+r.GradeDownFilter

	crit := &Criteria{RequesterID: r.ID}
	crit.add(Filter{
		Name:  FilterSelf,
		Where: "u.id <> ?",
		Args:  []any{r.ID},
		Match: func(c Candidate) bool { return c.User.ID != r.ID },
	})
	crit.add(Filter{
		Name:  FilterActive,
		Where: "u.active = ?",
		Args:  []any{true},
		Match: func(c Candidate) bool { return c.User.Active },
	})
	crit.add(Filter{
		Name:  FilterRecency,
		Where: "u.last_activity > ?",
		Args:  []any{activeSince},
		Match: func(c Candidate) bool { return c.User.LastActivity.After(activeSince) },
	})
	crit.add(Filter{
		Name: FilterGradeWindow,
		Where: "u.graduation_year BETWEEN ? AND ? " +
			"AND u.graduation_year - u.grade_up_filter <= ? " +
			"AND u.graduation_year + u.grade_down_filter >= ?",
		Args: []any{minYear, maxYear, r.GraduationYear, r.GraduationYear},
		Match: func(c Candidate) bool {
			u := c.User
			return u.GraduationYear >= minYear && u.GraduationYear <= maxYear &&
				u.GraduationYear-u.GradeUpFilter <= r.GraduationYear &&
				u.GraduationYear+u.GradeDownFilter >= r.GraduationYear
		},
	})
	crit.add(Filter{
		Name:  FilterPurpose,
		Where: "(u.dating_purpose & ?) <> 0",
		Args:  []any{int64(purpose)},
		Match: func(c Candidate) bool {
			return preference.DatingPurpose(uint16(c.User.DatingPurpose)).Intersects(purpose)
		},
	})
	crit.add(Filter{
		Name:  FilterCandidateSubjects,
		Where: "(u.subjects_filter = 0 OR (u.subjects_filter & ?) <> 0)",
		Args:  []any{int64(subjects)},
		Match: func(c Candidate) bool {
			want := preference.Subjects(uint32(c.User.SubjectsFilter))
			return want.Empty() || want.Intersects(subjects)
		},
	})
	if !subjectsFilter.Empty() {
		crit.add(Filter{
			Name:  FilterRequesterSubjects,
			Where: "(u.subjects & ?) <> 0",
			Args:  []any{int64(subjectsFilter)},
			Match: func(c Candidate) bool {
				return preference.Subjects(uint32(c.User.Subjects)).Intersects(subjectsFilter)
			},
		})
	}
	crit.add(Filter{
		Name:  FilterCandidateGender,
		Where: "(u.gender_filter IS NULL OR u.gender_filter = ?)",
		Args:  []any{string(r.Gender)},
		Match: func(c Candidate) bool {
			return preference.GenderFilterOf(c.User.GenderFilter).Accepts(r.Gender)
		},
	})
	if r.GenderFilter != nil {
		want := *r.GenderFilter
		crit.add(Filter{
			Name:  FilterRequesterGender,
			Where: "u.gender = ?",
			Args:  []any{string(want)},
			Match: func(c Candidate) bool { return c.User.Gender == want },
		})
	}
	crit.add(candidateLocation(r))
	if f, ok := requesterLocation(r); ok {
		crit.add(f)
	}
	crit.add(Filter{
		Name: FilterAntiRepeat,
		Where: "NOT EXISTS (SELECT 1 FROM datings d " +
			"WHERE d.initiator_id = ? AND d.partner_id = u.id AND d.time > ?)",
		Args: []any{r.ID, repeatSince},
		Match: func(c Candidate) bool {
			return c.LastPairedAt == nil || !c.LastPairedAt.After(repeatSince)
		},
	})

	return crit, nil
}

// candidateLocation checks the candidate's own location filter against the
// requester's city. Without a requester city only SameCountry candidates pass.
func candidateLocation(r *db.User) Filter {
	match := func(c Candidate) bool {
		return c.User.LocationFilter.Accepts(c.User.City, r.City)
	}
	if r.City == nil {
		return Filter{
			Name:  FilterCandidateLocation,
			Where: "u.location_filter = ?",
			Args:  []any{string(preference.SameCountry)},
			Match: match,
		}
	}
	city := *r.City
	return Filter{
		Name: FilterCandidateLocation,
		Where: "(u.location_filter = ? " +
			"OR (u.location_filter = ? AND (u.city >> 16) = ?) " +
			"OR (u.location_filter = ? AND ((u.city >> 8) & 255) = ?) " +
			"OR (u.location_filter = ? AND u.city = ?))",
		Args: []any{
			string(preference.SameCountry),
			string(preference.SameCounty), preference.CountyOf(city),
			string(preference.SameSubjectRegion), preference.SubjectRegionOf(city),
			string(preference.SameCity), int32(city),
		},
		Match: match,
	}
}

// requesterLocation applies the requester's own filter to the candidate's
// city. SameCountry adds no condition.
func requesterLocation(r *db.User) (Filter, bool) {
	f := Filter{
		Name: FilterRequesterLocation,
		Match: func(c Candidate) bool {
			return r.LocationFilter.Accepts(r.City, c.User.City)
		},
	}
	switch r.LocationFilter {
	case preference.SameCounty:
		f.Where, f.Args = "(u.city >> 16) = ?", []any{preference.CountyOf(*r.City)}
	case preference.SameSubjectRegion:
		f.Where, f.Args = "((u.city >> 8) & 255) = ?", []any{preference.SubjectRegionOf(*r.City)}
	case preference.SameCity:
		f.Where, f.Args = "u.city = ?", []any{int32(*r.City)}
	default:
		return Filter{}, false
	}
	return f, true
}

func (c *Criteria) add(f Filter) { c.Filters = append(c.Filters, f) }

// Names lists the filter names in order.
func (c *Criteria) Names() []string {
	return lo.Map(c.Filters, func(f Filter, _ int) string { return f.Name })
}

// Scope adds every filter as a WHERE conjunct. The query must select from
// "users u".
func (c *Criteria) Scope(tx *gorm.DB) *gorm.DB {
	for _, f := range c.Filters {
		tx = tx.Where(f.Where, f.Args...)
	}
	return tx
}

// Matches reports whether cand satisfies every filter.
func (c *Criteria) Matches(cand Candidate) bool {
	return lo.EveryBy(c.Filters, func(f Filter) bool { return f.Match(cand) })
}

// Rejections names the filters cand fails, in order.
func (c *Criteria) Rejections(cand Candidate) []string {
	return lo.FilterMap(c.Filters, func(f Filter, _ int) (string, bool) {
		return f.Name, !f.Match(cand)
	})
}
