package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bvilove/datebot/internal/db"
	"github.com/bvilove/datebot/internal/preference"
)

const (
	MinNameLen   = 3
	MaxNameLen   = 16
	MaxAboutLen  = 1024
	MaxGradeDiff = 10

	defaultGradeFilter = 1
)

// ProfilePatch carries the fields to write; nil fields are left untouched.
type ProfilePatch struct {
	ID int64

	Name         *string
	Gender       *preference.Gender
	GenderFilter *preference.GenderFilter
	About        *string
	Active       *bool

	// Grade is converted to a graduation year with the caller's clock.
	Grade           *int
	GradeUpFilter   *int16
	GradeDownFilter *int16

	Subjects       *preference.Subjects
	SubjectsFilter *preference.Subjects
	DatingPurpose  *preference.DatingPurpose

	City           *preference.LocationCode
	ClearCity      bool
	LocationFilter *preference.LocationFilter
}

// UserRepository is the Profile Store over the users table.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Get loads a profile by id.
func (r *UserRepository) Get(ctx context.Context, id int64) (*db.User, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate loads a profile and locks its row until the surrounding
// transaction ends. SQLite ignores the lock clause.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*db.User, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *UserRepository) get(q *gorm.DB, id int64) (*db.User, error) {
	var u db.User
	if err := q.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return nil, err
	}
	return &u, nil
}

// Upsert creates the profile if absent, else applies only the supplied
// fields.
//
// Behavior:
//   - Creation needs name, gender, about, grade and a non-empty purpose,
//     else ErrIncompleteProfile.
//   - New profiles default to grade filters 1/1, active, SameCountry and
//     last_activity = now.
//   - Clearing the city without a new filter resets the filter to SameCountry.
//   - An active profile may never end up without a purpose.
//   - Losing a create race to a concurrent Upsert of the same id retries
//     once as an update; a second conflict returns gorm.ErrDuplicatedKey.
func (r *UserRepository) Upsert(ctx context.Context, p ProfilePatch, now time.Time) (*db.User, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	out, err := r.upsert(ctx, p, now)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// the row lock cannot cover a row that does not exist yet
		out, err = r.upsert(ctx, p, now)
	}
	return out, err
}

func (r *UserRepository) upsert(ctx context.Context, p ProfilePatch, now time.Time) (*db.User, error) {
	var out *db.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u db.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", p.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := p.newUser(now)
			if err != nil {
				return err
			}
			if err := tx.Create(created).Error; err != nil {
				return err
			}
			out = created
			return nil
		case err != nil:
			return err
		}

		if err := p.apply(&u, now); err != nil {
			return err
		}
		if err := checkConsistent(&u); err != nil {
			return err
		}
		if err := tx.Save(&u).Error; err != nil {
			return err
		}
		out = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TouchActivity sets last_activity to now.
func (r *UserRepository) TouchActivity(ctx context.Context, id int64, now time.Time) error {
	return r.set(ctx, id, "last_activity", now)
}

// Deactivate hides a profile from matching, e.g. after the user blocked the
// bot. Profiles are never deleted.
func (r *UserRepository) Deactivate(ctx context.Context, id int64) error {
	return r.set(ctx, id, "active", false)
}

func (r *UserRepository) set(ctx context.Context, id int64, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports 0 when the value did not change
	var n int64
	if err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return nil
}

func (p *ProfilePatch) validate() error {
	if p.ID == 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidProfile)
	}
	if p.Name != nil {
		if err := validateText("name", *p.Name, MinNameLen, MaxNameLen); err != nil {
			return err
		}
	}
	if p.About != nil {
		if err := validateText("about", *p.About, 1, MaxAboutLen); err != nil {
			return err
		}
	}
	if p.Gender != nil && !p.Gender.Valid() {
		return fmt.Errorf("%w: %q", preference.ErrInvalidGender, *p.Gender)
	}
	if p.GenderFilter != nil {
		if _, err := preference.ParseGenderFilter(string(*p.GenderFilter)); err != nil {
			return err
		}
	}
	if p.Grade != nil && !preference.ValidGrade(*p.Grade) {
		return fmt.Errorf("%w: %d", preference.ErrInvalidGrade, *p.Grade)
	}
	for name, v := range map[string]*int16{"grade_up_filter": p.GradeUpFilter, "grade_down_filter": p.GradeDownFilter} {
		if v != nil && (*v < 0 || *v > MaxGradeDiff) {
			return fmt.Errorf("%w: %s must be within 0..%d", ErrInvalidProfile, name, MaxGradeDiff)
		}
	}
	for _, s := range []*preference.Subjects{p.Subjects, p.SubjectsFilter} {
		if s != nil && *s&^preference.AllSubjects != 0 {
			return fmt.Errorf("%w: %w: %#x", ErrInvalidProfile, preference.ErrInvalidSubjectBits, uint32(*s))
		}
	}
	if p.DatingPurpose != nil && *p.DatingPurpose&^preference.AllPurposes != 0 {
		return fmt.Errorf("%w: %w: %#x", ErrInvalidProfile, preference.ErrInvalidPurposeBits, uint16(*p.DatingPurpose))
	}
	if p.City != nil && !p.City.Valid() {
		return fmt.Errorf("%w: unknown location code %d", ErrInvalidProfile, int32(*p.City))
	}
	if p.City != nil && p.ClearCity {
		return fmt.Errorf("%w: city both set and cleared", ErrInvalidProfile)
	}
	if p.LocationFilter != nil && !p.LocationFilter.Valid() {
		return fmt.Errorf("%w: %q", preference.ErrInvalidLocationFilter, *p.LocationFilter)
	}
	return nil
}

func validateText(field, s string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < minLen || n > maxLen {
		return fmt.Errorf("%w: %s must be %d..%d characters", ErrInvalidProfile, field, minLen, maxLen)
	}
	if field == "name" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsPrint(r) }) >= 0 {
		return fmt.Errorf("%w: name has unprintable characters", ErrInvalidProfile)
	}
	return nil
}

// newUser builds a profile from a creation patch.
func (p *ProfilePatch) newUser(now time.Time) (*db.User, error) {
	var missing []string
	if p.Name == nil {
		missing = append(missing, "name")
	}
	if p.Gender == nil {
		missing = append(missing, "gender")
	}
	if p.About == nil {
		missing = append(missing, "about")
	}
	if p.Grade == nil {
		missing = append(missing, "grade")
	}
	if p.DatingPurpose == nil || p.DatingPurpose.Empty() {
		missing = append(missing, "dating_purpose")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteProfile, strings.Join(missing, ", "))
	}

	u := &db.User{
		ID:              p.ID,
		Active:          true,
		LastActivity:    now,
		GradeUpFilter:   defaultGradeFilter,
		GradeDownFilter: defaultGradeFilter,
		LocationFilter:  preference.SameCountry,
	}
	if err := p.apply(u, now); err != nil {
		return nil, err
	}
	if err := checkConsistent(u); err != nil {
		return nil, err
	}
	return u, nil
}

// apply copies the supplied fields onto u.
func (p *ProfilePatch) apply(u *db.User, now time.Time) error {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.GenderFilter != nil {
		u.GenderFilter = p.GenderFilter.Stored()
	}
	if p.About != nil {
		u.About = strings.TrimSpace(*p.About)
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
	if p.Grade != nil {
		year, err := preference.GradeToGraduationYear(*p.Grade, now)
		if err != nil {
			return err
		}
		u.GraduationYear = year
	}
	if p.GradeUpFilter != nil {
		u.GradeUpFilter = *p.GradeUpFilter
	}
	if p.GradeDownFilter != nil {
		u.GradeDownFilter = *p.GradeDownFilter
	}
	if p.Subjects != nil {
		u.Subjects = preference.EncodeSubjects(*p.Subjects)
	}
	if p.SubjectsFilter != nil {
		u.SubjectsFilter = preference.EncodeSubjects(*p.SubjectsFilter)
	}
	if p.DatingPurpose != nil {
		u.DatingPurpose = preference.EncodePurpose(*p.DatingPurpose)
	}
	if p.ClearCity {
		u.City = nil
		if p.LocationFilter == nil {
			u.LocationFilter = preference.SameCountry
		}
	}
	if p.City != nil {
		city := *p.City
		u.City = &city
	}
	if p.LocationFilter != nil {
		u.LocationFilter = *p.LocationFilter
	}
	return nil
}

func checkConsistent(u *db.User) error {
	if u.Active && u.DatingPurpose == 0 {
		return fmt.Errorf("%w: active profile needs a dating purpose", ErrIncompleteProfile)
	}
	if u.City == nil && u.LocationFilter.NeedsCity() {
		return fmt.Errorf("%w: %s needs a city", ErrInvalidProfile, u.LocationFilter)
	}
	return nil
}
