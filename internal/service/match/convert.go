package match

import (
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bvilove/datebot/internal/db"
	"github.com/bvilove/datebot/internal/geo"
	"github.com/bvilove/datebot/internal/preference"
	"github.com/bvilove/datebot/internal/repository"
)

// datingFields renders a dating as a JSON-like map.
func datingFields(d *db.Dating) map[string]any {
	state := StateOf(d)
	m := map[string]any{
		"id":                 d.ID,
		"initiator_id":       d.InitiatorID,
		"partner_id":         d.PartnerID,
		"time":               d.Time.UTC().Format(time.RFC3339Nano),
		"state":              string(state),
		"terminal":           state.Terminal(),
		"initiator_reaction": nil,
		"partner_reaction":   nil,
	}
	if d.InitiatorMsgID != nil {
		m["initiator_msg_id"] = *d.InitiatorMsgID
	}
	if d.InitiatorReaction != nil {
		m["initiator_reaction"] = *d.InitiatorReaction
	}
	if d.PartnerReaction != nil {
		m["partner_reaction"] = *d.PartnerReaction
	}
	return m
}

// profileFields renders a profile with decoded preferences. Corrupt stored
// bits fail instead of being masked.
func profileFields(u *db.User, images []db.Image, cities *geo.Directory, now time.Time) (map[string]any, error) {
	subjects, err := preference.DecodeSubjects(u.Subjects)
	if err != nil {
		return nil, err
	}
	subjectsFilter, err := preference.DecodeSubjects(u.SubjectsFilter)
	if err != nil {
		return nil, err
	}
	purpose, err := preference.DecodePurpose(u.DatingPurpose)
	if err != nil {
		return nil, err
	}

	m := map[string]any{
		"id":                u.ID,
		"name":              u.Name,
		"gender":            string(u.Gender),
		"gender_filter":     string(preference.GenderFilterOf(u.GenderFilter)),
		"about":             u.About,
		"active":            u.Active,
		"grade":             preference.GraduationYearToGrade(u.GraduationYear, now),
		"graduation_year":   int64(u.GraduationYear),
		"grade_up_filter":   int64(u.GradeUpFilter),
		"grade_down_filter": int64(u.GradeDownFilter),
		"subjects":          stringsToAny(subjects.Names()),
		"subjects_filter":   stringsToAny(subjectsFilter.Names()),
		"dating_purpose":    stringsToAny(purpose.Names()),
		"location_filter":   string(u.LocationFilter),
		"city":              nil,
		"images": lo.Map(images, func(img db.Image, _ int) any {
			return map[string]any{"telegram_id": img.TelegramID, "kind": string(img.Kind)}
		}),
	}
	if u.City != nil {
		m["city_code"] = int64(*u.City)
	}
	if cities != nil && u.City != nil {
		// codes missing from the directory render as null
		if city, err := cities.Format(u.City); err == nil {
			m["city"] = city
		}
		if county, ok := cities.CountyName(*u.City); ok {
			m["county"] = county
		}
		if region, ok := cities.SubjectName(*u.City); ok {
			m["subject_region"] = region
		}
	}
	return m, nil
}

func stringsToAny(ss []string) []any {
	return lo.Map(ss, func(s string, _ int) any { return s })
}

// --- request parsing ---

func field(s *structpb.Struct, name string) (*structpb.Value, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func intField(s *structpb.Struct, name string) (int64, bool, error) {
	v, ok := field(s, name)
	if !ok {
		return 0, false, nil
	}
	nv, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, true, fmt.Errorf("%s must be a number", name)
	}
	f := nv.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, true, fmt.Errorf("%s must be an integer", name)
	}
	return int64(f), true, nil
}

func requireInt(s *structpb.Struct, name string) (int64, error) {
	n, ok, err := intField(s, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	return n, nil
}

func boolField(s *structpb.Struct, name string) (bool, bool, error) {
	v, ok := field(s, name)
	if !ok {
		return false, false, nil
	}
	bv, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, true, fmt.Errorf("%s must be a boolean", name)
	}
	return bv.BoolValue, true, nil
}

func requireBool(s *structpb.Struct, name string) (bool, error) {
	b, ok, err := boolField(s, name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%s is required", name)
	}
	return b, nil
}

func stringField(s *structpb.Struct, name string) (string, bool, error) {
	v, ok := field(s, name)
	if !ok {
		return "", false, nil
	}
	sv, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", true, fmt.Errorf("%s must be a string", name)
	}
	return sv.StringValue, true, nil
}

func stringListField(s *structpb.Struct, name string) ([]string, bool, error) {
	v, ok := field(s, name)
	if !ok {
		return nil, false, nil
	}
	lv, isList := v.GetKind().(*structpb.Value_ListValue)
	if !isList {
		return nil, true, fmt.Errorf("%s must be a list", name)
	}
	out := make([]string, 0, len(lv.ListValue.GetValues()))
	for _, item := range lv.ListValue.GetValues() {
		sv, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, true, fmt.Errorf("%s must hold strings", name)
		}
		out = append(out, sv.StringValue)
	}
	return out, true, nil
}

func parseSubjects(names []string) (preference.Subjects, error) {
	var set preference.Subjects
	for _, n := range names {
		s, err := preference.ParseSubject(n)
		if err != nil {
			return 0, err
		}
		set |= s
	}
	return set, nil
}

func parsePurposes(names []string) (preference.DatingPurpose, error) {
	var set preference.DatingPurpose
	for _, n := range names {
		p, err := preference.ParsePurpose(n)
		if err != nil {
			return 0, err
		}
		set |= p
	}
	return set, nil
}

// profilePatch decodes an UpsertProfile request. A "city" string is
// resolved through resolver; "city_code" sets the packed code directly.
func profilePatch(s *structpb.Struct, resolver preference.CityResolver) (repository.ProfilePatch, error) {
	var p repository.ProfilePatch

	id, err := requireInt(s, "id")
	if err != nil {
		return p, err
	}
	p.ID = id

	for name, dst := range map[string]**string{"name": &p.Name, "about": &p.About} {
		v, ok, err := stringField(s, name)
		if err != nil {
			return p, err
		}
		if ok {
			*dst = lo.ToPtr(v)
		}
	}

	if v, ok, err := stringField(s, "gender"); err != nil {
		return p, err
	} else if ok {
		g, err := preference.ParseGender(v)
		if err != nil {
			return p, err
		}
		p.Gender = &g
	}
	if v, ok, err := stringField(s, "gender_filter"); err != nil {
		return p, err
	} else if ok {
		f, err := preference.ParseGenderFilter(v)
		if err != nil {
			return p, err
		}
		p.GenderFilter = &f
	}
	if v, ok, err := boolField(s, "active"); err != nil {
		return p, err
	} else if ok {
		p.Active = &v
	}
	if v, ok, err := intField(s, "grade"); err != nil {
		return p, err
	} else if ok {
		p.Grade = lo.ToPtr(int(v))
	}
	for name, dst := range map[string]**int16{"grade_up_filter": &p.GradeUpFilter, "grade_down_filter": &p.GradeDownFilter} {
		v, ok, err := intField(s, name)
		if err != nil {
			return p, err
		}
		if ok {
			if v < math.MinInt16 || v > math.MaxInt16 {
				return p, fmt.Errorf("%s out of range", name)
			}
			*dst = lo.ToPtr(int16(v))
		}
	}
	for name, dst := range map[string]**preference.Subjects{"subjects": &p.Subjects, "subjects_filter": &p.SubjectsFilter} {
		names, ok, err := stringListField(s, name)
		if err != nil {
			return p, err
		}
		if ok {
			set, err := parseSubjects(names)
			if err != nil {
				return p, err
			}
			*dst = &set
		}
	}
	if names, ok, err := stringListField(s, "dating_purpose"); err != nil {
		return p, err
	} else if ok {
		set, err := parsePurposes(names)
		if err != nil {
			return p, err
		}
		p.DatingPurpose = &set
	}

	if v, ok, err := stringField(s, "city"); err != nil {
		return p, err
	} else if ok {
		code, found := preference.ResolveCityText(resolver, v)
		if !found {
			return p, fmt.Errorf("unknown city %q", v)
		}
		p.City = &code
	}
	if v, ok, err := intField(s, "city_code"); err != nil {
		return p, err
	} else if ok {
		if v < 0 || v > math.MaxInt32 {
			return p, fmt.Errorf("city_code out of range")
		}
		p.City = lo.ToPtr(preference.LocationCode(v))
	}
	if v, ok, err := boolField(s, "clear_city"); err != nil {
		return p, err
	} else if ok {
		p.ClearCity = v
	}
	if v, ok, err := stringField(s, "location_filter"); err != nil {
		return p, err
	} else if ok {
		f, err := preference.ParseLocationFilter(v)
		if err != nil {
			return p, err
		}
		p.LocationFilter = &f
	}
	return p, nil
}
