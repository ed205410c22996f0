package preference

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Subjects is a set of school subjects, one bit per subject.
type Subjects uint32

const (
	Art Subjects = 1 << iota
	Astronomy
	Biology
	Chemistry
	Chinese
	Ecology
	Economics
	English
	French
	Geography
	German
	History
	Informatics
	Italian
	Law
	Literature
	Math
	Physics
	Russian
	Safety
	Social
	Spanish
	Sport
	Technology

	AllSubjects = Technology<<1 - 1
)

var subjectNames = map[Subjects]string{
	Art:         "art",
	Astronomy:   "astronomy",
	Biology:     "biology",
	Chemistry:   "chemistry",
	Chinese:     "chinese",
	Ecology:     "ecology",
	Economics:   "economics",
	English:     "english",
	French:      "french",
	Geography:   "geography",
	German:      "german",
	History:     "history",
	Informatics: "informatics",
	Italian:     "italian",
	Law:         "law",
	Literature:  "literature",
	Math:        "math",
	Physics:     "physics",
	Russian:     "russian",
	Safety:      "safety",
	Social:      "social",
	Spanish:     "spanish",
	Sport:       "sport",
	Technology:  "technology",
}

// DecodeSubjects validates a stored bit pattern.
func DecodeSubjects(raw int32) (Subjects, error) {
	s := Subjects(uint32(raw))
	if s&^AllSubjects != 0 {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidSubjectBits, uint32(raw))
	}
	return s, nil
}

// EncodeSubjects returns the stored form of s.
func EncodeSubjects(s Subjects) int32 {
	return int32(s & AllSubjects)
}

// ParseSubject looks a single subject up by its name.
func ParseSubject(name string) (Subjects, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range subjectNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown subject %q", ErrInvalidSubjectBits, name)
}

func (s Subjects) Empty() bool { return s == 0 }

func (s Subjects) Has(o Subjects) bool { return s&o == o }

// Intersects reports whether the sets share at least one subject.
func (s Subjects) Intersects(o Subjects) bool { return s&o != 0 }

func (s Subjects) Len() int { return bits.OnesCount32(uint32(s)) }

// List returns the single-subject members of s in bit order.
func (s Subjects) List() []Subjects {
	out := make([]Subjects, 0, s.Len())
	for v := uint32(s & AllSubjects); v != 0; v &= v - 1 {
		out = append(out, Subjects(v&-v))
	}
	return out
}

// Names returns the member names sorted alphabetically.
func (s Subjects) Names() []string {
	names := make([]string, 0, s.Len())
	for _, one := range s.List() {
		names = append(names, subjectNames[one])
	}
	sort.Strings(names)
	return names
}

func (s Subjects) String() string {
	return strings.Join(s.Names(), ", ")
}
