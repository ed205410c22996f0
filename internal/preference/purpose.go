package preference

import (
	"fmt"
	"strings"
)

// DatingPurpose is the set of reasons a user is looking for a partner.
type DatingPurpose uint16

const (
	Friendship DatingPurpose = 1 << iota
	Studies
	Relationship

	AllPurposes = Friendship | Studies | Relationship
)

var purposeNames = []struct {
	p    DatingPurpose
	name string
}{
	{Friendship, "friendship"},
	{Studies, "studies"},
	{Relationship, "relationship"},
}

// DecodePurpose validates a stored bit pattern. An empty set is valid here;
// completed profiles are checked with RequireCompletePurpose.
func DecodePurpose(raw int16) (DatingPurpose, error) {
	p := DatingPurpose(uint16(raw))
	if p&^AllPurposes != 0 {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidPurposeBits, uint16(raw))
	}
	return p, nil
}

func EncodePurpose(p DatingPurpose) int16 {
	return int16(p & AllPurposes)
}

// RequireCompletePurpose decodes raw and rejects the empty set.
func RequireCompletePurpose(raw int16) (DatingPurpose, error) {
	p, err := DecodePurpose(raw)
	if err != nil {
		return 0, err
	}
	if p.Empty() {
		return 0, fmt.Errorf("%w: empty set", ErrInvalidPurposeBits)
	}
	return p, nil
}

func ParsePurpose(name string) (DatingPurpose, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range purposeNames {
		if e.name == name {
			return e.p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown purpose %q", ErrInvalidPurposeBits, name)
}

func (p DatingPurpose) Empty() bool { return p == 0 }

func (p DatingPurpose) Has(o DatingPurpose) bool { return p&o == o }

func (p DatingPurpose) Intersects(o DatingPurpose) bool { return p&o != 0 }

// Names keeps declaration order.
func (p DatingPurpose) Names() []string {
	var names []string
	for _, e := range purposeNames {
		if p.Has(e.p) {
			names = append(names, e.name)
		}
	}
	return names
}

func (p DatingPurpose) String() string {
	return strings.Join(p.Names(), ", ")
}
