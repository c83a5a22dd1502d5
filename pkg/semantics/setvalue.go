package semantics

import (
	"strings"

	goset "github.com/hashicorp/go-set/v3"
)

// SetValue is an immutable finite set of DPatterns, backing the Set-of
// component and the Empty-set/Set-Union/Set-Add*/In-Set expression forms.
// Membership needs a Store (elements may be, or may dereference through,
// abstracted addresses), so SetValue keeps a fast canonical-key index
// (hashicorp/go-set/v3, over each element's print form) plus a side table
// of representative elements for the linear-scan fallback, mirroring the
// two-tier lookup MapValue uses.
type SetValue struct {
	keys  *goset.Set[string]
	elems map[string]DPattern
}

func (SetValue) dpattern() {}

// NewEmptySet returns the empty set.
func NewEmptySet() SetValue {
	return SetValue{keys: goset.New[string](0), elems: map[string]DPattern{}}
}

// Size returns the number of elements in the set.
func (s SetValue) Size() int {
	if s.keys == nil {
		return 0
	}
	return s.keys.Size()
}

// Elements returns the set's elements in a deterministic (canonical-key
// sorted) order.
func (s SetValue) Elements() []DPattern {
	if s.keys == nil {
		return nil
	}
	ks := s.keys.Slice()
	sortStrings(ks)
	out := make([]DPattern, 0, len(ks))
	for _, k := range ks {
		out = append(out, s.elems[k])
	}
	return out
}

// Contains reports whether d is a member of s, falling back to a linear
// Equal scan when the canonical-key fast path misses.
func (s SetValue) Contains(st Store, d DPattern) bool {
	return setMemberQuality(st, s, d) == MustTrue
}

// Add returns a new set with d inserted, a no-op (returning s itself) if d
// is already a member.
func (s SetValue) Add(st Store, d DPattern) SetValue {
	if s.Contains(st, d) {
		return s
	}
	ck := canonicalKey(d)
	newKeys := emptyKeySet(s)
	newKeys.Insert(ck)
	newElems := make(map[string]DPattern, len(s.elems)+1)
	for k, v := range s.elems {
		newElems[k] = v
	}
	newElems[ck] = d
	return SetValue{keys: newKeys, elems: newElems}
}

// Union returns a new set containing every element of s and other.
func (s SetValue) Union(st Store, other SetValue) SetValue {
	result := s
	if result.keys == nil {
		result = NewEmptySet()
	}
	for _, d := range other.Elements() {
		result = result.Add(st, d)
	}
	return result
}

func emptyKeySet(s SetValue) *goset.Set[string] {
	if s.keys == nil {
		return goset.New[string](0)
	}
	return s.keys.Copy()
}

func (s SetValue) String() string {
	parts := make([]string, 0, s.Size())
	for _, e := range s.Elements() {
		parts = append(parts, e.String())
	}
	return "#{" + strings.Join(parts, ", ") + "}"
}

// setMemberQuality is the three-valued membership test used by
// setEqualQuality: MustTrue on an exact or confirmed-equal hit,
// MustFalse when no candidate even might be equal, May if some candidate
// comparison could only be resolved as May (an abstracted address).
func setMemberQuality(st Store, s SetValue, d DPattern) Quality3 {
	if s.keys == nil {
		return MustFalse
	}
	if s.keys.Contains(canonicalKey(d)) {
		return MustTrue
	}
	best := MustFalse
	for _, k := range s.keys.Slice() {
		q := equalQuality(st, s.elems[k], d)
		if q == MustTrue {
			return MustTrue
		}
		if q == May {
			best = May
		}
	}
	return best
}

// setEqualQuality compares two sets for structural equality: equal size,
// and every element of a has a structurally-equal element in b.
func setEqualQuality(st Store, a, b SetValue) Quality3 {
	if a.Size() != b.Size() {
		return MustFalse
	}
	result := MustTrue
	for _, ea := range a.Elements() {
		q := setMemberQuality(st, b, ea)
		result = conjQuality3(result, q)
		if result == MustFalse {
			return MustFalse
		}
	}
	return result
}
