package semantics

import (
	"sort"
	"strconv"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Store is an address-space-tag-keyed mapping from address identifier to
// DPattern: map-of-maps, exactly as spec 6 describes state. Both levels
// are immutable radix trees, so every Extend returns a new Store value
// without mutating any tree a caller might still be holding (spec 5:
// "The store itself is passed by value / persistent... at the map
// level").
type Store struct {
	partitions *iradix.Tree[*iradix.Tree[DPattern]]
}

// NewStore returns the empty store.
func NewStore() Store {
	return Store{partitions: iradix.New[*iradix.Tree[DPattern]]()}
}

func idKey(id uint64) []byte {
	return []byte(strconv.FormatUint(id, 36))
}

func (s Store) partition(tag string) *iradix.Tree[DPattern] {
	if s.partitions == nil {
		return nil
	}
	if t, ok := s.partitions.Get([]byte(tag)); ok {
		return t
	}
	return nil
}

// approxValue is the internal representation of a weakly-updated (joined)
// store entry: the set of values written to an address since its
// cardinality became omega. Deref and DerefCandidates unwrap it; a weak
// MapValue.ExtendWithPolicy also stores one as a map value, and
// MapValue.Lookup returns it as is.
type approxValue struct {
	Possibilities SetValue
}

func (approxValue) dpattern() {}
func (a approxValue) String() string {
	return "#<joined:" + a.Possibilities.String() + ">"
}

// Lookup returns the raw stored representation at addr (which may be an
// internal approxValue for a weakly-updated address), or ok=false if addr
// has never been written.
func (s Store) Lookup(addr Address) (DPattern, bool) {
	pt := s.partition(addr.Tag)
	if pt == nil {
		return nil, false
	}
	return pt.Get(idKey(addr.ID))
}

// Deref returns addr's logical value for equality purposes and a Quality:
// QualityMust with the single written value for a strongly-tracked
// address, or QualityMay with the joined set of possibilities for a
// weakly-updated one. ok is false if addr is unmapped.
func (s Store) Deref(addr Address) (DPattern, Quality, bool) {
	raw, ok := s.Lookup(addr)
	if !ok {
		return nil, QualityMust, false
	}
	if av, isApprox := raw.(approxValue); isApprox {
		return av.Possibilities, QualityMay, true
	}
	return raw, QualityMust, true
}

// DerefCandidates returns every value addr might currently denote: a
// singleton for a strongly-tracked address, or the joined possibility set
// (each tagged May) for a weakly-updated one. This is what the matcher and
// Store-lookup expression iterate over to realize the non-determinism spec
// 4.2 describes for matching against an omega-cardinality address.
func (s Store) DerefCandidates(addr Address) ([]DPattern, Quality, bool) {
	raw, ok := s.Lookup(addr)
	if !ok {
		return nil, QualityMust, false
	}
	if av, isApprox := raw.(approxValue); isApprox {
		return av.Possibilities.Elements(), QualityMay, true
	}
	return []DPattern{raw}, QualityMust, true
}

// Extend returns a new Store writing v at addr. strong selects an
// overwrite (sound when the address's cardinality is 1, or when the
// caller's trust-strong? flag asserts logical uniqueness); otherwise the
// write is weak and joins v with whatever was already there, represented
// internally as the growing set of possibilities.
func (s Store) Extend(addr Address, v DPattern, strong bool) Store {
	var stored DPattern
	if strong {
		stored = v
	} else {
		prior, ok := s.Lookup(addr)
		stored = joinApprox(s, prior, ok, v)
	}

	pt := s.partition(addr.Tag)
	if pt == nil {
		pt = iradix.New[DPattern]()
	}
	npt, _, _ := pt.Insert(idKey(addr.ID), stored)

	parts := s.partitions
	if parts == nil {
		parts = iradix.New[*iradix.Tree[DPattern]]()
	}
	nparts, _, _ := parts.Insert([]byte(addr.Tag), npt)
	return Store{partitions: nparts}
}

func isApprox(d DPattern) bool {
	_, ok := d.(approxValue)
	return ok
}

// joinApprox folds v into whatever was previously stored at a weakly-updated
// handle (hadPrior/prior describing what was there, which may itself already
// be an approxValue from an earlier weak write), returning the new joined
// approxValue. Shared by Store.Extend's weak path and MapValue's
// ExtendWithPolicy weak path, since both face the same "this key or address
// may no longer uniquely identify one value" problem once abstraction joins
// writes together.
func joinApprox(st Store, prior DPattern, hadPrior bool, v DPattern) approxValue {
	var joined SetValue
	switch {
	case !hadPrior:
		joined = NewEmptySet().Add(st, v)
	case isApprox(prior):
		joined = prior.(approxValue).Possibilities.Add(st, v)
	default:
		joined = NewEmptySet().Add(st, prior).Add(st, v)
	}
	return approxValue{Possibilities: joined}
}

// Tags returns every address-space tag with at least one stored entry, in
// sorted order, for deterministic debug printing.
func (s Store) Tags() []string {
	if s.partitions == nil {
		return nil
	}
	var tags []string
	iter := s.partitions.Iterator()
	for {
		k, _, ok := iter.Next()
		if !ok {
			break
		}
		tags = append(tags, string(k))
	}
	sort.Strings(tags)
	return tags
}

func (s Store) String() string {
	var b strings.Builder
	b.WriteString("store{")
	for i, tag := range s.Tags() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tag)
		b.WriteString(": {")
		pt := s.partition(tag)
		iter := pt.Iterator()
		first := true
		for {
			k, v, ok := iter.Next()
			if !ok {
				break
			}
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(string(k))
			b.WriteString("=")
			b.WriteString(v.String())
		}
		b.WriteString("}")
	}
	b.WriteString("}")
	return b.String()
}
