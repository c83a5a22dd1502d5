package semantics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DPattern is a fully-evaluated term value: a variant, a map, a set, an
// address, an atom, or an external value. Every concrete type in this
// package that can flow through the store or an environment implements
// DPattern. The marker method keeps the interface closed to this package's
// own value kinds.
type DPattern interface {
	dpattern()
	// String returns the value's canonical tagged-tree print form. Two
	// DPatterns with the same print form are structurally identical modulo
	// address dereferencing; see Equal.
	String() string
}

// AtomKind distinguishes the five atom varieties named in the data model:
// numbers, booleans, symbols, characters, and strings.
type AtomKind int

const (
	AtomNumber AtomKind = iota
	AtomBoolean
	AtomSymbol
	AtomCharacter
	AtomString
)

func (k AtomKind) String() string {
	switch k {
	case AtomNumber:
		return "number"
	case AtomBoolean:
		return "boolean"
	case AtomSymbol:
		return "symbol"
	case AtomCharacter:
		return "character"
	case AtomString:
		return "string"
	default:
		return "unknown-atom"
	}
}

// Atom is an immutable, structurally-equal scalar value.
type Atom struct {
	Kind AtomKind
	Num  float64
	Bool bool
	Sym  string // AtomSymbol
	Char rune   // AtomCharacter
	Str  string // AtomString
}

func (Atom) dpattern() {}

func NewNumber(n float64) Atom   { return Atom{Kind: AtomNumber, Num: n} }
func NewBoolean(b bool) Atom     { return Atom{Kind: AtomBoolean, Bool: b} }
func NewSymbol(s string) Atom    { return Atom{Kind: AtomSymbol, Sym: s} }
func NewCharacter(c rune) Atom   { return Atom{Kind: AtomCharacter, Char: c} }
func NewString(s string) Atom    { return Atom{Kind: AtomString, Str: s} }

// True and False are the canonical boolean atoms used by the expression
// evaluator for guard and predicate results.
var (
	True  = NewBoolean(true)
	False = NewBoolean(false)
)

func (a Atom) String() string {
	switch a.Kind {
	case AtomNumber:
		return strconv.FormatFloat(a.Num, 'g', -1, 64)
	case AtomBoolean:
		if a.Bool {
			return "#t"
		}
		return "#f"
	case AtomSymbol:
		return a.Sym
	case AtomCharacter:
		return "#\\" + string(a.Char)
	case AtomString:
		return strconv.Quote(a.Str)
	default:
		return "#<bad-atom>"
	}
}

// Truthy reports whether a value counts as true for If/When guards: every
// value is truthy except the boolean atom #f, matching the Racket-derived
// convention the source language uses for guards.
func Truthy(d DPattern) bool {
	if a, ok := d.(Atom); ok && a.Kind == AtomBoolean {
		return a.Bool
	}
	return true
}

// canonicalKey returns a fast-path lookup key for a DPattern used to index
// map and set entries. It is exact for every DPattern kind except
// structural addresses, whose dereferenced contents can make two
// differently-identified addresses structurally equal; callers that care
// about that case fall back to a linear Equal scan keyed off this same
// string (see MapValue.Lookup and SetValue.Contains).
func canonicalKey(d DPattern) string {
	return d.String()
}

// Equal reports whether a and b may be structurally equal DPatterns under
// the store st: it is false only when equalQuality answers MustFalse, so a
// May answer counts as equal. Equality dereferences structural addresses (so two distinct
// structural addresses holding equal values are equal) and compares egal
// addresses purely by identity (space tag and identifier), per the address
// kinds in the data model.
func Equal(st Store, a, b DPattern) bool {
	q := equalQuality(st, a, b)
	return q != MustFalse
}

// equalQuality is the internal three-valued equality used by the abstract
// matcher: MustTrue/MustFalse settle the question outright, May means the
// answer depends on an abstracted value (an omega-cardinality address or an
// external value whose special-equality oracle declined to answer).
func equalQuality(st Store, a, b DPattern) Quality3 {
	// A joined (approxValue) value stands in for an unresolved ambiguity, so
	// any comparison against it is at best May — it might equal the other
	// side if one of its possibilities does, but it can never be a Must.
	if av, ok := a.(approxValue); ok {
		return combineQuality3(QualityMay, setMemberQuality(st, av.Possibilities, b))
	}
	if bv, ok := b.(approxValue); ok {
		return combineQuality3(QualityMay, setMemberQuality(st, bv.Possibilities, a))
	}
	switch av := a.(type) {
	case Address:
		if av.Kind == AddrStructural {
			if bv, ok := b.(Address); ok && bv.Kind == AddrStructural {
				return structuralAddrEqual(st, av, bv)
			}
			deref, q, ok := st.Deref(av)
			if !ok {
				return MustFalse
			}
			inner := equalQuality(st, deref, b)
			return combineQuality3(q, inner)
		}
		if bv, ok := b.(Address); ok {
			if bv.Kind == AddrEgal {
				if av.Tag == bv.Tag && av.ID == bv.ID {
					return MustTrue
				}
				return MustFalse
			}
		}
		return MustFalse
	case VariantValue:
		bv, ok := b.(VariantValue)
		if !ok || av.Desc != bv.Desc {
			return MustFalse
		}
		result := MustTrue
		for i := range av.Children {
			result = conjQuality3(result, equalQuality(st, av.Children[i], bv.Children[i]))
			if result == MustFalse {
				return MustFalse
			}
		}
		return result
	case MapValue:
		bv, ok := b.(MapValue)
		if !ok {
			return MustFalse
		}
		return mapEqualQuality(st, av, bv)
	case SetValue:
		bv, ok := b.(SetValue)
		if !ok {
			return MustFalse
		}
		return setEqualQuality(st, av, bv)
	case ExternalValue:
		bv, ok := b.(ExternalValue)
		if !ok || av.SpaceName != bv.SpaceName {
			return MustFalse
		}
		if av.Space != nil && av.Space.SpecialEqual != nil {
			return av.Space.SpecialEqual(av, bv)
		}
		if av.Payload == bv.Payload {
			return MustTrue
		}
		return MustFalse
	case Atom:
		bv, ok := b.(Atom)
		if !ok {
			return MustFalse
		}
		if av == bv {
			return MustTrue
		}
		return MustFalse
	default:
		return MustFalse
	}
}

func structuralAddrEqual(st Store, a, b Address) Quality3 {
	if a.Tag == b.Tag && a.ID == b.ID {
		return MustTrue
	}
	da, qa, oka := st.Deref(a)
	db, qb, okb := st.Deref(b)
	if !oka || !okb {
		return MustFalse
	}
	derefQual := QualityMust
	if qa == QualityMay || qb == QualityMay {
		derefQual = QualityMay
	}
	return combineQuality3(derefQual, equalQuality(st, da, db))
}

// sortedKeys returns m's keys in sorted order. Nothing in this package
// calls it.
func sortedKeys(m map[string]DPattern) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// sortStrings returns ss sorted in place, for deterministic error messages
// and debug output built from map keys.
func sortStrings(ss []string) []string {
	sort.Strings(ss)
	return ss
}

func joinStrings(items []string, sep string) string {
	return strings.Join(items, sep)
}

func mustFmtUnsupported(what string) string {
	return fmt.Sprintf("#<unsupported:%s>", what)
}
