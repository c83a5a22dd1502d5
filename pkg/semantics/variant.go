package semantics

import "strings"

// VariantDescriptor is a named, fixed-arity constructor within a space.
// The matcher, Equal and InVariant compare variants by descriptor pointer.
// NewLanguage does not intern descriptors: two distinct *VariantDescriptor
// values with the same name never match or equal each other, so a language
// shares one descriptor per variant name. NewLanguage does reject
// same-named variants of differing arity (spec invariant: "Variants with
// the same name have identical arity").
type VariantDescriptor struct {
	Name       string
	Components []Component
}

func (d *VariantDescriptor) Arity() int { return len(d.Components) }

// VariantValue is a variant value: a pointer to its descriptor plus a
// fixed-length, immutable sequence of component values.
type VariantValue struct {
	Desc     *VariantDescriptor
	Children []DPattern
}

func (VariantValue) dpattern() {}

// NewVariantValue builds a variant value, panicking if the number of
// children does not match the descriptor's arity. Callers that build
// variants from untrusted input (the parser, RHS instantiation) must check
// arity themselves and report a structural error instead of calling this
// constructor directly; see ParseTerm and Instantiate.
func NewVariantValue(desc *VariantDescriptor, children ...DPattern) VariantValue {
	if len(children) != desc.Arity() {
		panic("semantics: variant arity mismatch for " + desc.Name)
	}
	cs := make([]DPattern, len(children))
	copy(cs, children)
	return VariantValue{Desc: desc, Children: cs}
}

func (v VariantValue) String() string {
	if len(v.Children) == 0 {
		return "(" + v.Desc.Name + ")"
	}
	parts := make([]string, 0, len(v.Children)+1)
	parts = append(parts, v.Desc.Name)
	for _, c := range v.Children {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}
