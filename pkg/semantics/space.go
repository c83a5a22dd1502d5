package semantics

// SpaceKind distinguishes the three space shapes of the data model.
type SpaceKind int

const (
	SpaceKindUser SpaceKind = iota
	SpaceKindAddress
	SpaceKindExternal
)

// Space is the universe from which values of a given "type" are drawn:
// a UserSpace, an AddressSpaceDecl, or an ExternalSpace.
type Space interface {
	spaceKind() SpaceKind
}

// AltKind enumerates the three forms a UserSpace alternative can take.
type AltKind int

const (
	AltVariant AltKind = iota
	AltSpaceRef
	AltComponent
)

// Alternative is one disjunct of a UserSpace: a variant descriptor, an
// inclusion of another space by name, or a raw component descriptor.
type Alternative struct {
	Kind      AltKind
	Variant   *VariantDescriptor
	SpaceRef  string
	Component *Component
}

func VariantAlt(desc *VariantDescriptor) Alternative {
	return Alternative{Kind: AltVariant, Variant: desc}
}

func SpaceRefAlt(name string) Alternative {
	return Alternative{Kind: AltSpaceRef, SpaceRef: name}
}

func ComponentAlt(c Component) Alternative {
	return Alternative{Kind: AltComponent, Component: &c}
}

// UserSpace is a space defined by a list of alternatives. TrustRecursion
// asserts the user's belief that the space is finite under abstraction
// even though its definition may be self-referential; mutually recursive
// user spaces must agree on this flag (checked at language construction).
type UserSpace struct {
	Alternatives   []Alternative
	TrustRecursion bool
}

func (UserSpace) spaceKind() SpaceKind { return SpaceKindUser }

// AddressSpaceDecl declares an address-space tag, and optionally the space
// that every value stored behind that tag must belong to (spec invariant:
// "Every value that appears as a store entry lies in the space declared by
// the address space's pointee, if declared."). Pointee is "" when
// undeclared.
type AddressSpaceDecl struct {
	Tag     string
	Pointee string
}

func (AddressSpaceDecl) spaceKind() SpaceKind { return SpaceKindAddress }

// ExternalSpace is a space of opaque, host-defined values: everything
// about membership, cardinality, and equality is delegated to callbacks
// supplied when the space is built.
type ExternalSpace struct {
	Name string

	// Member reports whether a bare (non-tagged) DPattern should be
	// admitted into this space, for external spaces that also accept
	// plain DPatterns (spec 4.1: "either d is a tagged external value of
	// that space, or the predicate accepts d").
	Member func(DPattern) bool

	// CardinalityFn reports how many concrete values a given external
	// value denotes. It is carried as descriptor data; nothing in this
	// package reads it.
	CardinalityFn func(DPattern) int

	// MaybeMultiple is true if CardinalityFn can ever return more than 1.
	MaybeMultiple bool

	// SpecialEqual, if set, overrides structural equality between two
	// ExternalValues of this space with a three-valued oracle.
	SpecialEqual func(a, b ExternalValue) Quality3
}

func (*ExternalSpace) spaceKind() SpaceKind { return SpaceKindExternal }

// ExternalValue is a DPattern tagged with the external space it belongs to
// plus an opaque host payload. Payload equality, absent a SpecialEqual
// oracle, falls back to Go's == (so the payload must itself be comparable,
// e.g. a pointer or a small value type).
type ExternalValue struct {
	SpaceName string
	Space     *ExternalSpace
	Payload   any
}

func (ExternalValue) dpattern() {}

func (e ExternalValue) String() string {
	if s, ok := e.Payload.(interface{ String() string }); ok {
		return "#<" + e.SpaceName + ":" + s.String() + ">"
	}
	return "#<" + e.SpaceName + ">"
}
