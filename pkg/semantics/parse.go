package semantics

import (
	"github.com/go-viper/mapstructure/v2"
)

// ParseTerm decodes raw — a generic tagged-tree value, typically freshly
// unmarshaled from JSON or a similar self-describing format by a caller
// outside this package's scope (spec 1: surface parsing is an external
// collaborator) — into a DPattern expected to lie in spaceName. It is the
// entry point spec 6 describes: "(head child …)" variant nodes, dictionary
// and set literals, and serialized egal addresses.
func ParseTerm(lang *Language, spaceName string, raw any) (DPattern, error) {
	return parseInSpace(lang, spaceName, raw)
}

func decodeWire(raw any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

type variantWire struct {
	Head     string `mapstructure:"head"`
	Children []any  `mapstructure:"children"`
}

type addressWire struct {
	Address struct {
		Tag string `mapstructure:"tag"`
		ID  uint64 `mapstructure:"id"`
	} `mapstructure:"address"`
}

type mapWire struct {
	Map  []any  `mapstructure:"map"`
	Kind string `mapstructure:"kind"`
}

type setWire struct {
	Set []any `mapstructure:"set"`
}

type symbolWire struct {
	Symbol string `mapstructure:"symbol"`
}

type stringWire struct {
	Str string `mapstructure:"string"`
}

type charWire struct {
	Char string `mapstructure:"char"`
}

// parseInSpace parses raw as a member of spaceName: a variant node is
// resolved against spaceName's own alternatives (directly or through
// included spaces), producing the "unexpected space" / "unknown variant
// head" errors spec 6 calls for; every other wire shape (atom, address,
// map, set) is self-describing and parses the same regardless of the
// expected space.
func parseInSpace(lang *Language, spaceName string, raw any) (DPattern, error) {
	if m, ok := raw.(map[string]any); ok {
		if _, ok := m["head"]; ok {
			return parseVariant(lang, spaceName, m)
		}
	}
	return parseAny(lang, raw)
}

func parseVariant(lang *Language, spaceName string, m map[string]any) (DPattern, error) {
	var w variantWire
	if err := decodeWire(m, &w); err != nil {
		return nil, newError(StageParse, nil, "malformed variant node: %v", err)
	}
	desc := findVariantInSpace(lang.Spaces, spaceName, w.Head, map[string]bool{})
	if desc == nil {
		if findVariantAnywhere(lang.Spaces, w.Head) != nil {
			return nil, newError(StageParse, nil, "variant %q is not reachable from space %q", w.Head, spaceName)
		}
		return nil, newError(StageParse, nil, "unknown variant head %q", w.Head)
	}
	if len(w.Children) != desc.Arity() {
		return nil, newError(StageParse, nil, "variant %q: arity mismatch, expected %d children, got %d", w.Head, desc.Arity(), len(w.Children))
	}
	children := make([]DPattern, len(w.Children))
	for i, c := range w.Children {
		v, err := parseComponent(lang, &desc.Components[i], c)
		if err != nil {
			return nil, err
		}
		children[i] = v
	}
	return NewVariantValue(desc, children...), nil
}

func findVariantInSpace(spaces map[string]Space, spaceName, head string, visited map[string]bool) *VariantDescriptor {
	if visited[spaceName] {
		return nil
	}
	visited[spaceName] = true
	sp, ok := spaces[spaceName]
	if !ok {
		return nil
	}
	us, ok := sp.(UserSpace)
	if !ok {
		return nil
	}
	for _, alt := range us.Alternatives {
		switch alt.Kind {
		case AltVariant:
			if alt.Variant.Name == head {
				return alt.Variant
			}
		case AltSpaceRef:
			if d := findVariantInSpace(spaces, alt.SpaceRef, head, visited); d != nil {
				return d
			}
		}
	}
	return nil
}

func findVariantAnywhere(spaces map[string]Space, head string) *VariantDescriptor {
	for _, sp := range spaces {
		us, ok := sp.(UserSpace)
		if !ok {
			continue
		}
		for _, alt := range us.Alternatives {
			if alt.Kind == AltVariant && alt.Variant.Name == head {
				return alt.Variant
			}
		}
	}
	return nil
}

// parseComponent parses raw according to comp's shape, recursing into the
// expected space/domain/range/elem where comp names one, and erroring with
// a "type mismatch against a component" message when raw's wire shape
// cannot possibly satisfy comp.Kind.
func parseComponent(lang *Language, comp *Component, raw any) (DPattern, error) {
	switch comp.Kind {
	case CompSpaceRef:
		return parseInSpace(lang, comp.SpaceName, raw)

	case CompAddressSpace:
		addr, err := parseAddress(raw)
		if err != nil {
			return nil, err
		}
		sp, ok := lang.Spaces[comp.SpaceName]
		if !ok {
			return nil, newError(StageParse, nil, "address space %q is undefined", comp.SpaceName)
		}
		decl, ok := sp.(AddressSpaceDecl)
		if !ok {
			return nil, newError(StageParse, nil, "space %q is not an address space", comp.SpaceName)
		}
		if addr.Tag != decl.Tag {
			return nil, newError(StageParse, nil, "type mismatch: address tag %q does not match address space %q's tag %q", addr.Tag, comp.SpaceName, decl.Tag)
		}
		return addr, nil

	case CompMap, CompQualifiedMap:
		return parseMap(lang, comp, raw)

	case CompSetOf:
		return parseSet(lang, comp.Elem, raw)

	case CompAnything:
		return parseAny(lang, raw)

	default:
		return nil, newError(StageParse, nil, "unrecognized component kind in parse")
	}
}

func parseAddress(raw any) (Address, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Address{}, newError(StageParse, nil, "type mismatch: expected a serialized address")
	}
	var w addressWire
	if err := decodeWire(m, &w); err != nil {
		return Address{}, newError(StageParse, nil, "malformed address: %v", err)
	}
	return Address{Kind: AddrEgal, Tag: w.Address.Tag, ID: w.Address.ID}, nil
}

func parseMap(lang *Language, comp *Component, raw any) (DPattern, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, newError(StageParse, nil, "type mismatch: expected a map literal")
	}
	var w mapWire
	if err := decodeWire(m, &w); err != nil {
		return nil, newError(StageParse, nil, "malformed map literal: %v", err)
	}
	kind := mapKindForPrecision(comp)
	result := NewEmptyMap(kind)
	for _, item := range w.Map {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, newError(StageParse, nil, "malformed map entry: expected a 2-element [key, value] pair")
		}
		var key, value DPattern
		var err error
		if comp.Domain != nil {
			key, err = parseComponent(lang, comp.Domain, pair[0])
		} else {
			key, err = parseAny(lang, pair[0])
		}
		if err != nil {
			return nil, err
		}
		if comp.Range != nil {
			value, err = parseComponent(lang, comp.Range, pair[1])
		} else {
			value, err = parseAny(lang, pair[1])
		}
		if err != nil {
			return nil, err
		}
		result = result.Extend(NewStore(), key, value)
	}
	return result, nil
}

func mapKindForPrecision(comp *Component) MapKind {
	if comp.Kind != CompQualifiedMap {
		return MapDiscrete
	}
	switch comp.DomainPrecision {
	case PrecisionConcrete:
		return MapDiscrete
	default:
		return MapAbstract
	}
}

func parseSet(lang *Language, elem *Component, raw any) (DPattern, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, newError(StageParse, nil, "type mismatch: expected a set literal")
	}
	var w setWire
	if err := decodeWire(m, &w); err != nil {
		return nil, newError(StageParse, nil, "malformed set literal: %v", err)
	}
	result := NewEmptySet()
	for _, item := range w.Set {
		var v DPattern
		var err error
		if elem != nil {
			v, err = parseComponent(lang, elem, item)
		} else {
			v, err = parseAny(lang, item)
		}
		if err != nil {
			return nil, err
		}
		result = result.Add(NewStore(), v)
	}
	return result, nil
}

// parseAny parses raw by wire shape alone, with no expected space to
// resolve a variant head against (CompAnything components, and map/set
// entries whose component declares no domain/range/elem type).
func parseAny(lang *Language, raw any) (DPattern, error) {
	switch v := raw.(type) {
	case float64:
		return NewNumber(v), nil
	case int:
		return NewNumber(float64(v)), nil
	case bool:
		return NewBoolean(v), nil
	case map[string]any:
		switch {
		case has(v, "symbol"):
			var w symbolWire
			if err := decodeWire(v, &w); err != nil {
				return nil, newError(StageParse, nil, "malformed symbol: %v", err)
			}
			return NewSymbol(w.Symbol), nil
		case has(v, "string"):
			var w stringWire
			if err := decodeWire(v, &w); err != nil {
				return nil, newError(StageParse, nil, "malformed string: %v", err)
			}
			return NewString(w.Str), nil
		case has(v, "char"):
			var w charWire
			if err := decodeWire(v, &w); err != nil {
				return nil, newError(StageParse, nil, "malformed character: %v", err)
			}
			if w.Char == "" {
				return nil, newError(StageParse, nil, "empty character literal")
			}
			return NewCharacter([]rune(w.Char)[0]), nil
		case has(v, "address"):
			return parseAddress(v)
		case has(v, "map"):
			anyComp := AnythingComponent()
			return parseMap(lang, &anyComp, v)
		case has(v, "set"):
			return parseSet(lang, nil, v)
		case has(v, "head"):
			desc := findVariantAnywhereByWire(lang, v)
			if desc == nil {
				return nil, newError(StageParse, nil, "unknown variant head in untyped position")
			}
			var w variantWire
			if err := decodeWire(v, &w); err != nil {
				return nil, err
			}
			if len(w.Children) != desc.Arity() {
				return nil, newError(StageParse, nil, "variant %q: arity mismatch, expected %d children, got %d", w.Head, desc.Arity(), len(w.Children))
			}
			children := make([]DPattern, len(w.Children))
			for i, c := range w.Children {
				cv, err := parseComponent(lang, &desc.Components[i], c)
				if err != nil {
					return nil, err
				}
				children[i] = cv
			}
			return NewVariantValue(desc, children...), nil
		default:
			return nil, newError(StageParse, nil, "unrecognized tagged-tree node shape")
		}
	default:
		return nil, newError(StageParse, nil, "unparseable value of type %T", raw)
	}
}

func findVariantAnywhereByWire(lang *Language, m map[string]any) *VariantDescriptor {
	head, _ := m["head"].(string)
	if head == "" {
		return nil
	}
	return findVariantAnywhere(lang.Spaces, head)
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
