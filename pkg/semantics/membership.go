package semantics

// InSpace, InVariant, and InComponent form the mutually recursive
// membership predicate family of spec 4.1. Membership is purely
// structural: it never consults the store (address values are admitted by
// tag alone, not by dereferencing) and never binds anything.

// InSpace reports whether d belongs to the space named spaceName in lang.
// An undefined space name is a hard (structural) error, per spec 4.1.
func InSpace(lang *Language, spaceName string, d DPattern) (bool, error) {
	sp, ok := lang.Spaces[spaceName]
	if !ok {
		return false, newError(StageInSpace, d, "undefined space %q", spaceName)
	}
	switch s := sp.(type) {
	case UserSpace:
		var firstErr error
		for _, alt := range s.Alternatives {
			var ok bool
			var err error
			switch alt.Kind {
			case AltVariant:
				ok, err = InVariant(lang, alt.Variant, d)
			case AltSpaceRef:
				ok, err = InSpace(lang, alt.SpaceRef, d)
			case AltComponent:
				ok, err = InComponent(lang, alt.Component, d)
			}
			if ok {
				return true, nil
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return false, firstErr
	case AddressSpaceDecl:
		addr, ok := d.(Address)
		return ok && addr.Tag == s.Tag, nil
	case *ExternalSpace:
		if ev, ok := d.(ExternalValue); ok && ev.SpaceName == spaceName {
			return true, nil
		}
		if s.Member != nil {
			return s.Member(d), nil
		}
		return false, nil
	default:
		return false, newError(StageInSpace, d, "space %q has unrecognized implementation", spaceName)
	}
}

// InVariant reports whether d is a variant value built from desc whose
// children all satisfy their declared component descriptors.
func InVariant(lang *Language, desc *VariantDescriptor, d DPattern) (bool, error) {
	vv, ok := d.(VariantValue)
	if !ok || vv.Desc != desc {
		return false, nil
	}
	for i := range desc.Components {
		ok, err := InComponent(lang, &desc.Components[i], vv.Children[i])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// InComponent reports whether d satisfies the component descriptor c.
func InComponent(lang *Language, c *Component, d DPattern) (bool, error) {
	switch c.Kind {
	case CompSpaceRef:
		return InSpace(lang, c.SpaceName, d)
	case CompAddressSpace:
		decl, ok := lang.Spaces[c.SpaceName].(AddressSpaceDecl)
		if !ok {
			return false, newError(StageInSpace, d, "undefined address space %q", c.SpaceName)
		}
		addr, ok := d.(Address)
		return ok && addr.Tag == decl.Tag, nil
	case CompMap:
		return inMapComponent(lang, c.Domain, c.Range, d)
	case CompQualifiedMap:
		mv, ok := d.(MapValue)
		if !ok {
			return false, nil
		}
		switch c.DomainPrecision {
		case PrecisionConcrete:
			if mv.Kind != MapDiscrete && mv.Kind != MapRaw {
				return false, nil
			}
		case PrecisionAbstract:
			if mv.Kind != MapAbstract {
				return false, nil
			}
		case PrecisionDiscreteAbstraction:
			// Domain values are an abstract value's discrete
			// representation; either hashing strategy is acceptable.
		}
		return inMapComponent(lang, c.Domain, c.Range, d)
	case CompSetOf:
		sv, ok := d.(SetValue)
		if !ok {
			return false, nil
		}
		for _, elem := range sv.Elements() {
			ok, err := InComponent(lang, c.Elem, elem)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case CompAnything:
		return true, nil
	default:
		return false, newError(StageInSpace, d, "unrecognized component kind %v", c.Kind)
	}
}

func inMapComponent(lang *Language, domain, rng *Component, d DPattern) (bool, error) {
	mv, ok := d.(MapValue)
	if !ok {
		return false, nil
	}
	for _, kv := range mv.Entries() {
		ok, err := InComponent(lang, domain, kv.Key)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		ok, err = InComponent(lang, rng, kv.Value)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
