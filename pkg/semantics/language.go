package semantics

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Language is a name plus a simultaneously-scoped mapping from space name
// to Space (mutual recursion between user spaces is allowed). Languages
// are immutable once constructed by NewLanguage, which validates the
// whole-language invariants spec.md requires.
type Language struct {
	Name          string
	Spaces        map[string]Space
	MetaFunctions map[string]*MetaFunction
	Logger        hclog.Logger
}

// LanguageOption configures NewLanguage.
type LanguageOption func(*Language)

// WithLogger attaches an hclog.Logger used for debug-level tracing of rule
// attempts, matches, and allocations. The default is a discarding logger;
// this is ambient diagnostic output, not the tracing subsystem spec.md
// keeps out of scope.
func WithLogger(l hclog.Logger) LanguageOption {
	return func(lang *Language) { lang.Logger = l }
}

// WithMetaFunctions registers the language's meta-functions, callable from
// MetaCallExpr by name.
func WithMetaFunctions(mfs map[string]*MetaFunction) LanguageOption {
	return func(lang *Language) { lang.MetaFunctions = mfs }
}

// NewLanguage constructs and validates a Language. It returns an
// aggregate *multierror.Error (via errors.As-compatible wrapping) if any
// of the following whole-language invariants are violated:
//
//   - every space reference (SpaceRefAlt, CompSpaceRef, CompAddressSpace,
//     AddressSpaceDecl.Pointee) resolves to a declared space;
//   - variants sharing a name agree on arity everywhere they appear;
//   - address-space tags are unique across all AddressSpaceDecl spaces;
//   - mutually recursive user spaces either all or none set TrustRecursion.
func NewLanguage(name string, spaces map[string]Space, opts ...LanguageOption) (*Language, error) {
	lang := &Language{Name: name, Spaces: spaces, Logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(lang)
	}

	var errs *multierror.Error

	variantArity := map[string]int{}
	tags := map[string]string{} // tag -> owning space name

	var checkComponent func(owner string, c *Component)
	checkComponent = func(owner string, c *Component) {
		if c == nil {
			return
		}
		switch c.Kind {
		case CompMap, CompQualifiedMap:
			checkComponent(owner, c.Domain)
			checkComponent(owner, c.Range)
		case CompSetOf:
			checkComponent(owner, c.Elem)
		case CompSpaceRef:
			if _, ok := spaces[c.SpaceName]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("space %q: component references undefined space %q", owner, c.SpaceName))
			}
		case CompAddressSpace:
			if sp, ok := spaces[c.SpaceName]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("space %q: component references undefined address space %q", owner, c.SpaceName))
			} else if _, ok := sp.(AddressSpaceDecl); !ok {
				errs = multierror.Append(errs, fmt.Errorf("space %q: %q is not an address space", owner, c.SpaceName))
			}
		}
	}

	for name, sp := range spaces {
		switch s := sp.(type) {
		case UserSpace:
			for _, alt := range s.Alternatives {
				switch alt.Kind {
				case AltVariant:
					if prev, ok := variantArity[alt.Variant.Name]; ok && prev != alt.Variant.Arity() {
						errs = multierror.Append(errs, fmt.Errorf("variant %q: arity mismatch (%d vs %d)", alt.Variant.Name, prev, alt.Variant.Arity()))
					} else {
						variantArity[alt.Variant.Name] = alt.Variant.Arity()
					}
					for i := range alt.Variant.Components {
						checkComponent(name, &alt.Variant.Components[i])
					}
				case AltSpaceRef:
					if _, ok := spaces[alt.SpaceRef]; !ok {
						errs = multierror.Append(errs, fmt.Errorf("space %q: includes undefined space %q", name, alt.SpaceRef))
					}
				case AltComponent:
					checkComponent(name, alt.Component)
				}
			}
		case AddressSpaceDecl:
			if s.Pointee != "" {
				if _, ok := spaces[s.Pointee]; !ok {
					errs = multierror.Append(errs, fmt.Errorf("address space %q: undefined pointee space %q", name, s.Pointee))
				}
			}
			if owner, dup := tags[s.Tag]; dup {
				errs = multierror.Append(errs, fmt.Errorf("address-space tag %q used by both %q and %q", s.Tag, owner, name))
			} else {
				tags[s.Tag] = name
			}
		case *ExternalSpace:
			// no cross-references to validate
		default:
			errs = multierror.Append(errs, fmt.Errorf("space %q: unrecognized space implementation %T", name, sp))
		}
	}

	if err := checkTrustRecursionConsistency(spaces); err != nil {
		errs = multierror.Append(errs, err)
	}

	if errs != nil {
		return nil, errs.ErrorOrNil()
	}
	return lang, nil
}

// checkTrustRecursionConsistency verifies that every mutually-recursive
// cluster of user spaces (spaces reachable from one another via AltSpaceRef
// or a space-valued component) agrees on TrustRecursion.
func checkTrustRecursionConsistency(spaces map[string]Space) error {
	adj := map[string][]string{}
	for name, sp := range spaces {
		us, ok := sp.(UserSpace)
		if !ok {
			continue
		}
		adj[name] = userSpaceRefs(us)
	}

	visited := map[string]bool{}
	var errs *multierror.Error

	var collect func(start string, cluster map[string]bool)
	collect = func(node string, cluster map[string]bool) {
		if cluster[node] || visited[node] {
			return
		}
		if _, ok := adj[node]; !ok {
			return
		}
		cluster[node] = true
		for _, next := range adj[node] {
			collect(next, cluster)
		}
	}

	for name := range adj {
		if visited[name] {
			continue
		}
		cluster := map[string]bool{}
		collect(name, cluster)
		trust := map[bool]bool{}
		for n := range cluster {
			visited[n] = true
			trust[spaces[n].(UserSpace).TrustRecursion] = true
		}
		if len(trust) > 1 {
			errs = multierror.Append(errs, fmt.Errorf("mutually recursive spaces %v disagree on trust-recursion", sortedStringKeys(cluster)))
		}
	}
	return errs.ErrorOrNil()
}

func userSpaceRefs(us UserSpace) []string {
	var refs []string
	for _, alt := range us.Alternatives {
		switch alt.Kind {
		case AltSpaceRef:
			refs = append(refs, alt.SpaceRef)
		case AltVariant:
			for _, c := range alt.Variant.Components {
				refs = append(refs, componentRefs(&c)...)
			}
		case AltComponent:
			refs = append(refs, componentRefs(alt.Component)...)
		}
	}
	return refs
}

func componentRefs(c *Component) []string {
	switch c.Kind {
	case CompSpaceRef:
		return []string{c.SpaceName}
	case CompMap, CompQualifiedMap:
		return append(componentRefs(c.Domain), componentRefs(c.Range)...)
	case CompSetOf:
		return componentRefs(c.Elem)
	default:
		return nil
	}
}

func sortedStringKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return sortStrings(out)
}
