package semantics

// Pattern is a matching form that can bind or reference pattern
// variables. Patterns are matched against DPatterns by MatchConcrete
// (deterministic, one environment or failure) and MatchAbstract
// (non-deterministic, a set of must/may-tagged environments).
type Pattern interface {
	isPattern()
}

// BindingVarPat binds x to the matched value if x is unbound in the
// environment (optionally checking the value lies in Space first), or
// requires the matched value equal the existing binding if x is already
// bound (non-linear pattern variable).
type BindingVarPat struct {
	Name  string
	Space string // "" means no membership check
}

func (BindingVarPat) isPattern() {}

func B(name string) BindingVarPat         { return BindingVarPat{Name: name} }
func BIn(name, space string) BindingVarPat { return BindingVarPat{Name: name, Space: space} }

// RefVarPat looks up x and equal-matches without any space check.
// Meaningful in RHS instantiation and binding-list side conditions, not in
// a rule's LHS.
type RefVarPat struct {
	Name string
}

func (RefVarPat) isPattern() {}

func R(name string) RefVarPat { return RefVarPat{Name: name} }

// VariantPat matches a variant value built from Desc, then matches
// children pairwise.
type VariantPat struct {
	Desc     *VariantDescriptor
	Children []Pattern
}

func (VariantPat) isPattern() {}

func V(desc *VariantDescriptor, children ...Pattern) VariantPat {
	return VariantPat{Desc: desc, Children: children}
}

// AtomPat equal-matches an atom value.
type AtomPat struct {
	Atom Atom
}

func (AtomPat) isPattern() {}

func A(a Atom) AtomPat { return AtomPat{Atom: a} }

// Quantifier tags a QuantifiedPat's recursive position, abstract-mode
// only.
type Quantifier int

const (
	QuantForall Quantifier = iota
	QuantExists
)

// QuantifiedPat quantifies over the possible denotations of a list-shaped
// recursive pattern position under abstraction. Concrete mode ignores the
// annotation and matches Inner directly; see MatchConcrete.
type QuantifiedPat struct {
	Quantifier Quantifier
	Inner      Pattern
}

func (QuantifiedPat) isPattern() {}

// SetWithPat and MapWithPat are declared extension points for set/map
// destructuring patterns that spec.md leaves unimplemented pending a
// specification of how may-present entries destructure (spec 9). They
// parse but always fail to match with a structural error, so a rule
// author who reaches for them gets a clear signal rather than silent
// wrong behavior.
type SetWithPat struct{}
type MapWithPat struct{}

func (SetWithPat) isPattern() {}
func (MapWithPat) isPattern() {}

// MatchConcrete deterministically matches pat against d under env and
// store st. It returns the (possibly extended) environment and true on
// success, or the original environment and false on failure (silent, not
// an error). A structural address matched against anything other than a
// BindingVarPat/RefVarPat is resolved by dereferencing through st and
// matching the stored value instead — the policy spec.md's open question
// asks implementers to pick and document; see SPEC_FULL.md 4.2.
func MatchConcrete(lang *Language, pat Pattern, d DPattern, env Environment, st Store) (Environment, bool, error) {
	if qp, ok := pat.(QuantifiedPat); ok {
		return MatchConcrete(lang, qp.Inner, d, env, st)
	}
	if addr, ok := d.(Address); ok && addr.Kind == AddrStructural {
		if !isAddressAwarePattern(pat) {
			deref, _, ok2 := st.Deref(addr)
			if !ok2 {
				return env, false, nil
			}
			return MatchConcrete(lang, pat, deref, env, st)
		}
	}

	switch p := pat.(type) {
	case BindingVarPat:
		if existing, ok := env.Lookup(p.Name); ok {
			return env, Equal(st, existing, d), nil
		}
		if p.Space != "" {
			ok, err := InSpace(lang, p.Space, d)
			if err != nil {
				return env, false, err
			}
			if !ok {
				return env, false, nil
			}
		}
		return env.Bind(p.Name, d), true, nil

	case RefVarPat:
		existing, ok := env.Lookup(p.Name)
		if !ok {
			return env, false, newError(StageMatch, d, "unbound reference variable %q", p.Name)
		}
		return env, Equal(st, existing, d), nil

	case VariantPat:
		vv, ok := d.(VariantValue)
		if !ok || vv.Desc != p.Desc {
			return env, false, nil
		}
		cur := env
		for i, childPat := range p.Children {
			var ok2 bool
			var err error
			cur, ok2, err = MatchConcrete(lang, childPat, vv.Children[i], cur, st)
			if err != nil {
				return env, false, err
			}
			if !ok2 {
				return env, false, nil
			}
		}
		return cur, true, nil

	case AtomPat:
		a, ok := d.(Atom)
		if !ok {
			return env, false, nil
		}
		return env, a == p.Atom, nil

	case SetWithPat, MapWithPat:
		return env, false, newError(StageMatch, d, "set-with/map-with patterns are not implemented")

	default:
		return env, false, newError(StageMatch, d, "unrecognized pattern kind %T", pat)
	}
}

func isAddressAwarePattern(pat Pattern) bool {
	switch pat.(type) {
	case BindingVarPat, RefVarPat:
		return true
	default:
		return false
	}
}

// MatchResult is one branch of an abstract match: the extended
// environment and whether it follows definitely (Must) or only possibly
// (May) from the match.
type MatchResult struct {
	Env     Environment
	Quality Quality
}

// MatchAbstract non-deterministically matches pat against d, returning one
// MatchResult per distinct way the match can succeed. Non-determinism
// arises from dereferencing an omega-cardinality address (each joined
// possibility is tried) and is otherwise structurally identical to
// MatchConcrete.
func MatchAbstract(lang *Language, pat Pattern, d DPattern, env Environment, st Store) ([]MatchResult, error) {
	if qp, ok := pat.(QuantifiedPat); ok {
		return matchQuantified(lang, qp, d, env, st)
	}
	if addr, ok := d.(Address); ok && addr.Kind == AddrStructural {
		if !isAddressAwarePattern(pat) {
			candidates, q, ok2 := st.DerefCandidates(addr)
			if !ok2 {
				return nil, nil
			}
			var results []MatchResult
			for _, cand := range candidates {
				subs, err := MatchAbstract(lang, pat, cand, env, st)
				if err != nil {
					return nil, err
				}
				for _, r := range subs {
					results = append(results, MatchResult{Env: r.Env, Quality: combineQuality(q, r.Quality)})
				}
			}
			return results, nil
		}
	}

	switch p := pat.(type) {
	case BindingVarPat:
		if existing, ok := env.Lookup(p.Name); ok {
			switch equalQuality(st, existing, d) {
			case MustTrue:
				return []MatchResult{{Env: env, Quality: QualityMust}}, nil
			case May:
				return []MatchResult{{Env: env, Quality: QualityMay}}, nil
			default:
				return nil, nil
			}
		}
		if p.Space != "" {
			ok, err := InSpace(lang, p.Space, d)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
		}
		return []MatchResult{{Env: env.Bind(p.Name, d), Quality: QualityMust}}, nil

	case RefVarPat:
		existing, ok := env.Lookup(p.Name)
		if !ok {
			return nil, newError(StageMatch, d, "unbound reference variable %q", p.Name)
		}
		switch equalQuality(st, existing, d) {
		case MustTrue:
			return []MatchResult{{Env: env, Quality: QualityMust}}, nil
		case May:
			return []MatchResult{{Env: env, Quality: QualityMay}}, nil
		default:
			return nil, nil
		}

	case VariantPat:
		vv, ok := d.(VariantValue)
		if !ok || vv.Desc != p.Desc {
			return nil, nil
		}
		current := []MatchResult{{Env: env, Quality: QualityMust}}
		for i, childPat := range p.Children {
			var next []MatchResult
			for _, mr := range current {
				subs, err := MatchAbstract(lang, childPat, vv.Children[i], mr.Env, st)
				if err != nil {
					return nil, err
				}
				for _, s := range subs {
					next = append(next, MatchResult{Env: s.Env, Quality: combineQuality(mr.Quality, s.Quality)})
				}
			}
			current = next
			if len(current) == 0 {
				return nil, nil
			}
		}
		return current, nil

	case AtomPat:
		a, ok := d.(Atom)
		if !ok || a != p.Atom {
			return nil, nil
		}
		return []MatchResult{{Env: env, Quality: QualityMust}}, nil

	case SetWithPat, MapWithPat:
		return nil, newError(StageMatch, d, "set-with/map-with patterns are not implemented")

	default:
		return nil, newError(StageMatch, d, "unrecognized pattern kind %T", pat)
	}
}

// matchQuantified resolves a QuantifiedPat. Both quantifiers succeed if at
// least one denotation of Inner matches, and return the first match's
// environment tagged May; the universal quantifier does not check the
// denotations that fail to match. Both are necessarily May: an abstracted
// quantifier claim is never a certainty. This resolves spec 4.8's
// otherwise-unspecified ∀/∃ semantics; see DESIGN.md.
func matchQuantified(lang *Language, qp QuantifiedPat, d DPattern, env Environment, st Store) ([]MatchResult, error) {
	subs, err := MatchAbstract(lang, qp.Inner, d, env, st)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	switch qp.Quantifier {
	case QuantExists:
		return []MatchResult{{Env: subs[0].Env, Quality: QualityMay}}, nil
	case QuantForall:
		return []MatchResult{{Env: subs[0].Env, Quality: QualityMay}}, nil
	default:
		return subs, nil
	}
}
