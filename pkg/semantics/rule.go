package semantics

// Rule is a reduction-relation row: match lhs against a term, run bindings
// over the resulting environment (threading the store), then instantiate
// rhs in each surviving environment. Name is surfaced to allocation so
// abstract address identifiers can depend on which rule fired (spec 4.4,
// 4.6).
type Rule struct {
	Name     string
	LHS      Pattern
	RHS      Pattern
	Bindings []BindingForm
}

// ApplyRule runs rule against (term, store) concretely, per spec 4.6: no
// match yields an empty ResultSet (not an error); each surviving binding
// branch contributes one result whose Value is the instantiated RHS term
// and whose Store is that branch's final store.
func ApplyRule(lang *Language, alloc *AllocContext, rule *Rule, term DPattern, st Store) (ResultSet, error) {
	lang.Logger.Trace("rule attempt", "rule", rule.Name, "term", term)
	env, ok, err := MatchConcrete(lang, rule.LHS, term, NewEnvironment(), st)
	if err != nil {
		return nil, err
	}
	if !ok {
		lang.Logger.Debug("rule match failed", "rule", rule.Name)
		return nil, nil
	}
	lang.Logger.Debug("rule matched", "rule", rule.Name)
	it := &interpreter{lang: lang, alloc: alloc, origin: rule.Name, abstract: false}
	branches, err := it.runBindings(rule.Bindings, env, st, NewCardinalityMap())
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, b := range branches {
		rhs, err := Instantiate(lang, rule.RHS, b.env)
		if err != nil {
			return nil, err
		}
		out = append(out, EvalResult{Value: rhs, Store: b.store, Count: b.count, Quality: b.qual})
	}
	return out, nil
}

// ApplyRuleAbstract runs rule against an abstract state (term, store, cm),
// exploring every way rule.LHS can match (including must/may branches from
// an omega-cardinality address) and threading cm through bindings and
// allocation the same way ApplyRule threads store.
func ApplyRuleAbstract(lang *Language, alloc *AllocContext, rule *Rule, term DPattern, st Store, cm CardinalityMap) (ResultSet, error) {
	lang.Logger.Trace("rule attempt (abstract)", "rule", rule.Name, "term", term)
	matches, err := MatchAbstract(lang, rule.LHS, term, NewEnvironment(), st)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		lang.Logger.Debug("rule match failed (abstract)", "rule", rule.Name)
		return nil, nil
	}
	lang.Logger.Debug("rule matched (abstract)", "rule", rule.Name, "branches", len(matches))
	it := &interpreter{lang: lang, alloc: alloc, origin: rule.Name, abstract: true}
	var out ResultSet
	for _, m := range matches {
		branches, err := it.runBindings(rule.Bindings, m.Env, st, cm)
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			rhs, err := Instantiate(lang, rule.RHS, b.env)
			if err != nil {
				return nil, err
			}
			out = append(out, EvalResult{Value: rhs, Store: b.store, Count: b.count, Quality: combineQuality(m.Quality, b.qual)})
		}
	}
	return out, nil
}
