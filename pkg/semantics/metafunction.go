package semantics

// MetaFunction is a named, rule-defined function callable from
// Meta-function-call expressions (spec 4.8). If TrustedConcrete (resp.
// TrustedAbstract) is set, it is invoked directly instead of the rule
// list — an escape hatch for primitives (arithmetic, built-in
// predicates) that would be tedious or impossible to write as match
// rules. Otherwise the first rule whose LHS matches the argument is
// applied and its result set returned.
type MetaFunction struct {
	Name            string
	Rules           []*Rule
	TrustedConcrete func(st Store, arg DPattern) (DPattern, Store, error)
	TrustedAbstract func(st Store, cm CardinalityMap, arg DPattern) (ResultSet, error)
}

// CallMetaFunction invokes mf concretely on arg, threading the store
// exactly as ApplyRule does.
func CallMetaFunction(lang *Language, alloc *AllocContext, mf *MetaFunction, arg DPattern, st Store) (ResultSet, error) {
	if mf.TrustedConcrete != nil {
		v, nst, err := mf.TrustedConcrete(st, arg)
		if err != nil {
			return nil, err
		}
		return singleton(v, nst, NewCardinalityMap(), QualityMust), nil
	}
	for _, rule := range mf.Rules {
		_, ok, err := MatchConcrete(lang, rule.LHS, arg, NewEnvironment(), st)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return ApplyRule(lang, alloc, rule, arg, st)
	}
	return nil, nil
}

// CallMetaFunctionAbstract invokes mf abstractly on arg, threading store
// and cardinality map exactly as ApplyRuleAbstract does.
func CallMetaFunctionAbstract(lang *Language, alloc *AllocContext, mf *MetaFunction, arg DPattern, st Store, cm CardinalityMap) (ResultSet, error) {
	if mf.TrustedAbstract != nil {
		return mf.TrustedAbstract(st, cm, arg)
	}
	for _, rule := range mf.Rules {
		matches, err := MatchAbstract(lang, rule.LHS, arg, NewEnvironment(), st)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		return ApplyRuleAbstract(lang, alloc, rule, arg, st, cm)
	}
	return nil, nil
}
