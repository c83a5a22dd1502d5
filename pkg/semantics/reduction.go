package semantics

import "fmt"

// State is a concrete reduction state: a term and the store it closes over
// (spec 6).
type State struct {
	Term  DPattern
	Store Store
}

func stateKey(s State) string {
	return s.Term.String() + "\x00" + s.Store.String()
}

// AbstractState additionally carries a cardinality map, per spec 6.
type AbstractState struct {
	Term  DPattern
	Store Store
	Count CardinalityMap
}

func abstractStateKey(s AbstractState) string {
	return s.Term.String() + "\x00" + s.Store.String()
}

// Apply is the one-step reduction relation: the deduplicated union, over
// every rule, of that rule's successor states from s (spec 4.7). An empty
// return means s is a normal form — no rule produced a successor (either
// its LHS did not match or its binding list pruned every match).
func Apply(lang *Language, alloc *AllocContext, rules []*Rule, s State) ([]State, error) {
	lang.Logger.Debug("apply: one-step reduction", "rules", len(rules), "term", s.Term)
	seen := map[string]bool{}
	var out []State
	for _, r := range rules {
		results, err := ApplyRule(lang, alloc, r, s.Term, s.Store)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			ns := State{Term: res.Value, Store: res.Store}
			key := stateKey(ns)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ns)
		}
	}
	return out, nil
}

// ApplyAbstract is Apply's abstract-state counterpart, threading the
// cardinality map through each rule firing.
func ApplyAbstract(lang *Language, alloc *AllocContext, rules []*Rule, s AbstractState) ([]AbstractState, error) {
	lang.Logger.Debug("apply: one-step abstract reduction", "rules", len(rules), "term", s.Term)
	seen := map[string]bool{}
	var out []AbstractState
	for _, r := range rules {
		results, err := ApplyRuleAbstract(lang, alloc, r, s.Term, s.Store, s.Count)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			ns := AbstractState{Term: res.Value, Store: res.Store, Count: res.Count}
			key := abstractStateKey(ns)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ns)
		}
	}
	return out, nil
}

// ApplyStar repeatedly applies Apply over the frontier reachable from
// start, without remembering visited states, collecting every state whose
// image under Apply is empty (a normal form). budget bounds the number of
// frontier states it will expand; exceeding it returns an error, which is
// how a cyclic rule set with no memoization (spec 8 S5) is detected as
// non-terminating rather than hanging forever.
func ApplyStar(lang *Language, alloc *AllocContext, rules []*Rule, start State, budget int) ([]State, error) {
	frontier := []State{start}
	var terminal []State
	steps := 0
	for len(frontier) > 0 {
		steps++
		if steps > budget {
			return nil, fmt.Errorf("apply*: budget of %d steps exceeded, possible non-termination", budget)
		}
		cur := frontier[0]
		frontier = frontier[1:]
		succs, err := Apply(lang, alloc, rules, cur)
		if err != nil {
			return nil, err
		}
		if len(succs) == 0 {
			terminal = append(terminal, cur)
			continue
		}
		frontier = append(frontier, succs...)
	}
	return dedupStates(terminal), nil
}

// ApplyStarMemo is ApplyStar with a visited-state set: a state already seen
// is not re-expanded, so a cyclic rule set terminates instead of looping
// (spec 4.7's "memoized variant ... returns ∅ on a revisit"). Its result is
// the complete set of states visited during the exploration — which, for a
// cyclic rule set, is generally not the same as "states with an empty
// apply-image" (spec 8 S5: state 3 is included even though apply(rules,3)
// = {0}, because the only reason exploration stops there is that 0 was
// already visited).
func ApplyStarMemo(lang *Language, alloc *AllocContext, rules []*Rule, start State, budget int) ([]State, error) {
	visited := map[string]bool{}
	var order []State
	frontier := []State{start}
	steps := 0
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		key := stateKey(cur)
		if visited[key] {
			continue
		}
		visited[key] = true
		order = append(order, cur)
		steps++
		if steps > budget {
			return nil, fmt.Errorf("apply*/memo: budget of %d states exceeded", budget)
		}
		succs, err := Apply(lang, alloc, rules, cur)
		if err != nil {
			return nil, err
		}
		frontier = append(frontier, succs...)
	}
	return order, nil
}

func dedupStates(states []State) []State {
	seen := map[string]bool{}
	var out []State
	for _, s := range states {
		key := stateKey(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
