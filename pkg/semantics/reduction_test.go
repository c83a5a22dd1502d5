package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// incRules realizes spec 8 scenario S5's two-rule cyclic integer system
// ("n -> n+1 if n<3", "n -> 0 if n=3") as one rule per concrete value 0..3,
// since the expression language has no generic "<" comparison form and an
// atom pattern's equal-match is the natural way to express each guard.
func incRules() []*Rule {
	step := func(name string, from, to float64) *Rule {
		return &Rule{Name: name, LHS: A(NewNumber(from)), RHS: A(NewNumber(to))}
	}
	return []*Rule{
		step("inc0", 0, 1),
		step("inc1", 1, 2),
		step("inc2", 2, 3),
		step("wrap3", 3, 0),
	}
}

func TestApplyOneStep(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	alloc := NewAllocContext()
	rules := incRules()

	succs, err := Apply(lang, alloc, rules, State{Term: NewNumber(0), Store: NewStore()})
	require.NoError(t, err)
	require.Len(t, succs, 1)
	assert.Equal(t, NewNumber(1), succs[0].Term)
}

// TestApplyStarMemoTerminatesOnCyclicRuleSet pins spec 8 scenario S5: the
// memoized exploration from 0 visits every state in {0,1,2,3} exactly once
// and terminates, because state 3's own successor (0) is already visited.
func TestApplyStarMemoTerminatesOnCyclicRuleSet(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	alloc := NewAllocContext()
	rules := incRules()

	visited, err := ApplyStarMemo(lang, alloc, rules, State{Term: NewNumber(0), Store: NewStore()}, 100)
	require.NoError(t, err)

	got := map[float64]bool{}
	for _, s := range visited {
		got[s.Term.(Atom).Num] = true
	}
	assert.Equal(t, map[float64]bool{0: true, 1: true, 2: true, 3: true}, got)
	assert.Len(t, visited, 4, "each of 0,1,2,3 is represented exactly once")
}

// TestApplyStarWithoutMemoDetectsNonTermination pins the other half of S5:
// without a visited set, re-expanding 0 after wrapping from 3 never stops,
// so ApplyStar must surface that as a budget-exceeded error rather than
// hang.
func TestApplyStarWithoutMemoDetectsNonTermination(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	alloc := NewAllocContext()
	rules := incRules()

	_, err = ApplyStar(lang, alloc, rules, State{Term: NewNumber(0), Store: NewStore()}, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")
}

func TestApplyStarReachesNormalForm(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	alloc := NewAllocContext()
	// incRulesTerminal (inc0..inc2, no wrap-around) is acyclic, so 3 is a
	// genuine normal form reachable from 2 under the non-memoized ApplyStar.
	terminal, err := ApplyStar(lang, alloc, incRulesTerminal(), State{Term: NewNumber(2), Store: NewStore()}, 10)
	require.NoError(t, err)
	require.Len(t, terminal, 1)
	assert.Equal(t, NewNumber(3), terminal[0].Term)
}

// incRulesTerminal is incRules without the wrap-around, so 3 is a genuine
// normal form reachable from 2.
func incRulesTerminal() []*Rule {
	rules := incRules()
	return rules[:len(rules)-1]
}

func TestApplyAbstractDeduplicatesSuccessors(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	alloc := NewAllocContext()
	rules := []*Rule{
		{Name: "r1", LHS: B("n"), RHS: A(NewNumber(9))},
		{Name: "r2", LHS: B("n"), RHS: A(NewNumber(9))},
	}
	succs, err := ApplyAbstract(lang, alloc, rules, AbstractState{Term: NewNumber(1), Store: NewStore(), Count: NewCardinalityMap()})
	require.NoError(t, err)
	require.Len(t, succs, 1, "both rules produce the identical state 9, deduplicated")
	assert.Equal(t, NewNumber(9), succs[0].Term)
}
