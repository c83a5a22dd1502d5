package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairDesc() *VariantDescriptor {
	return &VariantDescriptor{Name: "pair", Components: []Component{AnythingComponent(), AnythingComponent()}}
}

func TestMatchConcreteBindingVar(t *testing.T) {
	st := NewStore()

	t.Run("unbound binding variable binds on first occurrence", func(t *testing.T) {
		env, ok, err := MatchConcrete(nil, B("x"), NewNumber(1), NewEnvironment(), st)
		require.NoError(t, err)
		require.True(t, ok)
		v, _ := env.Lookup("x")
		assert.Equal(t, NewNumber(1), v)
	})

	t.Run("a repeated binding variable name requires equality with its first binding", func(t *testing.T) {
		env := NewEnvironment().Bind("x", NewNumber(1))

		_, ok, err := MatchConcrete(nil, B("x"), NewNumber(1), env, st)
		require.NoError(t, err)
		assert.True(t, ok, "matching the same value again succeeds")

		_, ok, err = MatchConcrete(nil, B("x"), NewNumber(2), env, st)
		require.NoError(t, err)
		assert.False(t, ok, "matching a different value fails (non-linear pattern variable)")
	})
}

func TestMatchConcreteRefVar(t *testing.T) {
	st := NewStore()
	env := NewEnvironment().Bind("x", NewNumber(1))

	t.Run("bound reference variable matches its equal value", func(t *testing.T) {
		_, ok, err := MatchConcrete(nil, R("x"), NewNumber(1), env, st)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unbound reference variable is a structural error", func(t *testing.T) {
		_, _, err := MatchConcrete(nil, R("missing"), NewNumber(1), NewEnvironment(), st)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unbound reference variable")
	})
}

func TestMatchConcreteVariant(t *testing.T) {
	st := NewStore()
	desc := pairDesc()
	v := NewVariantValue(desc, NewNumber(1), NewNumber(2))

	t.Run("matching variant pattern binds both children", func(t *testing.T) {
		env, ok, err := MatchConcrete(nil, V(desc, B("a"), B("b")), v, NewEnvironment(), st)
		require.NoError(t, err)
		require.True(t, ok)
		a, _ := env.Lookup("a")
		b, _ := env.Lookup("b")
		assert.Equal(t, NewNumber(1), a)
		assert.Equal(t, NewNumber(2), b)
	})

	t.Run("a different descriptor never matches", func(t *testing.T) {
		other := &VariantDescriptor{Name: "other", Components: []Component{AnythingComponent(), AnythingComponent()}}
		_, ok, err := MatchConcrete(nil, V(other, B("a"), B("b")), v, NewEnvironment(), st)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-linear use across both positions enforces equality", func(t *testing.T) {
		same := NewVariantValue(desc, NewNumber(5), NewNumber(5))
		_, ok, err := MatchConcrete(nil, V(desc, B("a"), B("a")), same, NewEnvironment(), st)
		require.NoError(t, err)
		assert.True(t, ok)

		_, ok, err = MatchConcrete(nil, V(desc, B("a"), B("a")), v, NewEnvironment(), st)
		require.NoError(t, err)
		assert.False(t, ok, "children 1 and 2 of v are not equal")
	})
}

func TestMatchConcreteAtom(t *testing.T) {
	st := NewStore()
	_, ok, err := MatchConcrete(nil, A(NewNumber(1)), NewNumber(1), NewEnvironment(), st)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = MatchConcrete(nil, A(NewNumber(1)), NewNumber(2), NewEnvironment(), st)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchConcreteDereferencesStructuralAddresses(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()
	st := NewStore()
	addr, _ := allocate(alloc, cm, AddrStructural, "box", "o", "s1", nil, false)
	st = st.Extend(addr, NewNumber(7), true)

	t.Run("a non-address-aware pattern matches through the store", func(t *testing.T) {
		_, ok, err := MatchConcrete(nil, A(NewNumber(7)), addr, NewEnvironment(), st)
		require.NoError(t, err)
		assert.True(t, ok, "structural address is transparently dereferenced before matching")
	})

	t.Run("a binding variable captures the address itself, not its contents", func(t *testing.T) {
		env, ok, err := MatchConcrete(nil, B("x"), addr, NewEnvironment(), st)
		require.NoError(t, err)
		require.True(t, ok)
		v, _ := env.Lookup("x")
		assert.Equal(t, addr, v)
	})
}

func TestMatchConcreteSetWithMapWithUnimplemented(t *testing.T) {
	st := NewStore()
	_, _, err := MatchConcrete(nil, SetWithPat{}, NewEmptySet(), NewEnvironment(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not implemented")

	_, _, err = MatchConcrete(nil, MapWithPat{}, NewEmptyMap(MapDiscrete), NewEnvironment(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not implemented")
}

func TestMatchAbstractOmegaAddressBranches(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()
	st := NewStore()
	addr, _ := allocate(alloc, cm, AddrStructural, "box", "o", "s1", nil, false)
	st = st.Extend(addr, NewNumber(1), false)
	st = st.Extend(addr, NewNumber(2), false)

	results, err := MatchAbstract(nil, A(NewNumber(1)), addr, NewEnvironment(), st)
	require.NoError(t, err)
	require.Len(t, results, 1, "only the possibility equal to the pattern's atom matches")
	assert.Equal(t, QualityMay, results[0].Quality, "a weakly-updated address can never yield a Must match")
}

func TestMatchAbstractBindingVarCapturesOmegaAddress(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()
	st := NewStore()
	addr, _ := allocate(alloc, cm, AddrStructural, "box", "o", "s1", nil, false)
	st = st.Extend(addr, NewNumber(1), false)
	st = st.Extend(addr, NewNumber(2), false)

	results, err := MatchAbstract(nil, B("x"), addr, NewEnvironment(), st)
	require.NoError(t, err)
	assert.Len(t, results, 1, "binding against an address captures the address, not its dereferenced possibilities")
	for _, r := range results {
		v, _ := r.Env.Lookup("x")
		assert.Equal(t, addr, v)
	}
}

func TestMatchQuantified(t *testing.T) {
	st := NewStore()
	results, err := MatchAbstract(nil, QuantifiedPat{Quantifier: QuantExists, Inner: B("x")}, NewNumber(1), NewEnvironment(), st)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, QualityMay, results[0].Quality, "a quantified claim is never a Must")
}
