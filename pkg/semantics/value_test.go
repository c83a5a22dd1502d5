package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomString(t *testing.T) {
	t.Run("number uses shortest round-trip form", func(t *testing.T) {
		assert.Equal(t, "3.5", NewNumber(3.5).String())
	})

	t.Run("booleans print as racket-style literals", func(t *testing.T) {
		assert.Equal(t, "#t", True.String())
		assert.Equal(t, "#f", False.String())
	})

	t.Run("strings are quoted", func(t *testing.T) {
		assert.Equal(t, `"hi"`, NewString("hi").String())
	})

	t.Run("characters use the #\\ sigil", func(t *testing.T) {
		assert.Equal(t, `#\a`, NewCharacter('a').String())
	})
}

func TestTruthy(t *testing.T) {
	t.Run("every value is truthy except #f", func(t *testing.T) {
		assert.True(t, Truthy(True))
		assert.True(t, Truthy(NewNumber(0)))
		assert.True(t, Truthy(NewSymbol("anything")))
		assert.False(t, Truthy(False))
	})
}

func TestEqualAtoms(t *testing.T) {
	st := NewStore()

	t.Run("equal atoms of the same kind", func(t *testing.T) {
		assert.True(t, Equal(st, NewNumber(1), NewNumber(1)))
		assert.False(t, Equal(st, NewNumber(1), NewNumber(2)))
	})

	t.Run("atoms of different kinds are never equal", func(t *testing.T) {
		assert.False(t, Equal(st, NewNumber(1), NewBoolean(true)))
	})
}

func TestEqualAddresses(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()

	t.Run("egal addresses compare by identity alone", func(t *testing.T) {
		st := NewStore()
		a1, _ := allocate(alloc, cm, AddrEgal, "ref", "o", "s1", nil, false)
		a2, _ := allocate(alloc, cm, AddrEgal, "ref", "o", "s2", nil, false)
		assert.True(t, Equal(st, a1, a1))
		assert.False(t, Equal(st, a1, a2))
	})

	t.Run("structural addresses dereference before comparing", func(t *testing.T) {
		st := NewStore()
		a1, _ := allocate(alloc, cm, AddrStructural, "box", "o", "s3", nil, false)
		a2, _ := allocate(alloc, cm, AddrStructural, "box", "o", "s4", nil, false)
		st = st.Extend(a1, NewNumber(42), true)
		st = st.Extend(a2, NewNumber(42), true)
		assert.True(t, Equal(st, a1, a2), "distinct structural addresses holding equal values are equal")
	})

	t.Run("structural address dereferencing through to a non-address value", func(t *testing.T) {
		st := NewStore()
		a1, _ := allocate(alloc, cm, AddrStructural, "box", "o", "s5", nil, false)
		st = st.Extend(a1, NewNumber(7), true)
		assert.True(t, Equal(st, a1, NewNumber(7)))
	})
}

func TestEqualVariants(t *testing.T) {
	st := NewStore()
	desc := &VariantDescriptor{Name: "pair", Components: []Component{AnythingComponent(), AnythingComponent()}}
	other := &VariantDescriptor{Name: "pair2", Components: []Component{AnythingComponent(), AnythingComponent()}}

	v1 := NewVariantValue(desc, NewNumber(1), NewNumber(2))
	v2 := NewVariantValue(desc, NewNumber(1), NewNumber(2))
	v3 := NewVariantValue(desc, NewNumber(1), NewNumber(3))
	v4 := NewVariantValue(other, NewNumber(1), NewNumber(2))

	require.True(t, Equal(st, v1, v2))
	require.False(t, Equal(st, v1, v3), "differing child disqualifies equality")
	require.False(t, Equal(st, v1, v4), "different descriptor disqualifies equality even with equal children")
}

func TestEqualQualityApproxValue(t *testing.T) {
	st := NewStore()
	av := approxValue{Possibilities: NewEmptySet().Add(st, NewNumber(1)).Add(st, NewNumber(2))}

	t.Run("an approxValue compared against one of its possibilities is at best may", func(t *testing.T) {
		q := equalQuality(st, av, NewNumber(1))
		assert.Equal(t, May, q)
	})

	t.Run("an approxValue compared against a value outside its possibilities is still at best may", func(t *testing.T) {
		q := equalQuality(st, av, NewNumber(99))
		assert.Equal(t, May, q)
	})
}
