package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardinalityBump(t *testing.T) {
	t.Run("zero bumps to one", func(t *testing.T) {
		assert.Equal(t, CardinalityOne, CardinalityZero.Bump())
	})
	t.Run("one bumps to omega", func(t *testing.T) {
		assert.Equal(t, CardinalityOmega, CardinalityOne.Bump())
	})
	t.Run("omega stays omega", func(t *testing.T) {
		assert.Equal(t, CardinalityOmega, CardinalityOmega.Bump())
	})
}

func TestJoinCardinality(t *testing.T) {
	assert.Equal(t, CardinalityOne, JoinCardinality(CardinalityZero, CardinalityOne))
	assert.Equal(t, CardinalityOmega, JoinCardinality(CardinalityOne, CardinalityOmega))
	assert.Equal(t, CardinalityZero, JoinCardinality(CardinalityZero, CardinalityZero))
}

func TestCardinalityMap(t *testing.T) {
	addr := Address{Kind: AddrEgal, Tag: "x", ID: 1}

	t.Run("unmapped address reads as zero", func(t *testing.T) {
		m := NewCardinalityMap()
		assert.Equal(t, CardinalityZero, m.Get(addr))
	})

	t.Run("bump advances without mutating the prior map", func(t *testing.T) {
		m0 := NewCardinalityMap()
		m1 := m0.Bump(addr)
		m2 := m1.Bump(addr)

		assert.Equal(t, CardinalityZero, m0.Get(addr), "original map must remain unmutated")
		assert.Equal(t, CardinalityOne, m1.Get(addr))
		assert.Equal(t, CardinalityOmega, m2.Get(addr))
	})

	t.Run("join takes the pointwise lattice maximum", func(t *testing.T) {
		a := NewCardinalityMap().Bump(addr)
		other := Address{Kind: AddrEgal, Tag: "y", ID: 2}
		b := NewCardinalityMap().Bump(other).Bump(other)

		joined := a.Join(b)
		assert.Equal(t, CardinalityOne, joined.Get(addr))
		assert.Equal(t, CardinalityOmega, joined.Get(other))
	})

	t.Run("len counts distinct tracked addresses", func(t *testing.T) {
		m := NewCardinalityMap().Bump(addr)
		assert.Equal(t, 1, m.Len())
	})
}
