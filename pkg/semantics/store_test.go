package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreStrongWrite(t *testing.T) {
	addr := Address{Kind: AddrStructural, Tag: "box", ID: 1}

	t.Run("strong extend overwrites outright", func(t *testing.T) {
		st := NewStore().Extend(addr, NewNumber(1), true)
		st = st.Extend(addr, NewNumber(2), true)

		v, q, ok := st.Deref(addr)
		require.True(t, ok)
		assert.Equal(t, QualityMust, q)
		assert.Equal(t, NewNumber(2), v)
	})

	t.Run("extend does not mutate a prior store snapshot", func(t *testing.T) {
		s0 := NewStore()
		s1 := s0.Extend(addr, NewNumber(1), true)

		_, _, ok := s0.Deref(addr)
		assert.False(t, ok)
		_, _, ok = s1.Deref(addr)
		assert.True(t, ok)
	})
}

func TestStoreWeakWrite(t *testing.T) {
	addr := Address{Kind: AddrStructural, Tag: "box", ID: 2}

	t.Run("weak extend joins possibilities rather than overwriting", func(t *testing.T) {
		st := NewStore().Extend(addr, NewNumber(1), false)
		st = st.Extend(addr, NewNumber(2), false)

		possibilities, q, ok := st.DerefCandidates(addr)
		require.True(t, ok)
		assert.Equal(t, QualityMay, q)
		assert.Len(t, possibilities, 2)
	})

	t.Run("deref of a weakly-updated address reports May", func(t *testing.T) {
		st := NewStore().Extend(addr, NewNumber(1), false)
		_, q, ok := st.Deref(addr)
		require.True(t, ok)
		assert.Equal(t, QualityMay, q)
	})

	t.Run("a repeated weak write of the same value does not duplicate it", func(t *testing.T) {
		st := NewStore().Extend(addr, NewNumber(1), false)
		st = st.Extend(addr, NewNumber(1), false)

		possibilities, _, _ := st.DerefCandidates(addr)
		assert.Len(t, possibilities, 1)
	})
}

func TestStoreDerefUnmapped(t *testing.T) {
	addr := Address{Kind: AddrStructural, Tag: "box", ID: 99}
	st := NewStore()
	_, _, ok := st.Deref(addr)
	assert.False(t, ok)
}

func TestStoreTagsSorted(t *testing.T) {
	st := NewStore()
	st = st.Extend(Address{Tag: "z", ID: 1}, NewNumber(1), true)
	st = st.Extend(Address{Tag: "a", ID: 1}, NewNumber(2), true)
	assert.Equal(t, []string{"a", "z"}, st.Tags())
}
