package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateConcreteIsAlwaysFresh(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()
	a1, cm1 := allocate(alloc, cm, AddrStructural, "box", "rule", "site", nil, false)
	a2, _ := allocate(alloc, cm1, AddrStructural, "box", "rule", "site", nil, false)
	assert.NotEqual(t, a1.ID, a2.ID, "two concrete allocations at the same site are still distinct")
	assert.Equal(t, CardinalityZero, cm1.Get(a1), "concrete allocation never touches the cardinality map")
}

// TestAllocateAbstractSaturatesToOmega realizes spec 8 scenario S6:
// allocating the same (rule, site) twice converges onto a single address
// whose cardinality climbs 0->1 on the first allocation and 1->omega on
// the second, and reading the address afterward returns the join of both
// written values.
func TestAllocateAbstractSaturatesToOmega(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()
	st := NewStore()

	addr1, cm := allocate(alloc, cm, AddrStructural, "box", "rule", "site", nil, true)
	assert.Equal(t, CardinalityOne, cm.Get(addr1))

	strong := writeIsStrong(cm, addr1, false, true)
	assert.True(t, strong, "first write at cardinality 1 is strong")
	st = st.Extend(addr1, NewNumber(10), strong)

	addr2, cm := allocate(alloc, cm, AddrStructural, "box", "rule", "site", nil, true)
	require.Equal(t, addr1, addr2, "re-allocating the same site/hint names the same address")
	assert.Equal(t, CardinalityOmega, cm.Get(addr2))

	strong2 := writeIsStrong(cm, addr2, false, true)
	assert.False(t, strong2, "a write at cardinality omega is weak (joined)")
	st = st.Extend(addr2, NewNumber(20), strong2)

	candidates, q, found := st.DerefCandidates(addr1)
	require.True(t, found)
	assert.Equal(t, QualityMay, q)
	got := map[float64]bool{}
	for _, c := range candidates {
		got[c.(Atom).Num] = true
	}
	assert.Equal(t, map[float64]bool{10: true, 20: true}, got, "reading after two writes returns the join of both written values")
}

func TestAllocateAbstractDistinctHintsDistinctAddresses(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()
	a1, _ := allocate(alloc, cm, AddrStructural, "box", "rule", "site", NewNumber(1), true)
	a2, _ := allocate(alloc, cm, AddrStructural, "box", "rule", "site", NewNumber(2), true)
	assert.NotEqual(t, a1.ID, a2.ID, "distinct hints at the same site name distinct abstract addresses")
}

func TestWriteIsStrongTrustStrongOverridesSaturation(t *testing.T) {
	alloc := NewAllocContext()
	cm := NewCardinalityMap()
	addr, cm := allocate(alloc, cm, AddrStructural, "box", "rule", "site", nil, true)
	_, cm = allocate(alloc, cm, AddrStructural, "box", "rule", "site", nil, true)
	require.Equal(t, CardinalityOmega, cm.Get(addr))

	assert.True(t, writeIsStrong(cm, addr, true, true), "trustStrong always forces a strong write")
	assert.True(t, writeIsStrong(cm, addr, false, false), "concrete writes are always strong regardless of cm")
}
