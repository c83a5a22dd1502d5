package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundTripVariant pins spec 8 invariant 7: parse(print(d), s, L) = d
// for a DPattern built from a language's own variants.
func TestRoundTripVariant(t *testing.T) {
	desc := pairDesc()
	lang, err := NewLanguage("l", map[string]Space{
		"Pair": UserSpace{Alternatives: []Alternative{VariantAlt(desc)}},
	})
	require.NoError(t, err)

	d := NewVariantValue(desc, NewNumber(1), NewSymbol("x"))
	wire := Print(d)

	parsed, err := ParseTerm(lang, "Pair", wire)
	require.NoError(t, err)
	assert.True(t, Equal(NewStore(), d, parsed))
}

func TestRoundTripAtoms(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)

	atoms := []Atom{
		NewNumber(3.5),
		NewBoolean(true),
		NewSymbol("sym"),
		NewCharacter('z'),
		NewString("hello"),
	}
	for _, a := range atoms {
		parsed, err := ParseTerm(lang, "Anything", Print(a))
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}
}

func TestRoundTripMapAndSet(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	st := NewStore()

	m := NewEmptyMap(MapDiscrete).Extend(st, NewSymbol("k"), NewNumber(1))
	parsedMap, err := ParseTerm(lang, "Anything", Print(m))
	require.NoError(t, err)
	assert.True(t, Equal(st, m, parsedMap))

	s := NewEmptySet().Add(st, NewNumber(1)).Add(st, NewNumber(2))
	parsedSet, err := ParseTerm(lang, "Anything", Print(s))
	require.NoError(t, err)
	assert.True(t, Equal(st, s, parsedSet))
}

func TestRoundTripAddress(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{
		"Box": AddressSpaceDecl{Tag: "box"},
	})
	require.NoError(t, err)

	addr := Address{Kind: AddrEgal, Tag: "box", ID: 7}
	parsed, err := ParseTerm(lang, "Box", Print(addr))
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
}

func TestParseTermErrorsOnUnknownVariantHead(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{
		"Pair": UserSpace{Alternatives: []Alternative{VariantAlt(pairDesc())}},
	})
	require.NoError(t, err)

	_, err = ParseTerm(lang, "Pair", map[string]any{"head": "nope", "children": []any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variant head")
}

func TestParseTermErrorsOnArityMismatch(t *testing.T) {
	desc := pairDesc()
	lang, err := NewLanguage("l", map[string]Space{
		"Pair": UserSpace{Alternatives: []Alternative{VariantAlt(desc)}},
	})
	require.NoError(t, err)

	_, err = ParseTerm(lang, "Pair", map[string]any{"head": "pair", "children": []any{1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arity mismatch")
}
