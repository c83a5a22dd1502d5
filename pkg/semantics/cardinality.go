package semantics

import (
	"strconv"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Cardinality is the abstract interpreter's per-address upper bound on how
// many concrete values a single abstract address denotes: zero means
// unreachable, one means a single definite value (strong updates are
// sound), omega means the address may stand for arbitrarily many
// concrete addresses (only weak, join-based updates are sound).
type Cardinality int

const (
	CardinalityZero Cardinality = iota
	CardinalityOne
	CardinalityOmega
)

func (c Cardinality) String() string {
	switch c {
	case CardinalityZero:
		return "0"
	case CardinalityOne:
		return "1"
	case CardinalityOmega:
		return "omega"
	default:
		return "?"
	}
}

// Bump advances a cardinality by one more allocation at the same address:
// 0 becomes 1 and 1 (or omega) becomes/stays omega. The abstract allocator
// applies it on every allocation, including the first one at an address.
func (c Cardinality) Bump() Cardinality {
	switch c {
	case CardinalityZero:
		return CardinalityOne
	default:
		return CardinalityOmega
	}
}

// JoinCardinality is the lattice join 0 < 1 < omega.
func JoinCardinality(a, b Cardinality) Cardinality {
	if a > b {
		return a
	}
	return b
}

// CardinalityMap is a persistent, copy-on-write mapping from address
// identifier to Cardinality, carried alongside an AbstractState. It backs
// on the same immutable radix tree used by Environment and Store so that
// extending it never mutates a map another branch is still holding.
type CardinalityMap struct {
	tree *iradix.Tree[Cardinality]
}

// NewCardinalityMap returns an empty cardinality map.
func NewCardinalityMap() CardinalityMap {
	return CardinalityMap{tree: iradix.New[Cardinality]()}
}

func cardinalityKey(addr Address) []byte {
	return []byte(addr.Tag + "\x00" + strconv.FormatUint(addr.ID, 36))
}

// Get returns the address's current cardinality, CardinalityZero if it has
// no entry (unreachable).
func (m CardinalityMap) Get(addr Address) Cardinality {
	if m.tree == nil {
		return CardinalityZero
	}
	if v, ok := m.tree.Get(cardinalityKey(addr)); ok {
		return v
	}
	return CardinalityZero
}

// Bump returns a new map with addr's cardinality advanced one step
// (0->1->omega), per spec's allocation policy.
func (m CardinalityMap) Bump(addr Address) CardinalityMap {
	t := m.tree
	if t == nil {
		t = iradix.New[Cardinality]()
	}
	next := m.Get(addr).Bump()
	nt, _, _ := t.Insert(cardinalityKey(addr), next)
	return CardinalityMap{tree: nt}
}

// Join returns the pointwise lattice join of two cardinality maps, used
// when a state reachable two different ways must be reconciled to a single
// sound over-approximation.
func (m CardinalityMap) Join(other CardinalityMap) CardinalityMap {
	result := m
	if other.tree == nil {
		return result
	}
	iter := other.tree.Iterator()
	for {
		k, v, ok := iter.Next()
		if !ok {
			break
		}
		t := result.tree
		if t == nil {
			t = iradix.New[Cardinality]()
		}
		existing, _ := t.Get(k)
		nt, _, _ := t.Insert(k, JoinCardinality(existing, v))
		result = CardinalityMap{tree: nt}
	}
	return result
}

// Len reports how many addresses currently have a cardinality entry.
func (m CardinalityMap) Len() int {
	if m.tree == nil {
		return 0
	}
	return m.tree.Len()
}
