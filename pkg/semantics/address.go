package semantics

import "strconv"

// AddressKind distinguishes the two disjoint address kinds of the data
// model: structural addresses compare by dereferencing both sides,
// egal addresses compare by syntactic identity alone.
type AddressKind int

const (
	AddrStructural AddressKind = iota
	AddrEgal
)

func (k AddressKind) String() string {
	if k == AddrEgal {
		return "egal"
	}
	return "structural"
}

// Address is a handle into a Store partition. Tag names the address space
// (and so selects the partition); ID is the identifier within that
// partition, assigned by concrete or abstract allocation. Address values
// are immutable and comparable with ==, which is exactly egal-address
// equality; structural-address equality additionally requires
// dereferencing through a Store (see Equal).
type Address struct {
	Kind AddressKind
	Tag  string
	ID   uint64
}

func (Address) dpattern() {}

func (a Address) String() string {
	sigil := "@"
	if a.Kind == AddrEgal {
		sigil = "#@"
	}
	return sigil + a.Tag + ":" + strconv.FormatUint(a.ID, 36)
}

// SameIdentity reports whether a and b name the same (tag, id) pair,
// irrespective of kind. Nothing in this package calls it.
func (a Address) SameIdentity(b Address) bool {
	return a.Tag == b.Tag && a.ID == b.ID
}
