package semantics

import "hash/fnv"

// AllocContext is the per-run source of freshness for concrete allocation:
// a monotonic counter, scoped to one interpreter run rather than held as
// process-wide global state, so two runs (or two tests) never share
// addresses and reentrancy needs no synchronization (spec 5, spec 9's
// "global allocation counter... scope it to a per-run context").
type AllocContext struct {
	next uint64
}

// NewAllocContext returns a fresh allocation context with no addresses
// issued yet.
func NewAllocContext() *AllocContext {
	return &AllocContext{}
}

// nextConcrete returns a fresh, never-before-issued identifier.
func (c *AllocContext) nextConcrete() uint64 {
	c.next++
	return c.next
}

// abstractAddressID derives a deterministic address identifier from the
// allocating rule or meta-function's name, a site identifier naming the
// particular Alloc expression within it, and an optional client hint. Two
// evaluations of the same allocation site with the same hint always name
// the same address, which is what lets repeated firings of a rule converge
// onto a single omega-cardinality address instead of minting a fresh one
// forever (spec 4.4: "Abstract allocation yields an identifier deterministic
// in (rule name, allocation site, abstract context)"). hash/fnv is a plain
// deterministic mixing function, not a domain concern with a pack-library
// alternative, so stdlib is the natural tool here.
func abstractAddressID(origin, siteID string, hint DPattern) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(origin))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(siteID))
	if hint != nil {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(hint.String()))
	}
	return h.Sum64()
}

// allocate mints an address in spaceTag of the given kind, bumping cm's
// cardinality entry for it when running abstractly. Concrete allocation
// always produces a brand new identifier (cm is returned unchanged — the
// concrete interpreter does not track cardinality); abstract allocation
// reuses abstractAddressID and bumps the resulting address's count, which
// is what lets a second firing of the same site saturate it to omega.
func allocate(ac *AllocContext, cm CardinalityMap, kind AddressKind, spaceTag, origin, siteID string, hint DPattern, abstract bool) (Address, CardinalityMap) {
	var id uint64
	if abstract {
		id = abstractAddressID(origin, siteID, hint)
	} else {
		id = ac.nextConcrete()
	}
	addr := Address{Kind: kind, Tag: spaceTag, ID: id}
	if abstract {
		cm = cm.Bump(addr)
	}
	return addr, cm
}

// writeIsStrong decides whether a store or map write at addr should
// overwrite (strong) or join (weak), per spec 4.4: concrete writes are
// always strong (the concrete interpreter never tracks cardinality, so
// there is no joining to do); abstract writes are strong only while addr's
// count has not yet saturated to omega, unless trustStrong overrides the
// policy to always-strong because the caller asserts the address is
// logically unique regardless of what the cardinality map says.
func writeIsStrong(cm CardinalityMap, addr Address, trustStrong, abstract bool) bool {
	if !abstract {
		return true
	}
	if trustStrong {
		return true
	}
	return cm.Get(addr) != CardinalityOmega
}
