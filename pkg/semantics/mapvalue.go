package semantics

import "strings"

// MapKind distinguishes the three map value representations: a discrete
// finite function (domain values are concrete, so the fast-path hash
// lookup is always exact), an abstract finite function (domain values may
// themselves be abstract, so equality must fall back to a linear scan
// under the matcher's own equality), and a raw dictionary trusted by its
// producer to be discrete.
type MapKind int

const (
	MapDiscrete MapKind = iota
	MapAbstract
	MapRaw
)

func (k MapKind) String() string {
	switch k {
	case MapDiscrete:
		return "discrete"
	case MapAbstract:
		return "abstract"
	case MapRaw:
		return "raw"
	default:
		return "unknown-map-kind"
	}
}

// MapEntry is one key/value pair of a MapValue.
type MapEntry struct {
	Key   DPattern
	Value DPattern
}

// MapValue is an immutable finite map from DPattern to DPattern. Updates
// are copy-on-write: Extend always returns a new MapValue, never mutating
// the receiver, so a MapValue can be shared freely across environments and
// store snapshots.
type MapValue struct {
	Kind    MapKind
	order   []string
	entries map[string]MapEntry
}

func (MapValue) dpattern() {}

// NewEmptyMap returns an empty map value of the given kind.
func NewEmptyMap(kind MapKind) MapValue {
	return MapValue{Kind: kind, entries: map[string]MapEntry{}}
}

// Entries returns the map's entries in insertion order.
func (m MapValue) Entries() []MapEntry {
	out := make([]MapEntry, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.entries[k])
	}
	return out
}

// Size returns the number of entries in the map.
func (m MapValue) Size() int { return len(m.entries) }

// Lookup returns the value bound to key, if any. It tries an exact
// canonical-key dictionary lookup first; on a miss it falls back to a
// linear scan comparing key against every existing key with Equal, which
// is the only way to find a match when key is, or dereferences through st
// to, a value whose canonical print form differs from an already-stored
// key that is nonetheless structurally equal (spec 4.2: "fast-path
// dictionary lookup first, then fall back to linear scan").
func (m MapValue) Lookup(st Store, key DPattern) (DPattern, bool) {
	if e, ok := m.entries[canonicalKey(key)]; ok {
		return e.Value, true
	}
	for _, k := range m.order {
		e := m.entries[k]
		if Equal(st, e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// InDom reports whether key is bound in m.
func (m MapValue) InDom(st Store, key DPattern) bool {
	_, ok := m.Lookup(st, key)
	return ok
}

// Extend returns a new map with key bound to value, replacing any existing
// binding for a structurally-equal key (found via the same two-tier
// lookup Lookup uses).
func (m MapValue) Extend(st Store, key, value DPattern) MapValue {
	entries := make(map[string]MapEntry, len(m.entries)+1)
	for k, v := range m.entries {
		entries[k] = v
	}
	order := make([]string, len(m.order))
	copy(order, m.order)

	ck := canonicalKey(key)
	if _, exists := entries[ck]; exists {
		entries[ck] = MapEntry{Key: key, Value: value}
		return MapValue{Kind: m.Kind, entries: entries, order: order}
	}
	for _, k := range order {
		if Equal(st, entries[k].Key, key) {
			entries[k] = MapEntry{Key: key, Value: value}
			return MapValue{Kind: m.Kind, entries: entries, order: order}
		}
	}
	entries[ck] = MapEntry{Key: key, Value: value}
	order = append(order, ck)
	return MapValue{Kind: m.Kind, entries: entries, order: order}
}

// ExtendWithPolicy returns a new map with key bound to value, choosing
// between a strong extend (outright overwrite, via Extend) and a weak one
// that joins value with whatever was already bound there — the same
// possibility-set join Store.Extend uses for a weak store write. Map-extend
// needs this because an abstract key may not uniquely identify one domain
// element, so overwriting outright would silently forget a binding that
// might still be live (spec 4.4's trust-strong? override applies here too).
func (m MapValue) ExtendWithPolicy(st Store, key, value DPattern, strong bool) MapValue {
	if strong {
		return m.Extend(st, key, value)
	}
	prior, had := m.Lookup(st, key)
	return m.Extend(st, key, joinApprox(st, prior, had, value))
}

func (m MapValue) String() string {
	parts := make([]string, 0, len(m.order))
	for _, k := range m.order {
		e := m.entries[k]
		parts = append(parts, e.Key.String()+" -> "+e.Value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// mapEqualQuality compares two maps for structural equality: equal size,
// and every entry of a has a structurally-equal entry in b (and vice
// versa, implied by equal size plus no duplicate keys).
func mapEqualQuality(st Store, a, b MapValue) Quality3 {
	if a.Size() != b.Size() {
		return MustFalse
	}
	result := MustTrue
	for _, k := range a.order {
		ea := a.entries[k]
		bv, ok := b.Lookup(st, ea.Key)
		if !ok {
			return MustFalse
		}
		result = conjQuality3(result, equalQuality(st, ea.Value, bv))
		if result == MustFalse {
			return MustFalse
		}
	}
	return result
}
