package semantics

// ReachableAddresses walks d's structure (variant children, map keys and
// values, set elements) and returns every Address it contains. It does not
// follow addresses into the store; combine it with Store.Deref in a
// worklist to compute full reachability from a state. Nothing in this
// package, its tests included, calls it.
func ReachableAddresses(d DPattern) []Address {
	var out []Address
	collectAddresses(d, &out)
	return out
}

func collectAddresses(d DPattern, out *[]Address) {
	switch v := d.(type) {
	case Address:
		*out = append(*out, v)
	case VariantValue:
		for _, c := range v.Children {
			collectAddresses(c, out)
		}
	case MapValue:
		for _, e := range v.Entries() {
			collectAddresses(e.Key, out)
			collectAddresses(e.Value, out)
		}
	case SetValue:
		for _, e := range v.Elements() {
			collectAddresses(e, out)
		}
	}
}

// ReachableFromState computes every address reachable from term and
// transitively through the store, starting the worklist at term's own
// addresses. It is a test/diagnostic helper, not part of the reduction
// relation itself (the engine never garbage-collects the store).
func ReachableFromState(st Store, term DPattern) []Address {
	seen := map[string]bool{}
	var result []Address
	worklist := ReachableAddresses(term)
	for len(worklist) > 0 {
		addr := worklist[0]
		worklist = worklist[1:]
		key := addr.Tag + "\x00" + addr.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, addr)
		if raw, ok := st.Lookup(addr); ok {
			if av, isA := raw.(approxValue); isA {
				for _, e := range av.Possibilities.Elements() {
					worklist = append(worklist, ReachableAddresses(e)...)
				}
			} else {
				worklist = append(worklist, ReachableAddresses(raw)...)
			}
		}
	}
	return result
}
