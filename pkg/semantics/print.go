package semantics

import "fmt"

// Print renders d into the same generic tagged-tree shape ParseTerm
// consumes, so that ParseTerm(lang, space, Print(d)) reproduces d for d
// built from the built-in value kinds (spec 6, spec 8 invariant 7's
// round-trip property), with two exceptions: ParseTerm reads every address
// back as an egal address, and it takes a map's kind from the component it
// parses under (discrete where none is given), not from the printed "kind"
// field. External values are rendered for inspection but,
// since an external space's payload is opaque by definition (spec 3),
// Print cannot promise a faithful round-trip for terms containing one;
// that is a per-space concern outside this core's scope.
func Print(d DPattern) any {
	switch v := d.(type) {
	case Atom:
		return printAtom(v)
	case Address:
		return map[string]any{"address": map[string]any{"tag": v.Tag, "id": v.ID}}
	case VariantValue:
		children := make([]any, len(v.Children))
		for i, c := range v.Children {
			children[i] = Print(c)
		}
		return map[string]any{"head": v.Desc.Name, "children": children}
	case MapValue:
		pairs := make([]any, 0, v.Size())
		for _, e := range v.Entries() {
			pairs = append(pairs, []any{Print(e.Key), Print(e.Value)})
		}
		return map[string]any{"map": pairs, "kind": v.Kind.String()}
	case SetValue:
		elems := make([]any, 0, v.Size())
		for _, e := range v.Elements() {
			elems = append(elems, Print(e))
		}
		return map[string]any{"set": elems}
	case ExternalValue:
		return map[string]any{"external": map[string]any{"space": v.SpaceName, "payload": fmt.Sprintf("%v", v.Payload)}}
	case approxValue:
		return map[string]any{"joined": Print(v.Possibilities)}
	default:
		return map[string]any{"unprintable": fmt.Sprintf("%T", d)}
	}
}

func printAtom(a Atom) any {
	switch a.Kind {
	case AtomNumber:
		return a.Num
	case AtomBoolean:
		return a.Bool
	case AtomSymbol:
		return map[string]any{"symbol": a.Sym}
	case AtomCharacter:
		return map[string]any{"char": string(a.Char)}
	case AtomString:
		return map[string]any{"string": a.Str}
	default:
		return map[string]any{"unprintable-atom": true}
	}
}
