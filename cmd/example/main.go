// Command example is a minimal, self-contained tour of pkg/semantics: it
// defines a one-variant "box" language, fires a rule that allocates a
// fresh address and writes a value into it, then dereferences the result
// out of the returned store.
package main

import (
	"fmt"
	"log"

	"github.com/aamify/semantics/pkg/semantics"
)

func main() {
	boxDesc := &semantics.VariantDescriptor{
		Name:       "box",
		Components: []semantics.Component{semantics.AnythingComponent()},
	}

	lang, err := semantics.NewLanguage("boxlang", map[string]semantics.Space{
		"A": semantics.AddressSpaceDecl{Tag: "a"},
	})
	if err != nil {
		log.Fatalf("building language: %v", err)
	}

	boxRule := &semantics.Rule{
		Name: "box-rule",
		LHS:  semantics.V(boxDesc, semantics.B("v")),
		RHS:  semantics.R("a"),
		Bindings: []semantics.BindingForm{
			semantics.BindingClause{
				Pat:  semantics.B("a"),
				Expr: semantics.AllocExpr{Kind: semantics.AddrStructural, SpaceTag: "a", SiteID: "box-site"},
			},
			semantics.StoreExtendBinding{
				Key:   semantics.TermExpr{Pat: semantics.R("a")},
				Value: semantics.TermExpr{Pat: semantics.R("v")},
			},
		},
	}

	term := semantics.NewVariantValue(boxDesc, semantics.NewNumber(42))
	alloc := semantics.NewAllocContext()

	results, err := semantics.ApplyRule(lang, alloc, boxRule, term, semantics.NewStore())
	if err != nil {
		log.Fatalf("applying box-rule: %v", err)
	}
	if len(results) != 1 {
		log.Fatalf("expected exactly one result, got %d", len(results))
	}

	res := results[0]
	addr, ok := res.Value.(semantics.Address)
	if !ok {
		log.Fatalf("expected an address, got %T", res.Value)
	}

	v, q, found := res.Store.Deref(addr)
	if !found {
		log.Fatal("address missing from the result store")
	}

	fmt.Printf("(box 42) reduced to %s\n", addr)
	fmt.Printf("store[%s] = %s (quality %s)\n", addr, v, q)
}
