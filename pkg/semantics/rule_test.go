package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lambdaDescs builds the tiny call-by-value lambda calculus space used by
// spec 8 scenario S1: App/Lam/Var variants over a symbol-tagged Var space.
func lambdaDescs() (app, lam, vr *VariantDescriptor) {
	app = &VariantDescriptor{Name: "App", Components: []Component{AnythingComponent(), AnythingComponent()}}
	lam = &VariantDescriptor{Name: "Lam", Components: []Component{AnythingComponent(), AnythingComponent()}}
	vr = &VariantDescriptor{Name: "Var", Components: []Component{AnythingComponent()}}
	return
}

// TestApplyRuleBetaReduction realizes spec 8 scenario S1: applying the beta
// rule to (App (Lam a (Var a)) (Var b)) substitutes the argument for the
// bound variable and yields (Var b). subst here is a trusted meta-function
// rather than a rule set, standing in for the fuller substitution
// meta-function a real language would define with rules of its own.
func TestApplyRuleBetaReduction(t *testing.T) {
	app, lam, vr := lambdaDescs()

	substMF := &MetaFunction{
		Name: "subst",
		TrustedConcrete: func(st Store, arg DPattern) (DPattern, Store, error) {
			tuple := arg.(VariantValue)
			body, name, repl := tuple.Children[0], tuple.Children[1], tuple.Children[2]
			return substitute(body, name.(Atom).Sym, repl), st, nil
		},
	}
	tupleDesc := &VariantDescriptor{Name: "subst-args", Components: []Component{AnythingComponent(), AnythingComponent(), AnythingComponent()}}

	lang, err := NewLanguage("lambda", map[string]Space{
		"E": UserSpace{Alternatives: []Alternative{VariantAlt(app), VariantAlt(lam), VariantAlt(vr)}},
	}, WithMetaFunctions(map[string]*MetaFunction{"subst": substMF}))
	require.NoError(t, err)

	beta := &Rule{
		Name: "beta",
		LHS: V(app, V(lam, B("x"), B("body")), B("arg")),
		RHS: R("result"),
		Bindings: []BindingForm{
			BindingClause{
				Pat: B("result"),
				Expr: MetaCallExpr{
					FuncName: "subst",
					ArgPat:   V(tupleDesc, R("body"), R("x"), R("arg")),
				},
			},
		},
	}

	term := NewVariantValue(app,
		NewVariantValue(lam, NewSymbol("a"), NewVariantValue(vr, NewSymbol("a"))),
		NewVariantValue(vr, NewSymbol("b")),
	)

	alloc := NewAllocContext()
	results, err := ApplyRule(lang, alloc, beta, term, NewStore())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, NewVariantValue(vr, NewSymbol("b")), results[0].Value)
}

// substitute is a tiny capture-agnostic substitution helper used only to
// ground the trusted subst meta-function above; it is not part of the
// engine's public surface.
func substitute(body DPattern, name string, repl DPattern) DPattern {
	v, ok := body.(VariantValue)
	if !ok {
		return body
	}
	if v.Desc.Name == "Var" && v.Children[0].(Atom).Sym == name {
		return repl
	}
	children := make([]DPattern, len(v.Children))
	for i, c := range v.Children {
		children[i] = substitute(c, name, repl)
	}
	return NewVariantValue(v.Desc, children...)
}

// TestApplyRuleBoxAllocation realizes spec 8 scenario S2: a box rule
// allocates a fresh address, writes the boxed value, and yields the
// address as its successor term; Store-lookup at that address recovers 42.
func TestApplyRuleBoxAllocation(t *testing.T) {
	boxDesc := &VariantDescriptor{Name: "box", Components: []Component{AnythingComponent()}}
	lang, err := NewLanguage("boxlang", map[string]Space{
		"A": AddressSpaceDecl{Tag: "a"},
	})
	require.NoError(t, err)

	rule := &Rule{
		Name: "box-rule",
		LHS:  V(boxDesc, B("v")),
		RHS:  R("a"),
		Bindings: []BindingForm{
			BindingClause{Pat: B("a"), Expr: AllocExpr{Kind: AddrStructural, SpaceTag: "a", SiteID: "box-site"}},
			StoreExtendBinding{Key: TermExpr{Pat: R("a")}, Value: TermExpr{Pat: R("v")}},
		},
	}

	term := NewVariantValue(boxDesc, NewNumber(42))
	alloc := NewAllocContext()
	results, err := ApplyRule(lang, alloc, rule, term, NewStore())
	require.NoError(t, err)
	require.Len(t, results, 1)

	addr, ok := results[0].Value.(Address)
	require.True(t, ok)
	v, q, found := results[0].Store.Deref(addr)
	require.True(t, found)
	assert.Equal(t, QualityMust, q)
	assert.Equal(t, NewNumber(42), v)
}

func TestApplyRuleNoMatchYieldsEmptyResultSet(t *testing.T) {
	_, lam, _ := lambdaDescs()
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	rule := &Rule{Name: "no-match", LHS: V(lam, B("x"), B("body")), RHS: R("body")}
	alloc := NewAllocContext()
	results, err := ApplyRule(lang, alloc, rule, NewNumber(1), NewStore())
	require.NoError(t, err)
	assert.Empty(t, results, "a failed match is silent, not an error")
}

func TestApplyRuleWhenClausePrunesBranch(t *testing.T) {
	lang, err := NewLanguage("l", map[string]Space{})
	require.NoError(t, err)
	rule := &Rule{
		Name: "guarded",
		LHS:  B("n"),
		RHS:  R("n"),
		Bindings: []BindingForm{
			WhenClause{Expr: EqualExpr{L: TermExpr{Pat: R("n")}, R: TermExpr{Pat: A(NewNumber(1))}}},
		},
	}
	alloc := NewAllocContext()

	results, err := ApplyRule(lang, alloc, rule, NewNumber(1), NewStore())
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = ApplyRule(lang, alloc, rule, NewNumber(2), NewStore())
	require.NoError(t, err)
	assert.Empty(t, results, "the When guard prunes n=2")
}
