package semantics

// StoreEffect is the store-interaction classifier spec 4.3 attaches to
// every expression form. The evaluator never consults it to decide
// behavior — it is purely an optimization hint a caller may use to, say,
// memoize a read-only subexpression or represent a write-only one as a
// delta — so it is safe to compute structurally from an expression's own
// shape.
type StoreEffect uint8

const (
	EffectRead StoreEffect = 1 << iota
	EffectWrite
	EffectCardinality
	EffectAlloc
	EffectMany
)

// Expr is an expression in the evaluator's language: anything that can be
// handed to Evaluate/EvaluateAbstract together with an environment and a
// store.
type Expr interface {
	isExpr()
	// Classifier reports this expression's (and its children's) aggregate
	// store-interaction bits. See StoreEffect.
	Classifier() StoreEffect
}

func orChildren(effect StoreEffect, children ...Expr) StoreEffect {
	for _, c := range children {
		if c != nil {
			effect |= c.Classifier()
		}
	}
	return effect
}

// TermExpr instantiates pat against the current environment; it has no
// store effect of its own.
type TermExpr struct{ Pat Pattern }

func (TermExpr) isExpr()                    {}
func (e TermExpr) Classifier() StoreEffect  { return 0 }

// LitBoolExpr yields the literal boolean Value.
type LitBoolExpr struct{ Value bool }

func (LitBoolExpr) isExpr()                   {}
func (e LitBoolExpr) Classifier() StoreEffect { return 0 }

// MapLookupExpr looks Key up in Map; on a miss it evaluates Default if
// HasDefault, else it is a partial-operation error.
type MapLookupExpr struct {
	Map        Expr
	Key        Expr
	HasDefault bool
	Default    Expr
}

func (MapLookupExpr) isExpr() {}
func (e MapLookupExpr) Classifier() StoreEffect {
	return orChildren(EffectRead, e.Map, e.Key, e.Default)
}

// MapExtendExpr returns a new map extending Map with Key bound to Value.
// TrustStrong forces a strong (overwrite) extend even under abstraction.
type MapExtendExpr struct {
	Map         Expr
	Key         Expr
	Value       Expr
	TrustStrong bool
}

func (MapExtendExpr) isExpr() {}
func (e MapExtendExpr) Classifier() StoreEffect {
	return orChildren(EffectCardinality, e.Map, e.Key, e.Value)
}

// StoreLookupExpr reads the store at the address Key evaluates to. An
// unmapped address is always an error (spec 7).
type StoreLookupExpr struct{ Key Expr }

func (StoreLookupExpr) isExpr() {}
func (e StoreLookupExpr) Classifier() StoreEffect {
	return orChildren(EffectRead, e.Key)
}

// StoreExtendExpr writes Value at the address Key evaluates to, yielding
// Value itself as its result. Spec 4.3 documents this primarily as a
// binding-list form (see StoreExtendBinding); it is also usable as a
// general expression since nothing about the write depends on binding-list
// context.
type StoreExtendExpr struct {
	Key         Expr
	Value       Expr
	TrustStrong bool
}

func (StoreExtendExpr) isExpr() {}
func (e StoreExtendExpr) Classifier() StoreEffect {
	return orChildren(EffectWrite|EffectCardinality, e.Key, e.Value)
}

// IfExpr scrutinizes Cond and evaluates Then or Else once per Cond result,
// carrying that result's quality. Under abstraction both branches are
// explored when Cond yields both a true and a false result (as EqualExpr and
// InSetExpr do for a May answer).
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (IfExpr) isExpr() {}
func (e IfExpr) Classifier() StoreEffect {
	return orChildren(0, e.Cond, e.Then, e.Else)
}

// LetExpr runs Bindings in order, extending env and threading the store,
// then evaluates Body in the resulting environment(s).
type LetExpr struct {
	Bindings []BindingForm
	Body     Expr
}

func (LetExpr) isExpr() {}
func (e LetExpr) Classifier() StoreEffect {
	eff := StoreEffect(0)
	for _, b := range e.Bindings {
		eff |= b.classifier()
	}
	return orChildren(eff, e.Body)
}

// EqualExpr yields True/False for structural equality of L and R.
type EqualExpr struct{ L, R Expr }

func (EqualExpr) isExpr() {}
func (e EqualExpr) Classifier() StoreEffect {
	return orChildren(EffectRead, e.L, e.R)
}

// InDomExpr tests whether Key is bound in Map.
type InDomExpr struct {
	Map Expr
	Key Expr
}

func (InDomExpr) isExpr() {}
func (e InDomExpr) Classifier() StoreEffect {
	return orChildren(EffectRead, e.Map, e.Key)
}

// InSetExpr tests whether Elem is a member of Set.
type InSetExpr struct {
	Set  Expr
	Elem Expr
}

func (InSetExpr) isExpr() {}
func (e InSetExpr) Classifier() StoreEffect {
	return orChildren(EffectRead, e.Set, e.Elem)
}

// EmptySetExpr yields the empty set.
type EmptySetExpr struct{}

func (EmptySetExpr) isExpr()                   {}
func (e EmptySetExpr) Classifier() StoreEffect { return 0 }

// SetUnionExpr yields the union of every set in Sets.
type SetUnionExpr struct{ Sets []Expr }

func (SetUnionExpr) isExpr() {}
func (e SetUnionExpr) Classifier() StoreEffect {
	return orChildren(EffectRead, e.Sets...)
}

// SetAddStarExpr yields Set with every element of Elems added.
type SetAddStarExpr struct {
	Set   Expr
	Elems []Expr
}

func (SetAddStarExpr) isExpr() {}
func (e SetAddStarExpr) Classifier() StoreEffect {
	return orChildren(EffectRead, append([]Expr{e.Set}, e.Elems...)...)
}

// MetaCallExpr invokes the meta-function FuncName on the pattern ArgPat
// instantiated against the current environment.
type MetaCallExpr struct {
	FuncName string
	ArgPat   Pattern
}

func (MetaCallExpr) isExpr()                   {}
func (e MetaCallExpr) Classifier() StoreEffect { return EffectRead | EffectWrite | EffectMany }

// ChooseExpr evaluates Set (which must yield a SetValue) and
// non-deterministically selects one element per member.
type ChooseExpr struct{ Set Expr }

func (ChooseExpr) isExpr() {}
func (e ChooseExpr) Classifier() StoreEffect {
	return orChildren(EffectMany, e.Set)
}

// AllocExpr allocates a fresh address of Kind in SpaceTag. SiteID names the
// allocation site for abstract addressing (see abstractAddressID); Hint,
// if non-nil, is evaluated and folded into the abstract identifier (the
// `Q` family of allocation forms in spec 4.3).
type AllocExpr struct {
	Kind    AddressKind
	SpaceTag string
	SiteID  string
	Hint    Expr
}

func (AllocExpr) isExpr() {}
func (e AllocExpr) Classifier() StoreEffect {
	return orChildren(EffectAlloc|EffectCardinality, e.Hint)
}

// UnsafeStoreSpaceRefExpr exposes the entire store as a raw, two-level
// dictionary value: an escape hatch, allowed only where a language
// definition documents it (spec 4.3).
type UnsafeStoreSpaceRefExpr struct{}

func (UnsafeStoreSpaceRefExpr) isExpr()                   {}
func (e UnsafeStoreSpaceRefExpr) Classifier() StoreEffect { return EffectRead }

// UnsafeStoreRefExpr exposes one address-space partition of the store as a
// raw dictionary value keyed by address identifier.
type UnsafeStoreRefExpr struct{ SpaceTag string }

func (UnsafeStoreRefExpr) isExpr()                   {}
func (e UnsafeStoreRefExpr) Classifier() StoreEffect { return EffectRead }

// BindingForm is one step of a binding list (spec 4.5): Binding, a
// Store-extend write, or a When side condition. Binding lists are used by
// both LetExpr and rule side-conditions (see rule.go).
type BindingForm interface {
	isBindingForm()
	classifier() StoreEffect
}

// BindingClause evaluates Expr and matches Pat against each result,
// pruning branches where the match fails.
type BindingClause struct {
	Pat  Pattern
	Expr Expr
}

func (BindingClause) isBindingForm()          {}
func (b BindingClause) classifier() StoreEffect { return b.Expr.Classifier() }

// StoreExtendBinding evaluates Key and Value and writes the store, binding
// no pattern variable.
type StoreExtendBinding struct {
	Key         Expr
	Value       Expr
	TrustStrong bool
}

func (StoreExtendBinding) isBindingForm() {}
func (b StoreExtendBinding) classifier() StoreEffect {
	return orChildren(EffectWrite|EffectCardinality, b.Key, b.Value)
}

// WhenClause evaluates Expr; a truthy result continues the binding list, a
// falsy one prunes the branch.
type WhenClause struct{ Expr Expr }

func (WhenClause) isBindingForm()          {}
func (w WhenClause) classifier() StoreEffect { return w.Expr.Classifier() }

// EvalResult is one effectful outcome of evaluating an Expr: a value, the
// store as of that outcome, the cardinality map as of that outcome
// (unused/zero-value in concrete evaluation), and a Quality tagging whether
// this outcome follows definitely or only possibly from the input.
type EvalResult struct {
	Value   DPattern
	Store   Store
	Count   CardinalityMap
	Quality Quality
}

// ResultSet is the (spec 4.3) finite, unordered, deduplicated set of
// effectful results an evaluation produces. Go slices do not enforce
// set-like semantics on their own; Dedup restores them when a caller needs
// the invariant spec 9 requires for memoization.
type ResultSet []EvalResult

// Dedup removes result records with identical (value print form, store
// print form, quality); see spec 9's "do not conflate with a list".
func (rs ResultSet) Dedup() ResultSet {
	seen := map[string]bool{}
	out := make(ResultSet, 0, len(rs))
	for _, r := range rs {
		key := r.Quality.String() + "\x00" + r.Store.String() + "\x00" + r.Value.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func singleton(value DPattern, st Store, cm CardinalityMap, q Quality) ResultSet {
	return ResultSet{{Value: value, Store: st, Count: cm, Quality: q}}
}

// interpreter carries the fixed parameters of one evaluation: the
// language, the allocation context supplying concrete freshness, the name
// of the enclosing rule or meta-function (surfaced to allocation per spec
// 4.4/4.6), and whether this run is abstract.
type interpreter struct {
	lang     *Language
	alloc    *AllocContext
	origin   string
	abstract bool
}

// Evaluate runs expr concretely: deterministic choices yield a singleton
// result; expressions with intrinsic non-determinism (Choose) still yield
// one result per member, as spec 4.3/S4 require, but no May quality or
// cardinality tracking ever appears.
func Evaluate(lang *Language, alloc *AllocContext, originName string, expr Expr, env Environment, st Store) (ResultSet, error) {
	it := &interpreter{lang: lang, alloc: alloc, origin: originName, abstract: false}
	return it.eval(expr, env, st, NewCardinalityMap())
}

// EvaluateAbstract runs expr under abstraction: store writes consult cm to
// decide strong vs weak, allocation is deterministic in (origin, site,
// hint) and bumps cm, and results carry Must/May quality.
func EvaluateAbstract(lang *Language, alloc *AllocContext, originName string, expr Expr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	it := &interpreter{lang: lang, alloc: alloc, origin: originName, abstract: true}
	return it.eval(expr, env, st, cm)
}

func (it *interpreter) eval(expr Expr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	switch e := expr.(type) {
	case TermExpr:
		v, err := Instantiate(it.lang, e.Pat, env)
		if err != nil {
			return nil, err
		}
		return singleton(v, st, cm, QualityMust), nil

	case LitBoolExpr:
		return singleton(boolAtom(e.Value), st, cm, QualityMust), nil

	case MapLookupExpr:
		return it.evalMapLookup(e, env, st, cm)

	case MapExtendExpr:
		return it.evalMapExtend(e, env, st, cm)

	case StoreLookupExpr:
		return it.evalStoreLookup(e, env, st, cm)

	case StoreExtendExpr:
		return it.evalStoreExtendExpr(e, env, st, cm)

	case IfExpr:
		return it.evalIf(e, env, st, cm)

	case LetExpr:
		return it.evalLet(e, env, st, cm)

	case EqualExpr:
		return it.evalEqual(e, env, st, cm)

	case InDomExpr:
		return it.evalInDom(e, env, st, cm)

	case InSetExpr:
		return it.evalInSet(e, env, st, cm)

	case EmptySetExpr:
		return singleton(NewEmptySet(), st, cm, QualityMust), nil

	case SetUnionExpr:
		return it.evalSetUnion(e, env, st, cm)

	case SetAddStarExpr:
		return it.evalSetAddStar(e, env, st, cm)

	case MetaCallExpr:
		return it.evalMetaCall(e, env, st, cm)

	case ChooseExpr:
		return it.evalChoose(e, env, st, cm)

	case AllocExpr:
		return it.evalAlloc(e, env, st, cm)

	case UnsafeStoreSpaceRefExpr:
		return singleton(unsafeStoreSnapshot(st), st, cm, QualityMust), nil

	case UnsafeStoreRefExpr:
		return singleton(unsafePartitionSnapshot(st, e.SpaceTag), st, cm, QualityMust), nil

	default:
		return nil, newError(StageExprEval, nil, "unrecognized expression kind %T", expr)
	}
}

func boolAtom(b bool) Atom {
	if b {
		return True
	}
	return False
}

func (it *interpreter) evalMapLookup(e MapLookupExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	mapResults, err := it.eval(e.Map, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, mr := range mapResults {
		mv, ok := mr.Value.(MapValue)
		if !ok {
			return nil, newError(StageExprEval, mr.Value, "Map-lookup target is not a map")
		}
		keyResults, err := it.eval(e.Key, env, mr.Store, mr.Count)
		if err != nil {
			return nil, err
		}
		for _, kr := range keyResults {
			if v, found := mv.Lookup(kr.Store, kr.Value); found {
				out = append(out, EvalResult{Value: v, Store: kr.Store, Count: kr.Count, Quality: combineQuality(mr.Quality, kr.Quality)})
				continue
			}
			if !e.HasDefault {
				return nil, newError(StageExprEval, kr.Value, "Map-lookup: key not in domain and no default given")
			}
			defResults, err := it.eval(e.Default, env, kr.Store, kr.Count)
			if err != nil {
				return nil, err
			}
			for _, dr := range defResults {
				out = append(out, EvalResult{Value: dr.Value, Store: dr.Store, Count: dr.Count, Quality: combineQuality(combineQuality(mr.Quality, kr.Quality), dr.Quality)})
			}
		}
	}
	return out, nil
}

func (it *interpreter) evalMapExtend(e MapExtendExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	mapResults, err := it.eval(e.Map, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, mr := range mapResults {
		mv, ok := mr.Value.(MapValue)
		if !ok {
			return nil, newError(StageExprEval, mr.Value, "Map-extend target is not a map")
		}
		keyResults, err := it.eval(e.Key, env, mr.Store, mr.Count)
		if err != nil {
			return nil, err
		}
		for _, kr := range keyResults {
			valResults, err := it.eval(e.Value, env, kr.Store, kr.Count)
			if err != nil {
				return nil, err
			}
			for _, vr := range valResults {
				strong := writeIsStrong(vr.Count, mapKeyAddress(kr.Value), e.TrustStrong, it.abstract)
				nmv := mv.ExtendWithPolicy(vr.Store, kr.Value, vr.Value, strong)
				q := combineQuality(combineQuality(mr.Quality, kr.Quality), vr.Quality)
				out = append(out, EvalResult{Value: nmv, Store: vr.Store, Count: vr.Count, Quality: q})
			}
		}
	}
	return out, nil
}

// mapKeyAddress extracts the Address a Map-extend key denotes, if any, so
// writeIsStrong can consult its cardinality; a non-address key is always
// treated as cardinality-1 (always strong, modulo TrustStrong/abstraction),
// since cardinality only models address saturation.
func mapKeyAddress(key DPattern) Address {
	if a, ok := key.(Address); ok {
		return a
	}
	return Address{}
}

func (it *interpreter) evalStoreLookup(e StoreLookupExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	keyResults, err := it.eval(e.Key, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, kr := range keyResults {
		addr, ok := kr.Value.(Address)
		if !ok {
			return nil, newError(StageExprEval, kr.Value, "Store-lookup key is not an address")
		}
		if it.abstract {
			candidates, q, found := kr.Store.DerefCandidates(addr)
			if !found {
				return nil, newError(StageExprEval, kr.Value, "Store-lookup on unmapped address %s", addr.String())
			}
			for _, cand := range candidates {
				out = append(out, EvalResult{Value: cand, Store: kr.Store, Count: kr.Count, Quality: combineQuality(kr.Quality, q)})
			}
			continue
		}
		v, q, found := kr.Store.Deref(addr)
		if !found {
			return nil, newError(StageExprEval, kr.Value, "Store-lookup on unmapped address %s", addr.String())
		}
		out = append(out, EvalResult{Value: v, Store: kr.Store, Count: kr.Count, Quality: combineQuality(kr.Quality, q)})
	}
	return out, nil
}

func (it *interpreter) evalStoreExtendExpr(e StoreExtendExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	keyResults, err := it.eval(e.Key, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, kr := range keyResults {
		addr, ok := kr.Value.(Address)
		if !ok {
			return nil, newError(StageExprEval, kr.Value, "Store-extend key is not an address")
		}
		valResults, err := it.eval(e.Value, env, kr.Store, kr.Count)
		if err != nil {
			return nil, err
		}
		for _, vr := range valResults {
			strong := writeIsStrong(vr.Count, addr, e.TrustStrong, it.abstract)
			nst := vr.Store.Extend(addr, vr.Value, strong)
			out = append(out, EvalResult{Value: vr.Value, Store: nst, Count: vr.Count, Quality: combineQuality(kr.Quality, vr.Quality)})
		}
	}
	return out, nil
}

func (it *interpreter) evalIf(e IfExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	condResults, err := it.eval(e.Cond, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, cr := range condResults {
		branch := e.Else
		if Truthy(cr.Value) {
			branch = e.Then
		}
		branchResults, err := it.eval(branch, env, cr.Store, cr.Count)
		if err != nil {
			return nil, err
		}
		for _, br := range branchResults {
			out = append(out, EvalResult{Value: br.Value, Store: br.Store, Count: br.Count, Quality: combineQuality(cr.Quality, br.Quality)})
		}
	}
	return out, nil
}

func (it *interpreter) evalLet(e LetExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	branches, err := it.runBindings(e.Bindings, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, b := range branches {
		bodyResults, err := it.eval(e.Body, b.env, b.store, b.count)
		if err != nil {
			return nil, err
		}
		for _, br := range bodyResults {
			out = append(out, EvalResult{Value: br.Value, Store: br.Store, Count: br.Count, Quality: combineQuality(b.qual, br.Quality)})
		}
	}
	return out, nil
}

type bindingOutcome struct {
	env   Environment
	store Store
	count CardinalityMap
	qual  Quality
}

// runBindings runs a whole binding list in order starting from
// (env, st, cm), folding each step's survivors into the next via
// runBindingForm. An empty return means every branch was pruned. Shared by
// LetExpr and the rule/meta-function driver (rule.go), which both run a
// binding list before instantiating a result.
func (it *interpreter) runBindings(bindings []BindingForm, env Environment, st Store, cm CardinalityMap) ([]bindingOutcome, error) {
	branches := []bindingOutcome{{env: env, store: st, count: cm, qual: QualityMust}}
	for _, bf := range bindings {
		var next []bindingOutcome
		for _, b := range branches {
			more, err := it.runBindingForm(bf, b.env, b.store, b.count)
			if err != nil {
				return nil, err
			}
			for _, m := range more {
				next = append(next, bindingOutcome{env: m.env, store: m.store, count: m.count, qual: combineQuality(b.qual, m.qual)})
			}
		}
		branches = next
		if len(branches) == 0 {
			return nil, nil
		}
	}
	return branches, nil
}

// runBindingForm evaluates one binding-list step, returning every surviving
// (env, store, count, quality) branch. Shared by LetExpr and the rule/
// meta-function driver's side-condition phase (see rule.go).
func (it *interpreter) runBindingForm(bf BindingForm, env Environment, st Store, cm CardinalityMap) ([]bindingOutcome, error) {
	switch b := bf.(type) {
	case BindingClause:
		results, err := it.eval(b.Expr, env, st, cm)
		if err != nil {
			return nil, err
		}
		var out []bindingOutcome
		for _, r := range results {
			var nenv Environment
			var ok bool
			var q Quality
			if it.abstract {
				matches, err := MatchAbstract(it.lang, b.Pat, r.Value, env, r.Store)
				if err != nil {
					return nil, err
				}
				for _, m := range matches {
					out = append(out, bindingOutcome{env: m.Env, store: r.Store, count: r.Count, qual: combineQuality(r.Quality, m.Quality)})
				}
				continue
			}
			nenv, ok, err = MatchConcrete(it.lang, b.Pat, r.Value, env, r.Store)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			q = r.Quality
			out = append(out, bindingOutcome{env: nenv, store: r.Store, count: r.Count, qual: q})
		}
		return out, nil

	case StoreExtendBinding:
		results, err := it.eval(StoreExtendExpr{Key: b.Key, Value: b.Value, TrustStrong: b.TrustStrong}, env, st, cm)
		if err != nil {
			return nil, err
		}
		var out []bindingOutcome
		for _, r := range results {
			out = append(out, bindingOutcome{env: env, store: r.Store, count: r.Count, qual: r.Quality})
		}
		return out, nil

	case WhenClause:
		results, err := it.eval(b.Expr, env, st, cm)
		if err != nil {
			return nil, err
		}
		var out []bindingOutcome
		for _, r := range results {
			if !Truthy(r.Value) {
				continue
			}
			out = append(out, bindingOutcome{env: env, store: r.Store, count: r.Count, qual: r.Quality})
		}
		return out, nil

	default:
		return nil, newError(StageExprEval, nil, "unrecognized binding form %T", bf)
	}
}

func (it *interpreter) evalEqual(e EqualExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	lResults, err := it.eval(e.L, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, lr := range lResults {
		rResults, err := it.eval(e.R, env, lr.Store, lr.Count)
		if err != nil {
			return nil, err
		}
		for _, rr := range rResults {
			q := equalQuality(rr.Store, lr.Value, rr.Value)
			base := combineQuality(lr.Quality, rr.Quality)
			switch q {
			case MustTrue:
				out = append(out, EvalResult{Value: True, Store: rr.Store, Count: rr.Count, Quality: base})
			case MustFalse:
				out = append(out, EvalResult{Value: False, Store: rr.Store, Count: rr.Count, Quality: base})
			case May:
				out = append(out, EvalResult{Value: True, Store: rr.Store, Count: rr.Count, Quality: QualityMay})
				out = append(out, EvalResult{Value: False, Store: rr.Store, Count: rr.Count, Quality: QualityMay})
			}
		}
	}
	return out, nil
}

func (it *interpreter) evalInDom(e InDomExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	mapResults, err := it.eval(e.Map, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, mr := range mapResults {
		mv, ok := mr.Value.(MapValue)
		if !ok {
			return nil, newError(StageExprEval, mr.Value, "In-Dom target is not a map")
		}
		keyResults, err := it.eval(e.Key, env, mr.Store, mr.Count)
		if err != nil {
			return nil, err
		}
		for _, kr := range keyResults {
			out = append(out, EvalResult{Value: boolAtom(mv.InDom(kr.Store, kr.Value)), Store: kr.Store, Count: kr.Count, Quality: combineQuality(mr.Quality, kr.Quality)})
		}
	}
	return out, nil
}

func (it *interpreter) evalInSet(e InSetExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	setResults, err := it.eval(e.Set, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, sr := range setResults {
		sv, ok := sr.Value.(SetValue)
		if !ok {
			return nil, newError(StageExprEval, sr.Value, "In-Set target is not a set")
		}
		elemResults, err := it.eval(e.Elem, env, sr.Store, sr.Count)
		if err != nil {
			return nil, err
		}
		for _, er := range elemResults {
			q := setMemberQuality(er.Store, sv, er.Value)
			base := combineQuality(sr.Quality, er.Quality)
			switch q {
			case MustTrue:
				out = append(out, EvalResult{Value: True, Store: er.Store, Count: er.Count, Quality: base})
			case MustFalse:
				out = append(out, EvalResult{Value: False, Store: er.Store, Count: er.Count, Quality: base})
			case May:
				out = append(out, EvalResult{Value: True, Store: er.Store, Count: er.Count, Quality: QualityMay})
				out = append(out, EvalResult{Value: False, Store: er.Store, Count: er.Count, Quality: QualityMay})
			}
		}
	}
	return out, nil
}

func (it *interpreter) evalSetUnion(e SetUnionExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	acc := ResultSet{{Value: NewEmptySet(), Store: st, Count: cm, Quality: QualityMust}}
	for _, sexpr := range e.Sets {
		var next ResultSet
		for _, a := range acc {
			setResults, err := it.eval(sexpr, env, a.Store, a.Count)
			if err != nil {
				return nil, err
			}
			for _, sr := range setResults {
				sv, ok := sr.Value.(SetValue)
				if !ok {
					return nil, newError(StageExprEval, sr.Value, "Set-Union member is not a set")
				}
				av, _ := a.Value.(SetValue)
				next = append(next, EvalResult{Value: av.Union(sr.Store, sv), Store: sr.Store, Count: sr.Count, Quality: combineQuality(a.Quality, sr.Quality)})
			}
		}
		acc = next
	}
	return acc, nil
}

func (it *interpreter) evalSetAddStar(e SetAddStarExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	setResults, err := it.eval(e.Set, env, st, cm)
	if err != nil {
		return nil, err
	}
	acc := setResults
	for _, elemExpr := range e.Elems {
		var next ResultSet
		for _, a := range acc {
			sv, ok := a.Value.(SetValue)
			if !ok {
				return nil, newError(StageExprEval, a.Value, "Set-Add* target is not a set")
			}
			elemResults, err := it.eval(elemExpr, env, a.Store, a.Count)
			if err != nil {
				return nil, err
			}
			for _, er := range elemResults {
				next = append(next, EvalResult{Value: sv.Add(er.Store, er.Value), Store: er.Store, Count: er.Count, Quality: combineQuality(a.Quality, er.Quality)})
			}
		}
		acc = next
	}
	return acc, nil
}

func (it *interpreter) evalChoose(e ChooseExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	setResults, err := it.eval(e.Set, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, sr := range setResults {
		sv, ok := sr.Value.(SetValue)
		if !ok {
			return nil, newError(StageExprEval, sr.Value, "Choose target is not a set")
		}
		for _, elem := range sv.Elements() {
			out = append(out, EvalResult{Value: elem, Store: sr.Store, Count: sr.Count, Quality: sr.Quality})
		}
	}
	return out, nil
}

func (it *interpreter) evalAlloc(e AllocExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	if e.Hint == nil {
		addr, ncm := allocate(it.alloc, cm, e.Kind, e.SpaceTag, it.origin, e.SiteID, nil, it.abstract)
		it.lang.Logger.Trace("alloc", "origin", it.origin, "site", e.SiteID, "space", e.SpaceTag, "addr", addr.ID)
		return singleton(addr, st, ncm, QualityMust), nil
	}
	hintResults, err := it.eval(e.Hint, env, st, cm)
	if err != nil {
		return nil, err
	}
	var out ResultSet
	for _, hr := range hintResults {
		addr, ncm := allocate(it.alloc, hr.Count, e.Kind, e.SpaceTag, it.origin, e.SiteID, hr.Value, it.abstract)
		it.lang.Logger.Trace("alloc", "origin", it.origin, "site", e.SiteID, "space", e.SpaceTag, "addr", addr.ID, "hint", hr.Value)
		out = append(out, EvalResult{Value: addr, Store: hr.Store, Count: ncm, Quality: hr.Quality})
	}
	return out, nil
}

func (it *interpreter) evalMetaCall(e MetaCallExpr, env Environment, st Store, cm CardinalityMap) (ResultSet, error) {
	mf, ok := it.lang.MetaFunctions[e.FuncName]
	if !ok {
		return nil, newError(StageMFEval, nil, "unknown meta-function %q", e.FuncName)
	}
	arg, err := Instantiate(it.lang, e.ArgPat, env)
	if err != nil {
		return nil, err
	}
	if it.abstract {
		return CallMetaFunctionAbstract(it.lang, it.alloc, mf, arg, st, cm)
	}
	return CallMetaFunction(it.lang, it.alloc, mf, arg, st)
}

// unsafeStoreSnapshot renders the entire store as a raw dictionary value:
// one entry per address-space tag, each itself a raw dictionary from
// address identifier (as a symbol atom) to stored value. approxValue
// entries are rendered as their joined possibility set, since the escape
// hatch is documented to expose only DPattern-shaped data.
func unsafeStoreSnapshot(st Store) MapValue {
	out := NewEmptyMap(MapRaw)
	for _, tag := range st.Tags() {
		out = out.Extend(st, NewSymbol(tag), unsafePartitionSnapshot(st, tag))
	}
	return out
}

func unsafePartitionSnapshot(st Store, tag string) MapValue {
	out := NewEmptyMap(MapRaw)
	pt := st.partition(tag)
	if pt == nil {
		return out
	}
	iter := pt.Iterator()
	for {
		k, v, ok := iter.Next()
		if !ok {
			break
		}
		if av, isA := v.(approxValue); isA {
			v = av.Possibilities
		}
		out = out.Extend(st, NewSymbol(string(k)), v)
	}
	return out
}

// Instantiate evaluates pat against env to produce a concrete DPattern, for
// Term(pat) expressions and RHS instantiation (spec 4.6 step 3). Unlike
// matching, instantiation never binds: a binding variable must already be
// bound (an unbound one is the structural error spec 7 calls out: "unbound
// pattern variable at RHS instantiation"), and a variant pattern's arity is
// re-checked since a hand-built rule could mismatch it ("variant arity
// mismatch in RHS").
func Instantiate(lang *Language, pat Pattern, env Environment) (DPattern, error) {
	switch p := pat.(type) {
	case BindingVarPat:
		v, ok := env.Lookup(p.Name)
		if !ok {
			return nil, newError(StageExprEval, nil, "unbound pattern variable %q at RHS instantiation", p.Name)
		}
		return v, nil

	case RefVarPat:
		v, ok := env.Lookup(p.Name)
		if !ok {
			return nil, newError(StageExprEval, nil, "unbound reference variable %q at RHS instantiation", p.Name)
		}
		return v, nil

	case AtomPat:
		return p.Atom, nil

	case VariantPat:
		if len(p.Children) != p.Desc.Arity() {
			return nil, newError(StageExprEval, nil, "variant arity mismatch in RHS: %q expects %d components, got %d", p.Desc.Name, p.Desc.Arity(), len(p.Children))
		}
		children := make([]DPattern, len(p.Children))
		for i, cp := range p.Children {
			v, err := Instantiate(lang, cp, env)
			if err != nil {
				return nil, err
			}
			children[i] = v
		}
		return NewVariantValue(p.Desc, children...), nil

	case QuantifiedPat:
		return Instantiate(lang, p.Inner, env)

	default:
		return nil, newError(StageExprEval, nil, "pattern kind %T cannot be instantiated", pat)
	}
}
