// Package semantics implements an Abstracting Abstract Machines (AAM)-style
// semantics engineering nucleus: an abstract-syntax/value model, a pattern
// matcher with non-linear binders, an effectful expression evaluator with an
// explicit store and non-determinism, and a rule/meta-function driver that
// can run either a concrete (exact) or an abstract (finitary, cardinality-
// tracking) interpreter over the same language definition.
//
// A Language is a name plus a set of Spaces (value universes). Spaces are
// built from Variants (named, fixed-arity constructors), address spaces
// (store partitions), and external spaces (opaque host values with their
// own membership/equality oracle). A Rule rewrites one DPattern-plus-Store
// state into zero or more successor states by matching a left-hand-side
// Pattern, threading a binding list of side conditions and store writes,
// and instantiating a right-hand-side Pattern. The ApplyStar and
// ApplyStarMemo entry points apply a rule set to a state repeatedly until a normal form
// (or an already-visited state, for the memoized variant) is reached.
//
// The engine is single-threaded and synchronous: evaluation is ordinary
// recursive Go, the store is an immutable, persistent value threaded
// explicitly through every call, and non-determinism is represented as a
// plain (deduplicated) result set rather than as channels or goroutines.
package semantics
