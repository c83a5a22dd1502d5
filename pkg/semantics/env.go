package semantics

import (
	"sort"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Environment is an immutable, persistent mapping from pattern-variable
// name to DPattern. Binding extends an Environment without mutating it, so
// the same Environment snapshot can be safely reused across every branch a
// non-deterministic match or evaluation produces.
type Environment struct {
	tree *iradix.Tree[DPattern]
}

// NewEnvironment returns the empty environment.
func NewEnvironment() Environment {
	return Environment{tree: iradix.New[DPattern]()}
}

// Lookup returns the DPattern bound to name, if any.
func (e Environment) Lookup(name string) (DPattern, bool) {
	if e.tree == nil {
		return nil, false
	}
	return e.tree.Get([]byte(name))
}

// Bind returns a new Environment extending e with name bound to value.
func (e Environment) Bind(name string, value DPattern) Environment {
	t := e.tree
	if t == nil {
		t = iradix.New[DPattern]()
	}
	nt, _, _ := t.Insert([]byte(name), value)
	return Environment{tree: nt}
}

// Len reports how many variables are bound.
func (e Environment) Len() int {
	if e.tree == nil {
		return 0
	}
	return e.tree.Len()
}

func (e Environment) String() string {
	if e.tree == nil || e.tree.Len() == 0 {
		return "{}"
	}
	names := make([]string, 0, e.tree.Len())
	iter := e.tree.Iterator()
	for {
		k, _, ok := iter.Next()
		if !ok {
			break
		}
		names = append(names, string(k))
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		v, _ := e.Lookup(n)
		parts = append(parts, n+"="+v.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
