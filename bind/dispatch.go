package bind

import "sync"

// Virtual dispatch registry.
//
// The generator decides at emission time which classes supply their own
// implementation of each virtual; only those (class, member) pairs are
// registered here. Registration runs ancestor-to-descendant, and lookup
// walks the class chain starting at the concrete class, so a descendant's
// entry shadows an ancestor's without any per-call trait inspection.

var (
	classParents sync.Map // class name → parent name ("" for roots)
	virtuals     sync.Map // dispatchKey → version hash
)

type dispatchKey struct {
	Class  string
	Member string
}

// RegisterClass records a class and its parent in the dispatch chain.
// Generated registration code calls this for every emitted class, ancestors
// first.
func RegisterClass(name, parent string) {
	classParents.Store(name, parent)
}

// RegisterVirtual records that class supplies its own implementation of
// the named virtual member.
func RegisterVirtual(class, member string, hash int64) {
	virtuals.Store(dispatchKey{Class: class, Member: member}, hash)
}

// LookupVirtual finds the nearest registered implementation of member for
// class, walking the ancestor chain. The second result is false when no
// class in the chain registered one.
func LookupVirtual(class, member string) (int64, bool) {
	for cur := class; cur != ""; {
		if h, ok := virtuals.Load(dispatchKey{Class: cur, Member: member}); ok {
			return h.(int64), true
		}
		p, ok := classParents.Load(cur)
		if !ok {
			return 0, false
		}
		cur = p.(string)
	}
	return 0, false
}
