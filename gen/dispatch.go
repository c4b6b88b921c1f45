package gen

import (
	"sort"

	"github.com/chazu/hostbind/schema"
)

// The dispatch registrar decides, per concrete class, which virtual
// methods need an explicit registration. The schema already carries the
// answer: a class that re-declares a virtual an ancestor also declares is
// supplying its own implementation; a class that merely inherits one is
// not, and relies on the ancestor's entry at lookup time.

// virtualOverride is one (class, method) pair that needs a dispatch entry.
type virtualOverride struct {
	Class  string
	Member string
	Hash   int64
}

// classesInDispatchOrder returns the schema's classes sorted ancestors
// first (by inheritance depth, name-ordered within a depth) so descendant
// registrations shadow ancestor ones.
func classesInDispatchOrder(s *schema.Schema) []*schema.Class {
	depth := func(c *schema.Class) int {
		d := 0
		for p := s.ParentOf(c.Name); p != nil; p = s.ParentOf(p.Name) {
			d++
		}
		return d
	}
	out := make([]*schema.Class, len(s.Classes))
	for i := range s.Classes {
		out[i] = &s.Classes[i]
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := depth(out[i]), depth(out[j])
		if di != dj {
			return di < dj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// virtualOverrides returns the dispatch entries to emit, in registration
// order. An entry exists for (T, M) exactly when T declares virtual M and
// some ancestor of T also declares M.
func virtualOverrides(s *schema.Schema) []virtualOverride {
	var out []virtualOverride
	for _, c := range classesInDispatchOrder(s) {
		for _, m := range c.Methods {
			if !m.Virtual {
				continue
			}
			if ancestorDeclares(s, c.Name, m.Name) {
				out = append(out, virtualOverride{Class: c.Name, Member: m.Name, Hash: m.Hash})
			}
		}
	}
	return out
}

func ancestorDeclares(s *schema.Schema, class, method string) bool {
	for _, anc := range s.AncestorChain(class) {
		for _, m := range anc.Methods {
			if m.Name == method {
				return true
			}
		}
	}
	return false
}
