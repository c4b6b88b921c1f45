package profile

import (
	"fmt"
	"strings"

	"github.com/chazu/hostbind/schema"
)

// CycleError indicates a cyclic parent chain in the schema's class graph.
// The closure cannot terminate meaningfully, so filtering aborts.
type CycleError struct {
	Class string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("profile: cyclic inheritance chain through class %q", e.Class)
}

// Apply computes the filtered schema for the given profile.
//
// A nil profile is the identity: the input schema is returned unchanged.
// Otherwise the result is a derived view containing only the final included
// classes, with methods referencing excluded classes dropped. The input
// schema is never mutated, and Apply is idempotent: applying the same
// profile to its own output changes nothing.
//
// The cycle check runs for every profile, nil included: later stages walk
// parent chains and assume they terminate.
func Apply(s *schema.Schema, p *Profile) (*schema.Schema, error) {
	if cyclic := findCycle(s); cyclic != "" {
		return nil, &CycleError{Class: cyclic}
	}
	if p == nil {
		return s, nil
	}

	children := childMap(s)

	// Inclusion closure: enabled classes plus the baseline, closed over
	// ancestors so every included class's full parent chain is included.
	included := make(map[string]bool)
	var work []string
	for _, name := range p.Enabled {
		if s.HasClass(name) {
			work = append(work, name)
		}
	}
	for _, name := range Baseline {
		if s.HasClass(name) {
			work = append(work, name)
		}
	}
	for len(work) > 0 {
		name := work[len(work)-1]
		work = work[:len(work)-1]
		if included[name] {
			continue
		}
		included[name] = true
		if c := s.ClassByName(name); c != nil && c.Parent != "" && !included[c.Parent] {
			work = append(work, c.Parent)
		}
	}

	// Exclusion closure: disabled classes closed over descendants.
	excluded := make(map[string]bool)
	work = work[:0]
	for _, name := range p.Disabled {
		if s.HasClass(name) {
			work = append(work, name)
		}
	}
	for len(work) > 0 {
		name := work[len(work)-1]
		work = work[:len(work)-1]
		if excluded[name] {
			continue
		}
		excluded[name] = true
		work = append(work, children[name]...)
	}

	// Final set: whitelist result when a whitelist was given, else all
	// classes; the exclusion set wins in both cases.
	final := make(map[string]bool)
	if len(p.Enabled) > 0 {
		for name := range included {
			if !excluded[name] {
				final[name] = true
			}
		}
	} else {
		for i := range s.Classes {
			if name := s.Classes[i].Name; !excluded[name] {
				final[name] = true
			}
		}
	}

	out := &schema.Schema{
		Header:        s.Header,
		BuiltinSizes:  s.BuiltinSizes,
		MemberOffsets: s.MemberOffsets,
		Enums:         s.Enums,
	}
	for i := range s.Classes {
		c := s.Classes[i]
		if !final[c.Name] {
			continue
		}
		c.Methods = filterMethods(s, final, c.Methods)
		out.Classes = append(out.Classes, c)
	}
	out.UtilityFunctions = filterMethods(s, final, s.UtilityFunctions)
	for _, sg := range s.Singletons {
		if final[sg.Type] {
			out.Singletons = append(out.Singletons, sg)
		}
	}
	out.Reindex()
	return out, nil
}

// filterMethods drops methods whose return type or any parameter type names
// a class outside the final included set. Default-value literals are not
// type-checked.
func filterMethods(s *schema.Schema, final map[string]bool, methods []schema.Method) []schema.Method {
	var kept []schema.Method
	for _, m := range methods {
		if !methodUsable(s, final, &m) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func methodUsable(s *schema.Schema, final map[string]bool, m *schema.Method) bool {
	if !typeUsable(s, final, m.ReturnType) {
		return false
	}
	for _, p := range m.Params {
		if !typeUsable(s, final, p.Type) {
			return false
		}
	}
	return true
}

// typeUsable reports whether a type reference stays inside the final set.
// Typed containers are unwrapped recursively; references that do not name a
// class at all (scalars, enums, builtins, unknown names) are always usable.
func typeUsable(s *schema.Schema, final map[string]bool, ref string) bool {
	if ref == "" {
		return true
	}
	if elem, ok := containerElem(ref); ok {
		return typeUsable(s, final, elem)
	}
	if s.HasClass(ref) {
		return final[ref]
	}
	return true
}

// containerElem unwraps the "TypedArray[T]" convention, returning the
// element type reference.
func containerElem(ref string) (string, bool) {
	const prefix = "TypedArray["
	if strings.HasPrefix(ref, prefix) && strings.HasSuffix(ref, "]") {
		return ref[len(prefix) : len(ref)-1], true
	}
	return "", false
}

// childMap inverts the parent relation.
func childMap(s *schema.Schema) map[string][]string {
	children := make(map[string][]string)
	for i := range s.Classes {
		c := &s.Classes[i]
		if c.Parent != "" {
			children[c.Parent] = append(children[c.Parent], c.Name)
		}
	}
	return children
}

// findCycle returns the name of a class on a cyclic parent chain, or "".
// Validation guarantees parents resolve, so a chain either reaches a root
// or loops.
func findCycle(s *schema.Schema) string {
	state := make(map[string]int) // 0 unvisited, 1 in progress, 2 done
	for i := range s.Classes {
		name := s.Classes[i].Name
		if state[name] != 0 {
			continue
		}
		var path []string
		for cur := name; cur != ""; {
			if state[cur] == 1 {
				return cur
			}
			if state[cur] == 2 {
				break
			}
			state[cur] = 1
			path = append(path, cur)
			c := s.ClassByName(cur)
			if c == nil {
				break
			}
			cur = c.Parent
		}
		for _, n := range path {
			state[n] = 2
		}
	}
	return ""
}
