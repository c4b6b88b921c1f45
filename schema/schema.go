// Package schema parses and validates the host runtime's API description.
//
// The schema is a JSON document published by the host runtime describing
// every class, enum, builtin value type, singleton, and utility function it
// exposes across its ABI. All descriptors are immutable once loaded; later
// pipeline stages (profile filtering, type resolution, emission) only read
// them or build derived views.
package schema

// Header carries the schema's version and the precision the host was
// compiled with ("single" or "double", empty when unspecified).
type Header struct {
	Major     int    `json:"majorVersion"`
	Minor     int    `json:"minorVersion"`
	Patch     int    `json:"patchVersion"`
	Precision string `json:"precision"`
}

// Class describes a host-exposed class.
type Class struct {
	Name         string     `json:"name"`
	Parent       string     `json:"parent"` // empty for root classes
	Instantiable bool       `json:"instantiable"`
	RefCounted   bool       `json:"refCounted"`
	Singleton    bool       `json:"singleton"`
	Methods      []Method   `json:"methods"`
	Enums        []Enum     `json:"enums"`
	Properties   []Property `json:"properties"`
	Signals      []Signal   `json:"signals"`
}

// Method describes a single callable member. Hash is the opaque version
// hash identifying the signature's ABI shape; 0 means the schema did not
// supply one.
type Method struct {
	Name       string  `json:"name"`
	Params     []Param `json:"params"`
	ReturnType string  `json:"returnType"` // empty for void
	Hash       int64   `json:"hash"`
	Static     bool    `json:"static"`
	Virtual    bool    `json:"virtual"`
	Vararg     bool    `json:"vararg"`
	Const      bool    `json:"const"`
}

// Param is one positional method parameter. Default is an uninterpreted
// literal; the generator passes it through without type-checking it.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
}

// Enum describes a named enumeration, either class-scoped or global.
// Bitfield enums represent disjoint flag positions; the generator trusts
// the schema and does not verify disjointness.
type Enum struct {
	Name     string      `json:"name"`
	Bitfield bool        `json:"bitfield"`
	Values   []EnumValue `json:"values"`
}

// EnumValue is one (name, value) pair within an enum.
type EnumValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Property describes a get/set pair exposed by a class.
type Property struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Getter string `json:"getter"`
	Setter string `json:"setter"`
}

// Signal describes an event a class can emit.
type Signal struct {
	Name   string  `json:"name"`
	Params []Param `json:"params"`
}

// SizeTable gives the byte size of every builtin value type for one named
// build configuration.
type SizeTable struct {
	BuildConfig string     `json:"buildConfig"`
	Sizes       []TypeSize `json:"sizes"`
}

// TypeSize is one builtin type's size within a build configuration.
type TypeSize struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// OffsetTable gives member byte offsets for builtin value types in one
// build configuration. Offsets are only meaningful within that
// configuration.
type OffsetTable struct {
	BuildConfig string       `json:"buildConfig"`
	Types       []TypeLayout `json:"types"`
}

// TypeLayout is the member layout of one builtin type.
type TypeLayout struct {
	Name    string         `json:"name"`
	Members []MemberOffset `json:"members"`
}

// MemberOffset is one member's byte offset.
type MemberOffset struct {
	Member string `json:"member"`
	Offset int    `json:"offset"`
}

// Singleton names a class with a single host-owned instance.
type Singleton struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the fully loaded, validated API description.
type Schema struct {
	Header           Header        `json:"header"`
	BuiltinSizes     []SizeTable   `json:"builtinSizeTables"`
	MemberOffsets    []OffsetTable `json:"memberOffsetTables"`
	Enums            []Enum        `json:"enums"`
	Classes          []Class       `json:"classes"`
	UtilityFunctions []Method      `json:"utilityFunctions"`
	Singletons       []Singleton   `json:"singletons"`

	byName map[string]*Class
}

// ClassByName returns the class descriptor for name, or nil.
func (s *Schema) ClassByName(name string) *Class {
	return s.byName[name]
}

// HasClass reports whether name is a declared class.
func (s *Schema) HasClass(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// ParentOf returns the parent class of name, or nil for roots and unknown
// names.
func (s *Schema) ParentOf(name string) *Class {
	c := s.byName[name]
	if c == nil || c.Parent == "" {
		return nil
	}
	return s.byName[c.Parent]
}

// AncestorChain returns the ancestors of name from direct parent up to the
// root, excluding name itself. Unknown names yield nil.
func (s *Schema) AncestorChain(name string) []*Class {
	var chain []*Class
	for p := s.ParentOf(name); p != nil; p = s.ParentOf(p.Name) {
		chain = append(chain, p)
	}
	return chain
}

// IsRefCounted reports whether name or any of its ancestors is marked
// reference-counted.
func (s *Schema) IsRefCounted(name string) bool {
	for c := s.byName[name]; c != nil; c = s.ParentOf(c.Name) {
		if c.RefCounted {
			return true
		}
	}
	return false
}

// IsSingleton reports whether name is registered as a singleton, either by
// its class flag or the schema's singleton list.
func (s *Schema) IsSingleton(name string) bool {
	if c := s.byName[name]; c != nil && c.Singleton {
		return true
	}
	for _, sg := range s.Singletons {
		if sg.Type == name || sg.Name == name {
			return true
		}
	}
	return false
}

// EnumNames returns the set of all enum names visible to type references:
// global enums under their own name, class enums as "Class.Enum".
func (s *Schema) EnumNames() map[string]*Enum {
	out := make(map[string]*Enum)
	for i := range s.Enums {
		out[s.Enums[i].Name] = &s.Enums[i]
	}
	for ci := range s.Classes {
		c := &s.Classes[ci]
		for ei := range c.Enums {
			out[c.Name+"."+c.Enums[ei].Name] = &c.Enums[ei]
		}
	}
	return out
}

// BuildConfigs returns the build configuration names declared by the size
// tables, in declaration order.
func (s *Schema) BuildConfigs() []string {
	var out []string
	for _, st := range s.BuiltinSizes {
		out = append(out, st.BuildConfig)
	}
	return out
}

// BuiltinNames returns the builtin value type names from the first size
// table, in declaration order. Validation guarantees every configuration
// declares the same set.
func (s *Schema) BuiltinNames() []string {
	if len(s.BuiltinSizes) == 0 {
		return nil
	}
	var out []string
	for _, ts := range s.BuiltinSizes[0].Sizes {
		out = append(out, ts.Name)
	}
	return out
}

// BuiltinSize returns the byte size of a builtin type in the given build
// configuration. The bool result is false if either name is unknown.
func (s *Schema) BuiltinSize(buildConfig, typeName string) (int, bool) {
	for _, st := range s.BuiltinSizes {
		if st.BuildConfig != buildConfig {
			continue
		}
		for _, ts := range st.Sizes {
			if ts.Name == typeName {
				return ts.Size, true
			}
		}
	}
	return 0, false
}

// MemberLayout returns the member offsets of a builtin type in the given
// build configuration, or nil.
func (s *Schema) MemberLayout(buildConfig, typeName string) []MemberOffset {
	for _, ot := range s.MemberOffsets {
		if ot.BuildConfig != buildConfig {
			continue
		}
		for _, tl := range ot.Types {
			if tl.Name == typeName {
				return tl.Members
			}
		}
	}
	return nil
}

// Reindex rebuilds the name lookup table. Called once at load time and by
// the profile filter when it constructs a filtered view.
func (s *Schema) Reindex() {
	s.byName = make(map[string]*Class, len(s.Classes))
	for i := range s.Classes {
		s.byName[s.Classes[i].Name] = &s.Classes[i]
	}
}
