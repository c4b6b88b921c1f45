package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("hostbind.schema")

// SchemaError indicates the API description is malformed in a way that
// makes generation unsafe. It is fatal: no partial schema is returned.
type SchemaError struct {
	Context string // what was being validated, e.g. "class Node"
	Detail  string
}

func (e *SchemaError) Error() string {
	if e.Context == "" {
		return "schema: " + e.Detail
	}
	return fmt.Sprintf("schema: %s: %s", e.Context, e.Detail)
}

// Load parses and validates a raw JSON API description. On any validation
// failure it returns a *SchemaError and no schema.
func Load(raw []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &SchemaError{Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	s.Reindex()
	return &s, nil
}

// LoadFile reads and loads an API description from disk.
func LoadFile(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	s, err := Load(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// validate enforces the structural invariants of the data model: every
// class named, parents resolvable, size tables consistent. Missing method
// hashes are tolerated with a warning; the hash stays 0.
func (s *Schema) validate() error {
	if p := s.Header.Precision; p != "" && p != "single" && p != "double" {
		return &SchemaError{Context: "header", Detail: fmt.Sprintf("unknown precision %q", p)}
	}

	names := make(map[string]bool, len(s.Classes))
	for i := range s.Classes {
		c := &s.Classes[i]
		if c.Name == "" {
			return &SchemaError{Detail: fmt.Sprintf("class at index %d has no name", i)}
		}
		if names[c.Name] {
			return &SchemaError{Context: "class " + c.Name, Detail: "duplicate class name"}
		}
		names[c.Name] = true
	}

	for i := range s.Classes {
		c := &s.Classes[i]
		if c.Parent != "" && !names[c.Parent] {
			return &SchemaError{
				Context: "class " + c.Name,
				Detail:  fmt.Sprintf("parent %q is not declared in the schema", c.Parent),
			}
		}
		for j := range c.Methods {
			if err := validateMethod(c.Name, &c.Methods[j]); err != nil {
				return err
			}
		}
		for _, e := range c.Enums {
			if e.Name == "" {
				return &SchemaError{Context: "class " + c.Name, Detail: "enum with no name"}
			}
		}
	}

	for i := range s.Enums {
		if s.Enums[i].Name == "" {
			return &SchemaError{Detail: fmt.Sprintf("global enum at index %d has no name", i)}
		}
	}
	for j := range s.UtilityFunctions {
		if err := validateMethod("@utility", &s.UtilityFunctions[j]); err != nil {
			return err
		}
	}

	return s.validateSizeTables()
}

func validateMethod(owner string, m *Method) error {
	ctx := fmt.Sprintf("%s.%s", owner, m.Name)
	if m.Name == "" {
		return &SchemaError{Context: owner, Detail: "method with no name"}
	}
	for _, p := range m.Params {
		if p.Type == "" {
			return &SchemaError{Context: ctx, Detail: fmt.Sprintf("parameter %q has no type", p.Name)}
		}
	}
	if m.Hash == 0 {
		log.Warningf("%s: no version hash, defaulting to 0", ctx)
	}
	return nil
}

// validateSizeTables checks that every build configuration declares a size
// for the same set of builtin types. Mixing configurations at use time is a
// caller error, but an incomplete table is a schema error.
func (s *Schema) validateSizeTables() error {
	if len(s.BuiltinSizes) == 0 {
		return nil // no builtin value types declared
	}

	reference := make(map[string]bool)
	for _, ts := range s.BuiltinSizes[0].Sizes {
		if ts.Name == "" {
			return &SchemaError{
				Context: "size table " + s.BuiltinSizes[0].BuildConfig,
				Detail:  "builtin type with no name",
			}
		}
		reference[ts.Name] = true
	}

	for _, st := range s.BuiltinSizes[1:] {
		if st.BuildConfig == "" {
			return &SchemaError{Detail: "size table with no build configuration name"}
		}
		seen := make(map[string]bool)
		for _, ts := range st.Sizes {
			seen[ts.Name] = true
		}
		for name := range reference {
			if !seen[name] {
				return &SchemaError{
					Context: "size table " + st.BuildConfig,
					Detail:  fmt.Sprintf("missing size for builtin type %q", name),
				}
			}
		}
		for name := range seen {
			if !reference[name] {
				return &SchemaError{
					Context: "size table " + st.BuildConfig,
					Detail:  fmt.Sprintf("builtin type %q not present in all configurations", name),
				}
			}
		}
	}

	for _, ot := range s.MemberOffsets {
		if ot.BuildConfig == "" {
			return &SchemaError{Detail: "offset table with no build configuration name"}
		}
		for _, tl := range ot.Types {
			if !reference[tl.Name] {
				return &SchemaError{
					Context: "offset table " + ot.BuildConfig,
					Detail:  fmt.Sprintf("layout for undeclared builtin type %q", tl.Name),
				}
			}
		}
	}
	return nil
}
