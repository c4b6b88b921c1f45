// Package typemap classifies schema type references into representation
// categories for the emitter.
package typemap

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/hostbind/schema"
)

var log = commonlog.GetLogger("hostbind.typemap")

// Category is the representation class of a resolved type reference.
type Category int

const (
	Void Category = iota
	Scalar
	Enum
	Bitfield
	TypedContainer
	ObjectRef
	DynamicAny
	StringLike
)

func (c Category) String() string {
	switch c {
	case Void:
		return "void"
	case Scalar:
		return "scalar"
	case Enum:
		return "enum"
	case Bitfield:
		return "bitfield"
	case TypedContainer:
		return "container"
	case ObjectRef:
		return "object"
	case DynamicAny:
		return "any"
	case StringLike:
		return "string"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ResolvedType is the classification of one type reference. It is derived
// on demand and never persisted.
type ResolvedType struct {
	Category   Category
	Name       string        // the original reference (empty for Void)
	GoType     string        // concrete Go representation, e.g. "float64"
	Elem       *ResolvedType // element type for TypedContainer
	Class      string        // class name for ObjectRef
	RefCounted bool          // ObjectRef only
	EnumName   string        // enum name for Enum/Bitfield (Class.Enum for scoped)
}

// Precision selects the concrete width of the precision-polymorphic "real"
// scalar for an entire generation run.
type Precision string

const (
	Single Precision = "single"
	Double Precision = "double"
)

// PrecisionMismatchError indicates the schema was published for one
// precision and the generation run requested the other. Output built that
// way would be binary-incompatible with the host, so generation aborts
// before writing anything.
type PrecisionMismatchError struct {
	Schema    string
	Requested Precision
}

func (e *PrecisionMismatchError) Error() string {
	return fmt.Sprintf("typemap: schema precision %q does not match requested precision %q",
		e.Schema, e.Requested)
}

// CheckPrecision validates the requested precision against the schema
// header. An empty schema precision means the host accepts either.
func CheckPrecision(s *schema.Schema, requested Precision) error {
	if requested != Single && requested != Double {
		return fmt.Errorf("typemap: unknown precision %q", requested)
	}
	if sp := s.Header.Precision; sp != "" && sp != string(requested) {
		return &PrecisionMismatchError{Schema: sp, Requested: requested}
	}
	return nil
}

// scalarTypes maps fixed-width scalar names to their Go representation.
// "real" is handled separately because its width depends on the run's
// precision setting.
var scalarTypes = map[string]string{
	"bool":   "bool",
	"int8":   "int8",
	"int16":  "int16",
	"int32":  "int32",
	"int64":  "int64",
	"uint8":  "uint8",
	"uint16": "uint16",
	"uint32": "uint32",
	"uint64": "uint64",
}

// stringLikeName is the schema's string builtin.
const stringLikeName = "String"

// containerPrefix is the typed-container naming convention.
const containerPrefix = "TypedArray["

// Resolver classifies type references against one filtered schema and one
// run-wide precision.
type Resolver struct {
	schema    *schema.Schema
	enums     map[string]*schema.Enum
	precision Precision

	warned map[string]bool // unknown names already reported
}

// NewResolver builds a resolver over the filtered schema. The precision
// must already have passed CheckPrecision.
func NewResolver(s *schema.Schema, precision Precision) *Resolver {
	return &Resolver{
		schema:    s,
		enums:     s.EnumNames(),
		precision: precision,
		warned:    make(map[string]bool),
	}
}

// RealGoType returns the Go type of the "real" scalar for this run.
func (r *Resolver) RealGoType() string {
	if r.precision == Double {
		return "float64"
	}
	return "float32"
}

// Resolve classifies a single type reference. Rules apply in priority
// order: void, scalar, enum/bitfield, typed container, class, string,
// then the DynamicAny fallback (with a one-shot warning per name).
func (r *Resolver) Resolve(ref string) ResolvedType {
	if ref == "" || ref == "void" {
		return ResolvedType{Category: Void}
	}

	if goType, ok := scalarTypes[ref]; ok {
		return ResolvedType{Category: Scalar, Name: ref, GoType: goType}
	}
	if ref == "real" {
		return ResolvedType{Category: Scalar, Name: ref, GoType: r.RealGoType()}
	}

	if e, ok := r.enums[ref]; ok {
		cat := Enum
		if e.Bitfield {
			cat = Bitfield
		}
		return ResolvedType{Category: cat, Name: ref, EnumName: ref}
	}

	if strings.HasPrefix(ref, containerPrefix) && strings.HasSuffix(ref, "]") {
		elem := r.Resolve(ref[len(containerPrefix) : len(ref)-1])
		return ResolvedType{Category: TypedContainer, Name: ref, Elem: &elem}
	}

	if r.schema.HasClass(ref) {
		return ResolvedType{
			Category:   ObjectRef,
			Name:       ref,
			Class:      ref,
			RefCounted: r.schema.IsRefCounted(ref),
		}
	}

	if ref == stringLikeName {
		return ResolvedType{Category: StringLike, Name: ref, GoType: "string"}
	}

	if !r.warned[ref] {
		r.warned[ref] = true
		log.Warningf("unknown type %q, falling back to dynamic representation", ref)
	}
	return ResolvedType{Category: DynamicAny, Name: ref}
}
