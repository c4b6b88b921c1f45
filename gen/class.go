package gen

import (
	"fmt"
	"strconv"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/hostbind/schema"
	"github.com/chazu/hostbind/typemap"
)

// classDeclFile emits the interface unit for one class: the wrapper type,
// its class-scoped enums, and the constructor/singleton/ownership
// accessors. Method bodies live in the implementation unit.
func (g *Generator) classDeclFile(c *schema.Class) *jen.File {
	f := g.newFile()
	ident := classIdent(c.Name)

	f.Commentf("%s wraps the host class %q.", ident, c.Name)
	if c.Parent == "" {
		f.Type().Id(ident).Struct(
			jen.Id("obj").Qual(bindPkg, "ObjectHandle"),
		)
		f.Line()
		f.Commentf("ObjectHandle returns the wrapped host instance.")
		f.Func().Params(jen.Id("x").Op("*").Id(ident)).Id("ObjectHandle").Params().
			Qual(bindPkg, "ObjectHandle").Block(
			jen.Return(jen.Id("x").Dot("obj")),
		)
	} else {
		f.Type().Id(ident).Struct(
			jen.Id(classIdent(c.Parent)),
		)
	}
	f.Line()

	for _, e := range c.Enums {
		g.emitEnum(f, classIdent(c.Name), &e)
	}

	if c.Instantiable {
		ctor := ctorVarName(c.Name, 0)
		f.Commentf("New%s constructs a fresh %q instance owned by the caller.", ident, c.Name)
		f.Func().Id("New" + ident).Params().Op("*").Id(ident).Block(
			jen.Var().Id("obj").Qual(bindPkg, "ObjectHandle"),
			jen.Id(ctor).Dot("Call").Call(jen.Lit(0), jen.Nil(), jen.Op("&").Id("obj")),
			jen.If(jen.Id("obj").Op("==").Lit(0)).Block(jen.Return(jen.Nil())),
			jen.Id("out").Op(":=").Op("&").Id(ident).Values(),
			jen.Id("out").Dot("obj").Op("=").Id("obj"),
			jen.Return(jen.Id("out")),
		)
		f.Line()
	}

	if g.schema.IsSingleton(c.Name) {
		sv := singletonVarName(c.Name)
		f.Commentf("%sInstance returns the host's %q singleton. The first call", ident, c.Name)
		f.Comment("resolves it and registers teardown cleanup; later calls reuse the")
		f.Comment("cached reference.")
		f.Func().Id(ident + "Instance").Params().Op("*").Id(ident).Block(
			jen.Id("obj").Op(":=").Id(sv).Dot("Get").Call(),
			jen.If(jen.Id("obj").Op("==").Lit(0)).Block(jen.Return(jen.Nil())),
			jen.Id("out").Op(":=").Op("&").Id(ident).Values(),
			jen.Id("out").Dot("obj").Op("=").Id("obj"),
			jen.Return(jen.Id("out")),
		)
		f.Line()
	}

	if c.RefCounted {
		f.Commentf("Ref takes an ownership share of the instance. Ownership moves only")
		f.Comment("through explicit Ref/Unref, never through copies.")
		f.Func().Params(jen.Id("x").Op("*").Id(ident)).Id("Ref").Params().Block(
			jen.Qual(bindPkg, "Ref").Call(jen.Id("x").Dot("ObjectHandle").Call()),
		)
		f.Line()
		f.Comment("Unref releases one ownership share of the instance.")
		f.Func().Params(jen.Id("x").Op("*").Id(ident)).Id("Unref").Params().Block(
			jen.Qual(bindPkg, "Unref").Call(jen.Id("x").Dot("ObjectHandle").Call()),
		)
		f.Line()
	}

	return f
}

// classImplFile emits the implementation unit: one cache-entry variable
// and one method body per surviving method.
func (g *Generator) classImplFile(c *schema.Class) *jen.File {
	f := g.newFile()

	if c.Instantiable {
		f.Var().Id(ctorVarName(c.Name, 0)).Op("=").
			Qual(bindPkg, "Ctor").Call(jen.Lit(c.Name), jen.Lit(0))
	}
	if g.schema.IsSingleton(c.Name) {
		f.Var().Id(singletonVarName(c.Name)).Op("=").
			Qual(bindPkg, "Singleton").Call(jen.Lit(c.Name))
	}

	for _, m := range c.Methods {
		f.Var().Id(methodVarName(c.Name, m.Name)).Op("=").
			Qual(bindPkg, "Method").Call(jen.Lit(c.Name), jen.Lit(m.Name), jen.Lit(m.Hash))
	}
	f.Line()

	for _, m := range c.Methods {
		g.emitCallable(f, c, &m, methodVarName(c.Name, m.Name))
	}

	return f
}

// emitCallable emits one wrapper method, static package function, or
// (when c is nil) free utility function.
func (g *Generator) emitCallable(f *jen.File, c *schema.Class, m *schema.Method, varName string) {
	ret := g.resolver.Resolve(m.ReturnType)

	params := make([]jen.Code, 0, len(m.Params)+1)
	argExprs := make([]jen.Code, 0, len(m.Params))
	for i, p := range m.Params {
		name := paramIdent(p.Name, i)
		pt := g.resolver.Resolve(p.Type)
		params = append(params, jen.Id(name).Add(g.goType(pt)))
		argExprs = append(argExprs, g.argExpr(name, pt))
	}
	if m.Vararg {
		params = append(params, jen.Id("rest").Op("...").Id("any"))
	}

	var body []jen.Code

	// Argument slice. Vararg methods append the trailing values.
	switch {
	case m.Vararg:
		body = append(body,
			jen.Id("args").Op(":=").Index().Id("any").Values(argExprs...),
			jen.Id("args").Op("=").Append(jen.Id("args"), jen.Id("rest").Op("...")),
		)
	case len(argExprs) > 0:
		body = append(body,
			jen.Id("args").Op(":=").Index().Id("any").Values(argExprs...),
		)
	}

	argsRef := func() jen.Code {
		if m.Vararg || len(argExprs) > 0 {
			return jen.Id("args")
		}
		return jen.Nil()
	}
	instance := func() jen.Code {
		if c == nil || m.Static {
			return jen.Lit(0)
		}
		return jen.Id("x").Dot("ObjectHandle").Call()
	}
	mv := jen.Id(varName)

	switch ret.Category {
	case typemap.Void:
		body = append(body,
			mv.Clone().Dot("Call").Call(instance(), argsRef(), jen.Nil()),
		)
	case typemap.ObjectRef:
		retIdent := classIdent(ret.Class)
		body = append(body,
			jen.Var().Id("ret").Qual(bindPkg, "ObjectHandle"),
			mv.Clone().Dot("Call").Call(instance(), argsRef(), jen.Op("&").Id("ret")),
			jen.If(jen.Id("ret").Op("==").Lit(0)).Block(jen.Return(jen.Nil())),
			jen.Id("out").Op(":=").Op("&").Id(retIdent).Values(),
			jen.Id("out").Dot("obj").Op("=").Id("ret"),
			jen.Return(jen.Id("out")),
		)
	default:
		body = append(body,
			jen.Var().Id("ret").Add(g.goType(ret)),
			mv.Clone().Dot("Call").Call(instance(), argsRef(), jen.Op("&").Id("ret")),
			jen.Return(jen.Id("ret")),
		)
	}

	name := toPascal(m.Name)
	fn := f.Func()
	switch {
	case c == nil:
		fn = fn.Id(name)
	case m.Static:
		// Static members become package functions prefixed by the class.
		fn = fn.Id(classIdent(c.Name) + name)
	default:
		fn = fn.Params(jen.Id("x").Op("*").Id(classIdent(c.Name))).Id(name)
	}
	fn = fn.Params(params...)
	if ret.Category != typemap.Void {
		fn = fn.Add(g.goType(ret))
	}
	fn.Block(body...)
	f.Line()
}

// goType maps a resolved type to its Go representation in emitted code.
func (g *Generator) goType(rt typemap.ResolvedType) *jen.Statement {
	switch rt.Category {
	case typemap.Scalar, typemap.StringLike:
		return jen.Id(rt.GoType)
	case typemap.Enum, typemap.Bitfield:
		return jen.Id(enumIdent(rt.EnumName))
	case typemap.TypedContainer:
		return jen.Index().Add(g.goType(*rt.Elem))
	case typemap.ObjectRef:
		return jen.Op("*").Id(classIdent(rt.Class))
	case typemap.DynamicAny:
		return jen.Id("any")
	}
	return jen.Id("any")
}

// argExpr is the expression placed in the encoded-args slice for one
// parameter. Object references are encoded as their handles.
func (g *Generator) argExpr(name string, rt typemap.ResolvedType) jen.Code {
	if rt.Category == typemap.ObjectRef {
		return jen.Id(name).Dot("ObjectHandle").Call()
	}
	return jen.Id(name)
}

func methodVarName(class, method string) string {
	return "bind" + classIdent(class) + toPascal(method)
}

func ctorVarName(class string, index int) string {
	return fmt.Sprintf("ctor%s%d", classIdent(class), index)
}

func singletonVarName(class string) string {
	return "singleton" + classIdent(class)
}

// emitEnum emits one enum (or bitfield) with its constants. prefix is the
// owning class identifier, empty for global enums.
func (g *Generator) emitEnum(f *jen.File, prefix string, e *schema.Enum) {
	ident := prefix + toPascal(e.Name)
	if e.Bitfield {
		f.Commentf("%s is a set-of-flags value; the schema defines its bit positions.", ident)
		f.Type().Id(ident).Id("uint64")
	} else {
		f.Type().Id(ident).Id("int64")
	}
	if len(e.Values) > 0 {
		defs := make([]jen.Code, 0, len(e.Values))
		for _, v := range e.Values {
			// Rendered textually so 64-bit values survive on any build
			// platform.
			defs = append(defs, jen.Id(ident+enumValueIdent(v.Name)).Id(ident).Op("=").
				Id(strconv.FormatInt(v.Value, 10)))
		}
		f.Const().Defs(defs...)
	}
	f.Line()
}
