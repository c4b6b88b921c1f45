package gen

import (
	"github.com/dave/jennifer/jen"
)

// builtinFile emits one unit for a builtin value type: its size and member
// offsets for the run's build configuration, plus the index-keyed default
// constructor. Offsets are only meaningful within this configuration.
func (g *Generator) builtinFile(name string) *jen.File {
	f := g.newFile()
	ident := classIdent(name)
	cfg := g.opts.BuildConfig

	size, _ := g.schema.BuiltinSize(cfg, name)

	f.Commentf("%s is the host's %q value type, sized for the %q build configuration.",
		ident, name, cfg)
	f.Commentf("%sSize is its byte size in that configuration.", ident)
	f.Const().Id(ident + "Size").Op("=").Lit(size)
	f.Line()

	f.Type().Id(ident).Struct(
		jen.Id("data").Index(jen.Id(ident + "Size")).Byte(),
	)
	f.Line()

	if members := g.schema.MemberLayout(cfg, name); len(members) > 0 {
		defs := make([]jen.Code, 0, len(members))
		for _, m := range members {
			defs = append(defs, jen.Id(ident+"Offset"+toPascal(m.Member)).Op("=").Lit(m.Offset))
		}
		f.Commentf("Member byte offsets within %s for the %q configuration.", ident, cfg)
		f.Const().Defs(defs...)
		f.Line()
	}

	ctor := ctorVarName(name, 0)
	f.Var().Id(ctor).Op("=").Qual(bindPkg, "Ctor").Call(jen.Lit(name), jen.Lit(0))
	f.Line()

	f.Commentf("New%s invokes the type's default constructor (index 0).", ident)
	f.Func().Id("New" + ident).Params().Id(ident).Block(
		jen.Var().Id("out").Id(ident),
		jen.Id(ctor).Dot("Call").Call(jen.Lit(0), jen.Nil(), jen.Op("&").Id("out")),
		jen.Return(jen.Id("out")),
	)

	return f
}
