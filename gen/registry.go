package gen

import "github.com/dave/jennifer/jen"

// registryFile emits the dispatch registration unit. It declares the
// generated package's own TypeRegistry facade (schema classes colliding
// with that name are emitted under an alias) and RegisterDispatch, which
// records the class graph and every virtual override with the runtime,
// ancestors before descendants so descendant entries shadow at lookup.
func (g *Generator) registryFile() *jen.File {
	f := g.newFile()

	ordered := classesInDispatchOrder(g.schema)
	overrides := virtualOverrides(g.schema)

	var body []jen.Code
	for _, c := range ordered {
		body = append(body, jen.Qual(bindPkg, "RegisterClass").Call(
			jen.Lit(c.Name), jen.Lit(c.Parent),
		))
	}
	for _, o := range overrides {
		body = append(body, jen.Qual(bindPkg, "RegisterVirtual").Call(
			jen.Lit(o.Class), jen.Lit(o.Member), jen.Lit(o.Hash),
		))
	}

	f.Comment("RegisterDispatch records the generated class graph and every")
	f.Comment("overriding virtual with the runtime dispatch registry. Call it once")
	f.Comment("after bind.Install.")
	f.Func().Id("RegisterDispatch").Params().Block(body...)
	f.Line()

	f.Comment("TypeRegistry is the generated package's dispatch facade.")
	f.Type().Id("TypeRegistry").Struct()
	f.Line()
	f.Comment("RegisterAll is shorthand for RegisterDispatch.")
	f.Func().Params(jen.Id("TypeRegistry")).Id("RegisterAll").Params().Block(
		jen.Id("RegisterDispatch").Call(),
	)

	return f
}
