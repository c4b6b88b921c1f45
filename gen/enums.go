package gen

import "github.com/dave/jennifer/jen"

// enumsFile emits the aggregate unit for global enums and constants.
// Class-scoped enums live in their class's interface unit.
func (g *Generator) enumsFile() *jen.File {
	f := g.newFile()
	if len(g.schema.Enums) == 0 {
		f.Comment("The schema declares no global enums.")
		return f
	}
	for i := range g.schema.Enums {
		g.emitEnum(f, "", &g.schema.Enums[i])
	}
	return f
}

// utilityFile emits wrappers for the schema's free utility functions.
// Their cache entries use the reserved owner name "@utility".
func (g *Generator) utilityFile() *jen.File {
	f := g.newFile()

	for _, m := range g.schema.UtilityFunctions {
		f.Var().Id(utilityVarName(m.Name)).Op("=").
			Qual(bindPkg, "Method").Call(jen.Lit("@utility"), jen.Lit(m.Name), jen.Lit(m.Hash))
	}
	f.Line()

	for i := range g.schema.UtilityFunctions {
		m := &g.schema.UtilityFunctions[i]
		g.emitCallable(f, nil, m, utilityVarName(m.Name))
	}
	return f
}

func utilityVarName(name string) string {
	return "bindUtility" + toPascal(name)
}
