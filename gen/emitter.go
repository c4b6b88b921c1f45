package gen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dave/jennifer/jen"
	"github.com/tliron/commonlog"

	"github.com/chazu/hostbind/profile"
	"github.com/chazu/hostbind/schema"
	"github.com/chazu/hostbind/typemap"
)

var log = commonlog.GetLogger("hostbind.gen")

// bindPkg is the import path of the runtime support package generated code
// links against.
const bindPkg = "github.com/chazu/hostbind/bind"

// Options configures a generation run.
type Options struct {
	// Precision selects the width of the "real" scalar. Must match the
	// schema's declared precision when the schema declares one.
	Precision typemap.Precision

	// Profile optionally restricts the emitted class set. Nil emits
	// everything.
	Profile *profile.Profile

	// BuildConfig names the builtin size/offset configuration to emit
	// constants for. Defaults to the schema's first declared
	// configuration.
	BuildConfig string

	// Package is the name of the emitted Go package. Defaults to
	// "hostapi".
	Package string

	// OutDir receives the emitted files.
	OutDir string
}

// Report summarizes a completed run.
type Report struct {
	SchemaDigest string
	Files        []string // emitted file names, sorted
	Classes      int
	Builtins     int
}

// Generator drives one generation run. Generation is single-threaded and
// purely functional over the immutable schema: identical (schema, profile,
// precision) inputs produce byte-identical output.
type Generator struct {
	opts     Options
	schema   *schema.Schema // filtered view
	resolver *typemap.Resolver
}

// prepare applies option defaults, runs the precision gate, and filters
// the schema. Any error here is fatal and happens before output exists.
func prepare(s *schema.Schema, opts Options) (*Generator, error) {
	if opts.Package == "" {
		opts.Package = "hostapi"
	}
	if opts.Precision == "" {
		opts.Precision = typemap.Single
	}
	if opts.BuildConfig == "" {
		if cfgs := s.BuildConfigs(); len(cfgs) > 0 {
			opts.BuildConfig = cfgs[0]
		}
	} else {
		known := false
		for _, cfg := range s.BuildConfigs() {
			if cfg == opts.BuildConfig {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("gen: schema declares no build configuration %q (have %v)",
				opts.BuildConfig, s.BuildConfigs())
		}
	}

	// The precision gate runs before anything else. An ABI built for one
	// precision is binary-incompatible with a host compiled for the
	// other, so partial output is worse than no output.
	if err := typemap.CheckPrecision(s, opts.Precision); err != nil {
		return nil, err
	}

	filtered, err := profile.Apply(s, opts.Profile)
	if err != nil {
		return nil, err
	}

	return &Generator{
		opts:     opts,
		schema:   filtered,
		resolver: typemap.NewResolver(filtered, opts.Precision),
	}, nil
}

// Render produces all units in memory without touching the filesystem.
func Render(s *schema.Schema, opts Options) (map[string][]byte, error) {
	g, err := prepare(s, opts)
	if err != nil {
		return nil, err
	}
	return g.renderAll()
}

// Run validates inputs, filters the schema, and emits every unit plus the
// run manifest to opts.OutDir. Any fatal error aborts before a single file
// is written: units render to memory first and flush together at the end.
func Run(s *schema.Schema, opts Options) (*Report, error) {
	g, err := prepare(s, opts)
	if err != nil {
		return nil, err
	}

	files, err := g.renderAll()
	if err != nil {
		return nil, err
	}

	digest, err := s.DigestString()
	if err != nil {
		return nil, err
	}
	manifest, err := buildManifest(digest, string(g.opts.Precision), files)
	if err != nil {
		return nil, err
	}
	files[manifestFileName] = manifest

	if err := flush(g.opts.OutDir, files); err != nil {
		return nil, err
	}

	report := &Report{
		SchemaDigest: digest,
		Classes:      len(g.schema.Classes),
		Builtins:     len(g.schema.BuiltinNames()),
	}
	for name := range files {
		report.Files = append(report.Files, name)
	}
	sort.Strings(report.Files)
	log.Infof("emitted %d files for %d classes", len(report.Files), report.Classes)
	return report, nil
}

// renderAll produces every unit in memory. File names are a pure function
// of the class or builtin name.
func (g *Generator) renderAll() (map[string][]byte, error) {
	files := make(map[string][]byte)

	classes := make([]*schema.Class, len(g.schema.Classes))
	for i := range g.schema.Classes {
		classes[i] = &g.schema.Classes[i]
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })

	for _, c := range classes {
		base := toSnake(c.Name)
		decl, err := renderFile(g.classDeclFile(c))
		if err != nil {
			return nil, fmt.Errorf("gen: class %s: %w", c.Name, err)
		}
		impl, err := renderFile(g.classImplFile(c))
		if err != nil {
			return nil, fmt.Errorf("gen: class %s: %w", c.Name, err)
		}
		files[base+".gen.go"] = decl
		files[base+"_impl.gen.go"] = impl
	}

	for _, name := range g.schema.BuiltinNames() {
		unit, err := renderFile(g.builtinFile(name))
		if err != nil {
			return nil, fmt.Errorf("gen: builtin %s: %w", name, err)
		}
		files["builtin_"+toSnake(name)+".gen.go"] = unit
	}

	enums, err := renderFile(g.enumsFile())
	if err != nil {
		return nil, fmt.Errorf("gen: enums: %w", err)
	}
	files["enums.gen.go"] = enums

	if len(g.schema.UtilityFunctions) > 0 {
		util, err := renderFile(g.utilityFile())
		if err != nil {
			return nil, fmt.Errorf("gen: utility: %w", err)
		}
		files["utility.gen.go"] = util
	}

	registry, err := renderFile(g.registryFile())
	if err != nil {
		return nil, fmt.Errorf("gen: registry: %w", err)
	}
	files["registry.gen.go"] = registry

	return files, nil
}

// newFile starts a unit with the shared header.
func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.opts.Package)
	f.HeaderComment("Code generated by hostbind. DO NOT EDIT.")
	return f
}

func renderFile(f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flush writes all rendered units. It runs only after every unit rendered
// successfully, keeping generation all-or-nothing.
func flush(outDir string, files map[string][]byte) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
