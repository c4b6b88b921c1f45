// hostbind - generates Go wrapper bindings from a host runtime's API schema.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/hostbind/gen"
	"github.com/chazu/hostbind/profile"
	"github.com/chazu/hostbind/schema"
	"github.com/chazu/hostbind/store"
	"github.com/chazu/hostbind/typemap"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hostbind <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  generate   Emit wrapper bindings from an API schema\n")
		fmt.Fprintf(os.Stderr, "  digest     Print the canonical digest of an API schema\n")
		fmt.Fprintf(os.Stderr, "  inspect    Summarize a schema, optionally one class\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hostbind generate -api extension_api.json -out ./hostapi\n")
		fmt.Fprintf(os.Stderr, "  hostbind generate -api api.json -profile profile.toml -precision double\n")
		fmt.Fprintf(os.Stderr, "  hostbind inspect -api api.json Node\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "generate":
		handleGenerate(args[1:])
	case "digest":
		handleDigest(args[1:])
	case "inspect":
		handleInspect(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

func handleGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	apiPath := fs.String("api", "", "Path to the API schema JSON (required)")
	profilePath := fs.String("profile", "", "Optional build profile TOML")
	precision := fs.String("precision", "single", "Target precision: single or double")
	buildConfig := fs.String("build-config", "", "Builtin size/offset configuration (default: schema's first)")
	outDir := fs.String("out", "./hostapi", "Output directory")
	pkgName := fs.String("package", "hostapi", "Generated package name")
	storePath := fs.String("store", "", "Optional SQLite output journal")
	verbose := fs.Bool("v", false, "Verbose output")
	fs.Parse(args)

	if *apiPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -api is required")
		fs.Usage()
		os.Exit(1)
	}

	s, err := schema.LoadFile(*apiPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading schema: %v\n", err)
		os.Exit(1)
	}

	var p *profile.Profile
	if *profilePath != "" {
		p, err = profile.LoadFile(*profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading profile: %v\n", err)
			os.Exit(1)
		}
	}

	report, err := gen.Run(s, gen.Options{
		Precision:   typemap.Precision(*precision),
		Profile:     p,
		BuildConfig: *buildConfig,
		Package:     *pkgName,
		OutDir:      *outDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *storePath != "" {
		if err := journalRun(*storePath, *outDir, *precision, report, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error updating store: %v\n", err)
			os.Exit(1)
		}
	}

	if *verbose {
		fmt.Printf("Schema digest: %s\n", report.SchemaDigest)
		for _, name := range report.Files {
			fmt.Printf("  wrote %s\n", name)
		}
	}
	fmt.Printf("Generated %d files (%d classes, %d builtin types) in %s\n",
		len(report.Files), report.Classes, report.Builtins, *outDir)
}

// journalRun hashes what the run wrote and records it so the next run can
// report which outputs changed.
func journalRun(path, outDir, precision string, report *gen.Report, verbose bool) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	files := make(map[string][]byte, len(report.Files))
	for _, name := range report.Files {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		files[name] = data
	}

	changed, err := st.Sync(report.SchemaDigest, files)
	if err != nil {
		return err
	}
	if err := st.RecordRun(report.SchemaDigest, precision, len(files)); err != nil {
		return err
	}
	if verbose {
		sort.Strings(changed)
		fmt.Printf("%d files changed since last run\n", len(changed))
	}
	return nil
}

func handleDigest(args []string) {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	apiPath := fs.String("api", "", "Path to the API schema JSON (required)")
	fs.Parse(args)

	if *apiPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -api is required")
		os.Exit(1)
	}
	s, err := schema.LoadFile(*apiPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading schema: %v\n", err)
		os.Exit(1)
	}
	digest, err := s.DigestString()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(digest)
}

func handleInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	apiPath := fs.String("api", "", "Path to the API schema JSON (required)")
	fs.Parse(args)

	if *apiPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -api is required")
		os.Exit(1)
	}
	s, err := schema.LoadFile(*apiPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading schema: %v\n", err)
		os.Exit(1)
	}

	if rest := fs.Args(); len(rest) > 0 {
		name := rest[0]
		c := s.ClassByName(name)
		if c == nil {
			fmt.Fprintf(os.Stderr, "Unknown class: %s\n", name)
			os.Exit(1)
		}
		fmt.Printf("%s (parent: %s)\n", c.Name, orNone(c.Parent))
		fmt.Printf("  instantiable=%v refCounted=%v singleton=%v\n",
			c.Instantiable, c.RefCounted, c.Singleton)
		for _, m := range c.Methods {
			fmt.Printf("  %s/%d hash=%d\n", m.Name, len(m.Params), m.Hash)
		}
		return
	}

	fmt.Printf("Schema %d.%d.%d precision=%s\n",
		s.Header.Major, s.Header.Minor, s.Header.Patch, orNone(s.Header.Precision))
	fmt.Printf("  %d classes, %d global enums, %d builtin types, %d singletons\n",
		len(s.Classes), len(s.Enums), len(s.BuiltinNames()), len(s.Singletons))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
