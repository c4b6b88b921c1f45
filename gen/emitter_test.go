package gen

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/hostbind/profile"
	"github.com/chazu/hostbind/schema"
	"github.com/chazu/hostbind/typemap"
)

const testDoc = `{
	"header": {"majorVersion": 1, "minorVersion": 0, "patchVersion": 0},
	"builtinSizeTables": [
		{"buildConfig": "float_32", "sizes": [{"name": "Vector3", "size": 12}]},
		{"buildConfig": "double_64", "sizes": [{"name": "Vector3", "size": 24}]}
	],
	"memberOffsetTables": [
		{"buildConfig": "float_32", "types": [
			{"name": "Vector3", "members": [
				{"member": "x", "offset": 0}, {"member": "y", "offset": 4}, {"member": "z", "offset": 8}
			]}
		]}
	],
	"enums": [
		{"name": "Error", "values": [{"name": "OK", "value": 0}, {"name": "FAILED", "value": 1}]},
		{"name": "RenderFlags", "bitfield": true, "values": [{"name": "SHADOWS", "value": 1}, {"name": "FOG", "value": 2}]}
	],
	"classes": [
		{"name": "Object", "parent": ""},
		{"name": "TypeRegistry", "parent": "Object"},
		{"name": "Base", "parent": "Object", "methods": [
			{"name": "poll", "virtual": true, "hash": 11}
		]},
		{"name": "Derived", "parent": "Base", "instantiable": true, "methods": [
			{"name": "poll", "virtual": true, "hash": 13},
			{"name": "get_scale", "returnType": "real", "hash": 21},
			{"name": "get_parent_node", "returnType": "Base", "hash": 22},
			{"name": "set_tags", "params": [{"name": "tags", "type": "TypedArray[String]"}], "hash": 23},
			{"name": "describe", "params": [{"name": "format", "type": "String"}], "returnType": "String", "vararg": true, "hash": 24},
			{"name": "version", "static": true, "returnType": "int32", "hash": 25}
		], "enums": [
			{"name": "Mode", "values": [{"name": "IDLE", "value": 0}, {"name": "BUSY", "value": 1}]}
		]},
		{"name": "Resource", "parent": "Object", "refCounted": true, "methods": [
			{"name": "get_path", "returnType": "String", "hash": 31}
		]},
		{"name": "TimeServer", "parent": "Object", "singleton": true, "methods": [
			{"name": "now", "returnType": "int64", "hash": 41}
		]}
	],
	"utilityFunctions": [
		{"name": "lerp", "params": [
			{"name": "from", "type": "real"}, {"name": "to", "type": "real"}, {"name": "weight", "type": "real"}
		], "returnType": "real", "hash": 99}
	],
	"singletons": [{"name": "TimeServer", "type": "TimeServer"}]
}`

func loadTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Load([]byte(testDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestRenderIsDeterministic(t *testing.T) {
	s := loadTestSchema(t)
	opts := Options{Precision: typemap.Single}

	first, err := Render(s, opts)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	second, err := Render(s, opts)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("file counts differ: %d vs %d", len(first), len(second))
	}
	for name, data := range first {
		if !bytes.Equal(data, second[name]) {
			t.Errorf("file %s differs across identical runs", name)
		}
	}
}

func TestRenderFileSet(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{Precision: typemap.Single})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		"object.gen.go", "object_impl.gen.go",
		"derived.gen.go", "derived_impl.gen.go",
		"type_registry.gen.go",
		"builtin_vector3.gen.go",
		"enums.gen.go",
		"utility.gen.go",
		"registry.gen.go",
	} {
		if _, ok := files[want]; !ok {
			t.Errorf("missing expected file %s", want)
		}
	}
}

func TestDispatchRegistrationOnlyForOverrides(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{Precision: typemap.Single})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	registry := string(files["registry.gen.go"])

	// Derived re-declares poll, so it gets an entry; Base's declaration
	// is the ancestor default and gets none.
	if !strings.Contains(registry, `bind.RegisterVirtual("Derived", "poll"`) {
		t.Error("missing dispatch entry for Derived.poll")
	}
	if strings.Contains(registry, `bind.RegisterVirtual("Base", "poll"`) {
		t.Error("unexpected dispatch entry for Base.poll")
	}

	// Ancestors register before descendants so descendants shadow.
	base := strings.Index(registry, `bind.RegisterClass("Base"`)
	derived := strings.Index(registry, `bind.RegisterClass("Derived"`)
	object := strings.Index(registry, `bind.RegisterClass("Object"`)
	if object < 0 || base < 0 || derived < 0 {
		t.Fatal("missing RegisterClass calls")
	}
	if !(object < base && base < derived) {
		t.Errorf("registration order wrong: Object@%d Base@%d Derived@%d", object, base, derived)
	}
}

func TestReservedNameAlias(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{Precision: typemap.Single})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	decl := string(files["type_registry.gen.go"])
	if !strings.Contains(decl, "type HostTypeRegistry struct") {
		t.Error("schema TypeRegistry class not emitted under its alias")
	}
	if strings.Contains(decl, "type TypeRegistry struct{}") {
		t.Error("schema class collided with the generated facade")
	}

	// The facade keeps the reserved name in the registry unit.
	registry := string(files["registry.gen.go"])
	if !strings.Contains(registry, "type TypeRegistry struct") {
		t.Error("generated TypeRegistry facade missing")
	}
}

func TestClassEmission(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{Precision: typemap.Single})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	decl := string(files["derived.gen.go"])
	impl := string(files["derived_impl.gen.go"])

	if !strings.Contains(decl, "type Derived struct") || !strings.Contains(decl, "Base") {
		t.Error("Derived wrapper does not embed its parent")
	}
	if !strings.Contains(decl, "func NewDerived() *Derived") {
		t.Error("missing constructor for instantiable class")
	}
	if !strings.Contains(decl, "type DerivedMode int64") ||
		!strings.Contains(decl, "DerivedModeIdle") {
		t.Error("class enum not emitted")
	}

	if !strings.Contains(impl, `bind.Method("Derived", "get_scale", int64(21))`) {
		t.Error("missing cache entry for get_scale")
	}
	if !strings.Contains(impl, "func (x *Derived) GetScale() float32") {
		t.Error("real return did not use the run precision")
	}
	if !strings.Contains(impl, "func (x *Derived) GetParentNode() *Base") {
		t.Error("object return type wrong")
	}
	if !strings.Contains(impl, "func (x *Derived) SetTags(tags []string)") {
		t.Error("typed container parameter wrong")
	}
	if !strings.Contains(impl, "rest ...any") {
		t.Error("vararg method missing trailing parameter")
	}
	if !strings.Contains(impl, "func DerivedVersion() int32") {
		t.Error("static method not emitted as package function")
	}
}

func TestPrecisionAffectsOutput(t *testing.T) {
	s := loadTestSchema(t)

	single, err := Render(s, Options{Precision: typemap.Single})
	if err != nil {
		t.Fatal(err)
	}
	double, err := Render(s, Options{Precision: typemap.Double})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(single["derived_impl.gen.go"]), "GetScale() float32") {
		t.Error("single-precision real not float32")
	}
	if !strings.Contains(string(double["derived_impl.gen.go"]), "GetScale() float64") {
		t.Error("double-precision real not float64")
	}
}

func TestRefCountedAndSingletonAccessors(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{Precision: typemap.Single})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	res := string(files["resource.gen.go"])
	if !strings.Contains(res, "func (x *Resource) Ref()") ||
		!strings.Contains(res, "func (x *Resource) Unref()") {
		t.Error("reference-counted class missing ownership accessors")
	}

	ts := string(files["time_server.gen.go"])
	if !strings.Contains(ts, "func TimeServerInstance() *TimeServer") {
		t.Error("singleton class missing lazy accessor")
	}
	tsImpl := string(files["time_server_impl.gen.go"])
	if !strings.Contains(tsImpl, `bind.Singleton("TimeServer")`) {
		t.Error("singleton cache entry missing")
	}
}

func TestBuiltinUnit(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{Precision: typemap.Single, BuildConfig: "float_32"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	unit := string(files["builtin_vector3.gen.go"])
	if !strings.Contains(unit, "Vector3Size = 12") {
		t.Error("size constant missing or wrong")
	}
	if !strings.Contains(unit, "Vector3OffsetZ = 8") {
		t.Error("member offset constants missing")
	}
	if !strings.Contains(unit, `bind.Ctor("Vector3", 0)`) {
		t.Error("index-keyed constructor entry missing")
	}
}

func TestUtilityUnit(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{Precision: typemap.Double})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	unit := string(files["utility.gen.go"])
	if !strings.Contains(unit, `bind.Method("@utility", "lerp", int64(99))`) {
		t.Error("utility cache entry missing")
	}
	if !strings.Contains(unit, "func Lerp(from float64, to float64, weight float64) float64") {
		t.Error("utility wrapper signature wrong")
	}
}

func TestProfileRestrictsEmission(t *testing.T) {
	s := loadTestSchema(t)
	files, err := Render(s, Options{
		Precision: typemap.Single,
		Profile:   &profile.Profile{Enabled: []string{"Derived"}},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if _, ok := files["derived.gen.go"]; !ok {
		t.Error("enabled class missing")
	}
	if _, ok := files["base.gen.go"]; !ok {
		t.Error("ancestor of enabled class missing")
	}
	if _, ok := files["type_registry.gen.go"]; !ok {
		t.Error("baseline class missing")
	}
	if _, ok := files["resource.gen.go"]; ok {
		t.Error("unrelated class emitted despite whitelist")
	}
}

func TestRenderRejectsCyclicSchema(t *testing.T) {
	doc := `{"classes": [
		{"name": "A", "parent": "B"},
		{"name": "B", "parent": "A"}
	]}`
	s, err := schema.Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// No profile given: the cycle must still be fatal before any parent
	// walk runs, or emission would never terminate.
	_, err = Render(s, Options{Precision: typemap.Single})
	if err == nil {
		t.Fatal("Render accepted a cyclic parent chain")
	}
	if _, ok := err.(*profile.CycleError); !ok {
		t.Errorf("error = %T, want *profile.CycleError", err)
	}
}

func TestUnknownBuildConfigFails(t *testing.T) {
	s := loadTestSchema(t)
	_, err := Render(s, Options{Precision: typemap.Single, BuildConfig: "float_64"})
	if err == nil {
		t.Fatal("Render accepted an undeclared build configuration")
	}
	if !strings.Contains(err.Error(), "float_64") {
		t.Errorf("error %q does not name the bad configuration", err)
	}
}

func TestEnumValuesKeepFullWidth(t *testing.T) {
	doc := `{"classes": [
		{"name": "Object", "enums": [
			{"name": "Span", "values": [
				{"name": "WIDE", "value": 4294967296},
				{"name": "NEGATIVE", "value": -1}
			]}
		]}
	]}`
	s, err := schema.Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	files, err := Render(s, Options{Precision: typemap.Single})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	decl := string(files["object.gen.go"])
	if !strings.Contains(decl, "ObjectSpanWide") || !strings.Contains(decl, "= 4294967296") {
		t.Error("64-bit enum value not emitted at full width")
	}
	if !strings.Contains(decl, "ObjectSpanNegative") || !strings.Contains(decl, "= -1") {
		t.Error("negative enum value emitted wrong")
	}
}

func TestPrecisionGateEmitsNothing(t *testing.T) {
	doc := `{"header": {"precision": "double"}, "classes": [{"name": "Object"}]}`
	s, err := schema.Load([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(t.TempDir(), "out")
	_, err = Run(s, Options{Precision: typemap.Single, OutDir: outDir})
	if err == nil {
		t.Fatal("Run accepted mismatched precision")
	}
	if _, ok := err.(*typemap.PrecisionMismatchError); !ok {
		t.Errorf("error = %T, want *typemap.PrecisionMismatchError", err)
	}
	if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
		t.Error("output directory exists despite fatal error")
	}
}

func TestRunWritesManifest(t *testing.T) {
	s := loadTestSchema(t)
	outDir := t.TempDir()

	report, err := Run(s, Options{Precision: typemap.Single, OutDir: outDir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Classes != 6 {
		t.Errorf("report.Classes = %d, want 6", report.Classes)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "manifest.cbor"))
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	m, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest: %v", err)
	}
	if m.SchemaDigest != report.SchemaDigest {
		t.Error("manifest digest does not match report")
	}
	if len(m.Files) == 0 {
		t.Error("manifest lists no files")
	}
	for _, fe := range m.Files {
		if fe.SHA256 == "" {
			t.Errorf("file %s has empty hash", fe.Name)
		}
		if _, err := os.Stat(filepath.Join(outDir, fe.Name)); err != nil {
			t.Errorf("manifest entry %s not on disk: %v", fe.Name, err)
		}
	}
}
