package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.toml")
	content := `
enabled-classes = ["Node", "Timer"]
disabled-classes = ["Navigation"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(p.Enabled) != 2 || p.Enabled[0] != "Node" || p.Enabled[1] != "Timer" {
		t.Errorf("Enabled = %v", p.Enabled)
	}
	if len(p.Disabled) != 1 || p.Disabled[0] != "Navigation" {
		t.Errorf("Disabled = %v", p.Disabled)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadFile succeeded on a missing file")
	}
}

func TestLoadFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.toml")
	if err := os.WriteFile(path, []byte(`enabled-classes = "not a list"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile succeeded on malformed TOML")
	}
}
