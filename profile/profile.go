// Package profile computes the included class subset for a generation run.
//
// A build profile whitelists and/or blacklists classes; the filter closes
// the whitelist over ancestors (an included class needs its whole parent
// chain to type-check) and the blacklist over descendants (a class can
// never be included if any ancestor is excluded), then drops methods whose
// signatures mention classes outside the final set.
package profile

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Profile is a whitelist/blacklist of class names. It is pure input:
// supplied once per generation run and never mutated.
type Profile struct {
	Enabled  []string `toml:"enabled-classes"`
	Disabled []string `toml:"disabled-classes"`
}

// Baseline is the set of classes the runtime support code needs regardless
// of profile. They are always added to the inclusion worklist (when present
// in the schema), together with their ancestor chains.
var Baseline = []string{
	"TypeRegistry",
	"WorkerThreadPool",
	"FileAccess",
}

// LoadFile parses a profile from a TOML file.
//
// File format:
//
//	enabled-classes = ["Node", "Timer"]
//	disabled-classes = ["Navigation"]
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &p, nil
}
