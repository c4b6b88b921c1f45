package gen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// manifestFileName is the run manifest emitted alongside the units.
const manifestFileName = "manifest.cbor"

// Manifest records what one generation run produced: the schema digest,
// the precision, and a content hash per emitted file. It is encoded in
// canonical CBOR so identical runs produce identical manifests.
type Manifest struct {
	SchemaDigest string      `cbor:"schemaDigest"`
	Precision    string      `cbor:"precision"`
	Files        []FileEntry `cbor:"files"`
}

// FileEntry is one emitted file and its SHA-256 content hash.
type FileEntry struct {
	Name   string `cbor:"name"`
	SHA256 string `cbor:"sha256"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("gen: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

func buildManifest(schemaDigest, precision string, files map[string][]byte) ([]byte, error) {
	m := Manifest{SchemaDigest: schemaDigest, Precision: precision}
	for name, data := range files {
		h := sha256.Sum256(data)
		m.Files = append(m.Files, FileEntry{Name: name, SHA256: hex.EncodeToString(h[:])})
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Name < m.Files[j].Name })
	data, err := cborEncMode.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("gen: encode manifest: %w", err)
	}
	return data, nil
}

// DecodeManifest parses a manifest previously written by a run.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("gen: decode manifest: %w", err)
	}
	return &m, nil
}
