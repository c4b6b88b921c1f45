package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so the digest is independent of JSON key
// order in the source document.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("schema: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Digest returns the SHA-256 hash of the schema's canonical CBOR
// serialization. Two documents describing the same API produce the same
// digest regardless of field ordering in the raw JSON.
func (s *Schema) Digest() ([32]byte, error) {
	data, err := cborEncMode.Marshal(s)
	if err != nil {
		return [32]byte{}, fmt.Errorf("schema: digest encoding: %w", err)
	}
	return sha256.Sum256(data), nil
}

// DigestString returns the digest as a lowercase hex string.
func (s *Schema) DigestString() (string, error) {
	h, err := s.Digest()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}
