package checklist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Digest returns a stable SHA-256 hex digest over the checklist's full
// structure. The JSON encoding is canonicalized per RFC 8785 before hashing
// so the result does not depend on map iteration order or encoder defaults.
//
// The digest binds sessions to the exact checklist content they were created
// from: any semantic change to the document changes the digest.
func (c *Checklist) Digest() (string, error) {
	if c.digest != "" {
		return c.digest, nil
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode checklist: %w", err)
	}

	canonical, err := jcs.Transform(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize checklist: %w", err)
	}

	sum := sha256.Sum256(canonical)
	c.digest = hex.EncodeToString(sum[:])
	return c.digest, nil
}
