package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for algorithm migration without colliding with old hashes.
const (
	DomainDocument = "weft/document/v1"
	DomainValue    = "weft/value/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the content-addressed identity of a document.
// Stable across processes for the same compiled input: the marshal is
// byte-deterministic and the markdown leaves are hashed in rendered form.
func DocumentHash(d *Document) (string, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("DocumentHash: marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, data), nil
}

// ValueHash computes a content hash of an evaluated value, used by trace
// output when a value is too large to inline.
func ValueHash(v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ValueHash: marshal: %w", err)
	}
	return hashWithDomain(DomainValue, data), nil
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when the document is known to be valid.
func MustDocumentHash(d *Document) string {
	h, err := DocumentHash(d)
	if err != nil {
		panic(err)
	}
	return h
}
