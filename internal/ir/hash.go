package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// The version suffix allows the encoding to migrate.
const (
	DomainProgram = "ruleflow/program/v1"
	DomainSpace   = "ruleflow/space/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash digests a compiled program so exported traces can be tied back to
// the rules that produced them. Whitespace and ordering of flag maps do not
// affect the result.
func SpecHash(p Program) (string, error) {
	canonical, err := MarshalCanonical(p.ToCanonical())
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// SpaceDigest identifies a space by its quanta alone.
func SpaceDigest(cells []*Cell) string {
	return hashWithDomain(DomainSpace, Encode(cells))
}

// MustSpecHash is like SpecHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSpecHash(p Program) string {
	h, err := SpecHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
