package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix allows algorithm migration.
const (
	DomainEvent = "txbatch/event/v1"
	DomainTrace = "txbatch/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventDigest computes the content digest of a recorded step.
// Stable across runs and replays given the same decisions.
func EventDigest(r EventRecord) (string, error) {
	canonical, err := MarshalCanonical(r.Value())
	if err != nil {
		return "", fmt.Errorf("EventDigest: epoch %d: %w", r.Epoch, err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// TraceDigest folds event digests into one chained digest. Order matters.
func TraceDigest(eventDigests []string) string {
	prev := ""
	for _, d := range eventDigests {
		prev = hashWithDomain(DomainTrace, []byte(prev+d))
	}
	return prev
}

// MustEventDigest is like EventDigest but panics on error.
// Use only in tests or when the record is known to be valid.
func MustEventDigest(r EventRecord) string {
	d, err := EventDigest(r)
	if err != nil {
		panic(err)
	}
	return d
}
