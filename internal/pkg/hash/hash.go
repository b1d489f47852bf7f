// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// Fingerprint returns a 16 character hex xxhash of data. It identifies file
// contents for caching and is not meant to resist collisions on purpose.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// CacheKey builds a deterministic key from a content fingerprint and the
// parameters that shaped the cached value.
func CacheKey(fingerprint string, params ...string) string {
	d := xxhash.New()
	_, _ = d.WriteString(fingerprint)
	for _, p := range params {
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(p)
	}
	return fmt.Sprintf("%s-%08x", fingerprint, uint32(d.Sum64()))
}

// EventID generates an identifier for an evaluation event.
func EventID(structure, prediction string, at time.Time) string {
	data := []byte(structure + "\x00" + prediction + "\x00" + at.UTC().Format(time.RFC3339Nano))
	return SHA256Short(data, 16)
}
