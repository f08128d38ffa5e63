// Package chunk splits an encoded document payload into bounded-size
// fragments and joins them back losslessly. It carries no persistence logic;
// pkg/asset drives it against a store.
package chunk

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultFragmentSize bounds one fragment so it fits a size-constrained
// document record with headroom to spare.
const DefaultFragmentSize = 600_000

// ErrFragmentSize indicates a non-positive maximum fragment size.
var ErrFragmentSize = errors.New("fragment size must be positive")

// Split cuts encoded into fragments of at most maxSize characters. The
// result has exactly ceil(len(encoded)/maxSize) fragments in order; an empty
// input yields no fragments. Splitting is safe at any offset because the
// input is a base64 text, not raw bytes.
func Split(encoded string, maxSize int) ([]string, error) {
	if maxSize <= 0 {
		return nil, ErrFragmentSize
	}
	if encoded == "" {
		return nil, nil
	}
	parts := make([]string, 0, Count(len(encoded), maxSize))
	for start := 0; start < len(encoded); start += maxSize {
		end := start + maxSize
		if end > len(encoded) {
			end = len(encoded)
		}
		parts = append(parts, encoded[start:end])
	}
	return parts, nil
}

// Join concatenates fragments in order. It is the exact inverse of Split.
func Join(parts []string) string {
	var total int
	for _, p := range parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return string(buf)
}

// Count returns the number of fragments Split produces for an input of
// encodedLen characters. Count(0, n) == 0.
func Count(encodedLen, maxSize int) int {
	if maxSize <= 0 || encodedLen <= 0 {
		return 0
	}
	return (encodedLen + maxSize - 1) / maxSize
}

// Encode renders a binary payload in the transport-safe textual form that
// Split operates on.
func Encode(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}

// Decode reverses Encode.
func Decode(encoded string) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
