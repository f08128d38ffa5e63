package room

import (
	"crypto/rand"
	"fmt"
)

// codeLength is the length of a shareable room code. 6 characters over a
// 32-symbol alphabet keeps codes short enough to read aloud while leaving
// collisions to the creation retry loop.
const codeLength = 6

// codeAlphabet omits 0/O and 1/I, which read ambiguously when shared by hand.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newCode returns a random human-shareable room code.
func newCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
