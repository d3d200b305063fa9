// Package random provides entropy helpers for the opening engine.
//
// It uses crypto/rand to generate high-entropy values and SHA-256 to
// deterministically expand a single random word into per-item words when
// the oracle supplies fewer words than a bundle needs.
package random

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewWord generates a random 64-bit word using crypto/rand.
func NewWord() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random word: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// DeriveWord expands a base word into the word for item position index.
//
// A raw oracle word is never reused for two selection decisions: position 0
// consumes the base word directly and every later position hashes the base
// word together with its index.
func DeriveWord(base uint64, index int) uint64 {
	if index == 0 {
		return base
	}

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], base)
	binary.BigEndian.PutUint64(buf[8:], uint64(index))
	digest := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(digest[:8])
}

// ExpandWords returns exactly count words for a bundle, consuming the
// supplied oracle words first and deriving the remainder from the first
// word. It returns an error when no words were supplied.
func ExpandWords(words []uint64, count int) ([]uint64, error) {
	if count <= 0 {
		return nil, nil
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("at least one random word is required")
	}
	if len(words) >= count {
		return words[:count], nil
	}

	expanded := make([]uint64, count)
	copy(expanded, words)
	for i := len(words); i < count; i++ {
		expanded[i] = DeriveWord(words[0], i)
	}
	return expanded, nil
}
