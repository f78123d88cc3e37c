package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough for display
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Hasher accumulates length-prefixed fields so that ("ab","c") and ("a","bc") differ
type Hasher struct {
	buf []byte
}

// Add appends one field
func (h *Hasher) Add(fields ...string) *Hasher {
	for _, f := range fields {
		h.buf = append(h.buf, byte(len(f)>>24), byte(len(f)>>16), byte(len(f)>>8), byte(len(f)))
		h.buf = append(h.buf, f...)
	}
	return h
}

// Sum returns the hash of everything added so far
func (h *Hasher) Sum() Hash {
	return NewHash(h.buf)
}
