// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const digits = "0123456789"

// Generator produces numeric verification codes.
type Generator struct {
	length int
}

// NewGenerator returns a Generator emitting codes of the given length.
// Lengths outside 4..10 fall back to 6.
func NewGenerator(length int) *Generator {
	if length < 4 || length > 10 {
		length = 6
	}
	return &Generator{length: length}
}

// Generate returns a fresh numeric code. Each digit is drawn independently
// from crypto/rand, so leading zeros are as likely as any other digit.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.length)
	max := big.NewInt(int64(len(digits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = digits[n.Int64()]
	}
	return string(buf), nil
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// HashCode returns the hex-encoded SHA-256 of a code, for backends that
// refuse to hold secrets in the clear.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
