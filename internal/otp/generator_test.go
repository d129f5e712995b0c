// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorGenerate(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(6)

	code, err := gen.Generate()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit %q", code, r)
	}
}

func TestGeneratorLengthClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"too short", 2, 6},
		{"minimum", 4, 4},
		{"typical", 6, 6},
		{"maximum", 10, 10},
		{"too long", 20, 6},
		{"zero", 0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := NewGenerator(tt.length)
			assert.Equal(t, tt.want, gen.Length())

			code, err := gen.Generate()
			require.NoError(t, err)
			assert.Len(t, code, tt.want)
		})
	}
}

func TestGeneratorCodesVary(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(6)
	seen := make(map[string]bool)
	for range 50 {
		code, err := gen.Generate()
		require.NoError(t, err)
		seen[code] = true
	}
	// 50 draws from a million values colliding down to a handful would
	// mean a broken random source.
	assert.Greater(t, len(seen), 40)
}

func TestHashCode(t *testing.T) {
	t.Parallel()

	h := HashCode("123456")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashCode("123456"))
	assert.NotEqual(t, h, HashCode("123457"))
}
