package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACSHA256_Hash(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		// Arrange
		h := NewHMACSHA256([]byte("key"))

		// Act
		got, err := h.Hash("The quick brown fox jumps over the lazy dog")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", string(got))
	})

	t.Run("hex matches hash", func(t *testing.T) {
		// Arrange
		h := NewHMACSHA256([]byte("key"))

		// Act
		got, err := h.Hash("1700000000")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, string(got), h.Hex("1700000000"))
		assert.Len(t, got, 64)
	})

	t.Run("key is copied", func(t *testing.T) {
		// Arrange
		key := []byte("key")
		h := NewHMACSHA256(key)
		want := h.Hex("0")

		// Act
		key[0] = 'x'

		// Assert
		assert.Equal(t, want, h.Hex("0"))
	})
}

func TestHMACSHA256_Verify(t *testing.T) {
	h := NewHMACSHA256([]byte("session-secret"))
	digest := h.Hex("1700000000")

	tests := []struct {
		name   string
		hashed string
		str    string
		want   bool
	}{
		{name: "match", hashed: digest, str: "1700000000", want: true},
		{name: "other message", hashed: digest, str: "1700000050", want: false},
		{name: "uppercase digest", hashed: strings.ToUpper(digest), str: "1700000000", want: false},
		{name: "truncated", hashed: digest[:63], str: "1700000000", want: false},
		{name: "empty", hashed: "", str: "1700000000", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got := h.Verify(tt.hashed, tt.str)

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("different key", func(t *testing.T) {
		// Act
		got := NewHMACSHA256([]byte("other")).Verify(digest, "1700000000")

		// Assert
		assert.False(t, got)
	})
}
