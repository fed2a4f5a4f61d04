package jwt

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
)

func newSymmetric(t *testing.T, c *clock.Manual) *Symmetric {
	t.Helper()
	s, err := NewHS512(Config{
		Secret:    bytes.Repeat([]byte("k"), 64),
		Issuer:    "attendance",
		Audiences: []string{"attendance-api"},
		TTL:       time.Minute,
		Clock:     c,
		UUID:      uid.NewUUID(),
	})
	require.NoError(t, err)
	return s
}

func TestSymmetric(t *testing.T) {
	c := clock.NewManual(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	s := newSymmetric(t, c)

	t.Run("round trip", func(t *testing.T) {
		// Arrange
		tok, err := s.Generate(Subject{UserID: 11, Role: "admin", GroupID: 3})
		require.NoError(t, err)

		// Act
		claims, err := s.Verify(tok)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, Subject{UserID: 11, Role: "admin", GroupID: 3}, claims.Identity())
		assert.Equal(t, "11", claims.Subject)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := s.Generate(Subject{UserID: 1, Role: "member"})
		require.NoError(t, err)
		c.Advance(2 * time.Minute)
		t.Cleanup(func() { c.Advance(-2 * time.Minute) })

		_, err = s.Verify(tok)

		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("tampered", func(t *testing.T) {
		tok, err := s.Generate(Subject{UserID: 1, Role: "member"})
		require.NoError(t, err)

		_, err = s.Verify(tok + "x")

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other, err := NewHS512(Config{Secret: bytes.Repeat([]byte("k"), 64), Issuer: "else", Clock: c, UUID: uid.NewUUID()})
		require.NoError(t, err)
		tok, err := other.Generate(Subject{UserID: 1})
		require.NoError(t, err)

		_, err = s.Verify(tok)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := NewHS512(Config{Secret: []byte("short")})
		assert.ErrorIs(t, err, ErrSigningKeyTooShort)
	})
}

func TestContext(t *testing.T) {
	assert.Nil(t, GetAuth(context.Background()))

	ctx := SetAuth(context.Background(), Claims{UserID: 5})

	require.NotNil(t, GetAuth(ctx))
	assert.Equal(t, int64(5), GetAuth(ctx).UserID)
}
