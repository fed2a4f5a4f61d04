package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/jwt"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestRun(t *testing.T) {
	t.Run("mints a verifiable token", func(t *testing.T) {
		// Arrange
		var stdout, stderr bytes.Buffer
		args := []string{"-config", "", "-secret", testSecret, "-issuer", "attendance", "-audience", "attendance, web",
			"-user", "42", "-role", "member", "-group", "7", "-ttl", "1h"}

		// Act
		code := run(args, &stdout, &stderr)

		// Assert
		require.Equal(t, 0, code, stderr.String())
		verifier, err := jwt.NewHS512(jwt.Config{
			Secret:    []byte(testSecret),
			Issuer:    "attendance",
			Audiences: []string{"attendance"},
			TTL:       time.Hour,
			Clock:     clock.New(),
			UUID:      uid.NewUUID(),
		})
		require.NoError(t, err)

		clm, err := verifier.Verify(strings.TrimSpace(stdout.String()))
		require.NoError(t, err)
		assert.Equal(t, jwt.Subject{UserID: 42, Role: "member", GroupID: 7}, clm.Identity())
		assert.ElementsMatch(t, []string{"attendance", "web"}, []string(clm.Audience))
	})

	t.Run("unknown role", func(t *testing.T) {
		var stderr bytes.Buffer

		code := run([]string{"-config", "", "-secret", testSecret, "-role", "owner"}, &bytes.Buffer{}, &stderr)

		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "unknown role")
	})

	t.Run("short secret", func(t *testing.T) {
		code := run([]string{"-config", "", "-secret", "short"}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Equal(t, 1, code)
	})

	t.Run("missing config file", func(t *testing.T) {
		code := run([]string{"-config", t.TempDir() + "/missing.yaml"}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Equal(t, 1, code)
	})

	t.Run("bad flag", func(t *testing.T) {
		code := run([]string{"-nope"}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Equal(t, 2, code)
	})
}
