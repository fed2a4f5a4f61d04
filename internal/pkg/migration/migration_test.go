package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(Migrations, "sql/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		raw, err := fs.ReadFile(Migrations, f)
		require.NoError(t, err)

		body := string(raw)
		assert.True(t, strings.HasPrefix(body, "-- +goose Up"), f)
		assert.Contains(t, body, "-- +goose Down", f)
	}
}
