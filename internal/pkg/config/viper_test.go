package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  name: attendance
  maintenance: true
rotation:
  tick_ms: 250
  interval: 50
  zero: 0
secret: aGVsbG8=
origins: "http://a, http://b,,"
list:
  - x
  - y
pairs: "member:read, admin:write"
`

func TestNewViperFromBytes(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })

	// Assert
	assert.Equal(t, "attendance", cfg.GetString("app.name"))
	assert.True(t, cfg.GetBool("app.maintenance"))
	assert.Equal(t, 250*time.Millisecond, cfg.GetMillisecond("rotation.tick_ms"))
	assert.Equal(t, 50*time.Second, cfg.GetSecond("rotation.interval"))
	assert.Equal(t, 50*time.Minute, cfg.GetMinute("rotation.interval"))
	assert.Equal(t, 50, cfg.GetInt("rotation.interval"))
	assert.Equal(t, []byte("hello"), cfg.GetBinary("secret"))
	assert.Nil(t, cfg.GetBinary("app.name"))
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.GetArray("origins"))
	assert.Equal(t, []string{"x", "y"}, cfg.GetArray("list"))
	assert.Empty(t, cfg.GetArray("missing"))
	assert.Equal(t, map[string]string{"member": "read", "admin": "write"}, cfg.GetMap("pairs"))
}

func TestHelpers(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, int64(50), IntOr(cfg, "rotation.interval", 10))
	assert.Equal(t, int64(10), IntOr(cfg, "rotation.zero", 10))
	assert.Equal(t, int64(10), IntOr(cfg, "rotation.missing", 10))
	assert.Equal(t, 250*time.Millisecond, DurationOr(cfg.GetMillisecond, cfg, "rotation.tick_ms", time.Second))
	assert.Equal(t, time.Second, DurationOr(cfg.GetMillisecond, cfg, "rotation.none", time.Second))
	assert.Equal(t, "fallback", StringOr(cfg, "app.none", "fallback"))
}

func TestNewViper(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		dir := t.TempDir()
		p := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(p, []byte(sample), 0o600))

		cfg, err := NewViper(p)

		require.NoError(t, err)
		assert.Equal(t, "attendance", cfg.GetString("app.name"))
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("APP_NAME", "other")
		cfg, err := NewViperFromBytes("yaml", []byte(sample))
		require.NoError(t, err)

		assert.Equal(t, "other", cfg.GetString("app.name"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := NewViperFromBytes(" ", nil)
		assert.Error(t, err)
	})
}
