package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{ServiceName: "attendance", MaskFields: []string{"Secret", " token "}}

	t.Run("renames keys and adds context", func(t *testing.T) {
		// Arrange
		var buf bytes.Buffer
		log := NewLogger(&buf, cfg, nil)
		ctx := SetCorrelationID(context.Background(), "cid-1")

		// Act
		log.InfoContext(ctx, "session started", "meeting_id", 7)

		// Assert
		m := decode(t, &buf)
		assert.Equal(t, "INFO", m["severity"])
		assert.Contains(t, m, "ts")
		assert.Equal(t, "cid-1", m["_cID"])
		assert.Equal(t, "attendance", m["service"])
		assert.EqualValues(t, 7, m["meeting_id"])
		assert.Contains(t, m["file"], "internal/pkg/instrument/logging_test.go:")
	})

	t.Run("masks attributes and json payloads", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&buf, cfg, nil)

		log.Info("scan",
			"secret", "abc",
			"body", `{"token":"t","meeting_date":"2024-01-01"}`,
			"raw", []byte(`[{"secret":"x"}]`),
			"headers", map[string]string{"token": "y", "ok": "z"},
		)

		m := decode(t, &buf)
		assert.Equal(t, "***", m["secret"])
		assert.JSONEq(t, `{"token":"***","meeting_date":"2024-01-01"}`, m["body"].(string))
		assert.JSONEq(t, `[{"secret":"***"}]`, m["raw"].(string))
		assert.Equal(t, map[string]any{"token": "***", "ok": "z"}, m["headers"])
	})

	t.Run("masks with attrs", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&buf, cfg, nil).With("token", "abc")

		log.Info("x")

		assert.Equal(t, "***", decode(t, &buf)["token"])
	})

	t.Run("level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&buf, &Config{LogLevel: "warn"}, nil)

		log.Info("hidden")

		assert.Zero(t, buf.Len())
	})
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}

func TestNewNoop(t *testing.T) {
	ins, err := New(context.Background(), nil)
	require.NoError(t, err)

	_, span := ins.Tracer("t").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
}
