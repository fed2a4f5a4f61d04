package instrument

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("nil config returns noop", func(t *testing.T) {
		// Act
		ins, err := New(context.Background(), nil)

		// Assert
		require.NoError(t, err)
		assert.IsType(t, noopInstrumentation{}, ins)
		assert.NoError(t, ins.Shutdown(context.Background()))
	})

	t.Run("disabled config returns noop", func(t *testing.T) {
		// Act
		ins, err := New(context.Background(), &Config{ServiceName: "attendance", LogLevel: "error"})

		// Assert
		require.NoError(t, err)
		assert.IsType(t, noopInstrumentation{}, ins)
		assert.NotNil(t, ins.Tracer("attendance"))
		assert.NotNil(t, ins.Meter("attendance"))
	})
}

func TestExporters(t *testing.T) {
	t.Run("builds otlp grpc exporters without dialing", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		// Act
		te, me, le, err := exporters(ctx, &Config{OTLPEndpoint: "localhost:4317"})

		// Assert
		require.NoError(t, err)
		require.NotNil(t, te)
		require.NotNil(t, me)
		require.NotNil(t, le)

		_ = te.Shutdown(ctx)
		_ = me.Shutdown(ctx)
		_ = le.Shutdown(ctx)
	})
}
