package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID_Generate(t *testing.T) {
	var gen StringID = NewUUID()

	a := gen.Generate()
	b := gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
}

func TestSnowflake(t *testing.T) {
	t.Run("increasing", func(t *testing.T) {
		s, err := NewSnowflake(1)
		require.NoError(t, err)
		var gen NumberID = s

		a := gen.Generate()
		b := gen.Generate()

		assert.Positive(t, a)
		assert.Greater(t, b, a)
	})

	t.Run("invalid node", func(t *testing.T) {
		_, err := NewSnowflake(5000)
		assert.Error(t, err)
	})
}
