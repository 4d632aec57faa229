package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferRoundTrip(t *testing.T) {
	buf := NewBuffer([]byte("sk-ant-sealed-value"))

	locked, err := buf.Open()
	require.NoError(t, err)
	defer locked.Destroy()

	assert.Equal(t, "sk-ant-sealed-value", locked.String())
}

func TestBufferDestroyIsIdempotent(t *testing.T) {
	buf := NewBuffer([]byte("value"))
	buf.Destroy()
	buf.Destroy()

	locked, err := buf.Open()
	require.NoError(t, err)
	defer locked.Destroy()

	assert.Empty(t, locked.Bytes())
}
