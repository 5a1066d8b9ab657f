package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat64(t *testing.T) {
	for _, v := range []any{int32(7), int64(7), 7.0, "7", json.Number("7"), uint8(7)} {
		f, ok := Float64(v)
		assert.True(t, ok)
		assert.Equal(t, 7.0, f)
	}
	_, ok := Float64("abc")
	assert.False(t, ok)
	_, ok = Float64(struct{}{})
	assert.False(t, ok)
}

func TestInt64AndString(t *testing.T) {
	n, ok := Int64(" 42 ")
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
	n, ok = Int64(3.9)
	require.True(t, ok)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "0.5", String(0.5))
	assert.Equal(t, "12", String(int32(12)))
}

func TestParseFloat(t *testing.T) {
	f, err := ParseFloat("price", "42000.10")
	require.NoError(t, err)
	assert.Equal(t, 42000.10, f)
	_, err = ParseFloat("price", "")
	assert.ErrorContains(t, err, "price")
}
