package display

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestFunctionWrapAround(t *testing.T) {
	assert.Equal(t, Position.Next(), GroundSpeed)
	assert.Equal(t, Altitude.Next(), Position)
	assert.Equal(t, Position.Prev(), Altitude)
	assert.Equal(t, Track.Prev(), GroundSpeed)

	f := Track
	for i := 0; i < numFunctions; i++ {
		f = f.Next()
	}
	assert.Equal(t, f, Track)
}

func TestParseFunction(t *testing.T) {
	for _, f := range []Function{Position, GroundSpeed, Track, Altitude} {
		got, err := ParseFunction(f.String())
		assert.NilError(t, err)
		assert.Equal(t, got, f)
	}
	got, err := ParseFunction(" Track ")
	assert.NilError(t, err)
	assert.Equal(t, got, Track)

	_, err = ParseFunction("heading")
	assert.ErrorContains(t, err, "unknown display function")
	assert.Equal(t, Function(9).String(), "function(9)")
}
