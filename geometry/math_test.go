package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualWithEpsilon(t *testing.T) {
	require.True(t, EqualWithEpsilon(1, 1, 0))
	require.True(t, EqualWithEpsilon(1, 1.05, 0.1))
	require.False(t, EqualWithEpsilon(1, 1.2, 0.1))
}

func TestIsDegenerate(t *testing.T) {
	require.False(t, NewCube(0, 0, 0, 1).IsDegenerate())
	require.True(t, NewCube(0, 0, 0, 0).IsDegenerate())
	require.True(t, NewCube(math.NaN(), 0, 0, 1).IsDegenerate())

	require.False(t, NewSphere(0, 0, 0, 1).IsDegenerate())
	require.True(t, NewSphere(0, 0, 0, -1).IsDegenerate())
	require.True(t, NewSphere(0, math.Inf(1), 0, 1).IsDegenerate())

	require.False(t, NewRectangle(0, 0, 1, 1).IsDegenerate())
	require.True(t, NewRectangle(0, 0, 0, 1).IsDegenerate())
	require.True(t, NewRectangle(0, 0, 1, -1).IsDegenerate())

	require.False(t, NewCircle(0, 0, 1).IsDegenerate())
	require.True(t, NewCircle(0, 0, 0).IsDegenerate())
}
