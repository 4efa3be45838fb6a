package facedet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNonMaxSuppression(t *testing.T) {
	// Two heavily overlapping boxes and one distant box.
	// The lower-confidence overlap must be suppressed.
	input := []Detection{
		{Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Confidence: 0.6},
		{Box: Rect{X: 1, Y: 1, Width: 10, Height: 10}, Confidence: 0.9},
		{Box: Rect{X: 50, Y: 50, Width: 10, Height: 10}, Confidence: 0.5},
	}
	out := NonMaxSuppression(input, 0.3)
	require.Len(t, out, 2)
	require.Equal(t, float32(0.9), out[0].Confidence)
	require.Equal(t, float32(0.5), out[1].Confidence)
}

func TestNonMaxSuppressionKeepsDisjoint(t *testing.T) {
	input := []Detection{
		{Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Confidence: 0.7},
		{Box: Rect{X: 30, Y: 0, Width: 10, Height: 10}, Confidence: 0.7},
		{Box: Rect{X: 0, Y: 30, Width: 10, Height: 10}, Confidence: 0.7},
	}
	out := NonMaxSuppression(input, 0.3)
	require.Len(t, out, 3)
}

func TestNonMaxSuppressionTrivial(t *testing.T) {
	require.Empty(t, NonMaxSuppression(nil, 0.3))
	one := []Detection{{Box: Rect{X: 0, Y: 0, Width: 5, Height: 5}, Confidence: 0.9}}
	require.Equal(t, one, NonMaxSuppression(one, 0.3))
}
