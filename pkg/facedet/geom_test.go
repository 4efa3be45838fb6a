package facedet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIOU(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	require.Equal(t, float32(0.25/(0.75+1)), a.IOU(b))
	require.Equal(t, float32(1), a.IOU(a))
	c := Rect{X: 20, Y: 20, Width: 10, Height: 10}
	require.Equal(t, float32(0), a.IOU(c))
}

func TestRectOps(t *testing.T) {
	a := Rect{X: 2, Y: 3, Width: 4, Height: 5}
	require.Equal(t, 6, a.X2())
	require.Equal(t, 8, a.Y2())
	require.Equal(t, 20, a.Area())
	require.Equal(t, Point{X: 4, Y: 5}, a.Center())

	b := Rect{X: 4, Y: 4, Width: 10, Height: 10}
	require.Equal(t, Rect{X: 4, Y: 4, Width: 2, Height: 4}, a.Intersection(b))
	require.Equal(t, Rect{X: 2, Y: 3, Width: 12, Height: 11}, a.Union(b))

	// Disjoint rects intersect to an empty box, never a negative one
	c := Rect{X: 100, Y: 100, Width: 5, Height: 5}
	isect := a.Intersection(c)
	require.Equal(t, 0, isect.Width)
	require.Equal(t, 0, isect.Height)
}

func TestRectScaleClip(t *testing.T) {
	a := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	require.Equal(t, Rect{X: 5, Y: 10, Width: 15, Height: 20}, a.Scale(0.5))
	require.Equal(t, a, a.Scale(0.5).Scale(2))

	b := Rect{X: -5, Y: 90, Width: 20, Height: 20}
	require.Equal(t, Rect{X: 0, Y: 90, Width: 15, Height: 10}, b.Clip(100, 100))
}

func TestPointDistance(t *testing.T) {
	require.Equal(t, float32(5), Point{X: 0, Y: 0}.Distance(Point{X: 3, Y: 4}))
}
