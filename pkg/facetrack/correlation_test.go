package facetrack

import (
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/require"

	"github.com/cyclopcam/faceveil/pkg/facedet"
)

// testFrame fills a dark frame with a textured bright square at (x, y).
// The texture gradient gives the correlator something to lock onto.
func testFrame(width, height, x, y, size int) *cimg.Image {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			v := uint8(20)
			if px >= x && px < x+size && py >= y && py < y+size {
				v = uint8(120 + (px-x)*3 + (py-y)*2)
			}
			i := py*img.Stride + px*3
			img.Pixels[i] = v
			img.Pixels[i+1] = v
			img.Pixels[i+2] = v
		}
	}
	return img
}

func TestCorrelationTrackerFollowsMotion(t *testing.T) {
	box := facedet.Rect{X: 50, Y: 40, Width: 24, Height: 24}
	tracker := newCorrelationTracker(testFrame(160, 120, 50, 40, 24), box)

	// The square drifts a few pixels per frame
	positions := [][2]int{{53, 42}, {56, 44}, {59, 45}, {62, 47}}
	for _, p := range positions {
		got, ok := tracker.Update(testFrame(160, 120, p[0], p[1], 24))
		require.True(t, ok)
		require.InDelta(t, p[0], got.X, 2)
		require.InDelta(t, p[1], got.Y, 2)
		require.Equal(t, 24, got.Width)
		require.Equal(t, 24, got.Height)
	}
}

func TestCorrelationTrackerLosesTarget(t *testing.T) {
	box := facedet.Rect{X: 50, Y: 40, Width: 24, Height: 24}
	tracker := newCorrelationTracker(testFrame(160, 120, 50, 40, 24), box)

	// The square vanishes entirely; nothing in the search window matches
	blank := cimg.NewImage(160, 120, cimg.PixelFormatRGB)
	_, ok := tracker.Update(blank)
	require.False(t, ok)
}

func TestCorrelationTrackerRejectsJumps(t *testing.T) {
	box := facedet.Rect{X: 50, Y: 40, Width: 24, Height: 24}
	tracker := newCorrelationTracker(testFrame(160, 120, 50, 40, 24), box)

	// The target teleports well outside the search radius
	_, ok := tracker.Update(testFrame(160, 120, 120, 90, 24))
	require.False(t, ok)
}

func TestCorrelationTrackerDegenerateBox(t *testing.T) {
	frame := testFrame(160, 120, 50, 40, 24)
	tracker := newCorrelationTracker(frame, facedet.Rect{X: 10, Y: 10, Width: 2, Height: 2})
	_, ok := tracker.Update(frame)
	require.False(t, ok)
}
