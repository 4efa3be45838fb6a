package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/cyclopcam/faceveil/pkg/facedet"
	"github.com/cyclopcam/faceveil/pkg/facetrack"
	"github.com/cyclopcam/faceveil/pkg/video"
)

func TestOverlayWritesFrames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "viz")
	overlay, err := NewOverlay(logs.NewTestingLog(t), dir)
	require.NoError(t, err)

	img := cimg.NewImage(160, 120, cimg.PixelFormatRGB)
	trails := [][]facedet.Point{{{X: 50, Y: 40}, {X: 53, Y: 42}, {X: 56, Y: 44}}}
	for i := 0; i < 3; i++ {
		record := facetrack.DetectionRecord{
			FrameIndex: i,
			Boxes:      []facedet.Rect{{X: 50, Y: 40, Width: 24, Height: 24}},
			Source:     facetrack.SourceTracker,
		}
		overlay.Frame(&video.Frame{Index: i, Image: img}, &record, trails)
	}
	require.Equal(t, 3, overlay.NumWritten())

	for _, name := range []string{"frame-000000.jpg", "frame-000001.jpg", "frame-000002.jpg"} {
		st, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Greater(t, st.Size(), int64(0))
	}
}

func TestOverlayRoundTripPreservesPixels(t *testing.T) {
	src := cimg.NewImage(8, 8, cimg.PixelFormatRGB)
	for i := range src.Pixels {
		src.Pixels[i] = uint8(i * 7)
	}
	back := rgbaToRGB(rgbToRGBA(src))
	require.Equal(t, src.Pixels, back.Pixels)
}
