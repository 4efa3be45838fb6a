package imageproc

import (
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/require"
)

func makeRGB(t *testing.T, width, height int, fill func(x, y int) (r, g, b uint8)) *cimg.Image {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for y := 0; y < height; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < width; x++ {
			r, g, b := fill(x, y)
			row[x*3] = r
			row[x*3+1] = g
			row[x*3+2] = b
		}
	}
	return img
}

func TestIsGrayscale(t *testing.T) {
	gray := makeRGB(t, 64, 48, func(x, y int) (uint8, uint8, uint8) {
		v := uint8((x * 4) & 0xff)
		return v, v, v
	})
	require.True(t, IsGrayscale(gray))

	// Grayscale with compression noise on the chroma
	noisy := makeRGB(t, 64, 48, func(x, y int) (uint8, uint8, uint8) {
		v := uint8((x*3 + y) & 0x7f)
		return v, v + uint8((x+y)%3), v
	})
	require.True(t, IsGrayscale(noisy))

	color := makeRGB(t, 64, 48, func(x, y int) (uint8, uint8, uint8) {
		return uint8(x), uint8(y * 2), 200
	})
	require.False(t, IsGrayscale(color))
}

func TestResizeMaxDim(t *testing.T) {
	small := makeRGB(t, 640, 360, func(x, y int) (uint8, uint8, uint8) { return 10, 20, 30 })
	out, invScale := ResizeMaxDim(small, MaxDetectDim)
	require.Equal(t, small, out)
	require.Equal(t, float32(1), invScale)

	big := makeRGB(t, 1560, 1170, func(x, y int) (uint8, uint8, uint8) { return 10, 20, 30 })
	out, invScale = ResizeMaxDim(big, MaxDetectDim)
	require.Equal(t, 780, out.Width)
	require.Equal(t, 585, out.Height)
	require.Equal(t, float32(2), invScale)
}

func TestGrayPlaneRoundTrip(t *testing.T) {
	img := makeRGB(t, 16, 8, func(x, y int) (uint8, uint8, uint8) {
		v := uint8(x*16 + y)
		return v, v, v
	})
	plane := GrayPlane(img)
	require.Len(t, plane, 16*8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			require.Equal(t, uint8(x*16+y), plane[y*16+x])
		}
	}
}

func TestUnsharpMaskBounds(t *testing.T) {
	// A step edge: sharpening must overshoot but stay clamped to [0,255]
	const w, h = 32, 16
	plane := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= w/2 {
				plane[y*w+x] = 250
			} else {
				plane[y*w+x] = 5
			}
		}
	}
	out := UnsharpMask(plane, w, h)
	require.Len(t, out, w*h)
	// Flat regions away from the edge keep their approximate level
	require.InDelta(t, float64(5), float64(out[0]), 6)
	require.InDelta(t, float64(250), float64(out[w-1]), 6)
}

func TestCLAHEExpandsContrast(t *testing.T) {
	// Low-contrast plane: values compressed into [100,120]
	const w, h = 120, 90
	plane := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			plane[y*w+x] = uint8(100 + (x+y)%21)
		}
	}
	CLAHE(plane, w, h, 4.0, 6, 6)
	lo, hi := plane[0], plane[0]
	for _, v := range plane {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	// Range must widen substantially beyond the original 20 levels
	require.Greater(t, int(hi)-int(lo), 60)
}

func TestCLAHEUniformImageStable(t *testing.T) {
	const w, h = 60, 60
	plane := make([]uint8, w*h)
	for i := range plane {
		plane[i] = 128
	}
	CLAHE(plane, w, h, 4.0, 6, 6)
	// A flat image maps every pixel to the same output level
	for _, v := range plane {
		require.Equal(t, plane[0], v)
	}
}

func TestPrepareForDetectorColorPassthrough(t *testing.T) {
	img := makeRGB(t, 320, 240, func(x, y int) (uint8, uint8, uint8) {
		return uint8(x), uint8(y), 128
	})
	out, invScale := PrepareForDetector(img, false)
	require.Equal(t, img, out)
	require.Equal(t, float32(1), invScale)
}
