// Package imageproc prepares video frames for the face detector.
//
// Frames are capped to a maximum dimension before detection, and grayscale
// sources (old CCTV footage, IR cameras) get a contrast + sharpening pass,
// because cascade detectors perform poorly on flat low-contrast input.
package imageproc

import (
	"github.com/bmharper/cimg/v2"
)

const (
	// Longest frame dimension fed to the detector
	MaxDetectDim = 780

	// CLAHE constants
	claheClipLimit = 4.0
	claheTilesX    = 6
	claheTilesY    = 6

	// Unsharp mask: sharp = 1.8*original - 0.8*blurred
	unsharpAmount = 1.8
	unsharpBlur   = 0.8
)

// IsGrayscale reports whether the image carries no chroma, i.e. its
// channels are near-identical. We sample a sparse grid rather than every
// pixel; compression noise means the channels are rarely exactly equal.
func IsGrayscale(img *cimg.Image) bool {
	const tolerance = 3
	const step = 7
	nchan := img.NChan()
	if nchan < 3 {
		return true
	}
	samples := 0
	offChroma := 0
	for y := 0; y < img.Height; y += step {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < img.Width; x += step {
			p := row[x*nchan : x*nchan+3]
			samples++
			if absDiff(p[0], p[1]) > tolerance || absDiff(p[1], p[2]) > tolerance {
				offChroma++
			}
		}
	}
	if samples == 0 {
		return false
	}
	// Allow a sliver of noisy outliers
	return offChroma*100 <= samples
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// ResizeMaxDim returns img scaled so that its longer dimension is at most
// maxDim, along with the factor that maps resized coordinates back to the
// original frame. Images already within bounds are returned as-is with
// scale 1.
func ResizeMaxDim(img *cimg.Image, maxDim int) (*cimg.Image, float32) {
	longer := max(img.Width, img.Height)
	if longer <= maxDim {
		return img, 1
	}
	scale := float32(maxDim) / float32(longer)
	newWidth := int(float32(img.Width)*scale + 0.5)
	newHeight := int(float32(img.Height)*scale + 0.5)
	// Box filter for downsampling, as in large-ratio camera resizes
	resized := cimg.ResizeNew(img, newWidth, newHeight, &cimg.ResizeParams{
		Filter:          cimg.ResizeFilterBox,
		CheapSRGBFilter: true,
	})
	return resized, float32(longer) / float32(maxDim)
}

// PrepareForDetector produces the image the detector runs on, and the scale
// factor for mapping detected boxes back to original resolution.
// grayscaleSource is decided once per run, from the first frame.
func PrepareForDetector(img *cimg.Image, grayscaleSource bool) (*cimg.Image, float32) {
	resized, invScale := ResizeMaxDim(img, MaxDetectDim)
	if grayscaleSource {
		plane := GrayPlane(resized)
		CLAHE(plane, resized.Width, resized.Height, claheClipLimit, claheTilesX, claheTilesY)
		plane = UnsharpMask(plane, resized.Width, resized.Height)
		resized = grayToRGB(plane, resized.Width, resized.Height)
	}
	return resized, invScale
}

// GrayPlane extracts a single luminance channel from an RGB image
func GrayPlane(img *cimg.Image) []uint8 {
	plane := make([]uint8, img.Width*img.Height)
	nchan := img.NChan()
	for y := 0; y < img.Height; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < img.Width; x++ {
			p := row[x*nchan : x*nchan+3]
			plane[y*img.Width+x] = uint8((299*int(p[0]) + 587*int(p[1]) + 114*int(p[2])) / 1000)
		}
	}
	return plane
}

func grayToRGB(plane []uint8, width, height int) *cimg.Image {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for y := 0; y < height; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < width; x++ {
			v := plane[y*width+x]
			row[x*3] = v
			row[x*3+1] = v
			row[x*3+2] = v
		}
	}
	return img
}

// UnsharpMask sharpens a grayscale plane:
// out = unsharpAmount*original - unsharpBlur*gaussian(original), clamped to [0,255]
func UnsharpMask(plane []uint8, width, height int) []uint8 {
	blurred := gaussianBlur(plane, width, height)
	out := make([]uint8, len(plane))
	for i := range plane {
		v := unsharpAmount*float32(plane[i]) - unsharpBlur*float32(blurred[i])
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out[i] = uint8(v)
	}
	return out
}

// Separable 5-tap Gaussian, sigma ~1.1. Integer weights sum to 16.
var gaussKernel = [5]int{1, 4, 6, 4, 1}

func gaussianBlur(plane []uint8, width, height int) []uint8 {
	tmp := make([]uint8, len(plane))
	out := make([]uint8, len(plane))
	// Horizontal
	for y := 0; y < height; y++ {
		row := plane[y*width:]
		for x := 0; x < width; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				xi := min(width-1, max(0, x+k))
				sum += gaussKernel[k+2] * int(row[xi])
			}
			tmp[y*width+x] = uint8(sum / 16)
		}
	}
	// Vertical
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				yi := min(height-1, max(0, y+k))
				sum += gaussKernel[k+2] * int(tmp[yi*width+x])
			}
			out[y*width+x] = uint8(sum / 16)
		}
	}
	return out
}
