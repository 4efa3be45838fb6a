// Package visualize renders localization debug frames: bounding boxes
// color-coded by how they were produced, plus the recent motion trail of
// each track. Output is a numbered JPEG sequence, convenient for stitching
// into a review clip. Purely diagnostic; it never feeds back into results.
package visualize

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/fogleman/gg"

	"github.com/cyclopcam/faceveil/pkg/facedet"
	"github.com/cyclopcam/faceveil/pkg/facetrack"
	"github.com/cyclopcam/faceveil/pkg/video"
)

const jpegQuality = 90

type color struct {
	r, g, b float64
}

// Box colors by record source
var sourceColors = map[facetrack.Source]color{
	facetrack.SourceDetector: {0.1, 0.9, 0.2},
	facetrack.SourceTracker:  {1.0, 0.8, 0.1},
	facetrack.SourceKalman:   {1.0, 0.2, 0.3},
}

var trailColor = color{0.2, 0.8, 1.0}

// Overlay writes one annotated JPEG per frame into a directory
type Overlay struct {
	log      logs.Log
	dir      string
	failed   bool
	nWritten int
}

// NewOverlay creates the output directory if needed
func NewOverlay(logger logs.Log, dir string) (*Overlay, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create visualization directory: %w", err)
	}
	return &Overlay{
		log: logger,
		dir: dir,
	}, nil
}

// Frame implements facetrack.Visualizer.
// A write failure disables further output instead of disturbing the run.
func (o *Overlay) Frame(frame *video.Frame, record *facetrack.DetectionRecord, trails [][]facedet.Point) {
	if o.failed {
		return
	}
	dc := gg.NewContextForRGBA(rgbToRGBA(frame.Image))

	col, ok := sourceColors[record.Source]
	if !ok {
		col = color{1, 1, 1}
	}
	dc.SetLineWidth(2)
	for _, box := range record.Boxes {
		dc.SetRGB(col.r, col.g, col.b)
		dc.DrawRectangle(float64(box.X), float64(box.Y), float64(box.Width), float64(box.Height))
		dc.Stroke()
	}

	dc.SetRGB(trailColor.r, trailColor.g, trailColor.b)
	dc.SetLineWidth(1)
	for _, trail := range trails {
		for i := 1; i < len(trail); i++ {
			dc.DrawLine(float64(trail[i-1].X), float64(trail[i-1].Y), float64(trail[i].X), float64(trail[i].Y))
			dc.Stroke()
		}
	}

	path := filepath.Join(o.dir, fmt.Sprintf("frame-%06d.jpg", record.FrameIndex))
	if err := o.write(dc.Image(), path); err != nil {
		o.log.Errorf("Visualization disabled, writing %v failed: %v", path, err)
		o.failed = true
		return
	}
	o.nWritten++
}

// NumWritten returns how many frames have been written so far
func (o *Overlay) NumWritten() int {
	return o.nWritten
}

func (o *Overlay) write(img image.Image, path string) error {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		return fmt.Errorf("unexpected image type %T", img)
	}
	return rgbaToRGB(rgba).WriteJPEG(path, cimg.MakeCompressParams(cimg.Sampling420, jpegQuality, 0), 0644)
}

func rgbToRGBA(src *cimg.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	nchan := src.NChan()
	for y := 0; y < src.Height; y++ {
		srcRow := src.Pixels[y*src.Stride:]
		dstRow := dst.Pix[y*dst.Stride:]
		for x := 0; x < src.Width; x++ {
			dstRow[x*4] = srcRow[x*nchan]
			dstRow[x*4+1] = srcRow[x*nchan+1]
			dstRow[x*4+2] = srcRow[x*nchan+2]
			dstRow[x*4+3] = 255
		}
	}
	return dst
}

func rgbaToRGB(src *image.RGBA) *cimg.Image {
	width := src.Rect.Dx()
	height := src.Rect.Dy()
	dst := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for y := 0; y < height; y++ {
		srcRow := src.Pix[y*src.Stride:]
		dstRow := dst.Pixels[y*dst.Stride:]
		for x := 0; x < width; x++ {
			dstRow[x*3] = srcRow[x*4]
			dstRow[x*3+1] = srcRow[x*4+1]
			dstRow[x*3+2] = srcRow[x*4+2]
		}
	}
	return dst
}
