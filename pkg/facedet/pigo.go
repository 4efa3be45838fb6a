package facedet

import (
	"fmt"
	"os"

	"github.com/bmharper/cimg/v2"
	pigo "github.com/esimov/pigo/core"
)

// Pigo cascade scan parameters.
// These control the sliding window sweep, not the accept/reject thresholds,
// which come from Params.
const (
	pigoMinSize     = 20
	pigoMaxSize     = 1000
	pigoShiftFactor = 0.1
	pigoScaleFactor = 1.1
)

// The pigo quality score is unbounded, but in practice saturates around 10
// for a clean frontal face. We map it onto [0,1] so that Params thresholds
// mean the same thing regardless of the detector backend.
const pigoQualityScale = 10.0

type pigoDetector struct {
	classifier *pigo.Pigo
}

// NewPigoDetector loads a pigo face cascade from disk.
// A missing or corrupt cascade file is fatal: detection cannot start without
// the model artifact.
func NewPigoDetector(cascadePath string) (Detector, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read face cascade '%v': %w", cascadePath, err)
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade '%v': %w", cascadePath, err)
	}
	return &pigoDetector{classifier: classifier}, nil
}

func (d *pigoDetector) Close() {
	d.classifier = nil
}

func (d *pigoDetector) DetectFaces(img *cimg.Image, params *Params) ([]Detection, error) {
	gray := rgbToGray(img)
	cascadeParams := pigo.CascadeParams{
		MinSize:     pigoMinSize,
		MaxSize:     pigoMaxSize,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: pigoScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray,
			Rows:   img.Height,
			Cols:   img.Width,
			Dim:    img.Width,
		},
	}

	// Zero angle: we scan upright faces only.
	raw := d.classifier.RunCascade(cascadeParams, 0)

	dets := make([]Detection, 0, len(raw))
	for _, r := range raw {
		confidence := min(1, r.Q/pigoQualityScale)
		if confidence < params.scoreThreshold() {
			continue
		}
		// pigo reports a center and radius
		dets = append(dets, Detection{
			Box: Rect{
				X:      r.Col - r.Scale/2,
				Y:      r.Row - r.Scale/2,
				Width:  r.Scale,
				Height: r.Scale,
			}.Clip(img.Width, img.Height),
			Confidence: confidence,
		})
	}
	return NonMaxSuppression(dets, params.nmsIouThreshold()), nil
}

// rgbToGray produces the single-channel luminance image that pigo consumes
func rgbToGray(img *cimg.Image) []uint8 {
	gray := make([]uint8, img.Width*img.Height)
	nchan := img.NChan()
	for y := 0; y < img.Height; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < img.Width; x++ {
			p := row[x*nchan : x*nchan+3]
			gray[y*img.Width+x] = uint8((299*int(p[0]) + 587*int(p[1]) + 114*int(p[2])) / 1000)
		}
	}
	return gray
}
