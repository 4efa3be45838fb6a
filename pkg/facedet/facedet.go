// Package facedet is the face detector interface layer.
// The concrete detector lives in pigo.go; the rest of the system only
// sees the Detector interface.
package facedet

import (
	"github.com/bmharper/cimg/v2"
)

const DefaultScoreThreshold = 0.5
const DefaultNmsIouThreshold = 0.3

// A single face found by the detector
type Detection struct {
	Box        Rect    `json:"box"`
	Confidence float32 `json:"confidence"`
}

// Face detection parameters
type Params struct {
	ScoreThreshold  float32 // Value between 0 and 1. Lower values will find more faces. Zero value will use the default.
	NmsIouThreshold float32 // Value between 0 and 1. Lower values will merge more boxes together into one. Zero value will use the default.
}

// Create a default Params object
func NewParams() *Params {
	return &Params{
		ScoreThreshold:  DefaultScoreThreshold,
		NmsIouThreshold: DefaultNmsIouThreshold,
	}
}

func (p *Params) scoreThreshold() float32 {
	if p == nil || p.ScoreThreshold == 0 {
		return DefaultScoreThreshold
	}
	return p.ScoreThreshold
}

func (p *Params) nmsIouThreshold() float32 {
	if p == nil || p.NmsIouThreshold == 0 {
		return DefaultNmsIouThreshold
	}
	return p.NmsIouThreshold
}

// Detector is given an image, and returns zero or more detected faces.
// A frame with no faces is ([], nil), not an error.
type Detector interface {
	// Close releases detector resources
	Close()

	// DetectFaces returns the faces detected in img.
	// img is expected to be 24-bit RGB.
	// You can create a default Params with NewParams()
	DetectFaces(img *cimg.Image, params *Params) ([]Detection, error)
}
