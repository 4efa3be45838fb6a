package facetrack

import (
	"github.com/bmharper/cimg/v2"
	"github.com/chewxy/math32"

	"github.com/cyclopcam/faceveil/pkg/facedet"
)

// boxTracker follows a previously detected box across frames without
// re-running the detector. Implementations report failure instead of
// returning an error; a lost track is an expected outcome.
type boxTracker interface {
	Update(frame *cimg.Image) (facedet.Rect, bool)
}

const (
	// Fraction of the box size searched around the last position
	trackerSearchFraction = 0.5

	// Peak normalized cross-correlation below this is a lost track
	trackerMinCorrelation = 0.5

	// Templates are downsampled so their longer side is at most this
	trackerMaxTemplateDim = 32
)

// correlationTracker is a lightweight template matcher: it remembers the
// grayscale appearance of the face at detection time, and on each frame
// searches a window around the last position for the best normalized
// cross-correlation. Scale is not re-estimated; trackers live only until
// the next detector pass, which is too short for meaningful size drift.
type correlationTracker struct {
	box      facedet.Rect
	template []float32 // mean-subtracted grayscale template
	tmplNorm float32   // L2 norm of template
	tmplW    int
	tmplH    int
	step     int // downsample factor (original pixels per template pixel)
}

func newCorrelationTracker(frame *cimg.Image, box facedet.Rect) *correlationTracker {
	box = box.Clip(frame.Width, frame.Height)
	if box.Width < 4 || box.Height < 4 {
		return &correlationTracker{box: box}
	}
	step := 1
	for max(box.Width, box.Height)/step > trackerMaxTemplateDim {
		step++
	}
	t := &correlationTracker{
		box:  box,
		step: step,
	}
	t.template, t.tmplW, t.tmplH = samplePatch(frame, box.X, box.Y, box.Width, box.Height, step)
	meanSubtract(t.template)
	t.tmplNorm = l2Norm(t.template)
	return t
}

func (t *correlationTracker) Update(frame *cimg.Image) (facedet.Rect, bool) {
	if t.template == nil || t.tmplNorm == 0 {
		return facedet.Rect{}, false
	}
	radiusX := max(t.step, int(float32(t.box.Width)*trackerSearchFraction))
	radiusY := max(t.step, int(float32(t.box.Height)*trackerSearchFraction))

	bestScore := float32(-1)
	bestDX, bestDY := 0, 0
	for dy := -radiusY; dy <= radiusY; dy += t.step {
		for dx := -radiusX; dx <= radiusX; dx += t.step {
			x := t.box.X + dx
			y := t.box.Y + dy
			if x < 0 || y < 0 || x+t.box.Width > frame.Width || y+t.box.Height > frame.Height {
				continue
			}
			score := t.correlate(frame, x, y)
			if score > bestScore {
				bestScore = score
				bestDX, bestDY = dx, dy
			}
		}
	}
	if bestScore < trackerMinCorrelation {
		return facedet.Rect{}, false
	}
	t.box.Offset(bestDX, bestDY)
	return t.box, true
}

// correlate computes normalized cross-correlation between the stored
// template and the frame patch at (x, y)
func (t *correlationTracker) correlate(frame *cimg.Image, x, y int) float32 {
	patch, w, h := samplePatch(frame, x, y, t.box.Width, t.box.Height, t.step)
	if w != t.tmplW || h != t.tmplH {
		return -1
	}
	meanSubtract(patch)
	norm := l2Norm(patch)
	if norm == 0 {
		return -1
	}
	dot := float32(0)
	for i := range patch {
		dot += patch[i] * t.template[i]
	}
	return dot / (norm * t.tmplNorm)
}

// samplePatch extracts a downsampled grayscale patch
func samplePatch(frame *cimg.Image, x, y, width, height, step int) ([]float32, int, int) {
	outW := width / step
	outH := height / step
	if outW <= 0 || outH <= 0 {
		return nil, 0, 0
	}
	patch := make([]float32, outW*outH)
	nchan := frame.NChan()
	for py := 0; py < outH; py++ {
		row := frame.Pixels[(y+py*step)*frame.Stride:]
		for px := 0; px < outW; px++ {
			p := row[(x+px*step)*nchan : (x+px*step)*nchan+3]
			patch[py*outW+px] = float32(299*int(p[0])+587*int(p[1])+114*int(p[2])) / 1000
		}
	}
	return patch, outW, outH
}

func meanSubtract(v []float32) {
	if len(v) == 0 {
		return
	}
	sum := float32(0)
	for _, x := range v {
		sum += x
	}
	mean := sum / float32(len(v))
	for i := range v {
		v[i] -= mean
	}
}

func l2Norm(v []float32) float32 {
	sum := float32(0)
	for _, x := range v {
		sum += x * x
	}
	return math32.Sqrt(sum)
}
