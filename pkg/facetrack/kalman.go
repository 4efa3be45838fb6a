package facetrack

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cyclopcam/faceveil/pkg/facedet"
)

// Noise covariance scales. These were tuned empirically against real
// footage; don't change them without re-running the accuracy suite.
const (
	processNoisePosition     = 0.01
	processNoiseVelocity     = 0.5
	processNoiseAcceleration = 2.0
	measurementNoise         = 0.1
)

// Constant-acceleration transition over one frame (dt = 1)
var kalmanTransition = mat.NewDense(3, 3, []float64{
	1, 1, 0.5,
	0, 1, 1,
	0, 0, 1,
})

var kalmanProcessNoise = mat.NewDense(3, 3, []float64{
	processNoisePosition, 0, 0,
	0, processNoiseVelocity, 0,
	0, 0, processNoiseAcceleration,
})

// axisFilter estimates one box coordinate: position, velocity, acceleration.
// The four axes of a box are independent, so a BoxFilter is four of these.
type axisFilter struct {
	state *mat.VecDense // (position, velocity, acceleration)
	cov   *mat.Dense
}

func newAxisFilter(position float64) axisFilter {
	return axisFilter{
		state: mat.NewVecDense(3, []float64{position, 0, 0}),
		cov: mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		}),
	}
}

// predict advances the state one frame with no measurement
func (a *axisFilter) predict() float64 {
	var next mat.VecDense
	next.MulVec(kalmanTransition, a.state)
	a.state.CopyVec(&next)

	var fp, fpft mat.Dense
	fp.Mul(kalmanTransition, a.cov)
	fpft.Mul(&fp, kalmanTransition.T())
	fpft.Add(&fpft, kalmanProcessNoise)
	a.cov.Copy(&fpft)

	return a.state.AtVec(0)
}

// correct folds in a noisy position measurement (after predict)
func (a *axisFilter) correct(measured float64) float64 {
	innovation := measured - a.state.AtVec(0)
	s := a.cov.At(0, 0) + measurementNoise

	var gain [3]float64
	for i := 0; i < 3; i++ {
		gain[i] = a.cov.At(i, 0) / s
	}
	for i := 0; i < 3; i++ {
		a.state.SetVec(i, a.state.AtVec(i)+gain[i]*innovation)
	}

	// cov = (I - K*H) * cov, where H = [1 0 0]
	ikh := mat.NewDense(3, 3, []float64{
		1 - gain[0], 0, 0,
		-gain[1], 1, 0,
		-gain[2], 0, 1,
	})
	var next mat.Dense
	next.Mul(ikh, a.cov)
	a.cov.Copy(&next)

	return a.state.AtVec(0)
}

// BoxFilter is the predictive motion model for one tracked face.
// Each box coordinate (x, y, w, h) carries its own position, velocity and
// acceleration estimate.
type BoxFilter struct {
	X axisFilter
	Y axisFilter
	W axisFilter
	H axisFilter
}

// NewBoxFilter initializes the filter at a detected box, with zero velocity
// and acceleration.
func NewBoxFilter(box facedet.Rect) *BoxFilter {
	return &BoxFilter{
		X: newAxisFilter(float64(box.X)),
		Y: newAxisFilter(float64(box.Y)),
		W: newAxisFilter(float64(box.Width)),
		H: newAxisFilter(float64(box.Height)),
	}
}

// Predict projects the box one frame forward with no measurement
func (f *BoxFilter) Predict() facedet.Rect {
	return rectFromFloats(f.X.predict(), f.Y.predict(), f.W.predict(), f.H.predict())
}

// Correct runs one full filter cycle: project forward one frame, then fold
// in the measured box. Returns the corrected estimate, which is what we
// emit instead of the raw measurement.
func (f *BoxFilter) Correct(measured facedet.Rect) facedet.Rect {
	f.X.predict()
	f.Y.predict()
	f.W.predict()
	f.H.predict()
	return rectFromFloats(
		f.X.correct(float64(measured.X)),
		f.Y.correct(float64(measured.Y)),
		f.W.correct(float64(measured.Width)),
		f.H.correct(float64(measured.Height)),
	)
}

func rectFromFloats(x, y, w, h float64) facedet.Rect {
	return facedet.Rect{
		X:      int(math.Floor(x + 0.5)),
		Y:      int(math.Floor(y + 0.5)),
		Width:  max(0, int(math.Floor(w+0.5))),
		Height: max(0, int(math.Floor(h+0.5))),
	}
}
