// Package facetrack localizes faces in video.
//
// A full detector pass is expensive, so we only run it every few frames.
// In between, a correlation tracker follows each face, and a Kalman motion
// model smooths the tracker's boxes and bridges short tracker dropouts.
// The per-frame decision lives in Localize; the tuning constants below were
// chosen against real anonymization footage.
package facetrack

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"

	"github.com/cyclopcam/faceveil/pkg/facedet"
	"github.com/cyclopcam/faceveil/pkg/imageproc"
	"github.com/cyclopcam/faceveil/pkg/video"
)

const (
	// While the track set is empty, we keep detecting on every frame, but
	// only until this many consecutive detector passes have come up empty.
	// Beyond that the scene probably has no faces, and the regular detect
	// interval is enough.
	emptyDetectGrace = 2

	// Once this many consecutive detector passes have found nothing, a
	// failed track emits an empty frame instead of a Kalman prediction.
	// Letting predictions drift unanchored past this point produces boxes
	// over background, which is worse than a miss for the blur stage.
	predictCutoff = 3

	// Ring size for per-track debug trails. Power of 2.
	historySize = 32
)

// Options for a localization run
type Options struct {
	DetectInterval     int     `json:"detectInterval"`     // run the detector every N frames (1 = every frame)
	KalmanPredictLimit int     `json:"kalmanPredictLimit"` // consecutive predictor frames before forcing a detect
	ScoreThreshold     float32 `json:"scoreThreshold"`     // detector confidence threshold (0 = default)
	NmsIouThreshold    float32 `json:"nmsIouThreshold"`    // detector NMS threshold (0 = default)
}

func DefaultOptions() *Options {
	return &Options{
		DetectInterval:     3,
		KalmanPredictLimit: 6,
	}
}

// Load options from a JSON file
func LoadOptions(filename string) (*Options, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	opts := DefaultOptions()
	if err := json.Unmarshal(b, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// Visualizer receives every processed frame together with its record and
// the recent center trail of each track. Purely a debug aid; it cannot
// affect the returned result.
type Visualizer interface {
	Frame(frame *video.Frame, record *DetectionRecord, trails [][]facedet.Point)
}

// Internal state of one tracked face. The whole set is discarded and
// rebuilt on every detector pass; tracks are positional, not identities.
type trackState struct {
	tracker boxTracker
	filter  *BoxFilter
	history ringbuffer.RingP[facedet.Point]
}

func newTrackState(frame *video.Frame, box facedet.Rect) *trackState {
	t := &trackState{
		tracker: newCorrelationTracker(frame.Image, box),
		filter:  NewBoxFilter(box),
		history: ringbuffer.NewRingP[facedet.Point](historySize),
	}
	t.history.Add(box.Center())
	return t
}

// Localizer runs the per-frame detect/track/predict state machine
type Localizer struct {
	log      logs.Log
	detector facedet.Detector
	opts     Options
	viz      Visualizer

	// Run-scoped state, reset at the start of every Localize call
	tracks              []*trackState
	consecNonDetections int
	predictStreak       int
	grayscaleSource     bool
	lastDetectErrAt     time.Time
}

func NewLocalizer(logger logs.Log, detector facedet.Detector, opts *Options) *Localizer {
	merged := *DefaultOptions()
	if opts != nil {
		merged = *opts
	}
	if merged.DetectInterval <= 0 {
		merged.DetectInterval = DefaultOptions().DetectInterval
	}
	if merged.KalmanPredictLimit <= 0 {
		merged.KalmanPredictLimit = DefaultOptions().KalmanPredictLimit
	}
	return &Localizer{
		log:      logger,
		detector: detector,
		opts:     merged,
	}
}

// SetVisualizer attaches a debug visualization sink
func (lz *Localizer) SetVisualizer(v Visualizer) {
	lz.viz = v
}

// LocalizeFile opens path and localizes faces in every frame.
// An unreadable file fails here; the run never starts.
func (lz *Localizer) LocalizeFile(path string) (*Result, error) {
	src, err := video.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	result, err := lz.Localize(src)
	if result != nil {
		result.VideoPath = path
	}
	return result, err
}

// Localize consumes src to exhaustion and returns one DetectionRecord per
// frame, plus run statistics. Per-frame detector/tracker misses never
// abort the run; they are recorded as empty boxes or a failed outcome.
func (lz *Localizer) Localize(src video.Source) (*Result, error) {
	start := time.Now()
	lz.tracks = nil
	lz.consecNonDetections = 0
	lz.predictStreak = 0

	result := &Result{
		Detections: []DetectionRecord{},
		NativeFPS:  src.FPS(),
	}
	stats := &result.Stats

	for frameIndex := 0; ; frameIndex++ {
		frame, err := src.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if frameIndex == 0 {
				return nil, err
			}
			// Mid-stream decode failures end the run; everything processed
			// so far is still returned.
			lz.log.Warnf("Frame read failed at %v, ending run: %v", frameIndex, err)
			break
		}
		if frameIndex == 0 {
			lz.grayscaleSource = imageproc.IsGrayscale(frame.Image)
			if lz.grayscaleSource {
				lz.log.Infof("Grayscale source detected, enabling contrast enhancement")
			}
		}

		record := lz.processFrame(frameIndex, frame, stats)
		record.FrameIndex = frameIndex
		if len(record.Boxes) > 0 {
			stats.FramesWithFaces++
		} else {
			stats.FramesWithoutFaces++
		}
		result.Detections = append(result.Detections, record)
		stats.FramesProcessed++

		if lz.viz != nil {
			lz.viz.Frame(frame, &result.Detections[len(result.Detections)-1], lz.trails())
		}
	}

	stats.finalize(time.Since(start), src.FPS())
	stats.LogSummary(lz.log)
	return result, nil
}

// processFrame makes the one decision per frame: detect, track, or predict
func (lz *Localizer) processFrame(frameIndex int, frame *video.Frame, stats *RunStats) DetectionRecord {
	needDetect := frameIndex%lz.opts.DetectInterval == 0 ||
		(lz.consecNonDetections < emptyDetectGrace && len(lz.tracks) == 0) ||
		lz.predictStreak >= lz.opts.KalmanPredictLimit

	if needDetect {
		lz.predictStreak = 0
		return lz.detectFrame(frame, stats)
	}

	if record, ok := lz.trackFrame(frame, stats); ok {
		lz.predictStreak = 0
		stats.TrackerRecoveries++
		return record
	}

	if len(lz.tracks) > 0 && lz.consecNonDetections < predictCutoff {
		lz.predictStreak++
		stats.PredictorOnlyFrames++
		return lz.predictFrame()
	}

	// Too long since the detector last saw anything. Declare the frame
	// empty rather than drift a prediction indefinitely.
	return DetectionRecord{Boxes: []facedet.Rect{}, Source: SourceTracker, Outcome: OutcomeFailed}
}

// detectFrame runs the full detector and rebuilds the track set
func (lz *Localizer) detectFrame(frame *video.Frame, stats *RunStats) DetectionRecord {
	start := time.Now()
	prepped, invScale := imageproc.PrepareForDetector(frame.Image, lz.grayscaleSource)
	params := facedet.Params{
		ScoreThreshold:  lz.opts.ScoreThreshold,
		NmsIouThreshold: lz.opts.NmsIouThreshold,
	}
	dets, err := lz.detector.DetectFaces(prepped, &params)
	stats.DetectTime.AddSample(time.Since(start))
	stats.DetectorInvocations++
	if err != nil {
		// Absorbed: an erroring detector pass is a pass that found nothing
		if time.Since(lz.lastDetectErrAt) > 15*time.Second {
			lz.log.Errorf("Error detecting faces: %v", err)
			lz.lastDetectErrAt = time.Now()
		}
		dets = nil
	}

	if len(dets) == 0 {
		stats.MissedDetections++
		lz.consecNonDetections++
		lz.tracks = nil
		return DetectionRecord{Boxes: []facedet.Rect{}, Source: SourceDetector, Outcome: OutcomeFailed}
	}

	lz.consecNonDetections = 0
	lz.tracks = make([]*trackState, 0, len(dets))
	boxes := make([]facedet.Rect, 0, len(dets))
	for _, det := range dets {
		box := det.Box.Scale(invScale).Clip(frame.Image.Width, frame.Image.Height)
		lz.tracks = append(lz.tracks, newTrackState(frame, box))
		boxes = append(boxes, box)
	}
	return DetectionRecord{Boxes: boxes, Source: SourceDetector, Outcome: OutcomeSuccess}
}

// trackFrame advances every tracker. All trackers must succeed for the
// frame to count as tracked; a partial result would leave some filters
// corrected and others not, and the gap verifier treats a shrinking box
// count as a miss anyway.
func (lz *Localizer) trackFrame(frame *video.Frame, stats *RunStats) (DetectionRecord, bool) {
	if len(lz.tracks) == 0 {
		return DetectionRecord{}, false
	}
	start := time.Now()
	defer func() {
		stats.TrackTime.AddSample(time.Since(start))
	}()

	measured := make([]facedet.Rect, len(lz.tracks))
	for i, t := range lz.tracks {
		box, ok := t.tracker.Update(frame.Image)
		if !ok {
			return DetectionRecord{}, false
		}
		measured[i] = box
	}

	// Emit the filter's corrected estimate, not the raw tracker box
	boxes := make([]facedet.Rect, len(lz.tracks))
	for i, t := range lz.tracks {
		boxes[i] = t.filter.Correct(measured[i])
		t.history.Add(boxes[i].Center())
	}
	return DetectionRecord{Boxes: boxes, Source: SourceTracker, Outcome: OutcomeSuccess}, true
}

// predictFrame projects every filter forward with no measurement
func (lz *Localizer) predictFrame() DetectionRecord {
	boxes := make([]facedet.Rect, len(lz.tracks))
	for i, t := range lz.tracks {
		boxes[i] = t.filter.Predict()
		t.history.Add(boxes[i].Center())
	}
	return DetectionRecord{Boxes: boxes, Source: SourceKalman, Outcome: OutcomeSuccess}
}

// trails returns the recent center history of each track, for debug overlays
func (lz *Localizer) trails() [][]facedet.Point {
	trails := make([][]facedet.Point, len(lz.tracks))
	for i, t := range lz.tracks {
		trail := make([]facedet.Point, t.history.Len())
		for j := 0; j < t.history.Len(); j++ {
			trail[j] = t.history.Peek(j)
		}
		trails[i] = trail
	}
	return trails
}
