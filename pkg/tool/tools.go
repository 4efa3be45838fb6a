package tool

import (
	"fmt"

	"github.com/cyclopcam/logs"

	"github.com/cyclopcam/faceveil/pkg/facedet"
	"github.com/cyclopcam/faceveil/pkg/facetrack"
	"github.com/cyclopcam/faceveil/pkg/verify"
)

// Argument bag keys shared between the pipeline tools
const (
	KeyVideoPath = "videoPath" // input: path of the video to process
	KeyResult    = "result"    // *facetrack.Result produced by detect_faces
	KeyVerdict   = "verdict"   // verify.Verdict produced by verify_detections
)

// Canonical registration names
const (
	NameDetectFaces      = "detect_faces"
	NameVerifyDetections = "verify_detections"
)

// DetectFacesTool runs face localization over a video file
type DetectFacesTool struct {
	log      logs.Log
	detector facedet.Detector
	opts     *facetrack.Options
	viz      facetrack.Visualizer
}

func NewDetectFacesTool(logger logs.Log, detector facedet.Detector, opts *facetrack.Options) *DetectFacesTool {
	return &DetectFacesTool{
		log:      logger,
		detector: detector,
		opts:     opts,
	}
}

// SetVisualizer attaches a debug sink to the localization runs
func (t *DetectFacesTool) SetVisualizer(v facetrack.Visualizer) {
	t.viz = v
}

func (t *DetectFacesTool) Apply(args Args) (Args, error) {
	path, err := args.String(KeyVideoPath)
	if err != nil {
		return nil, err
	}
	// A fresh localizer per run; run state must not leak between videos
	lz := facetrack.NewLocalizer(t.log, t.detector, t.opts)
	if t.viz != nil {
		lz.SetVisualizer(t.viz)
	}
	result, err := lz.LocalizeFile(path)
	if err != nil {
		return nil, err
	}
	out := args.Clone()
	out[KeyResult] = result
	return out, nil
}

// Verify checks the structural invariants of a localization result:
// one record per processed frame, indices contiguous from zero.
func (t *DetectFacesTool) Verify(args Args) (Args, error) {
	result, err := resultArg(args)
	if err != nil {
		return nil, err
	}
	if len(result.Detections) != result.Stats.FramesProcessed {
		return nil, fmt.Errorf("%v records for %v processed frames", len(result.Detections), result.Stats.FramesProcessed)
	}
	for i, d := range result.Detections {
		if d.FrameIndex != i {
			return nil, fmt.Errorf("record %v carries frame index %v", i, d.FrameIndex)
		}
	}
	return args, nil
}

// VerifyDetectionsTool grades a localization result for anonymization use
type VerifyDetectionsTool struct {
	log logs.Log
}

func NewVerifyDetectionsTool(logger logs.Log) *VerifyDetectionsTool {
	return &VerifyDetectionsTool{log: logger}
}

func (t *VerifyDetectionsTool) Apply(args Args) (Args, error) {
	result, err := resultArg(args)
	if err != nil {
		return nil, err
	}
	verdict := verify.Verify(result.Detections, result.NativeFPS)
	t.log.Infof("Verification: %v gaps, miss ratio %.3f, short gap ratio %.3f, pass=%v",
		verdict.Summary.GapCount, verdict.Summary.MissRatio, verdict.Summary.ShortGapRatio, verdict.Pass)
	out := args.Clone()
	out[KeyVerdict] = verdict
	return out, nil
}

// Verify re-runs the pure verification and requires the same verdict.
// Verification is deterministic, so any difference means the bag was
// tampered with between Apply and Verify.
func (t *VerifyDetectionsTool) Verify(args Args) (Args, error) {
	result, err := resultArg(args)
	if err != nil {
		return nil, err
	}
	v, ok := args[KeyVerdict]
	if !ok {
		return nil, fmt.Errorf("missing argument '%v'", KeyVerdict)
	}
	verdict, ok := v.(verify.Verdict)
	if !ok {
		return nil, fmt.Errorf("argument '%v' is %T, expected verify.Verdict", KeyVerdict, v)
	}
	if replay := verify.Verify(result.Detections, result.NativeFPS); replay.Pass != verdict.Pass {
		return nil, fmt.Errorf("verdict does not match its detections")
	}
	return args, nil
}

func resultArg(args Args) (*facetrack.Result, error) {
	v, ok := args[KeyResult]
	if !ok {
		return nil, fmt.Errorf("missing argument '%v'", KeyResult)
	}
	result, ok := v.(*facetrack.Result)
	if !ok || result == nil {
		return nil, fmt.Errorf("argument '%v' is %T, expected *facetrack.Result", KeyResult, v)
	}
	return result, nil
}
