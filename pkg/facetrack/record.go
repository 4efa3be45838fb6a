package facetrack

import (
	"github.com/cyclopcam/faceveil/pkg/facedet"
)

// How a frame's boxes were produced
type Source string

const (
	SourceDetector Source = "detector" // full neural/cascade detector pass
	SourceTracker  Source = "tracker"  // correlation tracker continuation
	SourceKalman   Source = "kalman"   // motion prediction only
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// DetectionRecord is the per-frame output of the localizer.
// Records are appended in frame order and never mutated; FrameIndex runs
// 0, 1, 2, ... with no gaps.
type DetectionRecord struct {
	FrameIndex int            `json:"frameIndex"`
	Boxes      []facedet.Rect `json:"boxes"`
	Source     Source         `json:"source"`
	Outcome    Outcome        `json:"outcome,omitempty"`
}

// Result of a full localization run.
// The blur collaborator re-reads VideoPath and looks up Detections by frame
// index; the verifier consumes Detections together with NativeFPS.
type Result struct {
	VideoPath  string            `json:"videoPath,omitempty"`
	Detections []DetectionRecord `json:"detections"`
	Stats      RunStats          `json:"stats"`
	NativeFPS  float64           `json:"nativeFPS"`
}
