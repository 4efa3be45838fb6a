package facetrack

import (
	"time"

	"github.com/cyclopcam/logs"

	"github.com/cyclopcam/faceveil/pkg/perfstats"
)

// RunStats are aggregate counters over one localization run
type RunStats struct {
	FramesProcessed      int     `json:"framesProcessed"`
	DetectorInvocations  int     `json:"detectorInvocations"`
	FramesWithFaces      int     `json:"framesWithFaces"`
	FramesWithoutFaces   int     `json:"framesWithoutFaces"`
	TrackerRecoveries    int     `json:"trackerRecoveries"`    // frames resolved via successful tracking
	PredictorOnlyFrames  int     `json:"predictorOnlyFrames"`  // frames where only the motion model produced boxes
	MissedDetections     int     `json:"missedDetections"`     // detector passes that found zero faces
	MissedDetectionRatio float64 `json:"missedDetectionRatio"` // missed / detector invocations
	DetectionAccuracy    float64 `json:"detectionAccuracy"`    // (1 - missed ratio) * 100
	MeasuredFPS          float64 `json:"measuredFPS"`          // frames processed per wall-clock second
	FPSRatio             float64 `json:"fpsRatio"`             // measured FPS / native video FPS

	DetectTime perfstats.TimeAccumulator `json:"detectTime"`
	TrackTime  perfstats.TimeAccumulator `json:"trackTime"`
}

// finalize computes the derived values once the run is complete
func (s *RunStats) finalize(elapsed time.Duration, nativeFPS float64) {
	if s.DetectorInvocations > 0 {
		s.MissedDetectionRatio = float64(s.MissedDetections) / float64(s.DetectorInvocations)
	}
	s.DetectionAccuracy = (1 - s.MissedDetectionRatio) * 100
	if elapsed > 0 {
		s.MeasuredFPS = float64(s.FramesProcessed) / elapsed.Seconds()
	}
	if nativeFPS > 0 {
		s.FPSRatio = s.MeasuredFPS / nativeFPS
	}
}

// LogSummary prints the run counters in a compact, human-scannable form
func (s *RunStats) LogSummary(log logs.Log) {
	log.Infof("Localized %v frames: %v detector passes (%v missed, %.1f%% accuracy), %v tracked, %v predicted",
		s.FramesProcessed, s.DetectorInvocations, s.MissedDetections, s.DetectionAccuracy,
		s.TrackerRecoveries, s.PredictorOnlyFrames)
	log.Infof("Throughput %.1f FPS (%.2fx native). Times per frame: %.1f ms detect, %.1f ms track",
		s.MeasuredFPS, s.FPSRatio, s.DetectTime.AverageMS(), s.TrackTime.AverageMS())
}
