// Package verify decides whether a localization run is good enough to
// anonymize with.
//
// A "gap" is a contiguous span of frames where the tracked face count is
// lower than it was before the span began. Gaps are counted in face-count
// terms, not identities: any recovery of the count ends the gap, whether or
// not the same physical face came back. Brief gaps are tolerable detection
// noise; what the blur stage cannot survive is a large fraction of frames
// with faces simply missing.
package verify

import (
	"github.com/cyclopcam/faceveil/pkg/facetrack"
)

// Verification passes when either ratio is strictly under this
const passRatioLimit = 0.1

// Gaps shorter than this many seconds of video are "short"
const shortGapSeconds = 0.5

// A contiguous run of frames with a depressed face count
type GapRecord struct {
	StartingFrame int `json:"startingFrame"`
	GapSize       int `json:"gapSize"`
}

type Summary struct {
	TotalFrames       int     `json:"totalFrames"`
	MissingFrames     int     `json:"missingFrames"`
	MissRatio         float64 `json:"missRatio"`
	GapCount          int     `json:"gapCount"`
	NativeFPS         float64 `json:"nativeFPS"`
	ShortGapCount     int     `json:"shortGapCount"`
	TotalShortGapTime float64 `json:"totalShortGapTime"` // seconds of video spent in short gaps
	ShortGapRatio     float64 `json:"shortGapRatio"`
}

type Verdict struct {
	Gaps    []GapRecord `json:"gaps"`
	Summary Summary     `json:"summary"`
	Pass    bool        `json:"pass"`
}

// Verify characterizes the gaps in a detection sequence and issues a
// pass/fail verdict. Pure and deterministic: same input, same verdict.
// It never fails; an empty detection list passes trivially.
func Verify(detections []facetrack.DetectionRecord, nativeFPS float64) Verdict {
	counts := make([]int, len(detections))
	for i, d := range detections {
		counts[i] = len(d.Boxes)
	}
	gaps, missingFrames := extractGaps(counts)

	totalFrames := len(detections)
	missRatio := 0.0
	if totalFrames > 0 {
		missRatio = float64(missingFrames) / float64(totalFrames)
	}

	// Gaps shorter than half a second are detection noise, not true misses
	shortGapThreshold := nativeFPS * shortGapSeconds
	shortGapCount := 0
	shortGapFrames := 0
	for _, g := range gaps {
		if float64(g.GapSize) < shortGapThreshold {
			shortGapCount++
			shortGapFrames += g.GapSize
		}
	}
	totalShortGapTime := 0.0
	if nativeFPS > 0 {
		totalShortGapTime = float64(shortGapFrames) / nativeFPS
	}

	successfulFrames := totalFrames - missingFrames
	shortGapRatio := 0.0
	if successfulFrames > 0 {
		shortGapRatio = totalShortGapTime / float64(successfulFrames)
	}

	// Deliberately permissive OR: a run with many brief gaps but few
	// missing frames overall still passes, and vice versa.
	pass := missRatio < passRatioLimit || shortGapRatio < passRatioLimit

	return Verdict{
		Gaps: gaps,
		Summary: Summary{
			TotalFrames:       totalFrames,
			MissingFrames:     missingFrames,
			MissRatio:         missRatio,
			GapCount:          len(gaps),
			NativeFPS:         nativeFPS,
			ShortGapCount:     shortGapCount,
			TotalShortGapTime: totalShortGapTime,
			ShortGapRatio:     shortGapRatio,
		},
		Pass: pass,
	}
}

// extractGaps walks the per-frame face counts once, in order.
// A gap opens when the count drops below the previous frame's, continues
// while the count stays at or below the pre-drop level, and closes when
// the count recovers. The recovery frame is outside the gap.
// missingFrames accumulates the per-frame deficit at every drop.
func extractGaps(counts []int) (gaps []GapRecord, missingFrames int) {
	gaps = []GapRecord{}
	previous := 0
	inGap := false
	gapSize := 0
	for i, count := range counts {
		if count < previous {
			gapSize++
			missingFrames += previous - count
			inGap = true
		} else if inGap && count <= previous {
			gapSize++
		} else if inGap && count >= previous {
			gaps = append(gaps, GapRecord{StartingFrame: i - gapSize, GapSize: gapSize})
			gapSize = 0
			inGap = false
		}
		previous = count
	}
	if inGap {
		// Video ended mid-gap
		gaps = append(gaps, GapRecord{StartingFrame: len(counts) - gapSize, GapSize: gapSize})
	}
	return gaps, missingFrames
}
