package tool

import (
	"errors"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/cyclopcam/faceveil/pkg/facedet"
	"github.com/cyclopcam/faceveil/pkg/facetrack"
	"github.com/cyclopcam/faceveil/pkg/verify"
)

// echoTool records invocations and stamps its name into the bag
type echoTool struct {
	name      string
	applyErr  error
	verifyErr error
	applies   int
	verifies  int
}

func (t *echoTool) Apply(args Args) (Args, error) {
	t.applies++
	if t.applyErr != nil {
		return nil, t.applyErr
	}
	out := args.Clone()
	out[t.name] = true
	return out, nil
}

func (t *echoTool) Verify(args Args) (Args, error) {
	t.verifies++
	if t.verifyErr != nil {
		return nil, t.verifyErr
	}
	return args, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(logs.NewTestingLog(t))
	a := &echoTool{name: "a"}
	require.NoError(t, r.Register("a", a))
	require.NoError(t, r.Register("b", &echoTool{name: "b"}))
	require.Error(t, r.Register("a", &echoTool{name: "a"}), "duplicate registration must fail")
	require.Equal(t, []string{"a", "b"}, r.Names())

	got, err := r.Get("a")
	require.NoError(t, err)
	require.Equal(t, a, got)
	_, err = r.Get("nope")
	require.Error(t, err)
}

func TestRegistryRun(t *testing.T) {
	r := NewRegistry(logs.NewTestingLog(t))
	a := &echoTool{name: "a"}
	require.NoError(t, r.Register("a", a))

	in := Args{"input": 7}
	out, err := r.Run("a", in)
	require.NoError(t, err)
	require.Equal(t, 1, a.applies)
	require.Equal(t, 1, a.verifies)
	require.Equal(t, true, out["a"])
	require.Equal(t, 7, out["input"])
	// Input bag untouched
	require.NotContains(t, in, "a")

	a.verifyErr = errors.New("bad output")
	_, err = r.Run("a", in)
	require.Error(t, err)
}

func makeResult(counts []int, fps float64) *facetrack.Result {
	result := &facetrack.Result{
		Detections: []facetrack.DetectionRecord{},
		NativeFPS:  fps,
	}
	for i, n := range counts {
		boxes := make([]facedet.Rect, n)
		for j := range boxes {
			boxes[j] = facedet.Rect{X: j * 60, Y: 10, Width: 50, Height: 50}
		}
		result.Detections = append(result.Detections, facetrack.DetectionRecord{
			FrameIndex: i,
			Boxes:      boxes,
			Source:     facetrack.SourceDetector,
		})
	}
	result.Stats.FramesProcessed = len(counts)
	return result
}

func TestDetectFacesVerify(t *testing.T) {
	dt := NewDetectFacesTool(logs.NewTestingLog(t), nil, nil)

	good := Args{KeyResult: makeResult([]int{1, 1, 1}, 30)}
	_, err := dt.Verify(good)
	require.NoError(t, err)

	// A record count that disagrees with the frame counter must fail
	short := makeResult([]int{1, 1, 1}, 30)
	short.Stats.FramesProcessed = 4
	_, err = dt.Verify(Args{KeyResult: short})
	require.Error(t, err)

	// Non-contiguous frame indices must fail
	skewed := makeResult([]int{1, 1, 1}, 30)
	skewed.Detections[2].FrameIndex = 5
	_, err = dt.Verify(Args{KeyResult: skewed})
	require.Error(t, err)

	_, err = dt.Verify(Args{})
	require.Error(t, err)
}

func TestVerifyDetectionsTool(t *testing.T) {
	vt := NewVerifyDetectionsTool(logs.NewTestingLog(t))

	result := makeResult([]int{2, 2, 2, 2, 0, 0, 2, 2, 2, 2}, 30)
	out, err := vt.Apply(Args{KeyResult: result})
	require.NoError(t, err)
	verdict, ok := out[KeyVerdict].(verify.Verdict)
	require.True(t, ok)
	require.True(t, verdict.Pass)
	require.Equal(t, 1, verdict.Summary.GapCount)

	// Verify accepts its own output
	_, err = vt.Verify(out)
	require.NoError(t, err)

	// A verdict that no longer matches the detections is rejected
	tampered := out.Clone()
	verdict.Pass = false
	tampered[KeyVerdict] = verdict
	_, err = vt.Verify(tampered)
	require.Error(t, err)

	_, err = vt.Apply(Args{})
	require.Error(t, err)
}
