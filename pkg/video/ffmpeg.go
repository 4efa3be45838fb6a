package video

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bmharper/cimg/v2"

	"github.com/cyclopcam/faceveil/pkg/shell"
)

// FileSource decodes a video file via an ffmpeg subprocess
type FileSource struct {
	width     int
	height    int
	fps       float64
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	nextIndex int
}

type probeStream struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// OpenFile opens a video file for sequential frame reads.
// A file that cannot be opened or probed fails here, before any frame is
// processed.
func OpenFile(path string) (*FileSource, error) {
	probeJSON, err := shell.Run("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate",
		"-of", "json",
		path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video '%v': %w", path, err)
	}
	width, height, fps, err := parseProbeOutput([]byte(probeJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to open video '%v': %w", path, err)
	}

	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open video '%v': %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start decoder for '%v': %w", path, err)
	}

	return &FileSource{
		width:  width,
		height: height,
		fps:    fps,
		cmd:    cmd,
		stdout: stdout,
	}, nil
}

func parseProbeOutput(probeJSON []byte) (width, height int, fps float64, err error) {
	var out probeOutput
	if err = json.Unmarshal(probeJSON, &out); err != nil {
		return 0, 0, 0, err
	}
	if len(out.Streams) == 0 {
		return 0, 0, 0, fmt.Errorf("no video stream found")
	}
	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid video geometry %vx%v", s.Width, s.Height)
	}
	fps = parseFrameRate(s.AvgFrameRate)
	if fps == 0 {
		fps = parseFrameRate(s.RFrameRate)
	}
	if fps == 0 {
		return 0, 0, 0, fmt.Errorf("unable to determine frame rate")
	}
	return s.Width, s.Height, fps, nil
}

// parseFrameRate parses ffprobe's rational frame rates, eg "30000/1001".
// Returns 0 if the rate is absent or degenerate ("0/0").
func parseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		v, _ := strconv.ParseFloat(rate, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func (s *FileSource) Width() int   { return s.width }
func (s *FileSource) Height() int  { return s.height }
func (s *FileSource) FPS() float64 { return s.fps }

// NextFrame reads the next frame, returning io.EOF at end of stream.
// Each frame gets its own pixel buffer, so frames remain valid after
// subsequent reads.
func (s *FileSource) NextFrame() (*Frame, error) {
	pixels := make([]byte, s.width*s.height*3)
	if _, err := io.ReadFull(s.stdout, pixels); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	frame := &Frame{
		Index: s.nextIndex,
		Image: cimg.WrapImage(s.width, s.height, cimg.PixelFormatRGB, pixels),
	}
	s.nextIndex++
	return frame, nil
}

func (s *FileSource) Close() {
	if s.cmd != nil {
		s.stdout.Close()
		s.cmd.Process.Kill()
		s.cmd.Wait()
		s.cmd = nil
	}
}
