// Package video reads video files frame by frame.
//
// Decoding is delegated to an ffmpeg subprocess emitting raw RGB24 on a
// pipe, with ffprobe supplying the stream geometry and frame rate up front.
// A Source is finite and single-pass; reopen the file to read it again.
package video

import (
	"github.com/bmharper/cimg/v2"
)

// A single decoded frame. Immutable once read.
type Frame struct {
	Index int // zero-based frame index
	Image *cimg.Image
}

// Source produces frames in order.
// NextFrame returns io.EOF when the stream is exhausted.
type Source interface {
	NextFrame() (*Frame, error)
	Width() int
	Height() int
	FPS() float64
	Close()
}
