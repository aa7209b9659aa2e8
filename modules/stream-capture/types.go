package streamcapture

import (
	"fmt"
	"sync/atomic"
	"time"
)

// PixelFormat identifies how Frame.Data is laid out
type PixelFormat int

const (
	// FormatRGB is interleaved 8-bit RGB (RGBRGB...), Width × Height × 3 bytes
	FormatRGB PixelFormat = iota
	// FormatJPEG is a complete JPEG (or MJPEG) still
	FormatJPEG
)

// String returns a human-readable name for the pixel format
func (p PixelFormat) String() string {
	switch p {
	case FormatRGB:
		return "rgb"
	case FormatJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// Frame represents a single video frame handed out by a Source.
//
// Frames may borrow memory owned by the capture backend (a V4L2 mmap
// buffer, a GStreamer sample). The consumer must call Release exactly once
// when done with the frame; Release is idempotent so a deferred call is
// always safe. Data must not be read after Release.
type Frame struct {
	// Seq is the monotonic sequence number assigned by the source
	Seq uint64
	// Timestamp is when the frame was captured/decoded
	Timestamp time.Time
	// Width in pixels (0 if unknown, callers fall back to Source.Width)
	Width int
	// Height in pixels (0 if unknown, callers fall back to Source.Height)
	Height int
	// Format describes Data
	Format PixelFormat
	// Data contains the frame payload
	Data []byte
	// SourceStream identifies the device or pipeline that produced the frame
	SourceStream string
	// TraceID is a unique identifier for tracing a frame through the run
	TraceID string

	// OnRelease returns the frame's backing buffer to its owner
	OnRelease func()

	released atomic.Bool
}

// Release returns the frame to its source. Safe to call more than once.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	if f.released.CompareAndSwap(false, true) && f.OnRelease != nil {
		f.OnRelease()
	}
}

// Released reports whether Release has been called
func (f *Frame) Released() bool {
	return f != nil && f.released.Load()
}

// Still is an encoded still image produced from a frame
type Still struct {
	// MIMEType of Data, e.g. "image/jpeg"
	MIMEType string `json:"mime_type"`
	// Width in pixels
	Width int `json:"width"`
	// Height in pixels
	Height int `json:"height"`
	// Data is the encoded image; owned by the Still, never aliases a frame buffer
	Data []byte `json:"-"`
}

// Resolution represents supported capture resolutions
type Resolution int

const (
	// Res480p represents 640x480 resolution (VGA)
	Res480p Resolution = iota
	// Res720p represents 1280x720 resolution (HD)
	Res720p
	// Res1080p represents 1920x1080 resolution (Full HD)
	Res1080p
)

// Dimensions returns the width and height for the resolution
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case Res480p:
		return 640, 480
	case Res720p:
		return 1280, 720
	case Res1080p:
		return 1920, 1080
	default:
		return 640, 480
	}
}

// String returns a human-readable string representation of the resolution
func (r Resolution) String() string {
	switch r {
	case Res480p:
		return "480p"
	case Res720p:
		return "720p"
	case Res1080p:
		return "1080p"
	default:
		return "480p"
	}
}

// ParseResolution maps "480p", "720p" or "1080p" to a Resolution
func ParseResolution(s string) (Resolution, error) {
	switch s {
	case "480p":
		return Res480p, nil
	case "720p":
		return Res720p, nil
	case "1080p":
		return Res1080p, nil
	default:
		return Res480p, fmt.Errorf("stream-capture: invalid resolution %q (must be 480p, 720p or 1080p)", s)
	}
}

// WarmupStats contains statistics collected while measuring the frame cadence
type WarmupStats struct {
	// FramesReceived is the number of frames received during warm-up
	FramesReceived int
	// Duration is the actual warm-up duration
	Duration time.Duration
	// FPSMean is the mean FPS across all frames
	FPSMean float64
	// FPSStdDev is the standard deviation of FPS
	FPSStdDev float64
	// FPSMin is the minimum instantaneous FPS
	FPSMin float64
	// FPSMax is the maximum instantaneous FPS
	FPSMax float64
	// IsStable is true if FPS is stable (stddev < 15% of mean AND jitter < 20%)
	IsStable bool
	// JitterMean is the average deviation from the expected inter-frame interval (seconds)
	JitterMean float64
	// JitterStdDev is the standard deviation of the jitter (seconds)
	JitterStdDev float64
	// JitterMax is the largest deviation observed (seconds)
	JitterMax float64
}

// StreamStats contains runtime statistics for a live source
type StreamStats struct {
	// FrameCount is the number of frames delivered by the backend
	FrameCount uint64
	// FramesDropped counts frames overwritten before the consumer read them
	FramesDropped uint64
	// FramesReleased counts frames returned by the consumer
	FramesReleased uint64
	// FPSReal is the measured frame rate since the source started
	FPSReal float64
	// SourceStream identifies the device or pipeline
	SourceStream string
	// Resolution is "WIDTHxHEIGHT"
	Resolution string
	// BytesRead is the total payload size delivered
	BytesRead uint64
	// ErrorsDevice counts missing/busy device errors
	ErrorsDevice uint64
	// ErrorsPermission counts access refusals
	ErrorsPermission uint64
	// ErrorsCodec counts negotiation/decode errors
	ErrorsCodec uint64
	// ErrorsUnknown counts unclassified errors
	ErrorsUnknown uint64
}
