package streamcapture

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported is returned when the platform lacks the frame-streaming
	// capability a provider needs (missing device, missing GStreamer plugin).
	ErrUnsupported = errors.New("stream-capture: frame streaming unsupported")

	// ErrPermissionDenied is returned when the user or OS declines access to the device.
	ErrPermissionDenied = errors.New("stream-capture: permission denied")

	// ErrSourceClosed is returned by Next after Close.
	ErrSourceClosed = errors.New("stream-capture: source closed")
)

// Provider acquires video sources.
//
// Implementations must guarantee:
//   - Probe() has no side effects beyond loading drivers/plugins
//   - Probe() and Acquire() report a missing capability as ErrUnsupported
//   - Acquire() reports refused access as ErrPermissionDenied
type Provider interface {
	// Probe checks that the frame-streaming capability is available.
	Probe() error

	// Acquire opens the device and starts streaming.
	//
	// The returned Source is owned by the caller, who must Close it.
	Acquire(ctx context.Context) (Source, error)
}

// Source is a live, unbounded, possibly failing sequence of frames.
//
// Implementations must guarantee:
//   - Next() blocks until a frame arrives, the stream ends or ctx is done
//   - Next() returns io.EOF once the stream has ended normally
//   - Next() returns promptly with ctx.Err() when ctx is cancelled
//   - every returned Frame is released by the caller exactly once
//   - Close() is idempotent and releases frames still held by the source
type Source interface {
	Next(ctx context.Context) (*Frame, error)

	// Width and Height are the negotiated capture dimensions.
	Width() int
	Height() int

	Close() error
}
