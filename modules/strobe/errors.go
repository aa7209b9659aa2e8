package strobe

import (
	"errors"
	"fmt"
	"io/fs"

	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
)

var (
	// ErrRunInProgress is returned when a run is requested while another is active
	ErrRunInProgress = errors.New("strobe: run already in progress")

	// ErrInvalidSequence is returned when the phase sequence length differs from the target length
	ErrInvalidSequence = errors.New("strobe: invalid phase sequence")

	// ErrInvalidSelection is returned when a selection index is out of range
	ErrInvalidSelection = errors.New("strobe: invalid selection")

	// ErrClosed is returned after Controller.Close
	ErrClosed = errors.New("strobe: controller closed")
)

// ErrorKind classifies run failures
type ErrorKind int

const (
	// ErrKindUnknown is any failure not covered below
	ErrKindUnknown ErrorKind = iota
	// ErrKindSourceUnavailable means the platform cannot stream frames
	ErrKindSourceUnavailable
	// ErrKindPermissionDenied means access to the camera was refused
	ErrKindPermissionDenied
	// ErrKindProcessingFailure means a single frame could not be encoded
	ErrKindProcessingFailure
	// ErrKindStreamFailure means the source failed while streaming
	ErrKindStreamFailure
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindSourceUnavailable:
		return "SourceUnavailable"
	case ErrKindPermissionDenied:
		return "PermissionDenied"
	case ErrKindProcessingFailure:
		return "ProcessingFailure"
	case ErrKindStreamFailure:
		return "StreamFailure"
	default:
		return "Unknown"
	}
}

// Status returns the short user-facing status line for the kind
func (k ErrorKind) Status() string {
	switch k {
	case ErrKindSourceUnavailable:
		return "Camera unavailable"
	case ErrKindPermissionDenied:
		return "Camera permission denied"
	case ErrKindStreamFailure:
		return "Stream failed"
	default:
		return statusError
	}
}

// RunError is a classified run failure
type RunError struct {
	Kind ErrorKind
	Err  error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("strobe: %s", e.Kind)
	}
	return fmt.Sprintf("strobe: %s: %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ClassifyAcquireError maps probe and acquisition errors to an ErrorKind
func ClassifyAcquireError(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrKindUnknown
	case errors.Is(err, streamcapture.ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return ErrKindPermissionDenied
	case errors.Is(err, streamcapture.ErrUnsupported), errors.Is(err, fs.ErrNotExist):
		return ErrKindSourceUnavailable
	default:
		return ErrKindUnknown
	}
}

// KindOf returns the ErrorKind of err, or ErrKindUnknown
func KindOf(err error) ErrorKind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrKindUnknown
}
