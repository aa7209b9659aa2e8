package gstpipe

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer bus errors for telemetry and for
// mapping acquisition failures onto the caller's error taxonomy
type ErrorCategory int

const (
	// ErrCategoryDevice indicates a missing or busy capture device
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryPermission indicates the OS refused access to the device
	ErrCategoryPermission
	// ErrCategoryCodec indicates caps negotiation or decode failures
	ErrCategoryCodec
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryPermission:
		return "permission"
	case ErrCategoryCodec:
		return "codec"
	default:
		return "unknown"
	}
}

var (
	permissionKeywords = []string{
		"permission denied",
		"not permitted",
		"access denied",
		"eacces",
		"unauthorized",
		"forbidden",
	}
	codecKeywords = []string{
		"not negotiated",
		"negotiation",
		"caps",
		"format",
		"decode",
		"no decoder",
		"missing plugin",
		"mjpeg",
		"jpeg",
	}
	deviceKeywords = []string{
		"no such file",
		"no such device",
		"cannot identify device",
		"could not open",
		"not found",
		"busy",
		"resource",
		"v4l2",
	}
)

// Classify categorizes an error from its message and debug string.
//
// Priority: permission (most specific), codec, device, unknown.
// go-gst's GError does not expose the error domain, so matching is textual.
func Classify(message, debug string) ErrorCategory {
	combined := strings.ToLower(message + " " + debug)

	switch {
	case containsAny(combined, permissionKeywords):
		return ErrCategoryPermission
	case containsAny(combined, codecKeywords):
		return ErrCategoryCodec
	case containsAny(combined, deviceKeywords):
		return ErrCategoryDevice
	default:
		return ErrCategoryUnknown
	}
}

// ClassifyGError categorizes a GStreamer error message
func ClassifyGError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return Classify(gerr.Error(), gerr.DebugString())
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
