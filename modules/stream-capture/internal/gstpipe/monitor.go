package gstpipe

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// BusError is a classified pipeline error reported on the bus
type BusError struct {
	Category ErrorCategory
	Message  string
	Debug    string
}

func (e *BusError) Error() string {
	return fmt.Sprintf("pipeline error [%s]: %s", e.Category, e.Message)
}

// ErrorCounters holds atomic counters for different error categories
type ErrorCounters struct {
	Device     atomic.Uint64
	Permission atomic.Uint64
	Codec      atomic.Uint64
	Unknown    atomic.Uint64
}

func (c *ErrorCounters) add(cat ErrorCategory) {
	switch cat {
	case ErrCategoryDevice:
		c.Device.Add(1)
	case ErrCategoryPermission:
		c.Permission.Add(1)
	case ErrCategoryCodec:
		c.Codec.Add(1)
	default:
		c.Unknown.Add(1)
	}
}

// MonitorBus polls the pipeline bus until end of stream, an error, or ctx is done.
//
// Returns nil on EOS or cancellation, and a *BusError on a pipeline error.
// It never reconnects: a capture run fails fast and the caller reacquires.
func MonitorBus(ctx context.Context, el *Elements, counters *ErrorCounters, frames *atomic.Uint64) error {
	if el == nil || el.Pipeline == nil {
		return fmt.Errorf("pipeline not initialized")
	}

	bus := el.Pipeline.GetPipelineBus()
	startedAt := time.Now()

	for {
		if ctx.Err() != nil {
			slog.Debug("gstpipe: context cancelled, stopping bus monitor")
			return nil
		}

		// Short timeout keeps shutdown responsive
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("gstpipe: end of stream received",
				"uptime", time.Since(startedAt),
				"frames_processed", frames.Load(),
			)
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			busErr := &BusError{Category: ClassifyGError(gerr)}
			if gerr != nil {
				busErr.Message = gerr.Error()
				busErr.Debug = gerr.DebugString()
			}
			counters.add(busErr.Category)

			slog.Error("gstpipe: pipeline error",
				"error", busErr.Message,
				"debug", busErr.Debug,
				"category", busErr.Category.String(),
				"uptime", time.Since(startedAt),
				"frames_processed", frames.Load(),
			)
			return busErr

		case gst.MessageStateChanged:
			if msg.Source() == el.Pipeline.GetName() {
				old, new := msg.ParseStateChanged()
				slog.Debug("gstpipe: pipeline state changed", "from", old, "to", new)
			}
		}
	}
}
