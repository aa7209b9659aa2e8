package gstpipe

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Sample is a copied appsink buffer
type Sample struct {
	Seq       uint64
	Timestamp time.Time
	Data      []byte
}

// CallbackContext holds state needed by GStreamer callbacks
type CallbackContext struct {
	// Deliver receives each sample; it must not block
	Deliver      func(Sample)
	FrameCounter *atomic.Uint64
	BytesRead    *atomic.Uint64
}

// Attach installs the new-sample callback on the appsink
func Attach(el *Elements, cb *CallbackContext) {
	el.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return OnNewSample(sink, cb)
		},
	})
}

// OnNewSample is called by GStreamer when a new frame is available
//
// This callback:
//  1. Pulls the sample from the appsink
//  2. Maps the buffer and copies the pixels (GStreamer reuses the buffer)
//  3. Hands the copy to Deliver
//
// A sample that cannot be read is skipped; one bad buffer does not end the stream.
func OnNewSample(sink *app.Sink, cb *CallbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstpipe: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstpipe: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstpipe: empty buffer received")
		return gst.FlowOK
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := cb.FrameCounter.Add(1)
	cb.BytesRead.Add(uint64(len(frameData)))

	cb.Deliver(Sample{Seq: seq, Timestamp: time.Now(), Data: frameData})
	return gst.FlowOK
}
