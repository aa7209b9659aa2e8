// Package gstpipe builds and monitors the GStreamer pipelines behind
// streamcapture.GStreamerProvider.
package gstpipe

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// SinkName is the appsink element name every launch string must provide
const SinkName = "sink"

// Config contains configuration for GStreamer pipeline creation
type Config struct {
	// Launch is a gst-launch style description; empty means DefaultLaunch
	Launch string
	Device string
	Width  int
	Height int
	FPS    int
}

// Elements holds references to GStreamer pipeline elements needed for
// callbacks and cleanup
type Elements struct {
	Pipeline *gst.Pipeline
	AppSink  *app.Sink
	Launch   string
}

// DefaultLaunch returns a V4L2 capture pipeline producing packed RGB frames
//
// Pipeline structure:
//
//	v4l2src → videoconvert → videoscale → videorate → capsfilter(RGB) → appsink
//
// The appsink keeps only the latest buffer: a slow consumer sees fresh frames,
// never a backlog from an earlier illumination phase.
func DefaultLaunch(device string, width, height, fps int) string {
	caps := fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d", width, height)
	if fps > 0 {
		caps += fmt.Sprintf(",framerate=%d/1", fps)
	}
	return fmt.Sprintf(
		"v4l2src device=%s ! videoconvert ! videoscale ! videorate ! %s ! appsink name=%s max-buffers=1 drop=true sync=false",
		device, caps, SinkName,
	)
}

// Init initializes GStreamer (safe to call multiple times)
func Init() {
	gst.Init(nil)
}

// Probe checks that every element factory is installed.
//
// Creating an element loads its plugin but starts nothing, so this has no
// side effects beyond plugin registration.
func Probe(factories ...string) error {
	Init()
	for _, name := range factories {
		if _, err := gst.NewElement(name); err != nil {
			return fmt.Errorf("gstreamer element %q unavailable: %w", name, err)
		}
	}
	return nil
}

// Create parses the launch description and looks up the appsink.
//
// The pipeline is configured but NOT started (state remains NULL).
// Caller must call Start to begin streaming.
func Create(cfg Config) (*Elements, error) {
	Init()

	launch := cfg.Launch
	if launch == "" {
		launch = DefaultLaunch(cfg.Device, cfg.Width, cfg.Height, cfg.FPS)
	}

	pipeline, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName(SinkName)
	if err != nil || elem == nil {
		_ = pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("pipeline has no appsink named %q", SinkName)
	}
	sink := app.SinkFromElement(elem)

	slog.Debug("gstpipe: pipeline created", "launch", launch)

	return &Elements{Pipeline: pipeline, AppSink: sink, Launch: launch}, nil
}

// Start sets the pipeline to PLAYING. State changes are asynchronous;
// device errors surface later on the bus.
func Start(el *Elements) error {
	if err := el.Pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to set pipeline to PLAYING: %w", err)
	}
	return nil
}

// Destroy sets the pipeline to NULL and releases its resources.
// Safe to call with nil elements.
func Destroy(el *Elements) error {
	if el == nil || el.Pipeline == nil {
		return nil
	}
	if err := el.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}
