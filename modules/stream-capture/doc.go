// Package streamcapture provides live video sources for strobe capture.
//
// A Provider probes for a frame-streaming capability and acquires a Source;
// a Source hands out Frames one at a time. Three providers are included:
//
//   - GStreamerProvider: any gst-launch pipeline ending in an RGB appsink
//     (default: v4l2src → videoconvert → videoscale → appsink)
//   - V4L2Provider: MJPEG straight from a V4L2 device (linux), zero copy
//   - SyntheticProvider: solid frames at a fixed rate, no hardware needed
//
// # Quick Start
//
//	provider := &streamcapture.GStreamerProvider{
//	    Device: "/dev/video0",
//	    Width:  1280,
//	    Height: 720,
//	    FPS:    30,
//	}
//	if err := provider.Probe(); err != nil {
//	    log.Fatal(err) // errors.Is(err, streamcapture.ErrUnsupported)
//	}
//
//	src, err := provider.Acquire(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	for {
//	    frame, err := src.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    still, err := streamcapture.JPEGEncoder{Quality: 90}.Encode(frame, src.Width(), src.Height())
//	    frame.Release()
//	    ...
//	}
//
// # Frame Ownership
//
// Frames may borrow backend memory (V4L2 mmap buffers). Every frame returned
// by Next must be released exactly once; Release is idempotent, so
// `defer frame.Release()` is always safe. Data must not be used after Release.
//
// Sources keep only the most recent frame: if the consumer is slower than the
// camera, older frames are released by the source and counted as drops. A
// consumer therefore always sees the freshest frame, never a backlog.
//
// # Errors
//
//   - ErrUnsupported: capability missing (device, plugin, format)
//   - ErrPermissionDenied: the OS refused access to the device
//   - io.EOF from Next: the stream ended normally
//   - ErrSourceClosed from Next: the source was closed
//
// # Warm-up
//
// Warmup consumes frames for a fixed duration and reports cadence statistics
// (mean FPS, jitter, stability). FramesPerPhase relates the measured rate to
// an illumination period.
package streamcapture
