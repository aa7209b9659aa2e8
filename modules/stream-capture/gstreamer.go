package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-strobe/modules/stream-capture/internal/gstpipe"
	"github.com/e7canasta/orion-strobe/modules/stream-capture/internal/mailbox"
)

// DefaultStartTimeout bounds how long Acquire waits for the first frame
const DefaultStartTimeout = 5 * time.Second

// GStreamerProvider captures frames through a GStreamer pipeline ending in an appsink.
//
// The default pipeline reads a V4L2 device and converts to packed RGB at the
// requested size. A custom Launch description may be used instead, as long as
// it ends in "appsink name=sink" producing RGB at Width×Height.
type GStreamerProvider struct {
	Device string
	Launch string
	Width  int
	Height int
	FPS    int
	// Name is reported as Frame.SourceStream (defaults to Device)
	Name string
	// StartTimeout bounds the wait for the first frame (0 = DefaultStartTimeout)
	StartTimeout time.Duration
}

// Probe implements Provider.
//
// It verifies the elements of the default pipeline can be created. With a
// custom Launch only the appsink and videoconvert are checked.
func (p *GStreamerProvider) Probe() error {
	factories := []string{"appsink", "videoconvert"}
	if p.Launch == "" {
		factories = append(factories, "v4l2src", "videoscale", "videorate")
	}
	if err := gstpipe.Probe(factories...); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return nil
}

// Acquire implements Provider.
//
// This method:
//  1. Builds the pipeline (NULL state)
//  2. Installs the appsink callback feeding a single-slot mailbox
//  3. Starts the bus monitor and sets the pipeline to PLAYING
//  4. Waits for the first frame, a bus error, ctx, or StartTimeout
//
// Bus errors during start are mapped onto ErrPermissionDenied or ErrUnsupported.
func (p *GStreamerProvider) Acquire(ctx context.Context) (Source, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("stream-capture: invalid capture size %dx%d", p.Width, p.Height)
	}

	elements, err := gstpipe.Create(gstpipe.Config{
		Launch: p.Launch,
		Device: p.Device,
		Width:  p.Width,
		Height: p.Height,
		FPS:    p.FPS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	name := p.Name
	if name == "" {
		name = p.Device
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	s := &gstSource{
		width:    p.Width,
		height:   p.Height,
		name:     name,
		elements: elements,
		cancel:   cancel,
		ready:    make(chan struct{}),
		busDone:  make(chan error, 1),
		started:  time.Now(),
	}
	s.slot = mailbox.New(func(f *Frame) { f.Release() })

	gstpipe.Attach(elements, &gstpipe.CallbackContext{
		Deliver:      s.deliver,
		FrameCounter: &s.frameCount,
		BytesRead:    &s.bytesRead,
	})

	s.wg.Add(1)
	go s.monitor(monitorCtx)

	if err := gstpipe.Start(elements); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	timeout := p.StartTimeout
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ready:
	case err := <-s.busDone:
		_ = s.Close()
		return nil, mapStartError(err)
	case <-timer.C:
		_ = s.Close()
		return nil, fmt.Errorf("%w: no frame within %s from %s", ErrUnsupported, timeout, name)
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}

	slog.Info("stream-capture: gstreamer source streaming",
		"source", name,
		"resolution", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"launch", elements.Launch,
	)
	return s, nil
}

func mapStartError(err error) error {
	var busErr *gstpipe.BusError
	if errors.As(err, &busErr) {
		switch busErr.Category {
		case gstpipe.ErrCategoryPermission:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, busErr.Message)
		case gstpipe.ErrCategoryDevice, gstpipe.ErrCategoryCodec:
			return fmt.Errorf("%w: %s", ErrUnsupported, busErr.Message)
		}
		return fmt.Errorf("stream-capture: %w", busErr)
	}
	if err == nil {
		return fmt.Errorf("%w: stream ended before the first frame", ErrUnsupported)
	}
	return fmt.Errorf("stream-capture: %w", err)
}

type gstSource struct {
	width, height int
	name          string

	elements *gstpipe.Elements
	slot     *mailbox.Mailbox[*Frame]
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	ready     chan struct{}
	readyOnce sync.Once
	busDone   chan error

	frameCount atomic.Uint64
	bytesRead  atomic.Uint64
	released   atomic.Uint64
	errors     gstpipe.ErrorCounters
	started    time.Time
	closed     atomic.Bool
}

func (s *gstSource) deliver(sample gstpipe.Sample) {
	s.slot.Put(&Frame{
		Seq:          sample.Seq,
		Timestamp:    sample.Timestamp,
		Width:        s.width,
		Height:       s.height,
		Format:       FormatRGB,
		Data:         sample.Data,
		SourceStream: s.name,
		TraceID:      uuid.New().String(),
		OnRelease:    func() { s.released.Add(1) },
	})
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *gstSource) monitor(ctx context.Context) {
	defer s.wg.Done()

	err := gstpipe.MonitorBus(ctx, s.elements, &s.errors, &s.frameCount)
	if ctx.Err() != nil {
		return
	}
	// nil means EOS, which the mailbox reports as io.EOF
	s.slot.Close(err)
	s.busDone <- err
}

func (s *gstSource) Next(ctx context.Context) (*Frame, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}
	return s.slot.Take(ctx)
}

func (s *gstSource) Width() int  { return s.width }
func (s *gstSource) Height() int { return s.height }

// Stats returns current stream statistics
func (s *gstSource) Stats() StreamStats {
	frames := s.frameCount.Load()
	var fps float64
	if uptime := time.Since(s.started).Seconds(); uptime > 0 {
		fps = float64(frames) / uptime
	}
	return StreamStats{
		FrameCount:       frames,
		FramesDropped:    s.slot.Stats().TotalDrops,
		FramesReleased:   s.released.Load(),
		FPSReal:          fps,
		SourceStream:     s.name,
		Resolution:       fmt.Sprintf("%dx%d", s.width, s.height),
		BytesRead:        s.bytesRead.Load(),
		ErrorsDevice:     s.errors.Device.Load(),
		ErrorsPermission: s.errors.Permission.Load(),
		ErrorsCodec:      s.errors.Codec.Load(),
		ErrorsUnknown:    s.errors.Unknown.Load(),
	}
}

// Close stops the pipeline and releases any undelivered frame. Idempotent.
func (s *gstSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	slog.Info("stream-capture: stopping gstreamer source", "source", s.name)

	s.cancel()

	// Wait for the bus monitor with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		slog.Warn("stream-capture: stop timeout exceeded, bus monitor may still be running")
	}

	err := gstpipe.Destroy(s.elements)
	if err != nil {
		slog.Error("stream-capture: failed to destroy pipeline", "error", err)
	}

	s.slot.Close(ErrSourceClosed)
	s.slot.Drain()

	stats := s.Stats()
	slog.Info("stream-capture: gstreamer source stopped",
		"frames_captured", stats.FrameCount,
		"frames_dropped", stats.FramesDropped,
		"uptime", time.Since(s.started),
	)
	return err
}
