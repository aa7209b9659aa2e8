//go:build linux

package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blackjack/webcam"
	"github.com/google/uuid"

	"github.com/e7canasta/orion-strobe/modules/stream-capture/internal/mailbox"
)

// fourcc 'MJPG'
const pixelFormatMJPEG webcam.PixelFormat = 0x47504A4D

// v4l2BufferCount leaves room for one frame held by the consumer, one in the
// mailbox and the rest queued in the driver
const v4l2BufferCount = 4

// V4L2Provider streams MJPEG frames straight from a V4L2 device.
//
// Frames borrow the driver's mmap buffers: Frame.Release requeues the buffer,
// so a frame held too long stalls the device.
type V4L2Provider struct {
	Device string
	Width  int
	Height int
}

// Probe implements Provider
func (p *V4L2Provider) Probe() error {
	info, err := os.Stat(p.Device)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return fmt.Errorf("%w: %s is not a character device", ErrUnsupported, p.Device)
	}
	return nil
}

// Acquire implements Provider.
//
// This method:
//  1. Opens the device (EACCES/EPERM → ErrPermissionDenied)
//  2. Negotiates MJPEG at the requested size (no MJPEG → ErrUnsupported)
//  3. Starts streaming and the reader goroutine
func (p *V4L2Provider) Acquire(ctx context.Context) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cam, err := webcam.Open(p.Device)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnsupported, p.Device, err)
	}

	if _, ok := cam.GetSupportedFormats()[pixelFormatMJPEG]; !ok {
		cam.Close()
		return nil, fmt.Errorf("%w: %s does not offer MJPEG", ErrUnsupported, p.Device)
	}

	_, w, h, err := cam.SetImageFormat(pixelFormatMJPEG, uint32(p.Width), uint32(p.Height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: set format on %s: %v", ErrUnsupported, p.Device, err)
	}
	if err := cam.SetBufferCount(v4l2BufferCount); err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: set buffer count: %v", ErrUnsupported, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: start streaming: %v", ErrUnsupported, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &v4l2Source{
		cam:     cam,
		device:  p.Device,
		width:   int(w),
		height:  int(h),
		cancel:  cancel,
		started: time.Now(),
	}
	s.slot = mailbox.New(func(f *Frame) { f.Release() })

	slog.Info("stream-capture: v4l2 source streaming",
		"device", p.Device,
		"resolution", fmt.Sprintf("%dx%d", w, h),
		"format", "mjpeg",
	)

	s.wg.Add(1)
	go s.read(readCtx)

	return s, nil
}

type v4l2Source struct {
	cam           *webcam.Webcam
	device        string
	width, height int

	// camMu serializes dequeue/requeue ioctls against StopStreaming
	camMu sync.Mutex
	slot  *mailbox.Mailbox[*Frame]

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool
	stopped bool // guarded by camMu

	seq      atomic.Uint64
	bytes    atomic.Uint64
	released atomic.Uint64
	started  time.Time
}

func (s *v4l2Source) read(ctx context.Context) {
	defer s.wg.Done()

	for ctx.Err() == nil {
		// WaitForFrame takes whole seconds; 1s keeps Close responsive
		err := s.cam.WaitForFrame(1)
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			continue
		}
		if err != nil {
			s.slot.Close(fmt.Errorf("stream-capture: wait for frame on %s: %w", s.device, err))
			return
		}

		s.camMu.Lock()
		if s.stopped {
			s.camMu.Unlock()
			return
		}
		data, index, err := s.cam.GetFrame()
		s.camMu.Unlock()
		if err != nil {
			s.slot.Close(fmt.Errorf("stream-capture: read frame on %s: %w", s.device, err))
			return
		}
		if len(data) == 0 {
			s.requeue(index)
			continue
		}

		s.bytes.Add(uint64(len(data)))
		s.slot.Put(&Frame{
			Seq:          s.seq.Add(1),
			Timestamp:    time.Now(),
			Width:        s.width,
			Height:       s.height,
			Format:       FormatJPEG,
			Data:         data,
			SourceStream: s.device,
			TraceID:      uuid.New().String(),
			OnRelease:    func() { s.requeue(index) },
		})
	}
}

func (s *v4l2Source) requeue(index uint32) {
	s.released.Add(1)
	s.camMu.Lock()
	defer s.camMu.Unlock()
	if s.stopped {
		return
	}
	if err := s.cam.ReleaseFrame(index); err != nil {
		slog.Warn("stream-capture: failed to requeue v4l2 buffer", "device", s.device, "index", index, "error", err)
	}
}

func (s *v4l2Source) Next(ctx context.Context) (*Frame, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}
	return s.slot.Take(ctx)
}

func (s *v4l2Source) Width() int  { return s.width }
func (s *v4l2Source) Height() int { return s.height }

// Close stops streaming and closes the device. Idempotent.
func (s *v4l2Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.cancel()
	s.wg.Wait()

	s.slot.Close(ErrSourceClosed)
	s.slot.Drain()

	s.camMu.Lock()
	s.stopped = true
	stopErr := s.cam.StopStreaming()
	closeErr := s.cam.Close()
	s.camMu.Unlock()

	slog.Info("stream-capture: v4l2 source stopped",
		"device", s.device,
		"frames_captured", s.seq.Load(),
		"frames_dropped", s.slot.Stats().TotalDrops,
		"uptime", time.Since(s.started),
	)

	return errors.Join(stopErr, closeErr)
}
