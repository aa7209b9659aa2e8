package streamcapture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-strobe/modules/stream-capture/internal/mailbox"
)

// SyntheticProvider generates solid RGB frames at a fixed rate.
//
// It needs no hardware, so Probe always succeeds. When Lit is set, frame
// brightness follows it, which makes captured stills visibly alternate with
// the illumination sequence.
type SyntheticProvider struct {
	Width  int
	Height int
	FPS    int
	// Name is reported as Frame.SourceStream
	Name string
	// MaxFrames ends the stream with io.EOF after that many frames (0 = unbounded)
	MaxFrames int
	// Lit reports whether the light is currently in phase A
	Lit func() bool
}

// Probe implements Provider
func (p *SyntheticProvider) Probe() error {
	if p.FPS <= 0 || p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: synthetic source needs positive size and fps (got %dx%d@%d)",
			ErrUnsupported, p.Width, p.Height, p.FPS)
	}
	return nil
}

// Acquire implements Provider
func (p *SyntheticProvider) Acquire(ctx context.Context) (Source, error) {
	if err := p.Probe(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = "synthetic"
	}

	genCtx, cancel := context.WithCancel(context.Background())
	s := &syntheticSource{
		cfg:    *p,
		name:   name,
		cancel: cancel,
		slot:   mailbox.New(func(f *Frame) { f.Release() }),
	}

	slog.Info("stream-capture: synthetic source starting",
		"width", p.Width,
		"height", p.Height,
		"fps", p.FPS,
		"source", name,
	)

	s.wg.Add(1)
	go s.generate(genCtx)

	return s, nil
}

type syntheticSource struct {
	cfg  SyntheticProvider
	name string

	slot   *mailbox.Mailbox[*Frame]
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq      atomic.Uint64
	emitted  atomic.Uint64
	released atomic.Uint64
	closed   atomic.Bool
}

func (s *syntheticSource) Next(ctx context.Context) (*Frame, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}
	return s.slot.Take(ctx)
}

func (s *syntheticSource) Width() int  { return s.cfg.Width }
func (s *syntheticSource) Height() int { return s.cfg.Height }

// Close stops the generator and releases any undelivered frame. Idempotent.
func (s *syntheticSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.slot.Close(ErrSourceClosed)
	s.slot.Drain()

	slog.Info("stream-capture: synthetic source stopped",
		"frames_emitted", s.emitted.Load(),
		"frames_released", s.released.Load(),
		"mailbox_drops", s.slot.Stats().TotalDrops,
	)
	return nil
}

func (s *syntheticSource) generate(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.slot.Put(s.createFrame())
			n := s.emitted.Add(1)
			if s.cfg.MaxFrames > 0 && n >= uint64(s.cfg.MaxFrames) {
				s.slot.Close(nil)
				return
			}
		}
	}
}

func (s *syntheticSource) createFrame() *Frame {
	level := byte(0x20)
	if s.cfg.Lit != nil && s.cfg.Lit() {
		level = 0xe0
	}

	data := make([]byte, s.cfg.Width*s.cfg.Height*3)
	for i := range data {
		data[i] = level
	}

	return &Frame{
		Seq:          s.seq.Add(1) - 1,
		Timestamp:    time.Now(),
		Width:        s.cfg.Width,
		Height:       s.cfg.Height,
		Format:       FormatRGB,
		Data:         data,
		SourceStream: s.name,
		TraceID:      uuid.New().String(),
		OnRelease:    func() { s.released.Add(1) },
	}
}
