package strobe

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
)

// fakeSource serves frames pushed into its channel. Once the channel is
// closed, Next returns endErr (io.EOF when nil).
type fakeSource struct {
	frames chan *streamcapture.Frame
	endErr error

	seq      atomic.Uint64
	issued   atomic.Int64
	released atomic.Int64
	closed   atomic.Int64
	once     sync.Once
}

func newFakeSource(buffer int) *fakeSource {
	return &fakeSource{frames: make(chan *streamcapture.Frame, buffer)}
}

func (s *fakeSource) push() {
	s.frames <- s.frame()
}

func (s *fakeSource) frame() *streamcapture.Frame {
	s.issued.Add(1)
	return &streamcapture.Frame{
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
		Format:    streamcapture.FormatRGB,
		Data:      make([]byte, 2*2*3),
		OnRelease: func() { s.released.Add(1) },
	}
}

func (s *fakeSource) end() {
	s.once.Do(func() { close(s.frames) })
}

func (s *fakeSource) Next(ctx context.Context) (*streamcapture.Frame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			if s.endErr != nil {
				return nil, s.endErr
			}
			return nil, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSource) Width() int  { return 2 }
func (s *fakeSource) Height() int { return 2 }

func (s *fakeSource) Close() error {
	s.closed.Add(1)
	return nil
}

// fakeProvider hands out sources from newSource.
type fakeProvider struct {
	probeErr   error
	acquireErr error
	newSource  func() *fakeSource
	gate       chan struct{}

	acquired atomic.Int64
	mu       sync.Mutex
	sources  []*fakeSource
}

func (p *fakeProvider) Probe() error { return p.probeErr }

func (p *fakeProvider) Acquire(ctx context.Context) (streamcapture.Source, error) {
	p.acquired.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	src := p.newSource()
	p.mu.Lock()
	p.sources = append(p.sources, src)
	p.mu.Unlock()
	return src, nil
}

func (p *fakeProvider) last() *fakeSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sources) == 0 {
		return nil
	}
	return p.sources[len(p.sources)-1]
}

// fakeEncoder fails on the frame sequence numbers listed in failSeq.
type fakeEncoder struct {
	failSeq map[uint64]bool
	calls   atomic.Int64
}

func (e *fakeEncoder) Encode(frame *streamcapture.Frame, width, height int) (streamcapture.Still, error) {
	e.calls.Add(1)
	if frame.Released() {
		return streamcapture.Still{}, errors.New("frame already released")
	}
	if e.failSeq[frame.Seq] {
		return streamcapture.Still{}, errors.New("encode failed")
	}
	return streamcapture.Still{MIMEType: "image/jpeg", Width: width, Height: height, Data: []byte{0xFF, 0xD8}}, nil
}

// fakeIlluminator records every command.
type fakeIlluminator struct {
	mu       sync.Mutex
	commands []phaseCommand
}

type phaseCommand struct {
	Index int
	Phase bool
}

func (f *fakeIlluminator) SetPhase(ctx context.Context, index int, phase bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, phaseCommand{index, phase})
	return nil
}

func (f *fakeIlluminator) snapshot() []phaseCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]phaseCommand(nil), f.commands...)
}

func (f *fakeIlluminator) rests() int {
	n := 0
	for _, c := range f.snapshot() {
		if c.Index == -1 {
			n++
		}
	}
	return n
}

// recorder records every published state and can feed one frame per new
// phase into a source, giving a 1:1 frame-to-phase cadence.
type recorder struct {
	mu        sync.Mutex
	states    []State
	feed      func() *fakeSource
	feedLimit int
	fed       int
	lastPhase int
}

func newRecorder() *recorder {
	return &recorder{lastPhase: -1}
}

func (r *recorder) Publish(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)

	if r.feed == nil || !s.IsRunning || s.PhaseIndex < 0 || s.PhaseIndex == r.lastPhase {
		return
	}
	r.lastPhase = s.PhaseIndex
	src := r.feed()
	if src == nil {
		return
	}
	if r.feedLimit > 0 && r.fed >= r.feedLimit {
		return
	}
	src.push()
	r.fed++
	if r.feedLimit > 0 && r.fed == r.feedLimit {
		src.end()
	}
}

func (r *recorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) phaseEventsAfter(i int) int {
	states := r.snapshot()
	n := 0
	for j := i + 1; j < len(states); j++ {
		if states[j].PhaseIndex != states[j-1].PhaseIndex && states[j].PhaseIndex >= 0 {
			n++
		}
	}
	return n
}
