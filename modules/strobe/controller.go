package strobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/e7canasta/orion-strobe/modules/illumination"
	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
)

const (
	// DefaultPeriod is the time each phase is held
	DefaultPeriod = 250 * time.Millisecond

	// restTimeout bounds returning the light to rest during cleanup
	restTimeout = 2 * time.Second
)

// Options configures a Controller
type Options struct {
	// Provider supplies the video source (required)
	Provider streamcapture.Provider
	// Encoder turns accepted frames into stills (required)
	Encoder Encoder
	// Illuminator is driven on every phase change; nil drives nothing
	Illuminator illumination.Illuminator
	// Publisher receives every state snapshot; may be nil
	Publisher Publisher

	// TargetLength is the phase count per run (default DefaultTargetLength)
	TargetLength int
	// Period is the time each phase is held (default DefaultPeriod)
	Period time.Duration
	// Warmup measures the frame cadence before the first phase; zero skips it
	Warmup time.Duration
}

// Controller runs capture sessions against a single held video source.
//
// The source is acquired on the first run and kept between runs. A stream
// failure drops it so the next run acquires a fresh one.
type Controller struct {
	opts  Options
	store *Store

	acquire singleflight.Group

	mu      sync.Mutex
	source  streamcapture.Source
	running bool
	closed  bool

	base       context.Context
	cancelBase context.CancelFunc
	bg         sync.WaitGroup
}

// NewController validates opts and returns a Controller at rest.
func NewController(opts Options) (*Controller, error) {
	if opts.Provider == nil {
		return nil, errors.New("strobe: provider is required")
	}
	if opts.Encoder == nil {
		return nil, errors.New("strobe: encoder is required")
	}
	if opts.TargetLength <= 0 {
		opts.TargetLength = DefaultTargetLength
	}
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}

	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:       opts,
		store:      NewStore(NewState(opts.TargetLength), opts.Publisher),
		base:       base,
		cancelBase: cancel,
	}, nil
}

// State returns the current snapshot
func (c *Controller) State() State {
	return c.store.State()
}

// TargetLength returns the phase count per run
func (c *Controller) TargetLength() int {
	return c.opts.TargetLength
}

// SetPattern records the user's pattern text
func (c *Controller) SetPattern(text string) State {
	return c.store.Dispatch(PatternChanged{Text: text})
}

// Select selects the capture at index.
func (c *Controller) Select(index int) (State, error) {
	st := c.store.State()
	if index < 0 || index >= len(st.Captures) {
		return st, fmt.Errorf("%w: index %d, %d captures", ErrInvalidSelection, index, len(st.Captures))
	}
	return c.store.Dispatch(SelectCapture{Index: index}), nil
}

// Prepare acquires the video source ahead of a run. Concurrent callers
// share one acquisition.
func (c *Controller) Prepare(ctx context.Context) error {
	if err := c.opts.Provider.Probe(); err != nil {
		return &RunError{Kind: ClassifyAcquireError(err), Err: err}
	}
	if _, err := c.acquireSource(ctx); err != nil {
		return &RunError{Kind: ClassifyAcquireError(err), Err: err}
	}
	return nil
}

// Run executes one capture run and blocks until it ends.
//
// The returned error is nil when the budget is reached or the stream ends,
// ctx.Err() when ctx is cancelled, and a *RunError for probe, acquisition
// and stream failures. The run always finishes with a RunComplete event.
func (c *Controller) Run(ctx context.Context, sequence []bool) (LoopResult, error) {
	if err := c.claim(sequence); err != nil {
		return LoopResult{}, err
	}
	defer c.release()

	ctx, cancel := c.withBase(ctx)
	defer cancel()
	return c.run(ctx, sequence)
}

// Start executes a capture run in the background.
// It returns ErrRunInProgress if a run is already active.
func (c *Controller) Start(ctx context.Context, sequence []bool) error {
	if err := c.claim(sequence); err != nil {
		return err
	}

	// The run outlives the request that started it. Close ends it early.
	runCtx, cancel := c.withBase(context.WithoutCancel(ctx))
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		defer c.release()
		defer cancel()
		if _, err := c.run(runCtx, sequence); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("strobe: background run failed", "error", err)
		}
	}()
	return nil
}

// Running reports whether a run is active
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Close cancels any active run, waits for it and releases the held source.
// Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancelBase()
	c.bg.Wait()

	c.mu.Lock()
	src := c.source
	c.source = nil
	c.mu.Unlock()

	if src != nil {
		slog.Info("strobe: releasing video source")
		return src.Close()
	}
	return nil
}

func (c *Controller) claim(sequence []bool) error {
	if len(sequence) != c.opts.TargetLength {
		return fmt.Errorf("%w: got %d phases, want %d", ErrInvalidSequence, len(sequence), c.opts.TargetLength)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.running {
		return ErrRunInProgress
	}
	c.running = true
	return nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// withBase derives a context that is also cancelled by Close.
func (c *Controller) withBase(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// run drives one session. The caller has claimed the controller.
//
// This method:
//  1. Resets the run state (BeginRun)
//  2. Probes the capability and acquires (or reuses) the source
//  3. Optionally measures the frame cadence
//  4. Registers the one-shot cleanup on completion, failure and ctx teardown
//  5. Starts the phase sequencer, each phase driving the light first
//  6. Runs the orchestration loop until the budget is reached
func (c *Controller) run(ctx context.Context, sequence []bool) (LoopResult, error) {
	runID := ulid.Make().String()
	c.store.Dispatch(BeginRun{RunID: runID})
	slog.Info("strobe: run starting",
		"run_id", runID,
		"target", c.opts.TargetLength,
		"period", c.opts.Period,
	)

	if err := c.opts.Provider.Probe(); err != nil {
		return LoopResult{}, c.fail(&RunError{Kind: ClassifyAcquireError(err), Err: err})
	}

	src, err := c.acquireSource(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.store.Dispatch(RunComplete{})
			return LoopResult{}, ctx.Err()
		}
		return LoopResult{}, c.fail(&RunError{Kind: ClassifyAcquireError(err), Err: err})
	}
	c.store.Dispatch(StreamStarted{})

	if c.opts.Warmup > 0 {
		if err := c.warmup(ctx, src); err != nil {
			if ctx.Err() != nil {
				c.store.Dispatch(RunComplete{})
				return LoopResult{}, ctx.Err()
			}
			c.dropSource(src)
			return LoopResult{}, c.fail(&RunError{Kind: ErrKindStreamFailure, Err: err})
		}
	}

	readCtx, cancelRead := context.WithCancel(ctx)
	h := &runHandles{}
	cleanup := Once(func() {
		cancelRead()
		h.close()
		c.rest()
		c.store.Dispatch(RunComplete{})
		slog.Info("strobe: run finished", "run_id", runID, "captured", len(c.store.State().Captures))
	})
	h.setHook(context.AfterFunc(ctx, cleanup))
	defer cleanup()

	notBefore := time.Now()
	h.setSequencer(StartSequencer(sequence, func(index int, phase bool) {
		if readCtx.Err() != nil {
			return
		}
		if err := c.illuminate(readCtx, index, phase); err != nil {
			slog.Warn("strobe: illumination failed", "index", index, "phase", illumination.PhaseName(phase), "error", err)
		}
		c.store.Dispatch(PhaseChanged{Index: index, Phase: phase})
	}, c.opts.Period))

	loop := &Loop{
		Source:    src,
		Store:     c.store,
		Encoder:   c.opts.Encoder,
		OnBudget:  h.cancelSequencer,
		NotBefore: notBefore,
	}
	res, err := loop.Run(readCtx)

	switch {
	case err != nil && ctx.Err() != nil:
		return res, ctx.Err()
	case err != nil:
		slog.Error("strobe: stream failed", "run_id", runID, "error", err)
		h.cancelSequencer()
		c.dropSource(src)
		c.store.Dispatch(Error{Message: err.Error(), Status: KindOf(err).Status()})
		return res, err
	case res.EndOfStream:
		c.dropSource(src)
	}

	slog.Info("strobe: run complete",
		"run_id", runID,
		"frames_seen", res.FramesSeen,
		"accepted", res.Accepted,
		"discarded", res.Discarded,
		"processing_failures", res.ProcessingFailures,
	)
	return res, nil
}

// fail dispatches the error and ends the run.
func (c *Controller) fail(err *RunError) error {
	slog.Error("strobe: run failed", "kind", err.Kind.String(), "error", err.Err)
	c.store.Dispatch(Error{Message: err.Error(), Status: err.Kind.Status()})
	c.store.Dispatch(RunComplete{})
	return err
}

func (c *Controller) acquireSource(ctx context.Context) (streamcapture.Source, error) {
	if src := c.heldSource(); src != nil {
		return src, nil
	}

	v, err, shared := c.acquire.Do("source", func() (any, error) {
		if src := c.heldSource(); src != nil {
			return src, nil
		}
		slog.Info("strobe: acquiring video source")
		src, err := c.opts.Provider.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			src.Close()
			return nil, ErrClosed
		}
		c.source = src
		slog.Info("strobe: video source acquired", "width", src.Width(), "height", src.Height())
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("strobe: joined in-flight acquisition")
	}
	return v.(streamcapture.Source), nil
}

func (c *Controller) heldSource() streamcapture.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// dropSource releases src if it is still the held source.
func (c *Controller) dropSource(src streamcapture.Source) {
	c.mu.Lock()
	if c.source == src {
		c.source = nil
	}
	c.mu.Unlock()

	if err := src.Close(); err != nil {
		slog.Warn("strobe: closing video source failed", "error", err)
	}
}

func (c *Controller) warmup(ctx context.Context, src streamcapture.Source) error {
	stats, err := streamcapture.Warmup(ctx, src, c.opts.Warmup)
	if err != nil {
		return err
	}
	if fpp := streamcapture.FramesPerPhase(stats, c.opts.Period); fpp < 1 {
		slog.Warn("strobe: frame rate slower than phase cadence, some phases will see no frame",
			"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
			"period", c.opts.Period,
			"frames_per_phase", fmt.Sprintf("%.2f", fpp),
		)
	}
	return nil
}

func (c *Controller) illuminate(ctx context.Context, index int, phase bool) error {
	if c.opts.Illuminator == nil {
		return nil
	}
	return c.opts.Illuminator.SetPhase(ctx, index, phase)
}

// rest returns the light to phase B.
func (c *Controller) rest() {
	ctx, cancel := context.WithTimeout(context.Background(), restTimeout)
	defer cancel()
	if err := c.illuminate(ctx, -1, PhaseB); err != nil {
		slog.Warn("strobe: returning light to rest failed", "error", err)
	}
}

// runHandles holds the cancellation handles registered during a run. Once
// closed, handles registered later are cancelled immediately.
type runHandles struct {
	mu       sync.Mutex
	closed   bool
	sequence CancelFunc
	hook     func() bool
}

func (h *runHandles) setSequencer(cancel CancelFunc) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return
	}
	h.sequence = cancel
	h.mu.Unlock()
}

func (h *runHandles) setHook(stop func() bool) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		stop()
		return
	}
	h.hook = stop
	h.mu.Unlock()
}

func (h *runHandles) cancelSequencer() {
	h.mu.Lock()
	cancel := h.sequence
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// close cancels the sequencer and deregisters the teardown hook.
func (h *runHandles) close() {
	h.mu.Lock()
	h.closed = true
	cancel, stop := h.sequence, h.hook
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stop != nil {
		stop()
	}
}
