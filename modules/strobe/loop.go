package strobe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
)

// Encoder turns an accepted frame into an encoded still.
// streamcapture.JPEGEncoder satisfies it.
type Encoder interface {
	Encode(frame *streamcapture.Frame, width, height int) (streamcapture.Still, error)
}

// LoopResult summarises one orchestration loop
type LoopResult struct {
	FramesSeen         int  `json:"frames_seen"`
	Accepted           int  `json:"accepted"`
	Discarded          int  `json:"discarded"`
	ProcessingFailures int  `json:"processing_failures"`
	BudgetReached      bool `json:"budget_reached"`
	EndOfStream        bool `json:"end_of_stream"`
}

// Loop pairs arriving frames with pending phase changes.
type Loop struct {
	Source  streamcapture.Source
	Store   *Store
	Encoder Encoder

	// OnBudget is called once, as soon as the last capture is accepted
	OnBudget func()

	// NotBefore discards frames timestamped earlier, e.g. frames buffered
	// before the run switched the light. Zero accepts every frame.
	NotBefore time.Time

	// NewID returns ImageRef IDs; defaults to ULIDs
	NewID func() string
}

// Run reads frames until the budget is reached, the stream ends or ctx is done.
//
// This method:
//  1. Reads the next frame from the source
//  2. Accepts it iff a phase change is pending and the budget is not full
//  3. Encodes accepted frames and dispatches exactly one FrameCaptured each
//  4. Releases every frame before the next read, accepted or not
//
// End of stream returns a nil error. A cancelled ctx returns ctx.Err().
// A read failure returns a *RunError of kind ErrKindStreamFailure.
// Encoding failures are counted in ProcessingFailures and do not stop the loop.
func (l *Loop) Run(ctx context.Context) (LoopResult, error) {
	var res LoopResult
	newID := l.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}

	for {
		if st := l.Store.State(); Complete(len(st.Captures), st.TargetLength) {
			res.BudgetReached = true
			l.budget()
			return res, nil
		}

		frame, err := l.Source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				res.EndOfStream = true
				slog.Info("strobe: stream ended", "frames_seen", res.FramesSeen, "accepted", res.Accepted)
				return res, nil
			case ctx.Err() != nil:
				return res, ctx.Err()
			default:
				return res, &RunError{Kind: ErrKindStreamFailure, Err: err}
			}
		}
		res.FramesSeen++

		if l.handle(frame, newID, &res) {
			res.BudgetReached = true
			l.budget()
			return res, nil
		}
	}
}

// handle processes one frame and reports whether the budget is now full.
func (l *Loop) handle(frame *streamcapture.Frame, newID func() string, res *LoopResult) bool {
	defer frame.Release()

	if !l.NotBefore.IsZero() && !frame.Timestamp.IsZero() && frame.Timestamp.Before(l.NotBefore) {
		res.Discarded++
		return false
	}

	st := l.Store.State()
	if !ShouldAccept(st.PendingCaptures, len(st.Captures), st.TargetLength) {
		res.Discarded++
		return false
	}

	still, err := l.Encoder.Encode(frame, l.Source.Width(), l.Source.Height())
	if err != nil {
		res.ProcessingFailures++
		slog.Warn("strobe: frame encoding failed, skipping frame",
			"kind", ErrKindProcessingFailure.String(),
			"frame_seq", frame.Seq,
			"trace_id", frame.TraceID,
			"error", err,
		)
		return false
	}

	capturedAt := frame.Timestamp
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	next := l.Store.Dispatch(FrameCaptured{Image: ImageRef{
		ID:         newID(),
		Still:      still,
		FrameSeq:   frame.Seq,
		CapturedAt: capturedAt,
		PhaseIndex: st.PhaseIndex,
		Phase:      st.CurrentPhase,
	}})
	res.Accepted++

	slog.Debug("strobe: frame captured",
		"frame_seq", frame.Seq,
		"captured", len(next.Captures),
		"target", next.TargetLength,
		"pending", next.PendingCaptures,
	)
	return next.CaptureComplete
}

func (l *Loop) budget() {
	if l.OnBudget != nil {
		l.OnBudget()
	}
}
