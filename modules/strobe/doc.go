/*
Package strobe captures one frame per illumination phase from a live video source.

A caller supplies a fixed-length sequence of phases (true = phase A, lit;
false = phase B, dark). The Controller switches the light through the
sequence at a fixed period and, for every phase change, keeps the first
frame that arrives afterwards.

# Architecture

	Controller ── Run(ctx, sequence)
	   │
	   ├─ StartSequencer ──(period)──▶ Illuminator.SetPhase ─▶ Store.Dispatch(PhaseChanged)
	   │
	   └─ Loop ◀── Source.Next ── frame ─▶ accept? ─▶ Encoder ─▶ Store.Dispatch(FrameCaptured)
	                                          │
	                                          └─ release immediately

	Store ── Reduce(State, Event) ──▶ Publisher (statebus)

All state lives in a single State value owned by the Store. Reduce is the
only way to produce a new State; every snapshot is published to the
Publisher in dispatch order.

# Capture accounting

Each phase change adds one pending capture, bounded by the captures still
missing from the budget. Each accepted frame consumes one. A frame is
accepted only while a capture is pending and the budget is not full, so a
run produces at most TargetLength captures. Captures record the most recent
phase at acceptance time; they are not re-paired with the phase that
caused them.

# Cleanup

Every run ends through one idempotent cleanup: the sequencer is cancelled,
the pending frame read is abandoned, the light returns to phase B and
RunComplete is dispatched. Completion, failures and cancellation of the
run context all reach it.

# Usage

	ctrl, err := strobe.NewController(strobe.Options{
	    Provider:    &streamcapture.GStreamerProvider{Device: "/dev/video0"},
	    Encoder:     streamcapture.JPEGEncoder{},
	    Illuminator: light,
	    Publisher:   bus,
	})
	if err != nil {
	    return err
	}
	defer ctrl.Close()

	res, err := ctrl.Run(ctx, sequence)
*/
package strobe
