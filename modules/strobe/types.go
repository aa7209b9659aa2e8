package strobe

import (
	"time"

	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
	"github.com/e7canasta/orion-strobe/internal/pattern"
)

// DefaultTargetLength is the number of phases (and captures) per run
const DefaultTargetLength = 20

const (
	// PhaseA is the illuminated phase
	PhaseA = true
	// PhaseB is the dark phase, also the rest state of the light
	PhaseB = false
)

// ImageRef is an encoded still accepted during a run.
//
// PhaseIndex and Phase record the most recent phase at the moment the frame
// was accepted. They are advisory: frames are not re-paired with phases.
type ImageRef struct {
	ID string `json:"id"`
	streamcapture.Still
	FrameSeq   uint64    `json:"frame_seq"`
	CapturedAt time.Time `json:"captured_at"`
	PhaseIndex int       `json:"phase_index"`
	Phase      bool      `json:"phase"`
}

// State is the complete, immutable snapshot of a capture run.
//
// A State is only ever replaced by Reduce. Captures is never mutated in
// place, so snapshots handed to subscribers can be read without locking.
type State struct {
	TargetLength int    `json:"target_length"`
	RunID        string `json:"run_id,omitempty"`

	IsRunning       bool `json:"is_running"`
	CurrentPhase    bool `json:"current_phase"`
	PhaseIndex      int  `json:"phase_index"` // -1 at rest
	PendingCaptures int  `json:"pending_captures"`

	Captures        []ImageRef `json:"captures"`
	CaptureComplete bool       `json:"capture_complete"`
	SelectedIndex   *int       `json:"selected_index"`

	StatusMessage string `json:"status_message"`
	ErrorMessage  string `json:"error_message,omitempty"`
	PatternInput  string `json:"pattern_input"`
}

// NewState returns the rest state for a process with the given target length.
// A non-positive target falls back to DefaultTargetLength.
func NewState(target int) State {
	if target <= 0 {
		target = DefaultTargetLength
	}
	return State{
		TargetLength:  target,
		CurrentPhase:  PhaseB,
		PhaseIndex:    -1,
		Captures:      []ImageRef{},
		StatusMessage: patternStatus(pattern.Remaining("", target)),
	}
}

// Captured returns the number of captures in the current run
func (s State) Captured() int {
	return len(s.Captures)
}

// Selected returns the selected capture, if any
func (s State) Selected() (ImageRef, bool) {
	if s.SelectedIndex == nil {
		return ImageRef{}, false
	}
	i := *s.SelectedIndex
	if i < 0 || i >= len(s.Captures) {
		return ImageRef{}, false
	}
	return s.Captures[i], true
}
