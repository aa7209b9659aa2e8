package strobe

import (
	"fmt"

	"github.com/e7canasta/orion-strobe/internal/pattern"
)

const (
	statusPreparing = "Preparing capture…"
	statusStreaming = "Streaming"
	statusError     = "Error"
	statusComplete  = "Capture complete"
	statusReady     = "Ready to capture"
)

// Reduce returns the state that follows s after ev.
//
// Reduce is pure: it never mutates s (including its Captures slice) and has
// no side effects. Unknown events return s unchanged.
func Reduce(s State, ev Event) State {
	next, _ := apply(s, ev)
	return next
}

// apply reports whether ev was recognised, for exhaustiveness checks.
func apply(s State, ev Event) (State, bool) {
	switch e := ev.(type) {
	case PatternChanged:
		s.PatternInput = e.Text
		if !s.IsRunning {
			s.StatusMessage = patternStatus(pattern.Remaining(e.Text, s.TargetLength))
		}
		return s, true

	case BeginRun:
		s.RunID = e.RunID
		s.IsRunning = true
		s.CurrentPhase = PhaseB
		s.PhaseIndex = -1
		s.PendingCaptures = 0
		s.Captures = []ImageRef{}
		s.CaptureComplete = false
		s.SelectedIndex = nil
		s.StatusMessage = statusPreparing
		s.ErrorMessage = ""
		return s, true

	case PhaseChanged:
		s.PendingCaptures = OnPhase(s.PendingCaptures, len(s.Captures), s.TargetLength)
		s.CurrentPhase = e.Phase
		s.PhaseIndex = e.Index
		s.StatusMessage = progressStatus(s)
		return s, true

	case FrameCaptured:
		// A full budget or a finished run accepts nothing more.
		if !s.IsRunning || len(s.Captures) >= s.TargetLength {
			return s, true
		}
		captures := make([]ImageRef, len(s.Captures), len(s.Captures)+1)
		copy(captures, s.Captures)
		s.Captures = append(captures, e.Image)

		var captured int
		s.PendingCaptures, captured = OnCapture(s.PendingCaptures, len(s.Captures)-1)
		s.PendingCaptures = clamp(s.PendingCaptures, 0, s.TargetLength-captured)
		s.CaptureComplete = Complete(captured, s.TargetLength)
		if s.SelectedIndex == nil {
			s.SelectedIndex = intPtr(0)
		}
		if s.CaptureComplete {
			s.StatusMessage = statusComplete
		} else {
			s.StatusMessage = progressStatus(s)
		}
		return s, true

	case StreamStarted:
		s.ErrorMessage = ""
		s.StatusMessage = statusStreaming
		return s, true

	case Error:
		s.ErrorMessage = e.Message
		s.StatusMessage = e.Status
		if s.StatusMessage == "" {
			s.StatusMessage = statusError
		}
		s.IsRunning = false
		return s, true

	case RunComplete:
		s.IsRunning = false
		s.CurrentPhase = PhaseB
		s.PhaseIndex = -1
		return s, true

	case SelectCapture:
		s.SelectedIndex = intPtr(e.Index)
		return s, true

	default:
		return s, false
	}
}

func patternStatus(remaining int) string {
	switch {
	case remaining == 0:
		return statusReady
	case remaining == 1:
		return "1 character remaining"
	case remaining > 0:
		return fmt.Sprintf("%d characters remaining", remaining)
	case remaining == -1:
		return "1 character too many"
	default:
		return fmt.Sprintf("%d characters too many", -remaining)
	}
}

func progressStatus(s State) string {
	return fmt.Sprintf("Phase %d/%d (%s), captured %d/%d",
		s.PhaseIndex+1, s.TargetLength, phaseLetter(s.CurrentPhase),
		len(s.Captures), s.TargetLength)
}

func phaseLetter(phase bool) string {
	if phase {
		return "A"
	}
	return "B"
}

func intPtr(v int) *int {
	return &v
}
