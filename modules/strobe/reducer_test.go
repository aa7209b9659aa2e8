package strobe

import (
	"strings"
	"testing"
)

// sampleEvent returns one instance of every event kind.
func sampleEvent(k EventKind) (Event, bool) {
	switch k {
	case EventPatternChanged:
		return PatternChanged{Text: "0101"}, true
	case EventBeginRun:
		return BeginRun{RunID: "run"}, true
	case EventPhaseChanged:
		return PhaseChanged{Index: 0, Phase: PhaseA}, true
	case EventFrameCaptured:
		return FrameCaptured{Image: ImageRef{ID: "img"}}, true
	case EventStreamStarted:
		return StreamStarted{}, true
	case EventError:
		return Error{Message: "boom"}, true
	case EventRunComplete:
		return RunComplete{}, true
	case EventSelectCapture:
		return SelectCapture{Index: 0}, true
	default:
		return nil, false
	}
}

// TestReduce_Exhaustive fails when an event kind is added without reducer support
func TestReduce_Exhaustive(t *testing.T) {
	for _, k := range EventKinds() {
		t.Run(k.String(), func(t *testing.T) {
			ev, ok := sampleEvent(k)
			if !ok {
				t.Fatalf("no sample event for kind %d (%s)", k, k)
			}
			if ev.Kind() != k {
				t.Fatalf("sample for %s reports kind %s", k, ev.Kind())
			}
			if _, handled := apply(NewState(4), ev); !handled {
				t.Errorf("reducer does not handle %s", k)
			}
		})
	}
	t.Logf("✅ reducer handles all %d event kinds", len(EventKinds()))
}

func TestNewState(t *testing.T) {
	s := NewState(0)
	if s.TargetLength != DefaultTargetLength {
		t.Errorf("TargetLength = %d, want %d", s.TargetLength, DefaultTargetLength)
	}
	if s.IsRunning || s.CurrentPhase != PhaseB || s.PhaseIndex != -1 {
		t.Errorf("rest state = running:%v phase:%v index:%d", s.IsRunning, s.CurrentPhase, s.PhaseIndex)
	}
	if s.StatusMessage != "20 characters remaining" {
		t.Errorf("StatusMessage = %q", s.StatusMessage)
	}
	if s.Captures == nil {
		t.Error("Captures should be an empty slice, not nil")
	}
}

func TestReduce_PatternChanged(t *testing.T) {
	tests := []struct {
		name    string
		running bool
		text    string
		want    string
	}{
		{name: "empty", text: "", want: "4 characters remaining"},
		{name: "one missing", text: "0 1 0", want: "1 character remaining"},
		{name: "exact", text: "0101", want: "Ready to capture"},
		{name: "one over", text: "01010", want: "1 character too many"},
		{name: "over", text: "0101 01", want: "2 characters too many"},
		{name: "running keeps status", running: true, text: "01", want: "Streaming"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(4)
			s.IsRunning = tt.running
			s.StatusMessage = "Streaming"

			got := Reduce(s, PatternChanged{Text: tt.text})
			if got.PatternInput != tt.text {
				t.Errorf("PatternInput = %q, want %q", got.PatternInput, tt.text)
			}
			if got.StatusMessage != tt.want {
				t.Errorf("StatusMessage = %q, want %q", got.StatusMessage, tt.want)
			}
		})
	}
}

func TestReduce_BeginRunResets(t *testing.T) {
	s := NewState(4)
	s = Reduce(s, BeginRun{RunID: "first"})
	s = Reduce(s, PhaseChanged{Index: 0, Phase: PhaseA})
	s = Reduce(s, FrameCaptured{Image: ImageRef{ID: "a"}})
	s = Reduce(s, Error{Message: "stream failed"})

	s = Reduce(s, BeginRun{RunID: "second"})

	if !s.IsRunning || s.RunID != "second" {
		t.Errorf("running=%v run=%q, want running second run", s.IsRunning, s.RunID)
	}
	if len(s.Captures) != 0 || s.PendingCaptures != 0 || s.CaptureComplete || s.SelectedIndex != nil {
		t.Errorf("run state not reset: %+v", s)
	}
	if s.ErrorMessage != "" || s.StatusMessage != "Preparing capture…" {
		t.Errorf("error=%q status=%q", s.ErrorMessage, s.StatusMessage)
	}
	if s.CurrentPhase != PhaseB {
		t.Error("BeginRun should reset phase to B")
	}
}

func TestReduce_CaptureFlow(t *testing.T) {
	s := Reduce(NewState(2), BeginRun{RunID: "r"})

	s = Reduce(s, PhaseChanged{Index: 0, Phase: PhaseB})
	if s.PendingCaptures != 1 || s.StatusMessage != "Phase 1/2 (B), captured 0/2" {
		t.Fatalf("after phase 0: pending=%d status=%q", s.PendingCaptures, s.StatusMessage)
	}

	s = Reduce(s, FrameCaptured{Image: ImageRef{ID: "a"}})
	if len(s.Captures) != 1 || s.PendingCaptures != 0 {
		t.Fatalf("after capture 1: captured=%d pending=%d", len(s.Captures), s.PendingCaptures)
	}
	if s.SelectedIndex == nil || *s.SelectedIndex != 0 {
		t.Fatalf("first capture should be auto-selected, got %v", s.SelectedIndex)
	}

	s = Reduce(s, SelectCapture{Index: 0})
	s = Reduce(s, PhaseChanged{Index: 1, Phase: PhaseA})
	s = Reduce(s, FrameCaptured{Image: ImageRef{ID: "b"}})
	if !s.CaptureComplete || s.StatusMessage != "Capture complete" {
		t.Fatalf("complete=%v status=%q", s.CaptureComplete, s.StatusMessage)
	}
	if !s.IsRunning {
		t.Fatal("run stays running until RunComplete")
	}

	before := len(s.Captures)
	s = Reduce(s, FrameCaptured{Image: ImageRef{ID: "extra"}})
	if len(s.Captures) != before {
		t.Errorf("capture accepted after completion: %d captures", len(s.Captures))
	}

	s = Reduce(s, RunComplete{})
	if s.IsRunning || s.CurrentPhase != PhaseB || s.PhaseIndex != -1 {
		t.Errorf("after RunComplete: running=%v phase=%v index=%d", s.IsRunning, s.CurrentPhase, s.PhaseIndex)
	}
	if !s.CaptureComplete || len(s.Captures) != 2 {
		t.Error("RunComplete must keep the captures")
	}
	t.Logf("✅ capture flow: %d captures, selection %d", len(s.Captures), *s.SelectedIndex)
}

func TestReduce_ErrorAndStream(t *testing.T) {
	s := Reduce(NewState(4), BeginRun{RunID: "r"})

	s = Reduce(s, StreamStarted{})
	if s.StatusMessage != "Streaming" {
		t.Errorf("StatusMessage = %q", s.StatusMessage)
	}

	got := Reduce(s, Error{Message: "camera unplugged"})
	if got.IsRunning || got.ErrorMessage != "camera unplugged" || got.StatusMessage != "Error" {
		t.Errorf("Error event: running=%v error=%q status=%q", got.IsRunning, got.ErrorMessage, got.StatusMessage)
	}

	got = Reduce(s, Error{Message: "denied", Status: "Camera permission denied"})
	if got.StatusMessage != "Camera permission denied" {
		t.Errorf("custom status = %q", got.StatusMessage)
	}

	got = Reduce(got, StreamStarted{})
	if got.ErrorMessage != "" {
		t.Error("StreamStarted should clear the error")
	}
}

// TestReduce_SelectUnconditional checks the reducer does no bounds validation
func TestReduce_SelectUnconditional(t *testing.T) {
	s := Reduce(NewState(4), SelectCapture{Index: 7})
	if s.SelectedIndex == nil || *s.SelectedIndex != 7 {
		t.Errorf("SelectedIndex = %v, want 7", s.SelectedIndex)
	}
	if _, ok := s.Selected(); ok {
		t.Error("Selected() should report an out-of-range selection as absent")
	}
}

type unknownEvent struct{}

func (unknownEvent) Kind() EventKind { return numEventKinds }
func (unknownEvent) event()          {}

func TestReduce_UnknownEventUnchanged(t *testing.T) {
	s := Reduce(NewState(4), BeginRun{RunID: "r"})
	got := Reduce(s, unknownEvent{})
	if got.RunID != s.RunID || got.StatusMessage != s.StatusMessage || got.IsRunning != s.IsRunning {
		t.Errorf("unknown event changed state: %+v", got)
	}
	if !strings.EqualFold(numEventKinds.String(), "unknown") {
		t.Errorf("String() of invalid kind = %q", numEventKinds.String())
	}
}

// TestReduce_CopyOnWrite verifies published snapshots never change afterwards
func TestReduce_CopyOnWrite(t *testing.T) {
	s := Reduce(NewState(3), BeginRun{RunID: "r"})
	s = Reduce(s, PhaseChanged{Index: 0, Phase: PhaseA})
	s = Reduce(s, PhaseChanged{Index: 1, Phase: PhaseB})
	first := Reduce(s, FrameCaptured{Image: ImageRef{ID: "a"}})

	snapshot := first.Captures
	second := Reduce(first, FrameCaptured{Image: ImageRef{ID: "b"}})

	if len(snapshot) != 1 || snapshot[0].ID != "a" {
		t.Fatalf("earlier snapshot changed: %+v", snapshot)
	}
	if &second.Captures[0] == &first.Captures[0] {
		t.Error("captures slice shared between snapshots")
	}

	sel := Reduce(second, SelectCapture{Index: 1})
	if *second.SelectedIndex != 0 || *sel.SelectedIndex != 1 {
		t.Errorf("selection aliasing: before=%d after=%d", *second.SelectedIndex, *sel.SelectedIndex)
	}
}

// TestReduce_PendingInvariant drives random event streams and checks
// 0 <= pending <= target - captured after every step.
func TestReduce_PendingInvariant(t *testing.T) {
	const target = 5
	rng := newLCG(42)

	for trial := 0; trial < 200; trial++ {
		s := Reduce(NewState(target), BeginRun{RunID: "r"})
		prevCaptured := 0
		for step := 0; step < 40; step++ {
			if rng.next()%2 == 0 {
				s = Reduce(s, PhaseChanged{Index: step, Phase: rng.next()%2 == 0})
			} else if ShouldAccept(s.PendingCaptures, len(s.Captures), target) {
				s = Reduce(s, FrameCaptured{Image: ImageRef{ID: "x"}})
			}
			checkInvariants(t, s)
			if len(s.Captures) < prevCaptured {
				t.Fatalf("captures decreased from %d to %d", prevCaptured, len(s.Captures))
			}
			prevCaptured = len(s.Captures)
		}
	}
}

// phase changes outpace frames, pending clamps at the budget.
func TestReduce_PendingClampsAtBudget(t *testing.T) {
	const target = 6
	s := Reduce(NewState(target), BeginRun{RunID: "r"})
	for i := 0; i < 3*target; i++ {
		s = Reduce(s, PhaseChanged{Index: i, Phase: i%2 == 0})
		if s.PendingCaptures > target {
			t.Fatalf("pending = %d exceeds target %d", s.PendingCaptures, target)
		}
	}
	if s.PendingCaptures != target {
		t.Errorf("pending = %d, want clamp at %d", s.PendingCaptures, target)
	}

	s = Reduce(s, FrameCaptured{Image: ImageRef{ID: "a"}})
	if s.PendingCaptures != target-1 {
		t.Errorf("pending after capture = %d, want %d", s.PendingCaptures, target-1)
	}
	t.Logf("✅ pending clamped at %d", target)
}

func checkInvariants(t *testing.T, s State) {
	t.Helper()
	if s.PendingCaptures < 0 || s.PendingCaptures > s.TargetLength-len(s.Captures) {
		t.Fatalf("pending invariant violated: pending=%d captured=%d target=%d",
			s.PendingCaptures, len(s.Captures), s.TargetLength)
	}
	if s.CaptureComplete != (len(s.Captures) == s.TargetLength) {
		t.Fatalf("CaptureComplete=%v with %d/%d captures", s.CaptureComplete, len(s.Captures), s.TargetLength)
	}
	if len(s.Captures) > s.TargetLength {
		t.Fatalf("%d captures exceed target %d", len(s.Captures), s.TargetLength)
	}
}

// lcg is a tiny deterministic generator for property loops.
type lcg struct{ state uint64 }

func newLCG(seed uint64) *lcg { return &lcg{state: seed} }

func (l *lcg) next() uint64 {
	l.state = l.state*6364136223846793005 + 1442695040888963407
	return l.state >> 33
}
