package strobe

// EventKind identifies an Event variant
type EventKind int

const (
	EventPatternChanged EventKind = iota
	EventBeginRun
	EventPhaseChanged
	EventFrameCaptured
	EventStreamStarted
	EventError
	EventRunComplete
	EventSelectCapture

	numEventKinds
)

// EventKinds returns every defined event kind in declaration order
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, numEventKinds)
	for k := EventKind(0); k < numEventKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k EventKind) String() string {
	switch k {
	case EventPatternChanged:
		return "PatternChanged"
	case EventBeginRun:
		return "BeginRun"
	case EventPhaseChanged:
		return "PhaseChanged"
	case EventFrameCaptured:
		return "FrameCaptured"
	case EventStreamStarted:
		return "StreamStarted"
	case EventError:
		return "Error"
	case EventRunComplete:
		return "RunComplete"
	case EventSelectCapture:
		return "SelectCapture"
	default:
		return "Unknown"
	}
}

// Event is a state transition input. The set of events is closed: only the
// types in this file implement it.
type Event interface {
	Kind() EventKind
	event()
}

// PatternChanged replaces the user's pattern text
type PatternChanged struct {
	Text string
}

// BeginRun resets the run state for a new run
type BeginRun struct {
	RunID string
}

// PhaseChanged reports that the light was switched to the phase at Index
type PhaseChanged struct {
	Index int
	Phase bool
}

// FrameCaptured appends an accepted still
type FrameCaptured struct {
	Image ImageRef
}

// StreamStarted reports that the source delivers frames
type StreamStarted struct{}

// Error ends the run with a user-visible message.
// An empty Status is shown as "Error".
type Error struct {
	Message string
	Status  string
}

// RunComplete returns the state to rest
type RunComplete struct{}

// SelectCapture selects the capture at Index
type SelectCapture struct {
	Index int
}

func (PatternChanged) Kind() EventKind { return EventPatternChanged }
func (BeginRun) Kind() EventKind       { return EventBeginRun }
func (PhaseChanged) Kind() EventKind   { return EventPhaseChanged }
func (FrameCaptured) Kind() EventKind  { return EventFrameCaptured }
func (StreamStarted) Kind() EventKind  { return EventStreamStarted }
func (Error) Kind() EventKind          { return EventError }
func (RunComplete) Kind() EventKind    { return EventRunComplete }
func (SelectCapture) Kind() EventKind  { return EventSelectCapture }

func (PatternChanged) event() {}
func (BeginRun) event()       {}
func (PhaseChanged) event()   {}
func (FrameCaptured) event()  {}
func (StreamStarted) event()  {}
func (Error) event()          {}
func (RunComplete) event()    {}
func (SelectCapture) event()  {}
