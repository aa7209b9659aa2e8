package strobe

// Capture accounting shared by the reducer and the orchestration loop.
//
// pending is the number of phase changes not yet answered by a capture. It
// never exceeds the captures still missing from the budget, so a run can
// never produce more than target captures.

// OnPhase returns pending after a phase change
func OnPhase(pending, captured, target int) int {
	return clamp(pending+1, 0, target-captured)
}

// OnCapture returns pending and captured after an accepted frame
func OnCapture(pending, captured int) (int, int) {
	return max(0, pending-1), captured + 1
}

// Complete reports whether the budget is exhausted
func Complete(captured, target int) bool {
	return captured == target
}

// ShouldAccept reports whether an arriving frame is captured
func ShouldAccept(pending, captured, target int) bool {
	return pending > 0 && captured < target
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
