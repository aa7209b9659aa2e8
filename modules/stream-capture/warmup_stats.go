package streamcapture

import (
	"time"

	"github.com/e7canasta/orion-strobe/modules/stream-capture/internal/warmup"
)

// CalculateFPSStats calculates frame cadence statistics from frame arrival times.
//
// Stability threshold:
//   - FPS: stddev < 15% of mean FPS
//   - Jitter: mean jitter < 20% of expected interval
//
// Example: 30 FPS mean → stable if stddev < 4.5 AND jitter < 0.007s
func CalculateFPSStats(frameTimes []time.Time, totalDuration time.Duration) *WarmupStats {
	return fromInternal(warmup.CalculateFPSStats(frameTimes, totalDuration))
}

// FramesPerPhase estimates how many frames the source delivers during one
// illumination phase lasting period. A value below 1 means the camera is
// slower than the strobe.
func FramesPerPhase(stats *WarmupStats, period time.Duration) float64 {
	if stats == nil {
		return 0
	}
	return warmup.FramesPerPhase(&warmup.Stats{FPSMean: stats.FPSMean}, period)
}

func fromInternal(s *warmup.Stats) *WarmupStats {
	return &WarmupStats{
		FramesReceived: s.FramesReceived,
		Duration:       s.Duration,
		FPSMean:        s.FPSMean,
		FPSStdDev:      s.FPSStdDev,
		FPSMin:         s.FPSMin,
		FPSMax:         s.FPSMax,
		IsStable:       s.IsStable,
		JitterMean:     s.JitterMean,
		JitterStdDev:   s.JitterStdDev,
		JitterMax:      s.JitterMax,
	}
}
