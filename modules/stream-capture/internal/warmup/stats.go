package warmup

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum allowed FPS standard deviation as a fraction of mean FPS.
	// Example: 30 FPS mean → stable if stddev < 4.5 FPS
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as a fraction of expected interval.
	// Example: 30 FPS (33ms interval) → stable if jitter < 6.6ms
	jitterStabilityThreshold = 0.20
)

// Stats contains frame cadence statistics
type Stats struct {
	FramesReceived int
	Duration       time.Duration
	FPSMean        float64
	FPSStdDev      float64
	FPSMin         float64
	FPSMax         float64
	IsStable       bool
	JitterMean     float64 // seconds
	JitterStdDev   float64 // seconds
	JitterMax      float64 // seconds
}

// CalculateFPSStats calculates cadence statistics from frame arrival times.
//
// This function:
//  1. Calculates mean FPS over the whole window (frames / duration)
//  2. Calculates instantaneous FPS for each positive inter-frame interval
//  3. Finds min/max instantaneous FPS and their standard deviation around the mean
//  4. Calculates jitter as |interval - expected interval|
//  5. Marks the stream stable when stddev < 15% of mean AND mean jitter < 20% of interval
func CalculateFPSStats(frameTimes []time.Time, totalDuration time.Duration) *Stats {
	stats := &Stats{
		FramesReceived: len(frameTimes),
		Duration:       totalDuration,
	}
	if len(frameTimes) == 0 || totalDuration <= 0 {
		return stats
	}

	stats.FPSMean = float64(len(frameTimes)) / totalDuration.Seconds()

	intervals := make([]float64, 0, len(frameTimes)-1)
	for i := 1; i < len(frameTimes); i++ {
		intervals = append(intervals, frameTimes[i].Sub(frameTimes[i-1]).Seconds())
	}

	rates := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if iv > 0 {
			rates = append(rates, 1.0/iv)
		}
	}
	if len(rates) == 0 {
		return stats
	}

	stats.FPSMin, stats.FPSMax = rates[0], rates[0]
	for _, r := range rates {
		stats.FPSMin = math.Min(stats.FPSMin, r)
		stats.FPSMax = math.Max(stats.FPSMax, r)
	}
	stats.FPSStdDev = deviation(rates, stats.FPSMean)

	expected := 1.0 / stats.FPSMean
	jitters := make([]float64, len(intervals))
	for i, iv := range intervals {
		jitters[i] = math.Abs(iv - expected)
		stats.JitterMax = math.Max(stats.JitterMax, jitters[i])
	}
	stats.JitterMean = mean(jitters)
	stats.JitterStdDev = deviation(jitters, stats.JitterMean)

	stats.IsStable = stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold &&
		stats.JitterMean < expected*jitterStabilityThreshold

	return stats
}

// FramesPerPhase estimates how many frames arrive during one illumination
// phase of the given period. Values below 1 mean some phases will see no
// frame at all and the run can only complete on a later phase.
func FramesPerPhase(stats *Stats, period time.Duration) float64 {
	if stats == nil || period <= 0 {
		return 0
	}
	return stats.FPSMean * period.Seconds()
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func deviation(xs []float64, around float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sumSquares float64
	for _, x := range xs {
		d := x - around
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(xs)))
}
