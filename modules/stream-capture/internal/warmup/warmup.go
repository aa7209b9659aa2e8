package warmup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// NextFunc blocks until the next frame arrives and returns its timestamp.
// The caller owns the frame and has already released it when NextFunc returns.
type NextFunc func(ctx context.Context) (time.Time, error)

// Collect consumes frames for the given duration and measures their cadence.
//
// This function:
//  1. Pulls frames through next without processing them
//  2. Tracks frame arrival times
//  3. Stops when the duration elapses (not an error) or the parent ctx is cancelled
//  4. Computes FPS and jitter statistics
//
// Returns an error if the stream fails or ends during warm-up, fewer than
// two frames arrive, or ctx is cancelled.
func Collect(ctx context.Context, next NextFunc, duration time.Duration) (*Stats, error) {
	slog.Info("warmup: starting stream warm-up",
		"duration", duration,
		"reason", "measure frame cadence before driving the light",
	)

	start := time.Now()
	frameTimes := make([]time.Time, 0, 64)

	warmupCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	for {
		ts, err := next(warmupCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || warmupCtx.Err() != nil {
				break
			}
			return nil, fmt.Errorf("warmup: stream failed during warm-up: %w", err)
		}
		frameTimes = append(frameTimes, ts)
		slog.Debug("warmup: frame received", "frames_collected", len(frameTimes))
	}

	if len(frameTimes) < 2 {
		return nil, fmt.Errorf("warmup: not enough frames received (got %d, need at least 2)", len(frameTimes))
	}

	stats := CalculateFPSStats(frameTimes, time.Since(start))

	slog.Info("warmup: stream warm-up complete",
		"frames", stats.FramesReceived,
		"duration", stats.Duration,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"fps_range", fmt.Sprintf("%.1f-%.1f", stats.FPSMin, stats.FPSMax),
		"jitter_mean", fmt.Sprintf("%.3fs", stats.JitterMean),
		"stable", stats.IsStable,
	)

	return stats, nil
}
