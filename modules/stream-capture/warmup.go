package streamcapture

import (
	"context"
	"time"

	"github.com/e7canasta/orion-strobe/modules/stream-capture/internal/warmup"
)

// Warmup consumes frames from src for duration and reports the measured cadence.
//
// Every frame read during warm-up is released before the next read. An
// unstable cadence is reported through WarmupStats.IsStable, not as an error;
// the caller decides whether a jittery camera is acceptable for its strobe period.
func Warmup(ctx context.Context, src Source, duration time.Duration) (*WarmupStats, error) {
	next := func(ctx context.Context) (time.Time, error) {
		frame, err := src.Next(ctx)
		if err != nil {
			return time.Time{}, err
		}
		defer frame.Release()
		if frame.Timestamp.IsZero() {
			return time.Now(), nil
		}
		return frame.Timestamp, nil
	}

	stats, err := warmup.Collect(ctx, next, duration)
	if err != nil {
		return nil, err
	}
	return fromInternal(stats), nil
}
