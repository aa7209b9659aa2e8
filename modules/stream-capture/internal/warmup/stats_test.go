package warmup

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"testing"
	"testing/quick"
	"time"
)

// TestStability_Thresholds tests the stability criteria
//
// Property: FPS stddev < 15% of mean AND jitter < 20% of expected interval → IsStable
func TestStability_Thresholds(t *testing.T) {
	tests := []struct {
		name       string
		jitter     float64
		wantStable bool
	}{
		{name: "steady camera", jitter: 0.02, wantStable: true},
		{name: "slightly noisy", jitter: 0.05, wantStable: true},
		{name: "very noisy", jitter: 0.45, wantStable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frameTimes := frameTimesWithJitter(60, 30, tt.jitter)
			stats := CalculateFPSStats(frameTimes, 2*time.Second)

			if stats.IsStable != tt.wantStable {
				t.Errorf("IsStable = %v, want %v (fps stddev %.1f%%, jitter %.1f%%)",
					stats.IsStable, tt.wantStable,
					stats.FPSStdDev/stats.FPSMean*100,
					stats.JitterMean*stats.FPSMean*100,
				)
			}
		})
	}
}

// TestStability_EdgeCases tests inputs too small to judge stability
func TestStability_EdgeCases(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		frameTimes []time.Time
		duration   time.Duration
	}{
		{"zero frames", nil, time.Second},
		{"one frame", []time.Time{base}, time.Second},
		{"two frames far apart", []time.Time{base, base.Add(time.Second)}, time.Second},
		{"duplicate timestamps", []time.Time{base, base, base}, time.Second},
		{"zero duration", []time.Time{base, base.Add(time.Millisecond)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CalculateFPSStats(tt.frameTimes, tt.duration)
			if stats == nil {
				t.Fatal("CalculateFPSStats returned nil")
			}
			if stats.IsStable {
				t.Error("IsStable = true, want false")
			}
			if stats.FramesReceived != len(tt.frameTimes) {
				t.Errorf("FramesReceived = %d, want %d", stats.FramesReceived, len(tt.frameTimes))
			}
			if stats.FPSStdDev < 0 || stats.JitterMean < 0 || stats.JitterMax < 0 {
				t.Errorf("negative statistics: %+v", stats)
			}
		})
	}
}

// TestStability_Bounds checks statistical invariants on random cadences
//
// Property: jitter metrics are non-negative, JitterMax >= JitterMean,
// FPSMin <= FPSMean <= FPSMax (within tolerance for jittered input)
func TestStability_Bounds(t *testing.T) {
	f := func(fps float64, numFrames uint8) bool {
		if fps < 0.5 || fps > 60 || numFrames < 10 || numFrames > 120 {
			return true
		}

		frameTimes := frameTimesWithJitter(int(numFrames), fps, 0.1)
		duration := frameTimes[len(frameTimes)-1].Sub(frameTimes[0]) + time.Duration(float64(time.Second)/fps)
		stats := CalculateFPSStats(frameTimes, duration)

		if stats.JitterMean < 0 || stats.JitterStdDev < 0 || stats.JitterMax < stats.JitterMean {
			t.Logf("jitter invariant violated: %+v", stats)
			return false
		}
		tolerance := fps * 0.15
		if stats.FPSMin > stats.FPSMean+tolerance || stats.FPSMax < stats.FPSMean-tolerance {
			t.Logf("fps bounds violated: min=%.2f mean=%.2f max=%.2f", stats.FPSMin, stats.FPSMean, stats.FPSMax)
			return false
		}
		return math.Abs(stats.FPSMean-fps) <= fps*0.10
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Errorf("property violated: %v", err)
	}
}

func TestFramesPerPhase(t *testing.T) {
	tests := []struct {
		name   string
		stats  *Stats
		period time.Duration
		want   float64
	}{
		{"30fps at 200ms", &Stats{FPSMean: 30}, 200 * time.Millisecond, 6},
		{"slow camera", &Stats{FPSMean: 2}, 100 * time.Millisecond, 0.2},
		{"nil stats", nil, time.Second, 0},
		{"zero period", &Stats{FPSMean: 30}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FramesPerPhase(tt.stats, tt.period); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FramesPerPhase() = %.3f, want %.3f", got, tt.want)
			}
		})
	}
}

func TestCollect(t *testing.T) {
	t.Run("measures until duration elapses", func(t *testing.T) {
		next := func(ctx context.Context) (time.Time, error) {
			select {
			case <-ctx.Done():
				return time.Time{}, ctx.Err()
			case <-time.After(5 * time.Millisecond):
				return time.Now(), nil
			}
		}

		stats, err := Collect(context.Background(), next, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("Collect() failed: %v", err)
		}
		if stats.FramesReceived < 2 {
			t.Errorf("FramesReceived = %d, want >= 2", stats.FramesReceived)
		}
	})

	t.Run("stream failure aborts", func(t *testing.T) {
		next := func(ctx context.Context) (time.Time, error) { return time.Time{}, io.EOF }
		if _, err := Collect(context.Background(), next, time.Second); !errors.Is(err, io.EOF) {
			t.Errorf("Collect() error = %v, want io.EOF", err)
		}
	})

	t.Run("parent cancellation wins", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		next := func(ctx context.Context) (time.Time, error) { return time.Time{}, ctx.Err() }
		if _, err := Collect(ctx, next, time.Second); !errors.Is(err, context.Canceled) {
			t.Errorf("Collect() error = %v, want context.Canceled", err)
		}
	})

	t.Run("too few frames", func(t *testing.T) {
		next := func(ctx context.Context) (time.Time, error) {
			<-ctx.Done()
			return time.Time{}, ctx.Err()
		}
		if _, err := Collect(context.Background(), next, 20*time.Millisecond); err == nil {
			t.Error("Collect() with no frames should fail")
		}
	})
}

// frameTimesWithJitter generates timestamps at targetFPS with a deterministic
// random offset of ±jitterFraction of the interval
func frameTimesWithJitter(numFrames int, targetFPS, jitterFraction float64) []time.Time {
	if numFrames < 1 {
		return nil
	}

	interval := 1.0 / targetFPS
	frameTimes := make([]time.Time, numFrames)
	frameTimes[0] = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rng := rand.New(rand.NewSource(42))
	for i := 1; i < numFrames; i++ {
		offset := (rng.Float64()*2 - 1) * jitterFraction * interval
		frameTimes[i] = frameTimes[i-1].Add(time.Duration((interval + offset) * float64(time.Second)))
	}
	return frameTimes
}

func BenchmarkCalculateFPSStats(b *testing.B) {
	frameTimes := frameTimesWithJitter(100, 30, 0.1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateFPSStats(frameTimes, 3*time.Second)
	}
}
