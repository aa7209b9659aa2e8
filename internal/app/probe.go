package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/e7canasta/orion-strobe/internal/config"
	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
	"github.com/e7canasta/orion-strobe/modules/strobe"
)

// defaultProbeWarmup is used when the config disables warm-up
const defaultProbeWarmup = 2 * time.Second

// ProbeReport describes the configured source
type ProbeReport struct {
	Driver         string
	Width, Height  int
	Stats          *streamcapture.WarmupStats
	Period         time.Duration
	FramesPerPhase float64
}

// Probe checks the capability, opens the source and measures its cadence.
func Probe(ctx context.Context, cfg *config.Config) (*ProbeReport, error) {
	provider, err := NewProvider(cfg.Source, nil)
	if err != nil {
		return nil, err
	}
	if err := provider.Probe(); err != nil {
		return nil, &strobe.RunError{Kind: strobe.ClassifyAcquireError(err), Err: err}
	}

	src, err := provider.Acquire(ctx)
	if err != nil {
		return nil, &strobe.RunError{Kind: strobe.ClassifyAcquireError(err), Err: err}
	}
	defer src.Close()

	d := cfg.Capture.Warmup()
	if d <= 0 {
		d = defaultProbeWarmup
	}
	stats, err := streamcapture.Warmup(ctx, src, d)
	if err != nil {
		return nil, fmt.Errorf("app: measuring frame cadence: %w", err)
	}

	return &ProbeReport{
		Driver:         cfg.Source.Driver,
		Width:          src.Width(),
		Height:         src.Height(),
		Stats:          stats,
		Period:         cfg.Capture.Period(),
		FramesPerPhase: streamcapture.FramesPerPhase(stats, cfg.Capture.Period()),
	}, nil
}

// RunProbe runs Probe and prints the report to out.
func RunProbe(ctx context.Context, cfg *config.Config, out io.Writer) error {
	rep, err := Probe(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Source:             %s (%dx%d)\n", rep.Driver, rep.Width, rep.Height)
	fmt.Fprintf(out, "Frames received:    %d in %s\n", rep.Stats.FramesReceived, rep.Stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "FPS:                %.2f (%.1f-%.1f, stddev %.2f)\n",
		rep.Stats.FPSMean, rep.Stats.FPSMin, rep.Stats.FPSMax, rep.Stats.FPSStdDev)
	fmt.Fprintf(out, "Jitter:             mean %.1fms, max %.1fms\n", rep.Stats.JitterMean*1000, rep.Stats.JitterMax*1000)
	fmt.Fprintf(out, "Stable:             %v\n", rep.Stats.IsStable)
	fmt.Fprintf(out, "Frames per phase:   %.2f at %s\n", rep.FramesPerPhase, rep.Period)
	if rep.FramesPerPhase < 1 {
		fmt.Fprintf(out, "WARNING: frame rate is slower than the phase cadence; increase period_ms\n")
	}
	fmt.Fprintf(out, "\n")
	return nil
}
