package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/e7canasta/orion-strobe/internal/config"
	"github.com/e7canasta/orion-strobe/internal/pattern"
)

// RunCapture performs one run with the configured pattern and exports the
// captures to cfg.Capture.OutputDir. A summary is printed to out.
func RunCapture(ctx context.Context, cfg *config.Config, out io.Writer) error {
	seq, err := pattern.Parse(cfg.Capture.Pattern, cfg.Capture.TargetLength)
	if err != nil {
		return err
	}

	rt, err := NewRuntime(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Controller.SetPattern(cfg.Capture.Pattern)

	start := time.Now()
	res, runErr := rt.Controller.Run(ctx, seq)
	st := rt.Controller.State()

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "                      Capture Summary                      \n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "  Run ID:              %s\n", st.RunID)
	fmt.Fprintf(out, "  Pattern:             %s\n", pattern.Format(seq))
	fmt.Fprintf(out, "  Duration:            %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "  Captured:            %d/%d\n", len(st.Captures), st.TargetLength)
	fmt.Fprintf(out, "  Frames Seen:         %d\n", res.FramesSeen)
	fmt.Fprintf(out, "  Frames Discarded:    %d\n", res.Discarded)
	fmt.Fprintf(out, "  Encoding Failures:   %d\n", res.ProcessingFailures)
	fmt.Fprintf(out, "  Status:              %s\n", st.StatusMessage)
	if st.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:               %s\n", st.ErrorMessage)
	}
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")

	if len(st.Captures) > 0 {
		paths, err := Export(cfg.Capture.OutputDir, st)
		if err != nil {
			return err
		}
		slog.Info("app: captures exported", "directory", cfg.Capture.OutputDir, "files", len(paths))
		fmt.Fprintf(out, "  Saved %d files to %s\n\n", len(paths), cfg.Capture.OutputDir)
	}

	return runErr
}
