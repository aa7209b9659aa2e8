package illumination

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LogIlluminator logs each command and tracks the current phase.
//
// It stands in for real hardware and lets a synthetic camera follow the
// light through Lit.
type LogIlluminator struct {
	lit      atomic.Bool
	commands atomic.Uint64
}

// SetPhase implements Illuminator
func (l *LogIlluminator) SetPhase(ctx context.Context, index int, phase bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.lit.Store(phase)
	l.commands.Add(1)
	slog.Debug("illumination: phase set", "index", index, "phase", PhaseName(phase))
	return nil
}

// Lit reports whether the light is in phase A
func (l *LogIlluminator) Lit() bool {
	return l.lit.Load()
}

// Commands returns the number of commands applied
func (l *LogIlluminator) Commands() uint64 {
	return l.commands.Load()
}
