package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/e7canasta/orion-strobe/internal/config"
	"github.com/e7canasta/orion-strobe/internal/web"
	"github.com/e7canasta/orion-strobe/modules/statebus"
	"github.com/e7canasta/orion-strobe/modules/strobe"
)

// RunServe exposes the controller over HTTP until ctx is cancelled.
//
// This function:
//  1. Builds the runtime with a state bus as publisher
//  2. Acquires the video source in the background so the first run starts fast
//  3. Serves the HTTP API on cfg.HTTP.Listen
//  4. On ctx cancellation shuts the server down within the shutdown timeout,
//     ends any active run and releases the source
func RunServe(ctx context.Context, cfg *config.Config) error {
	bus := statebus.New[strobe.State]()
	defer bus.Close()

	rt, err := NewRuntime(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Controller.SetPattern(cfg.Capture.Pattern)

	go func() {
		if err := rt.Controller.Prepare(ctx); err != nil {
			slog.Warn("app: video source not ready, runs will retry", "error", err)
		}
	}()

	srv := web.NewServer(rt.Controller, web.WithEvents(bus)).HTTPServer(cfg.HTTP.Listen)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("app: http server listening", "addr", cfg.HTTP.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("app: shutting down gracefully", "timeout", cfg.ShutdownTimeout())
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
	defer cancel()

	// Close the bus first so open event streams end and Shutdown can finish.
	bus.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("app: http shutdown failed", "error", err)
	}

	stats := bus.Stats()
	slog.Info("app: state bus stats",
		"published", stats.TotalPublished,
		"dropped", stats.TotalDropped,
		"drop_rate", statebus.CalculateDropRate(stats),
	)
	return nil
}
