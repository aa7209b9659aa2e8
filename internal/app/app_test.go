package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/e7canasta/orion-strobe/internal/config"
	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
	"github.com/e7canasta/orion-strobe/modules/strobe"
)

func syntheticConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
capture:
  target_length: 4
  period_ms: 30
  pattern: "0101"
source:
  driver: synthetic
  width: 32
  height: 24
  fps: 100
http:
  listen: 127.0.0.1:0
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Capture.OutputDir = t.TempDir()
	return cfg
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"gstreamer", "*streamcapture.GStreamerProvider"},
		{"v4l2", "*streamcapture.V4L2Provider"},
		{"synthetic", "*streamcapture.SyntheticProvider"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			p, err := NewProvider(config.SourceConfig{Driver: tt.driver, Width: 8, Height: 8, FPS: 10}, nil)
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if got := fmt.Sprintf("%T", p); got != tt.want {
				t.Errorf("NewProvider(%q) = %s, want %s", tt.driver, got, tt.want)
			}
		})
	}

	if _, err := NewProvider(config.SourceConfig{Driver: "rtsp"}, nil); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestExport(t *testing.T) {
	st := strobe.NewState(2)
	st = strobe.Reduce(st, strobe.BeginRun{RunID: "run"})
	for i := 0; i < 2; i++ {
		st = strobe.Reduce(st, strobe.PhaseChanged{Index: i, Phase: i == 1})
		st = strobe.Reduce(st, strobe.FrameCaptured{Image: strobe.ImageRef{
			ID:         "img",
			Still:      streamcapture.Still{MIMEType: "image/jpeg", Data: []byte{0xFF, 0xD8, byte(i)}},
			CapturedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Phase:      i == 1,
		}})
	}

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := Export(dir, st)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("wrote %d files, want 2 stills and a manifest", len(paths))
	}
	if got := filepath.Base(paths[1]); got != "capture_01_A_20260102_030405.000.jpg" {
		t.Errorf("second file = %q", got)
	}

	data, err := os.ReadFile(paths[0])
	if err != nil || !bytes.Equal(data, []byte{0xFF, 0xD8, 0}) {
		t.Errorf("first still = %v, %v", data, err)
	}

	manifest, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	var back strobe.State
	if err := json.Unmarshal(manifest, &back); err != nil {
		t.Fatalf("manifest is not a state: %v", err)
	}
	if back.RunID != "run" || len(back.Captures) != 2 {
		t.Errorf("manifest = %+v", back)
	}
}

func TestRunCapture_Synthetic(t *testing.T) {
	cfg := syntheticConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := RunCapture(ctx, cfg, &out); err != nil {
		t.Fatalf("RunCapture() error = %v\n%s", err, out.String())
	}

	if !strings.Contains(out.String(), "Captured:            4/4") {
		t.Errorf("summary missing capture count:\n%s", out.String())
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Capture.OutputDir, "capture_*.jpg"))
	if len(matches) != 4 {
		t.Errorf("exported %d stills, want 4", len(matches))
	}
	t.Logf("✅ synthetic capture exported %d stills", len(matches))
}

func TestRunProbe_Synthetic(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.Capture.WarmupMS = 200

	var out bytes.Buffer
	if err := RunProbe(context.Background(), cfg, &out); err != nil {
		t.Fatalf("RunProbe() error = %v", err)
	}
	if !strings.Contains(out.String(), "synthetic (32x24)") {
		t.Errorf("report = %s", out.String())
	}
}

func TestProbe_Unsupported(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.Source.FPS = 0 // synthetic probe rejects it

	_, err := Probe(context.Background(), cfg)
	if strobe.KindOf(err) != strobe.ErrKindSourceUnavailable {
		t.Errorf("Probe() error = %v, want SourceUnavailable", err)
	}
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	cfg := syntheticConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- RunServe(ctx, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunServe() error = %v", err)
		}
	case <-time.After(cfg.ShutdownTimeout() + 2*time.Second):
		t.Fatal("RunServe did not stop")
	}
}
