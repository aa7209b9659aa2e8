package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/e7canasta/orion-strobe/internal/pattern"
	"github.com/e7canasta/orion-strobe/modules/illumination"
	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
	"github.com/e7canasta/orion-strobe/modules/strobe"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate applies defaults and checks the configuration is valid
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		cfg.InstanceID = "strobe"
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}
	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	if err := validateCapture(&cfg.Capture); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := validateSource(&cfg.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := validateIllumination(&cfg.Illumination, cfg.InstanceID); err != nil {
		return fmt.Errorf("illumination: %w", err)
	}

	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = ":8080"
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}

func validateCapture(c *CaptureConfig) error {
	if c.TargetLength <= 0 {
		c.TargetLength = strobe.DefaultTargetLength
	}
	if c.PeriodMS <= 0 {
		c.PeriodMS = int(strobe.DefaultPeriod.Milliseconds())
	}
	if c.WarmupMS < 0 {
		return fmt.Errorf("warmup_ms must be >= 0, got %d", c.WarmupMS)
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = streamcapture.DefaultJPEGQuality
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be 1-100, got %d", c.JPEGQuality)
	}
	if c.Pattern == "" {
		c.Pattern = pattern.Format(pattern.Alternating(c.TargetLength))
	}
	if _, err := pattern.Parse(c.Pattern, c.TargetLength); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	if c.OutputDir == "" {
		c.OutputDir = "captures"
	}
	return nil
}

func validateSource(s *SourceConfig) error {
	if s.Driver == "" {
		s.Driver = "gstreamer"
	}
	switch s.Driver {
	case "gstreamer", "v4l2", "synthetic":
	default:
		return fmt.Errorf("unknown driver '%s' (must be 'gstreamer', 'v4l2' or 'synthetic')", s.Driver)
	}

	if s.Device == "" && s.Driver != "synthetic" {
		s.Device = "/dev/video0"
	}

	if s.Width == 0 && s.Height == 0 {
		if s.Resolution == "" {
			s.Resolution = "720p"
		}
		res, err := streamcapture.ParseResolution(s.Resolution)
		if err != nil {
			return err
		}
		s.Width, s.Height = res.Dimensions()
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("width and height must both be > 0, got %dx%d", s.Width, s.Height)
	}

	if s.FPS == 0 {
		s.FPS = 30
	}
	if s.FPS < 0 {
		return fmt.Errorf("fps must be > 0, got %d", s.FPS)
	}
	return nil
}

func validateIllumination(c *IlluminationConfig, instanceID string) error {
	if c.Driver == "" {
		c.Driver = "log"
	}
	if c.Payload == "" {
		c.Payload = "json"
	}
	if _, err := illumination.ParsePayloadFormat(c.Payload); err != nil {
		return err
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.PublishTimeoutMS <= 0 {
		c.PublishTimeoutMS = 2000
	}

	switch c.Driver {
	case "log":
	case "mqtt":
		if c.Broker == "" {
			return fmt.Errorf("broker is required for the mqtt driver")
		}
		if c.Topic == "" {
			c.Topic = fmt.Sprintf("strobe/%s/phase", instanceID)
		}
		if c.ClientID == "" {
			c.ClientID = fmt.Sprintf("orion-strobe-%s", instanceID)
		}
	default:
		return fmt.Errorf("unknown driver '%s' (must be 'mqtt' or 'log')", c.Driver)
	}
	return nil
}

func validateLog(l *LogConfig) error {
	l.Level = strings.ToLower(l.Level)
	if l.Level == "" {
		l.Level = "info"
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level '%s'", l.Level)
	}

	l.Format = strings.ToLower(l.Format)
	if l.Format == "" {
		l.Format = "text"
	}
	if l.Format != "text" && l.Format != "json" {
		return fmt.Errorf("unknown format '%s' (must be 'text' or 'json')", l.Format)
	}
	return nil
}
