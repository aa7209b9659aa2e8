package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete strobe-capture configuration
type Config struct {
	InstanceID       string             `yaml:"instance_id"`
	ShutdownTimeoutS int                `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	Capture          CaptureConfig      `yaml:"capture"`
	Source           SourceConfig       `yaml:"source"`
	Illumination     IlluminationConfig `yaml:"illumination"`
	HTTP             HTTPConfig         `yaml:"http"`
	Log              LogConfig          `yaml:"log"`
}

// CaptureConfig contains run settings
type CaptureConfig struct {
	TargetLength int    `yaml:"target_length"` // phases per run (default: 20)
	PeriodMS     int    `yaml:"period_ms"`     // time each phase is held
	WarmupMS     int    `yaml:"warmup_ms"`     // cadence measurement before a run (0 = off)
	JPEGQuality  int    `yaml:"jpeg_quality"`  // 1-100
	Pattern      string `yaml:"pattern"`       // default phase pattern, e.g. "0101..."
	OutputDir    string `yaml:"output_dir"`    // where the capture command writes stills
}

// SourceConfig contains video source settings
type SourceConfig struct {
	Driver     string `yaml:"driver"`     // gstreamer, v4l2, synthetic
	Device     string `yaml:"device"`     // e.g. /dev/video0
	Pipeline   string `yaml:"pipeline"`   // custom GStreamer launch string (optional)
	Resolution string `yaml:"resolution"` // 480p, 720p, 1080p
	Width      int    `yaml:"width"`      // overrides resolution
	Height     int    `yaml:"height"`     // overrides resolution
	FPS        int    `yaml:"fps"`
}

// IlluminationConfig contains light controller settings
type IlluminationConfig struct {
	Driver           string `yaml:"driver"` // mqtt, log
	Broker           string `yaml:"broker"` // host:port
	Topic            string `yaml:"topic"`
	ClientID         string `yaml:"client_id"`
	QoS              byte   `yaml:"qos"`
	Retained         bool   `yaml:"retained"`
	Payload          string `yaml:"payload"` // json, msgpack
	PublishTimeoutMS int    `yaml:"publish_timeout_ms"`
}

// HTTPConfig contains the presentation server settings
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a validated configuration with every default applied
func Default() *Config {
	var cfg Config
	if err := Validate(&cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not validate: %v", err))
	}
	return &cfg
}

// Period returns the phase period
func (c CaptureConfig) Period() time.Duration {
	return time.Duration(c.PeriodMS) * time.Millisecond
}

// Warmup returns the warm-up duration (zero disables it)
func (c CaptureConfig) Warmup() time.Duration {
	return time.Duration(c.WarmupMS) * time.Millisecond
}

// PublishTimeout returns the MQTT publish timeout
func (c IlluminationConfig) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown timeout
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}
