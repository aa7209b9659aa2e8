// Package app wires configuration into a running capture controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/e7canasta/orion-strobe/internal/config"
	"github.com/e7canasta/orion-strobe/modules/illumination"
	streamcapture "github.com/e7canasta/orion-strobe/modules/stream-capture"
	"github.com/e7canasta/orion-strobe/modules/strobe"
)

// Runtime is a controller with its light link.
type Runtime struct {
	Controller *strobe.Controller
	Light      illumination.Illuminator

	mqtt *illumination.MQTTIlluminator
}

// NewProvider returns the video provider selected by cfg.
// lit lets the synthetic source follow the light; it may be nil.
func NewProvider(cfg config.SourceConfig, lit func() bool) (streamcapture.Provider, error) {
	switch cfg.Driver {
	case "gstreamer":
		return &streamcapture.GStreamerProvider{
			Device: cfg.Device,
			Launch: cfg.Pipeline,
			Width:  cfg.Width,
			Height: cfg.Height,
			FPS:    cfg.FPS,
		}, nil
	case "v4l2":
		return &streamcapture.V4L2Provider{
			Device: cfg.Device,
			Width:  cfg.Width,
			Height: cfg.Height,
		}, nil
	case "synthetic":
		return &streamcapture.SyntheticProvider{
			Width:  cfg.Width,
			Height: cfg.Height,
			FPS:    cfg.FPS,
			Lit:    lit,
		}, nil
	default:
		return nil, fmt.Errorf("app: unknown source driver %q", cfg.Driver)
	}
}

// NewRuntime connects the light and builds a controller. pub may be nil.
//
// The log illuminator is always present: it tracks the phase for the
// synthetic source and logs every command. The MQTT link is added when
// configured.
func NewRuntime(ctx context.Context, cfg *config.Config, pub strobe.Publisher) (*Runtime, error) {
	rt := &Runtime{}

	logLight := &illumination.LogIlluminator{}
	lights := illumination.Multi{logLight}

	if cfg.Illumination.Driver == "mqtt" {
		format, err := illumination.ParsePayloadFormat(cfg.Illumination.Payload)
		if err != nil {
			return nil, err
		}
		rt.mqtt = illumination.NewMQTTIlluminator(illumination.MQTTConfig{
			Broker:         cfg.Illumination.Broker,
			ClientID:       cfg.Illumination.ClientID,
			Topic:          cfg.Illumination.Topic,
			QoS:            cfg.Illumination.QoS,
			Retained:       cfg.Illumination.Retained,
			Payload:        format,
			PublishTimeout: cfg.Illumination.PublishTimeout(),
		})
		if err := rt.mqtt.Connect(ctx); err != nil {
			return nil, fmt.Errorf("app: connecting light controller: %w", err)
		}
		lights = append(lights, rt.mqtt)
	}
	rt.Light = lights

	provider, err := NewProvider(cfg.Source, logLight.Lit)
	if err != nil {
		rt.Close()
		return nil, err
	}

	ctrl, err := strobe.NewController(strobe.Options{
		Provider:     provider,
		Encoder:      streamcapture.JPEGEncoder{Quality: cfg.Capture.JPEGQuality},
		Illuminator:  rt.Light,
		Publisher:    pub,
		TargetLength: cfg.Capture.TargetLength,
		Period:       cfg.Capture.Period(),
		Warmup:       cfg.Capture.Warmup(),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Controller = ctrl

	slog.Info("app: runtime ready",
		"source", cfg.Source.Driver,
		"device", cfg.Source.Device,
		"light", cfg.Illumination.Driver,
		"target", cfg.Capture.TargetLength,
		"period", cfg.Capture.Period(),
	)
	return rt, nil
}

// Close releases the controller and disconnects the light.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Controller != nil {
		errs = append(errs, rt.Controller.Close())
	}
	if rt.mqtt != nil {
		rt.mqtt.Disconnect()
	}
	return errors.Join(errs...)
}
